// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	fake := Fake(testEpoch)
	if got := fake.Now(); !got.Equal(testEpoch) {
		t.Errorf("Now = %v, want %v", got, testEpoch)
	}
	fake.Advance(time.Hour)
	if got := fake.Now(); !got.Equal(testEpoch.Add(time.Hour)) {
		t.Errorf("Now after Advance = %v, want %v", got, testEpoch.Add(time.Hour))
	}
}

func TestAfterFuncFiresOnAdvance(t *testing.T) {
	fake := Fake(testEpoch)
	fired := false
	fake.AfterFunc(10*time.Second, func() { fired = true })

	fake.Advance(9 * time.Second)
	if fired {
		t.Fatal("callback fired before its deadline")
	}
	fake.Advance(time.Second)
	if !fired {
		t.Fatal("callback did not fire at its deadline")
	}
}

func TestAfterFuncZeroFiresSynchronously(t *testing.T) {
	fake := Fake(testEpoch)
	fired := false
	timer := fake.AfterFunc(0, func() { fired = true })
	if !fired {
		t.Fatal("zero-duration callback should fire before AfterFunc returns")
	}
	if timer.Stop() {
		t.Error("Stop after firing should report false")
	}
}

func TestAfterFuncFireOrder(t *testing.T) {
	fake := Fake(testEpoch)
	var order []int
	fake.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	fake.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	fake.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	fake.Advance(5 * time.Second)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("fired in order %v, want deadline order", order)
	}
}

func TestTimerStop(t *testing.T) {
	fake := Fake(testEpoch)
	fired := false
	timer := fake.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop on a pending timer should report true")
	}
	if timer.Stop() {
		t.Error("second Stop should report false")
	}
	fake.Advance(time.Minute)
	if fired {
		t.Error("stopped timer must not fire")
	}
}

func TestAdvanceDoesNotRefire(t *testing.T) {
	fake := Fake(testEpoch)
	count := 0
	fake.AfterFunc(time.Second, func() { count++ })

	fake.Advance(time.Minute)
	fake.Advance(time.Minute)
	if count != 1 {
		t.Errorf("callback fired %d times, want 1", count)
	}
}

func TestRealAfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("real AfterFunc never fired")
	}
}
