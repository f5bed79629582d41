// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/canopy-chat/canopy/lib/ref"
)

func TestRecordAndReplay(t *testing.T) {
	recordedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	var buffer bytes.Buffer
	recorder := NewRecorder(&buffer)
	recorder.now = func() time.Time { return recordedAt }

	events := []Event{
		MessageNew{
			ChannelID: testChannelID,
			Message:   Message{ID: ref.MustParseMessageID("m1"), Text: "hello", Status: StatusReceived},
		},
		ReactionNew{
			ChannelID: testChannelID,
			MessageID: ref.MustParseMessageID("m1"),
			Reaction:  Reaction{Type: "like", UserID: testUserID},
			Counts:    map[string]int{"like": 2},
		},
		MessageDeleted{
			ChannelID: testChannelID,
			MessageID: ref.MustParseMessageID("m1"),
			DeletedAt: recordedAt,
		},
		ConnectionRecovered{ChannelID: testChannelID},
	}
	for _, event := range events {
		if err := recorder.Record(event); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	replay := NewReplayStream(&buffer)
	for i, want := range events {
		got, at, err := replay.Next(context.Background())
		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
		if !at.Equal(recordedAt) {
			t.Errorf("Next %d: unexpected timestamp %v", i, at)
		}
		if got.Kind() != want.Kind() {
			t.Errorf("Next %d: got kind %s, want %s", i, got.Kind(), want.Kind())
		}
		if got.Channel() != testChannelID {
			t.Errorf("Next %d: unexpected channel %s", i, got.Channel())
		}
	}

	if _, _, err := replay.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at end of capture, got %v", err)
	}
}

func TestReplayPreservesEventPayloads(t *testing.T) {
	var buffer bytes.Buffer
	recorder := NewRecorder(&buffer)

	original := ReactionNew{
		ChannelID: testChannelID,
		MessageID: ref.MustParseMessageID("m1"),
		Reaction:  Reaction{Type: "wave", UserID: testUserID},
		Counts:    map[string]int{"wave": 3, "like": 1},
	}
	if err := recorder.Record(original); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	replay := NewReplayStream(&buffer)
	event, _, err := replay.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	reaction, ok := event.(ReactionNew)
	if !ok {
		t.Fatalf("unexpected event type: %T", event)
	}
	if reaction.Reaction.Type != "wave" || reaction.Reaction.UserID != testUserID {
		t.Errorf("reaction payload lost: %+v", reaction.Reaction)
	}
	if reaction.Counts["wave"] != 3 || reaction.Counts["like"] != 1 {
		t.Errorf("counts lost: %v", reaction.Counts)
	}
}

func TestReplayTruncatedCapture(t *testing.T) {
	var buffer bytes.Buffer
	recorder := NewRecorder(&buffer)
	if err := recorder.Record(ConnectionRecovered{ChannelID: testChannelID}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := recorder.Record(ConnectionRecovered{ChannelID: testChannelID}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Cut the second frame off mid-write, as a crashed recorder would.
	truncated := buffer.Bytes()[:buffer.Len()-3]

	replay := NewReplayStream(bytes.NewReader(truncated))
	if _, _, err := replay.Next(context.Background()); err != nil {
		t.Fatalf("first frame should survive truncation: %v", err)
	}
	if _, _, err := replay.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF for truncated frame, got %v", err)
	}
}

func TestReplayHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	replay := NewReplayStream(bytes.NewReader(nil))
	if _, _, err := replay.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
