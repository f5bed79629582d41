// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package channelview

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/lib/ref"
)

// pagedBackend serves a fixed timeline in backward pages, counting
// fetches.
type pagedBackend struct {
	fakeBackend
	timeline []chatapi.Message // oldest first
	fetches  atomic.Int32
}

func newPagedBackend(pageSize int, timeline ...chatapi.Message) *pagedBackend {
	backend := &pagedBackend{timeline: timeline}
	backend.watch = func(ctx context.Context, options chatapi.WatchOptions) (*chatapi.ChannelState, error) {
		start := len(timeline) - pageSize
		if start < 0 {
			start = 0
		}
		return &chatapi.ChannelState{
			ChannelID:  testChannel,
			Messages:   timeline[start:],
			EventToken: "tok-0",
		}, nil
	}
	backend.messages = func(ctx context.Context, options chatapi.PageOptions) ([]chatapi.Message, error) {
		backend.fetches.Add(1)
		end := len(timeline)
		if !options.Before.IsZero() {
			for i, message := range timeline {
				if message.ID == options.Before {
					end = i
					break
				}
			}
		}
		start := end - options.Limit
		if start < 0 {
			start = 0
		}
		return timeline[start:end], nil
	}
	return backend
}

func TestLoadMorePrependsOlderPage(t *testing.T) {
	timeline := []chatapi.Message{
		serverMessage("m1", otherUser, "oldest"),
		serverMessage("m2", otherUser, "older"),
		serverMessage("m3", otherUser, "recent"),
		serverMessage("m4", otherUser, "latest"),
	}
	backend := newPagedBackend(2, timeline...)
	harness := startView(t, &backend.fakeBackend, func(options *Options) {
		options.PageSize = 2
	})

	snapshot := harness.view.Snapshot()
	if len(snapshot.Messages) != 2 || !snapshot.HasMore {
		t.Fatalf("unexpected initial page: %d messages, hasMore=%v", len(snapshot.Messages), snapshot.HasMore)
	}

	harness.view.LoadMore(2)
	snapshot = waitFor(t, harness.view, func(s *Snapshot) bool {
		return len(s.Messages) == 4 && !s.LoadingMore
	})
	for i, want := range []string{"m1", "m2", "m3", "m4"} {
		if snapshot.Messages[i].ID.String() != want {
			t.Errorf("position %d: got %s, want %s", i, snapshot.Messages[i].ID, want)
		}
	}
	// A full page keeps hasMore set even though history happens to be
	// exhausted — only a short page signals the end.
	if !snapshot.HasMore {
		t.Error("a full page must keep hasMore true")
	}

	// The next fetch comes back empty and exhausts history.
	harness.view.LoadMore(2)
	snapshot = waitFor(t, harness.view, func(s *Snapshot) bool {
		return !s.LoadingMore && !s.HasMore
	})
	if len(snapshot.Messages) != 4 {
		t.Errorf("empty page changed the timeline: %d messages", len(snapshot.Messages))
	}
}

func TestLoadMoreNoOpWhenExhausted(t *testing.T) {
	backend := newPagedBackend(2, serverMessage("m1", otherUser, "only"))
	harness := startView(t, &backend.fakeBackend, func(options *Options) {
		options.PageSize = 2
	})

	// One message against a page size of two: exhausted from the
	// start.
	if snapshot := harness.view.Snapshot(); snapshot.HasMore {
		t.Fatal("short initial page should exhaust history")
	}

	harness.view.LoadMore(10)
	time.Sleep(50 * time.Millisecond)
	if got := backend.fetches.Load(); got != 0 {
		t.Errorf("exhausted cursor still fetched %d times", got)
	}
}

func TestLoadMoreSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	var fetches atomic.Int32
	backend := &fakeBackend{
		watch: func(ctx context.Context, options chatapi.WatchOptions) (*chatapi.ChannelState, error) {
			return &chatapi.ChannelState{
				ChannelID:  testChannel,
				Messages:   []chatapi.Message{serverMessage("m5", otherUser, "tail")},
				EventToken: "tok-0",
			}, nil
		},
		messages: func(ctx context.Context, options chatapi.PageOptions) ([]chatapi.Message, error) {
			fetches.Add(1)
			<-gate
			return []chatapi.Message{serverMessage("m4", otherUser, "older")}, nil
		},
	}
	harness := startView(t, backend, func(options *Options) {
		options.PageSize = 1
	})

	harness.view.LoadMore(1)
	waitFor(t, harness.view, func(s *Snapshot) bool { return s.LoadingMore })

	// Further calls while in flight are no-ops.
	harness.view.LoadMore(1)
	harness.view.LoadMore(1)
	close(gate)
	waitFor(t, harness.view, func(s *Snapshot) bool {
		return !s.LoadingMore && len(s.Messages) == 2
	})
	time.Sleep(50 * time.Millisecond)
	if got := fetches.Load(); got != 1 {
		t.Errorf("expected a single in-flight fetch, got %d", got)
	}
}

func TestLoadMoreDeduplicatesByID(t *testing.T) {
	backend := &fakeBackend{
		watch: func(ctx context.Context, options chatapi.WatchOptions) (*chatapi.ChannelState, error) {
			return &chatapi.ChannelState{
				ChannelID: testChannel,
				Messages: []chatapi.Message{
					serverMessage("m2", otherUser, "kept"),
					serverMessage("m3", otherUser, "tail"),
				},
				EventToken: "tok-0",
			}, nil
		},
		messages: func(ctx context.Context, options chatapi.PageOptions) ([]chatapi.Message, error) {
			// Overlapping page: m2 is already loaded.
			return []chatapi.Message{
				serverMessage("m1", otherUser, "new"),
				serverMessage("m2", otherUser, "duplicate"),
			}, nil
		},
	}
	harness := startView(t, backend, func(options *Options) {
		options.PageSize = 2
	})

	harness.view.LoadMore(2)
	snapshot := waitFor(t, harness.view, func(s *Snapshot) bool {
		return !s.LoadingMore && len(s.Messages) == 3
	})
	if snapshot.Messages[0].ID.String() != "m1" {
		t.Errorf("new page entry should prepend: %+v", snapshot.Messages)
	}
	if message, _ := snapshot.Message(ref.MustParseMessageID("m2")); message.Text != "kept" {
		t.Errorf("existing entry should win over the page duplicate: %+v", message)
	}
}

func TestLoadMoreFailureRaisesNotification(t *testing.T) {
	backend := &fakeBackend{
		watch: func(ctx context.Context, options chatapi.WatchOptions) (*chatapi.ChannelState, error) {
			return &chatapi.ChannelState{
				ChannelID:  testChannel,
				Messages:   []chatapi.Message{serverMessage("m2", otherUser, "tail")},
				EventToken: "tok-0",
			}, nil
		},
		messages: func(ctx context.Context, options chatapi.PageOptions) ([]chatapi.Message, error) {
			return nil, fmt.Errorf("page fetch exploded")
		},
	}
	harness := startView(t, backend, func(options *Options) {
		options.PageSize = 1
	})

	harness.view.LoadMore(1)
	snapshot := waitFor(t, harness.view, func(s *Snapshot) bool {
		return !s.LoadingMore && len(s.Notifications) == 1
	})
	// hasMore keeps its prior value so the user can retry; the error
	// never becomes the terminal Err.
	if !snapshot.HasMore {
		t.Error("pagination failure must not flip hasMore")
	}
	if snapshot.Err != nil {
		t.Errorf("pagination failure must not set the terminal error: %v", snapshot.Err)
	}
}

func TestLoadMoreThread(t *testing.T) {
	replyPages := [][]chatapi.Message{
		{threadReply("r3", "parent", "newest"), threadReply("r4", "parent", "latest")},
		{threadReply("r1", "parent", "oldest"), threadReply("r2", "parent", "older")},
	}
	var fetches atomic.Int32
	backend := &fakeBackend{
		watch: func(ctx context.Context, options chatapi.WatchOptions) (*chatapi.ChannelState, error) {
			return &chatapi.ChannelState{
				ChannelID:  testChannel,
				Messages:   []chatapi.Message{serverMessage("parent", otherUser, "root")},
				EventToken: "tok-0",
			}, nil
		},
		replies: func(ctx context.Context, parentID ref.MessageID, options chatapi.PageOptions) ([]chatapi.Message, error) {
			fetch := fetches.Add(1)
			if int(fetch) <= len(replyPages) {
				return replyPages[fetch-1], nil
			}
			return nil, nil
		},
	}
	harness := startView(t, backend, func(options *Options) {
		options.ThreadPageSize = 2
	})

	harness.view.OpenThread(ref.MustParseMessageID("parent"))
	waitFor(t, harness.view, func(s *Snapshot) bool {
		return s.Thread != nil && len(s.ThreadMessages) == 2 && s.ThreadHasMore
	})

	harness.view.LoadMoreThread(2)
	snapshot := waitFor(t, harness.view, func(s *Snapshot) bool {
		return len(s.ThreadMessages) == 4 && !s.ThreadLoadingMore
	})
	for i, want := range []string{"r1", "r2", "r3", "r4"} {
		if snapshot.ThreadMessages[i].ID.String() != want {
			t.Errorf("reply position %d: got %s, want %s", i, snapshot.ThreadMessages[i].ID, want)
		}
	}

	// Exhaust with an empty page; further loads are no-ops.
	harness.view.LoadMoreThread(2)
	waitFor(t, harness.view, func(s *Snapshot) bool { return !s.ThreadHasMore })
	harness.view.LoadMoreThread(2)
	time.Sleep(50 * time.Millisecond)
	if got := fetches.Load(); got != 3 {
		t.Errorf("expected 3 reply fetches, got %d", got)
	}
}
