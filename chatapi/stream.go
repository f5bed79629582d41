// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// maxPollRetries is the number of consecutive failed polls allowed
// before Next returns an error. Each retry uses a short server-side
// timeout so the HTTP round-trip itself provides backoff.
const maxPollRetries = 5

// longPollTimeout is the server-side hold time for normal event polls.
// The server holds the connection for up to this duration, returning
// immediately when new events arrive.
const longPollTimeout = 30 * time.Second

// retryTimeout is the server-side hold time used after a poll error.
// Short so the retry completes quickly and the next attempt can
// proceed.
const retryTimeout = time.Second

// EventStream delivers a channel's events in order, one at a time,
// by long-polling the channel's event feed. Create one with
// StreamEvents using the EventToken from a Watch state — the token
// anchors the stream so no event between the watch snapshot and the
// first poll is lost.
//
// After one or more failed polls are followed by a successful one,
// the stream synthesizes a ConnectionRecovered event AHEAD of the
// poll's real events. Events may have been dropped during the gap (the
// cursor can expire server-side), so consumers should re-fetch state
// they derive from the feed when they see it.
//
// EventStream is not safe for concurrent use by multiple goroutines.
// For fan-out, create multiple independent streams — each maintains
// its own cursor, which travels as a query parameter rather than
// server-side session state.
type EventStream struct {
	channel *Channel
	cursor  string
	pending []Event // events received but not yet consumed
	failed  bool    // at least one poll failed since the last success
}

// StreamEvents creates an EventStream positioned at the given cursor.
// Use the EventToken from a Watch state to receive every event after
// the watch snapshot; an empty cursor starts at the server's current
// position, seeing only events that arrive after the first poll.
func StreamEvents(channel *Channel, cursor string) *EventStream {
	return &EventStream{channel: channel, cursor: cursor}
}

// Next blocks until the next event arrives and returns it. Events
// delivered in the same poll batch are buffered and returned one per
// call. Bounded by ctx. On transient poll errors, retries up to 5
// times with a short server-side timeout, resetting idle connections
// so retries do not reuse a poisoned pooled socket.
func (s *EventStream) Next(ctx context.Context) (Event, error) {
	if len(s.pending) > 0 {
		event := s.pending[0]
		s.pending = s.pending[1:]
		return event, nil
	}

	var pollRetries int
	for {
		// On retry after an error, use a short server-side timeout so
		// the HTTP round-trip itself provides backoff. Otherwise use
		// the normal long-poll hold.
		pollTimeout := longPollTimeout
		if pollRetries > 0 {
			pollTimeout = retryTimeout
		}
		events, next, err := s.channel.Events(ctx, EventsOptions{
			Since:   s.cursor,
			Timeout: pollTimeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("context cancelled waiting for events in %s: %w", s.channel.ID(), ctx.Err())
			}
			pollRetries++
			s.failed = true
			// TCP-level errors (connection reset, EOF) often indicate
			// a poisoned connection in Go's HTTP pool. Drop idle
			// connections so the next attempt opens a fresh socket.
			s.channel.session.client.CloseIdleConnections()
			if pollRetries > maxPollRetries {
				return nil, fmt.Errorf("event poll failed %d consecutive times for %s: %w",
					pollRetries, s.channel.ID(), err)
			}
			slog.Debug("event stream poll error, retrying",
				"channel_id", s.channel.ID(),
				"attempt", pollRetries,
				"max_attempts", maxPollRetries,
				"error", err,
			)
			continue
		}
		pollRetries = 0
		s.cursor = next

		if s.failed {
			// Recovered from at least one failed poll. Surface the gap
			// before the real events so consumers refresh before
			// applying anything that arrived after it.
			s.failed = false
			s.pending = append(s.pending, ConnectionRecovered{ChannelID: s.channel.ID()})
		}
		s.pending = append(s.pending, events...)

		if len(s.pending) == 0 {
			// Long poll expired with nothing new.
			continue
		}

		event := s.pending[0]
		s.pending = s.pending[1:]
		return event, nil
	}
}

// Cursor returns the stream's current feed position token.
func (s *EventStream) Cursor() string {
	return s.cursor
}
