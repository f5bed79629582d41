// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package channelview

import (
	"context"
	"log/slog"
	"time"

	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/lib/clock"
	"github.com/canopy-chat/canopy/lib/ref"
)

// Backend is the channel operation surface a View drives.
// *chatapi.Channel satisfies it; tests substitute fakes.
type Backend interface {
	Watch(ctx context.Context, options chatapi.WatchOptions) (*chatapi.ChannelState, error)
	StopWatching(ctx context.Context) error
	Messages(ctx context.Context, options chatapi.PageOptions) ([]chatapi.Message, error)
	SendMessage(ctx context.Context, draft chatapi.Draft) (chatapi.Message, error)
	UpdateMessage(ctx context.Context, messageID ref.MessageID, draft chatapi.Draft) (chatapi.Message, error)
	DeleteMessage(ctx context.Context, messageID ref.MessageID) error
	MarkRead(ctx context.Context, messageID ref.MessageID) error
	Replies(ctx context.Context, parentID ref.MessageID, options chatapi.PageOptions) ([]chatapi.Message, error)
}

// EventSource delivers the channel's events one at a time.
// *chatapi.EventStream satisfies it.
type EventSource interface {
	Next(ctx context.Context) (chatapi.Event, error)
}

// Default page sizes for the main message list and thread replies.
const (
	DefaultPageSize       = 100
	DefaultThreadPageSize = 50
)

// DefaultNotificationTTL is how long a notification stays in the
// snapshot before expiring on its own.
const DefaultNotificationTTL = 5 * time.Second

// Options configures a View. The zero value of every field is usable;
// only User is required.
type Options struct {
	// User is the local user. Required — it drives read tracking
	// (never mark-read for own messages) and local echo identity.
	User ref.UserID

	// Channel is the channel the view models. When the backend is a
	// *chatapi.Channel it may be left zero and is taken from the
	// handle.
	Channel ref.ChannelID

	// PageSize is the limit for main-list pagination and the initial
	// watch state. Defaults to DefaultPageSize.
	PageSize int

	// ThreadPageSize is the limit for thread reply pagination.
	// Defaults to DefaultThreadPageSize.
	ThreadPageSize int

	// NotificationTTL is how long notifications live before
	// auto-expiring. Defaults to DefaultNotificationTTL.
	NotificationTTL time.Duration

	// Clock drives notification expiry. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// SendFunc, when non-nil, replaces Backend.SendMessage for
	// optimistic sends and retries.
	SendFunc func(ctx context.Context, draft chatapi.Draft) (chatapi.Message, error)

	// UpdateFunc, when non-nil, replaces Backend.UpdateMessage for
	// edits.
	UpdateFunc func(ctx context.Context, messageID ref.MessageID, draft chatapi.Draft) (chatapi.Message, error)

	// MarkReadFunc, when non-nil, replaces Backend.MarkRead.
	MarkReadFunc func(ctx context.Context, messageID ref.MessageID) error

	// MentionHoverFunc, when non-nil, receives the mentioned users a
	// presentation surface reports through View.MentionsHover.
	MentionHoverFunc func(users []chatapi.User)

	// MentionClickFunc, when non-nil, receives the mentioned users a
	// presentation surface reports through View.MentionsClick.
	MentionClickFunc func(users []chatapi.User)

	// Stream, when non-nil, constructs the event source from the
	// event token of the watch state. When nil and the backend is a
	// *chatapi.Channel, chatapi.StreamEvents is used. When nil
	// otherwise, the view runs without an event feed (actions and
	// pagination still work — useful for replay and tests that
	// inject events directly).
	Stream func(eventToken string) EventSource
}
