// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package channelview

import (
	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/lib/ref"
)

// NotificationKind classifies a notification for rendering.
type NotificationKind string

const (
	NotificationInfo  NotificationKind = "info"
	NotificationError NotificationKind = "error"
)

// Notification is a transient user-facing message raised by a failed
// action (send, edit, pagination). Notifications expire on their own
// after the view's TTL; DismissNotification removes one early.
type Notification struct {
	ID   uint64
	Text string
	Kind NotificationKind
}

// Snapshot is an immutable point-in-time projection of the view-model.
// All slices are owned by the snapshot: the view never mutates them
// after publication, and consumers must not either.
type Snapshot struct {
	ChannelID ref.ChannelID

	// Messages is the main timeline, ordered oldest first, unique by
	// ID. Optimistic sends appear at the tail with local ('~') IDs
	// until confirmed.
	Messages       []chatapi.Message
	PinnedMessages []chatapi.Message

	// Thread is the open thread's parent message, nil when no thread
	// is open. It reflects the latest reconciled state of the parent,
	// not a copy taken at open time.
	Thread         *chatapi.Message
	ThreadMessages []chatapi.Message

	// Pagination flags for the main list and the open thread.
	HasMore           bool
	LoadingMore       bool
	ThreadHasMore     bool
	ThreadLoadingMore bool

	Members      []chatapi.Member
	Watchers     []chatapi.Watcher
	WatcherCount int
	Mutes        []chatapi.Mute
	Reads        []chatapi.ReadMarker

	// UnreadCount is the local user's unread count per the latest
	// read marker.
	UnreadCount int

	Notifications []Notification

	// Err is set only by a failed initial load; it is terminal for
	// the view. Action and pagination failures surface as message
	// statuses and notifications instead.
	Err error

	// Loading is true from Start until the initial watch completes.
	Loading bool
}

// Message returns the message with the given ID from the main
// timeline, or false when absent.
func (s *Snapshot) Message(id ref.MessageID) (chatapi.Message, bool) {
	for _, message := range s.Messages {
		if message.ID == id {
			return message, true
		}
	}
	return chatapi.Message{}, false
}
