// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"time"

	"github.com/canopy-chat/canopy/lib/ref"
)

// MessageStatus describes where a message sits in its delivery
// lifecycle. Server-delivered messages are always "received"; the
// other statuses exist only on the client, attached to optimistic
// entries by the view-model layer.
type MessageStatus string

const (
	// StatusReceived is a server-confirmed message. The zero value of
	// the status field on wire messages decodes as received.
	StatusReceived MessageStatus = "received"
	// StatusSending is a local echo whose send call is still in flight.
	StatusSending MessageStatus = "sending"
	// StatusFailed is a local echo whose send call failed. Failed
	// messages are retained so the user can retry.
	StatusFailed MessageStatus = "failed"
	// StatusError is a confirmed message whose last edit was rejected
	// by the server. The prior content is retained.
	StatusError MessageStatus = "error"
)

// User identifies a chat participant.
type User struct {
	ID   ref.UserID `json:"id"`
	Name string     `json:"name,omitempty"`
}

// Attachment is a file or link attached to a message. The server
// stores attachments opaquely; Extra carries provider-specific fields.
type Attachment struct {
	Type  string         `json:"type"`
	Title string         `json:"title,omitempty"`
	URL   string         `json:"url,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

// Message is a single chat message. A message with a non-zero ParentID
// is a thread reply; it belongs to its parent's reply list and, when
// ShowInChannel is set, also to the main channel timeline.
type Message struct {
	ID             ref.MessageID  `json:"id"`
	ChannelID      ref.ChannelID  `json:"channel_id,omitempty"`
	User           User           `json:"user"`
	Text           string         `json:"text"`
	Attachments    []Attachment   `json:"attachments,omitempty"`
	ParentID       ref.MessageID  `json:"parent_id,omitempty"`
	ShowInChannel  bool           `json:"show_in_channel,omitempty"`
	Status         MessageStatus  `json:"status,omitempty"`
	Pinned         bool           `json:"pinned,omitempty"`
	ReactionCounts map[string]int `json:"reaction_counts,omitempty"`
	ReplyCount     int            `json:"reply_count,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty"`
}

// Draft is the client-supplied content of a message before the server
// has assigned it an identity. ParentID marks the draft as a thread
// reply.
type Draft struct {
	Text          string        `json:"text"`
	Attachments   []Attachment  `json:"attachments,omitempty"`
	ParentID      ref.MessageID `json:"parent_id,omitempty"`
	ShowInChannel bool          `json:"show_in_channel,omitempty"`
}

// Reaction is a single user's reaction to a message.
type Reaction struct {
	Type      string        `json:"type"`
	UserID    ref.UserID    `json:"user_id"`
	MessageID ref.MessageID `json:"message_id,omitempty"`
}

// Member is a permanent association between a user and a channel.
type Member struct {
	User     User      `json:"user"`
	Role     string    `json:"role,omitempty"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

// Watcher is a user currently viewing a channel. Watching is
// transient — it starts with Channel.Watch and ends with
// Channel.StopWatching or connection loss.
type Watcher struct {
	User User `json:"user"`
}

// Mute records that the local user has muted another user.
type Mute struct {
	Target    ref.UserID `json:"target"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
}

// ReadMarker is one member's read position in a channel.
type ReadMarker struct {
	UserID      ref.UserID    `json:"user_id"`
	LastReadID  ref.MessageID `json:"last_read_id,omitempty"`
	LastReadAt  time.Time     `json:"last_read_at,omitempty"`
	UnreadCount int           `json:"unread_count,omitempty"`
}

// ChannelState is the server's snapshot of a channel at watch time:
// the most recent message page (oldest first), the member and watcher
// rosters, per-member read markers, and the event token that anchors a
// subsequent EventStream so no event between the snapshot and the
// first poll is lost.
type ChannelState struct {
	ChannelID      ref.ChannelID `json:"channel_id"`
	Messages       []Message     `json:"messages"`
	PinnedMessages []Message     `json:"pinned_messages,omitempty"`
	Members        []Member      `json:"members,omitempty"`
	Watchers       []Watcher     `json:"watchers,omitempty"`
	WatcherCount   int           `json:"watcher_count,omitempty"`
	Reads          []ReadMarker  `json:"reads,omitempty"`
	Mutes          []Mute        `json:"mutes,omitempty"`
	EventToken     string        `json:"event_token,omitempty"`
}

// PageOptions controls backward pagination for message and reply
// queries. A zero Before means "from the latest message".
type PageOptions struct {
	Before ref.MessageID
	Limit  int
}

// messagesResponse is the wire shape shared by the message and reply
// query endpoints. Messages are ordered oldest first within the page.
type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// messageResponse is the wire shape of send and update responses.
type messageResponse struct {
	Message Message `json:"message"`
}

// eventsResponse is the wire shape of the event feed endpoint.
type eventsResponse struct {
	Events []eventEnvelope `json:"events"`
	Next   string          `json:"next"`
}
