// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"time"

	"github.com/canopy-chat/canopy/lib/ref"
)

// Event is the closed union of channel event kinds. Each concrete type
// carries only the fields relevant to its kind, replacing the wire
// format's single envelope shape with one of everything.
//
// The union is sealed: only types in this package implement it. Code
// consuming events switches on the concrete type:
//
//	switch event := event.(type) {
//	case chatapi.MessageNew:
//	    ...
//	case chatapi.ReactionNew:
//	    ...
//	}
type Event interface {
	// Channel returns the channel the event addresses.
	Channel() ref.ChannelID

	// Kind returns the wire name of the event type (e.g., "message.new").
	Kind() string

	sealed()
}

// Wire names for the recognized event kinds.
const (
	KindMessageNew          = "message.new"
	KindMessageUpdated      = "message.updated"
	KindMessageDeleted      = "message.deleted"
	KindReactionNew         = "reaction.new"
	KindReactionDeleted     = "reaction.deleted"
	KindMessageRead         = "message.read"
	KindMemberAdded         = "member.added"
	KindMemberRemoved       = "member.removed"
	KindWatchStarted        = "watch.started"
	KindWatchStopped        = "watch.stopped"
	KindConnectionRecovered = "connection.recovered"
)

// MessageNew announces a message appended to the channel timeline.
// For a message the local user sent optimistically, this is the
// server-side confirmation and carries the same ID as the send
// response.
type MessageNew struct {
	ChannelID ref.ChannelID
	Message   Message
}

// MessageUpdated announces an edit. Message is the full post-edit
// record, not a delta.
type MessageUpdated struct {
	ChannelID ref.ChannelID
	Message   Message
}

// MessageDeleted announces a deletion. ParentID is set when the
// deleted message was a thread reply so consumers can find it in the
// reply list without a full scan.
type MessageDeleted struct {
	ChannelID ref.ChannelID
	MessageID ref.MessageID
	ParentID  ref.MessageID
	DeletedAt time.Time
}

// ReactionNew announces a reaction added to a message. Counts is the
// authoritative post-event reaction summary for the addressed message;
// consumers replace rather than increment, which keeps replayed events
// idempotent.
type ReactionNew struct {
	ChannelID ref.ChannelID
	MessageID ref.MessageID
	Reaction  Reaction
	Counts    map[string]int
}

// ReactionDeleted announces a reaction removed from a message. Counts
// is the authoritative post-event reaction summary, as in ReactionNew.
type ReactionDeleted struct {
	ChannelID ref.ChannelID
	MessageID ref.MessageID
	Reaction  Reaction
	Counts    map[string]int
}

// MessageRead announces a member's read-marker advance.
type MessageRead struct {
	ChannelID ref.ChannelID
	Marker    ReadMarker
}

// MemberAdded announces a user joining the channel.
type MemberAdded struct {
	ChannelID ref.ChannelID
	Member    Member
}

// MemberRemoved announces a user leaving (or being removed from) the
// channel.
type MemberRemoved struct {
	ChannelID ref.ChannelID
	UserID    ref.UserID
}

// WatchStarted announces a user beginning to watch the channel.
// WatcherCount is the authoritative post-event count.
type WatchStarted struct {
	ChannelID    ref.ChannelID
	Watcher      Watcher
	WatcherCount int
}

// WatchStopped announces a user no longer watching the channel.
// WatcherCount is the authoritative post-event count.
type WatchStopped struct {
	ChannelID    ref.ChannelID
	UserID       ref.UserID
	WatcherCount int
}

// ConnectionRecovered is synthesized by EventStream after one or more
// failed polls are followed by a successful one. Events may have been
// missed during the gap; consumers should refresh any state they
// derive from the feed.
type ConnectionRecovered struct {
	ChannelID ref.ChannelID
}

// UnknownEvent preserves an event whose wire type this client does not
// recognize. Consumers treat it as a no-op; the raw kind is retained
// for logging.
type UnknownEvent struct {
	ChannelID ref.ChannelID
	WireKind  string
}

func (e MessageNew) Channel() ref.ChannelID          { return e.ChannelID }
func (e MessageUpdated) Channel() ref.ChannelID      { return e.ChannelID }
func (e MessageDeleted) Channel() ref.ChannelID      { return e.ChannelID }
func (e ReactionNew) Channel() ref.ChannelID         { return e.ChannelID }
func (e ReactionDeleted) Channel() ref.ChannelID     { return e.ChannelID }
func (e MessageRead) Channel() ref.ChannelID         { return e.ChannelID }
func (e MemberAdded) Channel() ref.ChannelID         { return e.ChannelID }
func (e MemberRemoved) Channel() ref.ChannelID       { return e.ChannelID }
func (e WatchStarted) Channel() ref.ChannelID        { return e.ChannelID }
func (e WatchStopped) Channel() ref.ChannelID        { return e.ChannelID }
func (e ConnectionRecovered) Channel() ref.ChannelID { return e.ChannelID }
func (e UnknownEvent) Channel() ref.ChannelID        { return e.ChannelID }

func (MessageNew) Kind() string          { return KindMessageNew }
func (MessageUpdated) Kind() string      { return KindMessageUpdated }
func (MessageDeleted) Kind() string      { return KindMessageDeleted }
func (ReactionNew) Kind() string         { return KindReactionNew }
func (ReactionDeleted) Kind() string     { return KindReactionDeleted }
func (MessageRead) Kind() string         { return KindMessageRead }
func (MemberAdded) Kind() string         { return KindMemberAdded }
func (MemberRemoved) Kind() string       { return KindMemberRemoved }
func (WatchStarted) Kind() string        { return KindWatchStarted }
func (WatchStopped) Kind() string        { return KindWatchStopped }
func (ConnectionRecovered) Kind() string { return KindConnectionRecovered }
func (e UnknownEvent) Kind() string      { return e.WireKind }

func (MessageNew) sealed()          {}
func (MessageUpdated) sealed()      {}
func (MessageDeleted) sealed()      {}
func (ReactionNew) sealed()         {}
func (ReactionDeleted) sealed()     {}
func (MessageRead) sealed()         {}
func (MemberAdded) sealed()         {}
func (MemberRemoved) sealed()       {}
func (WatchStarted) sealed()        {}
func (WatchStopped) sealed()        {}
func (ConnectionRecovered) sealed() {}
func (UnknownEvent) sealed()        {}

// eventEnvelope is the wire shape of every event: a type tag plus the
// superset of kind-specific fields. It exists only at the JSON/CBOR
// boundary — decodeEvent converts it to the Event union immediately.
type eventEnvelope struct {
	Type         string         `json:"type"`
	ChannelID    ref.ChannelID  `json:"channel_id"`
	Message      *Message       `json:"message,omitempty"`
	MessageID    ref.MessageID  `json:"message_id,omitempty"`
	ParentID     ref.MessageID  `json:"parent_id,omitempty"`
	DeletedAt    time.Time      `json:"deleted_at,omitempty"`
	Reaction     *Reaction      `json:"reaction,omitempty"`
	Counts       map[string]int `json:"reaction_counts,omitempty"`
	Marker       *ReadMarker    `json:"read,omitempty"`
	Member       *Member        `json:"member,omitempty"`
	Watcher      *Watcher       `json:"watcher,omitempty"`
	UserID       ref.UserID     `json:"user_id,omitempty"`
	WatcherCount int            `json:"watcher_count,omitempty"`
}

// decodeEvent converts a wire envelope into the Event union. Envelopes
// with a recognized type but a missing payload field decode to
// UnknownEvent rather than a partially-filled variant, so downstream
// code never sees a MessageNew without a message.
func decodeEvent(envelope eventEnvelope) Event {
	switch envelope.Type {
	case KindMessageNew:
		if envelope.Message != nil {
			return MessageNew{ChannelID: envelope.ChannelID, Message: *envelope.Message}
		}
	case KindMessageUpdated:
		if envelope.Message != nil {
			return MessageUpdated{ChannelID: envelope.ChannelID, Message: *envelope.Message}
		}
	case KindMessageDeleted:
		if !envelope.MessageID.IsZero() {
			return MessageDeleted{
				ChannelID: envelope.ChannelID,
				MessageID: envelope.MessageID,
				ParentID:  envelope.ParentID,
				DeletedAt: envelope.DeletedAt,
			}
		}
	case KindReactionNew:
		if envelope.Reaction != nil && !envelope.MessageID.IsZero() {
			return ReactionNew{
				ChannelID: envelope.ChannelID,
				MessageID: envelope.MessageID,
				Reaction:  *envelope.Reaction,
				Counts:    envelope.Counts,
			}
		}
	case KindReactionDeleted:
		if envelope.Reaction != nil && !envelope.MessageID.IsZero() {
			return ReactionDeleted{
				ChannelID: envelope.ChannelID,
				MessageID: envelope.MessageID,
				Reaction:  *envelope.Reaction,
				Counts:    envelope.Counts,
			}
		}
	case KindMessageRead:
		if envelope.Marker != nil {
			return MessageRead{ChannelID: envelope.ChannelID, Marker: *envelope.Marker}
		}
	case KindMemberAdded:
		if envelope.Member != nil {
			return MemberAdded{ChannelID: envelope.ChannelID, Member: *envelope.Member}
		}
	case KindMemberRemoved:
		if !envelope.UserID.IsZero() {
			return MemberRemoved{ChannelID: envelope.ChannelID, UserID: envelope.UserID}
		}
	case KindWatchStarted:
		if envelope.Watcher != nil {
			return WatchStarted{
				ChannelID:    envelope.ChannelID,
				Watcher:      *envelope.Watcher,
				WatcherCount: envelope.WatcherCount,
			}
		}
	case KindWatchStopped:
		if !envelope.UserID.IsZero() {
			return WatchStopped{
				ChannelID:    envelope.ChannelID,
				UserID:       envelope.UserID,
				WatcherCount: envelope.WatcherCount,
			}
		}
	case KindConnectionRecovered:
		return ConnectionRecovered{ChannelID: envelope.ChannelID}
	}
	return UnknownEvent{ChannelID: envelope.ChannelID, WireKind: envelope.Type}
}

// encodeEvent converts an Event back into its wire envelope. Inverse
// of decodeEvent; used by Recorder so captures round-trip exactly.
func encodeEvent(event Event) eventEnvelope {
	envelope := eventEnvelope{Type: event.Kind(), ChannelID: event.Channel()}
	switch event := event.(type) {
	case MessageNew:
		message := event.Message
		envelope.Message = &message
	case MessageUpdated:
		message := event.Message
		envelope.Message = &message
	case MessageDeleted:
		envelope.MessageID = event.MessageID
		envelope.ParentID = event.ParentID
		envelope.DeletedAt = event.DeletedAt
	case ReactionNew:
		reaction := event.Reaction
		envelope.Reaction = &reaction
		envelope.MessageID = event.MessageID
		envelope.Counts = event.Counts
	case ReactionDeleted:
		reaction := event.Reaction
		envelope.Reaction = &reaction
		envelope.MessageID = event.MessageID
		envelope.Counts = event.Counts
	case MessageRead:
		marker := event.Marker
		envelope.Marker = &marker
	case MemberAdded:
		member := event.Member
		envelope.Member = &member
	case MemberRemoved:
		envelope.UserID = event.UserID
	case WatchStarted:
		watcher := event.Watcher
		envelope.Watcher = &watcher
		envelope.WatcherCount = event.WatcherCount
	case WatchStopped:
		envelope.UserID = event.UserID
		envelope.WatcherCount = event.WatcherCount
	}
	return envelope
}
