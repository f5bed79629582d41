// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package channelview

import (
	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/lib/ref"
)

// applyEvent reconciles one server event into the view state. Events
// are applied in arrival order with no reordering; replaying an event
// is idempotent because every variant carries absolute state (full
// message records, authoritative counts) rather than deltas.
func (v *View) applyEvent(event chatapi.Event) {
	// Identity gate: events for other channels are ignored outright.
	if event.Channel() != v.channelID {
		return
	}

	switch event := event.(type) {
	case chatapi.MessageNew:
		v.applyMessageNew(event.Message)
	case chatapi.MessageUpdated:
		v.replaceEverywhere(event.Message)
	case chatapi.MessageDeleted:
		v.state.messages = removeByID(v.state.messages, event.MessageID)
		v.state.pinned = removeByID(v.state.pinned, event.MessageID)
		if thread := v.state.thread; thread != nil {
			thread.replies = removeByID(thread.replies, event.MessageID)
			if thread.parent.ID == event.MessageID {
				v.threadEpoch++
				v.state.thread = nil
			}
		}
	case chatapi.ReactionNew:
		v.applyReactionCounts(event.MessageID, event.Counts)
	case chatapi.ReactionDeleted:
		v.applyReactionCounts(event.MessageID, event.Counts)
	case chatapi.MessageRead:
		v.applyReadMarker(event.Marker)
	case chatapi.MemberAdded:
		v.applyMemberAdded(event.Member)
	case chatapi.MemberRemoved:
		for i, member := range v.state.members {
			if member.User.ID == event.UserID {
				v.state.members = append(v.state.members[:i], v.state.members[i+1:]...)
				break
			}
		}
	case chatapi.WatchStarted:
		v.applyWatchStarted(event)
	case chatapi.WatchStopped:
		v.state.watcherCount = event.WatcherCount
		for i, watcher := range v.state.watchers {
			if watcher.User.ID == event.UserID {
				v.state.watchers = append(v.state.watchers[:i], v.state.watchers[i+1:]...)
				break
			}
		}
	case chatapi.ConnectionRecovered:
		// Events may have been missed during the gap: refetch the
		// watch state and reconcile it wholesale when it arrives.
		go func() {
			state, err := v.backend.Watch(v.runCtx, chatapi.WatchOptions{MessageLimit: v.pageSize})
			v.post(refreshResultMsg{state: state, err: err})
		}()
	case chatapi.UnknownEvent:
		v.logger.Debug("ignoring unrecognized event", "kind", event.WireKind)
	}
}

// applyMessageNew appends a message to the timeline, or replaces in
// place when its ID is already present (the confirmation of an
// optimistic send the view already reconciled, or a redelivered
// event). A reply to the open thread mirrors into the reply
// collection under the same rule.
func (v *View) applyMessageNew(message chatapi.Message) {
	inMain := message.ParentID.IsZero() || message.ShowInChannel ||
		indexByID(v.state.messages, message.ID) >= 0
	if inMain {
		v.state.messages = upsert(v.state.messages, message)
		if v.state.cursor.oldest.IsZero() {
			v.state.cursor.oldest = v.state.messages[0].ID
		}
	}

	if thread := v.state.thread; thread != nil {
		if thread.parent.ID == message.ParentID {
			thread.replies = upsert(thread.replies, message)
		}
		if thread.parent.ID == message.ID {
			thread.parent = message
		}
	}

	// Read tracking: a message from someone else while the surface is
	// visible marks the channel read. Own messages never do.
	if message.User.ID != v.user && v.state.visible && v.state.watching {
		v.markRead(message.ID)
	}
}

// applyReactionCounts sets the authoritative post-event reaction
// summary wherever the addressed message appears.
func (v *View) applyReactionCounts(id ref.MessageID, counts map[string]int) {
	updateCounts(v.state.messages, id, counts)
	updateCounts(v.state.pinned, id, counts)
	if thread := v.state.thread; thread != nil {
		updateCounts(thread.replies, id, counts)
		if thread.parent.ID == id {
			thread.parent.ReactionCounts = counts
		}
	}
}

func (v *View) applyReadMarker(marker chatapi.ReadMarker) {
	replaced := false
	for i, existing := range v.state.reads {
		if existing.UserID == marker.UserID {
			v.state.reads[i] = marker
			replaced = true
			break
		}
	}
	if !replaced {
		v.state.reads = append(v.state.reads, marker)
	}
	if marker.UserID == v.user {
		v.state.unread = marker.UnreadCount
	}
}

func (v *View) applyMemberAdded(member chatapi.Member) {
	for i, existing := range v.state.members {
		if existing.User.ID == member.User.ID {
			v.state.members[i] = member
			return
		}
	}
	v.state.members = append(v.state.members, member)
}

func (v *View) applyWatchStarted(event chatapi.WatchStarted) {
	v.state.watcherCount = event.WatcherCount
	for i, existing := range v.state.watchers {
		if existing.User.ID == event.Watcher.User.ID {
			v.state.watchers[i] = event.Watcher
			return
		}
	}
	v.state.watchers = append(v.state.watchers, event.Watcher)
}
