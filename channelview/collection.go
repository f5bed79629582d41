// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package channelview

import (
	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/lib/ref"
)

// Collection helpers for the ordered, ID-unique message slices the
// view maintains. All helpers mutate in place via the returned slice;
// copying for publication happens at snapshot time.

// indexByID returns the position of the message with the given ID, or
// -1 when absent.
func indexByID(messages []chatapi.Message, id ref.MessageID) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}

// upsert replaces the message with message.ID in place when present,
// preserving its position, and appends at the tail otherwise.
func upsert(messages []chatapi.Message, message chatapi.Message) []chatapi.Message {
	if i := indexByID(messages, message.ID); i >= 0 {
		messages[i] = message
		return messages
	}
	return append(messages, message)
}

// replaceAt swaps the message at position i for replacement, keeping
// the position. Used to confirm optimistic sends: the local echo ID
// gives way to the server-assigned one without the message moving.
func replaceAt(messages []chatapi.Message, i int, replacement chatapi.Message) {
	messages[i] = replacement
}

// removeByID deletes the message with the given ID, preserving the
// order of the rest. No-op when absent.
func removeByID(messages []chatapi.Message, id ref.MessageID) []chatapi.Message {
	i := indexByID(messages, id)
	if i < 0 {
		return messages
	}
	return append(messages[:i], messages[i+1:]...)
}

// prependPage merges an older page in front of the collection,
// dropping any page entry whose ID is already present. The page is
// ordered oldest first, as the collection is.
func prependPage(messages []chatapi.Message, page []chatapi.Message) []chatapi.Message {
	if len(page) == 0 {
		return messages
	}
	fresh := make([]chatapi.Message, 0, len(page)+len(messages))
	for _, message := range page {
		if indexByID(messages, message.ID) < 0 {
			fresh = append(fresh, message)
		}
	}
	return append(fresh, messages...)
}

// updateCounts sets the authoritative reaction summary on the message
// with the given ID, when present.
func updateCounts(messages []chatapi.Message, id ref.MessageID, counts map[string]int) {
	if i := indexByID(messages, id); i >= 0 {
		messages[i].ReactionCounts = counts
	}
}
