// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"sort"
	"strings"

	"github.com/canopy-chat/canopy/chatapi"
)

// maxMentionCandidates caps the dropdown height.
const maxMentionCandidates = 8

// MentionCandidate is one member offered by the mention autocomplete,
// with its fuzzy score and matched positions within the display name
// for highlighting.
type MentionCandidate struct {
	Member    chatapi.Member
	Score     int
	Positions []int
}

// Handle returns the completion text for the candidate: the user ID's
// localpart, which is what @-mentions reference.
func (candidate MentionCandidate) Handle() string {
	return candidate.Member.User.ID.Localpart()
}

// DisplayName returns the name shown in the dropdown: the member's
// display name when set, otherwise the localpart.
func (candidate MentionCandidate) DisplayName() string {
	if candidate.Member.User.Name != "" {
		return candidate.Member.User.Name
	}
	return candidate.Member.User.ID.Localpart()
}

// mentionQuery inspects composer text and reports whether the text
// ends in an @-token the autocomplete should act on. start is the byte
// offset of the '@'. A token only triggers at the start of the text or
// after whitespace, so email-like strings don't open the dropdown.
func mentionQuery(text string) (query string, start int, ok bool) {
	at := strings.LastIndexByte(text, '@')
	if at < 0 {
		return "", 0, false
	}
	if at > 0 {
		before := text[at-1]
		if before != ' ' && before != '\n' && before != '\t' {
			return "", 0, false
		}
	}
	token := text[at+1:]
	if strings.ContainsAny(token, " \n\t") {
		return "", 0, false
	}
	return token, at, true
}

// matchMembers fuzzy-ranks the roster against a mention query. An
// empty query returns the full roster in name order. Results are
// sorted by score descending, then name, and capped at
// maxMentionCandidates.
func matchMembers(members []chatapi.Member, query string) []MentionCandidate {
	candidates := make([]MentionCandidate, 0, len(members))
	if query == "" {
		for _, member := range members {
			candidates = append(candidates, MentionCandidate{Member: member})
		}
		sort.Slice(candidates, func(a, b int) bool {
			return candidates[a].DisplayName() < candidates[b].DisplayName()
		})
		if len(candidates) > maxMentionCandidates {
			candidates = candidates[:maxMentionCandidates]
		}
		return candidates
	}

	pattern := []rune(query)
	slab := newFuzzySlab()
	for _, member := range members {
		candidate := MentionCandidate{Member: member}
		// Match against the display name, falling back to the
		// localpart so either form of the user is findable.
		result := fuzzyMatch(candidate.DisplayName(), pattern, slab)
		if result.Score <= 0 && candidate.DisplayName() != candidate.Handle() {
			result = fuzzyMatch(candidate.Handle(), pattern, slab)
			result.Positions = nil // Positions index the handle, not the shown name.
		}
		if result.Score <= 0 {
			continue
		}
		candidate.Score = result.Score
		candidate.Positions = result.Positions
		candidates = append(candidates, candidate)
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		return candidates[a].DisplayName() < candidates[b].DisplayName()
	})
	if len(candidates) > maxMentionCandidates {
		candidates = candidates[:maxMentionCandidates]
	}
	return candidates
}

// completeMention replaces the trailing @-token (starting at the '@'
// byte offset start) with the chosen handle plus a trailing space.
func completeMention(text string, start int, handle string) string {
	return text[:start] + "@" + handle + " "
}

// mentionedUsers resolves the @-mentions in a message's text against
// the member roster, in order of first appearance without duplicates.
// Handles that match no member are skipped.
func mentionedUsers(message chatapi.Message, members []chatapi.Member) []chatapi.User {
	byHandle := make(map[string]chatapi.User, len(members))
	for _, member := range members {
		byHandle[strings.ToLower(member.User.ID.Localpart())] = member.User
	}

	var users []chatapi.User
	seen := make(map[string]bool)
	text := message.Text
	for index := 0; index < len(text); index++ {
		if text[index] != '@' {
			continue
		}
		if index > 0 {
			before := text[index-1]
			if before != ' ' && before != '\n' && before != '\t' {
				continue
			}
		}
		handle, length := mentionToken(text[index+1:])
		if length == 0 {
			continue
		}
		index += length
		key := strings.ToLower(handle)
		user, known := byHandle[key]
		if !known || seen[key] {
			continue
		}
		seen[key] = true
		users = append(users, user)
	}
	return users
}
