// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"sync"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// FuzzyResult is the outcome of matching a pattern against a text.
// A zero Score means no match; Positions holds the matched rune
// indices in the text for highlighting.
type FuzzyResult struct {
	Score     int
	Positions []int
}

var fuzzyInitOnce sync.Once

// fuzzyMatch runs fzf's FuzzyMatchV2 algorithm over text with a
// case-insensitive pattern. The slab is an optional scratch allocation
// reused across calls in a matching loop; nil is accepted for one-off
// matches.
func fuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 || text == "" {
		return FuzzyResult{}
	}
	fuzzyInitOnce.Do(func() {
		algo.Init("default")
	})

	// fzf expects a pre-lowercased pattern when matching
	// case-insensitively; it lowercases the text side itself.
	lowered := make([]rune, len(pattern))
	for index, r := range pattern {
		lowered[index] = unicode.ToLower(r)
	}

	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Score <= 0 {
		return FuzzyResult{}
	}
	var matched []int
	if positions != nil {
		matched = *positions
	}
	return FuzzyResult{Score: result.Score, Positions: matched}
}

// newFuzzySlab allocates a scratch slab sized for short candidate
// strings (user names, channel names). Reuse one slab per matching
// loop; slabs are not safe for concurrent use.
func newFuzzySlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}
