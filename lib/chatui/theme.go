// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"

	"github.com/canopy-chat/canopy/chatapi"
	"github.com/canopy-chat/canopy/lib/ref"
)

// Theme defines the color palette for the channel UI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected message row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Author name colors. Each author hashes to a stable entry so the
	// same user gets the same color across sessions.
	AuthorColors []lipgloss.Color
	// LocalAuthor overrides the hashed color for the local user.
	LocalAuthor lipgloss.Color

	// Delivery status markers on optimistic and errored messages.
	StatusSending lipgloss.Color
	StatusFailed  lipgloss.Color
	StatusError   lipgloss.Color

	// Thread pane chrome.
	ThreadBorder lipgloss.Color
	ThreadHeader lipgloss.Color

	// Reactions and mentions.
	ReactionForeground lipgloss.Color
	MentionBackground  lipgloss.Color

	// Unread divider and counts.
	UnreadAccent lipgloss.Color

	// Notifications in the status bar.
	NotificationInfo  lipgloss.Color
	NotificationError lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Mention autocomplete dropdown.
	DropdownBackground lipgloss.Color
	DropdownSelected   lipgloss.Color

	// Fuzzy match highlighting inside the mention dropdown.
	MatchBackground lipgloss.Color

	// Autolinked URLs in message bodies.
	LinkForeground lipgloss.Color
}

// AuthorColor returns the stable color for a message author. The
// local user always renders with LocalAuthor; everyone else hashes
// into AuthorColors.
func (theme Theme) AuthorColor(author ref.UserID, local ref.UserID) lipgloss.Color {
	if author == local {
		return theme.LocalAuthor
	}
	if len(theme.AuthorColors) == 0 {
		return theme.NormalText
	}
	hash := fnv.New32a()
	hash.Write([]byte(author.String()))
	return theme.AuthorColors[hash.Sum32()%uint32(len(theme.AuthorColors))]
}

// StatusColor returns the marker color for a message delivery status.
// Confirmed messages render with FaintText (the marker is omitted for
// them anyway).
func (theme Theme) StatusColor(status chatapi.MessageStatus) lipgloss.Color {
	switch status {
	case chatapi.StatusSending:
		return theme.StatusSending
	case chatapi.StatusFailed:
		return theme.StatusFailed
	case chatapi.StatusError:
		return theme.StatusError
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme. Designed
// for 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	AuthorColors: []lipgloss.Color{
		lipgloss.Color("75"),  // blue
		lipgloss.Color("114"), // green
		lipgloss.Color("141"), // purple
		lipgloss.Color("173"), // salmon
		lipgloss.Color("179"), // sand
		lipgloss.Color("80"),  // teal
		lipgloss.Color("168"), // raspberry
	},
	LocalAuthor: lipgloss.Color("220"), // amber

	StatusSending: lipgloss.Color("245"), // gray
	StatusFailed:  lipgloss.Color("196"), // red
	StatusError:   lipgloss.Color("208"), // orange

	ThreadBorder: lipgloss.Color("240"),
	ThreadHeader: lipgloss.Color("255"),

	ReactionForeground: lipgloss.Color("179"),
	MentionBackground:  lipgloss.Color("24"), // dark blue tint

	UnreadAccent: lipgloss.Color("196"),

	NotificationInfo:  lipgloss.Color("114"),
	NotificationError: lipgloss.Color("196"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	DropdownBackground: lipgloss.Color("236"),
	DropdownSelected:   lipgloss.Color("238"),

	MatchBackground: lipgloss.Color("22"), // dark green tint

	LinkForeground: lipgloss.Color("75"),
}
