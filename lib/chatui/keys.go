// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the channel UI.
type KeyMap struct {
	// Timeline navigation (active when the message list has focus).
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding // Also triggers older-page loading at the top.
	End      key.Binding

	// Focus switching between the message list and the composer.
	FocusToggle key.Binding

	// Composer.
	Send key.Binding

	// Message actions on the selected message.
	OpenThread    key.Binding
	Edit          key.Binding
	Delete        key.Binding
	Retry         key.Binding
	InsertMention key.Binding // Mention the selected message's users in the composer.

	// Thread pane.
	CloseThread key.Binding

	// Pagination.
	LoadMore key.Binding

	// Notifications.
	DismissNotification key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside standard arrow keys; tab toggles between the list
// and the composer.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "oldest"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "latest"),
	),
	FocusToggle: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch focus"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	OpenThread: key.NewBinding(
		key.WithKeys("t", "enter"),
		key.WithHelp("t", "open thread"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry send"),
	),
	InsertMention: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "mention"),
	),
	CloseThread: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close thread"),
	),
	LoadMore: key.NewBinding(
		key.WithKeys("ctrl+b"),
		key.WithHelp("C-b", "older messages"),
	),
	DismissNotification: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "dismiss"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
