// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// ApplyThemeOverrides returns a copy of the theme with the named
// colors replaced. Color values are ANSI 256-color codes ("0".."255").
// Unknown names and out-of-range codes are errors so typos in a theme
// file surface instead of silently doing nothing.
func ApplyThemeOverrides(theme Theme, overrides map[string]string) (Theme, error) {
	for name, value := range overrides {
		code, err := strconv.Atoi(value)
		if err != nil || code < 0 || code > 255 {
			return Theme{}, fmt.Errorf("theme color %q: %q is not an ANSI 256-color code", name, value)
		}
		color := lipgloss.Color(value)

		switch name {
		case "normal_text":
			theme.NormalText = color
		case "faint_text":
			theme.FaintText = color
		case "selected_background":
			theme.SelectedBackground = color
		case "selected_foreground":
			theme.SelectedForeground = color
		case "local_author":
			theme.LocalAuthor = color
		case "status_sending":
			theme.StatusSending = color
		case "status_failed":
			theme.StatusFailed = color
		case "status_error":
			theme.StatusError = color
		case "thread_border":
			theme.ThreadBorder = color
		case "thread_header":
			theme.ThreadHeader = color
		case "reaction_foreground":
			theme.ReactionForeground = color
		case "mention_background":
			theme.MentionBackground = color
		case "unread_accent":
			theme.UnreadAccent = color
		case "notification_info":
			theme.NotificationInfo = color
		case "notification_error":
			theme.NotificationError = color
		case "header_foreground":
			theme.HeaderForeground = color
		case "border_color":
			theme.BorderColor = color
		case "help_text":
			theme.HelpText = color
		case "dropdown_background":
			theme.DropdownBackground = color
		case "dropdown_selected":
			theme.DropdownSelected = color
		case "match_background":
			theme.MatchBackground = color
		case "link_foreground":
			theme.LinkForeground = color
		default:
			return Theme{}, fmt.Errorf("unknown theme color %q", name)
		}
	}
	return theme, nil
}

// ApplyKeymapOverrides returns a copy of the key map with the named
// actions rebound. An empty key list disables the action. Unknown
// action names are errors.
func ApplyKeymapOverrides(keys KeyMap, overrides map[string][]string) (KeyMap, error) {
	for name, bindings := range overrides {
		target, err := keys.binding(name)
		if err != nil {
			return KeyMap{}, err
		}
		if len(bindings) == 0 {
			target.SetEnabled(false)
			continue
		}
		target.SetKeys(bindings...)
		target.SetHelp(strings.Join(bindings, "/"), target.Help().Desc)
	}
	return keys, nil
}

// binding maps an override action name to the key map field.
func (keys *KeyMap) binding(name string) (*key.Binding, error) {
	switch name {
	case "up":
		return &keys.Up, nil
	case "down":
		return &keys.Down, nil
	case "page_up":
		return &keys.PageUp, nil
	case "page_down":
		return &keys.PageDown, nil
	case "home":
		return &keys.Home, nil
	case "end":
		return &keys.End, nil
	case "focus_toggle":
		return &keys.FocusToggle, nil
	case "send":
		return &keys.Send, nil
	case "open_thread":
		return &keys.OpenThread, nil
	case "edit":
		return &keys.Edit, nil
	case "insert_mention":
		return &keys.InsertMention, nil
	case "delete":
		return &keys.Delete, nil
	case "retry":
		return &keys.Retry, nil
	case "close_thread":
		return &keys.CloseThread, nil
	case "load_more":
		return &keys.LoadMore, nil
	case "dismiss_notification":
		return &keys.DismissNotification, nil
	case "quit":
		return &keys.Quit, nil
	default:
		return nil, fmt.Errorf("unknown key map action %q", name)
	}
}
