// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// ThemeOverrides maps theme color names to ANSI 256-color codes, e.g.
// {"normal_text": "252", "unread_accent": "196"}. The recognized
// names are defined by the UI layer; unknown names are an error there,
// not here.
type ThemeOverrides map[string]string

// KeymapOverrides maps action names to key lists, e.g.
// {"quit": ["q", "ctrl+c"], "open_thread": ["t"]}. An empty key list
// disables the action's binding.
type KeymapOverrides map[string][]string

// LoadThemeOverrides reads a JSONC theme file. The format is JSON
// extended with // line comments, /* block comments */, and trailing
// commas.
func LoadThemeOverrides(path string) (ThemeOverrides, error) {
	var overrides ThemeOverrides
	if err := loadJSONC(path, &overrides); err != nil {
		return nil, fmt.Errorf("theme file: %w", err)
	}
	return overrides, nil
}

// LoadKeymapOverrides reads a JSONC keymap file, in the same extended
// JSON format as theme files.
func LoadKeymapOverrides(path string) (KeymapOverrides, error) {
	var overrides KeymapOverrides
	if err := loadJSONC(path, &overrides); err != nil {
		return nil, fmt.Errorf("keymap file: %w", err)
	}
	return overrides, nil
}

// loadJSONC strips JSONC comments and trailing commas from the file
// at path, then unmarshals the result into v.
func loadJSONC(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	stripped := jsonc.ToJSON(data)
	if err := json.Unmarshal(stripped, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
