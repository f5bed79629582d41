// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// ChannelID is a validated Canopy channel identifier (e.g., "#general").
//
// Channel IDs are server-assigned. Canopy treats them as opaque — the
// only validation is that they start with '#' and contain at least one
// character after the prefix.
//
// ChannelID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type ChannelID struct {
	id string
}

// ParseChannelID validates and wraps a raw channel ID string. Returns
// an error if the string is empty, doesn't start with '#', or has
// nothing after the '#' prefix.
func ParseChannelID(raw string) (ChannelID, error) {
	if raw == "" {
		return ChannelID{}, fmt.Errorf("empty channel ID")
	}
	if raw[0] != '#' {
		return ChannelID{}, fmt.Errorf("channel ID must start with '#': %q", raw)
	}
	if len(raw) < 2 {
		return ChannelID{}, fmt.Errorf("channel ID has no content after '#': %q", raw)
	}
	return ChannelID{id: raw}, nil
}

// MustParseChannelID is like ParseChannelID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseChannelID(raw string) ChannelID {
	c, err := ParseChannelID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseChannelID(%q): %v", raw, err))
	}
	return c
}

// String returns the full channel ID string (e.g., "#general").
func (c ChannelID) String() string { return c.id }

// IsZero reports whether the ChannelID is the zero value (uninitialized).
func (c ChannelID) IsZero() bool { return c.id == "" }

// MarshalText implements encoding.TextMarshaler for JSON and other
// text-based serialization formats.
func (c ChannelID) MarshalText() ([]byte, error) {
	if c.id == "" {
		return nil, nil
	}
	return []byte(c.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON and other
// text-based serialization formats. Validates the channel ID format.
// An empty input produces the zero value (unset channel ID).
func (c *ChannelID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*c = ChannelID{}
		return nil
	}
	parsed, err := ParseChannelID(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
