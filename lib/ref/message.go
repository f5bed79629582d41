// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// MessageID is a validated Canopy message identifier.
//
// Server-assigned IDs are opaque non-empty strings (e.g., "m7f3a09c2").
// IDs starting with '~' are client-local echoes: placeholders created by
// optimistic sends before the server has confirmed the message. The
// server never assigns a '~'-prefixed ID, so the prefix alone
// distinguishes a pending local message from a confirmed one.
//
// MessageID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type MessageID struct {
	id string
}

// ParseMessageID validates and wraps a raw message ID string. The only
// rejected inputs are the empty string and a bare '~' with no content.
func ParseMessageID(raw string) (MessageID, error) {
	if raw == "" {
		return MessageID{}, fmt.Errorf("empty message ID")
	}
	if raw == "~" {
		return MessageID{}, fmt.Errorf("local message ID has no content after '~'")
	}
	return MessageID{id: raw}, nil
}

// MustParseMessageID is like ParseMessageID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseMessageID(raw string) MessageID {
	m, err := ParseMessageID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseMessageID(%q): %v", raw, err))
	}
	return m
}

// LocalMessageID wraps an already-generated local echo suffix in a
// '~'-prefixed MessageID. The suffix must be non-empty.
func LocalMessageID(suffix string) (MessageID, error) {
	return ParseMessageID("~" + suffix)
}

// String returns the full message ID string.
func (m MessageID) String() string { return m.id }

// IsZero reports whether the MessageID is the zero value (uninitialized).
func (m MessageID) IsZero() bool { return m.id == "" }

// IsLocal reports whether the ID is a client-local echo ('~' prefix)
// rather than a server-assigned identifier.
func (m MessageID) IsLocal() bool { return m.id != "" && m.id[0] == '~' }

// MarshalText implements encoding.TextMarshaler for JSON and other
// text-based serialization formats.
func (m MessageID) MarshalText() ([]byte, error) {
	if m.id == "" {
		return nil, nil
	}
	return []byte(m.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON and other
// text-based serialization formats. An empty input produces the zero
// value (unset message ID).
func (m *MessageID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*m = MessageID{}
		return nil
	}
	parsed, err := ParseMessageID(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
