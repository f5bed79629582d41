// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identity references for
// Canopy entities: channels, messages, and users.
//
// All constructors validate their inputs and return errors for invalid
// identifiers. Once constructed, a ref is immutable — String returns the
// canonical form at zero allocation cost. The zero value of every ref
// type is invalid; use IsZero to check.
//
// The canonical serialization forms are:
//   - ChannelID: "#general" (server-assigned, '#' prefix)
//   - MessageID: "m7f3a09c2" (server-assigned, opaque) or "~a91b44d0"
//     (client-local echo, '~' prefix, never assigned by the server)
//   - UserID: "@nina" ('@' prefix)
//
// JSON and CBOR marshaling use these canonical forms via
// encoding.TextMarshaler.
package ref
