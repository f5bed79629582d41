// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Canopy's standard CBOR encoding configuration.
//
// Canopy uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the chat server HTTP API and CLI
//     output (canopy-watch --json).
//   - CBOR for internal artifacts: event capture files written by
//     chatapi.Recorder and replayed by chatapi.ReplayStream.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Canopy package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, so capture files diff cleanly.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (capture files):
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Types shared between the JSON API and CBOR captures carry only
// `json` struct tags: fxamacker/cbor v2 reads `json` tags as fallback
// when `cbor` tags are absent, so a single tag controls field naming
// and omitempty for both formats.
package codec
