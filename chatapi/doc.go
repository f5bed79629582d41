// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatapi wraps the Canopy chat server's HTTP API.
//
// The package provides three core types. [Client] holds the server URL
// and HTTP transport, shared across all sessions derived from it.
// [Session] wraps a Client with a bearer token for authenticated
// operations and identifies the local user. [Channel] is a
// channel-scoped handle created by [Session.Channel]: watching,
// paginated message and thread-reply queries, sending, editing,
// deleting, reactions, and read markers.
//
// All API errors are returned as [*APIError] with the server's error
// code ("not_found", "forbidden", etc.) and HTTP status code.
// [IsAPIError] tests for a specific code. Request URLs are built by
// string concatenation rather than url.URL to avoid double-encoding of
// path segments that contain URL-encoded characters (channel IDs with
// slashes).
//
// Live events arrive through [EventStream], a long-polling consumer of
// the channel's event feed. Events are decoded into the closed [Event]
// union — one concrete type per event kind, each carrying only its
// relevant fields. After a transport disruption the stream synthesizes
// a [ConnectionRecovered] event so consumers know to refresh state
// they may have missed.
//
// [Recorder] and [ReplayStream] capture an event feed to a CBOR stream
// and play it back. Captures are diagnostic artifacts (canopy-watch
// --record) and fixture inputs for reconciliation tests.
package chatapi
