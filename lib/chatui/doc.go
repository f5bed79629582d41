// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the bubbletea terminal UI for a single Canopy
// channel. It renders the snapshots published by a channelview.View —
// the message timeline, the open thread, the member roster, and the
// composer — and translates key and focus input into view actions.
//
// The model is a thin projection layer: all chat state lives in the
// view-model, and the UI never mutates it directly. Each snapshot
// update arrives as a bubbletea message and triggers a full re-render
// from the new snapshot.
package chatui
