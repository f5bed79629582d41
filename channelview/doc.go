// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package channelview maintains the client-side view-model of one chat
// channel: the message collection, an optional open thread, pagination
// cursors, read state, rosters, and transient notifications.
//
// A View reconciles two input streams into that state — user actions
// (send, edit, retry, delete, paginate, open/close thread) and the
// channel's server event feed — and publishes immutable snapshots for
// rendering. All mutation happens on a single run goroutine; action
// methods and the event pump post typed messages to it, and network
// calls run in short-lived goroutines whose completions are posted
// back. Effect order is therefore completion arrival order, never
// program order of initiation.
//
// Consumers read state with Snapshot (lock-free, always the latest
// published state) and wake on changes via the coalescing Updates
// channel:
//
//	view, err := channelview.New(channel, channelview.Options{User: me})
//	if err != nil { ... }
//	if err := view.Start(ctx); err != nil { ... }
//	defer view.Stop()
//	for range view.Updates() {
//	    render(view.Snapshot())
//	}
//
// Snapshots are read-only: the slices they carry are never mutated
// after publication, and consumers must not modify them.
package channelview
