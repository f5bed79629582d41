// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Canopy packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need to spell it out for every channel receive.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Canopy-internal dependencies.
package testutil
