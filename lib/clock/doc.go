// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability.
//
// Production code injects [Real]; tests inject [Fake] with
// deterministic time control. Every production function that schedules
// time-dependent behavior — notification expiry, most notably — should
// accept a Clock instead of calling the time package directly, so that
// tests can drive expiry with Advance rather than sleeping.
package clock
