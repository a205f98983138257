// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

// Package webhook receives event notifications from the FreeStuff API.
//
// The FreeStuff service delivers events as JSON bodies of the form
// {"event": "...", "secret": "...", "data": ...} to a configured
// endpoint. Handler validates the shared secret, decodes the payload
// for known event names, and dispatches to callbacks. Currently the
// only known event is "free_games", carrying a list of game IDs.
package webhook
