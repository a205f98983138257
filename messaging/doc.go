// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the slice of the Matrix client-server API
// the bridge calls outbound: identity verification (WhoAmI), room
// joins (the auto-join on invite), joined-room enumeration, and
// message sends (free-game announcements).
//
// [Client] holds the homeserver URL and HTTP transport. [Session]
// wraps a Client with the appservice as_token for authenticated
// calls. Request URLs are built by string concatenation rather than
// url.URL to avoid double-encoding of path segments that contain
// URL-encoded characters.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and the HTTP
// status code. [IsMatrixError] tests for a specific code.
package messaging
