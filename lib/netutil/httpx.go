// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body reads for the bridge.
//
// All request and response bodies the bridge touches are JSON API
// payloads; reads are bounded so that a misbehaving peer cannot force
// unbounded memory allocation. These helpers are not for streaming
// responses, which should be read incrementally with io.Copy.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxBodySize bounds JSON API body reads: 32 MB. Appservice
// transactions carry at most a few hundred events; legitimate payloads
// are orders of magnitude smaller. The limit only exists to stop a
// pathological peer from exhausting memory.
const MaxBodySize int64 = 32 << 20

// ReadBody reads a JSON API body up to MaxBodySize bytes. Use instead
// of io.ReadAll when reading HTTP request or response bodies.
func ReadBody(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxBodySize))
}

// DecodeBody reads a JSON API body (up to MaxBodySize bytes) and
// JSON-decodes it into v.
func DecodeBody(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxBodySize))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	return json.Unmarshal(data, v)
}
