// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package appservice

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mibmo/matrix-free-stuff/lib/netutil"
)

// Bind reconstructs target from an inbound HTTP request. The router
// hands back path captures as a loosely-typed list; Bind restores
// them to the positional, fixed-arity form the target's schema
// declares, rebuilds a synthetic request carrying the original
// method, URI, headers, and body, and delegates decoding to the
// target itself.
//
// Every failure — body read, synthetic request construction, or
// decoder rejection — is returned as a client-facing [*Error] with
// code M_BAD_JSON. Bind never panics and has no side effects beyond
// consuming the request body.
func Bind(request *http.Request, target IncomingRequest) error {
	body, err := netutil.ReadBody(request.Body)
	if err != nil {
		return BadJSON("reading request body: " + err.Error())
	}

	pathParams := routeParams(request)

	// The first declared path variant fixes the placeholder arity.
	// When the routing layer supplied fewer captures (an optional
	// trailing segment was omitted, or the route was mounted without
	// that segment), pad with empty strings instead of failing — the
	// decoder decides whether an empty value is acceptable.
	schema := target.Schema()
	for len(pathParams) < schema.PlaceholderCount() {
		pathParams = append(pathParams, "")
	}

	// Rebuild a self-contained request from the captured materials.
	// The URL is re-parsed from its string form; a failure here means
	// the inbound URI was not reconstructible and is a client error.
	synthetic, err := http.NewRequestWithContext(
		request.Context(),
		request.Method,
		request.URL.String(),
		bytes.NewReader(body),
	)
	if err != nil {
		return BadJSON("reconstructing request: " + err.Error())
	}
	synthetic.Header = request.Header.Clone()

	if err := target.DecodeRequest(synthetic, pathParams); err != nil {
		return BadJSON(err.Error())
	}
	return nil
}

// routeParams extracts the positional path captures recorded by the
// chi router, in route-declaration order. Returns nil when the
// request did not pass through a chi route (zero-placeholder schemas
// bind fine either way).
func routeParams(request *http.Request) []string {
	routeContext := chi.RouteContext(request.Context())
	if routeContext == nil {
		return nil
	}
	values := routeContext.URLParams.Values
	return append([]string(nil), values...)
}
