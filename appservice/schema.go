// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package appservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mibmo/matrix-free-stuff/lib/netutil"
	"github.com/mibmo/matrix-free-stuff/lib/ref"
)

// RequestSchema declares the wire shape of one appservice request
// type: its HTTP method and the templated path variants it is served
// under. Path templates use {name} placeholder segments; the FIRST
// variant fixes the number of positional path parameters the binder
// recovers. Later variants may provide fewer concrete segments (an
// optional trailing segment) — the binder pads those with empty
// strings rather than failing.
type RequestSchema struct {
	Method string
	Paths  []string
}

// PlaceholderCount returns the number of {placeholder} segments in
// the schema's first path variant, or zero for a schema with no
// declared paths.
func (s RequestSchema) PlaceholderCount() int {
	if len(s.Paths) == 0 {
		return 0
	}
	return strings.Count(s.Paths[0], "/{")
}

// IncomingRequest is implemented by typed appservice requests. The
// binder reconstructs the raw materials (synthetic request plus
// ordered, padded path parameters) and delegates decoding to the
// request type itself.
type IncomingRequest interface {
	// Schema declares the method and path templates for this
	// request type.
	Schema() RequestSchema

	// DecodeRequest populates the request from a reconstructed raw
	// request and the positional path parameter values, already
	// padded to the schema's placeholder count. Implementations
	// return plain errors; the binder wraps them into *Error.
	DecodeRequest(raw *http.Request, pathParams []string) error
}

// OutgoingResponse is implemented by typed appservice responses.
type OutgoingResponse interface {
	// EncodeResponse produces the wire form: HTTP status, headers,
	// and body bytes.
	EncodeResponse() (int, http.Header, []byte, error)
}

// PingRequest is the body of POST /_matrix/app/v1/ping. The
// homeserver sends it to verify the bridge is reachable, optionally
// correlated to a previously delivered transaction.
type PingRequest struct {
	// TransactionID is the optional transaction id the ping refers
	// to. Empty for a liveness-only probe.
	TransactionID string
}

// Schema implements [IncomingRequest].
func (*PingRequest) Schema() RequestSchema {
	return RequestSchema{
		Method: http.MethodPost,
		Paths:  []string{"/_matrix/app/v1/ping"},
	}
}

// DecodeRequest implements [IncomingRequest]. An empty body is
// equivalent to an empty JSON object.
func (r *PingRequest) DecodeRequest(raw *http.Request, _ []string) error {
	body, err := netutil.ReadBody(raw.Body)
	if err != nil {
		return fmt.Errorf("reading ping body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		r.TransactionID = ""
		return nil
	}

	var decoded struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("parsing ping body: %w", err)
	}
	r.TransactionID = decoded.TransactionID
	return nil
}

// TransactionRequest is the body and path of
// PUT /_matrix/app/v1/transactions/{txnId}: one delivery batch of
// room events, identified for retry/dedup purposes.
type TransactionRequest struct {
	// TransactionID is the opaque id from the request path.
	TransactionID string

	// Events holds the batch in delivery order, undecoded. Individual
	// events are deserialized one at a time by the handler so that a
	// single malformed event cannot fail the batch.
	Events []json.RawMessage
}

// Schema implements [IncomingRequest].
func (*TransactionRequest) Schema() RequestSchema {
	return RequestSchema{
		Method: http.MethodPut,
		Paths:  []string{"/_matrix/app/v1/transactions/{txnId}"},
	}
}

// DecodeRequest implements [IncomingRequest]. The transaction id is
// the first positional path parameter and must be non-empty.
func (r *TransactionRequest) DecodeRequest(raw *http.Request, pathParams []string) error {
	if len(pathParams) == 0 || pathParams[0] == "" {
		return fmt.Errorf("missing transaction id path segment")
	}
	r.TransactionID = pathParams[0]

	var decoded struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := netutil.DecodeBody(raw.Body, &decoded); err != nil {
		return fmt.Errorf("parsing transaction body: %w", err)
	}
	r.Events = decoded.Events
	return nil
}

// EmptyResponse is the empty JSON object the appservice endpoints
// answer with on success.
type EmptyResponse struct{}

// EncodeResponse implements [OutgoingResponse].
func (EmptyResponse) EncodeResponse() (int, http.Header, []byte, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return http.StatusOK, header, []byte("{}"), nil
}

// Event is the shape of one room event in a transaction batch. Only
// the fields the bridge inspects are decoded; everything else in the
// payload is ignored.
type Event struct {
	Type     ref.EventType `json:"type"`
	RoomID   ref.RoomID    `json:"room_id"`
	Sender   ref.UserID    `json:"sender"`
	StateKey *string       `json:"state_key,omitempty"`
	Content  EventContent  `json:"content"`
}

// EventContent carries the content fields the bridge recognizes.
type EventContent struct {
	// Membership is set for m.room.member state events ("invite",
	// "join", "leave", "ban").
	Membership string `json:"membership,omitempty"`
}

// MembershipInvite is the membership value that triggers the
// auto-join.
const MembershipInvite = "invite"
