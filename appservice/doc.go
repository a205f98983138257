// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

// Package appservice implements the homeserver-facing side of the
// bridge: the Matrix application-service HTTP endpoints (ping and
// transaction delivery) and the machinery they are built on.
//
// Three pieces carry the protocol work:
//
//   - [Bind] reconstructs a typed request from a raw HTTP request.
//     Each request type declares a [RequestSchema] (method plus path
//     template); Bind recovers the positional path parameters the
//     router captured, pads optional trailing segments, rebuilds a
//     synthetic request, and hands it to the type's own decoder. All
//     failures surface as a client-facing [*Error], never a panic.
//
//   - [WriteResponse] serializes a typed response to the wire. An
//     encoder failure is absorbed into a fixed 500 fallback body so
//     the handler always answers with a well-formed HTTP response.
//
//   - [TransactionLog] is the mutex-guarded, time-windowed record of
//     recently delivered transaction ids. It gives the ping and
//     transaction endpoints at-most-once processing semantics under
//     homeserver retry, and is purely advisory: a duplicate or stale
//     id is logged and acknowledged, never rejected, because the
//     homeserver retries any non-2xx transaction indefinitely.
//
// [Handler] wires the three together behind a chi router. Inbound
// calls authenticate with the registration's hs_token; the only
// outbound action is the auto-join performed through the [Joiner]
// collaborator when an invite addressed to the bridge arrives in a
// transaction batch.
package appservice
