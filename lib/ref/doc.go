// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable Matrix identifier
// values for the bridge. User IDs, room IDs, and event types arrive
// as strings on the wire; they are parsed into validated value types
// at the boundary and passed around as immutable values afterwards.
//
// All constructors validate their inputs and return errors for
// malformed identifiers. The zero value of each type is not valid;
// use IsZero to check. JSON marshaling uses the canonical Matrix
// string form via encoding.TextMarshaler.
package ref
