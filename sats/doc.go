// Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package sats implements the algebraic type system and binary value
// encoding used by reactive database client bindings.
//
// Every table row and every reducer argument list is described by an
// [AlgebraicType]: a closed, immutable descriptor built from products
// (records), sums (tagged unions), scalars, strings, byte sequences,
// options and arrays. The descriptor alone determines the binary layout of
// a value; nothing on the wire describes itself beyond the tags that sums
// and options need.
//
// # Encoding
//
// Values are written as a plain concatenation with no padding, alignment
// or checksums:
//
//   - Product: each field in declared order, no field tags
//   - Sum: one tag byte (the variant's declared index), then the payload
//   - Bool: one byte, 0 or 1
//   - Integers and floats: fixed width, little-endian
//   - String, Bytes: u32 little-endian length, then the raw bytes
//   - Array: u32 little-endian element count, then each element
//   - Option: presence byte (1 present, 0 absent), then the payload if present
//
// [Encode] and [Decode] work on whole buffers. [Serialize] and
// [Deserialize] work on a [Writer] or [Reader] cursor so several values can
// share one buffer. A Writer or Reader must not be used from more than one
// goroutine at a time; descriptors may be shared freely.
//
// # Go values
//
// The dynamic value model uses [ProductValue], [SumValue], [Option] and
// plain Go scalars. Go structs can be used directly: field names come from
// `sats` struct tags,
//
//	type SendMessage struct {
//		Msg string `sats:"msg"`
//	}
//
// and [TypeOf], [Marshal] and [Unmarshal] derive and cache the descriptor.
// Pointer fields become options.
//
// # Registry and calls
//
// A [Registry] holds the descriptors of a module's tables and reducers. It
// is built explicitly at startup and passed to whoever needs it. A [Client]
// encodes reducer calls against a registry and hands the frames to a [Conn]
// supplied by the transport layer.
package sats
