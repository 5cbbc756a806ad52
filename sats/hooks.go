// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"context"
)

// CallHook provides observability callpoints around reducer calls.
// Implementations must be safe for concurrent use.
type CallHook interface {
	OnCallStart(ctx context.Context, info CallInfo) (context.Context, HookToken)
	OnCallEnd(ctx context.Context, token HookToken, info CallInfo, stats *CallStatistics, err error)
}

// HookToken is an opaque value returned by OnCallStart and passed back to
// OnCallEnd. Only meaningful to the CallHook that created it.
type HookToken interface{}

// CallInfo carries call metadata passed to hooks.
type CallInfo struct {
	Module    string           // module name from the registry
	Reducer   string           // reducer name
	RequestID uint32           // request id assigned by the client
	Flags     CallReducerFlags // flags sent with the call
	// Metadata is transport metadata hooks may add to, such as trace
	// context headers. Conn implementations read it with CallMetadata.
	Metadata map[string]string
}

type callMetadataKey struct{}

// CallMetadata returns the transport metadata of the reducer call carried
// by ctx, or nil outside a call.
func CallMetadata(ctx context.Context) map[string]string {
	md, _ := ctx.Value(callMetadataKey{}).(map[string]string)
	return md
}

// CallStatistics holds per-call byte counters.
type CallStatistics struct {
	ArgsBytes  int64 // encoded argument bytes
	FrameBytes int64 // bytes handed to the connection
	Frames     int64
}

// RecordFrame records one frame carrying argsBytes of arguments.
func (s *CallStatistics) RecordFrame(argsBytes, frameBytes int64) {
	s.Frames++
	s.ArgsBytes += argsBytes
	s.FrameBytes += frameBytes
}
