// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"fmt"
)

// CallReducerFlags controls what the host sends back after a reducer call.
type CallReducerFlags uint8

const (
	// FullUpdate asks for the full transaction update on success.
	FullUpdate CallReducerFlags = iota
	// NoSuccessNotify suppresses the success notification to the caller.
	NoSuccessNotify
)

func (f CallReducerFlags) String() string {
	switch f {
	case FullUpdate:
		return "FullUpdate"
	case NoSuccessNotify:
		return "NoSuccessNotify"
	default:
		return fmt.Sprintf("CallReducerFlags(%d)", uint8(f))
	}
}

// CallReducer is the client frame that invokes a reducer.
type CallReducer struct {
	Reducer   string           `sats:"reducer"`
	Args      []byte           `sats:"args"`
	RequestID uint32           `sats:"request_id"`
	Flags     CallReducerFlags `sats:"flags"`
}

// Client message variants.
const (
	ClientMessageCallReducer uint8 = iota
)

var (
	callReducerType = MustProductType(
		Field("reducer", StringType()),
		Field("args", BytesType()),
		Field("request_id", U32Type()),
		Field("flags", U8Type()),
	)
	clientMessageType = MustSumType(
		Variant("CallReducer", callReducerType),
	)
)

// ClientMessageType returns the descriptor of client frames.
func ClientMessageType() AlgebraicType { return clientMessageType }

// EncodeClientMessage encodes a frame for the host.
func EncodeClientMessage(msg CallReducer) ([]byte, error) {
	return Encode(clientMessageType, SumValue{Tag: ClientMessageCallReducer, Value: msg})
}

// DecodeClientMessage decodes a frame produced by EncodeClientMessage.
func DecodeClientMessage(data []byte) (CallReducer, error) {
	v, err := Decode(clientMessageType, data)
	if err != nil {
		return CallReducer{}, err
	}
	sv := v.(SumValue)
	var msg CallReducer
	if err := Assign(&msg, sv.Value); err != nil {
		return CallReducer{}, fmt.Errorf("decoding %s: %w", sv.Name, err)
	}
	return msg, nil
}
