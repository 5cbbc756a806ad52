// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"fmt"

	"github.com/Query-farm/sats-go/sats"
)

// Reducer names as registered by the module.
const (
	ClientConnectedReducer    = "client_connected"
	ClientDisconnectedReducer = "client_disconnected"
	SendMessageReducer        = "send_message"
	SetNameReducer            = "set_name"
)

// ClientConnected is the argument list of the connect lifecycle reducer.
type ClientConnected struct{}

// ClientDisconnected is the argument list of the disconnect lifecycle
// reducer.
type ClientDisconnected struct{}

// SendMessage is the argument list of send_message.
type SendMessage struct {
	Msg string `sats:"msg"`
}

// SetName is the argument list of set_name.
type SetName struct {
	Name string `sats:"name"`
}

var (
	clientConnectedType    = sats.UnitType()
	clientDisconnectedType = sats.UnitType()
	sendMessageType        = sats.MustProductType(sats.Field("msg", sats.StringType()))
	setNameType            = sats.MustProductType(sats.Field("name", sats.StringType()))
)

func (ClientConnected) AlgebraicType() sats.AlgebraicType    { return clientConnectedType }
func (ClientDisconnected) AlgebraicType() sats.AlgebraicType { return clientDisconnectedType }
func (SendMessage) AlgebraicType() sats.AlgebraicType        { return sendMessageType }
func (SetName) AlgebraicType() sats.AlgebraicType            { return setNameType }

// Serialize appends the encoded arguments to w.
func (a SendMessage) Serialize(w *sats.Writer) error { return sats.Serialize(w, sendMessageType, a) }

// DeserializeSendMessage reads send_message arguments from r.
func DeserializeSendMessage(r *sats.Reader) (SendMessage, error) {
	var a SendMessage
	err := deserializeInto(r, sendMessageType, &a)
	return a, err
}

// Serialize appends the encoded arguments to w.
func (a SetName) Serialize(w *sats.Writer) error { return sats.Serialize(w, setNameType, a) }

// DeserializeSetName reads set_name arguments from r.
func DeserializeSetName(r *sats.Reader) (SetName, error) {
	var a SetName
	err := deserializeInto(r, setNameType, &a)
	return a, err
}

// Reducer is one call to any of the module's reducers. Args holds one of
// ClientConnected, ClientDisconnected, SendMessage or SetName.
type Reducer struct {
	Name string
	Args any
}

// reducerVariants lists the union's variants in tag order.
var reducerVariants = []struct {
	variant string
	reducer string
	args    sats.AlgebraicType
}{
	{"ClientConnected", ClientConnectedReducer, clientConnectedType},
	{"ClientDisconnected", ClientDisconnectedReducer, clientDisconnectedType},
	{"SendMessage", SendMessageReducer, sendMessageType},
	{"SetName", SetNameReducer, setNameType},
}

var reducerType = func() sats.AlgebraicType {
	variants := make([]sats.Element, len(reducerVariants))
	for i, v := range reducerVariants {
		variants[i] = sats.Variant(v.variant, v.args)
	}
	return sats.MustSumType(variants...)
}()

func (Reducer) AlgebraicType() sats.AlgebraicType { return reducerType }

func (r Reducer) SATSValue() any {
	for i, v := range reducerVariants {
		if v.variant == r.Name {
			return sats.SumValue{Tag: uint8(i), Name: v.variant, Value: r.Args}
		}
	}
	// An unknown variant name is reported by the encoder as a mismatch.
	return r
}

func (r *Reducer) SetSATSValue(v any) error {
	sv, ok := v.(sats.SumValue)
	if !ok || int(sv.Tag) >= len(reducerVariants) {
		return &sats.Error{Kind: sats.TypeMismatch, Message: fmt.Sprintf("expected reducer variant, got %T", v)}
	}
	args, err := newArgs(reducerVariants[sv.Tag].reducer)
	if err != nil {
		return err
	}
	if err := sats.Assign(args, sv.Value); err != nil {
		return err
	}
	r.Name = reducerVariants[sv.Tag].variant
	r.Args = derefArgs(args)
	return nil
}

func newArgs(reducer string) (any, error) {
	switch reducer {
	case ClientConnectedReducer:
		return &ClientConnected{}, nil
	case ClientDisconnectedReducer:
		return &ClientDisconnected{}, nil
	case SendMessageReducer:
		return &SendMessage{}, nil
	case SetNameReducer:
		return &SetName{}, nil
	default:
		return nil, fmt.Errorf("%w %q", sats.ErrUnknownReducer, reducer)
	}
}

func derefArgs(args any) any {
	switch a := args.(type) {
	case *ClientConnected:
		return *a
	case *ClientDisconnected:
		return *a
	case *SendMessage:
		return *a
	case *SetName:
		return *a
	}
	return args
}

// DecodeReducer decodes the argument buffer of the named reducer into its
// typed form.
func DecodeReducer(reducer string, data []byte) (Reducer, error) {
	args, err := newArgs(reducer)
	if err != nil {
		return Reducer{}, err
	}
	for _, v := range reducerVariants {
		if v.reducer != reducer {
			continue
		}
		if err := sats.UnmarshalAs(v.args, data, args); err != nil {
			return Reducer{}, fmt.Errorf("decoding %s args: %w", reducer, err)
		}
		return Reducer{Name: v.variant, Args: derefArgs(args)}, nil
	}
	return Reducer{}, fmt.Errorf("%w %q", sats.ErrUnknownReducer, reducer)
}
