// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strconv"
)

// FieldValue is one named field of a decoded product.
type FieldValue struct {
	Name  string
	Value any
}

// ProductValue is a product in declared field order. Decoding fills in the
// field names from the descriptor; encoding matches fields by position.
type ProductValue []FieldValue

// Get returns the value of the named field.
func (p ProductValue) Get(name string) (any, bool) {
	for _, f := range p {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// MarshalJSON renders the product as an object with keys in field order.
// Unnamed fields are keyed by position.
func (p ProductValue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		name := f.Name
		if name == "" {
			name = strconv.Itoa(i)
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SumValue is one variant of a sum. Tag is authoritative when encoding;
// Name is filled in when decoding.
type SumValue struct {
	Tag   uint8
	Name  string
	Value any
}

// MarshalJSON renders the variant as a single-key object.
func (s SumValue) MarshalJSON() ([]byte, error) {
	name := s.Name
	if name == "" {
		name = strconv.Itoa(int(s.Tag))
	}
	return json.Marshal(map[string]any{name: s.Value})
}

// Option is a decoded optional value.
type Option struct {
	Some  bool
	Value any
}

// Some returns a present option.
func Some(v any) Option { return Option{Some: true, Value: v} }

// None returns an absent option.
func None() Option { return Option{} }

// MarshalJSON renders None as null and Some(v) as v.
func (o Option) MarshalJSON() ([]byte, error) {
	if !o.Some {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Typed is implemented by Go types that declare their own descriptor.
type Typed interface {
	AlgebraicType() AlgebraicType
}

// Valuer is implemented by Go types that encode through the dynamic value
// model, typically sums and wrapper types.
type Valuer interface {
	SATSValue() any
}

// Unvaluer is the decoding counterpart of Valuer. It is implemented on the
// pointer receiver.
type Unvaluer interface {
	SetSATSValue(v any) error
}

// Uint128 is an unsigned 128-bit integer.
type Uint128 struct {
	Lo, Hi uint64
}

// Int128 is a signed 128-bit integer in two's complement.
type Int128 struct {
	Lo, Hi uint64
}

// Uint256 is an unsigned 256-bit integer, least significant word first.
type Uint256 [4]uint64

// Int256 is a signed 256-bit integer in two's complement, least
// significant word first.
type Int256 [4]uint64

// Int128FromInt64 sign-extends v.
func Int128FromInt64(v int64) Int128 {
	hi := uint64(0)
	if v < 0 {
		hi = ^uint64(0)
	}
	return Int128{Lo: uint64(v), Hi: hi}
}

func wordsToBig(words []uint64, signed bool) *big.Int {
	n := new(big.Int)
	for i := len(words) - 1; i >= 0; i-- {
		n.Lsh(n, 64)
		n.Or(n, new(big.Int).SetUint64(words[i]))
	}
	if signed && words[len(words)-1]>>63 == 1 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(64*len(words))))
	}
	return n
}

func (v Uint128) Big() *big.Int { return wordsToBig([]uint64{v.Lo, v.Hi}, false) }
func (v Int128) Big() *big.Int  { return wordsToBig([]uint64{v.Lo, v.Hi}, true) }
func (v Uint256) Big() *big.Int { return wordsToBig(v[:], false) }
func (v Int256) Big() *big.Int  { return wordsToBig(v[:], true) }

func (v Uint128) String() string { return v.Big().String() }
func (v Int128) String() string  { return v.Big().String() }
func (v Uint256) String() string { return v.Big().String() }
func (v Int256) String() string  { return v.Big().String() }

// Wide integers render as decimal strings in JSON since they do not fit a
// JSON number.
func (v Uint128) MarshalJSON() ([]byte, error) { return json.Marshal(v.String()) }
func (v Int128) MarshalJSON() ([]byte, error)  { return json.Marshal(v.String()) }
func (v Uint256) MarshalJSON() ([]byte, error) { return json.Marshal(v.String()) }
func (v Int256) MarshalJSON() ([]byte, error)  { return json.Marshal(v.String()) }
