// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package conformance holds known-answer vectors for the binary encoding.
// Other implementations can replay them to check byte-for-byte agreement.
package conformance

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Query-farm/sats-go/sats"
)

// Vector is a value, its descriptor and its exact encoding.
type Vector struct {
	Name  string
	Type  sats.AlgebraicType
	Value any
	Hex   string
}

// Failure is an encoding that must be rejected with the given error kind.
type Failure struct {
	Name string
	Type sats.AlgebraicType
	Hex  string
	Kind sats.ErrorKind
}

var (
	unitOrByte = sats.MustSumType(
		sats.Variant("a", sats.UnitType()),
		sats.Variant("b", sats.U8Type()),
	)
	msgType  = sats.MustProductType(sats.Field("msg", sats.StringType()))
	userType = sats.MustProductType(
		sats.Field("identity", sats.IdentityType()),
		sats.Field("name", sats.OptionOf(sats.StringType())),
		sats.Field("online", sats.BoolType()),
	)
	zeros31 = "00000000000000000000000000000000000000000000000000000000000000"
)

func identityValue(words sats.Uint256) sats.ProductValue {
	return sats.ProductValue{{Name: sats.IdentityField, Value: words}}
}

// Vectors returns the known-answer vectors.
func Vectors() []Vector {
	return []Vector{
		{"product_msg", msgType, sats.ProductValue{{Name: "msg", Value: "hi"}}, "020000006869"},
		{"option_none", sats.OptionOf(sats.U32Type()), sats.None(), "00"},
		{"option_some", sats.OptionOf(sats.U32Type()), sats.Some(uint32(7)), "0107000000"},
		{"empty_string", sats.StringType(), "", "00000000"},
		{"empty_bytes", sats.BytesType(), []byte{}, "00000000"},
		{"empty_array", sats.ArrayOf(sats.U32Type()), []any{}, "00000000"},
		{"string_array", sats.ArrayOf(sats.StringType()), []any{"a", "b"}, "02000000010000006101000000" + "62"},
		{"sum_unit_variant", unitOrByte, sats.SumValue{Tag: 0, Name: "a", Value: sats.ProductValue{}}, "00"},
		{"sum_payload_variant", unitOrByte, sats.SumValue{Tag: 1, Name: "b", Value: uint8(255)}, "01ff"},
		{"bool_true", sats.BoolType(), true, "01"},
		{"i16_negative", sats.I16Type(), int16(-2), "feff"},
		{"u64_one", sats.U64Type(), uint64(1), "0100000000000000"},
		{"f32", sats.F32Type(), float32(1.5), "0000c03f"},
		{"f64", sats.F64Type(), float64(1), "000000000000f03f"},
		{"i128_minus_one", sats.I128Type(), sats.Int128FromInt64(-1), "ffffffffffffffffffffffffffffffff"},
		{"u256_one", sats.U256Type(), sats.Uint256{1, 0, 0, 0}, "01" + zeros31},
		{"identity", sats.IdentityType(), identityValue(sats.Uint256{1, 0, 0, 0}), "01" + zeros31},
		{"timestamp", sats.TimestampType(),
			sats.ProductValue{{Name: sats.TimestampField, Value: int64(1_000_000)}}, "40420f0000000000"},
		{"user_row", userType, sats.ProductValue{
			{Name: "identity", Value: identityValue(sats.Uint256{1, 0, 0, 0})},
			{Name: "name", Value: sats.Some("al")},
			{Name: "online", Value: true},
		}, "01" + zeros31 + "0102000000616c" + "01"},
	}
}

// Failures returns encodings every decoder must reject.
func Failures() []Failure {
	return []Failure{
		{"sum_tag_out_of_range", unitOrByte, "02", sats.InvalidTag},
		{"truncated_u32", sats.U32Type(), "010203", sats.TruncatedInput},
		{"string_length_overflow", sats.StringType(), "050000006869", sats.InvalidLength},
		{"array_count_overflow", sats.ArrayOf(sats.U32Type()), "ffffffff", sats.InvalidLength},
		{"zero_width_array_count_overflow", sats.ArrayOf(sats.UnitType()), "01000100", sats.InvalidLength},
		{"option_bad_presence", sats.OptionOf(sats.U32Type()), "02", sats.InvalidTag},
		{"bool_bad_byte", sats.BoolType(), "02", sats.InvalidTag},
		{"trailing_bytes", sats.U8Type(), "0102", sats.InvalidLength},
		{"truncated_product", msgType, "0200000068", sats.InvalidLength},
	}
}

// Check encodes v.Value and compares the bytes, then decodes the expected
// bytes and compares the value.
func Check(v Vector) error {
	want, err := hex.DecodeString(v.Hex)
	if err != nil {
		return fmt.Errorf("%s: bad vector hex: %w", v.Name, err)
	}
	got, err := sats.Encode(v.Type, v.Value)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", v.Name, err)
	}
	if hex.EncodeToString(got) != v.Hex {
		return fmt.Errorf("%s: encoded %x, want %s", v.Name, got, v.Hex)
	}
	decoded, err := sats.Decode(v.Type, want)
	if err != nil {
		return fmt.Errorf("%s: decode: %w", v.Name, err)
	}
	if diff := cmp.Diff(v.Value, decoded, cmpopts.EquateEmpty()); diff != "" {
		return fmt.Errorf("%s: decoded value mismatch (-want +got):\n%s", v.Name, diff)
	}
	return nil
}

// CheckFailure decodes f.Hex and verifies it fails with f.Kind.
func CheckFailure(f Failure) error {
	data, err := hex.DecodeString(f.Hex)
	if err != nil {
		return fmt.Errorf("%s: bad vector hex: %w", f.Name, err)
	}
	_, err = sats.Decode(f.Type, data)
	if err == nil {
		return fmt.Errorf("%s: decode succeeded, want %s", f.Name, f.Kind)
	}
	if kind := sats.KindOf(err); kind != f.Kind {
		return fmt.Errorf("%s: got %v, want %s", f.Name, err, f.Kind)
	}
	return nil
}

// CheckAll runs every vector and failure and joins the errors.
func CheckAll() error {
	var errs []error
	for _, v := range Vectors() {
		errs = append(errs, Check(v))
	}
	for _, f := range Failures() {
		errs = append(errs, CheckFailure(f))
	}
	return errors.Join(errs...)
}
