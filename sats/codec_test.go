// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestEncodeMessageProduct(t *testing.T) {
	t.Parallel()
	typ := MustProductType(Field("msg", StringType()))
	got, err := Encode(typ, ProductValue{{Name: "msg", Value: "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x02, 0x00, 0x00, 0x00, 'h', 'i'}
	if !bytes.Equal(got, want) {
		t.Fatalf("encoded % x, want % x", got, want)
	}

	decoded, err := Decode(typ, want)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ProductValue{{Name: "msg", Value: "hi"}}, decoded); diff != "" {
		t.Errorf("decoded value changed:\n%s", diff)
	}
}

func TestEncodeOption(t *testing.T) {
	t.Parallel()
	typ := OptionOf(U32Type())
	tests := []struct {
		name  string
		value any
		want  []byte
	}{
		{"none", None(), []byte{0x00}},
		{"nil", nil, []byte{0x00}},
		{"some", Some(uint32(7)), []byte{0x01, 0x07, 0x00, 0x00, 0x00}},
		{"pointer", func() *uint32 { v := uint32(7); return &v }(), []byte{0x01, 0x07, 0x00, 0x00, 0x00}},
		{"nil pointer", (*uint32)(nil), []byte{0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Encode(typ, tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("encoded % x, want % x", got, tt.want)
			}
		})
	}
}

type roundTripCase struct {
	name  string
	typ   AlgebraicType
	value any
}

func roundTripCases() []roundTripCase {
	point := MustProductType(Field("x", I32Type()), Field("y", I32Type()))
	shape := MustSumType(
		Variant("circle", F64Type()),
		Variant("rect", point),
		Variant("empty", UnitType()),
	)
	return []roundTripCase{
		{"bool", BoolType(), true},
		{"i8", I8Type(), int8(-128)},
		{"u8", U8Type(), uint8(255)},
		{"i16", I16Type(), int16(math.MinInt16)},
		{"u16", U16Type(), uint16(math.MaxUint16)},
		{"i32", I32Type(), int32(-123456)},
		{"u32", U32Type(), uint32(math.MaxUint32)},
		{"i64", I64Type(), int64(math.MinInt64)},
		{"u64", U64Type(), uint64(math.MaxUint64)},
		{"i128", I128Type(), Int128FromInt64(-42)},
		{"u128", U128Type(), Uint128{Lo: 1, Hi: 2}},
		{"i256", I256Type(), Int256{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}},
		{"u256", U256Type(), Uint256{1, 2, 3, 4}},
		{"f32", F32Type(), float32(3.25)},
		{"f64", F64Type(), math.Inf(-1)},
		{"string", StringType(), "héllo"},
		{"bytes", BytesType(), []byte{0, 1, 2, 255}},
		{"array", ArrayOf(U16Type()), []any{uint16(1), uint16(2), uint16(3)}},
		{"nested array", ArrayOf(ArrayOf(StringType())), []any{[]any{"a"}, []any{}, []any{"b", "c"}}},
		{"option none", OptionOf(StringType()), None()},
		{"option some", OptionOf(StringType()), Some("x")},
		{"option option", OptionOf(OptionOf(U8Type())), Some(None())},
		{"unit", UnitType(), ProductValue{}},
		{"product", point, ProductValue{{Name: "x", Value: int32(-1)}, {Name: "y", Value: int32(7)}}},
		{"sum payload", shape, SumValue{Tag: 0, Name: "circle", Value: 1.5}},
		{"sum product", shape, SumValue{Tag: 1, Name: "rect", Value: ProductValue{{Name: "x", Value: int32(1)}, {Name: "y", Value: int32(2)}}}},
		{"sum unit", shape, SumValue{Tag: 2, Name: "empty", Value: ProductValue{}}},
		{"array of sums", ArrayOf(shape), []any{
			SumValue{Tag: 2, Name: "empty", Value: ProductValue{}},
			SumValue{Tag: 0, Name: "circle", Value: 2.0},
		}},
		{"special", TimestampType(), ProductValue{{Name: TimestampField, Value: int64(1_700_000_000_000_000)}}},
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	for _, tt := range roundTripCases() {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := Encode(tt.typ, tt.value)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Decode(tt.typ, data)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.value, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip changed value:\n%s", diff)
			}
		})
	}
}

func TestRoundTripFloatBits(t *testing.T) {
	t.Parallel()
	nan := math.Float64frombits(0x7ff8000000000001)
	data, err := Encode(F64Type(), nan)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(F64Type(), data)
	if err != nil {
		t.Fatal(err)
	}
	if bits := math.Float64bits(got.(float64)); bits != 0x7ff8000000000001 {
		t.Errorf("NaN payload changed: %x", bits)
	}

	negZero := float32(math.Copysign(0, -1))
	data, err = Encode(F32Type(), negZero)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{0, 0, 0, 0x80}) {
		t.Errorf("negative zero encoded as % x", data)
	}
}

type celsius float32

func TestSignalingNaNFloat32(t *testing.T) {
	t.Parallel()
	const bits = 0x7f800001
	want := []byte{0x01, 0x00, 0x80, 0x7f}
	for _, v := range []any{math.Float32frombits(bits), celsius(math.Float32frombits(bits))} {
		data, err := Encode(F32Type(), v)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, want) {
			t.Errorf("%T encoded as % x, want % x", v, data, want)
		}
	}

	got, err := Decode(F32Type(), want)
	if err != nil {
		t.Fatal(err)
	}
	if b := math.Float32bits(got.(float32)); b != bits {
		t.Errorf("decoded bits %x", b)
	}
	var c celsius
	if err := Unmarshal(want, &c); err != nil {
		t.Fatal(err)
	}
	if b := math.Float32bits(float32(c)); b != bits {
		t.Errorf("unmarshaled bits %x", b)
	}
}

func TestTruncatedInputNeverDecodes(t *testing.T) {
	t.Parallel()
	for _, tt := range roundTripCases() {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := Encode(tt.typ, tt.value)
			if err != nil {
				t.Fatal(err)
			}
			for n := range len(data) {
				_, err := Decode(tt.typ, data[:n])
				if err == nil {
					t.Fatalf("decoding %d of %d bytes succeeded", n, len(data))
				}
				if kind := KindOf(err); kind != TruncatedInput && kind != InvalidLength {
					t.Fatalf("decoding %d of %d bytes: got %v", n, len(data), err)
				}
			}
		})
	}
}

func TestSumTagBoundary(t *testing.T) {
	t.Parallel()
	typ := MustSumType(Variant("a", UnitType()), Variant("b", U8Type()))
	for _, tag := range []byte{2, 3, 255} {
		_, err := Decode(typ, []byte{tag, 0})
		if !errors.Is(err, ErrInvalidTag) {
			t.Errorf("tag %d: got %v, want InvalidTag", tag, err)
		}
	}
	if _, err := Decode(typ, []byte{1, 9}); err != nil {
		t.Errorf("last valid tag: %v", err)
	}
}

func TestFieldOrderChangesLayout(t *testing.T) {
	t.Parallel()
	ab := MustProductType(Field("a", U8Type()), Field("b", U16Type()))
	ba := MustProductType(Field("b", U16Type()), Field("a", U8Type()))
	value := map[string]any{"a": uint8(1), "b": uint16(2)}

	first, err := Encode(ab, value)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Encode(ba, value)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(first, second) {
		t.Fatalf("swapping fields kept layout % x", first)
	}
	if !bytes.Equal(first, []byte{1, 2, 0}) || !bytes.Equal(second, []byte{2, 0, 1}) {
		t.Errorf("got % x and % x", first, second)
	}
}

func TestEmptyContainers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		typ   AlgebraicType
		value any
	}{
		{"string", StringType(), ""},
		{"bytes", BytesType(), []byte{}},
		{"nil bytes", BytesType(), []byte(nil)},
		{"array", ArrayOf(StringType()), []any{}},
		{"typed slice", ArrayOf(StringType()), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Encode(tt.typ, tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, []byte{0, 0, 0, 0}) {
				t.Errorf("encoded % x, want 4 zero bytes", got)
			}
		})
	}
}

func TestEncodeMismatchPath(t *testing.T) {
	t.Parallel()
	row := MustProductType(Field("name", OptionOf(StringType())))
	typ := MustProductType(Field("rows", ArrayOf(row)))
	value := ProductValue{{Name: "rows", Value: []any{
		ProductValue{{Name: "name", Value: Some("ok")}},
		ProductValue{{Name: "name", Value: Some(3)}},
	}}}

	w := NewWriter(0)
	w.WriteU8(0xaa)
	err := Serialize(w, typ, value)
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("got %v, want *Error", err)
	}
	if serr.Kind != TypeMismatch || serr.Path != "rows[1].name.some" {
		t.Errorf("got kind %s path %q", serr.Kind, serr.Path)
	}
	if !bytes.Equal(w.Bytes(), []byte{0xaa}) {
		t.Errorf("failed Serialize left % x in the writer", w.Bytes())
	}
}

func TestEncodeMismatches(t *testing.T) {
	t.Parallel()
	point := MustProductType(Field("x", I32Type()))
	tests := []struct {
		name  string
		typ   AlgebraicType
		value any
		path  string
	}{
		{"scalar width", U32Type(), uint16(1), ""},
		{"signedness", I64Type(), uint64(1), ""},
		{"missing map field", point, map[string]any{}, ""},
		{"unknown map field", point, map[string]any{"x": int32(1), "z": 2}, ""},
		{"product arity", point, ProductValue{}, ""},
		{"field type", point, ProductValue{{Name: "x", Value: "1"}}, "x"},
		{"sum needs SumValue", MustSumType(Variant("a", UnitType())), 0, ""},
		{"sum tag", MustSumType(Variant("a", UnitType())), SumValue{Tag: 1}, ""},
		{"invalid utf8", StringType(), string([]byte{0xff}), ""},
		{"nil scalar", BoolType(), nil, ""},
		{"array needs sequence", ArrayOf(U8Type()), "abc", ""},
		{"option needs option", OptionOf(U8Type()), uint8(1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Encode(tt.typ, tt.value)
			var serr *Error
			if !errors.As(err, &serr) || serr.Kind != TypeMismatch {
				t.Fatalf("got %v, want TypeMismatch", err)
			}
			if serr.Path != tt.path {
				t.Errorf("path %q, want %q", serr.Path, tt.path)
			}
		})
	}
}

func TestEncodeStructsAndMaps(t *testing.T) {
	t.Parallel()
	typ := MustProductType(Field("sender", StringType()), Field("count", U32Type()))
	type row struct {
		Count  uint32 `sats:"count"`
		Sender string `sats:"sender"`
		Extra  int    `sats:"-"`
	}
	want := mustHex(t, "0100000061"+"05000000")

	fromStruct, err := Encode(typ, row{Sender: "a", Count: 5, Extra: 9})
	if err != nil {
		t.Fatal(err)
	}
	fromPointer, err := Encode(typ, &row{Sender: "a", Count: 5})
	if err != nil {
		t.Fatal(err)
	}
	fromMap, err := Encode(typ, map[string]any{"sender": "a", "count": uint32(5)})
	if err != nil {
		t.Fatal(err)
	}
	for name, got := range map[string][]byte{"struct": fromStruct, "pointer": fromPointer, "map": fromMap} {
		if !bytes.Equal(got, want) {
			t.Errorf("%s: encoded % x, want % x", name, got, want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()
	pair := MustProductType(Field("a", U8Type()), Field("b", BoolType()))
	tests := []struct {
		name string
		typ  AlgebraicType
		hex  string
		kind ErrorKind
		path string
	}{
		{"bool byte", pair, "0105", InvalidTag, "b"},
		{"truncated field", pair, "01", TruncatedInput, "b"},
		{"option presence", OptionOf(U8Type()), "0201", InvalidTag, ""},
		{"string overrun", StringType(), "ffffff7f", InvalidLength, ""},
		{"array overrun", ArrayOf(U64Type()), "020000000100000000000000", InvalidLength, ""},
		{"trailing", U8Type(), "0000", InvalidLength, ""},
		{"nested", ArrayOf(pair), "01000000" + "0102", InvalidTag, "[0].b"},
		{"empty input", U8Type(), "", TruncatedInput, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.typ, mustHex(t, tt.hex))
			var serr *Error
			if !errors.As(err, &serr) {
				t.Fatalf("got %v, want *Error", err)
			}
			if serr.Kind != tt.kind || serr.Path != tt.path {
				t.Errorf("got %s at %q, want %s at %q", serr.Kind, serr.Path, tt.kind, tt.path)
			}
			if !errors.Is(err, ErrSats) {
				t.Errorf("error does not match ErrSats")
			}
		})
	}
}

func TestDeserializeAdvancesCursor(t *testing.T) {
	t.Parallel()
	w := NewWriter(16)
	for _, s := range []string{"a", "bc"} {
		if err := Serialize(w, StringType(), s); err != nil {
			t.Fatal(err)
		}
	}
	r := NewReader(w.Bytes())
	var got []string
	for r.Remaining() > 0 {
		v, err := Deserialize(r, StringType())
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v.(string))
	}
	if diff := cmp.Diff([]string{"a", "bc"}, got); diff != "" {
		t.Error(diff)
	}
	if r.Offset() != len(w.Bytes()) {
		t.Errorf("offset %d, want %d", r.Offset(), len(w.Bytes()))
	}
}

func TestErrorString(t *testing.T) {
	t.Parallel()
	err := &Error{Kind: TypeMismatch, Path: "args.msg", Message: "expected String, got int"}
	if got := err.Error(); got != "TypeMismatch at args.msg: expected String, got int" {
		t.Errorf("got %q", got)
	}
	if !strings.HasPrefix(newError(InvalidTag, "x").Error(), "InvalidTag: ") {
		t.Errorf("unexpected format %q", newError(InvalidTag, "x").Error())
	}
}

func TestZeroWidthArrayLimit(t *testing.T) {
	t.Parallel()
	units := ArrayOf(UnitType())

	data := []byte{0x00, 0x00, 0x01, 0x00}
	got, err := Decode(units, data)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(got.([]any)); n != MaxZeroWidthElements {
		t.Errorf("decoded %d elements", n)
	}

	for _, count := range [][]byte{{0x01, 0x00, 0x01, 0x00}, {0xff, 0xff, 0xff, 0xff}} {
		if _, err := Decode(units, count); KindOf(err) != InvalidLength {
			t.Errorf("count % x: got %v, want InvalidLength", count, err)
		}
	}

	w := NewWriter(8)
	w.WriteU8(9)
	err = Serialize(w, units, make([]struct{}, MaxZeroWidthElements+1))
	if KindOf(err) != InvalidLength {
		t.Errorf("encode over the limit: got %v", err)
	}
	if w.Len() != 1 {
		t.Errorf("failed encode left %d bytes", w.Len())
	}
}
