// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type reflectBase struct {
	ID uint64 `sats:"id"`
}

type reflectRow struct {
	reflectBase
	Owner     Identity
	Conn      ConnectionID
	CreatedAt Timestamp
	TTL       TimeDuration `sats:"ttl"`
	Nickname  *string
	Tags      []string
	Blob      []byte
	Digest    [4]byte
	Score     float32
	Count     int
	Balance   Uint128
	Ignored   string `sats:"-"`
	hidden    bool
}

func TestTypeForStruct(t *testing.T) {
	t.Parallel()
	got, err := TypeFor[reflectRow]()
	if err != nil {
		t.Fatal(err)
	}
	want := MustProductType(
		Field("id", U64Type()),
		Field("owner", IdentityType()),
		Field("conn", ConnectionIDType()),
		Field("created_at", TimestampType()),
		Field("ttl", TimeDurationType()),
		Field("nickname", OptionOf(StringType())),
		Field("tags", ArrayOf(StringType())),
		Field("blob", BytesType()),
		Field("digest", BytesType()),
		Field("score", F32Type()),
		Field("count", I64Type()),
		Field("balance", U128Type()),
	)
	if !got.Equal(want) {
		t.Errorf("TypeFor = %s\nwant %s", got, want)
	}

	again, err := TypeOf(&reflectRow{})
	if err != nil {
		t.Fatal(err)
	}
	if !again.Equal(want) {
		t.Errorf("TypeOf(pointer) = %s", again)
	}
}

func TestSnakeCase(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"Name":      "name",
		"RequestID": "request_id",
		"HTTPCode":  "http_code",
		"CreatedAt": "created_at",
		"A":         "a",
		"ID":        "id",
	} {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()
	nick := "neo"
	in := reflectRow{
		reflectBase: reflectBase{ID: 42},
		Owner:       Identity{1, 2, 3, 4},
		Conn:        ConnectionID{Lo: 9, Hi: 8},
		CreatedAt:   TimestampFromTime(time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)),
		TTL:         TimeDurationOf(90 * time.Second),
		Nickname:    &nick,
		Tags:        []string{"a", "b"},
		Blob:        []byte{1, 2, 3},
		Digest:      [4]byte{0xde, 0xad, 0xbe, 0xef},
		Score:       0.5,
		Count:       -3,
		Balance:     Uint128{Lo: 7},
		Ignored:     "dropped",
	}
	data, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out reflectRow
	if err := Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	in.Ignored = ""
	if diff := cmp.Diff(in, out, cmp.AllowUnexported(reflectRow{})); diff != "" {
		t.Errorf("round trip changed row:\n%s", diff)
	}

	out.Nickname = nil
	data, err = Marshal(&out)
	if err != nil {
		t.Fatal(err)
	}
	var back reflectRow
	if err := Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Nickname != nil {
		t.Errorf("nil option decoded as %q", *back.Nickname)
	}
}

func TestSpecialTypeEncoding(t *testing.T) {
	t.Parallel()
	ts := Timestamp(1)
	data, err := Marshal(ts)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{1, 0, 0, 0, 0, 0, 0, 0}) {
		t.Errorf("timestamp encoded as % x", data)
	}

	id := Identity{0x0102, 0, 0, 0}
	data, err = Marshal(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 32 || data[0] != 0x02 || data[1] != 0x01 {
		t.Errorf("identity encoded as % x", data)
	}
	var back Identity
	if err := Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != id {
		t.Errorf("identity round trip: %v", back)
	}
}

func TestIdentityHex(t *testing.T) {
	t.Parallel()
	const h = "00000000000000000000000000000000000000000000000000000000000000ff"
	id, err := IdentityFromHex(h)
	if err != nil {
		t.Fatal(err)
	}
	if id != (Identity{0xff, 0, 0, 0}) {
		t.Errorf("parsed %v", [4]uint64(id))
	}
	if id.String() != h {
		t.Errorf("String() = %s", id)
	}
	if _, err := IdentityFromHex("zz"); err == nil {
		t.Error("short hex accepted")
	}
	if !(Identity{}).IsZero() || id.IsZero() {
		t.Error("IsZero is wrong")
	}
}

func TestTimestampConversions(t *testing.T) {
	t.Parallel()
	at := time.Date(2020, 1, 2, 3, 4, 5, 6789, time.UTC)
	ts := TimestampFromTime(at)
	if ts.Micros() != at.UnixMicro() {
		t.Errorf("Micros = %d", ts.Micros())
	}
	if !ts.Time().Equal(at.Truncate(time.Microsecond)) {
		t.Errorf("Time = %v", ts.Time())
	}
	later := ts.Add(TimeDurationOf(time.Minute))
	if got := later.Sub(ts).Duration(); got != time.Minute {
		t.Errorf("Sub = %v", got)
	}
}

type recursiveNode struct {
	Value int32
	Next  *recursiveNode
}

func TestRecursiveTypeRejected(t *testing.T) {
	t.Parallel()
	_, err := TypeFor[recursiveNode]()
	if !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("got %v, want InvalidSchema", err)
	}
}

func TestUnsupportedGoType(t *testing.T) {
	t.Parallel()
	_, err := TypeFor[map[string]int]()
	if !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("got %v, want InvalidSchema", err)
	}
	_, err = TypeFor[struct{ C chan int }]()
	var serr *Error
	if !errors.As(err, &serr) || serr.Path != "c" {
		t.Errorf("got %v, want InvalidSchema at c", err)
	}
}

func TestAssignMismatchPath(t *testing.T) {
	t.Parallel()
	type target struct {
		Items []uint8 `sats:"items"`
	}
	var dst target
	err := Assign(&dst, ProductValue{{Name: "items", Value: []any{uint8(1), "two"}}})
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("got %v, want *Error", err)
	}
	if serr.Kind != TypeMismatch || serr.Path != "items[1]" {
		t.Errorf("got %s at %q", serr.Kind, serr.Path)
	}

	if err := Assign(dst, ProductValue{}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("non-pointer target: got %v", err)
	}
}

func TestUnmarshalAsDynamicSum(t *testing.T) {
	t.Parallel()
	typ := MustSumType(Variant("a", UnitType()), Variant("b", StringType()))
	data, err := Encode(typ, SumValue{Tag: 1, Name: "b", Value: "x"})
	if err != nil {
		t.Fatal(err)
	}
	var got any
	if err := UnmarshalAs(typ, data, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(SumValue{Tag: 1, Name: "b", Value: "x"}, got); diff != "" {
		t.Error(diff)
	}
}
