// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Identity is a 256-bit user identity. It encodes as
// Product{__identity__: U256}.
type Identity Uint256

// ConnectionID identifies one client connection. It encodes as
// Product{__connection_id__: U128}.
type ConnectionID Uint128

// Timestamp is a point in time in microseconds since the Unix epoch. It
// encodes as Product{__timestamp_micros_since_unix_epoch__: I64}.
type Timestamp int64

// TimeDuration is a signed span in microseconds. It encodes as
// Product{__time_duration_micros__: I64}.
type TimeDuration int64

var (
	identityType     = MustProductType(Field(IdentityField, U256Type()))
	connectionIDType = MustProductType(Field(ConnectionIDField, U128Type()))
	timestampType    = MustProductType(Field(TimestampField, I64Type()))
	timeDurationType = MustProductType(Field(TimeDurationField, I64Type()))
)

// IdentityType returns the descriptor of Identity.
func IdentityType() AlgebraicType { return identityType }

// ConnectionIDType returns the descriptor of ConnectionID.
func ConnectionIDType() AlgebraicType { return connectionIDType }

// TimestampType returns the descriptor of Timestamp.
func TimestampType() AlgebraicType { return timestampType }

// TimeDurationType returns the descriptor of TimeDuration.
func TimeDurationType() AlgebraicType { return timeDurationType }

// specialKind reports which platform special type t is, if any, by its
// single marker field.
func specialKind(t AlgebraicType) string {
	if t.kind != KindProduct || len(t.elements) != 1 {
		return ""
	}
	switch {
	case t.Equal(identityType):
		return IdentityField
	case t.Equal(connectionIDType):
		return ConnectionIDField
	case t.Equal(timestampType):
		return TimestampField
	case t.Equal(timeDurationType):
		return TimeDurationField
	}
	return ""
}

// unwrapSpecial extracts the payload of a single-field special product.
func unwrapSpecial[T any](v any, field string) (T, error) {
	var zero T
	pv, ok := v.(ProductValue)
	if !ok || len(pv) != 1 || pv[0].Name != field {
		return zero, newError(TypeMismatch, "expected product {%s}, got %s", field, describeValue(v))
	}
	inner, ok := pv[0].Value.(T)
	if !ok {
		return zero, newError(TypeMismatch, "%s holds %s, want %T", field, describeValue(pv[0].Value), zero)
	}
	return inner, nil
}

func (Identity) AlgebraicType() AlgebraicType { return identityType }

func (id Identity) SATSValue() any {
	return ProductValue{{Name: IdentityField, Value: Uint256(id)}}
}

func (id *Identity) SetSATSValue(v any) error {
	u, err := unwrapSpecial[Uint256](v, IdentityField)
	if err != nil {
		return err
	}
	*id = Identity(u)
	return nil
}

// IdentityFromBytes interprets b as a big-endian 256-bit integer.
func IdentityFromBytes(b [32]byte) Identity {
	var id Identity
	for i := range id {
		id[i] = binary.BigEndian.Uint64(b[32-8*(i+1) : 32-8*i])
	}
	return id
}

// IdentityFromHex parses the 64-character big-endian hex form.
func IdentityFromHex(s string) (Identity, error) {
	var b [32]byte
	if len(s) != 64 {
		return Identity{}, fmt.Errorf("sats: identity hex must be 64 characters, got %d", len(s))
	}
	if _, err := hex.Decode(b[:], []byte(s)); err != nil {
		return Identity{}, fmt.Errorf("sats: identity hex: %w", err)
	}
	return IdentityFromBytes(b), nil
}

// Bytes returns the big-endian byte form.
func (id Identity) Bytes() [32]byte {
	var b [32]byte
	for i, word := range id {
		binary.BigEndian.PutUint64(b[32-8*(i+1):32-8*i], word)
	}
	return b
}

// IsZero reports whether id is the zero identity.
func (id Identity) IsZero() bool { return id == Identity{} }

func (id Identity) String() string {
	b := id.Bytes()
	return hex.EncodeToString(b[:])
}

func (id Identity) MarshalJSON() ([]byte, error) { return json.Marshal(id.String()) }

func (ConnectionID) AlgebraicType() AlgebraicType { return connectionIDType }

func (c ConnectionID) SATSValue() any {
	return ProductValue{{Name: ConnectionIDField, Value: Uint128(c)}}
}

func (c *ConnectionID) SetSATSValue(v any) error {
	u, err := unwrapSpecial[Uint128](v, ConnectionIDField)
	if err != nil {
		return err
	}
	*c = ConnectionID(u)
	return nil
}

// IsZero reports whether c is the zero connection id.
func (c ConnectionID) IsZero() bool { return c == ConnectionID{} }

func (c ConnectionID) String() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], c.Hi)
	binary.BigEndian.PutUint64(b[8:16], c.Lo)
	return hex.EncodeToString(b[:])
}

func (c ConnectionID) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (Timestamp) AlgebraicType() AlgebraicType { return timestampType }

func (ts Timestamp) SATSValue() any {
	return ProductValue{{Name: TimestampField, Value: int64(ts)}}
}

func (ts *Timestamp) SetSATSValue(v any) error {
	micros, err := unwrapSpecial[int64](v, TimestampField)
	if err != nil {
		return err
	}
	*ts = Timestamp(micros)
	return nil
}

// TimestampFromTime truncates t to microseconds.
func TimestampFromTime(t time.Time) Timestamp { return Timestamp(t.UnixMicro()) }

// Micros returns the microseconds since the Unix epoch.
func (ts Timestamp) Micros() int64 { return int64(ts) }

// Time returns ts as a UTC time.Time.
func (ts Timestamp) Time() time.Time { return time.UnixMicro(int64(ts)).UTC() }

// Add returns ts shifted by d.
func (ts Timestamp) Add(d TimeDuration) Timestamp { return ts + Timestamp(d) }

// Sub returns the duration ts-u.
func (ts Timestamp) Sub(u Timestamp) TimeDuration { return TimeDuration(ts - u) }

func (ts Timestamp) String() string { return ts.Time().Format(time.RFC3339Nano) }

func (ts Timestamp) MarshalJSON() ([]byte, error) { return json.Marshal(ts.String()) }

func (TimeDuration) AlgebraicType() AlgebraicType { return timeDurationType }

func (d TimeDuration) SATSValue() any {
	return ProductValue{{Name: TimeDurationField, Value: int64(d)}}
}

func (d *TimeDuration) SetSATSValue(v any) error {
	micros, err := unwrapSpecial[int64](v, TimeDurationField)
	if err != nil {
		return err
	}
	*d = TimeDuration(micros)
	return nil
}

// TimeDurationOf truncates d to microseconds.
func TimeDurationOf(d time.Duration) TimeDuration { return TimeDuration(d.Microseconds()) }

// Micros returns the duration in microseconds.
func (d TimeDuration) Micros() int64 { return int64(d) }

// Duration converts d to a time.Duration.
func (d TimeDuration) Duration() time.Duration { return time.Duration(d) * time.Microsecond }

func (d TimeDuration) String() string { return d.Duration().String() }

func (d TimeDuration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }
