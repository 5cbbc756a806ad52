// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var (
	timestampArrowType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	enumArrowType      = &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint8, ValueType: arrow.BinaryTypes.String}
)

// ArrowType maps a descriptor to an Arrow data type. The boolean reports
// whether the column is nullable, which is the case for Option.
//
// Nested options collapse into a single nullable level.
func ArrowType(t AlgebraicType) (arrow.DataType, bool, error) {
	nullable := false
	for t.kind == KindOption {
		nullable = true
		t = *t.elem
	}
	dt, err := arrowType(t)
	return dt, nullable, err
}

func arrowType(t AlgebraicType) (arrow.DataType, error) {
	switch specialKind(t) {
	case TimestampField:
		return timestampArrowType, nil
	case TimeDurationField:
		return arrow.FixedWidthTypes.Duration_us, nil
	case IdentityField:
		return &arrow.FixedSizeBinaryType{ByteWidth: 32}, nil
	case ConnectionIDField:
		return &arrow.FixedSizeBinaryType{ByteWidth: 16}, nil
	}

	switch t.kind {
	case KindBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case KindI8:
		return arrow.PrimitiveTypes.Int8, nil
	case KindU8:
		return arrow.PrimitiveTypes.Uint8, nil
	case KindI16:
		return arrow.PrimitiveTypes.Int16, nil
	case KindU16:
		return arrow.PrimitiveTypes.Uint16, nil
	case KindI32:
		return arrow.PrimitiveTypes.Int32, nil
	case KindU32:
		return arrow.PrimitiveTypes.Uint32, nil
	case KindI64:
		return arrow.PrimitiveTypes.Int64, nil
	case KindU64:
		return arrow.PrimitiveTypes.Uint64, nil
	case KindF32:
		return arrow.PrimitiveTypes.Float32, nil
	case KindF64:
		return arrow.PrimitiveTypes.Float64, nil
	case KindI128, KindU128:
		return &arrow.FixedSizeBinaryType{ByteWidth: 16}, nil
	case KindI256, KindU256:
		return &arrow.FixedSizeBinaryType{ByteWidth: 32}, nil
	case KindString:
		return arrow.BinaryTypes.String, nil
	case KindBytes:
		return arrow.BinaryTypes.Binary, nil
	case KindArray:
		elem, _, err := ArrowType(*t.elem)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	case KindProduct:
		fields, err := arrowFields(t.elements, false)
		if err != nil {
			return nil, err
		}
		return arrow.StructOf(fields...), nil
	case KindSum:
		if t.IsEnum() {
			return enumArrowType, nil
		}
		variants, err := arrowFields(t.elements, true)
		if err != nil {
			return nil, err
		}
		fields := append([]arrow.Field{{Name: "tag", Type: arrow.PrimitiveTypes.Uint8}}, variants...)
		return arrow.StructOf(fields...), nil
	default:
		return nil, newError(TypeMismatch, "no Arrow type for %s", t.kind)
	}
}

func arrowFields(elems []Element, forceNullable bool) ([]arrow.Field, error) {
	fields := make([]arrow.Field, len(elems))
	for i, e := range elems {
		dt, nullable, err := ArrowType(e.Type)
		if err != nil {
			return nil, prefixPath(err, elementLabel(e, i))
		}
		fields[i] = arrow.Field{Name: elementLabel(e, i), Type: dt, Nullable: nullable || forceNullable}
	}
	return fields, nil
}

// ArrowSchema maps a product descriptor to an Arrow schema with one column
// per field.
func ArrowSchema(rowType AlgebraicType, md map[string]string) (*arrow.Schema, error) {
	if rowType.kind != KindProduct {
		return nil, newError(TypeMismatch, "row type must be a product, got %s", rowType.kind)
	}
	fields, err := arrowFields(rowType.elements, false)
	if err != nil {
		return nil, err
	}
	if md == nil {
		md = map[string]string{}
	}
	md[MetaType] = rowType.String()
	meta := arrow.MetadataFrom(md)
	return arrow.NewSchema(fields, &meta), nil
}

// RowsToRecord builds an Arrow record from decoded rows. The caller must
// release the returned record.
func RowsToRecord(mem memory.Allocator, rowType AlgebraicType, rows []ProductValue) (arrow.Record, error) {
	schema, err := ArrowSchema(rowType, nil)
	if err != nil {
		return nil, err
	}
	return buildRecord(mem, schema, rowType, rows)
}

// TableRecord builds an Arrow record for rows of the named table, with the
// table name and primary key recorded in the schema metadata.
func (r *Registry) TableRecord(mem memory.Allocator, table string, rows []ProductValue) (arrow.Record, error) {
	def, err := r.Table(table)
	if err != nil {
		return nil, err
	}
	md := map[string]string{
		MetaModule: r.module,
		MetaTable:  def.Name,
	}
	if def.PrimaryKey != "" {
		md[MetaPrimaryKey] = def.PrimaryKey
	}
	schema, err := ArrowSchema(def.RowType, md)
	if err != nil {
		return nil, err
	}
	return buildRecord(mem, schema, def.RowType, rows)
}

func buildRecord(mem memory.Allocator, schema *arrow.Schema, rowType AlgebraicType, rows []ProductValue) (arrow.Record, error) {
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()
	for n, row := range rows {
		if len(row) != len(rowType.elements) {
			return nil, &Error{Kind: TypeMismatch, Path: indexLabel(n),
				Message: fmt.Sprintf("row has %d fields, descriptor has %d", len(row), len(rowType.elements))}
		}
		for i, f := range rowType.elements {
			if err := appendArrow(rb.Field(i), f.Type, row[i].Value); err != nil {
				return nil, prefixPath(prefixPath(err, elementLabel(f, i)), indexLabel(n))
			}
		}
	}
	return rb.NewRecord(), nil
}

func wrongValue(t AlgebraicType, v any) error {
	return newError(TypeMismatch, "expected %s, got %s", t, describeValue(v))
}

func appendArrow(b array.Builder, t AlgebraicType, v any) error {
	for t.kind == KindOption {
		o, ok := v.(Option)
		if !ok {
			return wrongValue(t, v)
		}
		if !o.Some {
			b.AppendNull()
			return nil
		}
		t, v = *t.elem, o.Value
	}

	if special := specialKind(t); special != "" {
		return appendSpecial(b, t, special, v)
	}

	var ok bool
	switch t.kind {
	case KindProduct:
		pv, isProduct := v.(ProductValue)
		if !isProduct || len(pv) != len(t.elements) {
			return wrongValue(t, v)
		}
		sb := b.(*array.StructBuilder)
		sb.Append(true)
		for i, f := range t.elements {
			if err := appendArrow(sb.FieldBuilder(i), f.Type, pv[i].Value); err != nil {
				return prefixPath(err, elementLabel(f, i))
			}
		}
		return nil

	case KindSum:
		sv, isSum := v.(SumValue)
		if !isSum || int(sv.Tag) >= len(t.elements) {
			return wrongValue(t, v)
		}
		if t.IsEnum() {
			return b.(*array.BinaryDictionaryBuilder).AppendString(elementLabel(t.elements[sv.Tag], int(sv.Tag)))
		}
		sb := b.(*array.StructBuilder)
		sb.Append(true)
		sb.FieldBuilder(0).(*array.Uint8Builder).Append(sv.Tag)
		for i, variant := range t.elements {
			fb := sb.FieldBuilder(i + 1)
			if i != int(sv.Tag) {
				fb.AppendNull()
				continue
			}
			if err := appendArrow(fb, variant.Type, sv.Value); err != nil {
				return prefixPath(err, elementLabel(variant, i))
			}
		}
		return nil

	case KindArray:
		items, isList := v.([]any)
		if !isList {
			return wrongValue(t, v)
		}
		lb := b.(*array.ListBuilder)
		lb.Append(true)
		vb := lb.ValueBuilder()
		for i, item := range items {
			if err := appendArrow(vb, *t.elem, item); err != nil {
				return prefixPath(err, indexLabel(i))
			}
		}
		return nil

	case KindBool:
		var x bool
		if x, ok = v.(bool); ok {
			b.(*array.BooleanBuilder).Append(x)
		}
	case KindI8:
		var x int8
		if x, ok = v.(int8); ok {
			b.(*array.Int8Builder).Append(x)
		}
	case KindU8:
		var x uint8
		if x, ok = v.(uint8); ok {
			b.(*array.Uint8Builder).Append(x)
		}
	case KindI16:
		var x int16
		if x, ok = v.(int16); ok {
			b.(*array.Int16Builder).Append(x)
		}
	case KindU16:
		var x uint16
		if x, ok = v.(uint16); ok {
			b.(*array.Uint16Builder).Append(x)
		}
	case KindI32:
		var x int32
		if x, ok = v.(int32); ok {
			b.(*array.Int32Builder).Append(x)
		}
	case KindU32:
		var x uint32
		if x, ok = v.(uint32); ok {
			b.(*array.Uint32Builder).Append(x)
		}
	case KindI64:
		var x int64
		if x, ok = v.(int64); ok {
			b.(*array.Int64Builder).Append(x)
		}
	case KindU64:
		var x uint64
		if x, ok = v.(uint64); ok {
			b.(*array.Uint64Builder).Append(x)
		}
	case KindF32:
		var x float32
		if x, ok = v.(float32); ok {
			b.(*array.Float32Builder).Append(x)
		}
	case KindF64:
		var x float64
		if x, ok = v.(float64); ok {
			b.(*array.Float64Builder).Append(x)
		}
	case KindU128:
		var x Uint128
		if x, ok = v.(Uint128); ok {
			b.(*array.FixedSizeBinaryBuilder).Append(wideBytes(x.Lo, x.Hi))
		}
	case KindI128:
		var x Int128
		if x, ok = v.(Int128); ok {
			b.(*array.FixedSizeBinaryBuilder).Append(wideBytes(x.Lo, x.Hi))
		}
	case KindU256:
		var x Uint256
		if x, ok = v.(Uint256); ok {
			b.(*array.FixedSizeBinaryBuilder).Append(wideBytes(x[:]...))
		}
	case KindI256:
		var x Int256
		if x, ok = v.(Int256); ok {
			b.(*array.FixedSizeBinaryBuilder).Append(wideBytes(x[:]...))
		}
	case KindString:
		var x string
		if x, ok = v.(string); ok {
			b.(*array.StringBuilder).Append(x)
		}
	case KindBytes:
		var x []byte
		if x, ok = v.([]byte); ok {
			b.(*array.BinaryBuilder).Append(x)
		}
	}
	if !ok {
		return wrongValue(t, v)
	}
	return nil
}

func appendSpecial(b array.Builder, t AlgebraicType, special string, v any) error {
	switch special {
	case TimestampField:
		var ts Timestamp
		if err := ts.SetSATSValue(v); err != nil {
			return err
		}
		b.(*array.TimestampBuilder).Append(arrow.Timestamp(ts))
	case TimeDurationField:
		var d TimeDuration
		if err := d.SetSATSValue(v); err != nil {
			return err
		}
		b.(*array.DurationBuilder).Append(arrow.Duration(d))
	case IdentityField:
		var id Identity
		if err := id.SetSATSValue(v); err != nil {
			return err
		}
		raw := id.Bytes()
		b.(*array.FixedSizeBinaryBuilder).Append(raw[:])
	case ConnectionIDField:
		var c ConnectionID
		if err := c.SetSATSValue(v); err != nil {
			return err
		}
		b.(*array.FixedSizeBinaryBuilder).Append(wideBytes(c.Lo, c.Hi))
	default:
		return wrongValue(t, v)
	}
	return nil
}

// wideBytes lays out words little-endian, least significant word first, as
// on the wire.
func wideBytes(words ...uint64) []byte {
	out := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(out[8*i:], w)
	}
	return out
}

// WriteIPC writes rec as a single-batch Arrow IPC stream.
func WriteIPC(w io.Writer, rec arrow.Record, opts ...ipc.Option) error {
	opts = append([]ipc.Option{ipc.WithSchema(rec.Schema())}, opts...)
	writer := ipc.NewWriter(w, opts...)
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing IPC writer: %w", err)
	}
	return nil
}

// ReadIPC reads every record of an Arrow IPC stream. The caller must
// release the returned records.
func ReadIPC(r io.Reader, mem memory.Allocator) ([]arrow.Record, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("reading IPC stream: %w", err)
	}
	defer reader.Release()
	var out []arrow.Record
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		out = append(out, rec)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		for _, rec := range out {
			rec.Release()
		}
		return nil, fmt.Errorf("reading IPC batch: %w", err)
	}
	return out, nil
}
