// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Encode serializes v against t into a new buffer.
func Encode(t AlgebraicType, v any) ([]byte, error) {
	w := NewWriter(64)
	if err := Serialize(w, t, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Serialize appends the encoding of v to w. On failure nothing is appended
// and the error names the path of the offending field or variant.
func Serialize(w *Writer, t AlgebraicType, v any) error {
	start := w.Len()
	e := encoder{w: w}
	if err := e.encode(t, v); err != nil {
		w.buf = w.buf[:start]
		return atPath(err, e.path.String())
	}
	return nil
}

// Decode deserializes one value of type t that must span all of data.
func Decode(t AlgebraicType, data []byte) (any, error) {
	r := NewReader(data)
	v, err := Deserialize(r, t)
	if err != nil {
		return nil, err
	}
	if n := r.Remaining(); n > 0 {
		return nil, newError(InvalidLength, "%d trailing bytes after %s value", n, t.Kind())
	}
	return v, nil
}

// Deserialize reads one value of type t from r.
func Deserialize(r *Reader, t AlgebraicType) (any, error) {
	d := decoder{r: r}
	v, err := d.decode(t)
	if err != nil {
		return nil, atPath(err, d.path.String())
	}
	return v, nil
}

// pathStack tracks the field/variant/index path during a walk.
type pathStack []string

func (p *pathStack) push(seg string) { *p = append(*p, seg) }
func (p *pathStack) pop()            { *p = (*p)[:len(*p)-1] }

func (p pathStack) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func elementLabel(e Element, i int) string {
	if e.Name != "" {
		return e.Name
	}
	return strconv.Itoa(i)
}

func indexLabel(i int) string { return "[" + strconv.Itoa(i) + "]" }

type encoder struct {
	w    *Writer
	path pathStack
}

func (e *encoder) mismatch(format string, args ...any) error {
	return &Error{Kind: TypeMismatch, Path: e.path.String(), Message: fmt.Sprintf(format, args...)}
}

func describeValue(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// indirect follows non-nil pointers.
func indirect(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv
}

func (e *encoder) encode(t AlgebraicType, v any) error {
	// A pointer under an Option descriptor is the presence marker, not the
	// value itself.
	if vv, ok := v.(Valuer); ok && !isNilPointer(v) &&
		(t.kind != KindOption || reflect.ValueOf(v).Kind() != reflect.Pointer) {
		v = vv.SATSValue()
	}
	switch t.kind {
	case KindProduct:
		return e.encodeProduct(t, v)
	case KindSum:
		return e.encodeSum(t, v)
	case KindOption:
		return e.encodeOption(t, v)
	case KindArray:
		return e.encodeArray(t, v)
	case KindString:
		return e.encodeString(v)
	case KindBytes:
		return e.encodeBytes(v)
	case kindInvalid:
		return e.mismatch("invalid descriptor")
	default:
		return e.encodeScalar(t.kind, v)
	}
}

func (e *encoder) encodeProduct(t AlgebraicType, v any) error {
	switch pv := v.(type) {
	case nil:
		if t.IsUnit() {
			return nil
		}
		return e.mismatch("expected %s, got nil", t)
	case ProductValue:
		if len(pv) != len(t.elements) {
			return e.mismatch("product value has %d fields, descriptor has %d", len(pv), len(t.elements))
		}
		for i, f := range t.elements {
			e.path.push(elementLabel(f, i))
			if err := e.encode(f.Type, pv[i].Value); err != nil {
				return err
			}
			e.path.pop()
		}
		return nil
	case map[string]any:
		for i, f := range t.elements {
			fv, ok := pv[f.Name]
			if !ok {
				return e.mismatch("missing field %q", elementLabel(f, i))
			}
			e.path.push(elementLabel(f, i))
			if err := e.encode(f.Type, fv); err != nil {
				return err
			}
			e.path.pop()
		}
		if len(pv) != len(t.elements) {
			for k := range pv {
				if _, ok := t.IndexOf(k); !ok {
					return e.mismatch("unknown field %q", k)
				}
			}
		}
		return nil
	}

	rv := indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return e.mismatch("expected %s, got %s", t, describeValue(v))
	}
	fields := cachedStructFields(rv.Type())
	for i, f := range t.elements {
		idx, ok := fields.lookup(f.Name, i)
		if !ok {
			return e.mismatch("%s has no field for %q", rv.Type(), elementLabel(f, i))
		}
		e.path.push(elementLabel(f, i))
		if err := e.encode(f.Type, rv.FieldByIndex(idx).Interface()); err != nil {
			return err
		}
		e.path.pop()
	}
	return nil
}

func (e *encoder) encodeSum(t AlgebraicType, v any) error {
	sv, ok := v.(SumValue)
	if !ok {
		if p, isPtr := v.(*SumValue); isPtr && p != nil {
			sv, ok = *p, true
		}
	}
	if !ok {
		return e.mismatch("expected sum value for %s, got %s", t, describeValue(v))
	}
	if int(sv.Tag) >= len(t.elements) {
		return e.mismatch("tag %d out of range for %d variants", sv.Tag, len(t.elements))
	}
	variant := t.elements[sv.Tag]
	e.w.WriteU8(sv.Tag)
	e.path.push(elementLabel(variant, int(sv.Tag)))
	if err := e.encode(variant.Type, sv.Value); err != nil {
		return err
	}
	e.path.pop()
	return nil
}

func (e *encoder) encodeOption(t AlgebraicType, v any) error {
	var payload any
	switch ov := v.(type) {
	case nil:
		e.w.WriteU8(0)
		return nil
	case Option:
		if !ov.Some {
			e.w.WriteU8(0)
			return nil
		}
		payload = ov.Value
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer {
			return e.mismatch("expected option or pointer for %s, got %s", t, describeValue(v))
		}
		if rv.IsNil() {
			e.w.WriteU8(0)
			return nil
		}
		payload = rv.Elem().Interface()
	}
	e.w.WriteU8(1)
	e.path.push("some")
	if err := e.encode(*t.elem, payload); err != nil {
		return err
	}
	e.path.pop()
	return nil
}

// MaxZeroWidthElements bounds the element count of arrays whose elements
// encode to zero bytes, such as Array<()>. The length prefix of such an
// array is not backed by input bytes.
const MaxZeroWidthElements = 1 << 16

func checkArrayLen(elem AlgebraicType, n int) error {
	if n > MaxZeroWidthElements && elem.MinSize() == 0 {
		return newError(InvalidLength, "%d zero-width elements exceed %d", n, MaxZeroWidthElements)
	}
	return nil
}

func (e *encoder) encodeArray(t AlgebraicType, v any) error {
	if items, ok := v.([]any); ok {
		if err := checkArrayLen(*t.elem, len(items)); err != nil {
			return err
		}
		if err := e.w.WriteLen(len(items)); err != nil {
			return err
		}
		for i, item := range items {
			e.path.push(indexLabel(i))
			if err := e.encode(*t.elem, item); err != nil {
				return err
			}
			e.path.pop()
		}
		return nil
	}
	rv := indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return e.mismatch("expected sequence for %s, got %s", t, describeValue(v))
	}
	if err := checkArrayLen(*t.elem, rv.Len()); err != nil {
		return err
	}
	if err := e.w.WriteLen(rv.Len()); err != nil {
		return err
	}
	for i := range rv.Len() {
		e.path.push(indexLabel(i))
		if err := e.encode(*t.elem, rv.Index(i).Interface()); err != nil {
			return err
		}
		e.path.pop()
	}
	return nil
}

func (e *encoder) encodeString(v any) error {
	s, ok := v.(string)
	if !ok {
		rv := indirect(reflect.ValueOf(v))
		if rv.Kind() != reflect.String {
			return e.mismatch("expected String, got %s", describeValue(v))
		}
		s = rv.String()
	}
	if !utf8.ValidString(s) {
		return e.mismatch("string is not valid UTF-8")
	}
	return e.w.WriteString(s)
}

func (e *encoder) encodeBytes(v any) error {
	if b, ok := v.([]byte); ok {
		return e.w.WriteBytes(b)
	}
	rv := indirect(reflect.ValueOf(v))
	switch {
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return e.w.WriteBytes(rv.Bytes())
	case rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8:
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return e.w.WriteBytes(b)
	default:
		return e.mismatch("expected Bytes, got %s", describeValue(v))
	}
}

func (e *encoder) encodeScalar(k Kind, v any) error {
	// Exact Go types first; named types fall through to reflection.
	switch x := v.(type) {
	case Uint128:
		if k == KindU128 {
			e.w.WriteU128(x)
			return nil
		}
	case Int128:
		if k == KindI128 {
			e.w.WriteI128(x)
			return nil
		}
	case Uint256:
		if k == KindU256 {
			e.w.WriteU256(x)
			return nil
		}
	case Int256:
		if k == KindI256 {
			e.w.WriteI256(x)
			return nil
		}
	case float32:
		if k == KindF32 {
			e.w.WriteF32(x)
			return nil
		}
	case float64:
		if k == KindF64 {
			e.w.WriteF64(x)
			return nil
		}
	}

	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return e.mismatch("expected %s, got nil", k)
	}
	rk := rv.Kind()
	switch k {
	case KindBool:
		if rk == reflect.Bool {
			e.w.WriteBool(rv.Bool())
			return nil
		}
	case KindI8:
		if rk == reflect.Int8 {
			e.w.WriteI8(int8(rv.Int()))
			return nil
		}
	case KindU8:
		if rk == reflect.Uint8 {
			e.w.WriteU8(uint8(rv.Uint()))
			return nil
		}
	case KindI16:
		if rk == reflect.Int16 {
			e.w.WriteI16(int16(rv.Int()))
			return nil
		}
	case KindU16:
		if rk == reflect.Uint16 {
			e.w.WriteU16(uint16(rv.Uint()))
			return nil
		}
	case KindI32:
		if rk == reflect.Int32 {
			e.w.WriteI32(int32(rv.Int()))
			return nil
		}
	case KindU32:
		if rk == reflect.Uint32 {
			e.w.WriteU32(uint32(rv.Uint()))
			return nil
		}
	case KindI64:
		if rk == reflect.Int64 || rk == reflect.Int {
			e.w.WriteI64(rv.Int())
			return nil
		}
	case KindU64:
		if rk == reflect.Uint64 || rk == reflect.Uint {
			e.w.WriteU64(rv.Uint())
			return nil
		}
	case KindF32:
		if rk == reflect.Float32 {
			// rv.Float widens to float64, which quiets signaling NaNs.
			e.w.WriteF32(rv.Convert(float32Type).Interface().(float32))
			return nil
		}
	case KindF64:
		if rk == reflect.Float64 {
			e.w.WriteF64(rv.Float())
			return nil
		}
	case KindU128, KindI128, KindU256, KindI256:
		if conv, ok := convertWide(rv, k); ok {
			return e.encodeScalar(k, conv)
		}
	}
	return e.mismatch("expected %s, got %s", k, describeValue(v))
}

// convertWide converts named types whose underlying type is one of the
// wide integer types.
func convertWide(rv reflect.Value, k Kind) (any, bool) {
	var target reflect.Type
	switch k {
	case KindU128:
		target = uint128Type
	case KindI128:
		target = int128Type
	case KindU256:
		target = uint256Type
	case KindI256:
		target = int256Type
	}
	if rv.Type() == target || !rv.Type().ConvertibleTo(target) || rv.Kind() != target.Kind() {
		return nil, false
	}
	return rv.Convert(target).Interface(), true
}

var (
	uint128Type = reflect.TypeOf(Uint128{})
	int128Type  = reflect.TypeOf(Int128{})
	uint256Type = reflect.TypeOf(Uint256{})
	int256Type  = reflect.TypeOf(Int256{})
	float32Type = reflect.TypeOf(float32(0))
)

type decoder struct {
	r    *Reader
	path pathStack
}

func (d *decoder) fail(err error) error {
	return atPath(err, d.path.String())
}

func (d *decoder) decode(t AlgebraicType) (any, error) {
	switch t.kind {
	case KindProduct:
		pv := make(ProductValue, len(t.elements))
		for i, f := range t.elements {
			d.path.push(elementLabel(f, i))
			v, err := d.decode(f.Type)
			if err != nil {
				return nil, err
			}
			d.path.pop()
			pv[i] = FieldValue{Name: f.Name, Value: v}
		}
		return pv, nil

	case KindSum:
		tag, err := d.r.ReadU8()
		if err != nil {
			return nil, d.fail(err)
		}
		if int(tag) >= len(t.elements) {
			return nil, d.fail(newError(InvalidTag, "tag %d, sum has %d variants", tag, len(t.elements)))
		}
		variant := t.elements[tag]
		d.path.push(elementLabel(variant, int(tag)))
		v, err := d.decode(variant.Type)
		if err != nil {
			return nil, err
		}
		d.path.pop()
		return SumValue{Tag: tag, Name: variant.Name, Value: v}, nil

	case KindOption:
		flag, err := d.r.ReadU8()
		if err != nil {
			return nil, d.fail(err)
		}
		switch flag {
		case 0:
			return None(), nil
		case 1:
			d.path.push("some")
			v, err := d.decode(*t.elem)
			if err != nil {
				return nil, err
			}
			d.path.pop()
			return Some(v), nil
		default:
			return nil, d.fail(newError(InvalidTag, "option presence byte %d", flag))
		}

	case KindArray:
		n, err := d.r.ReadLen(t.elem.MinSize())
		if err != nil {
			return nil, d.fail(err)
		}
		if err := checkArrayLen(*t.elem, n); err != nil {
			return nil, d.fail(err)
		}
		items := make([]any, 0, min(n, d.r.Remaining()+1))
		for i := range n {
			d.path.push(indexLabel(i))
			v, err := d.decode(*t.elem)
			if err != nil {
				return nil, err
			}
			d.path.pop()
			items = append(items, v)
		}
		return items, nil

	case KindString:
		s, err := d.r.ReadString()
		if err != nil {
			return nil, d.fail(err)
		}
		return s, nil

	case KindBytes:
		b, err := d.r.ReadBytes()
		if err != nil {
			return nil, d.fail(err)
		}
		return b, nil

	default:
		v, err := d.decodeScalar(t.kind)
		if err != nil {
			return nil, d.fail(err)
		}
		return v, nil
	}
}

func (d *decoder) decodeScalar(k Kind) (any, error) {
	switch k {
	case KindBool:
		return d.r.ReadBool()
	case KindI8:
		return d.r.ReadI8()
	case KindU8:
		return d.r.ReadU8()
	case KindI16:
		return d.r.ReadI16()
	case KindU16:
		return d.r.ReadU16()
	case KindI32:
		return d.r.ReadI32()
	case KindU32:
		return d.r.ReadU32()
	case KindI64:
		return d.r.ReadI64()
	case KindU64:
		return d.r.ReadU64()
	case KindI128:
		return d.r.ReadI128()
	case KindU128:
		return d.r.ReadU128()
	case KindI256:
		return d.r.ReadI256()
	case KindU256:
		return d.r.ReadU256()
	case KindF32:
		return d.r.ReadF32()
	case KindF64:
		return d.r.ReadF64()
	default:
		return nil, newError(TypeMismatch, "cannot decode %s", k)
	}
}
