// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

var (
	typedType    = reflect.TypeOf((*Typed)(nil)).Elem()
	unvaluerType = reflect.TypeOf((*Unvaluer)(nil)).Elem()
)

// typeCache memoizes descriptors derived from Go types.
var typeCache sync.Map // reflect.Type -> AlgebraicType

// structCache memoizes the field layout of bound structs.
var structCache sync.Map // reflect.Type -> *structFields

// TypeOf derives the descriptor of v's Go type. A pointer at the top level
// describes the value it points to.
func TypeOf(v any) (AlgebraicType, error) {
	if t, ok := v.(Typed); ok && !isNilPointer(v) {
		return t.AlgebraicType(), nil
	}
	rt := reflect.TypeOf(v)
	if rt == nil {
		return UnitType(), nil
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return TypeOfReflect(rt)
}

// TypeFor derives the descriptor of T.
func TypeFor[T any]() (AlgebraicType, error) {
	return TypeOfReflect(reflect.TypeFor[T]())
}

// TypeOfReflect derives the descriptor of a Go type. Struct fields follow
// `sats:"name"` tags; untagged exported fields use their snake_case name
// and `sats:"-"` skips a field.
func TypeOfReflect(rt reflect.Type) (AlgebraicType, error) {
	if cached, ok := typeCache.Load(rt); ok {
		return cached.(AlgebraicType), nil
	}
	t, err := deriveType(rt, map[reflect.Type]bool{})
	if err != nil {
		return AlgebraicType{}, err
	}
	typeCache.Store(rt, t)
	return t, nil
}

func deriveType(rt reflect.Type, visiting map[reflect.Type]bool) (AlgebraicType, error) {
	if rt.Kind() != reflect.Pointer && rt.Implements(typedType) {
		return reflect.Zero(rt).Interface().(Typed).AlgebraicType(), nil
	}
	if reflect.PointerTo(rt).Implements(typedType) {
		return reflect.New(rt).Interface().(Typed).AlgebraicType(), nil
	}

	switch rt {
	case uint128Type:
		return U128Type(), nil
	case int128Type:
		return I128Type(), nil
	case uint256Type:
		return U256Type(), nil
	case int256Type:
		return I256Type(), nil
	}

	switch rt.Kind() {
	case reflect.Bool:
		return BoolType(), nil
	case reflect.Int8:
		return I8Type(), nil
	case reflect.Uint8:
		return U8Type(), nil
	case reflect.Int16:
		return I16Type(), nil
	case reflect.Uint16:
		return U16Type(), nil
	case reflect.Int32:
		return I32Type(), nil
	case reflect.Uint32:
		return U32Type(), nil
	case reflect.Int64, reflect.Int:
		return I64Type(), nil
	case reflect.Uint64, reflect.Uint:
		return U64Type(), nil
	case reflect.Float32:
		return F32Type(), nil
	case reflect.Float64:
		return F64Type(), nil
	case reflect.String:
		return StringType(), nil
	case reflect.Pointer:
		if visiting[rt.Elem()] {
			return AlgebraicType{}, newError(InvalidSchema, "recursive type %s", rt.Elem())
		}
		elem, err := deriveType(rt.Elem(), visiting)
		if err != nil {
			return AlgebraicType{}, err
		}
		return OptionOf(elem), nil
	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return BytesType(), nil
		}
		elem, err := deriveType(rt.Elem(), visiting)
		if err != nil {
			return AlgebraicType{}, err
		}
		return ArrayOf(elem), nil
	case reflect.Struct:
		if visiting[rt] {
			return AlgebraicType{}, newError(InvalidSchema, "recursive type %s", rt)
		}
		visiting[rt] = true
		defer delete(visiting, rt)
		layout := cachedStructFields(rt)
		fields := make([]Element, 0, len(layout.list))
		for _, f := range layout.list {
			ft, err := deriveType(f.typ, visiting)
			if err != nil {
				return AlgebraicType{}, prefixPath(err, f.name)
			}
			fields = append(fields, Field(f.name, ft))
		}
		return NewProductType(fields...)
	default:
		return AlgebraicType{}, newError(InvalidSchema, "unsupported Go type %s", rt)
	}
}

type structField struct {
	name  string
	index []int
	typ   reflect.Type
}

type structFields struct {
	list   []structField
	byName map[string]int
}

// lookup finds the struct field bound to a descriptor element, by name or,
// for unnamed elements, by position.
func (s *structFields) lookup(name string, pos int) ([]int, bool) {
	if name == "" {
		if pos < len(s.list) {
			return s.list[pos].index, true
		}
		return nil, false
	}
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.list[i].index, true
}

func cachedStructFields(rt reflect.Type) *structFields {
	if cached, ok := structCache.Load(rt); ok {
		return cached.(*structFields)
	}
	s := &structFields{byName: map[string]int{}}
	collectFields(rt, nil, s)
	actual, _ := structCache.LoadOrStore(rt, s)
	return actual.(*structFields)
}

func collectFields(rt reflect.Type, prefix []int, s *structFields) {
	for i := range rt.NumField() {
		f := rt.Field(i)
		tag := f.Tag.Get("sats")
		if tag == "-" {
			continue
		}
		index := append(append([]int(nil), prefix...), i)
		if f.Anonymous && tag == "" && f.Type.Kind() == reflect.Struct {
			collectFields(f.Type, index, s)
			continue
		}
		if !f.IsExported() {
			continue
		}
		name := tag
		if name == "" {
			name = snakeCase(f.Name)
		}
		if _, dup := s.byName[name]; dup {
			continue
		}
		s.byName[name] = len(s.list)
		s.list = append(s.list, structField{name: name, index: index, typ: f.Type})
	}
}

// snakeCase converts a Go identifier such as "RequestID" to "request_id".
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Marshal encodes v against the descriptor derived from its Go type.
func Marshal(v any) ([]byte, error) {
	t, err := TypeOf(v)
	if err != nil {
		return nil, err
	}
	return Encode(t, v)
}

// Unmarshal decodes data into the value pointed to by target, using the
// descriptor derived from the target's Go type.
func Unmarshal(data []byte, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return newError(TypeMismatch, "unmarshal target must be a non-nil pointer, got %s", describeValue(target))
	}
	t, err := TypeOfReflect(rv.Elem().Type())
	if err != nil {
		return err
	}
	return UnmarshalAs(t, data, target)
}

// UnmarshalAs decodes data with descriptor t into the value pointed to by
// target.
func UnmarshalAs(t AlgebraicType, data []byte, target any) error {
	v, err := Decode(t, data)
	if err != nil {
		return err
	}
	return Assign(target, v)
}

// Assign stores a decoded dynamic value into the Go value pointed to by
// target.
func Assign(target any, v any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return newError(TypeMismatch, "assign target must be a non-nil pointer, got %s", describeValue(target))
	}
	a := assigner{}
	if err := a.assign(rv.Elem(), v); err != nil {
		return atPath(err, a.path.String())
	}
	return nil
}

type assigner struct {
	path pathStack
}

func (a *assigner) mismatch(dst reflect.Value, v any) error {
	return &Error{
		Kind:    TypeMismatch,
		Path:    a.path.String(),
		Message: fmt.Sprintf("cannot assign %s to %s", describeValue(v), dst.Type()),
	}
}

func (a *assigner) assign(dst reflect.Value, v any) error {
	if dst.CanAddr() && dst.Addr().Type().Implements(unvaluerType) {
		if err := dst.Addr().Interface().(Unvaluer).SetSATSValue(v); err != nil {
			return atPath(err, a.path.String())
		}
		return nil
	}

	switch v.(type) {
	case Uint128, Int128, Uint256, Int256:
		rv := reflect.ValueOf(v)
		if dst.Kind() == reflect.Interface || !rv.Type().ConvertibleTo(dst.Type()) || rv.Kind() != dst.Kind() {
			break
		}
		dst.Set(rv.Convert(dst.Type()))
		return nil
	}

	switch dst.Kind() {
	case reflect.Interface:
		if v == nil {
			dst.SetZero()
			return nil
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().AssignableTo(dst.Type()) {
			return a.mismatch(dst, v)
		}
		dst.Set(rv)
		return nil

	case reflect.Pointer:
		o, ok := v.(Option)
		if !ok {
			return a.mismatch(dst, v)
		}
		if !o.Some {
			dst.SetZero()
			return nil
		}
		elem := reflect.New(dst.Type().Elem())
		a.path.push("some")
		if err := a.assign(elem.Elem(), o.Value); err != nil {
			return err
		}
		a.path.pop()
		dst.Set(elem)
		return nil

	case reflect.Struct:
		return a.assignStruct(dst, v)

	case reflect.Slice:
		if b, ok := v.([]byte); ok && dst.Type().Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(b)
			return nil
		}
		items, ok := v.([]any)
		if !ok {
			return a.mismatch(dst, v)
		}
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			a.path.push(indexLabel(i))
			if err := a.assign(out.Index(i), item); err != nil {
				return err
			}
			a.path.pop()
		}
		dst.Set(out)
		return nil

	case reflect.Array:
		if b, ok := v.([]byte); ok && dst.Type().Elem().Kind() == reflect.Uint8 {
			if len(b) != dst.Len() {
				return &Error{Kind: TypeMismatch, Path: a.path.String(),
					Message: fmt.Sprintf("%d bytes for %s", len(b), dst.Type())}
			}
			reflect.Copy(dst, reflect.ValueOf(b))
			return nil
		}
		items, ok := v.([]any)
		if !ok || len(items) != dst.Len() {
			return a.mismatch(dst, v)
		}
		for i, item := range items {
			a.path.push(indexLabel(i))
			if err := a.assign(dst.Index(i), item); err != nil {
				return err
			}
			a.path.pop()
		}
		return nil
	}

	return a.assignScalar(dst, v)
}

func (a *assigner) assignStruct(dst reflect.Value, v any) error {
	pv, ok := v.(ProductValue)
	if !ok {
		return a.mismatch(dst, v)
	}
	fields := cachedStructFields(dst.Type())
	for i, f := range pv {
		idx, ok := fields.lookup(f.Name, i)
		if !ok {
			return &Error{Kind: TypeMismatch, Path: a.path.String(),
				Message: fmt.Sprintf("%s has no field for %q", dst.Type(), elementLabel(Element{Name: f.Name}, i))}
		}
		a.path.push(elementLabel(Element{Name: f.Name}, i))
		if err := a.assign(dst.FieldByIndex(idx), f.Value); err != nil {
			return err
		}
		a.path.pop()
	}
	return nil
}

func (a *assigner) assignScalar(dst reflect.Value, v any) error {
	if v == nil {
		return a.mismatch(dst, v)
	}
	rv := reflect.ValueOf(v)
	src, dk := rv.Kind(), dst.Kind()
	compatible := src == dk ||
		(dk == reflect.Int && src == reflect.Int64) ||
		(dk == reflect.Uint && src == reflect.Uint64)
	if !compatible {
		return a.mismatch(dst, v)
	}
	dst.Set(rv.Convert(dst.Type()))
	return nil
}
