// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"strings"
)

// Kind identifies which constructor built an AlgebraicType.
type Kind uint8

const (
	kindInvalid Kind = iota
	KindProduct
	KindSum
	KindBool
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindI128
	KindU128
	KindI256
	KindU256
	KindF32
	KindF64
	KindString
	KindBytes
	KindArray
	KindOption
)

var kindNames = [...]string{
	kindInvalid: "Invalid",
	KindProduct: "Product",
	KindSum:     "Sum",
	KindBool:    "Bool",
	KindI8:      "I8",
	KindU8:      "U8",
	KindI16:     "I16",
	KindU16:     "U16",
	KindI32:     "I32",
	KindU32:     "U32",
	KindI64:     "I64",
	KindU64:     "U64",
	KindI128:    "I128",
	KindU128:    "U128",
	KindI256:    "I256",
	KindU256:    "U256",
	KindF32:     "F32",
	KindF64:     "F64",
	KindString:  "String",
	KindBytes:   "Bytes",
	KindArray:   "Array",
	KindOption:  "Option",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Invalid"
}

// IsScalar reports whether k is a fixed-width primitive.
func (k Kind) IsScalar() bool {
	return k >= KindBool && k <= KindF64
}

// MaxVariants is the number of variants a sum tag byte can address.
const MaxVariants = 256

// Element is a named field of a product or a named variant of a sum.
type Element struct {
	Name string
	Type AlgebraicType
}

// Field returns a product field element.
func Field(name string, t AlgebraicType) Element {
	return Element{Name: name, Type: t}
}

// Variant returns a sum variant element.
func Variant(name string, t AlgebraicType) Element {
	return Element{Name: name, Type: t}
}

// AlgebraicType describes the shape, and therefore the binary layout, of a
// value. The zero value is invalid; build descriptors with the constructors
// in this file. Descriptors are immutable and safe for concurrent use.
type AlgebraicType struct {
	kind     Kind
	elements []Element     // product fields or sum variants
	elem     *AlgebraicType // array element or option payload
}

// NewProductType builds a product descriptor. Field order defines encoding
// order. Unnamed fields are allowed; named fields must be unique.
func NewProductType(fields ...Element) (AlgebraicType, error) {
	if err := checkElements("product", "field", fields); err != nil {
		return AlgebraicType{}, err
	}
	return AlgebraicType{kind: KindProduct, elements: cloneElements(fields)}, nil
}

// NewSumType builds a sum descriptor. The first variant gets tag 0.
func NewSumType(variants ...Element) (AlgebraicType, error) {
	if len(variants) > MaxVariants {
		return AlgebraicType{}, newError(InvalidSchema, "sum has %d variants, at most %d are addressable", len(variants), MaxVariants)
	}
	if err := checkElements("sum", "variant", variants); err != nil {
		return AlgebraicType{}, err
	}
	return AlgebraicType{kind: KindSum, elements: cloneElements(variants)}, nil
}

// MustProductType is like NewProductType but panics on an invalid schema.
// It is meant for descriptors declared at package level.
func MustProductType(fields ...Element) AlgebraicType {
	t, err := NewProductType(fields...)
	if err != nil {
		panic("sats: " + err.Error())
	}
	return t
}

// MustSumType is like NewSumType but panics on an invalid schema.
func MustSumType(variants ...Element) AlgebraicType {
	t, err := NewSumType(variants...)
	if err != nil {
		panic("sats: " + err.Error())
	}
	return t
}

func checkElements(what, elem string, elems []Element) error {
	seen := make(map[string]int, len(elems))
	for i, e := range elems {
		if !e.Type.Valid() {
			return newError(InvalidSchema, "%s %s %d (%q) has an invalid type", what, elem, i, e.Name)
		}
		if e.Name == "" {
			continue
		}
		if prev, dup := seen[e.Name]; dup {
			return newError(InvalidSchema, "%s %s name %q used at positions %d and %d", what, elem, e.Name, prev, i)
		}
		seen[e.Name] = i
	}
	return nil
}

func cloneElements(elems []Element) []Element {
	if len(elems) == 0 {
		return nil
	}
	out := make([]Element, len(elems))
	copy(out, elems)
	return out
}

// UnitType is the empty product. It is the payload of unit sum variants.
func UnitType() AlgebraicType { return AlgebraicType{kind: KindProduct} }

func BoolType() AlgebraicType   { return AlgebraicType{kind: KindBool} }
func I8Type() AlgebraicType     { return AlgebraicType{kind: KindI8} }
func U8Type() AlgebraicType     { return AlgebraicType{kind: KindU8} }
func I16Type() AlgebraicType    { return AlgebraicType{kind: KindI16} }
func U16Type() AlgebraicType    { return AlgebraicType{kind: KindU16} }
func I32Type() AlgebraicType    { return AlgebraicType{kind: KindI32} }
func U32Type() AlgebraicType    { return AlgebraicType{kind: KindU32} }
func I64Type() AlgebraicType    { return AlgebraicType{kind: KindI64} }
func U64Type() AlgebraicType    { return AlgebraicType{kind: KindU64} }
func I128Type() AlgebraicType   { return AlgebraicType{kind: KindI128} }
func U128Type() AlgebraicType   { return AlgebraicType{kind: KindU128} }
func I256Type() AlgebraicType   { return AlgebraicType{kind: KindI256} }
func U256Type() AlgebraicType   { return AlgebraicType{kind: KindU256} }
func F32Type() AlgebraicType    { return AlgebraicType{kind: KindF32} }
func F64Type() AlgebraicType    { return AlgebraicType{kind: KindF64} }
func StringType() AlgebraicType { return AlgebraicType{kind: KindString} }
func BytesType() AlgebraicType  { return AlgebraicType{kind: KindBytes} }

// ArrayOf returns the descriptor of a homogeneous sequence of elem.
func ArrayOf(elem AlgebraicType) AlgebraicType {
	return AlgebraicType{kind: KindArray, elem: &elem}
}

// OptionOf returns the descriptor of an optional elem.
func OptionOf(elem AlgebraicType) AlgebraicType {
	return AlgebraicType{kind: KindOption, elem: &elem}
}

// Kind returns the constructor kind.
func (t AlgebraicType) Kind() Kind { return t.kind }

// Valid reports whether t was built by a constructor.
func (t AlgebraicType) Valid() bool { return t.kind != kindInvalid }

// IsUnit reports whether t is the empty product.
func (t AlgebraicType) IsUnit() bool {
	return t.kind == KindProduct && len(t.elements) == 0
}

// NumElements returns the number of product fields or sum variants.
func (t AlgebraicType) NumElements() int { return len(t.elements) }

// Element returns the i-th product field or sum variant.
func (t AlgebraicType) Element(i int) Element { return t.elements[i] }

// Elements returns a copy of the product fields or sum variants.
func (t AlgebraicType) Elements() []Element { return cloneElements(t.elements) }

// IndexOf returns the position of the named field or variant.
func (t AlgebraicType) IndexOf(name string) (int, bool) {
	for i, e := range t.elements {
		if e.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Elem returns the element type of an array or the payload type of an
// option. It returns the zero (invalid) descriptor for other kinds.
func (t AlgebraicType) Elem() AlgebraicType {
	if t.elem == nil {
		return AlgebraicType{}
	}
	return *t.elem
}

// IsEnum reports whether t is a sum whose variants are all unit.
func (t AlgebraicType) IsEnum() bool {
	if t.kind != KindSum || len(t.elements) == 0 {
		return false
	}
	for _, v := range t.elements {
		if !v.Type.IsUnit() {
			return false
		}
	}
	return true
}

// Equal reports whether two descriptors are structurally identical,
// including element names.
func (t AlgebraicType) Equal(o AlgebraicType) bool {
	if t.kind != o.kind || len(t.elements) != len(o.elements) {
		return false
	}
	for i := range t.elements {
		if t.elements[i].Name != o.elements[i].Name || !t.elements[i].Type.Equal(o.elements[i].Type) {
			return false
		}
	}
	if (t.elem == nil) != (o.elem == nil) {
		return false
	}
	return t.elem == nil || t.elem.Equal(*o.elem)
}

// MinSize returns the smallest number of bytes any value of t encodes to.
func (t AlgebraicType) MinSize() int {
	switch t.kind {
	case KindBool, KindI8, KindU8, KindSum, KindOption:
		return 1
	case KindI16, KindU16:
		return 2
	case KindI32, KindU32, KindF32, KindString, KindBytes, KindArray:
		return 4
	case KindI64, KindU64, KindF64:
		return 8
	case KindI128, KindU128:
		return 16
	case KindI256, KindU256:
		return 32
	case KindProduct:
		n := 0
		for _, f := range t.elements {
			n += f.Type.MinSize()
		}
		return n
	default:
		return 0
	}
}

// String renders t in a compact form, e.g. "(msg: String)",
// "(some: U32 | none: ())" or "Array<Option<String>>".
func (t AlgebraicType) String() string {
	var b strings.Builder
	t.writeTo(&b)
	return b.String()
}

func (t AlgebraicType) writeTo(b *strings.Builder) {
	switch t.kind {
	case KindProduct:
		b.WriteByte('(')
		for i, f := range t.elements {
			if i > 0 {
				b.WriteString(", ")
			}
			if f.Name != "" {
				b.WriteString(f.Name)
				b.WriteString(": ")
			}
			f.Type.writeTo(b)
		}
		b.WriteByte(')')
	case KindSum:
		b.WriteByte('(')
		for i, v := range t.elements {
			if i > 0 {
				b.WriteString(" | ")
			}
			if v.Name != "" {
				b.WriteString(v.Name)
				b.WriteString(": ")
			}
			v.Type.writeTo(b)
		}
		b.WriteByte(')')
	case KindArray, KindOption:
		b.WriteString(t.kind.String())
		b.WriteByte('<')
		t.elem.writeTo(b)
		b.WriteByte('>')
	default:
		b.WriteString(t.kind.String())
	}
}
