package sats

// Descriptors are themselves encoded with the codec primitives: one kind
// byte, then for products and sums a u32 element count followed by each
// element as an optional name and its type, and for arrays and options the
// nested type.

// EncodeType serializes a descriptor.
func EncodeType(t AlgebraicType) ([]byte, error) {
	w := NewWriter(32)
	if err := writeType(w, t); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writeType(w *Writer, t AlgebraicType) error {
	if !t.Valid() {
		return newError(InvalidSchema, "cannot encode an invalid descriptor")
	}
	w.WriteU8(uint8(t.kind))
	switch t.kind {
	case KindProduct, KindSum:
		if err := w.WriteLen(len(t.elements)); err != nil {
			return err
		}
		for _, e := range t.elements {
			if e.Name == "" {
				w.WriteU8(0)
			} else {
				w.WriteU8(1)
				if err := w.WriteString(e.Name); err != nil {
					return err
				}
			}
			if err := writeType(w, e.Type); err != nil {
				return err
			}
		}
	case KindArray, KindOption:
		return writeType(w, *t.elem)
	}
	return nil
}

// DecodeType deserializes a descriptor produced by EncodeType. The result is
// validated like a constructed descriptor.
func DecodeType(data []byte) (AlgebraicType, error) {
	r := NewReader(data)
	t, err := readType(r, 0)
	if err != nil {
		return AlgebraicType{}, err
	}
	if n := r.Remaining(); n > 0 {
		return AlgebraicType{}, newError(InvalidLength, "%d trailing bytes after descriptor", n)
	}
	return t, nil
}

// maxTypeDepth bounds descriptor nesting when decoding untrusted input.
const maxTypeDepth = 64

func readType(r *Reader, depth int) (AlgebraicType, error) {
	if depth > maxTypeDepth {
		return AlgebraicType{}, newError(InvalidSchema, "descriptor nested deeper than %d", maxTypeDepth)
	}
	b, err := r.ReadU8()
	if err != nil {
		return AlgebraicType{}, err
	}
	k := Kind(b)
	switch {
	case k == KindProduct || k == KindSum:
		// Each element is at least a presence byte and a kind byte.
		n, err := r.ReadLen(2)
		if err != nil {
			return AlgebraicType{}, err
		}
		elems := make([]Element, n)
		for i := range elems {
			flag, err := r.ReadU8()
			if err != nil {
				return AlgebraicType{}, err
			}
			switch flag {
			case 0:
			case 1:
				if elems[i].Name, err = r.ReadString(); err != nil {
					return AlgebraicType{}, err
				}
			default:
				return AlgebraicType{}, newError(InvalidTag, "element name presence byte %d", flag)
			}
			if elems[i].Type, err = readType(r, depth+1); err != nil {
				return AlgebraicType{}, err
			}
		}
		if k == KindProduct {
			return NewProductType(elems...)
		}
		return NewSumType(elems...)
	case k == KindArray || k == KindOption:
		elem, err := readType(r, depth+1)
		if err != nil {
			return AlgebraicType{}, err
		}
		if k == KindArray {
			return ArrayOf(elem), nil
		}
		return OptionOf(elem), nil
	case k.IsScalar() || k == KindString || k == KindBytes:
		return AlgebraicType{kind: k}, nil
	default:
		return AlgebraicType{}, newError(InvalidTag, "unknown descriptor kind %d", b)
	}
}
