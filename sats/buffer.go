// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"encoding/binary"
	"math"
)

// Writer appends little-endian encoded values to a growing byte buffer.
// A Writer is a cursor and must not be shared between goroutines.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with room for capacity bytes.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded bytes. The slice aliases the Writer's buffer
// until the next write.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Reset discards the written bytes but keeps the buffer.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteU8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) WriteI8(v int8)    { w.buf = append(w.buf, uint8(v)) }
func (w *Writer) WriteU16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *Writer) WriteI16(v int16)  { w.WriteU16(uint16(v)) }
func (w *Writer) WriteU32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) WriteI32(v int32)  { w.WriteU32(uint32(v)) }
func (w *Writer) WriteU64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *Writer) WriteI64(v int64)  { w.WriteU64(uint64(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteU128 writes the low word first.
func (w *Writer) WriteU128(v Uint128) {
	w.WriteU64(v.Lo)
	w.WriteU64(v.Hi)
}

func (w *Writer) WriteI128(v Int128) { w.WriteU128(Uint128(v)) }

// WriteU256 writes the least significant word first.
func (w *Writer) WriteU256(v Uint256) {
	for _, word := range v {
		w.WriteU64(word)
	}
}

func (w *Writer) WriteI256(v Int256) { w.WriteU256(Uint256(v)) }

// WriteLen writes a u32 length prefix. Lengths above math.MaxUint32 cannot
// be represented and produce an InvalidLength error.
func (w *Writer) WriteLen(n int) error {
	if uint64(n) > math.MaxUint32 {
		return newError(InvalidLength, "length %d does not fit a u32 prefix", n)
	}
	w.WriteU32(uint32(n))
	return nil
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteLen(len(s)); err != nil {
		return err
	}
	w.buf = append(w.buf, s...)
	return nil
}

// WriteBytes writes a length-prefixed byte sequence.
func (w *Writer) WriteBytes(b []byte) error {
	if err := w.WriteLen(len(b)); err != nil {
		return err
	}
	w.buf = append(w.buf, b...)
	return nil
}

// WriteRaw appends b without a length prefix.
func (w *Writer) WriteRaw(b []byte) { w.buf = append(w.buf, b...) }

// Reader consumes little-endian encoded values from a byte slice. It never
// looks ahead or moves backwards. A Reader must not be shared between
// goroutines.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unconsumed bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, newError(TruncatedInput, "need %d bytes at offset %d, have %d", n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadBool reads one byte that must be 0 or 1.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadU8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, newError(InvalidTag, "bool byte %d at offset %d", b, r.off-1)
	}
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadU128() (Uint128, error) {
	b, err := r.take(16)
	if err != nil {
		return Uint128{}, err
	}
	return Uint128{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}, nil
}

func (r *Reader) ReadI128() (Int128, error) {
	v, err := r.ReadU128()
	return Int128(v), err
}

func (r *Reader) ReadU256() (Uint256, error) {
	b, err := r.take(32)
	if err != nil {
		return Uint256{}, err
	}
	var v Uint256
	for i := range v {
		v[i] = binary.LittleEndian.Uint64(b[i*8 : i*8+8])
	}
	return v, nil
}

func (r *Reader) ReadI256() (Int256, error) {
	v, err := r.ReadU256()
	return Int256(v), err
}

// ReadLen reads a u32 length prefix and checks that at least n*unit bytes
// remain. A unit of 0 skips the check.
func (r *Reader) ReadLen(unit int) (int, error) {
	n, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	if unit > 0 && uint64(n)*uint64(unit) > uint64(r.Remaining()) {
		return 0, newError(InvalidLength, "length prefix %d needs %d bytes at offset %d, have %d",
			n, uint64(n)*uint64(unit), r.off, r.Remaining())
	}
	return int(n), nil
}

// ReadBytes reads a length-prefixed byte sequence. The result is a copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadLen(1)
	if err != nil {
		return nil, err
	}
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadLen(1)
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
