// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package sats

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies how a host payload is compressed. The tag is the
// first byte of every compressed frame.
type Compression uint8

const (
	CompressionNone   Compression = 0
	CompressionBrotli Compression = 1
	CompressionGzip   Compression = 2
	CompressionZstd   Compression = 3
)

// MaxDecompressedSize bounds the output of Decompress.
const MaxDecompressedSize = 64 << 20

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionBrotli:
		return "brotli"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as printed by String.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "brotli":
		return CompressionBrotli, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// zstdEncoder and zstdDecoder are safe for concurrent use and reused
// across calls.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("sats: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecompressedSize))
	if err != nil {
		panic("sats: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress prefixes payload with the tag of c and compresses it.
func Compress(payload []byte, c Compression) ([]byte, error) {
	out := bytes.NewBuffer(make([]byte, 0, len(payload)/2+16))
	out.WriteByte(byte(c))
	switch c {
	case CompressionNone:
		out.Write(payload)
	case CompressionBrotli:
		w := brotli.NewWriterLevel(out, brotli.DefaultCompression)
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("brotli compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("brotli compress: %w", err)
		}
	case CompressionGzip:
		w := gzip.NewWriter(out)
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
	case CompressionZstd:
		return zstdEncoder.EncodeAll(payload, out.Bytes()), nil
	default:
		return nil, newError(InvalidTag, "compression tag %d", uint8(c))
	}
	return out.Bytes(), nil
}

// Decompress strips the compression tag from frame and returns the payload.
func Decompress(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, newError(TruncatedInput, "empty frame has no compression tag")
	}
	c, body := Compression(frame[0]), frame[1:]
	switch c {
	case CompressionNone:
		if len(body) > MaxDecompressedSize {
			return nil, newError(InvalidLength, "payload of %d bytes exceeds %d", len(body), MaxDecompressedSize)
		}
		return body, nil
	case CompressionBrotli:
		return readLimited(c, brotli.NewReader(bytes.NewReader(body)))
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w", err)
		}
		defer r.Close()
		return readLimited(c, r)
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
				return nil, newError(InvalidLength, "zstd payload exceeds %d bytes", MaxDecompressedSize)
			}
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) > MaxDecompressedSize {
			return nil, newError(InvalidLength, "zstd payload exceeds %d bytes", MaxDecompressedSize)
		}
		return out, nil
	default:
		return nil, newError(InvalidTag, "compression tag %d", uint8(c))
	}
}

func readLimited(c Compression, r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", c, err)
	}
	if len(out) > MaxDecompressedSize {
		return nil, newError(InvalidLength, "%s payload exceeds %d bytes", c, MaxDecompressedSize)
	}
	return out, nil
}
