// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compress provides the codecs used for compressed code and data
// sections. The container records only the stored and the expanded length of
// a section so every Decompress call is given the exact size it must produce.
package compress

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncompressible is returned by Compress if the codec can't make the
	// input any smaller.
	ErrIncompressible = errors.New("incompressible data")

	// ErrSizeMismatch is returned by Decompress if the decoded data length
	// differs from the expected one.
	ErrSizeMismatch = errors.New("decompressed size mismatch")

	// ErrTooLarge is returned by Decompress if the expected size exceeds
	// MaxSize or can't be produced from the given input.
	ErrTooLarge = errors.New("decompressed size too large")
)

// MaxSize is the largest size Decompress accepts. It is well above the flash
// of any supported target.
const MaxSize = 64 << 20

// Type identifies a codec.
type Type uint8

const (
	None Type = iota
	LZ4
	Zstd
	S2
)

var typeNames = [...]string{
	None: "none",
	LZ4:  "lz4",
	Zstd: "zstd",
	S2:   "s2",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// ParseType returns the codec type with the given name.
func ParseType(name string) (Type, error) {
	for t, s := range typeNames {
		if strings.EqualFold(name, s) {
			return Type(t), nil
		}
	}
	return None, fmt.Errorf("unknown compression '%s' (use one of: %s)",
		name, strings.Join(typeNames[:], ", "))
}

// Codec compresses and decompresses whole sections.
type Codec interface {
	Type() Type

	// Compress returns the compressed form of data in a newly allocated
	// slice.
	Compress(data []byte) ([]byte, error)

	// Decompress decodes data that must expand to exactly size bytes.
	Decompress(data []byte, size int) ([]byte, error)
}

// New returns the codec of the given type.
func New(t Type) (Codec, error) {
	switch t {
	case None:
		return noop{}, nil
	case LZ4:
		return lz4Codec{}, nil
	case Zstd:
		return zstdCodec{}, nil
	case S2:
		return s2Codec{}, nil
	}
	return nil, fmt.Errorf("unsupported compression type: %s", t)
}

// checkBound refuses to decode data into size bytes if size is out of range
// or exceeds ratio times the length of data. The ratio 0 means no ratio limit.
func checkBound(data []byte, size, ratio int) error {
	if size < 0 || size > MaxSize {
		return fmt.Errorf("%w: %d bytes (%d max)", ErrTooLarge, size, MaxSize)
	}
	if ratio > 0 && size > ratio*len(data) {
		return fmt.Errorf("%w: %d bytes from %d", ErrTooLarge, size, len(data))
	}
	return nil
}

func checkSize(out []byte, size int) ([]byte, error) {
	if len(out) != size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(out), size)
	}
	return out, nil
}

type noop struct{}

func (noop) Type() Type { return None }

func (noop) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (noop) Decompress(data []byte, size int) ([]byte, error) {
	return checkSize(append([]byte(nil), data...), size)
}
