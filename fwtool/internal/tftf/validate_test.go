// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// craft encodes an image with a 512 byte header and the given section table
// without any checks.
func craft(start uint32, secs ...Section) []byte {
	size := DefaultHeaderSize
	for _, s := range secs {
		size += int(s.Length)
	}
	b := make([]byte, size)
	copy(b, sentinel[:])
	le.PutUint32(b[offHeaderSize:], DefaultHeaderSize)
	le.PutUint32(b[offStart:], start)
	for i, s := range secs {
		putSection(b[descOffset(i):], s)
	}
	putSection(b[descOffset(len(secs)):], Section{Type: End})
	return b
}

func code(addr, n uint32) Section {
	return Section{Type: RawCode, Length: n, LoadAddress: addr, ExpandedLength: n}
}

func data(addr, n uint32) Section {
	return Section{Type: RawData, Length: n, LoadAddress: addr, ExpandedLength: n}
}

func unplaced(t SectionType, n uint32) Section {
	return Section{Type: t, Length: n, LoadAddress: LoadIgnored, ExpandedLength: n}
}

func validate(t *testing.T, b []byte) error {
	t.Helper()
	c, err := Parse(b, 0)
	require.NoError(t, err)
	return Validate(c)
}

func sectionIndex(t *testing.T, err error) int {
	t.Helper()
	var se *SectionError
	require.True(t, errors.As(err, &se), "not a SectionError: %v", err)
	return se.Index
}

func TestValidateOK(t *testing.T) {
	tests := []struct {
		name  string
		start uint32
		secs  []Section
	}{
		{"empty", 0, nil},
		{"code", 0x100, []Section{code(0x100, 0x100)}},
		{"adjacent", 0, []Section{code(0x1000, 0x100), data(0x1100, 0x100)}},
		{"adjacent reversed", 0, []Section{data(0x1100, 0x100), code(0x1000, 0x100)}},
		{"unplaced", 0x10, []Section{
			code(0, 0x100),
			unplaced(Manifest, 16),
			unplaced(Signature, 16),
			unplaced(Signature, 16),
			unplaced(Certificate, 8),
		}},
		{"compressed", 0, []Section{{Type: CompressedCode, Length: 50, LoadAddress: 0, ExpandedLength: 100}}},
		{"start in last byte", 0x10ff, []Section{code(0x1000, 0x100)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, validate(t, craft(tt.start, tt.secs...)))
		})
	}
}

func TestValidateCompression(t *testing.T) {
	err := validate(t, craft(0, code(0, 16), Section{Type: RawData, Length: 100, LoadAddress: 0x100, ExpandedLength: 50}))
	require.ErrorIs(t, err, ErrCompression)
	assert.Equal(t, 1, sectionIndex(t, err))
}

func TestValidateCollision(t *testing.T) {
	tests := []struct {
		name string
		secs []Section
	}{
		{"overlap", []Section{code(0x1000, 0x100), data(0x1080, 0x100)}},
		{"overlap reversed", []Section{data(0x1080, 0x100), code(0x1000, 0x100)}},
		{"one byte", []Section{code(0x1000, 0x100), data(0x10ff, 1)}},
		{"inside", []Section{code(0x1000, 0x100), data(0x1010, 0x10)}},
		{"unplaced between", []Section{code(0, 0x100), unplaced(Manifest, 4), data(0x80, 0x100)}},
		{"far apart", []Section{code(0, 0x10), data(0x1000, 0x10), data(0x1008, 0x10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(t, craft(0, tt.secs...))
			require.ErrorIs(t, err, ErrCollision)
		})
	}
}

func TestValidateCollisionUsesExpandedLength(t *testing.T) {
	err := validate(t, craft(0,
		Section{Type: CompressedCode, Length: 0x10, LoadAddress: 0, ExpandedLength: 0x200},
		data(0x100, 0x10),
	))
	require.ErrorIs(t, err, ErrCollision)
	assert.Equal(t, 0, sectionIndex(t, err))
}

func TestValidateRestricted(t *testing.T) {
	err := validate(t, craft(0, code(0, 4), Section{Type: Signature, Length: 4, LoadAddress: 0x100, ExpandedLength: 4}))
	require.ErrorIs(t, err, ErrRestrictedAddress)
	assert.Equal(t, 1, sectionIndex(t, err))

	err = validate(t, craft(0, unplaced(Certificate, 4), code(0, 4)))
	require.ErrorIs(t, err, ErrSectionOrder)
	assert.Equal(t, 1, sectionIndex(t, err))
}

func TestValidateSectionType(t *testing.T) {
	err := validate(t, craft(0, code(0, 4), Section{Type: 0x42, LoadAddress: LoadIgnored}))
	require.ErrorIs(t, err, ErrSectionType)
	assert.Equal(t, 1, sectionIndex(t, err))
}

func TestValidateStart(t *testing.T) {
	tests := []struct {
		name  string
		start uint32
		secs  []Section
	}{
		{"no code", 0x10, []Section{data(0, 0x100)}},
		{"in data", 0x150, []Section{code(0, 0x100), data(0x100, 0x100)}},
		{"past end", 0x100, []Section{code(0, 0x100)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(t, craft(tt.start, tt.secs...))
			require.ErrorIs(t, err, ErrStartNotInCode)
		})
	}
}

func TestValidateNoTableEnd(t *testing.T) {
	secs := make([]Section, Slots(DefaultHeaderSize)-1)
	for i := range secs {
		secs[i] = unplaced(Manifest, 0)
	}
	b := craft(0, secs...)
	putSection(b[descOffset(len(secs)):], unplaced(Manifest, 0))
	require.ErrorIs(t, validate(t, b), ErrNoTableEnd)
}

func TestValidatePadding(t *testing.T) {
	b := craft(0, code(0, 4))
	b[DefaultHeaderSize-1] = 1
	require.ErrorIs(t, validate(t, b), ErrNonZeroPad)

	b = craft(0, code(0, 4))
	b[offReserved+3] = 1
	require.ErrorIs(t, validate(t, b), ErrNonZeroPad)

	b = craft(0, code(0, 4))
	b[descOffset(1)+offSecID] = 1 // end marker id
	require.ErrorIs(t, validate(t, b), ErrNonZeroPad)
}

func TestValidateTruncated(t *testing.T) {
	b := craft(0, code(0, 64))
	require.ErrorIs(t, validate(t, b[:len(b)-1]), ErrTruncated)
}

func TestValidateHeaderSize(t *testing.T) {
	b := append(craft(0, code(0, 4)), make([]byte, 1024)...)
	c, err := Parse(b, 1024)
	require.NoError(t, err)
	require.ErrorIs(t, Validate(c), ErrHeaderSize)
}

func TestValidateSentinel(t *testing.T) {
	b := craft(0, code(0, 4))
	b[3] = 'X'
	assert.False(t, Sniff(b))
	_, err := Parse(b, 0)
	require.ErrorIs(t, err, ErrSentinel)
	require.ErrorIs(t, Validate(&Container{data: b, headerSize: DefaultHeaderSize}), ErrSentinel)
}

func TestParseShort(t *testing.T) {
	_, err := Parse([]byte("TFTF"), 0)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCollisions(t *testing.T) {
	c, err := Parse(craft(0,
		code(0x1000, 0x100),
		data(0x1080, 0x100),
		unplaced(Manifest, 4),
		data(0x10f0, 0x20),
		data(0x2000, 0x10),
	), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, Collisions(c, 0))
	assert.Equal(t, []int{0, 3}, Collisions(c, 1))
	assert.Nil(t, Collisions(c, 2))
	assert.Nil(t, Collisions(c, 4))
}
