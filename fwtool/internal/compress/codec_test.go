// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func firmwareLike(n int) []byte {
	pattern := []byte{0x00, 0xb5, 0x01, 0x4b, 0x98, 0x47, 0x00, 0xbd, 0xff, 0xff}
	return bytes.Repeat(pattern, n/len(pattern)+1)[:n]
}

func TestRoundTrip(t *testing.T) {
	data := firmwareLike(4096)
	for _, typ := range []Type{None, LZ4, Zstd, S2} {
		t.Run(typ.String(), func(t *testing.T) {
			c, err := New(typ)
			require.NoError(t, err)
			require.Equal(t, typ, c.Type())

			packed, err := c.Compress(data)
			require.NoError(t, err)
			if typ != None {
				require.Less(t, len(packed), len(data))
			}

			out, err := c.Decompress(packed, len(data))
			require.NoError(t, err)
			require.Equal(t, data, out)
		})
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := firmwareLike(1000)
	for _, typ := range []Type{None, LZ4, Zstd, S2} {
		t.Run(typ.String(), func(t *testing.T) {
			c, err := New(typ)
			require.NoError(t, err)
			packed, err := c.Compress(data)
			require.NoError(t, err)

			_, err = c.Decompress(packed, len(data)+10)
			require.Error(t, err)
		})
	}
}

func TestDecompressTooLarge(t *testing.T) {
	data := firmwareLike(1000)
	for _, typ := range []Type{LZ4, Zstd, S2} {
		t.Run(typ.String(), func(t *testing.T) {
			c, err := New(typ)
			require.NoError(t, err)
			packed, err := c.Compress(data)
			require.NoError(t, err)

			_, err = c.Decompress(packed, 0xffffffff)
			require.ErrorIs(t, err, ErrTooLarge)
			_, err = c.Decompress(packed, MaxSize+1)
			require.ErrorIs(t, err, ErrTooLarge)
		})
	}
}

func TestDecompressRatio(t *testing.T) {
	c, err := New(LZ4)
	require.NoError(t, err)
	packed, err := c.Compress(firmwareLike(1000))
	require.NoError(t, err)
	_, err = c.Decompress(packed, lz4MaxRatio*len(packed)+1)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"none", "lz4", "ZSTD", "s2"} {
		_, err := ParseType(name)
		require.NoError(t, err, name)
	}
	typ, err := ParseType("lz4")
	require.NoError(t, err)
	require.Equal(t, LZ4, typ)

	_, err = ParseType("gzip")
	require.Error(t, err)
}

func TestEmptyInput(t *testing.T) {
	c, err := New(LZ4)
	require.NoError(t, err)
	packed, err := c.Compress(nil)
	require.NoError(t, err)
	require.Empty(t, packed)
	out, err := c.Decompress(nil, 0)
	require.NoError(t, err)
	require.Empty(t, out)
}
