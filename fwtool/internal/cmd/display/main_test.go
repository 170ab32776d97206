// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package display

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddedgo/tftf/fwtool/internal/compress"
	"github.com/embeddedgo/tftf/fwtool/internal/tftf"
)

func writeImage(t *testing.T, codec compress.Codec) string {
	t.Helper()
	var opts []tftf.Option
	if codec != nil {
		opts = append(opts, tftf.WithCompression(codec))
	}
	c := tftf.NewCache(0, opts...)
	require.NoError(t, c.Open(tftf.RawCode, ""))
	require.NoError(t, c.SetBlob(bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 1024)))
	require.NoError(t, c.Close())
	img, err := tftf.Build(tftf.Header{Name: "shown"}, c.TotalSize(), c)
	require.NoError(t, err)
	name := filepath.Join(t.TempDir(), "fw.tftf")
	require.NoError(t, tftf.WriteFile(name, img))
	return name
}

func parse(t *testing.T, args ...string) *config {
	t.Helper()
	fs, cfg := newFlags("display", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	require.NoError(t, fs.Parse(args))
	return cfg
}

func TestDisplay(t *testing.T) {
	name := writeImage(t, nil)
	var buf bytes.Buffer
	require.NoError(t, parse(t, "-map").display(&buf, name))
	assert.Contains(t, buf.String(), "TFTF header for "+name)
	assert.Contains(t, buf.String(), "Fw. pkg name:      'shown'")
	_, err := os.Stat(filepath.Join(filepath.Dir(name), "fw.map"))
	assert.NoError(t, err)
}

func TestDisplayExpand(t *testing.T) {
	codec, err := compress.New(compress.Zstd)
	require.NoError(t, err)
	name := writeImage(t, codec)

	var buf bytes.Buffer
	require.NoError(t, parse(t, "-expand", "zstd").display(&buf, name))
	assert.Contains(t, buf.String(), "expanded (zstd): 4096 bytes")

	err = parse(t, "-expand", "lz4").display(io.Discard, name)
	var se *tftf.SectionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Index)
}

func TestDisplayInvalid(t *testing.T) {
	name := writeImage(t, nil)
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	data = slices.Clone(data)
	data[tftf.DefaultHeaderSize-1] = 0xff
	require.NoError(t, os.WriteFile(name, data, 0o644))

	var buf bytes.Buffer
	err = parse(t).display(&buf, name)
	assert.ErrorIs(t, err, tftf.ErrNonZeroPad)
	assert.Contains(t, buf.String(), "TFTF header for")
}

func TestDisplayMissing(t *testing.T) {
	err := parse(t).display(io.Discard, filepath.Join(t.TempDir(), "none.tftf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
