// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash

import (
	"bytes"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddedgo/tftf/fwtool/internal/ffff"
)

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func parse(t *testing.T, args ...string) *config {
	t.Helper()
	fs, cfg := newFlags("flash", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	require.NoError(t, fs.Parse(args))
	return cfg
}

func TestFlash(t *testing.T) {
	dir := t.TempDir()
	s2 := writeTemp(t, dir, "s2.bin", bytes.Repeat([]byte{0x22}, 3000))
	s3 := writeTemp(t, dir, "s3.bin", bytes.Repeat([]byte{0x33}, 100))
	out := filepath.Join(dir, "flash.bin")

	cfg := parse(t,
		"-flash-capacity", "0x20000", "-erase-size", "0x1000", "-header-size", "512",
		"-name", "board", "-generation", "2",
		"-s2f", s2, "-eid", "1",
		"-s3f", s3, "-eloc", "0x10000", "-egen", "4",
		"-out", out, "-map", "-hex",
	)
	require.NoError(t, cfg.run(io.Discard))

	img, err := ffff.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, img.HeadersMatch())
	h := img.Headers()[0]
	assert.Equal(t, "board", h.Name)
	assert.Equal(t, uint32(2), h.Generation)
	require.Len(t, h.Elements, 2)
	assert.Equal(t, ffff.Element{Type: ffff.S2FW, ID: 1, Length: 3000, Location: 0x2000}, h.Elements[0])
	assert.Equal(t, ffff.Element{Type: ffff.S3FW, Length: 100, Location: 0x10000, Generation: 4}, h.Elements[1])

	_, err = os.Stat(filepath.Join(dir, "flash.map"))
	assert.NoError(t, err)
	hex, err := os.ReadFile(filepath.Join(dir, "flash.hex"))
	require.NoError(t, err)
	assert.Contains(t, string(hex), ":00000001FF")
}

func TestFlashErrors(t *testing.T) {
	dir := t.TempDir()
	s2 := writeTemp(t, dir, "s2.bin", make([]byte, 100))
	for _, tc := range []struct {
		name string
		args []string
		err  error
	}{
		{"no elements", []string{"-flash-capacity", "0x20000"}, errNoElements},
		{"attribute first", []string{"-eid", "1"}, ffff.ErrNoOpenElement},
		{"no capacity", []string{"-s2f", s2}, ffff.ErrCapacity},
		{"misaligned", []string{"-flash-capacity", "0x40000", "-s2f", s2, "-eloc", "0x20001"}, ffff.ErrAlignment},
		{"erase size", []string{"-flash-capacity", "0x40000", "-erase-size", "0x3000", "-s2f", s2}, ffff.ErrEraseBlock},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(t, tc.args...).build(slog.New(slog.DiscardHandler))
			require.Error(t, err)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}
}
