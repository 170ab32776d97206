// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMap(t *testing.T) {
	c := codeAndData(t)
	img, err := Build(Header{}, c.TotalSize(), c)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMap(&buf, img, "tftf", 0x1000))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 1+10+NumReserved+img.NumSlots()*6)
	assert.Equal(t, "tftf  00001000", lines[0])
	assert.Equal(t, "tftf.sentinel  00001000", lines[1])
	assert.Contains(t, lines, "tftf.header_size  00001004")
	assert.Contains(t, lines, "tftf.reserved[7]  0000107c")
	assert.Contains(t, lines, "tftf.section[0].load_address  0000108c")
	assert.Contains(t, lines, "tftf.section[1].class  00001095")
}

func TestWriteMapNoPrefix(t *testing.T) {
	c := codeAndData(t)
	img, err := Build(Header{}, c.TotalSize(), c)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMap(&buf, img, "", 0))
	assert.True(t, strings.HasPrefix(buf.String(), "sentinel  00000000\n"))
}

func TestWriteMapFile(t *testing.T) {
	c := codeAndData(t)
	img, err := Build(Header{}, c.TotalSize(), c)
	require.NoError(t, err)

	name := filepath.Join(t.TempDir(), "fw.tftf")
	require.NoError(t, WriteMapFile(name, img))
	data, err := os.ReadFile(filepath.Join(filepath.Dir(name), "fw.map"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "tftf  00000000\n"))
}

func TestFprint(t *testing.T) {
	c := codeAndData(t)
	img, err := Build(Header{Name: "demo"}, c.TotalSize(), c, WithClock(clock))
	require.NoError(t, err)
	img, err = AppendSection(img, Section{Type: Signature, LoadAddress: LoadIgnored}, signatureBlob(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, img, "demo.tftf", PrintOptions{}))
	out := buf.String()
	assert.Contains(t, out, "TFTF header for demo.tftf")
	assert.Contains(t, out, "'20250102 030405'")
	assert.Contains(t, out, "'demo'")
	assert.Contains(t, out, "section [0] (4096 bytes): code")
	assert.Contains(t, out, "section [2] (360 bytes): signature")
	assert.Contains(t, out, "Key name:  'key@rsa2048-sha256.keys.projectara.com'")
	assert.Contains(t, out, "(unused)")
	assert.Contains(t, out, "Signable digest: sha256:")
	assert.NotContains(t, out, "collides")
}

func TestFprintCollisions(t *testing.T) {
	img, err := Parse(craft(0, code(0x1000, 0x100), data(0x1080, 0x100)), 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, img, "bad", PrintOptions{}))
	assert.Contains(t, buf.String(), "(collides with: 1)")
	assert.Contains(t, buf.String(), "(collides with: 0)")
	assert.NotContains(t, buf.String(), "Signable digest")
}
