// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"fmt"
	"os"
	"slices"

	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

// Image is an FFFF image with one or two valid headers.
type Image struct {
	data []byte
	hdrs []*Header
}

// Parse looks for the headers of an FFFF image. The first header is expected
// at offset 0 and the second one at the first power of two boundary past it
// where a valid header is found. If there is no valid header at offset 0
// Parse looks for a single valid header at the power of two offsets starting
// from MinHeaderSize. Parse takes ownership of data.
func Parse(data []byte) (*Image, error) {
	img := &Image{data: data}
	h0, err := ParseHeader(data, 0)
	if err == nil {
		img.hdrs = append(img.hdrs, h0)
		start := uint64(NextBoundary(h0.HeaderSize, h0.EraseBlock))
		if h := search(data, start); h != nil {
			img.hdrs = append(img.hdrs, h)
		}
		return img, nil
	}
	if h := search(data, MinHeaderSize); h != nil {
		img.hdrs = append(img.hdrs, h)
		return img, nil
	}
	return nil, fmt.Errorf("%w (at 0: %w)", ErrNoHeader, err)
}

func search(data []byte, off uint64) *Header {
	for ; off < uint64(len(data)); off *= 2 {
		if h, err := ParseHeader(data, uint32(off)); err == nil {
			return h
		}
	}
	return nil
}

// ReadFile reads the image from the named file.
func ReadFile(name string) (*Image, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	img, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return img, nil
}

// WriteFile writes the image to the named file, replacing it atomically.
func WriteFile(name string, img *Image) error {
	return util.WriteFileAtomic(name, img.data)
}

// Bytes returns the encoded image. It must not be modified.
func (img *Image) Bytes() []byte { return img.data }

// Headers returns the valid headers in the order of their offsets.
func (img *Image) Headers() []*Header { return img.hdrs }

// Newest returns the valid header with the highest generation. Of two
// headers with the same generation the first one is returned.
func (img *Image) Newest() *Header {
	n := img.hdrs[0]
	for _, h := range img.hdrs[1:] {
		if h.Generation > n.Generation {
			n = h
		}
	}
	return n
}

// TablesMatch reports whether the image has two headers with the same
// element tables.
func (img *Image) TablesMatch() bool {
	return len(img.hdrs) == 2 && slices.Equal(img.hdrs[0].Elements, img.hdrs[1].Elements)
}

// HeadersMatch reports whether the image has two identical headers.
func (img *Image) HeadersMatch() bool {
	if len(img.hdrs) != 2 {
		return false
	}
	a, b := img.hdrs[0], img.hdrs[1]
	return a.HeaderSize == b.HeaderSize &&
		slices.Equal(img.data[a.Offset:a.Offset+a.HeaderSize], img.data[b.Offset:b.Offset+b.HeaderSize])
}

// Payload returns the content of the element. The returned slice shares
// memory with the image.
func (img *Image) Payload(e Element) []byte {
	return img.data[e.Location:e.Limit():e.Limit()]
}
