// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"encoding/binary"
	"fmt"
)

// Container is a TFTF image held in memory: the header followed by the
// payloads of the described sections.
type Container struct {
	data       []byte
	headerSize uint32 // in effect, may differ from the declared one
}

// Parse wraps data as a container. Parse takes ownership of data. If
// headerSize is 0 the size declared in the header is used and it must obey
// the rules checked by CheckHeaderSize. Parse doesn't validate the image, use
// Validate for that.
func Parse(data []byte, headerSize uint32) (*Container, error) {
	if len(data) < TableOffset {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	if !Sniff(data) {
		return nil, ErrSentinel
	}
	if headerSize == 0 {
		headerSize = le.Uint32(data[offHeaderSize:])
		if err := CheckHeaderSize(headerSize); err != nil {
			return nil, err
		}
	} else if Slots(headerSize) < 1 {
		return nil, fmt.Errorf("%w: %d", ErrHeaderSize, headerSize)
	}
	if uint64(len(data)) < uint64(headerSize) {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d",
			ErrTruncated, len(data), headerSize)
	}
	return &Container{data: data, headerSize: headerSize}, nil
}

// Sniff reports whether data starts with the TFTF sentinel.
func Sniff(data []byte) bool {
	return len(data) >= SentinelSize && string(data[:SentinelSize]) == string(sentinel[:])
}

// Bytes returns the encoded image. It must not be modified.
func (c *Container) Bytes() []byte { return c.data }

func (c *Container) Len() int { return len(c.data) }

// HeaderSize returns the header size in effect.
func (c *Container) HeaderSize() uint32 { return c.headerSize }

// Header decodes the identity fields of the header.
func (c *Container) Header() Header {
	var rh rawHeader
	binary.Decode(c.data, le, &rh)
	return Header{
		HeaderSize:  rh.HeaderSize,
		Timestamp:   cstring(rh.Timestamp[:]),
		Name:        cstring(rh.Name[:]),
		PackageType: PackageType(rh.PackageType),
		Start:       rh.Start,
		UniproMID:   rh.UniproMID,
		UniproPID:   rh.UniproPID,
		AraVID:      rh.AraVID,
		AraPID:      rh.AraPID,
	}
}

// Slot returns the i-th descriptor of the section table.
func (c *Container) Slot(i int) Section {
	off := descOffset(i)
	return getSection(c.data[off : off+DescriptorSize])
}

// NumSlots returns the size of the section table in descriptors.
func (c *Container) NumSlots() int {
	return Slots(c.headerSize)
}

// EndIndex returns the slot of the end marker or -1 if there is none.
func (c *Container) EndIndex() int {
	for i, n := 0, c.NumSlots(); i < n; i++ {
		if c.Slot(i).Type == End {
			return i
		}
	}
	return -1
}

// Sections returns the descriptors before the end marker.
func (c *Container) Sections() []Section {
	var secs []Section
	for i, n := 0, c.NumSlots(); i < n; i++ {
		s := c.Slot(i)
		if s.Type == End {
			break
		}
		secs = append(secs, s)
	}
	return secs
}

// PayloadSize returns the sum of the stored lengths of all sections.
func (c *Container) PayloadSize() uint64 {
	var n uint64
	for _, s := range c.Sections() {
		n += uint64(s.Length)
	}
	return n
}

// Payload returns the stored payload of the i-th section. The returned slice
// shares memory with the container.
func (c *Container) Payload(i int) ([]byte, error) {
	secs := c.Sections()
	if i < 0 || i >= len(secs) {
		return nil, fmt.Errorf("no section [%d]", i)
	}
	off := uint64(c.headerSize)
	for _, s := range secs[:i] {
		off += uint64(s.Length)
	}
	end := off + uint64(secs[i].Length)
	if end > uint64(len(c.data)) {
		return nil, &SectionError{i, ErrTruncated}
	}
	return c.data[off:end:end], nil
}
