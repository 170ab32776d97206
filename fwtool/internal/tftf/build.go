// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"encoding/binary"
	"fmt"
)

// Build assembles an image that consists of the header described by hdr
// followed by payloadSize bytes of payload taken from the closed cache c.
// Usually payloadSize is c.TotalSize(). Build fails with ErrSectionOpen if c
// has an open section. hdr.Timestamp is ignored, the current time is used instead. A zero
// hdr.HeaderSize means DefaultHeaderSize and a zero hdr.PackageType means
// DefaultPackageType. The returned container is always valid.
func Build(hdr Header, payloadSize int, c *Cache, opts ...Option) (*Container, error) {
	cfg := newConfig(opts)
	if c.open {
		return nil, ErrSectionOpen
	}
	hs := hdr.HeaderSize
	if hs == 0 {
		hs = DefaultHeaderSize
	}
	if hs%4 != 0 || Slots(hs) < 1 {
		return nil, fmt.Errorf("%w: %d", ErrHeaderSize, hs)
	}
	if n := c.Count(); n > MaxSections(hs) {
		return nil, fmt.Errorf("%w: %d sections, %d max", ErrTableFull, n, MaxSections(hs))
	}
	if payloadSize < 0 {
		return nil, fmt.Errorf("bad payload size %d", payloadSize)
	}
	data := make([]byte, int(hs)+payloadSize)
	if err := writeHeader(data, hdr, hs, cfg); err != nil {
		return nil, err
	}
	i := 0
	err := c.Iterate(data[hs:], func(s Section, _ []byte) error {
		putSection(data[descOffset(i):], s)
		i++
		return nil
	})
	if err != nil {
		return nil, err
	}
	putSection(data[descOffset(i):], Section{Type: End})
	ct := &Container{data: data, headerSize: hs}
	if err := Validate(ct); err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	cfg.log.Info("image built", "name", hdr.Name, "sections", i, "size", len(data))
	return ct, nil
}

func writeHeader(data []byte, hdr Header, hs uint32, cfg config) error {
	rh := rawHeader{
		Sentinel:    sentinel,
		HeaderSize:  hs,
		PackageType: uint32(hdr.PackageType),
		Start:       hdr.Start,
		UniproMID:   hdr.UniproMID,
		UniproPID:   hdr.UniproPID,
		AraVID:      hdr.AraVID,
		AraPID:      hdr.AraPID,
	}
	if rh.PackageType == 0 {
		rh.PackageType = uint32(DefaultPackageType)
	}
	copy(rh.Timestamp[:], cfg.now().UTC().Format(TimestampLayout))
	name := hdr.Name
	if len(name) >= NameSize {
		name = name[:NameSize-1]
		cfg.log.Warn("firmware name truncated", "name", name)
	}
	copy(rh.Name[:], name)
	_, err := binary.Encode(data, le, &rh)
	return err
}

// AppendSection returns a new image made of the valid image c extended by
// one section with the given payload. The stored length of s is set to the
// payload length. c is not modified.
func AppendSection(c *Container, s Section, payload []byte) (*Container, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}
	end := c.EndIndex()
	if end+2 > c.NumSlots() {
		return nil, fmt.Errorf("%w: %d sections, %d max", ErrTableFull, end, MaxSections(c.headerSize))
	}
	if !s.Type.Valid() || s.Type == End {
		return nil, fmt.Errorf("%w %#02x", ErrSectionType, uint8(s.Type))
	}
	if s.Class > maxClass {
		return nil, fmt.Errorf("%w: %#x", ErrClassRange, s.Class)
	}
	if s.Type.Restricted() && s.Placed() {
		return nil, ErrRestrictedAddress
	}
	if s.Type.IsCodeOrData() {
		for _, o := range c.Sections() {
			if o.Type.Restricted() {
				return nil, ErrSectionOrder
			}
		}
	}
	s.Length = uint32(len(payload))
	if !s.Type.Compressed() {
		s.ExpandedLength = s.Length
	}
	tail := uint64(c.headerSize) + c.PayloadSize()
	data := make([]byte, tail+uint64(len(payload)))
	copy(data, c.data[:tail])
	putSection(data[descOffset(end):], s)
	putSection(data[descOffset(end+1):], Section{Type: End})
	copy(data[tail:], payload)
	ct := &Container{data: data, headerSize: c.headerSize}
	if err := Validate(ct); err != nil {
		return nil, err
	}
	return ct, nil
}
