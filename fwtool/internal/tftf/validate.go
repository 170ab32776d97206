// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import "fmt"

// Validate checks the structural integrity of the container. The checks are
// done in a fixed order and the first failure is reported. Problems with a
// specific descriptor are reported as *SectionError.
func Validate(c *Container) error {
	d := c.data
	if len(d) < TableOffset {
		return ErrTruncated
	}
	if !Sniff(d) {
		return ErrSentinel
	}
	hs := le.Uint32(d[offHeaderSize:])
	if hs != c.headerSize || Slots(hs) < 1 {
		return fmt.Errorf("%w: header declares %d bytes, %d expected",
			ErrHeaderSize, hs, c.headerSize)
	}
	if uint64(len(d)) < uint64(hs) {
		return ErrTruncated
	}
	start := le.Uint32(d[offStart:])
	slots := Slots(hs)
	end := -1
	restricted := false
	inCode := 0
	for i := 0; i < slots; i++ {
		s := c.Slot(i)
		if !s.Type.Valid() {
			return &SectionError{i, fmt.Errorf("%w %#02x", ErrSectionType, uint8(s.Type))}
		}
		if s.Type == End {
			end = i
			break
		}
		if s.Type.Restricted() {
			if s.Placed() {
				return &SectionError{i, ErrRestrictedAddress}
			}
			restricted = true
		} else if restricted && s.Type.IsCodeOrData() {
			return &SectionError{i, ErrSectionOrder}
		}
		if !s.Placed() {
			continue
		}
		if s.ExpandedLength < s.Length {
			return &SectionError{i, ErrCompression}
		}
		if j := c.collision(i, s); j >= 0 {
			return &SectionError{i, fmt.Errorf("%w with section [%d]", ErrCollision, j)}
		}
		if s.Type.IsCode() && s.Contains(start) {
			inCode++
		}
	}
	if end < 0 {
		return ErrNoTableEnd
	}
	if start != 0 && inCode != 1 {
		return fmt.Errorf("%w: %#08x", ErrStartNotInCode, start)
	}
	if !zeroed(d[offReserved:TableOffset]) || !zeroed(d[descOffset(end)+1:hs]) {
		return ErrNonZeroPad
	}
	if uint64(len(d)) < uint64(hs)+c.PayloadSize() {
		return fmt.Errorf("%w: payload needs %d bytes, %d available",
			ErrTruncated, c.PayloadSize(), uint64(len(d))-uint64(hs))
	}
	return nil
}

// collision returns the index of the first section after i that overlaps s
// or -1.
func (c *Container) collision(i int, s Section) int {
	for j, n := i+1, c.NumSlots(); j < n; j++ {
		o := c.Slot(j)
		if o.Type == End {
			break
		}
		if o.Placed() && s.Overlaps(o) {
			return j
		}
	}
	return -1
}

// Collisions returns the indexes of all other placed sections whose expanded
// range overlaps the expanded range of section i.
func Collisions(c *Container, i int) []int {
	secs := c.Sections()
	if i < 0 || i >= len(secs) || !secs[i].Placed() {
		return nil
	}
	var list []int
	for j, o := range secs {
		if j != i && o.Placed() && secs[i].Overlaps(o) {
			list = append(list, j)
		}
	}
	return list
}

func zeroed(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
