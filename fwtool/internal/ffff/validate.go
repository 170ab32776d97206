// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"encoding/binary"
	"fmt"
)

// CheckEraseBlock checks that the erase block size is a power of two not
// greater than MaxEraseBlockSize.
func CheckEraseBlock(size uint32) error {
	if size == 0 || size&(size-1) != 0 || size > MaxEraseBlockSize {
		return fmt.Errorf("%w: %#x (power of 2, %#x max)", ErrEraseBlock, size, MaxEraseBlockSize)
	}
	return nil
}

// CheckHeaderSize checks the header size range.
func CheckHeaderSize(size uint32) error {
	if size < MinHeaderSize || size > MaxHeaderSize || size%4 != 0 {
		return fmt.Errorf("%w: %d (%d-%d)", ErrHeaderSize, size, MinHeaderSize, MaxHeaderSize)
	}
	return nil
}

// ParseHeader decodes and validates the header at offset off of the image.
func ParseHeader(data []byte, off uint32) (*Header, error) {
	if uint64(off)+TableOffset > uint64(len(data)) {
		return nil, ErrTruncated
	}
	d := data[off:]
	var rh rawHeader
	if _, err := binary.Decode(d, le, &rh); err != nil {
		return nil, err
	}
	if rh.Sentinel != sentinel {
		return nil, ErrSentinel
	}
	hs := rh.HeaderSize
	if err := CheckHeaderSize(hs); err != nil {
		return nil, err
	}
	if uint64(hs) > uint64(len(d)) {
		return nil, ErrTruncated
	}
	if string(d[hs-SentinelSize:hs]) != string(sentinel[:]) {
		return nil, fmt.Errorf("%w (tail)", ErrSentinel)
	}
	if err := CheckEraseBlock(rh.EraseBlock); err != nil {
		return nil, err
	}
	if uint64(rh.FlashCapacity) < 2*uint64(rh.EraseBlock) {
		return nil, fmt.Errorf("%w: %#x", ErrCapacity, rh.FlashCapacity)
	}
	if rh.ImageLength > rh.FlashCapacity {
		return nil, fmt.Errorf("%w: %#x > %#x", ErrImageLength, rh.ImageLength, rh.FlashCapacity)
	}
	h := &Header{
		Offset:        off,
		Timestamp:     cstring(rh.Timestamp[:]),
		Name:          cstring(rh.Name[:]),
		FlashCapacity: rh.FlashCapacity,
		EraseBlock:    rh.EraseBlock,
		HeaderSize:    hs,
		ImageLength:   rh.ImageLength,
		Generation:    rh.Generation,
	}
	slots := Slots(hs)
	end := -1
	for i := 0; i < slots; i++ {
		e := getElement(d[descOffset(i):])
		if !e.Type.Valid() {
			return nil, &ElementError{i, fmt.Errorf("%w %#02x", ErrElementType, uint8(e.Type))}
		}
		if e.Type == End {
			end = i
			break
		}
		h.Elements = append(h.Elements, e)
	}
	if end < 0 {
		return nil, ErrNoTableEnd
	}
	lo := ElementArea(hs, rh.EraseBlock)
	for i, e := range h.Elements {
		if uint64(e.Location) < lo || e.Limit() > uint64(rh.ImageLength) {
			return nil, &ElementError{i, fmt.Errorf("%w [%#x, %#x)", ErrElementRange, lo, rh.ImageLength)}
		}
		if !aligned(e.Location, rh.EraseBlock) {
			return nil, &ElementError{i, ErrAlignment}
		}
		for j := i + 1; j < len(h.Elements); j++ {
			o := h.Elements[j]
			if e.Overlaps(o) {
				return nil, &ElementError{i, fmt.Errorf("%w with element [%d]", ErrCollision, j)}
			}
			if e.Type == o.Type && e.ID == o.ID && e.Generation == o.Generation {
				return nil, &ElementError{i, fmt.Errorf("%w: element [%d]", ErrDuplicate, j)}
			}
		}
		if e.Limit() > uint64(len(data)) {
			return nil, &ElementError{i, ErrTruncated}
		}
	}
	if !zeroed(d[offReserved:TableOffset]) || !zeroed(d[descOffset(end)+1:hs-SentinelSize]) {
		return nil, ErrNonZeroPad
	}
	return h, nil
}

// Collisions returns the indexes of the other elements of h that overlap
// element i.
func Collisions(h *Header, i int) []int {
	if i < 0 || i >= len(h.Elements) {
		return nil
	}
	var list []int
	for j, o := range h.Elements {
		if j != i && h.Elements[i].Overlaps(o) {
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
