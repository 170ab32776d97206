// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ffff builds and reads FFFF (Flash Format For Firmware) images. An
// FFFF image describes the whole flash: two copies of a header with a table
// of elements and the elements themselves placed at absolute, erase block
// aligned locations.
package ffff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	SentinelSize  = 16
	TimestampSize = 16
	NameSize      = 48
	NumReserved   = 8

	// TableOffset is the offset of the element table in the header.
	TableOffset    = 132
	DescriptorSize = 20

	MinHeaderSize     = 512
	MaxHeaderSize     = 4096
	DefaultHeaderSize = MaxHeaderSize

	MaxEraseBlockSize = 256 * 1024

	maxClass = 1<<24 - 1
)

const (
	offSentinel    = 0
	offTimestamp   = 16
	offName        = 32
	offCapacity    = 80
	offEraseBlock  = 84
	offHeaderSize  = 88
	offImageLength = 92
	offGeneration  = 96
	offReserved    = 100
)

const (
	offElType       = 0
	offElClass      = 1
	offElID         = 4
	offElLength     = 8
	offElLocation   = 12
	offElGeneration = 16
)

const TimestampLayout = "20060102 150405"

var sentinel = [SentinelSize]byte{
	'F', 'l', 'a', 's', 'h', 'F', 'o', 'r', 'm', 'a', 't', 'F', 'o', 'r', 'F', 'W',
}

var le = binary.LittleEndian

type rawHeader struct {
	Sentinel      [SentinelSize]byte
	Timestamp     [TimestampSize]byte
	Name          [NameSize]byte
	FlashCapacity uint32
	EraseBlock    uint32
	HeaderSize    uint32
	ImageLength   uint32
	Generation    uint32
	Reserved      [NumReserved]uint32
}

type ElementType uint8

const (
	S2FW ElementType = 0x01 // stage 2 firmware
	S3FW ElementType = 0x02 // stage 3 firmware
	IMS  ElementType = 0x03 // IMS certificate
	CMS  ElementType = 0x04 // CMS certificate
	Data ElementType = 0x05
	End  ElementType = 0xfe
)

func (t ElementType) Valid() bool {
	return (t >= S2FW && t <= Data) || t == End
}

func (t ElementType) String() string {
	switch t {
	case S2FW:
		return "s2fw"
	case S3FW:
		return "s3fw"
	case IMS:
		return "ims"
	case CMS:
		return "cms"
	case Data:
		return "data"
	case End:
		return "end"
	}
	return "?"
}

// Element is a decoded element descriptor.
type Element struct {
	Type       ElementType
	Class      uint32 // 24 bits
	ID         uint32
	Length     uint32
	Location   uint32 // absolute offset in the flash
	Generation uint32
}

// Limit returns the first offset past the element.
func (e Element) Limit() uint64 {
	return uint64(e.Location) + uint64(e.Length)
}

// Overlaps reports whether two elements share at least one byte.
func (e Element) Overlaps(o Element) bool {
	return uint64(o.Location) < e.Limit() && uint64(e.Location) < o.Limit()
}

// Header is a decoded FFFF header.
type Header struct {
	Offset        uint32 // of the header in the image
	Timestamp     string
	Name          string
	FlashCapacity uint32
	EraseBlock    uint32
	HeaderSize    uint32
	ImageLength   uint32
	Generation    uint32
	Elements      []Element // before the end marker
}

// Slots returns the number of descriptors that fit in the element table of
// a header of the given size, the end marker included.
func Slots(headerSize uint32) int {
	if headerSize < TableOffset+SentinelSize {
		return 0
	}
	return int(headerSize-TableOffset-SentinelSize) / DescriptorSize
}

// MaxElements returns the number of elements a header of the given size can
// describe.
func MaxElements(headerSize uint32) int {
	return max(Slots(headerSize)-1, 0)
}

// NextBoundary rounds loc up to a multiple of the power of two block size.
func NextBoundary(loc, block uint32) uint32 {
	return uint32(nextBoundary(uint64(loc), block))
}

func nextBoundary(loc uint64, block uint32) uint64 {
	b := uint64(block) - 1
	return (loc + b) &^ b
}

func aligned(loc, block uint32) bool {
	return loc&(block-1) == 0
}

// ElementArea returns the lowest location an element can have: space is
// reserved for both header copies.
func ElementArea(headerSize, eraseBlock uint32) uint64 {
	return 2 * nextBoundary(uint64(headerSize), eraseBlock)
}

func descOffset(i int) int {
	return TableOffset + i*DescriptorSize
}

func getElement(b []byte) Element {
	tc := le.Uint32(b[offElType:])
	return Element{
		Type:       ElementType(tc),
		Class:      tc >> 8,
		ID:         le.Uint32(b[offElID:]),
		Length:     le.Uint32(b[offElLength:]),
		Location:   le.Uint32(b[offElLocation:]),
		Generation: le.Uint32(b[offElGeneration:]),
	}
}

func putElement(b []byte, e Element) {
	le.PutUint32(b[offElType:], uint32(e.Type)|e.Class<<8)
	le.PutUint32(b[offElID:], e.ID)
	le.PutUint32(b[offElLength:], e.Length)
	le.PutUint32(b[offElLocation:], e.Location)
	le.PutUint32(b[offElGeneration:], e.Generation)
}

func cstring(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

var (
	ErrSentinel     = errors.New("bad sentinel")
	ErrHeaderSize   = errors.New("bad header size")
	ErrEraseBlock   = errors.New("bad erase block size")
	ErrCapacity     = errors.New("flash capacity smaller than two erase blocks")
	ErrImageLength  = errors.New("image length exceeds flash capacity")
	ErrElementType  = errors.New("unknown element type")
	ErrElementRange = errors.New("element outside the element area")
	ErrAlignment    = errors.New("element isn't erase block aligned")
	ErrCollision    = errors.New("element collides")
	ErrDuplicate    = errors.New("duplicate element (type, id, generation)")
	ErrNoTableEnd   = errors.New("element table has no end marker")
	ErrNonZeroPad   = errors.New("non-zero padding in header")
	ErrTruncated    = errors.New("image is truncated")
	ErrNoHeader     = errors.New("no valid FFFF header")

	ErrCacheFull     = errors.New("too many elements")
	ErrTableFull     = errors.New("element table is full")
	ErrNoOpenElement = errors.New("no open element")
	ErrClassRange    = errors.New("element class doesn't fit in 24 bits")
	ErrTooLarge      = errors.New("content doesn't fit")
)

// ElementError reports a problem with the element at Index in the element
// table.
type ElementError struct {
	Index int
	Err   error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element [%d]: %v", e.Index, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }
