// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tftf builds and validates TFTF (Trusted Firmware Transfer Format)
// images: a fixed header with a table of section descriptors followed by the
// section payloads, in the order of the table.
package tftf

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	SentinelSize  = 4
	TimestampSize = 16
	NameSize      = 48
	NumReserved   = 8

	// TableOffset is the offset of the section table in the header.
	TableOffset    = 128
	DescriptorSize = 20

	DefaultHeaderSize = 512
	MinHeaderSize     = 512
	MaxHeaderSize     = 32 * 1024

	// LoadIgnored is the load address of sections that aren't placed in
	// memory (signatures and certificates).
	LoadIgnored uint32 = 0xffffffff

	maxClass = 1<<24 - 1
)

// Header field offsets.
const (
	offSentinel   = 0
	offHeaderSize = 4
	offTimestamp  = 8
	offName       = 24
	offPkgType    = 72
	offStart      = 76
	offUniproMID  = 80
	offUniproPID  = 84
	offAraVID     = 88
	offAraPID     = 92
	offReserved   = 96
)

// Section descriptor field offsets.
const (
	offSecType     = 0
	offSecClass    = 1
	offSecID       = 4
	offSecLength   = 8
	offSecLoad     = 12
	offSecExpanded = 16
)

// TimestampLayout is the time.Format layout of the build timestamp.
const TimestampLayout = "20060102 150405"

var sentinel = [SentinelSize]byte{'T', 'F', 'T', 'F'}

var le = binary.LittleEndian

// rawHeader is the fixed part of the header as stored.
type rawHeader struct {
	Sentinel    [SentinelSize]byte
	HeaderSize  uint32
	Timestamp   [TimestampSize]byte
	Name        [NameSize]byte
	PackageType uint32
	Start       uint32
	UniproMID   uint32
	UniproPID   uint32
	AraVID      uint32
	AraPID      uint32
	Reserved    [NumReserved]uint32
}

type SectionType uint8

const (
	RawCode        SectionType = 0x01
	RawData        SectionType = 0x02
	CompressedCode SectionType = 0x03
	CompressedData SectionType = 0x04
	Manifest       SectionType = 0x05
	Signature      SectionType = 0x80
	Certificate    SectionType = 0x81
	End            SectionType = 0xfe
)

// Valid reports whether t is a known section type (End included).
func (t SectionType) Valid() bool {
	return (t >= RawCode && t <= Manifest) || t == Signature ||
		t == Certificate || t == End
}

func (t SectionType) IsCode() bool {
	return t == RawCode || t == CompressedCode
}

func (t SectionType) IsCodeOrData() bool {
	return t >= RawCode && t <= CompressedData
}

// Compressed reports whether the payload of a section of this type is stored
// compressed.
func (t SectionType) Compressed() bool {
	return t == CompressedCode || t == CompressedData
}

// Restricted reports whether sections of this type carry no placement and
// must not be followed by code or data.
func (t SectionType) Restricted() bool {
	return t == Signature || t == Certificate
}

func (t SectionType) String() string {
	switch t {
	case RawCode:
		return "code"
	case RawData:
		return "data"
	case CompressedCode:
		return "compressed code"
	case CompressedData:
		return "compressed data"
	case Manifest:
		return "manifest"
	case Signature:
		return "signature"
	case Certificate:
		return "certificate"
	case End:
		return "end of sections"
	}
	return "?"
}

// PackageType classifies the firmware carried by the image.
type PackageType uint32

const (
	PackageS2FW PackageType = 1
	PackageS3FW PackageType = 2

	DefaultPackageType = PackageS3FW
)

func (p PackageType) String() string {
	switch p {
	case PackageS2FW:
		return "s2fw"
	case PackageS3FW:
		return "s3fw"
	}
	return fmt.Sprintf("%#x", uint32(p))
}

// BootStage returns 2 or 3 for known package types and -1 otherwise.
func (p PackageType) BootStage() int {
	switch p {
	case PackageS2FW:
		return 2
	case PackageS3FW:
		return 3
	}
	return -1
}

// ParsePackageType accepts "s2fw", "s3fw" or a number.
func ParsePackageType(s string) (PackageType, error) {
	switch strings.ToLower(s) {
	case "s2fw":
		return PackageS2FW, nil
	case "s3fw":
		return PackageS3FW, nil
	}
	var u uint32
	if _, err := fmt.Sscan(s, &u); err != nil {
		return 0, fmt.Errorf("bad package type '%s' (use s2fw or s3fw)", s)
	}
	return PackageType(u), nil
}

// Header holds the identity fields of an image.
type Header struct {
	HeaderSize  uint32
	Timestamp   string
	Name        string
	PackageType PackageType
	Start       uint32 // entry point, 0 if none
	UniproMID   uint32
	UniproPID   uint32
	AraVID      uint32
	AraPID      uint32
}

// Section is a decoded section descriptor.
type Section struct {
	Type           SectionType
	Class          uint32 // 24 bits
	ID             uint32
	Length         uint32 // stored bytes
	LoadAddress    uint32
	ExpandedLength uint32 // bytes after decompression
}

// Placed reports whether the section has a real load address.
func (s Section) Placed() bool {
	return s.LoadAddress != LoadIgnored
}

// Limit returns the first address past the expanded section.
func (s Section) Limit() uint64 {
	return uint64(s.LoadAddress) + uint64(s.ExpandedLength)
}

// Contains reports whether the expanded section covers the address.
func (s Section) Contains(addr uint32) bool {
	return addr >= s.LoadAddress && uint64(addr) < s.Limit()
}

// Overlaps reports whether the expanded ranges of two placed sections share
// at least one byte.
func (s Section) Overlaps(o Section) bool {
	return uint64(o.LoadAddress) < s.Limit() && uint64(s.LoadAddress) < o.Limit()
}

// Slots returns the number of descriptors that fit in the section table of
// a header of the given size, the end marker included.
func Slots(headerSize uint32) int {
	if headerSize < TableOffset {
		return 0
	}
	return int(headerSize-TableOffset) / DescriptorSize
}

// MaxSections returns the number of real sections a header of the given size
// can describe.
func MaxSections(headerSize uint32) int {
	return max(Slots(headerSize)-1, 0)
}

// CheckHeaderSize checks the header size against the rules for images
// created by the tools.
func CheckHeaderSize(size uint32) error {
	if size < MinHeaderSize || size > MaxHeaderSize || size&(size-1) != 0 {
		return fmt.Errorf("%w: %d is out of range (%#x-%#x, power of 2)",
			ErrHeaderSize, size, MinHeaderSize, MaxHeaderSize)
	}
	return nil
}

func descOffset(i int) int {
	return TableOffset + i*DescriptorSize
}

func getSection(b []byte) Section {
	tc := le.Uint32(b[offSecType:])
	return Section{
		Type:           SectionType(tc),
		Class:          tc >> 8,
		ID:             le.Uint32(b[offSecID:]),
		Length:         le.Uint32(b[offSecLength:]),
		LoadAddress:    le.Uint32(b[offSecLoad:]),
		ExpandedLength: le.Uint32(b[offSecExpanded:]),
	}
}

func putSection(b []byte, s Section) {
	le.PutUint32(b[offSecType:], uint32(s.Type)|s.Class<<8)
	le.PutUint32(b[offSecID:], s.ID)
	le.PutUint32(b[offSecLength:], s.Length)
	le.PutUint32(b[offSecLoad:], s.LoadAddress)
	le.PutUint32(b[offSecExpanded:], s.ExpandedLength)
}

// cstring returns the NUL terminated string stored in b.
func cstring(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
