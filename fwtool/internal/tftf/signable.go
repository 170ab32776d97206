// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// SignableRegion returns copies of the two byte ranges covered by a
// signature: the header up to the first signature descriptor (or the end
// marker if there is no signature) and the payloads of all sections before
// that descriptor.
func SignableRegion(c *Container) (header, payload []byte, err error) {
	if err = Validate(c); err != nil {
		return nil, nil, err
	}
	secs := c.Sections()
	n := len(secs)
	for i, s := range secs {
		if s.Type == Signature {
			n = i
			break
		}
	}
	var size uint64
	for _, s := range secs[:n] {
		size += uint64(s.Length)
	}
	off := uint64(c.headerSize)
	header = slices.Clone(c.data[:descOffset(n)])
	payload = slices.Clone(c.data[off : off+size])
	return header, payload, nil
}

// Signature algorithms.
const (
	AlgRSA2048SHA256 uint32 = 1
)

const (
	KeyNameSize       = 96
	SignatureDataSize = 256

	// SignatureRecordSize is the payload length of a signature section.
	SignatureRecordSize = 8 + KeyNameSize + SignatureDataSize
)

var ErrSignatureRecord = errors.New("bad signature record")

// SignatureRecord is the payload of a signature section.
type SignatureRecord struct {
	Type      uint32
	KeyName   string
	Signature []byte
}

type rawSignature struct {
	Length    uint32
	Type      uint32
	KeyName   [KeyNameSize]byte
	Signature [SignatureDataSize]byte
}

// MarshalBinary encodes the record. The key name and the signature must fit
// in their fields (KeyNameSize-1 and SignatureDataSize bytes).
func (r *SignatureRecord) MarshalBinary() ([]byte, error) {
	if len(r.KeyName) >= KeyNameSize {
		return nil, fmt.Errorf("%w: key name longer than %d", ErrSignatureRecord, KeyNameSize-1)
	}
	if len(r.Signature) > SignatureDataSize {
		return nil, fmt.Errorf("%w: signature longer than %d", ErrSignatureRecord, SignatureDataSize)
	}
	rs := rawSignature{Length: SignatureRecordSize, Type: r.Type}
	copy(rs.KeyName[:], r.KeyName)
	copy(rs.Signature[:], r.Signature)
	buf := make([]byte, SignatureRecordSize)
	if _, err := binary.Encode(buf, le, &rs); err != nil {
		return nil, err
	}
	return buf, nil
}

// UnmarshalBinary decodes the record.
func (r *SignatureRecord) UnmarshalBinary(data []byte) error {
	var rs rawSignature
	if len(data) < SignatureRecordSize {
		return fmt.Errorf("%w: %d bytes", ErrSignatureRecord, len(data))
	}
	if _, err := binary.Decode(data, le, &rs); err != nil {
		return err
	}
	if rs.Length != SignatureRecordSize {
		return fmt.Errorf("%w: declared length %d", ErrSignatureRecord, rs.Length)
	}
	r.Type = rs.Type
	r.KeyName = cstring(rs.KeyName[:])
	r.Signature = slices.Clone(rs.Signature[:])
	return nil
}
