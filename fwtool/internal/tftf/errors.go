// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrSentinel          = errors.New("bad sentinel")
	ErrHeaderSize        = errors.New("bad header size")
	ErrSectionType       = errors.New("unknown section type")
	ErrRestrictedAddress = errors.New("signature and certificate sections can't have a load address")
	ErrSectionOrder      = errors.New("code and data can't follow signature or certificate")
	ErrCompression       = errors.New("expanded length is smaller than stored length")
	ErrCollision         = errors.New("section collides")
	ErrNoTableEnd        = errors.New("section table has no end marker")
	ErrStartNotInCode    = errors.New("start address is not inside exactly one code section")
	ErrNonZeroPad        = errors.New("non-zero padding in header")
	ErrTruncated         = errors.New("image is truncated")
)

// Staging and building errors.
var (
	ErrCacheFull        = errors.New("too many sections")
	ErrTableFull        = errors.New("section table is full")
	ErrNoOpenSection    = errors.New("no open section")
	ErrSectionOpen      = errors.New("cache has an open section")
	ErrOverrun          = errors.New("sections don't fit in the payload")
	ErrClassRange       = errors.New("section class doesn't fit in 24 bits")
	ErrNoObjectSections = errors.New("no loadable sections in object file")
)

// SectionError reports a problem with the section at Index in the section
// table.
type SectionError struct {
	Index int
	Err   error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section [%d]: %v", e.Index, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }
