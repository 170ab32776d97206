// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"fmt"
	"math"

	"github.com/marcinbor85/gohex"
)

// WriteHex writes data, placed at the base address, to the named file in the
// Intel HEX format.
func WriteHex(name string, base uint32, data []byte) error {
	if uint64(base)+uint64(len(data)) > math.MaxUint32+1 {
		return fmt.Errorf("hex: %d bytes at %#x don't fit in 32-bit address space", len(data), base)
	}
	mem := gohex.NewMemory()
	if err := mem.AddBinary(base, data); err != nil {
		return fmt.Errorf("hex: %w", err)
	}
	var buf bytes.Buffer
	if err := mem.DumpIntelHex(&buf, 16); err != nil {
		return fmt.Errorf("dumpintelhex: %w", err)
	}
	return WriteFileAtomic(name, buf.Bytes())
}
