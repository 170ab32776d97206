// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

var headerFields = []struct {
	name string
	off  int
}{
	{"sentinel", offSentinel},
	{"header_size", offHeaderSize},
	{"timestamp", offTimestamp},
	{"firmware_name", offName},
	{"package_type", offPkgType},
	{"start_location", offStart},
	{"unipro_mfgr_id", offUniproMID},
	{"unipro_product_id", offUniproPID},
	{"ara_vendor_id", offAraVID},
	{"ara_product_id", offAraPID},
}

var sectionFields = []struct {
	name string
	off  int
}{
	{"type", offSecType},
	{"class", offSecClass},
	{"id", offSecID},
	{"section_length", offSecLength},
	{"load_address", offSecLoad},
	{"expanded_length", offSecExpanded},
}

// WriteMap writes one "name  offset" line for every header field and every
// field of every section table slot. The offsets are relative to the given
// base offset. A non-empty prefix is written as a line of its own and
// prepended, followed by a dot, to all the field names.
func WriteMap(w io.Writer, c *Container, prefix string, offset uint32) error {
	bw := bufio.NewWriter(w)
	if prefix != "" {
		fmt.Fprintf(bw, "%s  %08x\n", prefix, offset)
		if !strings.HasSuffix(prefix, ".") {
			prefix += "."
		}
	}
	for _, f := range headerFields {
		fmt.Fprintf(bw, "%s%s  %08x\n", prefix, f.name, offset+uint32(f.off))
	}
	for i := range NumReserved {
		fmt.Fprintf(bw, "%sreserved[%d]  %08x\n", prefix, i, offset+uint32(offReserved+i*4))
	}
	for i, n := 0, c.NumSlots(); i < n; i++ {
		base := offset + uint32(descOffset(i))
		for _, f := range sectionFields {
			fmt.Fprintf(bw, "%ssection[%d].%s  %08x\n", prefix, i, f.name, base+uint32(f.off))
		}
	}
	return bw.Flush()
}

// WriteMapFile writes the map of c to the file named like the image file but
// with the .map extension.
func WriteMapFile(imageName string, c *Container) error {
	var buf bytes.Buffer
	if err := WriteMap(&buf, c, "tftf", 0); err != nil {
		return err
	}
	return util.WriteFileAtomic(util.ChangeExt(imageName, ".map"), buf.Bytes())
}
