// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/embeddedgo/tftf/fwtool/internal/tftf"
	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

var headerFields = []struct {
	name string
	off  int
}{
	{"sentinel", offSentinel},
	{"time_stamp", offTimestamp},
	{"image_name", offName},
	{"flash_capacity", offCapacity},
	{"erase_block_size", offEraseBlock},
	{"header_size", offHeaderSize},
	{"image_length", offImageLength},
	{"generation", offGeneration},
}

var elementFields = []struct {
	name string
	off  int
}{
	{"type", offElType},
	{"class", offElClass},
	{"id", offElID},
	{"length", offElLength},
	{"location", offElLocation},
	{"generation", offElGeneration},
}

func withDot(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	return prefix
}

// WriteHeaderMap writes one "name  offset" line for every field of the
// header and every slot of its element table.
func WriteHeaderMap(w io.Writer, h *Header, prefix string) error {
	bw := bufio.NewWriter(w)
	off := h.Offset
	if prefix != "" {
		fmt.Fprintf(bw, "%s  %08x\n", prefix, off)
	}
	prefix = withDot(prefix)
	for _, f := range headerFields {
		fmt.Fprintf(bw, "%s%s  %08x\n", prefix, f.name, off+uint32(f.off))
	}
	for i := range NumReserved {
		fmt.Fprintf(bw, "%sreserved[%d]  %08x\n", prefix, i, off+uint32(offReserved+i*4))
	}
	fmt.Fprintf(bw, "%selement_table  %08x\n", prefix, off+TableOffset)
	for i, n := 0, Slots(h.HeaderSize); i < n; i++ {
		base := off + uint32(descOffset(i))
		for _, f := range elementFields {
			fmt.Fprintf(bw, "%selement[%d].%s  %08x\n", prefix, i, f.name, base+uint32(f.off))
		}
	}
	fmt.Fprintf(bw, "%stail_sentinel  %08x\n", prefix, off+h.HeaderSize-SentinelSize)
	return bw.Flush()
}

// WriteElementMap writes the location of every element of h. Elements that
// contain a TFTF image are mapped field by field.
func WriteElementMap(w io.Writer, img *Image, h *Header, prefix string) error {
	prefix = withDot(prefix)
	els := append(slices.Clone(h.Elements), Element{Type: End})
	for i, e := range els {
		name := fmt.Sprintf("%selement[%d].%s", prefix, i, e.Type)
		if e.Type != End && e.Location != 0 {
			p := img.Payload(e)
			if tftf.Sniff(p) {
				if c, err := tftf.Parse(p, 0); err == nil {
					if err = tftf.WriteMap(w, c, name, e.Location); err != nil {
						return err
					}
					continue
				}
			}
		}
		if _, err := fmt.Fprintf(w, "%s  %08x\n", name, e.Location); err != nil {
			return err
		}
	}
	return nil
}

// WriteMapFile writes the map of the image to the file named like the image
// file but with the .map extension.
func WriteMapFile(imageName string, img *Image) error {
	var buf bytes.Buffer
	if err := WriteMap(&buf, img); err != nil {
		return err
	}
	return util.WriteFileAtomic(util.ChangeExt(imageName, ".map"), buf.Bytes())
}

// WriteMap writes the map of both headers and of the elements. Identical
// element tables are mapped once.
func WriteMap(w io.Writer, img *Image) error {
	hdrs := img.Headers()
	for i, h := range hdrs {
		if err := WriteHeaderMap(w, h, fmt.Sprintf("ffff[%d]", i)); err != nil {
			return err
		}
	}
	if img.TablesMatch() {
		return WriteElementMap(w, img, hdrs[0], "ffff")
	}
	for i, h := range hdrs {
		if err := WriteElementMap(w, img, h, fmt.Sprintf("ffff[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}
