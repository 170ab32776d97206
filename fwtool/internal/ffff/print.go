// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/embeddedgo/tftf/fwtool/internal/tftf"
)

// Fprint writes a human readable description of the image headers and a
// synopsis of every element.
func Fprint(w io.Writer, img *Image, title string) error {
	bw := bufio.NewWriter(w)
	hdrs := img.Headers()
	for i, h := range hdrs {
		fmt.Fprintf(bw, "%s: FFFF header [%d] at %08x\n", title, i, h.Offset)
		printHeader(bw, h)
	}
	switch {
	case len(hdrs) == 1:
		fmt.Fprintln(bw, "  only one valid header")
	case !img.TablesMatch():
		fmt.Fprintln(bw, "  element tables differ")
	}
	newest := img.Newest()
	fmt.Fprintf(bw, "%s: elements of header at %08x (generation %d)\n", title, newest.Offset, newest.Generation)
	for i, e := range newest.Elements {
		p := img.Payload(e)
		fmt.Fprintf(bw, "  element [%d] (%s) (%d bytes) xxhash64: %016x\n", i, e.Type, e.Length, xxhash.Sum64(p))
		if !tftf.Sniff(p) {
			continue
		}
		c, err := tftf.Parse(p, 0)
		if err == nil {
			err = tftf.Validate(c)
		}
		if err != nil {
			fmt.Fprintf(bw, "    TFTF: %v\n", err)
			continue
		}
		tftf.Fprint(bw, c, fmt.Sprintf("element [%d]", i), tftf.PrintOptions{Indent: "    "})
	}
	return bw.Flush()
}

func printHeader(w io.Writer, h *Header) {
	fmt.Fprintf(w, "  Timestamp:          '%s'\n", h.Timestamp)
	fmt.Fprintf(w, "  Image name:         '%s'\n", h.Name)
	fmt.Fprintf(w, "  Flash capacity:     %08x\n", h.FlashCapacity)
	fmt.Fprintf(w, "  Erase block size:   %08x\n", h.EraseBlock)
	fmt.Fprintf(w, "  Header size:        %08x\n", h.HeaderSize)
	fmt.Fprintf(w, "  Flash image length: %08x\n", h.ImageLength)
	fmt.Fprintf(w, "  Generation:         %08x\n", h.Generation)
	fmt.Fprintf(w, "  Element Table (all values in hex):\n")
	fmt.Fprintf(w, "     Type Class  ID       Length   Location Generation\n")
	for i, e := range h.Elements {
		fmt.Fprintf(w, "  %2d %02x   %06x %08x %08x %08x %08x (%s)\n",
			i, uint8(e.Type), e.Class, e.ID, e.Length, e.Location, e.Generation, e.Type)
		if list := Collisions(h, i); len(list) > 0 {
			fmt.Fprintf(w, "     (collides with: %v)\n", list)
		}
	}
	n := len(h.Elements)
	fmt.Fprintf(w, "  %2d %02x   %06x %08x %08x %08x %08x (%s)\n", n, uint8(End), 0, 0, 0, 0, 0, End)
	if free := Slots(h.HeaderSize) - n - 1; free > 0 {
		fmt.Fprintf(w, "  %2d..%d (unused)\n", n+1, n+free)
	}
}
