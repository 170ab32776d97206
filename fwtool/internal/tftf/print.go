// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"bufio"
	_ "crypto/sha256"
	"fmt"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/opencontainers/go-digest"

	"github.com/embeddedgo/tftf/fwtool/internal/compress"
)

// Digest returns the SHA-256 digest of the signable region of c.
func Digest(c *Container) (digest.Digest, error) {
	hdr, payload, err := SignableRegion(c)
	if err != nil {
		return "", err
	}
	d := digest.SHA256.Digester()
	d.Hash().Write(hdr)
	d.Hash().Write(payload)
	return d.Digest(), nil
}

// PrintOptions control the Fprint output.
type PrintOptions struct {
	Indent string

	// Codec, if not nil, is used to expand compressed sections and check
	// their expanded length.
	Codec compress.Codec
}

// Fprint writes a human readable description of the image: the header, the
// section table with collisions and a synopsis of every section.
func Fprint(w io.Writer, c *Container, title string, o PrintOptions) error {
	bw := bufio.NewWriter(w)
	in := o.Indent
	h := c.Header()
	fmt.Fprintf(bw, "%sTFTF header for %s (%d bytes)\n", in, title, c.PayloadSize())
	fmt.Fprintf(bw, "%s  Sentinel:          %s\n", in, strconv.Quote(string(c.data[:SentinelSize])))
	fmt.Fprintf(bw, "%s  Header size:       %08x\n", in, h.HeaderSize)
	fmt.Fprintf(bw, "%s  Timestamp:         '%s'\n", in, h.Timestamp)
	fmt.Fprintf(bw, "%s  Fw. pkg name:      '%s'\n", in, h.Name)
	fmt.Fprintf(bw, "%s  Package type:      %08x (%s)\n", in, uint32(h.PackageType), h.PackageType)
	fmt.Fprintf(bw, "%s  Start location:    %08x\n", in, h.Start)
	fmt.Fprintf(bw, "%s  Unipro mfg ID:     %08x\n", in, h.UniproMID)
	fmt.Fprintf(bw, "%s  Unipro product ID: %08x\n", in, h.UniproPID)
	fmt.Fprintf(bw, "%s  Ara vendor ID:     %08x\n", in, h.AraVID)
	fmt.Fprintf(bw, "%s  Ara product ID:    %08x\n", in, h.AraPID)
	for i := range NumReserved {
		fmt.Fprintf(bw, "%s    Reserved [%d]:    %08x\n", in, i, le.Uint32(c.data[offReserved+i*4:]))
	}
	printTable(bw, c, in)
	printSections(bw, c, in, o.Codec)
	if d, err := Digest(c); err == nil {
		fmt.Fprintf(bw, "%s  Signable digest: %s\n", in, d)
	}
	return bw.Flush()
}

func printTable(w io.Writer, c *Container, in string) {
	fmt.Fprintf(w, "%s  Section Table (all values in hex):\n", in)
	fmt.Fprintf(w, "%s     Type Class  ID       Length   Load     Exp.Len\n", in)
	n := c.NumSlots()
	i := 0
	for ; i < n; i++ {
		s := c.Slot(i)
		fmt.Fprintf(w, "%s  %2d %02x   %06x %08x %08x %08x %08x (%s)\n",
			in, i, uint8(s.Type), s.Class, s.ID, s.Length, s.LoadAddress,
			s.ExpandedLength, s.Type)
		if s.Type == End {
			i++
			break
		}
		if list := Collisions(c, i); len(list) > 0 {
			fmt.Fprintf(w, "%s     (collides with:", in)
			for _, j := range list {
				fmt.Fprintf(w, " %d", j)
			}
			fmt.Fprintln(w, ")")
		}
	}
	switch {
	case i >= n:
	case n-i <= 2:
		for ; i < n; i++ {
			fmt.Fprintf(w, "%s  %2d (unused)\n", in, i)
		}
	default:
		fmt.Fprintf(w, "%s  %2d (unused)\n", in, i)
		fmt.Fprintf(w, "%s   :    :\n", in)
		fmt.Fprintf(w, "%s  %2d (unused)\n", in, n-1)
	}
}

func printSections(w io.Writer, c *Container, in string, codec compress.Codec) {
	for i, s := range c.Sections() {
		fmt.Fprintf(w, "%s  section [%d] (%d bytes): %s\n", in, i, s.Length, s.Type)
		p, err := c.Payload(i)
		if err != nil {
			fmt.Fprintf(w, "%s    %v\n", in, err)
			continue
		}
		fmt.Fprintf(w, "%s    xxhash64: %016x\n", in, xxhash.Sum64(p))
		switch {
		case s.Type == Signature:
			var r SignatureRecord
			if err := r.UnmarshalBinary(p); err != nil {
				fmt.Fprintf(w, "%s    %v\n", in, err)
				break
			}
			fmt.Fprintf(w, "%s    Sig. type: %d\n", in, r.Type)
			fmt.Fprintf(w, "%s    Key name:  '%s'\n", in, r.KeyName)
		case s.Type.Compressed() && codec != nil:
			out, err := codec.Decompress(p, int(s.ExpandedLength))
			if err != nil {
				fmt.Fprintf(w, "%s    %s: %v\n", in, codec.Type(), err)
				break
			}
			fmt.Fprintf(w, "%s    expanded (%s): %d bytes, xxhash64: %016x\n",
				in, codec.Type(), len(out), xxhash.Sum64(out))
		}
	}
}

// Expand decompresses all compressed sections of c using the codec and
// checks that they expand to their declared lengths.
func Expand(c *Container, codec compress.Codec) error {
	for i, s := range c.Sections() {
		if !s.Type.Compressed() {
			continue
		}
		p, err := c.Payload(i)
		if err != nil {
			return err
		}
		if _, err = codec.Decompress(p, int(s.ExpandedLength)); err != nil {
			return &SectionError{i, err}
		}
	}
	return nil
}
