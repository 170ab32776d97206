// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package display

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/embeddedgo/tftf/fwtool/internal/compress"
	"github.com/embeddedgo/tftf/fwtool/internal/tftf"
	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

const Descr = "validate TFTF images and print their content"

type config struct {
	headerSize util.Uint32
	writeMap   bool
	codec      compress.Codec
}

func newFlags(cmd string, eh flag.ErrorHandling) (*flag.FlagSet, *config) {
	cfg := new(config)
	fs := flag.NewFlagSet(cmd, eh)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [OPTIONS] TFTF_FILE [TFTF_FILE ...]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	fs.Var(&cfg.headerSize, "header-size", "TFTF header size, 0 means the size declared in the header")
	fs.BoolVar(&cfg.writeMap, "map", false, "write a map file next to every image")
	fs.Func("expand", "decompress the compressed sections with `CODEC` (lz4, zstd or s2)", func(s string) error {
		t, err := compress.ParseType(s)
		if err != nil {
			return err
		}
		cfg.codec, err = compress.New(t)
		return err
	})
	return fs, cfg
}

// display prints the content of the named image. The synopsis is printed
// even if the image is invalid.
func (cfg *config) display(w io.Writer, name string) error {
	img, err := tftf.ReadFile(name, uint32(cfg.headerSize))
	if err != nil {
		return err
	}
	if err = tftf.Fprint(w, img, name, tftf.PrintOptions{Codec: cfg.codec}); err != nil {
		return err
	}
	if err = tftf.Validate(img); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if cfg.codec != nil {
		if err = tftf.Expand(img, cfg.codec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if cfg.writeMap {
		return tftf.WriteMapFile(name, img)
	}
	return nil
}

func Main(cmd string, args []string) {
	fs, cfg := newFlags(cmd, flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(util.ExitErrors)
	}
	failed := false
	for _, name := range fs.Args() {
		if err := cfg.display(os.Stdout, name); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
		}
	}
	if failed {
		os.Exit(util.ExitErrors)
	}
	util.Exit()
}
