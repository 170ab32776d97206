// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flash

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/embeddedgo/tftf/fwtool/internal/ffff"
	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

const Descr = "create an FFFF flash image from firmware and data elements"

var errNoElements = errors.New("need at least one -s2f, -s3f, -ims, -cms or -data")

type op struct {
	flag, arg string
	do        func(c *ffff.Cache, arg string) error
}

type config struct {
	ffff       ffff.Config
	capacity   util.Uint32
	eraseBlock util.Uint32
	length     util.Uint32
	generation util.Uint32
	headerSize util.Uint32
	out        string
	writeMap   bool
	writeHex   bool
	base       util.Uint32
	verbose    bool
	ops        []op
}

func newFlags(cmd string, eh flag.ErrorHandling) (*flag.FlagSet, *config) {
	cfg := &config{
		eraseBlock: 64 * 1024,
		headerSize: ffff.DefaultHeaderSize,
		out:        "ffff.bin",
	}
	fs := flag.NewFlagSet(cmd, eh)
	fs.Usage = func() {
		fmt.Fprintf(
			fs.Output(),
			"Usage:\n  %s [OPTIONS] ELEMENT [ELEMENT ...]\n"+
				"Elements are added in the command line order. The -eclass, -eid,\n"+
				"-eloc, -elen and -egen options modify the preceding element.\n"+
				"Options:\n",
			cmd,
		)
		fs.PrintDefaults()
	}
	element := func(name string, t ffff.ElementType, what string) {
		fs.Func(name, "add a "+what+" element read from `FILE`", func(s string) error {
			cfg.ops = append(cfg.ops, op{name, s, func(c *ffff.Cache, arg string) error {
				return c.Open(t, arg)
			}})
			return nil
		})
	}
	attr := func(name, usage string, set func(*ffff.Cache, uint32) error) {
		fs.Func(name, usage, func(s string) error {
			v, err := util.ParseUint32(s)
			if err != nil {
				return err
			}
			cfg.ops = append(cfg.ops, op{name, s, func(c *ffff.Cache, _ string) error {
				return set(c, v)
			}})
			return nil
		})
	}
	element("s2f", ffff.S2FW, "stage 2 firmware")
	element("s3f", ffff.S3FW, "stage 3 firmware")
	element("ims", ffff.IMS, "IMS certificate")
	element("cms", ffff.CMS, "CMS certificate")
	element("data", ffff.Data, "data")
	attr("eclass", "set the class of the preceding element", (*ffff.Cache).SetClass)
	attr("eid", "set the ID of the preceding element", (*ffff.Cache).SetID)
	attr("eloc", "set the location of the preceding element", (*ffff.Cache).SetLocation)
	attr("elen", "set the length of the preceding element", (*ffff.Cache).SetLength)
	attr("egen", "set the generation of the preceding element", (*ffff.Cache).SetGeneration)

	fs.StringVar(&cfg.ffff.Name, "name", "", "flash image name")
	fs.Var(&cfg.capacity, "flash-capacity", "flash capacity (bytes)")
	fs.Var(&cfg.eraseBlock, "erase-size", "flash erase block size (bytes)")
	fs.Var(&cfg.length, "image-length", "image length (bytes), 0 means the flash capacity")
	fs.Var(&cfg.generation, "generation", "header generation")
	fs.Var(&cfg.headerSize, "header-size", "FFFF header size")
	fs.StringVar(&cfg.out, "out", cfg.out, "output `FILE`")
	fs.BoolVar(&cfg.writeMap, "map", false, "write the map file next to the output file")
	fs.BoolVar(&cfg.writeHex, "hex", false, "also write the image in the Intel HEX format")
	fs.Var(&cfg.base, "base", "load address of the Intel HEX image")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose output")
	return fs, cfg
}

func (cfg *config) build(log *slog.Logger) (*ffff.Image, error) {
	c := ffff.NewCache(0)
	for _, o := range cfg.ops {
		if err := o.do(c, o.arg); err != nil {
			return nil, fmt.Errorf("-%s %s: %w", o.flag, o.arg, err)
		}
	}
	c.Close()
	if c.Count() == 0 {
		return nil, errNoElements
	}
	fc := cfg.ffff
	fc.FlashCapacity = uint32(cfg.capacity)
	fc.EraseBlock = uint32(cfg.eraseBlock)
	fc.ImageLength = uint32(cfg.length)
	fc.Generation = uint32(cfg.generation)
	fc.HeaderSize = uint32(cfg.headerSize)
	return ffff.Build(fc, c, ffff.WithLogger(log))
}

func (cfg *config) run(stdout io.Writer) error {
	img, err := cfg.build(util.Logger(cfg.verbose))
	if err != nil {
		return err
	}
	if err = ffff.WriteFile(cfg.out, img); err != nil {
		return err
	}
	if cfg.writeMap {
		if err = ffff.WriteMapFile(cfg.out, img); err != nil {
			return err
		}
	}
	if cfg.writeHex {
		err = util.WriteHex(util.ChangeExt(cfg.out, ".hex"), uint32(cfg.base), img.Bytes())
		if err != nil {
			return err
		}
	}
	if cfg.verbose {
		return ffff.Fprint(stdout, img, cfg.out)
	}
	return nil
}

func Main(cmd string, args []string) {
	fs, cfg := newFlags(cmd, flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 0 {
		fs.Usage()
		os.Exit(util.ExitErrors)
	}
	err := cfg.run(os.Stdout)
	if errors.Is(err, errNoElements) {
		fmt.Fprintf(fs.Output(), "%s: %v\n", cmd, err)
		fs.Usage()
		os.Exit(util.ExitErrors)
	}
	util.FatalErr(cmd, err)
	util.Exit()
}
