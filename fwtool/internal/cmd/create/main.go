// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package create

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/embeddedgo/tftf/fwtool/internal/compress"
	"github.com/embeddedgo/tftf/fwtool/internal/tftf"
	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

const Descr = "create a TFTF image from code, data and other sections"

var errNoSections = errors.New(
	"need at least one -code, -data, -manifest, -signature, -certificate or -elf",
)

type op struct {
	flag, arg string
	do        func(c *tftf.Cache, arg string) error
}

type config struct {
	hdr        tftf.Header
	headerSize util.Uint32
	start      util.Uint32
	mid, pid   util.Uint32
	vid, apid  util.Uint32
	out        string
	writeMap   bool
	verbose    bool
	codec      compress.Type
	ops        []op
	elfStart   uint32
}

func newFlags(cmd string, eh flag.ErrorHandling) (*flag.FlagSet, *config) {
	cfg := &config{
		hdr:        tftf.Header{PackageType: tftf.DefaultPackageType},
		headerSize: tftf.DefaultHeaderSize,
	}
	fs := flag.NewFlagSet(cmd, eh)
	fs.Usage = func() {
		fmt.Fprintf(
			fs.Output(),
			"Usage:\n  %s [OPTIONS] SECTION [SECTION ...]\n"+
				"Sections are added in the command line order. The -class, -id\n"+
				"and -load options modify the section that precedes them.\n"+
				"Options:\n",
			cmd,
		)
		fs.PrintDefaults()
	}
	section := func(name string, t tftf.SectionType, what string) {
		fs.Func(name, "add a "+what+" section read from `FILE`", func(s string) error {
			cfg.ops = append(cfg.ops, op{name, s, func(c *tftf.Cache, arg string) error {
				return c.Open(t, arg)
			}})
			return nil
		})
	}
	attr := func(name, usage string, set func(*tftf.Cache, uint32) error) {
		fs.Func(name, usage, func(s string) error {
			v, err := util.ParseUint32(s)
			if err != nil {
				return err
			}
			cfg.ops = append(cfg.ops, op{name, s, func(c *tftf.Cache, _ string) error {
				return set(c, v)
			}})
			return nil
		})
	}
	fs.Func("elf", "add the .text and .data sections of the ELF `FILE`", func(s string) error {
		cfg.ops = append(cfg.ops, op{"elf", s, cfg.addELF})
		return nil
	})
	section("code", tftf.RawCode, "code")
	section("data", tftf.RawData, "data")
	section("manifest", tftf.Manifest, "manifest")
	section("signature", tftf.Signature, "signature")
	section("certificate", tftf.Certificate, "certificate")
	attr("class", "set the class of the preceding section", (*tftf.Cache).SetClass)
	attr("id", "set the ID of the preceding section", (*tftf.Cache).SetID)
	attr("load", "set the load address of the preceding section", (*tftf.Cache).SetLoadAddress)

	fs.Var(&cfg.headerSize, "header-size", "TFTF header size")
	fs.StringVar(&cfg.hdr.Name, "name", "", "firmware package name")
	fs.Func("type", "package type: s2fw, s3fw or a number (default s3fw)", func(s string) error {
		pt, err := tftf.ParsePackageType(s)
		cfg.hdr.PackageType = pt
		return err
	})
	fs.Var(&cfg.start, "start", "start address, 0 means the ELF entry point, if any")
	fs.Var(&cfg.mid, "unipro-mfg", "UniPro manufacturer ID")
	fs.Var(&cfg.pid, "unipro-pid", "UniPro product ID")
	fs.Var(&cfg.vid, "ara-vid", "Ara vendor ID")
	fs.Var(&cfg.apid, "ara-pid", "Ara product ID")
	fs.Func("compress", "compress code and data sections: none, lz4, zstd or s2", func(s string) error {
		t, err := compress.ParseType(s)
		cfg.codec = t
		return err
	})
	fs.StringVar(&cfg.out, "out", "", "output `FILE` (default ara:MID:PID:VID:PID:STAGE.tftf)")
	fs.BoolVar(&cfg.writeMap, "map", false, "write the map file next to the output file")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose output")
	return fs, cfg
}

func (cfg *config) addELF(c *tftf.Cache, name string) error {
	obj, err := tftf.OpenELF(name)
	if err != nil {
		return err
	}
	start, err := tftf.AddObject(c, obj, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if cfg.elfStart == 0 {
		cfg.elfStart = start
	}
	return nil
}

func (cfg *config) outName() string {
	if cfg.out != "" {
		return cfg.out
	}
	return fmt.Sprintf(
		"ara:%08x:%08x:%08x:%08x:%02x.tftf",
		uint32(cfg.mid), uint32(cfg.pid), uint32(cfg.vid), uint32(cfg.apid),
		max(cfg.hdr.PackageType.BootStage(), 0),
	)
}

func (cfg *config) build(log *slog.Logger) (*tftf.Container, error) {
	hs := uint32(cfg.headerSize)
	if err := tftf.CheckHeaderSize(hs); err != nil {
		return nil, err
	}
	opts := []tftf.Option{tftf.WithLogger(log)}
	if cfg.codec != compress.None {
		codec, err := compress.New(cfg.codec)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tftf.WithCompression(codec))
	}
	c := tftf.NewCache(tftf.MaxSections(hs), opts...)
	for _, o := range cfg.ops {
		if err := o.do(c, o.arg); err != nil {
			return nil, fmt.Errorf("-%s %s: %w", o.flag, o.arg, err)
		}
	}
	if err := c.Close(); err != nil {
		return nil, err
	}
	if c.Count() == 0 {
		return nil, errNoSections
	}
	hdr := cfg.hdr
	hdr.HeaderSize = hs
	hdr.Start = uint32(cfg.start)
	if hdr.Start == 0 {
		hdr.Start = cfg.elfStart
	}
	hdr.UniproMID = uint32(cfg.mid)
	hdr.UniproPID = uint32(cfg.pid)
	hdr.AraVID = uint32(cfg.vid)
	hdr.AraPID = uint32(cfg.apid)
	return tftf.Build(hdr, c.TotalSize(), c, opts...)
}

func (cfg *config) run(stdout io.Writer) error {
	log := util.Logger(cfg.verbose)
	img, err := cfg.build(log)
	if err != nil {
		return err
	}
	out := cfg.outName()
	if err = tftf.WriteFile(out, img); err != nil {
		return err
	}
	if cfg.writeMap {
		if err = tftf.WriteMapFile(out, img); err != nil {
			return err
		}
	}
	if cfg.verbose {
		return tftf.Fprint(stdout, img, out, tftf.PrintOptions{})
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
	if errors.Is(err, errNoSections) {
		fmt.Fprintf(fs.Output(), "%s: %v\n", cmd, err)
		fs.Usage()
		os.Exit(util.ExitErrors)
	}
	util.FatalErr(cmd, err)
	util.Exit()
}
