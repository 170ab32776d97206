// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flashinfo

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/embeddedgo/tftf/fwtool/internal/ffff"
	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

const Descr = "validate FFFF flash images and print their content"

// info prints the content of the named image. It reports a warning if the
// image doesn't have two identical headers.
func info(w io.Writer, name string, writeMap bool) error {
	img, err := ffff.ReadFile(name)
	if err != nil {
		return err
	}
	if err = ffff.Fprint(w, img, name); err != nil {
		return err
	}
	if !img.HeadersMatch() {
		util.Warn("%s: headers differ", name)
	}
	if writeMap {
		return ffff.WriteMapFile(name, img)
	}
	return nil
}

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS] FFFF_FILE [FFFF_FILE ...]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	writeMap := fs.Bool("map", false, "write a map file next to every image")
	fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(util.ExitErrors)
	}
	failed := false
	for _, name := range fs.Args() {
		if err := info(os.Stdout, name, *writeMap); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
		}
	}
	if failed {
		os.Exit(util.ExitErrors)
	}
	util.Exit()
}
