// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Fwtool builds, signs and inspects TFTF firmware images and FFFF flash
// images.
package main

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/embeddedgo/tftf/fwtool/internal/cmd/create"
	"github.com/embeddedgo/tftf/fwtool/internal/cmd/display"
	"github.com/embeddedgo/tftf/fwtool/internal/cmd/flash"
	"github.com/embeddedgo/tftf/fwtool/internal/cmd/flashinfo"
	"github.com/embeddedgo/tftf/fwtool/internal/cmd/sign"
	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

type tool struct {
	descr string
	main  func(cmd string, args []string)
}

var tools = map[string]tool{
	"create":    {create.Descr, create.Main},
	"display":   {display.Descr, display.Main},
	"flash":     {flash.Descr, flash.Main},
	"flashinfo": {flashinfo.Descr, flashinfo.Main},
	"sign":      {sign.Descr, sign.Main},
}

func printToolList() {
	names := slices.Sorted(maps.Keys(tools))
	maxLen := 0
	for _, k := range names {
		maxLen = max(maxLen, len(k))
	}
	uw := os.Stderr
	uw.WriteString("Usage:\n  fwtool COMMAND [ARGUMENTS]\n\n")
	uw.WriteString("Available commands:\n")
	for _, name := range names {
		fmt.Fprintf(uw, "  %*s  %s\n", maxLen, name, tools[name].descr)
	}
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" {
		printToolList()
		return
	}
	tool, ok := tools[os.Args[1]]
	if !ok {
		printToolList()
		os.Exit(util.ExitErrors)
	}
	tool.main(os.Args[1], os.Args[2:])
}
