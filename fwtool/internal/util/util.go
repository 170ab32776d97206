// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Program exit status.
const (
	ExitSuccess  = 0
	ExitWarnings = 1
	ExitErrors   = 2
)

var warnings int

// Warn prints a warning and remembers that the program has seen one.
func Warn(f string, args ...any) {
	warnings++
	fmt.Fprintf(os.Stderr, f+"\n", args...)
}

// Fatal prints an error message and exits with the ExitErrors status.
func Fatal(f string, args ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	os.Exit(ExitErrors)
}

// FatalErr prints an error description and exits the program if the
// err != nil.
func FatalErr(what string, err error) {
	if err == nil {
		return
	}
	s := err.Error() + "\n"
	if what != "" {
		s = what + ": " + s
	}
	os.Stderr.WriteString(s)
	os.Exit(ExitErrors)
}

// Warnings returns the number of warnings reported so far.
func Warnings() int {
	return warnings
}

// Exit terminates the program with ExitWarnings if any warning was reported
// and with ExitSuccess otherwise.
func Exit() {
	if warnings != 0 {
		os.Exit(ExitWarnings)
	}
	os.Exit(ExitSuccess)
}

type countingHandler struct {
	slog.Handler
}

func (h countingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		warnings++
	}
	return h.Handler.Handle(ctx, r)
}

func (h countingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return countingHandler{h.Handler.WithAttrs(attrs)}
}

func (h countingHandler) WithGroup(name string) slog.Handler {
	return countingHandler{h.Handler.WithGroup(name)}
}

// Logger returns the logger handed to the library packages. It writes to
// stderr and counts warnings the same way Warn does.
func Logger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(countingHandler{h})
}

// ParseUint32 parses a 32-bit number written as a Go integer literal
// (0x..., 0o..., 0b... or decimal).
func ParseUint32(s string) (uint32, error) {
	u, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number '%s'", s)
	}
	return uint32(u), nil
}

// ChangeExt replaces the extension of the name with ext (ext includes the
// dot).
func ChangeExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

// Uint32 is a flag.Value that accepts numbers in the ParseUint32 syntax.
type Uint32 uint32

func (u *Uint32) String() string { return fmt.Sprintf("%#x", uint32(*u)) }

func (u *Uint32) Set(s string) error {
	v, err := ParseUint32(s)
	*u = Uint32(v)
	return err
}
