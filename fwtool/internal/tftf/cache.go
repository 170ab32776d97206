// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"

	"github.com/embeddedgo/tftf/fwtool/internal/compress"
)

type config struct {
	log   *slog.Logger
	now   func() time.Time
	codec compress.Codec
}

// Option configures a Cache or the Build function.
type Option func(*config)

// WithLogger sets the logger used to report warnings and progress.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithClock sets the source of the build timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithCompression makes the cache compress raw code and data sections when
// they are closed. A nil codec or one of type compress.None disables
// compression.
func WithCompression(codec compress.Codec) Option {
	return func(c *config) {
		if codec != nil && codec.Type() == compress.None {
			codec = nil
		}
		c.codec = codec
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		log: slog.New(slog.DiscardHandler),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type entry struct {
	sec      Section
	filename string // read when the image is built
	blob     []byte // used instead of the file if not nil
}

// Cache stages the sections of a future image in declaration order. At most
// one entry, the last one, is open and can be modified using the Set
// methods.
type Cache struct {
	cfg        config
	entries    []entry
	capacity   int
	open       bool
	nextLoad   uint32
	restricted bool
}

// NewCache returns an empty cache that can hold up to capacity sections. The
// capacity 0 means no limit.
func NewCache(capacity int, opts ...Option) *Cache {
	return &Cache{cfg: newConfig(opts), capacity: capacity}
}

// Open closes the open section, if any, and opens a new one of type t. If
// filename isn't empty the file provides the section payload. The file size
// is taken now but the file is read only when the image is built. The new
// section is placed just past the previous one unless it is a signature or
// a certificate.
func (c *Cache) Open(t SectionType, filename string) error {
	if !t.Valid() || t == End {
		return fmt.Errorf("%w %#02x", ErrSectionType, uint8(t))
	}
	if err := c.Close(); err != nil {
		return err
	}
	if c.capacity > 0 && len(c.entries) >= c.capacity {
		return fmt.Errorf("%w (%d max)", ErrCacheFull, c.capacity)
	}
	if t.IsCodeOrData() && c.restricted {
		return ErrSectionOrder
	}
	e := entry{sec: Section{Type: t, LoadAddress: c.nextLoad}}
	if t.Restricted() {
		e.sec.LoadAddress = LoadIgnored
	}
	if filename != "" {
		fi, err := os.Stat(filename)
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("%s: not a regular file", filename)
		}
		if fi.Size() > math.MaxUint32 {
			return fmt.Errorf("%s: file too large", filename)
		}
		e.filename = filename
		e.sec.Length = uint32(fi.Size())
		e.sec.ExpandedLength = e.sec.Length
	}
	c.entries = append(c.entries, e)
	c.open = true
	if t.Restricted() {
		c.restricted = true
	}
	return nil
}

func (c *Cache) current() (*entry, error) {
	if !c.open {
		return nil, ErrNoOpenSection
	}
	return &c.entries[len(c.entries)-1], nil
}

// SetClass sets the class of the open section.
func (c *Cache) SetClass(class uint32) error {
	e, err := c.current()
	if err != nil {
		return err
	}
	if class > maxClass {
		return fmt.Errorf("%w: %#x", ErrClassRange, class)
	}
	e.sec.Class = class
	return nil
}

// SetID sets the identifier of the open section.
func (c *Cache) SetID(id uint32) error {
	e, err := c.current()
	if err != nil {
		return err
	}
	e.sec.ID = id
	return nil
}

// SetLoadAddress sets the load address of the open section.
func (c *Cache) SetLoadAddress(addr uint32) error {
	e, err := c.current()
	if err != nil {
		return err
	}
	if e.sec.Type.Restricted() {
		return fmt.Errorf("%s: %w", e.sec.Type, ErrRestrictedAddress)
	}
	e.sec.LoadAddress = addr
	return nil
}

// SetBlob makes data the payload of the open section, replacing the file
// given to Open.
func (c *Cache) SetBlob(data []byte) error {
	e, err := c.current()
	if err != nil {
		return err
	}
	if uint64(len(data)) > math.MaxUint32 {
		return errors.New("section too large")
	}
	e.filename = ""
	e.blob = slices.Clone(data)
	if e.blob == nil {
		e.blob = []byte{}
	}
	e.sec.Length = uint32(len(data))
	e.sec.ExpandedLength = e.sec.Length
	return nil
}

// Close closes the open section and advances the default load address past
// its expanded range. Close does nothing if there is no open section.
func (c *Cache) Close() error {
	if !c.open {
		return nil
	}
	e := &c.entries[len(c.entries)-1]
	if c.cfg.codec != nil && e.sec.Type.IsCodeOrData() && !e.sec.Type.Compressed() {
		if err := c.compress(e); err != nil {
			return err
		}
	}
	if e.sec.Placed() {
		c.nextLoad = uint32(e.sec.Limit())
	}
	c.open = false
	return nil
}

func (c *Cache) compress(e *entry) error {
	data, err := e.payload()
	if err != nil {
		return err
	}
	packed, err := c.cfg.codec.Compress(data)
	if errors.Is(err, compress.ErrIncompressible) || (err == nil && len(packed) >= len(data)) {
		c.cfg.log.Info("section stored uncompressed",
			"type", e.sec.Type, "size", len(data))
		return nil
	}
	if err != nil {
		return err
	}
	c.cfg.log.Info("section compressed", "type", e.sec.Type,
		"codec", c.cfg.codec.Type(), "size", len(data), "stored", len(packed))
	e.filename = ""
	e.blob = packed
	e.sec.Length = uint32(len(packed))
	e.sec.ExpandedLength = uint32(len(data))
	if e.sec.Type == RawCode {
		e.sec.Type = CompressedCode
	} else {
		e.sec.Type = CompressedData
	}
	return nil
}

func (e *entry) payload() ([]byte, error) {
	if e.blob != nil || e.filename == "" {
		return e.blob, nil
	}
	buf := make([]byte, e.sec.Length)
	if err := e.readInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (e *entry) readInto(dst []byte) error {
	f, err := os.Open(e.filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err = io.ReadFull(f, dst); err != nil {
		return fmt.Errorf("%s: %w", e.filename, err)
	}
	return nil
}

// Count returns the number of closed sections.
func (c *Cache) Count() int {
	if c.open {
		return len(c.entries) - 1
	}
	return len(c.entries)
}

// TotalSize returns the sum of the stored lengths of the closed sections.
func (c *Cache) TotalSize() int {
	n := 0
	for _, e := range c.entries[:c.Count()] {
		n += int(e.sec.Length)
	}
	return n
}

// NextLoadAddress returns the default load address of the next section.
func (c *Cache) NextLoadAddress() uint32 { return c.nextLoad }

// Sections returns the descriptors of the closed sections.
func (c *Cache) Sections() []Section {
	secs := make([]Section, c.Count())
	for i := range secs {
		secs[i] = c.entries[i].sec
	}
	return secs
}

// Iterate lays the payloads of the closed sections one after another in dst,
// in declaration order, and calls fn for every section with its part of
// dst. Nothing is written if the sections don't fit in dst.
func (c *Cache) Iterate(dst []byte, fn func(s Section, payload []byte) error) error {
	entries := c.entries[:c.Count()]
	off := 0
	for i, e := range entries {
		n := int(e.sec.Length)
		if off+n > len(dst) {
			return fmt.Errorf("%w: section [%d] needs %d bytes at %d, %d available",
				ErrOverrun, i, n, off, len(dst))
		}
		off += n
	}
	off = 0
	for i := range entries {
		e := &entries[i]
		p := dst[off : off+int(e.sec.Length)]
		if e.blob != nil || e.filename == "" {
			copy(p, e.blob)
		} else if err := e.readInto(p); err != nil {
			return err
		}
		if fn != nil {
			if err := fn(e.sec, p); err != nil {
				return err
			}
		}
		off += len(p)
	}
	return nil
}
