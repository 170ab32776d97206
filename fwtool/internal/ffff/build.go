// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"
)

// Config describes the flash an image is built for.
type Config struct {
	Name          string
	FlashCapacity uint32
	EraseBlock    uint32
	ImageLength   uint32 // 0 means FlashCapacity
	Generation    uint32
	HeaderSize    uint32 // 0 means DefaultHeaderSize
}

type options struct {
	log *slog.Logger
	now func() time.Time
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Build assembles an image of cfg.ImageLength bytes that contains the two
// header copies and the closed elements of the cache. The returned image is
// always valid.
func Build(cfg Config, c *Cache, opts ...Option) (*Image, error) {
	o := options{log: slog.New(slog.DiscardHandler), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	c.Close()
	hs := cfg.HeaderSize
	if hs == 0 {
		hs = DefaultHeaderSize
	}
	if err := CheckHeaderSize(hs); err != nil {
		return nil, err
	}
	ebs := cfg.EraseBlock
	if err := CheckEraseBlock(ebs); err != nil {
		return nil, err
	}
	if uint64(cfg.FlashCapacity) < 2*uint64(ebs) {
		return nil, fmt.Errorf("%w: %#x", ErrCapacity, cfg.FlashCapacity)
	}
	il := cfg.ImageLength
	if il == 0 {
		il = cfg.FlashCapacity
	}
	if il > cfg.FlashCapacity {
		return nil, fmt.Errorf("%w: %#x > %#x", ErrImageLength, il, cfg.FlashCapacity)
	}
	second := NextBoundary(hs, ebs)
	if uint64(second)+uint64(hs) > uint64(il) {
		return nil, fmt.Errorf("%w: header copies need %#x bytes, image length is %#x",
			ErrTooLarge, uint64(second)+uint64(hs), il)
	}
	if n := c.Count(); n > MaxElements(hs) {
		return nil, fmt.Errorf("%w: %d elements, %d max", ErrTableFull, n, MaxElements(hs))
	}
	total := 2*uint64(hs) + c.TotalSize()
	if total > uint64(cfg.FlashCapacity) {
		return nil, fmt.Errorf("%w: %#x bytes exceed the %#x byte flash capacity",
			ErrTooLarge, total, cfg.FlashCapacity)
	}
	if total > uint64(il) {
		return nil, fmt.Errorf("%w: %#x bytes exceed the %#x byte image length",
			ErrTooLarge, total, il)
	}
	els := c.Locate(hs, ebs)
	lo := ElementArea(hs, ebs)
	for i, e := range els {
		if !aligned(e.Location, ebs) {
			return nil, &ElementError{i, fmt.Errorf("%w: %#x", ErrAlignment, e.Location)}
		}
		if uint64(e.Location) < lo || e.Limit() > uint64(il) {
			return nil, &ElementError{i, fmt.Errorf("%w: %#x-%#x not in [%#x, %#x)",
				ErrElementRange, e.Location, e.Limit(), lo, il)}
		}
	}

	data := make([]byte, il)
	rh := rawHeader{
		Sentinel:      sentinel,
		FlashCapacity: cfg.FlashCapacity,
		EraseBlock:    ebs,
		HeaderSize:    hs,
		ImageLength:   il,
		Generation:    cfg.Generation,
	}
	copy(rh.Timestamp[:], o.now().UTC().Format(TimestampLayout))
	name := cfg.Name
	if len(name) >= NameSize {
		name = name[:NameSize-1]
		o.log.Warn("flash image name truncated", "name", name)
	}
	copy(rh.Name[:], name)
	if _, err := binary.Encode(data, le, &rh); err != nil {
		return nil, err
	}
	for i, e := range els {
		putElement(data[descOffset(i):], e)
		if err := c.read(i, data[e.Location:e.Limit()]); err != nil {
			return nil, err
		}
	}
	putElement(data[descOffset(len(els)):], Element{Type: End})
	copy(data[hs-SentinelSize:hs], sentinel[:])
	copy(data[second:second+hs], data[:hs])

	img, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	if !img.HeadersMatch() {
		return nil, fmt.Errorf("invalid image: second header copy not found at %#x", second)
	}
	o.log.Info("flash image built", "name", cfg.Name, "elements", len(els), "size", len(data))
	return img, nil
}
