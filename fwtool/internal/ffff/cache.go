// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffff

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"
)

type entry struct {
	el       Element
	located  bool // Location set explicitly
	filename string
	blob     []byte
}

// Cache stages the elements of a future image in declaration order. The last
// element stays open, and can be modified, until the next Open or Close.
type Cache struct {
	entries  []entry
	capacity int
	open     bool
}

// NewCache returns an empty cache for up to capacity elements (0 means no
// limit).
func NewCache(capacity int) *Cache {
	return &Cache{capacity: capacity}
}

// Open closes the open element and opens a new one of type t. The length of
// the element is the size of the named file, which is read only when the
// image is built.
func (c *Cache) Open(t ElementType, filename string) error {
	if !t.Valid() || t == End {
		return fmt.Errorf("%w %#02x", ErrElementType, uint8(t))
	}
	c.Close()
	if c.capacity > 0 && len(c.entries) >= c.capacity {
		return fmt.Errorf("%w (%d max)", ErrCacheFull, c.capacity)
	}
	e := entry{el: Element{Type: t}}
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
		e.el.Length = uint32(fi.Size())
	}
	c.entries = append(c.entries, e)
	c.open = true
	return nil
}

// Close closes the open element. It does nothing if no element is open.
func (c *Cache) Close() {
	c.open = false
}

func (c *Cache) current() (*entry, error) {
	if !c.open {
		return nil, ErrNoOpenElement
	}
	return &c.entries[len(c.entries)-1], nil
}

func (c *Cache) SetClass(class uint32) error {
	e, err := c.current()
	if err != nil {
		return err
	}
	if class > maxClass {
		return fmt.Errorf("%w: %#x", ErrClassRange, class)
	}
	e.el.Class = class
	return nil
}

func (c *Cache) SetID(id uint32) error {
	e, err := c.current()
	if err == nil {
		e.el.ID = id
	}
	return err
}

// SetLength overrides the element length taken from the file.
func (c *Cache) SetLength(n uint32) error {
	e, err := c.current()
	if err == nil {
		e.el.Length = n
	}
	return err
}

func (c *Cache) SetLocation(loc uint32) error {
	e, err := c.current()
	if err == nil {
		e.el.Location = loc
		e.located = true
	}
	return err
}

func (c *Cache) SetGeneration(gen uint32) error {
	e, err := c.current()
	if err == nil {
		e.el.Generation = gen
	}
	return err
}

// SetBlob makes data the content of the open element.
func (c *Cache) SetBlob(data []byte) error {
	e, err := c.current()
	if err != nil {
		return err
	}
	e.filename = ""
	e.blob = slices.Clone(data)
	if e.blob == nil {
		e.blob = []byte{}
	}
	e.el.Length = uint32(len(data))
	return nil
}

// Count returns the number of closed elements.
func (c *Cache) Count() int {
	if c.open {
		return len(c.entries) - 1
	}
	return len(c.entries)
}

// TotalSize returns the sum of the lengths of the closed elements.
func (c *Cache) TotalSize() uint64 {
	var n uint64
	for _, e := range c.entries[:c.Count()] {
		n += uint64(e.el.Length)
	}
	return n
}

// Locate assigns locations to the closed elements that have none: every
// such element starts at the first erase block past the previous element,
// the first one past both header copies.
func (c *Cache) Locate(headerSize, eraseBlock uint32) []Element {
	els := make([]Element, c.Count())
	next := ElementArea(headerSize, eraseBlock)
	for i := range els {
		e := c.entries[i].el
		if !c.entries[i].located {
			e.Location = uint32(min(next, math.MaxUint32))
		}
		next = nextBoundary(e.Limit(), eraseBlock)
		els[i] = e
	}
	return els
}

func (c *Cache) read(i int, dst []byte) error {
	e := &c.entries[i]
	if e.blob != nil || e.filename == "" {
		copy(dst, e.blob)
		return nil
	}
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
