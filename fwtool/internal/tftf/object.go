// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"debug/elf"
	"fmt"
	"math"
	"os"
)

// Names of the object file regions added by AddObject.
const (
	TextSection = ".text"
	DataSection = ".data"
)

// Object is a compiled program that provides named regions.
type Object interface {
	// Section returns the link address and the content of the named region.
	// ok is false if there is no such region.
	Section(name string) (addr uint64, data []byte, ok bool, err error)

	// Entry returns the entry point of the program.
	Entry() uint64
}

// OpenELF reads the ELF file. The whole file is loaded into memory so the
// returned object doesn't need to be closed.
func OpenELF(name string) (Object, error) {
	r, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer f.Close()
	o := &memObject{entry: f.Entry, sections: make(map[string]memSection)}
	for _, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", name, s.Name, err)
		}
		o.sections[s.Name] = memSection{s.Addr, data}
	}
	return o, nil
}

type memSection struct {
	addr uint64
	data []byte
}

type memObject struct {
	entry    uint64
	sections map[string]memSection
}

func (o *memObject) Section(name string) (uint64, []byte, bool, error) {
	s, ok := o.sections[name]
	return s.addr, s.data, ok, nil
}

func (o *memObject) Entry() uint64 { return o.entry }

// AddObject adds the text region of the object as a code section and the
// data region as a data section. Sections with a non-zero link address are
// placed at it, the others directly after the previous section. AddObject
// returns start if it isn't zero, otherwise the entry point of the object if
// it has the text region.
func AddObject(c *Cache, obj Object, start uint32) (uint32, error) {
	found := false
	for _, r := range []struct {
		name string
		typ  SectionType
	}{
		{TextSection, RawCode},
		{DataSection, RawData},
	} {
		addr, data, ok, err := obj.Section(r.name)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if addr > math.MaxUint32 {
			return 0, fmt.Errorf("%s: address %#x out of range", r.name, addr)
		}
		if err = c.Open(r.typ, ""); err != nil {
			return 0, err
		}
		if err = c.SetBlob(data); err != nil {
			return 0, err
		}
		if addr != 0 {
			if err = c.SetLoadAddress(uint32(addr)); err != nil {
				return 0, err
			}
		}
		if err = c.Close(); err != nil {
			return 0, err
		}
		if r.typ == RawCode && start == 0 {
			start = uint32(obj.Entry())
		}
		found = true
	}
	if !found {
		return 0, ErrNoObjectSections
	}
	return start, nil
}
