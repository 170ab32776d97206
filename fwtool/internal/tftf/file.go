// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tftf

import (
	"fmt"
	"os"

	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

// ReadFile reads the image from the named file. See Parse for the meaning of
// headerSize.
func ReadFile(name string, headerSize uint32) (*Container, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data, headerSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// WriteFile writes the image to the named file, replacing it atomically.
func WriteFile(name string, c *Container) error {
	return util.WriteFileAtomic(name, c.data)
}
