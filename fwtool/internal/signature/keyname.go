// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package signature signs TFTF images and forms the key names recorded in
// the signature sections.
package signature

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/embeddedgo/tftf/fwtool/internal/tftf"
)

// DefaultSuffix is the domain part of key names.
const DefaultSuffix = "keys.projectara.com"

// Format selects how a key name is composed.
type Format int

const (
	// Standard key names are "file@keytype.suffix".
	Standard Format = iota
	// ES3 key names are "file@algorithm.suffix".
	ES3
)

func (f Format) String() string {
	switch f {
	case Standard:
		return "standard"
	case ES3:
		return "es3"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "standard":
		return Standard, nil
	case "es3":
		return ES3, nil
	}
	return 0, fmt.Errorf("unknown key name format '%s' (use standard or es3)", s)
}

// KeyType identifies the boot stage a signing key belongs to.
type KeyType int

const (
	S2FSK KeyType = 1 + iota // stage 2 firmware signing key
	S3FSK                    // stage 3 firmware signing key
)

func (t KeyType) String() string {
	switch t {
	case S2FSK:
		return "s2fsk"
	case S3FSK:
		return "s3fsk"
	}
	return fmt.Sprintf("KeyType(%d)", int(t))
}

func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToLower(s) {
	case "s2fsk":
		return S2FSK, nil
	case "s3fsk":
		return S3FSK, nil
	}
	return 0, fmt.Errorf("unknown key type '%s' (use s2fsk or s3fsk)", s)
}

// AlgorithmName returns the name of the signature algorithm.
func AlgorithmName(alg uint32) string {
	switch alg {
	case tftf.AlgRSA2048SHA256:
		return "rsa2048-sha256"
	}
	return fmt.Sprintf("alg%d", alg)
}

// ParseAlgorithm returns the algorithm with the name given by AlgorithmName.
func ParseAlgorithm(s string) (uint32, error) {
	if strings.EqualFold(s, "rsa2048-sha256") {
		return tftf.AlgRSA2048SHA256, nil
	}
	return 0, fmt.Errorf("unknown signature algorithm '%s' (use rsa2048-sha256)", s)
}

// KeyName returns the name of the key stored in the key file. The directory
// and the .private.pem, .public.pem or .pem extension of the file name are
// removed. An empty suffix means DefaultSuffix.
func KeyName(f Format, kt KeyType, alg uint32, keyFile, suffix string) (string, error) {
	name := filepath.Base(keyFile)
	for _, ext := range []string{".private.pem", ".public.pem", ".pem"} {
		name = strings.TrimSuffix(name, ext)
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}
	var kind string
	switch f {
	case Standard:
		kind = kt.String()
	case ES3:
		kind = AlgorithmName(alg)
	default:
		return "", fmt.Errorf("unknown key name format %d", int(f))
	}
	kn := name + "@" + kind + "." + suffix
	if len(kn) >= tftf.KeyNameSize {
		return "", fmt.Errorf("key name '%s' longer than %d characters", kn, tftf.KeyNameSize-1)
	}
	return kn, nil
}
