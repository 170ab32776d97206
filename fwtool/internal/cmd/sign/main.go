// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sign

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/embeddedgo/tftf/fwtool/internal/signature"
	"github.com/embeddedgo/tftf/fwtool/internal/tftf"
	"github.com/embeddedgo/tftf/fwtool/internal/util"
)

const Descr = "sign TFTF images in place"

type config struct {
	key     string
	keyType signature.KeyType // 0 means derived from the package type
	alg     uint32            // 0 means any algorithm of the key
	format  signature.Format
	suffix  string
	digest  bool
}

func newFlags(cmd string, eh flag.ErrorHandling) (*flag.FlagSet, *config) {
	cfg := new(config)
	fs := flag.NewFlagSet(cmd, eh)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [OPTIONS] TFTF_FILE [TFTF_FILE ...]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.key, "key", "", "PEM encoded RSA-2048 private key `FILE`")
	fs.Func("type", "key type: s2fsk or s3fsk (default taken from the package type)", func(s string) error {
		kt, err := signature.ParseKeyType(s)
		cfg.keyType = kt
		return err
	})
	fs.Func("format", "key name format: standard or es3 (default standard)", func(s string) error {
		f, err := signature.ParseFormat(s)
		cfg.format = f
		return err
	})
	fs.Func("algorithm", "required signature algorithm: rsa2048-sha256", func(s string) error {
		alg, err := signature.ParseAlgorithm(s)
		cfg.alg = alg
		return err
	})
	fs.StringVar(&cfg.suffix, "suffix", signature.DefaultSuffix, "key name domain suffix")
	fs.BoolVar(&cfg.digest, "digest", false, "only print the digest of the signable region")
	return fs, cfg
}

func keyType(pt tftf.PackageType) signature.KeyType {
	if pt == tftf.PackageS2FW {
		return signature.S2FSK
	}
	return signature.S3FSK
}

// sign appends a signature to the named image and rewrites the file.
func (cfg *config) sign(w io.Writer, log *slog.Logger, s signature.Signer, name string) error {
	img, err := tftf.ReadFile(name, 0)
	if err != nil {
		return err
	}
	if err = tftf.Validate(img); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if cfg.digest {
		d, err := tftf.Digest(img)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s: %s\n", name, d)
		return err
	}
	if cfg.alg != 0 && s.Algorithm() != cfg.alg {
		return fmt.Errorf("%s: key makes %s signatures, %s required", name,
			signature.AlgorithmName(s.Algorithm()), signature.AlgorithmName(cfg.alg))
	}
	kt := cfg.keyType
	if kt == 0 {
		kt = keyType(img.Header().PackageType)
	}
	kn, err := signature.KeyName(cfg.format, kt, s.Algorithm(), cfg.key, cfg.suffix)
	if err != nil {
		return err
	}
	signed, err := signature.Sign(img, s, kn)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err = tftf.WriteFile(name, signed); err != nil {
		return err
	}
	log.Info("image signed", "file", name, "key", kn)
	return nil
}

func Main(cmd string, args []string) {
	fs, cfg := newFlags(cmd, flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() == 0 || (cfg.key == "" && !cfg.digest) {
		fs.Usage()
		os.Exit(util.ExitErrors)
	}
	var s signature.Signer
	if !cfg.digest {
		rs, err := signature.LoadRSAKey(cfg.key)
		util.FatalErr("key", err)
		s = rs
	}
	log := util.Logger(true)
	for _, name := range fs.Args() {
		util.FatalErr("", cfg.sign(os.Stdout, log, s, name))
	}
	util.Exit()
}
