// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/embeddedgo/tftf/fwtool/internal/tftf"
)

var (
	ErrNoSignature = errors.New("image isn't signed")
	ErrKey         = errors.New("unsupported key")
)

// Signer signs the SHA-256 digest of the signable region of an image.
type Signer interface {
	Algorithm() uint32
	Sign(d digest.Digest) ([]byte, error)
}

// RSASigner makes RSA-2048 PKCS #1 v1.5 signatures.
type RSASigner struct {
	key *rsa.PrivateKey
}

// NewRSASigner returns a signer that uses the 2048-bit key.
func NewRSASigner(key *rsa.PrivateKey) (*RSASigner, error) {
	if key.Size() != tftf.SignatureDataSize {
		return nil, fmt.Errorf("%w: %d-bit RSA, want 2048-bit", ErrKey, key.N.BitLen())
	}
	return &RSASigner{key}, nil
}

// LoadRSAKey reads the PEM encoded (PKCS #1 or PKCS #8) private key.
func LoadRSAKey(name string) (*RSASigner, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	blk, _ := pem.Decode(data)
	if blk == nil {
		return nil, fmt.Errorf("%s: no PEM data", name)
	}
	var key *rsa.PrivateKey
	switch blk.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(blk.Bytes)
	case "PRIVATE KEY":
		var k any
		if k, err = x509.ParsePKCS8PrivateKey(blk.Bytes); err == nil {
			var ok bool
			if key, ok = k.(*rsa.PrivateKey); !ok {
				err = fmt.Errorf("%w: %T", ErrKey, k)
			}
		}
	default:
		err = fmt.Errorf("%w: PEM block '%s'", ErrKey, blk.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return NewRSASigner(key)
}

func (s *RSASigner) Algorithm() uint32 { return tftf.AlgRSA2048SHA256 }

func (s *RSASigner) Sign(d digest.Digest) ([]byte, error) {
	sum, err := sha256Sum(d)
	if err != nil {
		return nil, err
	}
	return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, sum)
}

func (s *RSASigner) Public() *rsa.PublicKey { return &s.key.PublicKey }

func sha256Sum(d digest.Digest) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Algorithm() != digest.SHA256 {
		return nil, fmt.Errorf("unsupported digest algorithm %s", d.Algorithm())
	}
	return hex.DecodeString(d.Encoded())
}

// Sign returns the image extended by a signature section that covers its
// signable region. img is not modified.
func Sign(img *tftf.Container, s Signer, keyName string) (*tftf.Container, error) {
	d, err := tftf.Digest(img)
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(d)
	if err != nil {
		return nil, err
	}
	rec := tftf.SignatureRecord{Type: s.Algorithm(), KeyName: keyName, Signature: sig}
	payload, err := rec.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return tftf.AppendSection(img, tftf.Section{
		Type:        tftf.Signature,
		LoadAddress: tftf.LoadIgnored,
	}, payload)
}

// Verify checks the first signature of the image against the public key and
// returns its record.
func Verify(img *tftf.Container, pub *rsa.PublicKey) (*tftf.SignatureRecord, error) {
	d, err := tftf.Digest(img)
	if err != nil {
		return nil, err
	}
	for i, s := range img.Sections() {
		if s.Type != tftf.Signature {
			continue
		}
		p, err := img.Payload(i)
		if err != nil {
			return nil, err
		}
		rec := new(tftf.SignatureRecord)
		if err = rec.UnmarshalBinary(p); err != nil {
			return nil, &tftf.SectionError{Index: i, Err: err}
		}
		if rec.Type != tftf.AlgRSA2048SHA256 {
			return nil, fmt.Errorf("unsupported signature algorithm %d", rec.Type)
		}
		sum, err := sha256Sum(d)
		if err != nil {
			return nil, err
		}
		if err = rsa.VerifyPKCS1v15(pub, crypto.SHA256, sum, rec.Signature); err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, ErrNoSignature
}
