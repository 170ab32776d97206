// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package signature

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddedgo/tftf/fwtool/internal/tftf"
)

func TestKeyName(t *testing.T) {
	tests := []struct {
		f      Format
		kt     KeyType
		file   string
		suffix string
		want   string
	}{
		{Standard, S2FSK, "keys/test-151-00.private.pem", "", "test-151-00@s2fsk.keys.projectara.com"},
		{Standard, S3FSK, "test.public.pem", "example.com", "test@s3fsk.example.com"},
		{ES3, S3FSK, "/tmp/test.pem", "", "test@rsa2048-sha256.keys.projectara.com"},
		{ES3, S2FSK, "test.key", "x", "test.key@rsa2048-sha256.x"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := KeyName(tt.f, tt.kt, tftf.AlgRSA2048SHA256, tt.file, tt.suffix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyNameTooLong(t *testing.T) {
	long := make([]byte, 90)
	for i := range long {
		long[i] = 'k'
	}
	_, err := KeyName(Standard, S2FSK, tftf.AlgRSA2048SHA256, string(long)+".pem", "")
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	f, err := ParseFormat("ES3")
	require.NoError(t, err)
	assert.Equal(t, ES3, f)
	_, err = ParseFormat("x509")
	require.Error(t, err)

	kt, err := ParseKeyType("s3fsk")
	require.NoError(t, err)
	assert.Equal(t, S3FSK, kt)
	_, err = ParseKeyType("s4fsk")
	require.Error(t, err)

	alg, err := ParseAlgorithm("rsa2048-sha256")
	require.NoError(t, err)
	assert.Equal(t, tftf.AlgRSA2048SHA256, alg)
}

func testImage(t *testing.T) *tftf.Container {
	t.Helper()
	c := tftf.NewCache(0)
	require.NoError(t, c.Open(tftf.RawCode, ""))
	require.NoError(t, c.SetBlob([]byte("firmware code bytes")))
	require.NoError(t, c.Open(tftf.RawData, ""))
	require.NoError(t, c.SetBlob([]byte("data")))
	require.NoError(t, c.Close())
	img, err := tftf.Build(tftf.Header{Name: "signed"}, c.TotalSize(), c)
	require.NoError(t, err)
	return img
}

func writeKey(t *testing.T, key *rsa.PrivateKey, pkcs8 bool) string {
	t.Helper()
	blk := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if pkcs8 {
		b, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		blk = &pem.Block{Type: "PRIVATE KEY", Bytes: b}
	}
	name := filepath.Join(t.TempDir(), "test.private.pem")
	require.NoError(t, os.WriteFile(name, pem.EncodeToMemory(blk), 0o600))
	return name
}

func TestSignVerify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	for _, pkcs8 := range []bool{false, true} {
		s, err := LoadRSAKey(writeKey(t, key, pkcs8))
		require.NoError(t, err)

		img := testImage(t)
		orig := slices.Clone(img.Bytes())
		signed, err := Sign(img, s, "test@s2fsk.keys.projectara.com")
		require.NoError(t, err)
		assert.Equal(t, orig, img.Bytes())

		secs := signed.Sections()
		require.Len(t, secs, 3)
		assert.Equal(t, tftf.Signature, secs[2].Type)
		assert.Equal(t, tftf.LoadIgnored, secs[2].LoadAddress)

		rec, err := Verify(signed, s.Public())
		require.NoError(t, err)
		assert.Equal(t, "test@s2fsk.keys.projectara.com", rec.KeyName)
		assert.Equal(t, tftf.AlgRSA2048SHA256, rec.Type)
	}
}

func TestVerifyTampered(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	s, err := NewRSASigner(key)
	require.NoError(t, err)

	signed, err := Sign(testImage(t), s, "k@s2fsk.x")
	require.NoError(t, err)

	b := slices.Clone(signed.Bytes())
	b[tftf.DefaultHeaderSize] ^= 0xff // first code byte
	tampered, err := tftf.Parse(b, 0)
	require.NoError(t, err)
	_, err = Verify(tampered, s.Public())
	require.ErrorIs(t, err, rsa.ErrVerification)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = Verify(signed, &other.PublicKey)
	require.ErrorIs(t, err, rsa.ErrVerification)
}

func TestVerifyUnsigned(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = Verify(testImage(t), &key.PublicKey)
	require.ErrorIs(t, err, ErrNoSignature)
}

func TestNewRSASignerKeySize(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	_, err = NewRSASigner(key)
	require.ErrorIs(t, err, ErrKey)
}

func TestLoadRSAKeyBadPEM(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(name, []byte("not a key"), 0o600))
	_, err := LoadRSAKey(name)
	require.Error(t, err)
}
