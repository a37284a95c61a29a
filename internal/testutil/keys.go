package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// TestKeyBits is the modulus size of fixture keys. It is the smallest size
// the backends accept, which keeps key generation fast.
const TestKeyBits = 2048

//nolint:gochecknoglobals // Shared fixture, generated once per test binary
var (
	rsaKeyOnce sync.Once
	rsaKey     *rsa.PrivateKey
	rsaKeyErr  error
)

// RSAKey returns an RSA private key shared by all tests in the binary.
func RSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	rsaKeyOnce.Do(func() {
		rsaKey, rsaKeyErr = rsa.GenerateKey(rand.Reader, TestKeyBits)
	})
	if rsaKeyErr != nil {
		t.Fatalf("generating fixture RSA key: %v", rsaKeyErr)
	}
	return rsaKey
}

// NewRSAKey generates a fresh RSA key of the given size.
func NewRSAKey(t testing.TB, bits int) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}
	return k
}

// PrivateKeyPEM encodes k as a PKCS#8 "PRIVATE KEY" PEM block.
func PrivateKeyPEM(t testing.TB, k *rsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(k)
	if err != nil {
		t.Fatalf("marshaling private key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// PublicKeyPEM encodes the public half of k as a PKIX "PUBLIC KEY" PEM block.
func PublicKeyPEM(t testing.TB, k *rsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// WriteFile writes data to name inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// FlipBit returns a copy of b with bit i (counted from the first byte's
// least significant bit) inverted.
func FlipBit(b []byte, i int) []byte {
	out := append([]byte{}, b...)
	out[i/8] ^= 1 << (i % 8)
	return out
}
