package native

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmeister2/fez/internal/crypto"
	"github.com/cmeister2/fez/internal/crypto/algorithm"
	fezerrors "github.com/cmeister2/fez/internal/errors"
	"github.com/cmeister2/fez/internal/testutil"
)

func newPair(t *testing.T) (Signer, Verifier) {
	t.Helper()
	k := testutil.RSAKey(t)
	s, err := NewSigner(k)
	require.NoError(t, err)
	v, err := NewVerifier(&k.PublicKey)
	require.NoError(t, err)
	return s, v
}

func TestNewKeyManager(t *testing.T) {
	tmpDir := t.TempDir()
	km := NewKeyManager(tmpDir)

	require.NotNil(t, km)
	assert.Equal(t, filepath.Join(tmpDir, SigningKeyFile), km.Path())
	assert.False(t, km.Exists())
}

func TestKeyManager_Load(t *testing.T) {
	t.Run("returns ErrKeyNotFound when missing", func(t *testing.T) {
		km := NewKeyManager(t.TempDir())

		err := km.Load(context.Background())
		require.ErrorIs(t, err, fezerrors.ErrKeyNotFound)
	})

	t.Run("loads PKCS#8 key", func(t *testing.T) {
		k := testutil.RSAKey(t)
		path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, testutil.PrivateKeyPEM(t, k))
		km := NewFileKeyManager(path)

		require.NoError(t, km.Load(context.Background()))
		assert.True(t, km.privKey.Equal(k))
		assert.True(t, km.Exists())
	})

	t.Run("loads PKCS#1 key", func(t *testing.T) {
		k := testutil.RSAKey(t)
		data := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)})
		path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, data)
		km := NewFileKeyManager(path)

		require.NoError(t, km.Load(context.Background()))
		assert.True(t, km.privKey.Equal(k))
	})

	t.Run("does not reload if key already loaded", func(t *testing.T) {
		dir := t.TempDir()
		path := testutil.WriteFile(t, dir, SigningKeyFile, testutil.PrivateKeyPEM(t, testutil.RSAKey(t)))
		km := NewFileKeyManager(path)
		require.NoError(t, km.Load(context.Background()))
		first := km.privKey

		require.NoError(t, os.Remove(path))
		require.NoError(t, km.Load(context.Background()))
		assert.Same(t, first, km.privKey)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, []byte("not a key"))
		err := NewFileKeyManager(path).Load(context.Background())
		require.ErrorIs(t, err, fezerrors.ErrInvalidKey)
	})

	t.Run("rejects unknown PEM block", func(t *testing.T) {
		data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1, 2, 3}})
		path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, data)
		err := NewFileKeyManager(path).Load(context.Background())
		require.ErrorIs(t, err, fezerrors.ErrInvalidKey)
	})

	t.Run("rejects non-RSA key", func(t *testing.T) {
		_, edKey, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		der, err := x509.MarshalPKCS8PrivateKey(edKey)
		require.NoError(t, err)
		data := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
		path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, data)

		err = NewFileKeyManager(path).Load(context.Background())
		require.ErrorIs(t, err, fezerrors.ErrKeyNotRSA)
	})

	t.Run("rejects small key", func(t *testing.T) {
		small := testutil.NewRSAKey(t, 1024)
		path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, testutil.PrivateKeyPEM(t, small))

		err := NewFileKeyManager(path).Load(context.Background())
		require.ErrorIs(t, err, fezerrors.ErrKeyTooSmall)
	})

	t.Run("error does not leak key material", func(t *testing.T) {
		data := testutil.PrivateKeyPEM(t, testutil.NewRSAKey(t, 1024))
		path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, data)

		err := NewFileKeyManager(path).Load(context.Background())
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "PRIVATE KEY")
	})
}

func TestKeyManager_LoadOrGenerate(t *testing.T) {
	t.Run("generates and persists a key", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "keys")
		km := NewKeyManager(dir)

		require.NoError(t, km.LoadOrGenerate(context.Background(), MinKeyBits))
		require.NotNil(t, km.privKey)
		assert.Equal(t, MinKeyBits, km.privKey.N.BitLen())

		info, err := os.Stat(km.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		km2 := NewKeyManager(dir)
		require.NoError(t, km2.Load(context.Background()))
		assert.True(t, km.privKey.Equal(km2.privKey))
	})

	t.Run("keeps an existing key", func(t *testing.T) {
		k := testutil.RSAKey(t)
		path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, testutil.PrivateKeyPEM(t, k))
		km := NewFileKeyManager(path)

		require.NoError(t, km.LoadOrGenerate(context.Background(), 0))
		assert.True(t, km.privKey.Equal(k))
	})

	t.Run("rejects small sizes", func(t *testing.T) {
		km := NewKeyManager(t.TempDir())
		err := km.LoadOrGenerate(context.Background(), 1024)
		require.ErrorIs(t, err, fezerrors.ErrKeyTooSmall)
		assert.False(t, km.Exists())
	})

	t.Run("propagates decode errors", func(t *testing.T) {
		path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, []byte("garbage"))
		err := NewFileKeyManager(path).LoadOrGenerate(context.Background(), 0)
		require.ErrorIs(t, err, fezerrors.ErrInvalidKey)
	})
}

func TestKeyManager_NotLoaded(t *testing.T) {
	km := NewKeyManager(t.TempDir())

	_, err := km.NewSigner()
	require.ErrorIs(t, err, ErrKeyNotLoaded)

	_, err = km.NewVerifier()
	require.ErrorIs(t, err, ErrKeyNotLoaded)

	require.ErrorIs(t, km.ExportPublicKey(&bytes.Buffer{}), ErrKeyNotLoaded)
}

func TestKeyManager_ExportPublicKey(t *testing.T) {
	k := testutil.RSAKey(t)
	path := testutil.WriteFile(t, t.TempDir(), SigningKeyFile, testutil.PrivateKeyPEM(t, k))
	km := NewFileKeyManager(path)
	require.NoError(t, km.Load(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, km.ExportPublicKey(&buf))
	assert.Contains(t, buf.String(), "BEGIN PUBLIC KEY")

	signer, err := km.NewSigner()
	require.NoError(t, err)
	verifier, err := VerifierFromPEM(buf.Bytes())
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("exported"))
	require.NoError(t, err)
	require.NoError(t, verifier.Verify([]byte("exported"), sig))
}

func TestParsePublicKey(t *testing.T) {
	k := testutil.RSAKey(t)

	t.Run("PKIX", func(t *testing.T) {
		pub, err := ParsePublicKey(testutil.PublicKeyPEM(t, k))
		require.NoError(t, err)
		assert.True(t, pub.Equal(&k.PublicKey))
	})

	t.Run("PKCS#1", func(t *testing.T) {
		data := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&k.PublicKey)})
		pub, err := ParsePublicKey(data)
		require.NoError(t, err)
		assert.True(t, pub.Equal(&k.PublicKey))
	})

	t.Run("rejects private key block", func(t *testing.T) {
		_, err := ParsePublicKey(testutil.PrivateKeyPEM(t, k))
		require.ErrorIs(t, err, fezerrors.ErrInvalidKey)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ParsePublicKey(nil)
		require.ErrorIs(t, err, fezerrors.ErrInvalidKey)
	})
}

func TestSignVerify_RoundTrip(t *testing.T) {
	signer, verifier := newPair(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"single byte", []byte{0x00}},
		{"text", []byte("Name: fez\nVersion: 1.0.0\n")},
		{"large", bytes.Repeat([]byte{0xab}, 1<<20)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sig, err := signer.Sign(tc.data)
			require.NoError(t, err)
			assert.Len(t, sig, testutil.TestKeyBits/8)
			require.NoError(t, verifier.Verify(tc.data, sig))
		})
	}
}

func TestVerify_RejectsFlippedSignatureBits(t *testing.T) {
	signer, verifier := newPair(t)
	data := []byte("header+payload")

	sig, err := signer.Sign(data)
	require.NoError(t, err)

	for i := 0; i < len(sig)*8; i++ {
		err := verifier.Verify(data, testutil.FlipBit(sig, i))
		require.ErrorIs(t, err, fezerrors.ErrVerificationFailed, "bit %d", i)
	}
}

func TestVerify_RejectsFlippedDataBits(t *testing.T) {
	signer, verifier := newPair(t)
	data := []byte("0123456789abcdef0123456789abcdef")

	sig, err := signer.Sign(data)
	require.NoError(t, err)

	for i := 0; i < len(data)*8; i++ {
		err := verifier.Verify(testutil.FlipBit(data, i), sig)
		require.ErrorIs(t, err, fezerrors.ErrVerificationFailed, "bit %d", i)
	}
}

func TestVerify_Rejects(t *testing.T) {
	signer, verifier := newPair(t)
	sig, err := signer.Sign([]byte("package A"))
	require.NoError(t, err)

	t.Run("signature for a different payload", func(t *testing.T) {
		err := verifier.Verify([]byte("package B"), sig)
		require.ErrorIs(t, err, fezerrors.ErrVerificationFailed)
	})

	t.Run("truncated signature", func(t *testing.T) {
		err := verifier.Verify([]byte("package A"), sig[:len(sig)-1])
		require.ErrorIs(t, err, fezerrors.ErrVerificationFailed)
	})

	t.Run("empty signature", func(t *testing.T) {
		err := verifier.Verify([]byte("package A"), nil)
		require.ErrorIs(t, err, fezerrors.ErrVerificationFailed)
	})

	t.Run("signature from a different key", func(t *testing.T) {
		other, err := NewSigner(testutil.NewRSAKey(t, MinKeyBits))
		require.NoError(t, err)
		otherSig, err := other.Sign([]byte("package A"))
		require.NoError(t, err)

		err = verifier.Verify([]byte("package A"), otherSig)
		require.ErrorIs(t, err, fezerrors.ErrVerificationFailed)
	})
}

func TestSigner_ReferenceTransparency(t *testing.T) {
	signer, verifier := newPair(t)
	data := []byte("same input")

	var byValue crypto.Signing[algorithm.RSA, Signature] = signer
	var byRef crypto.Signing[algorithm.RSA, Signature] = &signer

	s1, err := byValue.Sign(data)
	require.NoError(t, err)
	s2, err := byRef.Sign(data)
	require.NoError(t, err)
	s3, err := crypto.Erase(byRef).Sign(data)
	require.NoError(t, err)

	// PKCS #1 v1.5 is deterministic, so all three must agree byte for byte.
	assert.Equal(t, s1, s2)
	assert.Equal(t, []byte(s1), s3)

	var vByValue crypto.Verifying[algorithm.RSA] = verifier
	var vByRef crypto.Verifying[algorithm.RSA] = &verifier
	require.NoError(t, vByValue.Verify(data, s1))
	require.NoError(t, vByRef.Verify(data, s1))
}

func TestZeroValues_ReturnErrors(t *testing.T) {
	sig, err := Signer{}.Sign([]byte("data"))
	require.ErrorIs(t, err, fezerrors.ErrSigningFailed)
	require.ErrorIs(t, err, fezerrors.ErrSignerNotConfigured)
	assert.Nil(t, sig)

	err = Verifier{}.Verify([]byte("data"), []byte("sig"))
	require.ErrorIs(t, err, fezerrors.ErrVerificationFailed)
	require.ErrorIs(t, err, fezerrors.ErrVerifierNotConfigured)

	assert.Equal(t, "native.Signer{unconfigured}", Signer{}.String())
	assert.Equal(t, "native.Verifier{unconfigured}", Verifier{}.String())
	assert.Empty(t, Signer{}.Fingerprint())
	assert.Empty(t, Verifier{}.Fingerprint())
}

func TestString_OnlyPublicInformation(t *testing.T) {
	signer, verifier := newPair(t)
	k := testutil.RSAKey(t)

	assert.Contains(t, signer.String(), "RSA-2048")
	assert.Equal(t, "native.Verifier"+signer.String()[len("native.Signer"):], verifier.String())
	assert.NotContains(t, signer.String(), k.D.String())
	assert.Len(t, Fingerprint(&k.PublicKey), 64)
	assert.Equal(t, Fingerprint(&k.PublicKey), signer.Fingerprint())
	assert.Equal(t, signer.Fingerprint(), verifier.Fingerprint())
}

func TestNewSigner_RejectsSmallKey(t *testing.T) {
	small := testutil.NewRSAKey(t, 1024)

	_, err := NewSigner(small)
	require.ErrorIs(t, err, fezerrors.ErrKeyTooSmall)

	_, err = NewVerifier(&small.PublicKey)
	require.ErrorIs(t, err, fezerrors.ErrKeyTooSmall)
}

func TestNewSigner_RejectsNilKey(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		_, err := NewSigner(nil)
		require.ErrorIs(t, err, fezerrors.ErrInvalidKey)

		_, err = NewVerifier(nil)
		require.ErrorIs(t, err, fezerrors.ErrInvalidKey)

		_, err = NewVerifier(&rsa.PublicKey{})
		require.ErrorIs(t, err, fezerrors.ErrInvalidKey)
	})
}

func TestSigner_ConcurrentUse(t *testing.T) {
	signer, verifier := newPair(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data := []byte{byte(i)}
			sig, err := signer.Sign(data)
			if err != nil {
				errs <- err
				return
			}
			errs <- verifier.Verify(data, sig)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestSignerFromPEM(t *testing.T) {
	k := testutil.RSAKey(t)

	signer, err := SignerFromPEM(testutil.PrivateKeyPEM(t, k))
	require.NoError(t, err)
	verifier, err := VerifierFromPEM(testutil.PublicKeyPEM(t, k))
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("pem"))
	require.NoError(t, err)
	require.NoError(t, verifier.Verify([]byte("pem"), sig))

	_, err = SignerFromPEM([]byte("nope"))
	require.ErrorIs(t, err, fezerrors.ErrInvalidKey)

}
