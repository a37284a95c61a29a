// Package native provides RSA signing using the standard crypto libraries.
//
// Signatures are RSASSA-PKCS1-v1_5 over a SHA-256 digest of the payload.
package native

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/minio/sha256-simd"

	"github.com/cmeister2/fez/internal/crypto"
	"github.com/cmeister2/fez/internal/crypto/algorithm"
	"github.com/cmeister2/fez/internal/crypto/key"
	fezerrors "github.com/cmeister2/fez/internal/errors"
)

// Compile-time type assertions.
var (
	_ crypto.Signing[algorithm.RSA, Signature] = Signer{}
	_ crypto.Verifying[algorithm.RSA]          = Verifier{}
	_ key.Holder[key.Secret]                   = Signer{}
	_ key.Holder[key.Public]                   = Verifier{}
)

// Signature is a raw PKCS #1 v1.5 signature, as long as the key modulus.
type Signature []byte

// Signer signs with an RSA secret key. It is safe for concurrent use.
type Signer struct {
	privKey *rsa.PrivateKey
}

// NewSigner returns a Signer for privKey.
func NewSigner(privKey *rsa.PrivateKey) (Signer, error) {
	if privKey == nil {
		return Signer{}, fmt.Errorf("%w: nil private key", fezerrors.ErrInvalidKey)
	}
	if err := checkSize(&privKey.PublicKey); err != nil {
		return Signer{}, err
	}
	return Signer{privKey: privKey}, nil
}

// SignerFromPEM parses a PEM encoded private key and returns a Signer for it.
func SignerFromPEM(data []byte) (Signer, error) {
	privKey, err := ParsePrivateKey(data)
	if err != nil {
		return Signer{}, err
	}
	return Signer{privKey: privKey}, nil
}

// Role reports that a Signer holds secret key material.
func (Signer) Role() key.Secret { return key.Secret{} }

// Algorithm implements crypto.Signing.
func (Signer) Algorithm() algorithm.RSA { return algorithm.RSA{} }

// String implements fmt.Stringer. Only public key information is printed.
func (s Signer) String() string {
	if s.privKey == nil {
		return "native.Signer{unconfigured}"
	}
	return "native.Signer{" + describe(&s.privKey.PublicKey) + "}"
}

// Fingerprint returns the fingerprint of the public half of the key, or ""
// for the zero Signer.
func (s Signer) Fingerprint() string {
	if s.privKey == nil {
		return ""
	}
	return Fingerprint(&s.privKey.PublicKey)
}

// Sign signs the SHA-256 digest of data.
func (s Signer) Sign(data []byte) (Signature, error) {
	if s.privKey == nil {
		return nil, fmt.Errorf("%w: %w", fezerrors.ErrSigningFailed, fezerrors.ErrSignerNotConfigured)
	}

	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.privKey, stdcrypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: rsa: %w", fezerrors.ErrSigningFailed, err)
	}
	return sig, nil
}

// Verifier verifies signatures with an RSA public key. It is safe for
// concurrent use.
type Verifier struct {
	pubKey *rsa.PublicKey
}

// NewVerifier returns a Verifier for pubKey.
func NewVerifier(pubKey *rsa.PublicKey) (Verifier, error) {
	if err := checkSize(pubKey); err != nil {
		return Verifier{}, err
	}
	return Verifier{pubKey: pubKey}, nil
}

// VerifierFromPEM parses a PEM encoded public key and returns a Verifier for it.
func VerifierFromPEM(data []byte) (Verifier, error) {
	pubKey, err := ParsePublicKey(data)
	if err != nil {
		return Verifier{}, err
	}
	return Verifier{pubKey: pubKey}, nil
}

// Role reports that a Verifier holds public key material.
func (Verifier) Role() key.Public { return key.Public{} }

// Algorithm implements crypto.Verifying.
func (Verifier) Algorithm() algorithm.RSA { return algorithm.RSA{} }

// String implements fmt.Stringer.
func (v Verifier) String() string {
	if v.pubKey == nil {
		return "native.Verifier{unconfigured}"
	}
	return "native.Verifier{" + describe(v.pubKey) + "}"
}

// Fingerprint returns the fingerprint of the public key, or "" for the zero
// Verifier.
func (v Verifier) Fingerprint() string {
	if v.pubKey == nil {
		return ""
	}
	return Fingerprint(v.pubKey)
}

// Verify checks a PKCS #1 v1.5 signature over the SHA-256 digest of data.
func (v Verifier) Verify(data, signature []byte) error {
	if v.pubKey == nil {
		return fmt.Errorf("%w: %w", fezerrors.ErrVerificationFailed, fezerrors.ErrVerifierNotConfigured)
	}

	digest := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(v.pubKey, stdcrypto.SHA256, digest[:], signature); err != nil {
		return fmt.Errorf("%w: rsa: %w", fezerrors.ErrVerificationFailed, err)
	}
	return nil
}

// Fingerprint returns the hex SHA-256 of the PKIX encoding of pub.
func Fingerprint(pub *rsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}

func describe(pub *rsa.PublicKey) string {
	fp := Fingerprint(pub)
	if len(fp) > 16 {
		fp = fp[:16]
	}
	return fmt.Sprintf("RSA-%d %s", pub.N.BitLen(), fp)
}
