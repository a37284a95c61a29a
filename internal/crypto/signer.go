// Package crypto defines the signing and verification capabilities that
// package signatures are produced and checked with.
//
// The package does not implement any algorithm. Backends live in
// subpackages (native, pgp) and satisfy Signing and Verifying for the
// algorithm markers they support, so callers depend on the capability and
// never on a concrete cryptography library.
//
// Hashes are not part of this layer: package digests are fixed to MD5, SHA-1
// and SHA-256 by the package format itself.
package crypto

import (
	"fmt"

	"github.com/cmeister2/fez/internal/crypto/algorithm"
)

// Signature is the constraint on signature types produced by a Signing
// implementation: anything whose underlying type is a byte slice.
type Signature interface {
	~[]byte
}

// Signing is implemented by anything that can sign for algorithm A.
// S is the signature type the implementation hands out.
//
// Sign accepts payloads of any length, including empty ones. Failures are
// returned as errors wrapping errors.ErrSigningFailed. Callers must not
// assume signatures are deterministic.
//
// String must never reveal key material.
type Signing[A algorithm.Algorithm, S Signature] interface {
	fmt.Stringer

	// Algorithm returns the marker this signer is bound to.
	Algorithm() A

	// Sign signs data and returns the signature.
	Sign(data []byte) (S, error)
}

// Verifying is implemented by anything that can verify signatures for
// algorithm A.
//
// Verify takes the untrusted raw signature bytes, not a structured
// signature, and returns nil only when the signature is valid for data.
// Any other outcome, including unparsable signatures, is an error wrapping
// errors.ErrVerificationFailed.
type Verifying[A algorithm.Algorithm] interface {
	fmt.Stringer

	// Algorithm returns the marker this verifier is bound to.
	Algorithm() A

	// Verify checks signature against data.
	Verify(data, signature []byte) error
}

// Erase returns a Signing that forwards every call to s unchanged and hands
// out signatures as plain byte slices. It is the bytes-in, bytes-out form of
// any signer, so it is what long-lived call sites store.
func Erase[A algorithm.Algorithm, S Signature](s Signing[A, S]) Signing[A, []byte] {
	if plain, ok := s.(Signing[A, []byte]); ok {
		return plain
	}
	return erased[A, S]{inner: s}
}

type erased[A algorithm.Algorithm, S Signature] struct {
	inner Signing[A, S]
}

func (e erased[A, S]) String() string { return e.inner.String() }

func (e erased[A, S]) Algorithm() A { return e.inner.Algorithm() }

func (e erased[A, S]) Sign(data []byte) ([]byte, error) {
	sig, err := e.inner.Sign(data)
	if err != nil {
		return nil, err
	}
	return []byte(sig), nil
}
