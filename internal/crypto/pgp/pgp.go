// Package pgp provides RSA signing backed by OpenPGP keys.
//
// Signatures are binary detached OpenPGP signature packets over the payload,
// the form package formats embed in their signature headers. Keys are read
// from ASCII-armored key rings.
package pgp

import (
	"bytes"
	stdcrypto "crypto"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/cmeister2/fez/internal/crypto"
	"github.com/cmeister2/fez/internal/crypto/algorithm"
	"github.com/cmeister2/fez/internal/crypto/key"
	fezerrors "github.com/cmeister2/fez/internal/errors"
)

// MinKeyBits is the smallest RSA modulus accepted.
const MinKeyBits = 2048

// Compile-time type assertions.
var (
	_ crypto.Signing[algorithm.RSA, Signature] = Signer{}
	_ crypto.Verifying[algorithm.RSA]          = Verifier{}
	_ key.Holder[key.Secret]                   = Signer{}
	_ key.Holder[key.Public]                   = Verifier{}
)

// Signature is a binary OpenPGP signature packet.
type Signature []byte

func defaultConfig() *packet.Config {
	return &packet.Config{DefaultHash: stdcrypto.SHA256}
}

// Signer signs with the secret RSA key of an OpenPGP entity. It is safe for
// concurrent use once constructed.
type Signer struct {
	entity *openpgp.Entity
	config *packet.Config
}

// NewSigner reads an ASCII-armored secret key ring and returns a Signer for
// its first entity. An encrypted key is unlocked with passphrase; if the key
// is encrypted and passphrase is empty or wrong, the error wraps
// errors.ErrKeyEncrypted.
func NewSigner(armored io.Reader, passphrase []byte) (Signer, error) {
	entity, err := readEntity(armored)
	if err != nil {
		return Signer{}, err
	}
	if entity.PrivateKey == nil {
		return Signer{}, fmt.Errorf("%w: key ring holds no secret key", fezerrors.ErrInvalidKey)
	}

	if isEncrypted(entity) {
		if len(passphrase) == 0 {
			return Signer{}, fmt.Errorf("%w: %s", fezerrors.ErrKeyEncrypted, fingerprint(entity))
		}
		if err := entity.DecryptPrivateKeys(passphrase); err != nil {
			return Signer{}, fmt.Errorf("%w: unlocking %s: %w", fezerrors.ErrKeyEncrypted, fingerprint(entity), err)
		}
	}

	if err := checkSigningKey(entity); err != nil {
		return Signer{}, err
	}
	return Signer{entity: entity, config: defaultConfig()}, nil
}

// Role reports that a Signer holds secret key material.
func (Signer) Role() key.Secret { return key.Secret{} }

// Algorithm implements crypto.Signing.
func (Signer) Algorithm() algorithm.RSA { return algorithm.RSA{} }

// String implements fmt.Stringer.
func (s Signer) String() string {
	if s.entity == nil {
		return "pgp.Signer{unconfigured}"
	}
	return "pgp.Signer{" + describe(s.entity) + "}"
}

// Fingerprint returns the hex fingerprint of the primary key.
func (s Signer) Fingerprint() string {
	if s.entity == nil {
		return ""
	}
	return fingerprint(s.entity)
}

// Sign returns a detached binary signature over data.
func (s Signer) Sign(data []byte) (Signature, error) {
	if s.entity == nil {
		return nil, fmt.Errorf("%w: %w", fezerrors.ErrSigningFailed, fezerrors.ErrSignerNotConfigured)
	}

	var buf bytes.Buffer
	if err := openpgp.DetachSign(&buf, s.entity, bytes.NewReader(data), s.config); err != nil {
		return nil, fmt.Errorf("%w: openpgp: %w", fezerrors.ErrSigningFailed, err)
	}
	return buf.Bytes(), nil
}

// Verifier checks detached signatures against the public RSA key of an
// OpenPGP entity.
type Verifier struct {
	keyring openpgp.EntityList
	config  *packet.Config
}

// NewVerifier reads an ASCII-armored public key ring and returns a Verifier
// for its first entity. A secret key ring is accepted too; only its public
// half is used.
func NewVerifier(armored io.Reader) (Verifier, error) {
	entity, err := readEntity(armored)
	if err != nil {
		return Verifier{}, err
	}
	if err := checkSigningKey(entity); err != nil {
		return Verifier{}, err
	}
	return Verifier{keyring: openpgp.EntityList{entity}, config: defaultConfig()}, nil
}

// Role reports that a Verifier holds public key material.
func (Verifier) Role() key.Public { return key.Public{} }

// Algorithm implements crypto.Verifying.
func (Verifier) Algorithm() algorithm.RSA { return algorithm.RSA{} }

// String implements fmt.Stringer.
func (v Verifier) String() string {
	if len(v.keyring) == 0 {
		return "pgp.Verifier{unconfigured}"
	}
	return "pgp.Verifier{" + describe(v.keyring[0]) + "}"
}

// Fingerprint returns the hex fingerprint of the primary key.
func (v Verifier) Fingerprint() string {
	if len(v.keyring) == 0 {
		return ""
	}
	return fingerprint(v.keyring[0])
}

// Verify checks a detached binary signature over data. The signature must be
// a single packet; any change to its bytes, including the length and hash
// tag octets, is rejected.
func (v Verifier) Verify(data, signature []byte) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("%w: %w", fezerrors.ErrVerificationFailed, fezerrors.ErrVerifierNotConfigured)
	}

	sig, err := parseSignature(signature)
	if err != nil {
		return fmt.Errorf("%w: openpgp: %w", fezerrors.ErrVerificationFailed, err)
	}
	_, err = openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(data), bytes.NewReader(signature), v.config)
	if err != nil {
		return fmt.Errorf("%w: openpgp: %w", fezerrors.ErrVerificationFailed, err)
	}
	if err := checkHashTag(sig, data); err != nil {
		return fmt.Errorf("%w: openpgp: %w", fezerrors.ErrVerificationFailed, err)
	}
	return nil
}

// GenerateKeyPair creates a new RSA OpenPGP entity and returns its secret and
// public key rings, ASCII-armored. A non-empty passphrase encrypts the secret
// keys.
func GenerateKeyPair(name, email string, bits int, passphrase []byte) (secret, public []byte, err error) {
	if bits < MinKeyBits {
		return nil, nil, fmt.Errorf("%w: %d bits requested, minimum is %d", fezerrors.ErrKeyTooSmall, bits, MinKeyBits)
	}

	cfg := &packet.Config{
		Algorithm:   packet.PubKeyAlgoRSA,
		RSABits:     bits,
		DefaultHash: stdcrypto.SHA256,
	}
	entity, err := openpgp.NewEntity(name, "", email, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("generating openpgp entity: %w", err)
	}

	var pub bytes.Buffer
	if err := armorTo(&pub, openpgp.PublicKeyType, entity.Serialize); err != nil {
		return nil, nil, err
	}

	if len(passphrase) > 0 {
		if err := entity.EncryptPrivateKeys(passphrase, cfg); err != nil {
			return nil, nil, fmt.Errorf("encrypting secret key: %w", err)
		}
	}

	var sec bytes.Buffer
	serializePrivate := func(w io.Writer) error {
		return entity.SerializePrivateWithoutSigning(w, cfg)
	}
	if err := armorTo(&sec, openpgp.PrivateKeyType, serializePrivate); err != nil {
		return nil, nil, err
	}
	return sec.Bytes(), pub.Bytes(), nil
}

func armorTo(out io.Writer, blockType string, serialize func(io.Writer) error) error {
	w, err := armor.Encode(out, blockType, nil)
	if err != nil {
		return fmt.Errorf("armoring %s: %w", blockType, err)
	}
	if err := serialize(w); err != nil {
		return fmt.Errorf("serializing %s: %w", blockType, err)
	}
	return w.Close()
}

func readEntity(armored io.Reader) (*openpgp.Entity, error) {
	ring, err := openpgp.ReadArmoredKeyRing(armored)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fezerrors.ErrInvalidKey, err)
	}
	if len(ring) == 0 {
		return nil, fmt.Errorf("%w: empty key ring", fezerrors.ErrInvalidKey)
	}
	return ring[0], nil
}

func isEncrypted(entity *openpgp.Entity) bool {
	if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
		return true
	}
	for _, sub := range entity.Subkeys {
		if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
			return true
		}
	}
	return false
}

func checkSigningKey(entity *openpgp.Entity) error {
	signingKey, ok := entity.SigningKey(time.Now())
	if !ok {
		return fmt.Errorf("%w: %s has no valid signing key", fezerrors.ErrInvalidKey, fingerprint(entity))
	}

	pub := signingKey.PublicKey
	switch pub.PubKeyAlgo {
	case packet.PubKeyAlgoRSA, packet.PubKeyAlgoRSASignOnly:
	default:
		return fmt.Errorf("%w: openpgp algorithm %d", fezerrors.ErrKeyNotRSA, pub.PubKeyAlgo)
	}

	bits, err := pub.BitLength()
	if err != nil {
		return fmt.Errorf("%w: %w", fezerrors.ErrInvalidKey, err)
	}
	if int(bits) < MinKeyBits {
		return fmt.Errorf("%w: %d bits, minimum is %d", fezerrors.ErrKeyTooSmall, bits, MinKeyBits)
	}
	return nil
}

func fingerprint(entity *openpgp.Entity) string {
	return strings.ToUpper(hex.EncodeToString(entity.PrimaryKey.Fingerprint))
}

func describe(entity *openpgp.Entity) string {
	desc := "RSA " + fingerprint(entity)
	if id := entity.PrimaryIdentity(); id != nil {
		desc += " " + id.Name
	}
	return desc
}
