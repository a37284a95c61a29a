package native

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cmeister2/fez/internal/constants"
	fezerrors "github.com/cmeister2/fez/internal/errors"
)

const (
	// SigningKeyFile is the file name of the secret key inside a key directory.
	SigningKeyFile = constants.NativeSecretKeyFile

	// PublicKeyFile is the file name of the exported public key inside a key directory.
	PublicKeyFile = constants.NativePublicKeyFile

	// DefaultKeyBits is the modulus size of generated keys.
	DefaultKeyBits = constants.DefaultKeyBits

	// MinKeyBits is the smallest modulus accepted for signing or verification.
	MinKeyBits = 2048
)

// ErrKeyNotLoaded is returned when attempting to create a signer before Load.
var ErrKeyNotLoaded = errors.New("key not loaded")

// KeyManager loads the RSA secret key used for signing from a PEM file.
type KeyManager struct {
	keyPath string
	mu      sync.RWMutex
	privKey *rsa.PrivateKey
}

// NewKeyManager creates a KeyManager for the signing key stored in keyDir.
func NewKeyManager(keyDir string) *KeyManager {
	return NewFileKeyManager(filepath.Join(keyDir, SigningKeyFile))
}

// NewFileKeyManager creates a KeyManager for the signing key at keyPath.
func NewFileKeyManager(keyPath string) *KeyManager {
	return &KeyManager{keyPath: keyPath}
}

// Path returns the location of the secret key file.
func (km *KeyManager) Path() string {
	return km.keyPath
}

// Load reads the secret key from disk. It returns an error wrapping
// errors.ErrKeyNotFound if the file does not exist.
func (km *KeyManager) Load(ctx context.Context) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if km.privKey != nil {
		return nil
	}

	data, err := os.ReadFile(km.keyPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", fezerrors.ErrKeyNotFound, km.keyPath)
	} else if err != nil {
		return fmt.Errorf("reading signing key: %w", err)
	}

	privKey, err := ParsePrivateKey(data)
	if err != nil {
		return fmt.Errorf("loading %s: %w", km.keyPath, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "native").
		Str("path", km.keyPath).
		Int("bits", privKey.N.BitLen()).
		Msg("signing key loaded")

	km.privKey = privKey
	return nil
}

// LoadOrGenerate loads the secret key, generating and saving a new key of
// the given size if none exists. A bits value of zero selects DefaultKeyBits.
func (km *KeyManager) LoadOrGenerate(ctx context.Context, bits int) error {
	err := km.Load(ctx)
	if !errors.Is(err, fezerrors.ErrKeyNotFound) {
		return err
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if bits == 0 {
		bits = DefaultKeyBits
	}
	if bits < MinKeyBits {
		return fmt.Errorf("%w: %d bits requested, minimum is %d", fezerrors.ErrKeyTooSmall, bits, MinKeyBits)
	}

	if err := os.MkdirAll(filepath.Dir(km.keyPath), 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	privKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("generating rsa key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		return fmt.Errorf("encoding rsa key: %w", err)
	}
	encoded := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(km.keyPath, encoded, 0o600); err != nil {
		return fmt.Errorf("saving signing key: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("component", "native").
		Str("path", km.keyPath).
		Int("bits", bits).
		Msg("generated new signing key")

	km.privKey = privKey
	return nil
}

// Exists checks if the secret key exists on disk.
func (km *KeyManager) Exists() bool {
	_, err := os.Stat(km.keyPath)
	return err == nil
}

// NewSigner creates a Signer using the loaded key.
func (km *KeyManager) NewSigner() (*Signer, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if km.privKey == nil {
		return nil, ErrKeyNotLoaded
	}
	return &Signer{privKey: km.privKey}, nil
}

// NewVerifier creates a Verifier for the public half of the loaded key.
func (km *KeyManager) NewVerifier() (*Verifier, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if km.privKey == nil {
		return nil, ErrKeyNotLoaded
	}
	return &Verifier{pubKey: &km.privKey.PublicKey}, nil
}

// ExportPublicKey writes the public half of the loaded key to w as a PKIX
// "PUBLIC KEY" PEM block.
func (km *KeyManager) ExportPublicKey(w io.Writer) error {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if km.privKey == nil {
		return ErrKeyNotLoaded
	}
	der, err := x509.MarshalPKIXPublicKey(&km.privKey.PublicKey)
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}
	return pem.Encode(w, &pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// ParsePrivateKey decodes a PEM encoded RSA private key in PKCS#1
// ("RSA PRIVATE KEY") or PKCS#8 ("PRIVATE KEY") form.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", fezerrors.ErrInvalidKey)
	}

	var privKey *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fezerrors.ErrInvalidKey, err)
		}
		privKey = k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fezerrors.ErrInvalidKey, err)
		}
		rsaKey, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", fezerrors.ErrKeyNotRSA, k)
		}
		privKey = rsaKey
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", fezerrors.ErrInvalidKey, block.Type)
	}

	if err := checkSize(&privKey.PublicKey); err != nil {
		return nil, err
	}
	return privKey, nil
}

// ParsePublicKey decodes a PEM encoded RSA public key in PKIX
// ("PUBLIC KEY") or PKCS#1 ("RSA PUBLIC KEY") form.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", fezerrors.ErrInvalidKey)
	}

	var pubKey *rsa.PublicKey
	switch block.Type {
	case "RSA PUBLIC KEY":
		k, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fezerrors.ErrInvalidKey, err)
		}
		pubKey = k
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fezerrors.ErrInvalidKey, err)
		}
		rsaKey, ok := k.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", fezerrors.ErrKeyNotRSA, k)
		}
		pubKey = rsaKey
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", fezerrors.ErrInvalidKey, block.Type)
	}

	if err := checkSize(pubKey); err != nil {
		return nil, err
	}
	return pubKey, nil
}

func checkSize(pub *rsa.PublicKey) error {
	if pub == nil || pub.N == nil {
		return fmt.Errorf("%w: nil public key", fezerrors.ErrInvalidKey)
	}
	if bits := pub.N.BitLen(); bits < MinKeyBits {
		return fmt.Errorf("%w: %d bits, minimum is %d", fezerrors.ErrKeyTooSmall, bits, MinKeyBits)
	}
	return nil
}
