package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/cmeister2/fez/internal/config"
	"github.com/cmeister2/fez/internal/constants"
	"github.com/cmeister2/fez/internal/crypto/native"
	"github.com/cmeister2/fez/internal/crypto/pgp"
	fezerrors "github.com/cmeister2/fez/internal/errors"
	"github.com/cmeister2/fez/internal/flock"
)

// defaultKeyName is the OpenPGP user ID name used when none is configured.
const defaultKeyName = "fez signing key"

// KeyPair describes a generated key pair. It carries no key material.
type KeyPair struct {
	Provider      string `json:"provider"`
	SecretKeyPath string `json:"secret_key_path"`
	PublicKeyPath string `json:"public_key_path"`
	Fingerprint   string `json:"fingerprint"`
	Bits          int    `json:"bits"`
	Replaced      bool   `json:"replaced,omitempty"`
}

// Generate creates a new key pair for the configured provider and writes it
// to the configured paths. The key directory is locked while it runs.
// Existing files are only replaced when force is set, and KeyPair.Replaced
// reports it; otherwise the error wraps errors.ErrFileExists.
func Generate(ctx context.Context, cfg *config.CryptoConfig, force bool) (*KeyPair, error) {
	switch cfg.Provider {
	case constants.ProviderNative, constants.ProviderPGP:
	default:
		return nil, fmt.Errorf("%w: %q", fezerrors.ErrUnknownProvider, cfg.Provider)
	}

	secretPath, err := cfg.ResolveSecretKeyPath()
	if err != nil {
		return nil, err
	}
	publicPath, err := cfg.ResolvePublicKeyPath()
	if err != nil {
		return nil, err
	}

	keyDir, err := cfg.ResolveKeyDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	lock, err := flock.Acquire(ctx, filepath.Join(keyDir, constants.KeyDirLockFile), constants.KeygenLockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	var replaced bool
	for _, p := range []string{secretPath, publicPath} {
		if _, err := os.Stat(p); err == nil {
			if !force {
				return nil, fmt.Errorf("%w: %s", fezerrors.ErrFileExists, p)
			}
			replaced = true
		}
	}

	bits := cfg.KeyBits
	if bits == 0 {
		bits = constants.DefaultKeyBits
	}
	pair := &KeyPair{
		Provider:      cfg.Provider,
		SecretKeyPath: secretPath,
		PublicKeyPath: publicPath,
		Bits:          bits,
		Replaced:      replaced,
	}

	if cfg.Provider == constants.ProviderPGP {
		err = generatePGP(pair, cfg)
	} else {
		err = generateNative(ctx, pair, force)
	}
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("component", "provider").
		Str("provider", pair.Provider).
		Str("secret_key_path", pair.SecretKeyPath).
		Str("fingerprint", pair.Fingerprint).
		Int("bits", pair.Bits).
		Bool("replaced", pair.Replaced).
		Msg("generated key pair")
	return pair, nil
}

func generateNative(ctx context.Context, pair *KeyPair, force bool) error {
	if force {
		if err := os.Remove(pair.SecretKeyPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing old key: %w", err)
		}
	}

	km := native.NewFileKeyManager(pair.SecretKeyPath)
	if err := km.LoadOrGenerate(ctx, pair.Bits); err != nil {
		return err
	}

	var pub bytes.Buffer
	if err := km.ExportPublicKey(&pub); err != nil {
		return err
	}
	if err := writeKeyFile(pair.PublicKeyPath, pub.Bytes(), 0o644); err != nil {
		return err
	}

	v, err := km.NewVerifier()
	if err != nil {
		return err
	}
	pair.Fingerprint = v.Fingerprint()
	return nil
}

func generatePGP(pair *KeyPair, cfg *config.CryptoConfig) error {
	name := cfg.Name
	if name == "" {
		name = defaultKeyName
	}

	secret, public, err := pgp.GenerateKeyPair(name, cfg.Email, pair.Bits, cfg.Passphrase())
	if err != nil {
		return err
	}
	if err := writeKeyFile(pair.SecretKeyPath, secret, 0o600); err != nil {
		return err
	}
	if err := writeKeyFile(pair.PublicKeyPath, public, 0o644); err != nil {
		return err
	}

	v, err := pgp.NewVerifier(bytes.NewReader(public))
	if err != nil {
		return err
	}
	pair.Fingerprint = v.Fingerprint()
	return nil
}

func writeKeyFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
