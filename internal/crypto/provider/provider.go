// Package provider builds the signing and verifying capabilities selected by
// configuration.
//
// The algorithm stays a compile-time marker: every backend offered here
// signs RSA, and only the library behind it is chosen at runtime. Results
// are erased to the bytes-in, bytes-out form so callers never see which
// backend they were given.
package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/cmeister2/fez/internal/config"
	"github.com/cmeister2/fez/internal/constants"
	"github.com/cmeister2/fez/internal/crypto"
	"github.com/cmeister2/fez/internal/crypto/algorithm"
	"github.com/cmeister2/fez/internal/crypto/native"
	"github.com/cmeister2/fez/internal/crypto/pgp"
	fezerrors "github.com/cmeister2/fez/internal/errors"
)

// Signer returns the configured RSA signer.
//
// A missing secret key is an ordinary error wrapping both
// errors.ErrSignerNotConfigured and errors.ErrKeyNotFound.
func Signer(ctx context.Context, cfg *config.CryptoConfig) (crypto.Signing[algorithm.RSA, []byte], error) {
	path, err := cfg.ResolveSecretKeyPath()
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx).With().
		Str("component", "provider").
		Str("provider", cfg.Provider).
		Str("path", path).
		Logger()

	switch cfg.Provider {
	case constants.ProviderNative:
		km := native.NewFileKeyManager(path)
		if err := km.Load(logger.WithContext(ctx)); err != nil {
			return nil, notConfigured(fezerrors.ErrSignerNotConfigured, err)
		}
		s, err := km.NewSigner()
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("fingerprint", s.Fingerprint()).Msg("signer ready")
		return crypto.Erase[algorithm.RSA, native.Signature](s), nil

	case constants.ProviderPGP:
		data, err := readKey(path)
		if err != nil {
			return nil, notConfigured(fezerrors.ErrSignerNotConfigured, err)
		}
		s, err := pgp.NewSigner(bytes.NewReader(data), cfg.Passphrase())
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		logger.Debug().Str("fingerprint", s.Fingerprint()).Msg("signer ready")
		return crypto.Erase[algorithm.RSA, pgp.Signature](s), nil

	default:
		return nil, fmt.Errorf("%w: %q", fezerrors.ErrUnknownProvider, cfg.Provider)
	}
}

// Verifier returns the configured RSA verifier.
//
// The public key is read from its configured path. When that file does not
// exist the public half of the secret key is used instead, so a signing host
// can verify its own output. If neither exists the error wraps
// errors.ErrVerifierNotConfigured.
func Verifier(ctx context.Context, cfg *config.CryptoConfig) (crypto.Verifying[algorithm.RSA], error) {
	publicPath, err := cfg.ResolvePublicKeyPath()
	if err != nil {
		return nil, err
	}
	secretPath, err := cfg.ResolveSecretKeyPath()
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx).With().
		Str("component", "provider").
		Str("provider", cfg.Provider).
		Logger()

	path := publicPath
	data, err := readKey(publicPath)
	if errors.Is(err, fezerrors.ErrKeyNotFound) {
		path = secretPath
		data, err = readKey(secretPath)
	}
	if err != nil {
		return nil, notConfigured(fezerrors.ErrVerifierNotConfigured, err)
	}

	switch cfg.Provider {
	case constants.ProviderNative:
		v, err := nativeVerifier(data)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		logger.Debug().Str("path", path).Str("fingerprint", v.Fingerprint()).Msg("verifier ready")
		return v, nil

	case constants.ProviderPGP:
		v, err := pgp.NewVerifier(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		logger.Debug().Str("path", path).Str("fingerprint", v.Fingerprint()).Msg("verifier ready")
		return v, nil

	default:
		return nil, fmt.Errorf("%w: %q", fezerrors.ErrUnknownProvider, cfg.Provider)
	}
}

// nativeVerifier accepts either a public key or, as a fallback, a secret key.
func nativeVerifier(data []byte) (native.Verifier, error) {
	v, err := native.VerifierFromPEM(data)
	if err == nil {
		return v, nil
	}
	privKey, privErr := native.ParsePrivateKey(data)
	if privErr != nil {
		return native.Verifier{}, err
	}
	return native.NewVerifier(&privKey.PublicKey)
}

func readKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from configuration
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", fezerrors.ErrKeyNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}
	return data, nil
}

func notConfigured(kind, err error) error {
	if errors.Is(err, fezerrors.ErrKeyNotFound) {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return err
}
