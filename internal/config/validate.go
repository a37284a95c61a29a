package config

import (
	"github.com/cmeister2/fez/internal/constants"
	"github.com/cmeister2/fez/internal/errors"
)

const (
	minKeyBits = 2048
	maxKeyBits = 16384
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - crypto.provider must be "native" or "pgp"
//   - crypto.key_bits must be between 2048 and 16384 and a multiple of 8
//   - crypto.passphrase_env_var must not be empty
//   - signing.timeout must be positive
//   - log sizes and ages must not be negative
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateCryptoConfig(&cfg.Crypto); err != nil {
		return err
	}

	if err := validateSigningConfig(&cfg.Signing); err != nil {
		return err
	}

	return validateLogConfig(&cfg.Log)
}

// validateCryptoConfig checks Crypto-specific configuration values.
func validateCryptoConfig(cfg *CryptoConfig) error {
	switch cfg.Provider {
	case constants.ProviderNative, constants.ProviderPGP:
	default:
		return errors.Wrapf(errors.ErrUnknownProvider,
			"crypto.provider must be %q or %q, got %q",
			constants.ProviderNative, constants.ProviderPGP, cfg.Provider)
	}

	if cfg.KeyBits < minKeyBits || cfg.KeyBits > maxKeyBits || cfg.KeyBits%8 != 0 {
		return errors.Wrapf(errors.ErrConfigInvalidCrypto,
			"crypto.key_bits must be a multiple of 8 between %d and %d, got %d",
			minKeyBits, maxKeyBits, cfg.KeyBits)
	}

	if cfg.PassphraseEnvVar == "" {
		return errors.Wrap(errors.ErrConfigInvalidCrypto,
			"crypto.passphrase_env_var must not be empty")
	}

	return nil
}

// validateSigningConfig checks Signing-specific configuration values.
func validateSigningConfig(cfg *SigningConfig) error {
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidSigning,
			"signing.timeout must be positive, got %s", cfg.Timeout)
	}
	return nil
}

// validateLogConfig checks Log-specific configuration values.
func validateLogConfig(cfg *LogConfig) error {
	if cfg.MaxSizeMB < 0 || cfg.MaxBackups < 0 || cfg.MaxAgeDays < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidLog,
			"log.max_size_mb, log.max_backups and log.max_age_days cannot be negative, got %d/%d/%d",
			cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
	return nil
}
