// Package config provides configuration management for fez with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (FEZ_* prefix)
//  3. Project config (.fez/config.yaml)
//  4. Global config (~/.fez/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import the crypto packages. Backends are chosen from the
// values here by internal/crypto/provider.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cmeister2/fez/internal/constants"
)

// Config is the root configuration structure for fez.
type Config struct {
	// Crypto selects the signing backend and the keys it uses.
	Crypto CryptoConfig `yaml:"crypto" mapstructure:"crypto"`

	// Signing contains settings for sign and verify commands.
	Signing SigningConfig `yaml:"signing" mapstructure:"signing"`

	// Log contains settings for the rotating CLI log file.
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// CryptoConfig holds configuration for cryptographic operations.
type CryptoConfig struct {
	// Provider selects the backend: "native" (PEM keys) or "pgp" (OpenPGP key rings).
	// Defaults to "native".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// KeyDir is the directory holding generated keys.
	// Empty means ~/.fez/keys.
	KeyDir string `yaml:"key_dir" mapstructure:"key_dir"`

	// SecretKeyPath overrides the secret key location inside KeyDir.
	SecretKeyPath string `yaml:"secret_key_path" mapstructure:"secret_key_path"`

	// PublicKeyPath overrides the public key location inside KeyDir.
	PublicKeyPath string `yaml:"public_key_path" mapstructure:"public_key_path"`

	// PassphraseEnvVar names the environment variable holding the passphrase
	// of an encrypted OpenPGP secret key. The passphrase itself is never
	// read from a config file.
	PassphraseEnvVar string `yaml:"passphrase_env_var" mapstructure:"passphrase_env_var"`

	// KeyBits is the RSA modulus size used by "fez keygen".
	KeyBits int `yaml:"key_bits" mapstructure:"key_bits"`

	// Name and Email form the OpenPGP user ID of generated keys.
	Name  string `yaml:"name" mapstructure:"name"`
	Email string `yaml:"email" mapstructure:"email"`
}

// SigningConfig contains settings for sign and verify operations.
type SigningConfig struct {
	// Timeout bounds a single sign or verify command.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LogConfig contains rotation settings for ~/.fez/logs/fez.log.
type LogConfig struct {
	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated files kept. Zero keeps all.
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`

	// MaxAgeDays is the number of days rotated files are kept. Zero keeps them forever.
	MaxAgeDays int `yaml:"max_age_days" mapstructure:"max_age_days"`

	// Compress enables gzip compression of rotated files.
	Compress bool `yaml:"compress" mapstructure:"compress"`
}

// ResolveKeyDir returns KeyDir, or ~/.fez/keys when it is empty.
func (c *CryptoConfig) ResolveKeyDir() (string, error) {
	if c.KeyDir != "" {
		return c.KeyDir, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.KeysDir), nil
}

// ResolveSecretKeyPath returns SecretKeyPath, or the provider's default file
// inside the key directory.
func (c *CryptoConfig) ResolveSecretKeyPath() (string, error) {
	if c.SecretKeyPath != "" {
		return c.SecretKeyPath, nil
	}
	return c.keyFile(constants.NativeSecretKeyFile, constants.PGPSecretKeyFile)
}

// ResolvePublicKeyPath returns PublicKeyPath, or the provider's default file
// inside the key directory.
func (c *CryptoConfig) ResolvePublicKeyPath() (string, error) {
	if c.PublicKeyPath != "" {
		return c.PublicKeyPath, nil
	}
	return c.keyFile(constants.NativePublicKeyFile, constants.PGPPublicKeyFile)
}

// Passphrase returns the value of the passphrase environment variable, or
// nil if it is unset or empty.
func (c *CryptoConfig) Passphrase() []byte {
	if c.PassphraseEnvVar == "" {
		return nil
	}
	if v := os.Getenv(c.PassphraseEnvVar); v != "" {
		return []byte(v)
	}
	return nil
}

func (c *CryptoConfig) keyFile(nativeName, pgpName string) (string, error) {
	dir, err := c.ResolveKeyDir()
	if err != nil {
		return "", err
	}
	if c.Provider == constants.ProviderPGP {
		return filepath.Join(dir, pgpName), nil
	}
	return filepath.Join(dir, nativeName), nil
}
