package config

import (
	"github.com/cmeister2/fez/internal/constants"
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files, environment variables, and CLI flags.
func DefaultConfig() *Config {
	return &Config{
		Crypto: CryptoConfig{
			// Provider: the native backend needs nothing beyond a PEM key.
			Provider: constants.ProviderNative,

			// KeyDir: empty means ~/.fez/keys.
			KeyDir: "",

			// PassphraseEnvVar: keeps passphrases out of config files.
			PassphraseEnvVar: constants.DefaultPassphraseEnvVar,

			KeyBits: constants.DefaultKeyBits,
		},
		Signing: SigningConfig{
			Timeout: constants.DefaultSigningTimeout,
		},
		Log: LogConfig{
			MaxSizeMB:  constants.LogMaxSizeMB,
			MaxBackups: constants.LogMaxBackups,
			MaxAgeDays: constants.LogMaxAgeDays,
			Compress:   constants.LogCompress,
		},
	}
}
