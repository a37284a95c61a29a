package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/cmeister2/fez/internal/errors"
)

// newViperInstance creates a new Viper instance with standard fez configuration.
// This includes environment variable prefix (FEZ_), key replacer, and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FEZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(ctx context.Context, v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("crypto.provider", cfg.Crypto.Provider).
		Str("crypto.key_dir", cfg.Crypto.KeyDir).
		Dur("signing.timeout", cfg.Signing.Timeout).
		Msg("configuration loaded and unmarshaled")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (FEZ_* prefix)
//  2. Project config (.fez/config.yaml)
//  3. Global config (~/.fez/config.yaml)
//  4. Built-in defaults
//
// For CLI flag overrides, use LoadWithOverrides instead.
//
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	// Global config provides user-wide defaults that can be overridden per-project
	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}

	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(ctx, v)
}

// loadGlobalConfig attempts to load the global config file (~/.fez/config.yaml).
// Returns nil if the file doesn't exist or home directory cannot be determined.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, ok := getGlobalConfigPathIfExists()
	if !ok {
		return nil
	}

	v.SetConfigFile(globalConfigPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// getGlobalConfigPathIfExists returns the global config path if it exists.
func getGlobalConfigPathIfExists() (string, bool) {
	globalConfigPath, err := GlobalConfigPath()
	if err != nil {
		return "", false
	}
	if !fileExists(globalConfigPath) {
		return "", false
	}
	return globalConfigPath, true
}

// loadProjectConfig attempts to load the project config file (.fez/config.yaml).
// Returns nil if the file doesn't exist.
func loadProjectConfig(v *viper.Viper) error {
	projectConfigPath := ProjectConfigPath()
	if !fileExists(projectConfigPath) {
		return nil
	}

	v.SetConfigFile(projectConfigPath)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero values in overrides are applied.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	return applyAndValidate(cfg, overrides)
}

// LoadFile loads configuration from a single explicit file (the --config
// flag), layered over defaults and under environment variables. The file
// must exist.
func LoadFile(ctx context.Context, path string, overrides *Config) (*Config, error) {
	v := newViperInstance()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	cfg, err := unmarshalAndValidate(ctx, v)
	if err != nil {
		return nil, err
	}
	return applyAndValidate(cfg, overrides)
}

// LoadFromPaths loads configuration from specific file paths for testing.
//
// projectConfigPath is the path to project-level config (higher priority).
// globalConfigPath is the path to global config (lower priority).
// Either path can be empty to skip that level.
func LoadFromPaths(ctx context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(ctx, v)
}

// setDefaults configures all default values on the Viper instance.
// Keys must match the mapstructure tag names exactly; AutomaticEnv only
// sees keys viper already knows about.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("crypto.provider", d.Crypto.Provider)
	v.SetDefault("crypto.key_dir", d.Crypto.KeyDir)
	v.SetDefault("crypto.secret_key_path", "")
	v.SetDefault("crypto.public_key_path", "")
	v.SetDefault("crypto.passphrase_env_var", d.Crypto.PassphraseEnvVar)
	v.SetDefault("crypto.key_bits", d.Crypto.KeyBits)
	v.SetDefault("crypto.name", "")
	v.SetDefault("crypto.email", "")

	v.SetDefault("signing.timeout", d.Signing.Timeout.String())

	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
}

func applyAndValidate(cfg, overrides *Config) (*Config, error) {
	if overrides != nil {
		applyOverrides(cfg, overrides)
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// applyOverrides merges non-zero override values into the config.
// Log.Compress is a bool and cannot be overridden to false here.
func applyOverrides(cfg, overrides *Config) {
	applyCryptoOverrides(&cfg.Crypto, &overrides.Crypto)

	if overrides.Signing.Timeout != 0 {
		cfg.Signing.Timeout = overrides.Signing.Timeout
	}
}

func applyCryptoOverrides(cfg, overrides *CryptoConfig) {
	if overrides.Provider != "" {
		cfg.Provider = overrides.Provider
	}
	if overrides.KeyDir != "" {
		cfg.KeyDir = overrides.KeyDir
	}
	if overrides.SecretKeyPath != "" {
		cfg.SecretKeyPath = overrides.SecretKeyPath
	}
	if overrides.PublicKeyPath != "" {
		cfg.PublicKeyPath = overrides.PublicKeyPath
	}
	if overrides.PassphraseEnvVar != "" {
		cfg.PassphraseEnvVar = overrides.PassphraseEnvVar
	}
	if overrides.KeyBits != 0 {
		cfg.KeyBits = overrides.KeyBits
	}
	if overrides.Name != "" {
		cfg.Name = overrides.Name
	}
	if overrides.Email != "" {
		cfg.Email = overrides.Email
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
