// Package constants provides centralized constant values used throughout fez.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by fez.
const (
	// FezHome is the hidden directory name where fez stores its data.
	// It is created in the user's home directory, and a project may carry
	// its own copy for project-level configuration.
	FezHome = ".fez"

	// KeysDir is the directory name under FezHome where signing keys are stored.
	KeysDir = "keys"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// File names used by fez.
const (
	// ConfigFileName is the name of both the global and project configuration files.
	ConfigFileName = "config.yaml"

	// CLILogFileName is the name of the CLI log file.
	// This file is located in ~/.fez/logs/fez.log
	CLILogFileName = "fez.log"

	// NativeSecretKeyFile is the PEM secret key used by the native provider.
	NativeSecretKeyFile = "signing.pem"

	// NativePublicKeyFile is the PEM public key exported by the native provider.
	NativePublicKeyFile = "signing.pub.pem"

	// PGPSecretKeyFile is the armored secret key written by "fez keygen --provider pgp".
	PGPSecretKeyFile = "signing.asc"

	// PGPPublicKeyFile is the armored public key written by "fez keygen --provider pgp".
	PGPPublicKeyFile = "signing.pub.asc"

	// KeyDirLockFile is the lock file held inside the key directory by "fez keygen".
	KeyDirLockFile = ".lock"

	// SignatureBlockSuffix is appended to the payload path to name a signature block.
	SignatureBlockSuffix = ".sig.yaml"
)

// Crypto provider names.
const (
	// ProviderNative selects the standard-library RSA backend.
	ProviderNative = "native"

	// ProviderPGP selects the OpenPGP RSA backend.
	ProviderPGP = "pgp"
)

// Signing defaults.
const (
	// DefaultSigningTimeout bounds a single sign or verify command.
	DefaultSigningTimeout = 2 * time.Minute

	// DefaultPassphraseEnvVar names the variable holding the secret key passphrase.
	DefaultPassphraseEnvVar = "FEZ_PASSPHRASE"

	// DefaultKeyBits is the RSA modulus size of generated keys.
	DefaultKeyBits = 3072

	// KeygenLockTimeout bounds the wait for another keygen to release the key directory.
	KeygenLockTimeout = 5 * time.Second
)

// Log rotation defaults for the CLI log file.
const (
	// LogMaxSizeMB is the size at which the log file is rotated.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files kept.
	LogMaxBackups = 3

	// LogMaxAgeDays is the number of days rotated files are kept.
	LogMaxAgeDays = 28

	// LogCompress enables gzip compression of rotated files.
	LogCompress = true
)
