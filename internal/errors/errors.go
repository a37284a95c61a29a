// Package errors provides centralized error handling for fez.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrSigningFailed indicates that a signer could not produce a signature.
	// Every real signing backend wraps its failures with this sentinel.
	ErrSigningFailed = errors.New("signing failed")

	// ErrVerificationFailed indicates that a signature did not validate for the
	// presented data, or that the signature bytes could not be parsed at all.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrSignerNotConfigured indicates that no secret key was configured
	// for an operation that needs one.
	ErrSignerNotConfigured = errors.New("signer not configured")

	// ErrVerifierNotConfigured indicates that no public key was configured
	// for an operation that needs one.
	ErrVerifierNotConfigured = errors.New("verifier not configured")

	// ErrKeyNotFound indicates that a configured key file does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidKey indicates that key material could not be decoded.
	ErrInvalidKey = errors.New("invalid key")

	// ErrKeyNotRSA indicates that a key was decoded but is not an RSA key.
	ErrKeyNotRSA = errors.New("key is not an RSA key")

	// ErrKeyTooSmall indicates that an RSA key is below the accepted modulus size.
	ErrKeyTooSmall = errors.New("key size too small")

	// ErrKeyEncrypted indicates that a secret key is passphrase protected and
	// no passphrase was supplied.
	ErrKeyEncrypted = errors.New("key is encrypted")

	// ErrDigestMismatch indicates that a recorded package digest does not match
	// the digest recomputed from the package contents.
	ErrDigestMismatch = errors.New("digest mismatch")

	// ErrInvalidSignatureBlock indicates that a stored signature block could not
	// be decoded.
	ErrInvalidSignatureBlock = errors.New("invalid signature block")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidCrypto indicates an invalid Crypto configuration value.
	ErrConfigInvalidCrypto = errors.New("invalid Crypto configuration")

	// ErrConfigInvalidSigning indicates an invalid Signing configuration value.
	ErrConfigInvalidSigning = errors.New("invalid Signing configuration")

	// ErrConfigInvalidLog indicates an invalid Log configuration value.
	ErrConfigInvalidLog = errors.New("invalid Log configuration")

	// ErrUnknownProvider indicates that the configured crypto provider is not known.
	ErrUnknownProvider = errors.New("unknown crypto provider")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrInvalidArgument indicates that a command argument is invalid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLockTimedOut indicates that a file lock held by another process was
	// not released in time.
	ErrLockTimedOut = errors.New("lock timed out")

	// ErrFileExists indicates that an output file already exists and --force was not given.
	ErrFileExists = errors.New("file already exists")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}
