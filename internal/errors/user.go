package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries is the pre-built mapping of sentinel errors to their user-facing messages.
// Using a slice (not a map) because errors.Is() requires proper error chain traversal.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Signing & Verification
	// ===================
	{
		err: ErrSigningFailed,
		info: ErrorInfo{
			Message: "The package could not be signed.",
			Action:  "Check that the secret key is readable and matches the configured provider.",
		},
	},
	{
		err: ErrVerificationFailed,
		info: ErrorInfo{
			Message: "The signature is not valid for this package.",
			Action:  "Make sure the public key belongs to the signer and the package was not modified.",
		},
	},
	{
		err: ErrDigestMismatch,
		info: ErrorInfo{
			Message: "The package contents do not match the recorded digests.",
			Action:  "The package was modified after signing. Obtain a fresh copy and verify again.",
		},
	},
	{
		err: ErrInvalidSignatureBlock,
		info: ErrorInfo{
			Message: "The signature block could not be read.",
			Action:  "Re-create the signature block with 'fez sign'.",
		},
	},

	// ===================
	// Keys
	// ===================
	{
		err: ErrSignerNotConfigured,
		info: ErrorInfo{
			Message: "No secret key is configured.",
			Action:  "Run 'fez keygen' to create a key pair, or set crypto.secret_key_path in .fez/config.yaml.",
		},
	},
	{
		err: ErrVerifierNotConfigured,
		info: ErrorInfo{
			Message: "No public key is configured.",
			Action:  "Run 'fez keygen' to create a key pair, or set crypto.public_key_path in .fez/config.yaml.",
		},
	},
	{
		err: ErrKeyNotFound,
		info: ErrorInfo{
			Message: "The configured key file does not exist.",
			Action:  "Run 'fez keygen' to create a key pair, or fix the configured path.",
		},
	},
	{
		err: ErrInvalidKey,
		info: ErrorInfo{
			Message: "The key file could not be decoded.",
			Action:  "Provide a PEM (native provider) or ASCII-armored OpenPGP key (pgp provider).",
		},
	},
	{
		err: ErrKeyNotRSA,
		info: ErrorInfo{
			Message: "The key is not an RSA key.",
			Action:  "Only RSA keys are supported. Generate one with 'fez keygen'.",
		},
	},
	{
		err: ErrKeyTooSmall,
		info: ErrorInfo{
			Message: "The RSA key is too small.",
			Action:  "Use a key of at least 2048 bits.",
		},
	},
	{
		err: ErrKeyEncrypted,
		info: ErrorInfo{
			Message: "The secret key is protected by a passphrase.",
			Action:  "Export the passphrase in the environment variable named by crypto.passphrase_env_var.",
		},
	},

	// ===================
	// Configuration & Input
	// ===================
	{
		err: ErrConfigNil,
		info: ErrorInfo{
			Message: "Configuration is missing.",
		},
	},
	{
		err: ErrConfigInvalidCrypto,
		info: ErrorInfo{
			Message: "The crypto configuration is invalid.",
			Action:  "Run 'fez --verbose' to see which crypto setting was rejected.",
		},
	},
	{
		err: ErrConfigInvalidSigning,
		info: ErrorInfo{
			Message: "The signing configuration is invalid.",
			Action:  "Set signing.timeout to a positive duration such as 2m.",
		},
	},
	{
		err: ErrConfigInvalidLog,
		info: ErrorInfo{
			Message: "The log configuration is invalid.",
			Action:  "Check the log section of your config; sizes and ages must not be negative.",
		},
	},
	{
		err: ErrUnknownProvider,
		info: ErrorInfo{
			Message: "Unknown crypto provider.",
			Action:  "Set crypto.provider to 'native' or 'pgp'.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Invalid output format.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrFileExists,
		info: ErrorInfo{
			Message: "The output file already exists.",
			Action:  "Pass --force to overwrite it.",
		},
	},
	{
		err: ErrLockTimedOut,
		info: ErrorInfo{
			Message: "Another fez process is using the key directory.",
			Action:  "Wait for it to finish, or remove a stale .lock file in the key directory.",
		},
	},
}

// errorInfoMap provides O(1) lookup for direct sentinel error matches.
// Built once from errorInfoEntries during package initialization.
//
//nolint:gochecknoglobals // Pre-built mapping for O(1) lookup performance
var errorInfoMap = buildErrorInfoMap()

// buildErrorInfoMap creates a map from the errorInfoEntries slice.
func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// It first tries O(1) direct map lookup for unwrapped sentinel errors,
// then falls back to errors.Is() traversal for wrapped errors.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve or work around the issue.
//
// For errors that have no clear action, the action string will be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
