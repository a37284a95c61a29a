package constants

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPathConstants(t *testing.T) {
	t.Run("FezHome is hidden", func(t *testing.T) {
		assert.Equal(t, ".fez", FezHome)
		assert.Equal(t, ".", FezHome[:1])
	})

	t.Run("log path is under home", func(t *testing.T) {
		assert.Equal(t, filepath.Join(".fez", "logs", "fez.log"), filepath.Join(FezHome, LogsDir, CLILogFileName))
	})

	t.Run("pgp key files are distinct", func(t *testing.T) {
		assert.NotEqual(t, PGPSecretKeyFile, PGPPublicKeyFile)
	})

	t.Run("lock file is hidden", func(t *testing.T) {
		assert.Equal(t, ".lock", KeyDirLockFile)
	})
}

func TestProviderConstants(t *testing.T) {
	assert.Equal(t, "native", ProviderNative)
	assert.Equal(t, "pgp", ProviderPGP)
}

func TestSigningConstants(t *testing.T) {
	assert.Equal(t, 2*time.Minute, DefaultSigningTimeout)
	assert.Greater(t, DefaultSigningTimeout, time.Second, "should allow signing large payloads")
	assert.Equal(t, "FEZ_PASSPHRASE", DefaultPassphraseEnvVar)
}

func TestLogRotationConstants(t *testing.T) {
	assert.Positive(t, LogMaxSizeMB)
	assert.Positive(t, LogMaxBackups)
	assert.Positive(t, LogMaxAgeDays)
	assert.True(t, LogCompress)
}
