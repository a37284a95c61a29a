package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmeister2/fez/internal/constants"
	"github.com/cmeister2/fez/internal/errors"
	"github.com/cmeister2/fez/internal/pkgsig"
	"github.com/cmeister2/fez/internal/testutil"
)

func TestSignVerify_Native(t *testing.T) {
	installNativeKey(t, isolate(t))
	header, payload := writePackage(t)

	stdout, _, err := runCLI(t, "sign", header, payload)
	require.NoError(t, err)
	blockPath := payload + constants.SignatureBlockSuffix
	assert.Contains(t, stdout, "Signed "+payload)
	assert.Contains(t, stdout, blockPath)

	f, err := os.Open(blockPath) //nolint:gosec // test path
	require.NoError(t, err)
	block, err := pkgsig.DecodeBlock(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "RSA", block.Algorithm)

	// No public key file exists; the verifier falls back to the secret key.
	stdout, _, err = runCLI(t, "verify", header, payload)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Signature OK for "+payload)
	assert.Contains(t, stdout, block.ID.String())
}

func TestSignVerify_JSONAndExplicitBlock(t *testing.T) {
	installNativeKey(t, isolate(t))
	header, payload := writePackage(t)
	blockPath := filepath.Join(t.TempDir(), "custom.sig.yaml")

	stdout, _, err := runCLI(t, "sign", header, payload, "--out", blockPath, "-o", "json")
	require.NoError(t, err)
	var signed signResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &signed))
	assert.Equal(t, blockPath, signed.Block)
	assert.Len(t, signed.SHA256, 64)

	stdout, _, err = runCLI(t, "verify", header, payload, blockPath, "-o", "json")
	require.NoError(t, err)
	var verified verifyResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &verified))
	assert.Equal(t, "verified", verified.Status)
	assert.Equal(t, signed.ID, verified.ID)
	assert.Contains(t, verified.Verifier, "native.Verifier{RSA-2048")
}

func TestSign_RefusesToOverwriteBlock(t *testing.T) {
	installNativeKey(t, isolate(t))
	header, payload := writePackage(t)

	_, _, err := runCLI(t, "sign", header, payload)
	require.NoError(t, err)

	_, _, err = runCLI(t, "sign", header, payload)
	require.ErrorIs(t, err, errors.ErrFileExists)

	_, _, err = runCLI(t, "sign", header, payload, "--force")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(payload))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temporary file left behind")
	}
}

func TestReplaceFile_KeepsOldContentOnFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "pkg.sig.yaml", []byte("old block"))

	err := replaceFile(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("half a new"))
		return testutil.ErrMockPermissionDenied
	})
	require.ErrorIs(t, err, testutil.ErrMockPermissionDenied)

	got, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Equal(t, "old block", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReplaceFile_Replaces(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "pkg.sig.yaml", []byte("old block"))

	require.NoError(t, replaceFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("new block"))
		return err
	}))

	got, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Equal(t, "new block", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestCreateFile_RemovesPartialFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "pkg.sig.yaml")

	err := createFile(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return testutil.ErrMockPermissionDenied
	})
	require.ErrorIs(t, err, testutil.ErrMockPermissionDenied)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVerify_TamperedPayload(t *testing.T) {
	installNativeKey(t, isolate(t))
	header, payload := writePackage(t)

	_, _, err := runCLI(t, "sign", header, payload)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(payload, []byte("tampered"), 0o600))

	_, stderr, err := runCLI(t, "verify", header, payload)
	require.ErrorIs(t, err, errors.ErrDigestMismatch)
	assert.Equal(t, ExitError, ExitCodeForError(err))
	assert.Contains(t, stderr, "digest mismatch")
}

func TestVerify_WrongKey(t *testing.T) {
	fezHome := isolate(t)
	installNativeKey(t, fezHome)
	header, payload := writePackage(t)

	_, _, err := runCLI(t, "sign", header, payload)
	require.NoError(t, err)

	// Replace the key pair; the old signature no longer verifies.
	_, _, err = runCLI(t, "keygen", "--bits", "2048", "--force")
	require.NoError(t, err)

	_, _, err = runCLI(t, "verify", header, payload)
	require.ErrorIs(t, err, errors.ErrVerificationFailed)
}

func TestSignVerify_MissingInputs(t *testing.T) {
	installNativeKey(t, isolate(t))
	header, payload := writePackage(t)
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name string
		args []string
	}{
		{"sign missing header", []string{"sign", missing, payload}},
		{"sign missing payload", []string{"sign", header, missing}},
		{"verify missing block", []string{"verify", header, payload, missing}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, tc.args...)
			require.ErrorIs(t, err, errors.ErrInvalidArgument)
			assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
		})
	}
}

func TestVerify_InvalidBlock(t *testing.T) {
	installNativeKey(t, isolate(t))
	header, payload := writePackage(t)
	blockPath := filepath.Join(t.TempDir(), "bad.sig.yaml")
	require.NoError(t, os.WriteFile(blockPath, []byte("algorithm: DSA\n"), 0o600))

	_, _, err := runCLI(t, "verify", header, payload, blockPath)
	require.ErrorIs(t, err, errors.ErrInvalidSignatureBlock)
}
