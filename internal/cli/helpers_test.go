package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmeister2/fez/internal/constants"
	"github.com/cmeister2/fez/internal/testutil"
)

// isolate points HOME and FEZ_HOME at a temp dir and runs the test from an
// empty working directory, so no real config or key is picked up.
// It returns the FEZ_HOME directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	fezHome := filepath.Join(home, constants.FezHome)
	t.Setenv("HOME", home)
	t.Setenv("FEZ_HOME", fezHome)
	t.Setenv("NO_COLOR", "1")
	t.Chdir(t.TempDir())
	return fezHome
}

// runCLI executes fez with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	flags := &GlobalFlags{Output: OutputText}
	cmd := newRootCmd(flags, BuildInfo{Version: "test"})

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = execute(context.Background(), cmd, flags)
	return out.String(), errOut.String(), err
}

// installNativeKey writes the shared fixture key as the native secret key.
func installNativeKey(t *testing.T, fezHome string) {
	t.Helper()
	dir := filepath.Join(fezHome, constants.KeysDir)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	testutil.WriteFile(t, dir, constants.NativeSecretKeyFile, testutil.PrivateKeyPEM(t, testutil.RSAKey(t)))
}

// writePackage writes a small header and payload and returns their paths.
func writePackage(t *testing.T) (header, payload string) {
	t.Helper()
	dir := t.TempDir()
	header = testutil.WriteFile(t, dir, "pkg.header", []byte("\x8e\xad\xe8\x01header"))
	payload = testutil.WriteFile(t, dir, "pkg.payload", bytes.Repeat([]byte("cpio"), 1024))
	return header, payload
}
