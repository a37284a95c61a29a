package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmeister2/fez/internal/errors"
)

func TestRootCmd_Help(t *testing.T) {
	t.Parallel()

	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{Version: "test"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, want := range []string{"fez", "keygen", "sign", "verify", "config", "--output", "--verbose", "--quiet", "--config", "--version"} {
		assert.Contains(t, output, want)
	}
}

func TestRootCmd_Version(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		info           BuildInfo
		expectContains []string
	}{
		{
			name:           "full version info",
			info:           BuildInfo{Version: "1.0.0", Commit: "abc1234", Date: "2025-01-01"},
			expectContains: []string{"1.0.0", "abc1234", "2025-01-01"},
		},
		{
			name:           "default dev version",
			info:           BuildInfo{},
			expectContains: []string{"dev", "none", "unknown"},
		},
		{
			name:           "partial version info",
			info:           BuildInfo{Version: "2.0.0-beta"},
			expectContains: []string{"2.0.0-beta", "none", "unknown"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd := newRootCmd(&GlobalFlags{}, tc.info)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetArgs([]string{"--version"})

			require.NoError(t, cmd.Execute())
			for _, want := range tc.expectContains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRootCmd_InvalidOutputFormat(t *testing.T) {
	isolate(t)

	_, stderr, err := runCLI(t, "config", "show", "--output", "xml")
	require.ErrorIs(t, err, errors.ErrInvalidOutputFormat)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
	assert.Contains(t, stderr, "invalid output format")
}

func TestRootCmd_VerboseAndQuietExclusive(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, "config", "show", "--verbose", "--quiet")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestRootCmd_OutputFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("FEZ_OUTPUT", "json")

	stdout, _, err := runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"crypto"`)
}

func TestExecute_ReportsErrorsAsJSON(t *testing.T) {
	isolate(t)
	header, payload := writePackage(t)

	_, stderr, err := runCLI(t, "sign", header, payload, "--output", "json")
	require.ErrorIs(t, err, errors.ErrKeyNotFound)
	assert.Contains(t, stderr, `"type":"error"`)
	assert.Contains(t, stderr, `"suggestion":"Run 'fez keygen'`)
}
