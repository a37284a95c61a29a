// Package cli provides the command-line interface for fez.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cmeister2/fez/internal/config"
	"github.com/cmeister2/fez/internal/errors"
	"github.com/cmeister2/fez/internal/tui"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// newRootCmd creates and returns the root command for the fez CLI.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "fez",
		Short: "fez - RSA package signing and verification",
		Long: `fez signs packages and verifies package signatures with RSA keys.

A package is a header file and a payload file. Signing writes a signature
block holding an RSA signature over the header, an RSA signature over header
and payload, and the MD5, SHA-1 and SHA-256 package digests.

Keys come from one of two providers:
  • native: PEM encoded RSA keys (PKCS #1 v1.5, SHA-256)
  • pgp:    ASCII-armored OpenPGP key rings (detached signatures)`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			resolveGlobalFlags(v, flags)

			if !IsValidOutputFormat(flags.Output) {
				return fmt.Errorf("%w: %q must be one of %v", errors.ErrInvalidOutputFormat, flags.Output, ValidOutputFormats())
			}

			// Config errors surface from the subcommand that loads it with
			// its own overrides; here the log settings fall back to defaults.
			logCfg := config.DefaultConfig().Log
			if cfg, err := loadConfig(cmd.Context(), flags, nil); err == nil {
				logCfg = cfg.Log
			}

			logger := InitLogger(flags.Verbose, flags.Quiet, logCfg)

			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(cmd, flags)

	AddKeygenCommand(cmd, flags)
	AddSignCommand(cmd, flags)
	AddVerifyCommand(cmd, flags)
	AddConfigCommand(cmd, flags)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// loadConfig loads the effective configuration, from --config when given.
func loadConfig(ctx context.Context, flags *GlobalFlags, overrides *config.Config) (*config.Config, error) {
	if flags.ConfigPath != "" {
		return config.LoadFile(ctx, flags.ConfigPath, overrides)
	}
	return config.LoadWithOverrides(ctx, overrides)
}

// Execute runs the root command with the provided context and build info.
// A returned error has already been reported on stderr in the selected
// output format; use ExitCodeForError to map it to an exit code.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{Output: OutputText}
	//nolint:contextcheck // Cobra command pattern uses cmd.Context() internally
	return execute(ctx, newRootCmd(flags, info), flags)
}

func execute(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags) error {
	defer CloseLogFile()

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		format := flags.Output
		if !IsValidOutputFormat(format) {
			format = OutputText
		}
		tui.NewOutput(cmd.ErrOrStderr(), format).Error(err)
	}
	return err
}
