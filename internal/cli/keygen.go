package cli

import (
	"context"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cmeister2/fez/internal/config"
	"github.com/cmeister2/fez/internal/crypto/provider"
	"github.com/cmeister2/fez/internal/ctxutil"
	"github.com/cmeister2/fez/internal/tui"
)

// keygenFlags holds flags specific to the keygen command.
type keygenFlags struct {
	provider string
	keyDir   string
	bits     int
	name     string
	email    string
	force    bool
}

// AddKeygenCommand adds the keygen command to the root command.
func AddKeygenCommand(root *cobra.Command, global *GlobalFlags) {
	root.AddCommand(newKeygenCmd(global))
}

func newKeygenCmd(global *GlobalFlags) *cobra.Command {
	flags := &keygenFlags{}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA signing key pair",
		Long: `Generate an RSA key pair for the configured provider.

The secret key is written with mode 0600 and the public key with mode 0644,
both inside the key directory (default ~/.fez/keys). Existing keys are never
replaced unless --force is given.

For the pgp provider the secret key is encrypted when the environment variable
named by crypto.passphrase_env_var (default FEZ_PASSPHRASE) is set.

Examples:
  fez keygen
  fez keygen --provider pgp --name "Release Bot" --email release@example.com
  fez keygen --bits 4096 --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKeygen(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), global, flags)
		},
	}

	cmd.Flags().StringVar(&flags.provider, "provider", "", "key provider (native|pgp)")
	cmd.Flags().StringVar(&flags.keyDir, "key-dir", "", "directory to write keys to")
	cmd.Flags().IntVar(&flags.bits, "bits", 0, "RSA modulus size in bits")
	cmd.Flags().StringVar(&flags.name, "name", "", "OpenPGP user ID name")
	cmd.Flags().StringVar(&flags.email, "email", "", "OpenPGP user ID email")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "replace existing keys")

	return cmd
}

func runKeygen(ctx context.Context, w, errW io.Writer, global *GlobalFlags, flags *keygenFlags) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, global, &config.Config{
		Crypto: config.CryptoConfig{
			Provider: flags.provider,
			KeyDir:   flags.keyDir,
			KeyBits:  flags.bits,
			Name:     flags.name,
			Email:    flags.email,
		},
	})
	if err != nil {
		return err
	}

	pair, err := provider.Generate(ctx, &cfg.Crypto, flags.force)
	if err != nil {
		return err
	}

	if pair.Replaced {
		tui.NewOutput(errW, global.Output).Warning("Replaced existing key pair in " + filepath.Dir(pair.SecretKeyPath))
	}

	out := tui.NewOutput(w, global.Output)
	if global.Output == OutputJSON {
		return out.JSON(pair)
	}

	out.Success("Generated " + pair.Provider + " key pair")
	out.Fields([]tui.Field{
		{Key: "fingerprint", Value: pair.Fingerprint},
		{Key: "bits", Value: strconv.Itoa(pair.Bits)},
		{Key: "secret key", Value: pair.SecretKeyPath},
		{Key: "public key", Value: pair.PublicKeyPath},
	})
	return nil
}
