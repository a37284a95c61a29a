package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmeister2/fez/internal/constants"
	"github.com/cmeister2/fez/internal/crypto/provider"
	"github.com/cmeister2/fez/internal/ctxutil"
	"github.com/cmeister2/fez/internal/errors"
	"github.com/cmeister2/fez/internal/pkgsig"
	"github.com/cmeister2/fez/internal/tui"
)

// verifyResult is the JSON document printed by "fez verify --output json".
type verifyResult struct {
	Status   string `json:"status"`
	ID       string `json:"id"`
	Block    string `json:"block"`
	Signer   string `json:"signer"`
	Verifier string `json:"verifier"`
}

// AddVerifyCommand adds the verify command to the root command.
func AddVerifyCommand(root *cobra.Command, global *GlobalFlags) {
	root.AddCommand(newVerifyCmd(global))
}

func newVerifyCmd(global *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <header> <payload> [block]",
		Short: "Verify a package signature",
		Long: `Verify a package against its signature block.

The block defaults to <payload>` + constants.SignatureBlockSuffix + `. The package digests are checked
first, then both RSA signatures. Any mismatch exits with status 1.

Examples:
  fez verify pkg.header pkg.payload
  fez verify pkg.header pkg.payload pkg.sig.yaml --output json`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			blockPath := args[1] + constants.SignatureBlockSuffix
			if len(args) == 3 {
				blockPath = args[2]
			}
			return runVerify(cmd.Context(), cmd.OutOrStdout(), global, args[0], args[1], blockPath)
		},
	}
}

func runVerify(ctx context.Context, w io.Writer, global *GlobalFlags, headerPath, payloadPath, blockPath string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, global, nil)
	if err != nil {
		return err
	}

	header, payload, err := readPackage(headerPath, payloadPath)
	if err != nil {
		return err
	}

	block, err := readBlock(blockPath)
	if err != nil {
		return err
	}

	verifier, err := provider.Verifier(ctx, &cfg.Crypto)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Signing.Timeout)
	defer cancel()

	if err := pkgsig.NewVerifyOnly(verifier).Verify(ctx, header, payload, block); err != nil {
		return err
	}

	result := verifyResult{
		Status:   "verified",
		ID:       block.ID.String(),
		Block:    blockPath,
		Signer:   block.Signer,
		Verifier: verifier.String(),
	}

	out := tui.NewOutput(w, global.Output)
	if global.Output == OutputJSON {
		return out.JSON(result)
	}

	out.Success("Signature OK for " + payloadPath)
	out.Fields([]tui.Field{
		{Key: "block", Value: result.Block},
		{Key: "id", Value: result.ID},
		{Key: "signer", Value: result.Signer},
		{Key: "verifier", Value: result.Verifier},
	})
	return nil
}

func readBlock(path string) (*pkgsig.Block, error) {
	f, err := os.Open(path) //nolint:gosec // path is a command argument
	if err != nil {
		return nil, fmt.Errorf("%w: reading signature block: %w", errors.ErrInvalidArgument, err)
	}
	defer func() { _ = f.Close() }()

	return pkgsig.DecodeBlock(f)
}
