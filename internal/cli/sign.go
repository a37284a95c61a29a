package cli

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmeister2/fez/internal/constants"
	"github.com/cmeister2/fez/internal/crypto/provider"
	"github.com/cmeister2/fez/internal/ctxutil"
	"github.com/cmeister2/fez/internal/errors"
	"github.com/cmeister2/fez/internal/pkgsig"
	"github.com/cmeister2/fez/internal/tui"
)

// signFlags holds flags specific to the sign command.
type signFlags struct {
	out   string
	force bool
}

// signResult is the JSON document printed by "fez sign --output json".
type signResult struct {
	ID          string    `json:"id"`
	Block       string    `json:"block"`
	Algorithm   string    `json:"algorithm"`
	Signer      string    `json:"signer"`
	Created     time.Time `json:"created"`
	PayloadSize int64     `json:"payload_size"`
	SHA256      string    `json:"sha256"`
}

// AddSignCommand adds the sign command to the root command.
func AddSignCommand(root *cobra.Command, global *GlobalFlags) {
	root.AddCommand(newSignCmd(global))
}

func newSignCmd(global *GlobalFlags) *cobra.Command {
	flags := &signFlags{}

	cmd := &cobra.Command{
		Use:   "sign <header> <payload>",
		Short: "Sign a package",
		Long: `Sign a package made of a header file and a payload file.

The signature block is written next to the payload as <payload>` + constants.SignatureBlockSuffix + `
unless --out is given. An existing block is never replaced unless --force is
given.

Examples:
  fez sign pkg.header pkg.payload
  fez sign pkg.header pkg.payload --out pkg.sig.yaml --force
  fez sign pkg.header pkg.payload --output json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(cmd.Context(), cmd.OutOrStdout(), global, flags, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&flags.out, "out", "", "signature block path (default <payload>"+constants.SignatureBlockSuffix+")")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "replace an existing signature block")

	return cmd
}

func runSign(ctx context.Context, w io.Writer, global *GlobalFlags, flags *signFlags, headerPath, payloadPath string) error {
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

	signer, err := provider.Signer(ctx, &cfg.Crypto)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Signing.Timeout)
	defer cancel()

	block, err := pkgsig.NewSignOnly[[]byte](signer).Sign(ctx, header, payload)
	if err != nil {
		return err
	}

	blockPath := flags.out
	if blockPath == "" {
		blockPath = payloadPath + constants.SignatureBlockSuffix
	}
	if err := writeBlock(blockPath, block, flags.force); err != nil {
		return err
	}

	result := signResult{
		ID:          block.ID.String(),
		Block:       blockPath,
		Algorithm:   block.Algorithm,
		Signer:      block.Signer,
		Created:     block.Created,
		PayloadSize: block.PayloadSize,
		SHA256:      hex.EncodeToString(block.Digests.SHA256),
	}

	out := tui.NewOutput(w, global.Output)
	if global.Output == OutputJSON {
		return out.JSON(result)
	}

	out.Success("Signed " + payloadPath)
	out.Fields([]tui.Field{
		{Key: "block", Value: result.Block},
		{Key: "id", Value: result.ID},
		{Key: "signer", Value: result.Signer},
		{Key: "payload size", Value: strconv.FormatInt(result.PayloadSize, 10)},
		{Key: "sha256", Value: result.SHA256},
	})
	return nil
}

// readPackage reads the header and payload files of a package.
func readPackage(headerPath, payloadPath string) (header, payload []byte, err error) {
	header, err = os.ReadFile(headerPath) //nolint:gosec // path is a command argument
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading header: %w", errors.ErrInvalidArgument, err)
	}
	payload, err = os.ReadFile(payloadPath) //nolint:gosec // path is a command argument
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading payload: %w", errors.ErrInvalidArgument, err)
	}
	return header, payload, nil
}

// writeBlock encodes block to path. Without force an existing file is an
// error wrapping ErrFileExists. With force an existing file is only replaced
// once the new block has been written in full.
func writeBlock(path string, block *pkgsig.Block, force bool) error {
	if force {
		return replaceFile(path, block.Encode)
	}
	return createFile(path, block.Encode)
}

// createFile creates path exclusively and fills it with write. The file is
// removed again if write fails.
func createFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // path is a command argument
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", errors.ErrFileExists, path)
		}
		return fmt.Errorf("creating signature block: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing signature block: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return write(f)
}

// replaceFile writes a temporary file next to path and renames it over path.
func replaceFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating signature block: %w", err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("syncing signature block: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing signature block: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:gosec // signature blocks are public
		_ = os.Remove(tmpPath)
		return fmt.Errorf("setting signature block mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing signature block: %w", err)
	}
	return nil
}
