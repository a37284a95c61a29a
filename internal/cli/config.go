package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cmeister2/fez/internal/config"
	"github.com/cmeister2/fez/internal/ctxutil"
	"github.com/cmeister2/fez/internal/logging"
	"github.com/cmeister2/fez/internal/tui"
)

// AddConfigCommand adds the config command group to the root command.
func AddConfigCommand(root *cobra.Command, global *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect fez configuration",
	}
	cmd.AddCommand(newConfigShowCmd(global))
	root.AddCommand(cmd)
}

// effectiveConfig is the config plus the key paths it resolves to.
type effectiveConfig struct {
	config.Config `yaml:",inline"`

	ResolvedSecretKeyPath string `yaml:"resolved_secret_key_path"`
	ResolvedPublicKeyPath string `yaml:"resolved_public_key_path"`
}

func newConfigShowCmd(global *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display the effective fez configuration after merging defaults,
~/.fez/config.yaml, .fez/config.yaml and FEZ_* environment variables.

Passphrases are never part of the configuration; only the name of the
environment variable holding one is shown. Values that look like secrets are
masked.

Examples:
  fez config show
  fez config show --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd.Context(), cmd.OutOrStdout(), global)
		},
	}
}

func runConfigShow(ctx context.Context, w io.Writer, global *GlobalFlags) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, global, nil)
	if err != nil {
		return err
	}

	shown := effectiveConfig{Config: *cfg}
	if shown.ResolvedSecretKeyPath, err = cfg.Crypto.ResolveSecretKeyPath(); err != nil {
		return err
	}
	if shown.ResolvedPublicKeyPath, err = cfg.Crypto.ResolvePublicKeyPath(); err != nil {
		return err
	}

	var doc yaml.Node
	if err := doc.Encode(shown); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	redactNode(&doc)

	if global.Output == OutputJSON {
		// Through YAML so keys and durations read the same in both formats.
		var m map[string]any
		if err := doc.Decode(&m); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return tui.NewJSONOutput(w).JSON(m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// redactNode masks scalar values whose key names a secret, or whose text
// looks like one.
func redactNode(n *yaml.Node) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			redactNode(c)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				redactNode(value)
				continue
			}
			if redacted := logging.RedactIfSensitive(key.Value, value.Value); redacted != value.Value {
				value.Value = redacted
				value.Tag = "!!str"
				value.Style = 0
			}
		}
	}
}
