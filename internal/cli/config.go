package cli

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/taskmcp/internal/config"
	"github.com/mrz1836/taskmcp/internal/constants"
	"github.com/mrz1836/taskmcp/internal/logging"
)

// AddConfigCommand adds the config command tree to the root command.
func AddConfigCommand(parent *cobra.Command, cc *cliContext) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect taskmcp configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigShowCmd(cc), newConfigPathCmd(cc))
	parent.AddCommand(cmd)
}

func newConfigShowCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display the effective configuration after merging, highest precedence first:
  - flags (--home)
  - TASKMCP_* environment variables
  - project config (.taskmcp/config.yaml)
  - global config (<home>/config.yaml)
  - built-in defaults

Credentials embedded in the notify URL are masked.

Examples:
  taskmcp config show             # YAML
  taskmcp config show -o json     # JSON`,
		Args: cobra.NoArgs,
		RunE: cc.run(func(cmd *cobra.Command, _ []string) error {
			doc, err := configDocument(cc.cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if cc.jsonOutput() {
				return cc.output(w).JSON(doc)
			}
			return writeYAML(w, doc)
		}),
	}
}

// configDocument renders cfg as a generic map using its yaml keys, with
// sensitive values masked.
func configDocument(cfg *config.Config) (map[string]any, error) {
	masked := *cfg
	masked.Notify.URL = logging.FilterSensitiveValue(masked.Notify.URL)

	raw, err := yaml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return doc, nil
}

func writeYAML(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func newConfigPathCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show where taskmcp reads and writes its files",
		Args:  cobra.NoArgs,
		RunE: cc.run(func(cmd *cobra.Command, _ []string) error {
			paths := map[string]string{
				"home":           cc.home,
				"global_config":  filepath.Join(cc.home, constants.GlobalConfigName),
				"project_config": config.ProjectConfigPath(),
				"log_file":       LogFilePath(cc.home),
			}

			out := cc.output(cmd.OutOrStdout())
			if cc.jsonOutput() {
				return out.JSON(paths)
			}
			out.Table([]string{"NAME", "PATH"}, [][]string{
				{"home", paths["home"]},
				{"global_config", paths["global_config"]},
				{"project_config", paths["project_config"]},
				{"log_file", paths["log_file"]},
			})
			return nil
		}),
	}
}
