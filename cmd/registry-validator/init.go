package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/registry-validator/internal/config"
)

//go:embed templates/registry-validator.yaml
var configTemplate []byte

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		Long: `Init writes a commented configuration file holding the default settings.

Examples:
  # Create ` + config.DefaultConfigFile + ` in the current directory
  registry-validator init

  # Write it somewhere else, replacing any existing file
  registry-validator init -o /etc/registry-validator.yaml -f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			if err := writeConfigTemplate(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Set the registry, the SimpleX client endpoint and the MaxMind database, then run validate.")
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, "Path of the file to create")
	cmd.Flags().BoolP("force", "f", false, "Replace an existing file")
	return cmd
}

// writeConfigTemplate writes the template to path with owner-only
// permissions, since the file may later hold the database key.
func writeConfigTemplate(path string, force bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	if _, err := f.Write(configTemplate); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return f.Close()
}
