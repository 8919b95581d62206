package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/registry-validator/internal/config"
	"github.com/nao1215/registry-validator/internal/log"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry-validator",
		Short: "Validate the servers of a SimpleX server registry",
		Long: `registry-validator checks the SMP and XFTP servers listed in a registry.

For every server it runs a liveness test through a SimpleX client, resolves
the hosting country, checks whether an info page is served, and records the
result. Servers operated by the network itself are removed from the registry.`,
		Version:       currentBuild().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current or home directory)")

	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewServerCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// newLogger builds the secure logger selected by the configuration.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}
