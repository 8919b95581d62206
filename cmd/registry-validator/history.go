package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/registry-validator/internal/config"
	"github.com/nao1215/registry-validator/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <server-uuid>",
		Short: "Show the recorded statuses of a server",
		Long: `History lists the statuses recorded for a server in the local SQLite
registry, newest first.

Examples:
  registry-validator history 7f9c24e8-3b1a-4c5e-9d2f-0a1b2c3d4e5f
  registry-validator history --limit 5 7f9c24e8-3b1a-4c5e-9d2f-0a1b2c3d4e5f`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryCmd,
	}
	addStoreFlags(cmd, config.NewConfig())
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of statuses to show (0 for all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := openLocalRegistry(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	history, err := db.StatusHistory(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), args[0], history)
	return nil
}

func printHistory(w io.Writer, serverUUID string, history []*model.ServerStatus) {
	if len(history) == 0 {
		fmt.Fprintf(w, "No status history found for %s\n", serverUUID)
		return
	}

	fmt.Fprintf(w, "Status history for %s (%d checks):\n\n", serverUUID, len(history))
	fmt.Fprintf(w, "  %-20s  %-6s  %-7s  %s\n", "Checked", "Status", "Country", "Info Page")
	for _, st := range history {
		fmt.Fprintf(w, "  %-20s  %-6s  %-7s  %s\n",
			st.CheckedAt.Format("2006-01-02 15:04:05"),
			statusText(st.Status),
			orDash(st.CountryString()),
			availabilityText(st.InfoPageAvailable),
		)
	}
}

// statusText pads before coloring so the escape codes do not break the
// column layout.
func statusText(live bool) string {
	if live {
		return color.GreenString("%-6s", "up")
	}
	return color.RedString("%-6s", "down")
}

func availabilityText(available bool) string {
	if available {
		return color.GreenString("yes")
	}
	return color.YellowString("no")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
