package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/registry-validator/internal/config"
	"github.com/nao1215/registry-validator/internal/database"
	"github.com/nao1215/registry-validator/internal/model"
	"github.com/nao1215/registry-validator/internal/uri"
)

// NewServerCmd creates the server command that manages the local registry.
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage servers in the local SQLite registry",
	}
	cmd.AddCommand(newServerAddCmd())
	cmd.AddCommand(newServerListCmd())
	cmd.AddCommand(newServerRemoveCmd())
	return cmd
}

func newServerAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a server",
		Long: `Add registers a server in the local SQLite registry.

Examples:
  registry-validator server add --protocol smp --identity KEY --host smp.example.com:5223
  registry-validator server add --uri "xftp://KEY@files.example.com,abc...xyz.onion"`,
		Args: cobra.NoArgs,
		RunE: runServerAddCmd,
	}
	addStoreFlags(cmd, config.NewConfig())
	cmd.Flags().String("uri", "", "Full server address; replaces --protocol, --identity and --host")
	cmd.Flags().String("protocol", "smp", "Server protocol: smp or xftp")
	cmd.Flags().String("identity", "", "Server identity (key fingerprint)")
	cmd.Flags().String("host", "", "Comma-separated host[:port] list")
	cmd.Flags().String("uuid", "", "Server UUID (default: random)")
	return cmd
}

func newServerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered servers",
		Args:  cobra.NoArgs,
		RunE:  runServerListCmd,
	}
	addStoreFlags(cmd, config.NewConfig())
	return cmd
}

func newServerRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <uuid>",
		Short: "Remove a server; its status history is kept",
		Args:  cobra.ExactArgs(1),
		RunE:  runServerRemoveCmd,
	}
	addStoreFlags(cmd, config.NewConfig())
	return cmd
}

// openLocalRegistry opens the SQLite registry selected by the flags.
func openLocalRegistry(cmd *cobra.Command) (*database.SQLite, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		return nil, config.ErrNoDBDir
	}
	db, err := database.OpenSQLite(cfg.DBDir,
		database.Tables{Servers: cfg.ServersTable, Statuses: cfg.StatusesTable},
		database.DefaultOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// serverFromFlags builds the server described by the add flags.
func serverFromFlags(cmd *cobra.Command) (*model.Server, error) {
	flags := cmd.Flags()
	id, err := flags.GetString("uuid")
	if err != nil {
		return nil, err
	}

	raw, err := flags.GetString("uri")
	if err != nil {
		return nil, err
	}
	if raw != "" {
		addr, err := uri.Parse(raw)
		if err != nil {
			return nil, err
		}
		return &model.Server{
			UUID:     id,
			Protocol: addr.Protocol,
			Identity: addr.Identity,
			Host:     strings.Join(addr.Entries, ","),
		}, nil
	}

	protocol, err := flags.GetString("protocol")
	if err != nil {
		return nil, err
	}
	identity, err := flags.GetString("identity")
	if err != nil {
		return nil, err
	}
	host, err := flags.GetString("host")
	if err != nil {
		return nil, err
	}

	server := &model.Server{
		UUID:     id,
		Protocol: model.ParseProtocol(strings.ToLower(protocol)),
		Identity: identity,
		Host:     host,
	}
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", uri.ErrInvalidURI)
	}
	// Only addresses the validator can parse are stored.
	if _, err := uri.Parse(server.URI()); err != nil {
		return nil, err
	}
	return server, nil
}

func runServerAddCmd(cmd *cobra.Command, _ []string) error {
	server, err := serverFromFlags(cmd)
	if err != nil {
		return err
	}

	db, err := openLocalRegistry(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.AddServer(cmd.Context(), server); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added server %s: %s\n", server.UUID, server.URI())
	return nil
}

func runServerListCmd(cmd *cobra.Command, _ []string) error {
	db, err := openLocalRegistry(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	servers, err := db.FetchAllServers(cmd.Context())
	if err != nil {
		return err
	}
	printServers(cmd.OutOrStdout(), servers)
	return nil
}

func printServers(w io.Writer, servers []model.Server) {
	if len(servers) == 0 {
		fmt.Fprintln(w, "No servers registered.")
		return
	}

	fmt.Fprintf(w, "Registered servers (%d):\n\n", len(servers))
	fmt.Fprintf(w, "  %-36s  %-8s  %s\n", "UUID", "Protocol", "Address")
	for _, s := range servers {
		fmt.Fprintf(w, "  %-36s  %-8s  %s\n", s.UUID, s.Protocol, s.URI())
	}
}

func runServerRemoveCmd(cmd *cobra.Command, args []string) error {
	db, err := openLocalRegistry(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteServer(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed server %s\n", args[0])
	return nil
}
