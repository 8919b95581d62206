package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/registry-validator/internal/config"
	"github.com/nao1215/registry-validator/internal/database"
	"github.com/nao1215/registry-validator/internal/geo"
	"github.com/nao1215/registry-validator/internal/infopage"
	"github.com/nao1215/registry-validator/internal/pipeline"
	"github.com/nao1215/registry-validator/internal/report"
	"github.com/nao1215/registry-validator/internal/smp"
	"github.com/nao1215/registry-validator/internal/tor"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run one validation pass over the registry",
		Long: `Validate fetches every registered server, in random order, and for each one:

- deletes it when its address contains the official marker
- tests it up to --retry-count times through the SimpleX client at --relay-url
- resolves its country (TOR for onion addresses)
- checks its info page, through the Tor proxy for onion addresses
- appends a status row to the registry

Examples:
  # Validate the local SQLite registry
  registry-validator validate --geoip-db ./GeoLite2-Country.mmdb

  # Validate a Supabase registry without modifying it
  registry-validator validate --store postgrest \
    --database-url https://example.supabase.co/rest/v1 \
    --database-key "$KEY" --dry-run

  # Use an embedded Tor daemon and save a Markdown report
  registry-validator validate --embedded-tor -o report.md`,
		Args: cobra.NoArgs,
		RunE: runValidateCmd,
	}
	addValidateFlags(cmd, config.NewConfig())
	return cmd
}

func runValidateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runValidate(ctx, cfg, logger, cmd.OutOrStdout())
}

// runValidate starts the collaborators, runs the engine and writes the
// summary.
func runValidate(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	var geoOpts []geo.Option
	geoOpts = append(geoOpts, geo.WithLogger(logger))
	if cfg.DNSServer != "" {
		geoOpts = append(geoOpts, geo.WithHostResolver(geo.NewDNSResolver(cfg.DNSServer, 0)))
	}

	var (
		resolver *geo.Resolver
		embedded *tor.Daemon
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := geo.Open(cfg.GeoIPDatabase, geoOpts...)
		if err != nil {
			return err
		}
		resolver = r
		return nil
	})
	if cfg.EmbeddedTor {
		fmt.Fprintln(out, "Starting embedded Tor daemon, this may take 1-3 minutes...")
		embedded = tor.NewDaemon(
			tor.WithBootstrapTimeout(cfg.TorStartupTimeout),
			tor.WithDaemonLogger(logger),
		)
		g.Go(func() error {
			return embedded.Start(gctx)
		})
	}
	startErr := g.Wait()
	if resolver != nil {
		defer resolver.Close()
	}
	if embedded != nil && embedded.Running() {
		defer func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
	}
	if startErr != nil {
		return startErr
	}

	proxy, err := newProxyClient(ctx, cfg, embedded, logger)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	tester, err := smp.NewTester(cfg.RelayURL,
		smp.WithAttempts(cfg.RetryCount),
		smp.WithRetryDelay(cfg.RetryDelay),
		smp.WithAttemptTimeout(cfg.AttemptTimeout),
		smp.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	checker := infopage.NewChecker(
		infopage.WithProxy(proxy),
		infopage.WithMarker(cfg.InfoPageMarker),
		infopage.WithTimeout(cfg.InfoPageTimeout),
		infopage.WithMaxBodySize(cfg.MaxBodySize),
		infopage.WithLogger(logger),
	)

	engine := pipeline.NewEngine(store, tester, resolver, checker,
		pipeline.WithDryRun(cfg.DryRun),
		pipeline.WithOfficialMarker(cfg.OfficialMarker),
		pipeline.WithEngineLogger(logger),
	)

	logger.Info("starting validation",
		"store", cfg.Store,
		"relay", cfg.RelayURL,
		"dry_run", cfg.DryRun,
		"retry_count", cfg.RetryCount,
	)
	summary, runErr := engine.Run(ctx)
	if summary != nil {
		if err := writeSummary(cfg, summary, out); err != nil {
			logger.Error("failed to write report", "error", err)
		}
	}
	if summary != nil && errors.Is(runErr, context.Canceled) {
		logger.Warn("validation interrupted", "processed", len(summary.Results), "total", summary.Total)
	}
	return runErr
}

// newProxyClient returns the SOCKS5 client for onion info pages. An
// unreachable proxy is not fatal: onion info pages are then reported as
// unavailable.
func newProxyClient(ctx context.Context, cfg *config.Config, embedded *tor.Daemon, logger *slog.Logger) (*tor.Client, error) {
	var (
		client *tor.Client
		err    error
	)
	if embedded != nil {
		client, err = embedded.Client()
	} else {
		client, err = tor.NewClient(cfg.TorProxyAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		logger.Warn("tor proxy check failed, onion info pages will be reported unavailable",
			"proxy", client.ProxyAddress(),
			"status", status.String(),
		)
	} else {
		logger.Info("tor proxy connection verified", "proxy", client.ProxyAddress())
	}
	return client, nil
}

// openStore opens the configured registry backend.
func openStore(cfg *config.Config, logger *slog.Logger) (database.Store, error) {
	tables := database.Tables{Servers: cfg.ServersTable, Statuses: cfg.StatusesTable}

	switch cfg.Store {
	case config.StorePostgREST:
		store, err := database.NewPostgREST(cfg.DatabaseURL, cfg.DatabaseKey, tables, database.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgREST client: %w", err)
		}
		logger.Info("registry opened", "store", cfg.Store, "url", cfg.DatabaseURL)
		return store, nil
	case config.StoreSQLite:
		store, err := database.OpenSQLite(cfg.DBDir, tables, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Info("registry opened", "store", cfg.Store, "path", store.Path())
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStore, cfg.Store)
	}
}

// writeSummary prints the text summary and, when configured, writes the
// report file in the format given by its extension.
func writeSummary(cfg *config.Config, summary *pipeline.Summary, out io.Writer) error {
	if _, err := report.NewTextWriter(out).Write(summary); err != nil {
		return err
	}
	if cfg.ReportFile == "" {
		return nil
	}

	if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	w, err := report.New(report.FormatFromPath(cfg.ReportFile), f)
	if err != nil {
		return err
	}
	_, err = w.Write(summary)
	return err
}
