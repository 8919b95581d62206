package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/registry-validator/internal/config"
)

// addStoreFlags registers the flags selecting the registry.
func addStoreFlags(cmd *cobra.Command, defaults *config.Config) {
	cmd.Flags().String("db-dir", defaults.DBDir,
		"Directory of the SQLite registry")
	cmd.Flags().String("servers-table", defaults.ServersTable,
		"Name of the servers table")
	cmd.Flags().String("statuses-table", defaults.StatusesTable,
		"Name of the server statuses table")
}

// addValidateFlags registers the flags of the validate command.
func addValidateFlags(cmd *cobra.Command, defaults *config.Config) {
	addStoreFlags(cmd, defaults)

	f := cmd.Flags()
	f.String("geoip-db", defaults.GeoIPDatabase, "Path of the MaxMind country database")
	f.String("relay-url", defaults.RelayURL, "WebSocket URL of the SimpleX client used for liveness tests")
	f.String("store", defaults.Store, "Registry backend: postgrest or sqlite")
	f.String("database-url", "", "PostgREST endpoint, e.g. https://<project>.supabase.co/rest/v1")
	f.String("database-key", "", "PostgREST API key (default: $"+config.DatabaseKeyEnv+")")
	f.Bool("dry-run", false, "Compute statuses without modifying the registry")

	f.Int("retry-count", defaults.RetryCount, "Maximum liveness attempts per server")
	f.Duration("retry-delay", defaults.RetryDelay, "Pause between liveness attempts")
	f.Duration("attempt-timeout", defaults.AttemptTimeout, "Deadline of one liveness attempt (0 for none)")

	f.String("tor-proxy", defaults.TorProxyAddress, "Tor SOCKS5 proxy for onion info pages (host:port or socks5h:// URL)")
	f.Bool("embedded-tor", false, "Start an embedded Tor daemon instead of using --tor-proxy")
	f.Duration("tor-timeout", defaults.TorStartupTimeout, "Timeout for embedded Tor startup")

	f.Duration("info-page-timeout", defaults.InfoPageTimeout, "Deadline of one info page request")
	f.String("info-page-marker", defaults.InfoPageMarker, "Text an info page must contain (case-insensitive)")
	f.String("official-marker", defaults.OfficialMarker, "Servers whose address contains this are deleted (empty disables)")
	f.String("dns-server", "", "Query this DNS server for geolocation instead of the system resolver")
	f.StringP("report", "o", "", "Write the run summary to this file (.json, .md or text)")
}

// loadConfig merges defaults, the configuration file, changed flags and the
// environment, in increasing order of precedence for flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var path string
	if f := cmd.Flags().Lookup("config"); f != nil {
		path = f.Value.String()
	}
	cfg.ConfigFilePath = path

	if found := config.FindConfigFile(path); found != "" {
		file, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", found, err)
		}
	} else if path != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// applyFlags copies the flags set on the command line onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	stringFlags := map[string]*string{
		"geoip-db":         &cfg.GeoIPDatabase,
		"relay-url":        &cfg.RelayURL,
		"store":            &cfg.Store,
		"database-url":     &cfg.DatabaseURL,
		"database-key":     &cfg.DatabaseKey,
		"db-dir":           &cfg.DBDir,
		"servers-table":    &cfg.ServersTable,
		"statuses-table":   &cfg.StatusesTable,
		"tor-proxy":        &cfg.TorProxyAddress,
		"info-page-marker": &cfg.InfoPageMarker,
		"official-marker":  &cfg.OfficialMarker,
		"dns-server":       &cfg.DNSServer,
		"report":           &cfg.ReportFile,
	}
	for name, dst := range stringFlags {
		if !changed(cmd, name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	bools := map[string]*bool{
		"dry-run":      &cfg.DryRun,
		"embedded-tor": &cfg.EmbeddedTor,
		"verbose":      &cfg.Verbose,
		"log-json":     &cfg.LogJSON,
	}
	for name, dst := range bools {
		if !changed(cmd, name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		"retry-delay":       &cfg.RetryDelay,
		"attempt-timeout":   &cfg.AttemptTimeout,
		"tor-timeout":       &cfg.TorStartupTimeout,
		"info-page-timeout": &cfg.InfoPageTimeout,
	}
	for name, dst := range durations {
		if !changed(cmd, name) {
			continue
		}
		v, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if changed(cmd, "retry-count") {
		n, err := flags.GetInt("retry-count")
		if err != nil {
			return err
		}
		cfg.RetryCount = n
	}
	return nil
}
