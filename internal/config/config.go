package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths and
	// the configuration file name.
	AppName = "registry-validator"

	// DefaultRelayURL is the websocket endpoint of a local SimpleX client
	// started with -p 5225.
	DefaultRelayURL = "ws://127.0.0.1:5225"

	// DefaultGeoIPFile is the MaxMind database file looked up in the data
	// directory when --geoip-db is not given.
	DefaultGeoIPFile = "GeoLite2-Country.mmdb"

	// DefaultRetryCount is the number of liveness attempts per server.
	DefaultRetryCount = 3

	// DefaultTorProxyAddress is the SOCKS5 port of a local Tor daemon.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout bounds the bootstrap of the embedded daemon.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultInfoPageTimeout is the deadline of one info page request.
	DefaultInfoPageTimeout = 5 * time.Second

	// DefaultInfoPageMarker is the text an info page must contain.
	DefaultInfoPageMarker = "simplex"

	// DefaultMaxBodySize limits how much of an info page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultOfficialMarker identifies servers run by the network operator.
	DefaultOfficialMarker = "simplex.im"

	// DefaultServersTable and DefaultStatusesTable are the registry tables.
	DefaultServersTable  = "servers"
	DefaultStatusesTable = "server_statuses"

	// DatabaseKeyEnv is read when no database key is configured.
	DatabaseKeyEnv = "REGISTRY_VALIDATOR_DATABASE_KEY"
)

// Store backends.
const (
	StorePostgREST = "postgrest"
	StoreSQLite    = "sqlite"
)

// Config holds all options of a validation run. It is filled from the
// configuration file and command line flags, then passed down explicitly.
type Config struct {
	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string

	// GeoIPDatabase is the path of the MaxMind country database.
	GeoIPDatabase string

	// RelayURL is the ws:// or wss:// endpoint of the SimpleX client used
	// to test servers.
	RelayURL string

	// Store selects the registry backend: "postgrest" or "sqlite".
	Store string

	// DatabaseURL is the PostgREST endpoint, e.g.
	// https://<project>.supabase.co/rest/v1.
	DatabaseURL string

	// DatabaseKey is the PostgREST API key. Never logged.
	DatabaseKey string

	// DBDir is the directory of the SQLite registry.
	DBDir string

	ServersTable  string
	StatusesTable string

	// DryRun computes every status but writes nothing.
	DryRun bool

	// RetryCount is the maximum number of liveness attempts per server.
	RetryCount int

	// RetryDelay is the pause between liveness attempts.
	RetryDelay time.Duration

	// AttemptTimeout bounds one liveness attempt. Zero means no limit.
	AttemptTimeout time.Duration

	// TorProxyAddress is the SOCKS5 proxy for onion info pages.
	TorProxyAddress string

	// EmbeddedTor starts a Tor daemon instead of using TorProxyAddress.
	EmbeddedTor bool

	TorStartupTimeout time.Duration

	InfoPageTimeout time.Duration
	InfoPageMarker  string
	MaxBodySize     int64

	// OfficialMarker identifies official servers. Empty disables deletion.
	OfficialMarker string

	// DNSServer is queried directly for geolocation when set. Otherwise the
	// system resolver is used.
	DNSServer string

	// ReportFile receives the run summary. The format follows the extension.
	ReportFile string

	LogJSON bool
	Verbose bool
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		GeoIPDatabase:     filepath.Join(XDGDataDir(), DefaultGeoIPFile),
		RelayURL:          DefaultRelayURL,
		Store:             StoreSQLite,
		DBDir:             XDGDataDir(),
		ServersTable:      DefaultServersTable,
		StatusesTable:     DefaultStatusesTable,
		RetryCount:        DefaultRetryCount,
		TorProxyAddress:   DefaultTorProxyAddress,
		TorStartupTimeout: DefaultTorStartupTimeout,
		InfoPageTimeout:   DefaultInfoPageTimeout,
		InfoPageMarker:    DefaultInfoPageMarker,
		MaxBodySize:       DefaultMaxBodySize,
		OfficialMarker:    DefaultOfficialMarker,
	}
}

// XDGDataDir returns the data directory of the application,
// e.g. ~/.local/share/registry-validator on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ApplyEnv fills values that may come from the environment.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if c.DatabaseKey != "" {
		return
	}
	if key, ok := lookup(DatabaseKeyEnv); ok {
		c.DatabaseKey = key
	}
}

// Validate returns the first problem found in the configuration.
func (c *Config) Validate() error {
	if c.RelayURL == "" {
		return ErrNoRelayURL
	}
	if c.GeoIPDatabase == "" {
		return ErrNoGeoIPDatabase
	}

	switch c.Store {
	case StorePostgREST:
		if c.DatabaseURL == "" {
			return ErrNoDatabaseURL
		}
		if c.DatabaseKey == "" {
			return ErrNoDatabaseKey
		}
	case StoreSQLite:
		if c.DBDir == "" {
			return ErrNoDBDir
		}
	default:
		return ErrInvalidStore
	}

	if c.RetryCount < 1 {
		return ErrInvalidRetryCount
	}
	if c.RetryDelay < 0 || c.AttemptTimeout < 0 {
		return ErrInvalidDuration
	}
	if c.InfoPageTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.EmbeddedTor && c.TorStartupTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.InfoPageMarker == "" {
		return ErrEmptyMarker
	}
	return nil
}
