package config

import (
	"fmt"
	"time"
)

// File is the layout of the YAML configuration file. Every field is
// optional; absent fields keep the current value.
type File struct {
	GeoIPDatabase string `yaml:"geoipDatabase,omitempty"`
	RelayURL      string `yaml:"relayUrl,omitempty"`

	Database DatabaseSection `yaml:"database,omitempty"`
	Liveness LivenessSection `yaml:"liveness,omitempty"`
	Tor      TorSection      `yaml:"tor,omitempty"`
	InfoPage InfoPageSection `yaml:"infoPage,omitempty"`

	OfficialMarker *string `yaml:"officialMarker,omitempty"`
	DNSServer      string  `yaml:"dnsServer,omitempty"`
	DryRun         *bool   `yaml:"dryRun,omitempty"`
	Report         string  `yaml:"report,omitempty"`
}

// DatabaseSection configures the registry store.
type DatabaseSection struct {
	Store         string `yaml:"store,omitempty"`
	URL           string `yaml:"url,omitempty"`
	Key           string `yaml:"key,omitempty"`
	Dir           string `yaml:"dir,omitempty"`
	ServersTable  string `yaml:"serversTable,omitempty"`
	StatusesTable string `yaml:"statusesTable,omitempty"`
}

// LivenessSection configures the liveness probe. Durations use Go syntax
// such as "500ms" or "30s".
type LivenessSection struct {
	RetryCount     int    `yaml:"retryCount,omitempty"`
	RetryDelay     string `yaml:"retryDelay,omitempty"`
	AttemptTimeout string `yaml:"attemptTimeout,omitempty"`
}

// TorSection configures the proxy used for onion info pages.
type TorSection struct {
	Proxy          string `yaml:"proxy,omitempty"`
	Embedded       *bool  `yaml:"embedded,omitempty"`
	StartupTimeout string `yaml:"startupTimeout,omitempty"`
}

// InfoPageSection configures the info page check.
type InfoPageSection struct {
	Timeout     string `yaml:"timeout,omitempty"`
	Marker      string `yaml:"marker,omitempty"`
	MaxBodySize int64  `yaml:"maxBodySize,omitempty"`
}

// Apply copies the values present in the file onto c.
func (f *File) Apply(c *Config) error {
	setString(&c.GeoIPDatabase, f.GeoIPDatabase)
	setString(&c.RelayURL, f.RelayURL)

	setString(&c.Store, f.Database.Store)
	setString(&c.DatabaseURL, f.Database.URL)
	setString(&c.DatabaseKey, f.Database.Key)
	setString(&c.DBDir, f.Database.Dir)
	setString(&c.ServersTable, f.Database.ServersTable)
	setString(&c.StatusesTable, f.Database.StatusesTable)

	if f.Liveness.RetryCount != 0 {
		c.RetryCount = f.Liveness.RetryCount
	}
	if err := setDuration(&c.RetryDelay, "liveness.retryDelay", f.Liveness.RetryDelay); err != nil {
		return err
	}
	if err := setDuration(&c.AttemptTimeout, "liveness.attemptTimeout", f.Liveness.AttemptTimeout); err != nil {
		return err
	}

	setString(&c.TorProxyAddress, f.Tor.Proxy)
	if f.Tor.Embedded != nil {
		c.EmbeddedTor = *f.Tor.Embedded
	}
	if err := setDuration(&c.TorStartupTimeout, "tor.startupTimeout", f.Tor.StartupTimeout); err != nil {
		return err
	}

	if err := setDuration(&c.InfoPageTimeout, "infoPage.timeout", f.InfoPage.Timeout); err != nil {
		return err
	}
	setString(&c.InfoPageMarker, f.InfoPage.Marker)
	if f.InfoPage.MaxBodySize != 0 {
		c.MaxBodySize = f.InfoPage.MaxBodySize
	}

	// An explicit empty marker disables the official filter.
	if f.OfficialMarker != nil {
		c.OfficialMarker = *f.OfficialMarker
	}
	setString(&c.DNSServer, f.DNSServer)
	if f.DryRun != nil {
		c.DryRun = *f.DryRun
	}
	setString(&c.ReportFile, f.Report)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDuration, key, err)
	}
	*dst = d
	return nil
}
