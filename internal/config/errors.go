package config

import "errors"

// Configuration errors returned by Validate and the file loader.
var (
	// ErrNoRelayURL is returned when no SimpleX client endpoint is set.
	ErrNoRelayURL = errors.New("no relay url: set --relay-url")

	// ErrNoGeoIPDatabase is returned when no MaxMind database path is set.
	ErrNoGeoIPDatabase = errors.New("no geoip database: set --geoip-db")

	// ErrInvalidStore is returned for an unknown --store value.
	ErrInvalidStore = errors.New("invalid store: must be postgrest or sqlite")

	// ErrNoDatabaseURL is returned when the postgrest store has no endpoint.
	ErrNoDatabaseURL = errors.New("no database url: set --database-url for the postgrest store")

	// ErrNoDatabaseKey is returned when the postgrest store has no API key.
	ErrNoDatabaseKey = errors.New("no database key: set --database-key or " + DatabaseKeyEnv)

	// ErrNoDBDir is returned when the sqlite store has no directory.
	ErrNoDBDir = errors.New("no database directory: set --db-dir for the sqlite store")

	// ErrInvalidRetryCount is returned when fewer than one attempt is allowed.
	ErrInvalidRetryCount = errors.New("invalid retry count: must be at least 1")

	// ErrInvalidTimeout is returned when a required timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDuration is returned for negative or unparsable durations.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidMaxBodySize is returned when the body limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrEmptyMarker is returned when the info page marker is empty.
	ErrEmptyMarker = errors.New("info page marker cannot be empty")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
