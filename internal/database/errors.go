package database

import "errors"

var (
	// ErrFetchServers is returned when the server set cannot be loaded.
	// It is fatal for a validation run.
	ErrFetchServers = errors.New("failed to fetch servers")

	// ErrPersistence is returned when a status or server cannot be written.
	ErrPersistence = errors.New("failed to persist record")

	// ErrDeletion is returned when a server cannot be deleted.
	ErrDeletion = errors.New("failed to delete server")

	// ErrInvalidTableName is returned for table names that are not plain
	// SQL identifiers.
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrRequestFailed is returned when the REST API answers with a non-2xx
	// status.
	ErrRequestFailed = errors.New("request failed")

	// ErrMissingURL is returned when no REST endpoint is configured.
	ErrMissingURL = errors.New("database URL is required")
)
