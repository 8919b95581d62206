package geo

import "errors"

var (
	// ErrDatabaseOpen is returned when the geo database cannot be opened.
	ErrDatabaseOpen = errors.New("failed to open geo database")

	// ErrNotFound is returned when the database has no country for an address.
	ErrNotFound = errors.New("country not found")

	// ErrResolve is returned when a host name cannot be resolved to an address.
	ErrResolve = errors.New("failed to resolve host")

	// errNoAddresses is returned by resolvers that got an empty answer.
	errNoAddresses = errors.New("no addresses")
)
