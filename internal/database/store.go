package database

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nao1215/registry-validator/internal/model"
)

// Store is the registry a validation run reads from and writes to.
type Store interface {
	// FetchAllServers returns the current server set.
	FetchAllServers(ctx context.Context) ([]model.Server, error)

	// InsertStatus appends one status row.
	InsertStatus(ctx context.Context, status *model.ServerStatus) error

	// DeleteServer removes a server from the registry.
	DeleteServer(ctx context.Context, uuid string) error

	// Close releases the backend.
	Close() error
}

const (
	// DefaultServersTable is the default registry table.
	DefaultServersTable = "servers"

	// DefaultStatusesTable is the default status table.
	DefaultStatusesTable = "server_statuses"
)

// identifierPattern matches table names safe to splice into SQL and URLs.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Tables names the two tables a Store works on.
type Tables struct {
	Servers  string
	Statuses string
}

// DefaultTables returns the default table names.
func DefaultTables() Tables {
	return Tables{
		Servers:  DefaultServersTable,
		Statuses: DefaultStatusesTable,
	}
}

// Validate checks that both names are plain identifiers and distinct.
func (t Tables) Validate() error {
	for _, name := range []string{t.Servers, t.Statuses} {
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
		}
	}
	if t.Servers == t.Statuses {
		return fmt.Errorf("%w: servers and statuses share %q", ErrInvalidTableName, t.Servers)
	}
	return nil
}
