package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/registry-validator/internal/model"
)

// FileName is the name of the SQLite file inside the database directory.
const FileName = "registry.db"

// timeLayout is how checked_at is written.
const timeLayout = "2006-01-02 15:04:05"

// SQLite is a Store kept in a local SQLite file.
type SQLite struct {
	db     *sql.DB
	dbPath string
	tables Tables
}

// Options configures how the SQLite file is opened.
type Options struct {
	// CreateIfNotExists creates the directory and file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions creates the file if needed and enables WAL.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens the registry in dbDir.
func OpenSQLite(dbDir string, tables Tables, opts Options) (*SQLite, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dbDir, FileName)
	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLite{db: db, dbPath: dbPath, tables: tables}

	// Another process, such as the server command, may hold the write lock.
	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.dbPath
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// createTables creates the schema. Table names were validated in OpenSQLite.
func (s *SQLite) createTables() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		uuid TEXT PRIMARY KEY,
		protocol INTEGER NOT NULL,
		identity TEXT NOT NULL,
		host TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(protocol, identity, host)
	);

	-- append-only, one row per server per run
	CREATE TABLE IF NOT EXISTS %[2]s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_uuid TEXT NOT NULL,
		status INTEGER NOT NULL,
		country TEXT,
		info_page_available INTEGER NOT NULL,
		checked_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_%[2]s_server ON %[2]s(server_uuid);
	CREATE INDEX IF NOT EXISTS idx_%[2]s_checked ON %[2]s(checked_at);
	`, s.tables.Servers, s.tables.Statuses)

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// AddServer registers a server. An empty UUID is replaced by a random one,
// which is also written back into server.
func (s *SQLite) AddServer(ctx context.Context, server *model.Server) error {
	if server.UUID == "" {
		server.UUID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO %s (uuid, protocol, identity, host) VALUES (?, ?, ?, ?)`, s.tables.Servers)
	if _, err := s.db.ExecContext(ctx, query, server.UUID, int(server.Protocol), server.Identity, server.Host); err != nil {
		return fmt.Errorf("%w: server %s: %w", ErrPersistence, server.UUID, err)
	}
	return nil
}

// FetchAllServers implements Store.
func (s *SQLite) FetchAllServers(ctx context.Context) ([]model.Server, error) {
	query := fmt.Sprintf(`SELECT uuid, protocol, identity, host FROM %s ORDER BY rowid`, s.tables.Servers)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchServers, err)
	}
	defer rows.Close()

	var servers []model.Server
	for rows.Next() {
		var (
			srv      model.Server
			protocol int
		)
		if err := rows.Scan(&srv.UUID, &protocol, &srv.Identity, &srv.Host); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchServers, err)
		}
		srv.Protocol = protocolFromInt(protocol)
		servers = append(servers, srv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchServers, err)
	}
	return servers, nil
}

// InsertStatus implements Store.
func (s *SQLite) InsertStatus(ctx context.Context, status *model.ServerStatus) error {
	checkedAt := status.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}

	var country sql.NullString
	if status.Country != nil {
		country = sql.NullString{String: status.Country.String(), Valid: true}
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (server_uuid, status, country, info_page_available, checked_at)
	VALUES (?, ?, ?, ?, ?)
	`, s.tables.Statuses)
	_, err := s.db.ExecContext(ctx, query,
		status.ServerUUID,
		status.Status,
		country,
		status.InfoPageAvailable,
		checkedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("%w: status of %s: %w", ErrPersistence, status.ServerUUID, err)
	}
	return nil
}

// DeleteServer implements Store. The status history of the server is kept.
func (s *SQLite) DeleteServer(ctx context.Context, uuid string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE uuid = ?`, s.tables.Servers)
	if _, err := s.db.ExecContext(ctx, query, uuid); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeletion, uuid, err)
	}
	return nil
}

// StatusHistory returns up to limit statuses of a server, newest first.
// A limit of zero or less returns all of them.
func (s *SQLite) StatusHistory(ctx context.Context, serverUUID string, limit int) ([]*model.ServerStatus, error) {
	query := fmt.Sprintf(`
	SELECT server_uuid, status, country, info_page_available, checked_at
	FROM %s
	WHERE server_uuid = ?
	ORDER BY checked_at DESC, id DESC
	`, s.tables.Statuses)
	args := []any{serverUUID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var history []*model.ServerStatus
	for rows.Next() {
		var (
			st        model.ServerStatus
			country   sql.NullString
			checkedAt string
		)
		if err := rows.Scan(&st.ServerUUID, &st.Status, &country, &st.InfoPageAvailable, &checkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		if country.Valid {
			c, err := model.ParseCountry(country.String)
			if err != nil && !errors.Is(err, model.ErrEmptyCountry) {
				return nil, err
			}
			if err == nil {
				st.Country = &c
			}
		}
		st.CheckedAt = parseTimestamp(checkedAt)
		history = append(history, &st)
	}
	return history, rows.Err()
}

func protocolFromInt(n int) model.Protocol {
	switch p := model.Protocol(n); p {
	case model.ProtocolSMP, model.ProtocolXFTP:
		return p
	default:
		return model.ProtocolUnknown
	}
}

// timestampFormats are the layouts SQLite may hand back for DATETIME columns.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
