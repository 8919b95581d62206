package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/registry-validator/internal/model"
)

// setupTestDB opens a fresh SQLite registry in a temporary directory.
func setupTestDB(t *testing.T) *SQLite {
	t.Helper()

	db, err := OpenSQLite(t.TempDir(), DefaultTables(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestOpenSQLite tests opening and creating the registry file.
func TestOpenSQLite(t *testing.T) {
	t.Parallel()

	t.Run("creates nested directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "a", "b")
		db, err := OpenSQLite(dir, DefaultTables(), DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("database file missing: %v", err)
		}
		if db.Path() != filepath.Join(dir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("missing file without create", func(t *testing.T) {
		t.Parallel()

		_, err := OpenSQLite(t.TempDir(), DefaultTables(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("invalid table name", func(t *testing.T) {
		t.Parallel()

		_, err := OpenSQLite(t.TempDir(), Tables{Servers: "x y", Statuses: "s"}, DefaultOptions())
		if !errors.Is(err, ErrInvalidTableName) {
			t.Errorf("expected ErrInvalidTableName, got %v", err)
		}
	})

	t.Run("custom tables", func(t *testing.T) {
		t.Parallel()

		db, err := OpenSQLite(t.TempDir(), Tables{Servers: "relays", Statuses: "relay_checks"}, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		if err := db.AddServer(ctx, &model.Server{UUID: "a1", Protocol: model.ProtocolSMP, Identity: "k", Host: "h"}); err != nil {
			t.Fatalf("AddServer: %v", err)
		}
		servers, err := db.FetchAllServers(ctx)
		if err != nil || len(servers) != 1 {
			t.Fatalf("FetchAllServers = %v, %v", servers, err)
		}
	})
}

// TestSQLiteServers tests registering, listing and deleting servers.
func TestSQLiteServers(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	smp := &model.Server{UUID: "a1", Protocol: model.ProtocolSMP, Identity: "k1", Host: "example.com:5223"}
	xftp := &model.Server{Protocol: model.ProtocolXFTP, Identity: "k2", Host: "files.example.org"}
	for _, s := range []*model.Server{smp, xftp} {
		if err := db.AddServer(ctx, s); err != nil {
			t.Fatalf("AddServer: %v", err)
		}
	}
	if xftp.UUID == "" {
		t.Fatal("expected a generated UUID")
	}

	t.Run("duplicate address rejected", func(t *testing.T) {
		dup := &model.Server{Protocol: model.ProtocolSMP, Identity: "k1", Host: "example.com:5223"}
		if err := db.AddServer(ctx, dup); !errors.Is(err, ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})

	servers, err := db.FetchAllServers(ctx)
	if err != nil {
		t.Fatalf("FetchAllServers: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
	if servers[0] != *smp || servers[1] != *xftp {
		t.Errorf("unexpected servers %+v", servers)
	}

	if err := db.DeleteServer(ctx, "a1"); err != nil {
		t.Fatalf("DeleteServer: %v", err)
	}
	servers, err = db.FetchAllServers(ctx)
	if err != nil {
		t.Fatalf("FetchAllServers: %v", err)
	}
	if len(servers) != 1 || servers[0].UUID != xftp.UUID {
		t.Errorf("expected only %s left, got %+v", xftp.UUID, servers)
	}

	if err := db.DeleteServer(ctx, "does-not-exist"); err != nil {
		t.Errorf("deleting a missing server should succeed, got %v", err)
	}
}

// TestSQLiteStatusHistory tests appending and reading statuses.
func TestSQLiteStatusHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	us := model.ISOCountry("US")
	tor := model.AnonymizedCountry()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	statuses := []*model.ServerStatus{
		{ServerUUID: "a1", Status: false, Country: nil, InfoPageAvailable: false, CheckedAt: base},
		{ServerUUID: "a1", Status: true, Country: &us, InfoPageAvailable: true, CheckedAt: base.Add(time.Hour)},
		{ServerUUID: "b2", Status: true, Country: &tor, InfoPageAvailable: false, CheckedAt: base},
	}
	for _, st := range statuses {
		if err := db.InsertStatus(ctx, st); err != nil {
			t.Fatalf("InsertStatus: %v", err)
		}
	}

	history, err := db.StatusHistory(ctx, "a1", 0)
	if err != nil {
		t.Fatalf("StatusHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(history))
	}

	latest := history[0]
	if !latest.Status || !latest.InfoPageAvailable || latest.CountryString() != "US" {
		t.Errorf("unexpected latest row %+v", latest)
	}
	if !latest.CheckedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("CheckedAt = %v, want %v", latest.CheckedAt, base.Add(time.Hour))
	}
	if history[1].Country != nil {
		t.Errorf("expected absent country, got %v", history[1].Country)
	}

	limited, err := db.StatusHistory(ctx, "a1", 1)
	if err != nil {
		t.Fatalf("StatusHistory: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 row with limit, got %d", len(limited))
	}

	anon, err := db.StatusHistory(ctx, "b2", 0)
	if err != nil {
		t.Fatalf("StatusHistory: %v", err)
	}
	if len(anon) != 1 || anon[0].Country == nil || !anon[0].Country.IsAnonymized() {
		t.Errorf("expected TOR row, got %+v", anon)
	}
}

// TestParseTimestamp tests the accepted SQLite timestamp layouts.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	for _, s := range []string{"2024-05-01 12:30:00", "2024-05-01T12:30:00Z", "2024-05-01T12:30:00+00:00"} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v", s, got)
		}
	}
	if !parseTimestamp("garbage").IsZero() {
		t.Error("expected zero time")
	}
}
