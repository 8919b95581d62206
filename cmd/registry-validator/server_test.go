package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/registry-validator/internal/database"
	"github.com/nao1215/registry-validator/internal/model"
	"github.com/nao1215/registry-validator/internal/uri"
)

func TestServerCmd(t *testing.T) {
	t.Parallel()

	t.Run("add, list and remove", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		out, err := runCmd(t, "server", "add", "--db-dir", dir,
			"--uuid", "a1", "--protocol", "smp", "--identity", "k1", "--host", "example.com:5223")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if !strings.Contains(out, "Added server a1: smp://k1@example.com:5223") {
			t.Errorf("unexpected add output: %s", out)
		}

		out, err = runCmd(t, "server", "add", "--db-dir", dir,
			"--uri", "xftp://k2@files.example.org,abc.onion")
		if err != nil {
			t.Fatalf("add by uri: %v", err)
		}
		if !strings.Contains(out, "xftp://k2@files.example.org,abc.onion") {
			t.Errorf("unexpected add output: %s", out)
		}

		out, err = runCmd(t, "server", "list", "--db-dir", dir)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !strings.Contains(out, "Registered servers (2)") || !strings.Contains(out, "smp://k1@example.com:5223") {
			t.Errorf("unexpected list output: %s", out)
		}

		if _, err := runCmd(t, "server", "remove", "--db-dir", dir, "a1"); err != nil {
			t.Fatalf("remove: %v", err)
		}
		out, err = runCmd(t, "server", "list", "--db-dir", dir)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if strings.Contains(out, "example.com:5223") || !strings.Contains(out, "Registered servers (1)") {
			t.Errorf("server not removed: %s", out)
		}
	})

	t.Run("empty registry", func(t *testing.T) {
		t.Parallel()

		out, err := runCmd(t, "server", "list", "--db-dir", t.TempDir())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !strings.Contains(out, "No servers registered.") {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("custom tables", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if _, err := runCmd(t, "server", "add", "--db-dir", dir, "--servers-table", "relays",
			"--identity", "k1", "--host", "example.com"); err != nil {
			t.Fatalf("add: %v", err)
		}
		out, err := runCmd(t, "server", "list", "--db-dir", dir)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !strings.Contains(out, "No servers registered.") {
			t.Errorf("default table should be empty: %s", out)
		}
	})

	t.Run("rejects invalid addresses", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			args []string
		}{
			{"unknown protocol", []string{"--protocol", "ftp", "--identity", "k1", "--host", "example.com"}},
			{"missing identity", []string{"--host", "example.com"}},
			{"missing host", []string{"--identity", "k1"}},
			{"malformed uri", []string{"--uri", "example.com"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				dir := t.TempDir()
				args := append([]string{"server", "add", "--db-dir", dir}, tt.args...)
				_, err := runCmd(t, args...)
				if !errors.Is(err, uri.ErrInvalidURI) && !errors.Is(err, uri.ErrNoHosts) {
					t.Errorf("expected address error, got %v", err)
				}
			})
		}
	})
}

// TestHistoryCmd runs its subtests in order against one database file.
func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	db, err := database.OpenSQLite(dir, database.DefaultTables(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	ctx := context.Background()
	server := &model.Server{UUID: "a1", Protocol: model.ProtocolSMP, Identity: "k1", Host: "example.com"}
	if err := db.AddServer(ctx, server); err != nil {
		t.Fatal(err)
	}
	us := model.ISOCountry("US")
	if err := db.InsertStatus(ctx, model.NewServerStatus("a1", true, &us, true)); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertStatus(ctx, model.NewServerStatus("a1", false, nil, false)); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	t.Run("lists statuses", func(t *testing.T) {
		out, err := runCmd(t, "history", "--db-dir", dir, "a1")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		for _, want := range []string{"Status history for a1 (2 checks)", "US", "up", "down"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output: %s", want, out)
			}
		}
	})

	t.Run("limit", func(t *testing.T) {
		out, err := runCmd(t, "history", "--db-dir", dir, "-n", "1", "a1")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if !strings.Contains(out, "(1 checks)") {
			t.Errorf("expected one check: %s", out)
		}
	})

	t.Run("unknown server", func(t *testing.T) {
		out, err := runCmd(t, "history", "--db-dir", dir, "missing")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if !strings.Contains(out, "No status history found for missing") {
			t.Errorf("unexpected output: %s", out)
		}
	})
}
