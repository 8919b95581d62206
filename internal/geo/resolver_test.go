package geo

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/oschwald/geoip2-golang"
)

// fakeDB is an in-memory Database keyed by IP string.
type fakeDB struct {
	mu      sync.Mutex
	records map[string]string
	err     error
	lookups int
}

func (f *fakeDB) Country(ip net.IP) (*geoip2.Country, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	record := &geoip2.Country{}
	record.Country.IsoCode = f.records[ip.String()]
	return record, nil
}

func (f *fakeDB) Close() error { return nil }

func (f *fakeDB) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

// fakeHosts is a static HostResolver.
type fakeHosts struct {
	mu      sync.Mutex
	answers map[string][]net.IP
	err     error
	calls   int
}

func (f *fakeHosts) LookupIP(_ context.Context, host string) ([]net.IP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.answers[host], nil
}

func (f *fakeHosts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// TestResolverResolve tests host to country mapping.
func TestResolverResolve(t *testing.T) {
	t.Parallel()

	newFixture := func() (*fakeDB, *fakeHosts, *Resolver) {
		db := &fakeDB{records: map[string]string{
			"192.0.2.10":  "US",
			"2001:db8::1": "de",
		}}
		hosts := &fakeHosts{answers: map[string][]net.IP{
			"example.com": {net.ParseIP("192.0.2.10"), net.ParseIP("198.51.100.1")},
			"unknown.net": {net.ParseIP("198.51.100.1")},
			"empty.net":   {},
		}}
		return db, hosts, New(db, WithHostResolver(hosts))
	}

	t.Run("onion short-circuits", func(t *testing.T) {
		t.Parallel()

		db, hosts, r := newFixture()
		country, err := r.Resolve(context.Background(), "xyzabc.ONION")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !country.IsAnonymized() || country.String() != "TOR" {
			t.Errorf("expected TOR, got %q", country.String())
		}
		if db.count() != 0 || hosts.count() != 0 {
			t.Errorf("expected no lookups, got db=%d dns=%d", db.count(), hosts.count())
		}
	})

	t.Run("dns name uses first address", func(t *testing.T) {
		t.Parallel()

		_, hosts, r := newFixture()
		country, err := r.Resolve(context.Background(), "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if country.String() != "US" {
			t.Errorf("expected US, got %q", country.String())
		}
		if hosts.count() != 1 {
			t.Errorf("expected 1 DNS lookup, got %d", hosts.count())
		}
	})

	t.Run("ip literals skip dns", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			host string
			want string
		}{
			{host: "192.0.2.10", want: "US"},
			{host: "2001:db8::1", want: "DE"},
			{host: "[2001:db8::1]", want: "DE"},
		}
		for _, tt := range tests {
			_, hosts, r := newFixture()
			country, err := r.Resolve(context.Background(), tt.host)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.host, err)
			}
			if country.String() != tt.want {
				t.Errorf("%s: expected %q, got %q", tt.host, tt.want, country.String())
			}
			if hosts.count() != 0 {
				t.Errorf("%s: expected no DNS lookup", tt.host)
			}
		}
	})

	t.Run("no record", func(t *testing.T) {
		t.Parallel()

		_, _, r := newFixture()
		_, err := r.Resolve(context.Background(), "unknown.net")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("database error", func(t *testing.T) {
		t.Parallel()

		db, hosts, _ := newFixture()
		db.err = errors.New("corrupt")
		r := New(db, WithHostResolver(hosts))
		_, err := r.Resolve(context.Background(), "192.0.2.10")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("resolution failure", func(t *testing.T) {
		t.Parallel()

		db, hosts, _ := newFixture()
		hosts.err = errors.New("no such host")
		r := New(db, WithHostResolver(hosts))
		_, err := r.Resolve(context.Background(), "example.com")
		if !errors.Is(err, ErrResolve) {
			t.Errorf("expected ErrResolve, got %v", err)
		}
		if db.count() != 0 {
			t.Error("expected no database lookup")
		}
	})

	t.Run("empty answer", func(t *testing.T) {
		t.Parallel()

		_, _, r := newFixture()
		_, err := r.Resolve(context.Background(), "empty.net")
		if !errors.Is(err, ErrResolve) {
			t.Errorf("expected ErrResolve, got %v", err)
		}
	})
}

// TestOpen tests opening a missing database.
func TestOpen(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	if !errors.Is(err, ErrDatabaseOpen) {
		t.Errorf("expected ErrDatabaseOpen, got %v", err)
	}
}
