package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"github.com/nao1215/registry-validator/internal/model"
)

// Database is the subset of *geoip2.Reader used for lookups.
type Database interface {
	Country(ip net.IP) (*geoip2.Country, error)
	Close() error
}

// HostResolver turns a host name into IP addresses.
type HostResolver interface {
	LookupIP(ctx context.Context, host string) ([]net.IP, error)
}

// Resolver maps hosts to countries.
// It is opened once per run and shared by all servers.
type Resolver struct {
	db    Database
	hosts HostResolver

	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHostResolver replaces the DNS resolver. The default is SystemResolver.
func WithHostResolver(h HostResolver) Option {
	return func(r *Resolver) {
		r.hosts = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Open opens the MaxMind database at path.
func Open(path string, opts ...Option) (*Resolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDatabaseOpen, path, err)
	}
	return New(db, opts...), nil
}

// New creates a Resolver over an already opened database.
func New(db Database, opts ...Option) *Resolver {
	r := &Resolver{
		db:     db,
		hosts:  NewSystemResolver(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the country of a bare domain or IP.
//
// Onion hosts return the anonymized country without any lookup. A DNS
// failure wraps ErrResolve; a missing record or a record without an ISO code
// wraps ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, host string) (model.Country, error) {
	host = strings.TrimSpace(host)
	if strings.HasSuffix(strings.ToLower(host), ".onion") {
		return model.AnonymizedCountry(), nil
	}

	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil {
		ips, err := r.hosts.LookupIP(ctx, host)
		if err != nil {
			return model.Country{}, fmt.Errorf("%w: %s: %w", ErrResolve, host, err)
		}
		if len(ips) == 0 {
			return model.Country{}, fmt.Errorf("%w: %s: %w", ErrResolve, host, errNoAddresses)
		}
		ip = ips[0]
		r.logger.Debug("resolved host", "host", host, "ip", ip.String())
	}

	record, err := r.db.Country(ip)
	if err != nil {
		return model.Country{}, fmt.Errorf("%w: %s: %w", ErrNotFound, ip, err)
	}
	if record == nil || record.Country.IsoCode == "" {
		return model.Country{}, fmt.Errorf("%w: %s", ErrNotFound, ip)
	}
	return model.ISOCountry(record.Country.IsoCode), nil
}

// Close closes the underlying database.
func (r *Resolver) Close() error {
	return r.db.Close()
}
