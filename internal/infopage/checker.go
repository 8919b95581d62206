package infopage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"github.com/nao1215/registry-validator/internal/tor"
)

const (
	// DefaultMarker is the text an info page must contain.
	DefaultMarker = "simplex"

	// DefaultTimeout is the deadline of one info page request.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxBodySize caps how much of a page is searched.
	DefaultMaxBodySize int64 = 5 << 20
)

// Checker fetches info pages directly or through a SOCKS5 proxy.
type Checker struct {
	direct  *http.Client
	proxied *http.Client

	marker      string
	timeout     time.Duration
	maxBodySize int64

	logger *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithProxy routes proxied checks through the given Tor client.
func WithProxy(client *tor.Client) Option {
	return func(c *Checker) {
		if client != nil {
			c.proxied = client.NewHTTPClient(0)
		}
	}
}

// WithHTTPClient replaces the client used for direct checks.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		c.direct = client
	}
}

// WithMarker sets the text that marks an info page.
func WithMarker(marker string) Option {
	return func(c *Checker) {
		c.marker = marker
	}
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.timeout = d
	}
}

// WithMaxBodySize caps the number of body bytes searched.
func WithMaxBodySize(n int64) Option {
	return func(c *Checker) {
		c.maxBodySize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// NewChecker creates a Checker. Without WithProxy, proxied checks always
// report the page as unavailable.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		direct:      &http.Client{},
		marker:      DefaultMarker,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasProxy reports whether proxied checks can be made.
func (c *Checker) HasProxy() bool {
	return c.proxied != nil
}

// URL returns the address checked for domain: plain http behind the proxy,
// https otherwise.
func URL(domain string, viaProxy bool) string {
	if viaProxy {
		return "http://" + domain
	}
	return "https://" + domain
}

// Check reports whether the info page of domain is available.
func (c *Checker) Check(ctx context.Context, domain string, viaProxy bool) bool {
	if domain == "" {
		return false
	}

	client := c.direct
	if viaProxy {
		if c.proxied == nil {
			c.logger.Warn("info page needs a SOCKS5 proxy but none is configured", "domain", domain)
			return false
		}
		client = c.proxied
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := URL(domain, viaProxy)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.logger.Debug("invalid info page URL", "url", target, "error", err)
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Debug("info page request failed", "url", target, "error", err)
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		c.logger.Debug("info page body unreadable", "url", target, "error", err)
		return false
	}

	found := containsFold(string(body), c.marker)
	c.logger.Debug("info page checked", "url", target, "status", resp.StatusCode, "available", found)
	return found
}

// containsFold reports whether marker occurs in body, ignoring case.
func containsFold(body, marker string) bool {
	if marker == "" {
		return false
	}
	m := search.New(language.Und, search.IgnoreCase)
	start, _ := m.IndexString(body, marker)
	return start >= 0
}
