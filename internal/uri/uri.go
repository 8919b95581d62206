package uri

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/nao1215/registry-validator/internal/model"
)

// DefaultOfficialMarker is the first-party domain of the network operator.
const DefaultOfficialMarker = "simplex.im"

// onionSuffix is the top-level suffix of Tor hidden services.
const onionSuffix = ".onion"

// Kind is the domain category of an address.
type Kind int

const (
	// KindDNS means every host resolves through public DNS.
	KindDNS Kind = iota
	// KindOnion means at least one host is a Tor hidden service.
	KindOnion
)

// String returns a human-readable kind.
func (k Kind) String() string {
	if k == KindOnion {
		return "onion"
	}
	return "dns"
}

// publicDomainPattern is a permissive domain-name matcher used to guess the
// info page host out of an address.
var publicDomainPattern = regexp.MustCompile(`(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}`)

// DomainInfo is the classification of a server host list.
type DomainInfo struct {
	// Kind is KindOnion if any host is an onion address.
	Kind Kind

	// Hosts are the bare domains or IPs, in address order.
	Hosts []string

	// IsOfficial is true when the raw address contains the official marker.
	IsOfficial bool

	// InfoPageDomain is the first public (non-onion) domain found in the
	// address, or empty when there is none. It is reported in logs only;
	// availability is always checked on the primary host.
	InfoPageDomain string
}

// Primary returns the first bare host, or an empty string.
func (d DomainInfo) Primary() string {
	if len(d.Hosts) == 0 {
		return ""
	}
	return d.Hosts[0]
}

// Address is a parsed server URI.
type Address struct {
	// Protocol is the recognized scheme.
	Protocol model.Protocol

	// Identity is the server key fingerprint.
	Identity string

	// Entries are the raw "host[:port]" entries.
	Entries []string

	// Domain is the classification of the host list.
	Domain DomainInfo
}

// PrimaryHost returns the bare host used for geolocation and HTTP probing.
func (a *Address) PrimaryHost() string {
	return a.Domain.Primary()
}

// Option configures parsing.
type Option func(*options)

type options struct {
	officialMarker string
}

// WithOfficialMarker overrides the substring that marks official servers.
func WithOfficialMarker(marker string) Option {
	return func(o *options) {
		o.officialMarker = marker
	}
}

// Parse parses "scheme://identity@hosts" and classifies its host list.
// Only the smp and xftp schemes are accepted.
func Parse(raw string, opts ...Option) (*Address, error) {
	o := options{officialMarker: DefaultOfficialMarker}
	for _, opt := range opts {
		opt(&o)
	}

	raw = strings.TrimSpace(raw)
	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return nil, fmt.Errorf("%w: missing scheme in %q", ErrInvalidURI, raw)
	}
	protocol := model.ParseProtocol(scheme)
	if protocol == model.ProtocolUnknown {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURI, scheme)
	}

	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return nil, fmt.Errorf("%w: missing identity in %q", ErrInvalidURI, raw)
	}
	identity := rest[:at]
	hostPart := rest[at+1:]

	entries := SplitHosts(hostPart)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoHosts, raw)
	}

	info := Classify(hostPart, o.officialMarker)
	info.IsOfficial = IsOfficial(raw, o.officialMarker)

	return &Address{
		Protocol: protocol,
		Identity: identity,
		Entries:  entries,
		Domain:   info,
	}, nil
}

// SplitHosts splits a comma-separated host list into trimmed
// "host[:port]" entries, dropping empty ones.
func SplitHosts(host string) []string {
	parts := strings.Split(host, ",")
	entries := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// StripPort returns the bare domain or IP of a "host[:port]" entry.
// Bracketed IPv6 literals lose their brackets; a bare IPv6 literal is
// returned unchanged.
func StripPort(entry string) string {
	if host, _, err := net.SplitHostPort(entry); err == nil {
		return host
	}
	if strings.HasPrefix(entry, "[") && strings.HasSuffix(entry, "]") {
		return entry[1 : len(entry)-1]
	}
	if net.ParseIP(entry) != nil {
		return entry
	}
	if i := strings.LastIndex(entry, ":"); i >= 0 {
		return entry[:i]
	}
	return entry
}

// IsOnion reports whether a bare host is a Tor hidden service.
func IsOnion(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), onionSuffix)
}

// Classify builds the DomainInfo for a host list.
func Classify(host, officialMarker string) DomainInfo {
	entries := SplitHosts(host)
	info := DomainInfo{
		Kind:  KindDNS,
		Hosts: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		bare := StripPort(e)
		if IsOnion(bare) {
			info.Kind = KindOnion
		}
		info.Hosts = append(info.Hosts, bare)
	}
	info.IsOfficial = IsOfficial(host, officialMarker)
	info.InfoPageDomain, _ = ExtractPublicDomain(host)
	return info
}

// ExtractPublicDomain returns the first plausible public domain in s.
// Onion names are skipped. Finding nothing is a valid outcome.
func ExtractPublicDomain(s string) (string, bool) {
	for _, m := range publicDomainPattern.FindAllString(s, -1) {
		if IsOnion(m) {
			continue
		}
		return m, true
	}
	return "", false
}

// IsOfficial reports whether raw contains the official marker.
// It is a plain substring test so malformed input never fails.
func IsOfficial(raw, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(raw, marker)
}
