package geo

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// defaultDNSTimeout bounds one DNS exchange.
const defaultDNSTimeout = 5 * time.Second

// SystemResolver resolves through the operating system resolver.
type SystemResolver struct {
	resolver *net.Resolver
}

// NewSystemResolver returns a resolver backed by net.DefaultResolver.
func NewSystemResolver() *SystemResolver {
	return &SystemResolver{resolver: net.DefaultResolver}
}

// LookupIP implements HostResolver.
func (s *SystemResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	return s.resolver.LookupIP(ctx, "ip", host)
}

// DNSResolver queries one DNS server directly, asking for A records first
// and AAAA records when there are none.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver creates a resolver for server ("host" or "host:port").
// Port 53 is assumed when none is given.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	if timeout <= 0 {
		timeout = defaultDNSTimeout
	}
	return &DNSResolver{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
	}
}

// Server returns the "host:port" of the queried DNS server.
func (d *DNSResolver) Server() string {
	return d.server
}

// LookupIP implements HostResolver.
func (d *DNSResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		msg.RecursionDesired = true

		in, _, err := d.client.ExchangeContext(ctx, msg, d.server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%s %s: %s", dns.TypeToString[qtype], host, dns.RcodeToString[in.Rcode])
			continue
		}

		var ips []net.IP
		for _, rr := range in.Answer {
			switch v := rr.(type) {
			case *dns.A:
				ips = append(ips, v.A)
			case *dns.AAAA:
				ips = append(ips, v.AAAA)
			}
		}
		if len(ips) > 0 {
			return ips, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errNoAddresses
}
