package geo

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startDNSServer serves answers from records on a local UDP port.
func startDNSServer(t *testing.T, records map[string][]dns.RR) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn: pc,
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			reply := new(dns.Msg)
			q := req.Question[0]
			answers, ok := records[q.Name]
			if !ok {
				reply.SetRcode(req, dns.RcodeNameError)
				_ = w.WriteMsg(reply)
				return
			}
			reply.SetReply(req)
			for _, rr := range answers {
				if rr.Header().Rrtype == q.Qtype {
					reply.Answer = append(reply.Answer, rr)
				}
			}
			_ = w.WriteMsg(reply)
		}),
		NotifyStartedFunc: func() { close(started) },
	}
	go func() {
		_ = srv.ActivateAndServe()
	}()
	<-started
	t.Cleanup(func() {
		_ = srv.Shutdown()
	})

	return pc.LocalAddr().String()
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("NewRR(%q): %v", s, err)
	}
	return rr
}

// TestDNSResolver tests lookups against an in-process DNS server.
func TestDNSResolver(t *testing.T) {
	t.Parallel()

	addr := startDNSServer(t, map[string][]dns.RR{
		"example.com.": {mustRR(t, "example.com. 60 IN A 192.0.2.10")},
		"v6only.net.":  {mustRR(t, "v6only.net. 60 IN AAAA 2001:db8::1")},
		"nodata.net.":  {},
	})
	r := NewDNSResolver(addr, time.Second)

	tests := []struct {
		name    string
		host    string
		want    string
		wantErr bool
	}{
		{name: "A record", host: "example.com", want: "192.0.2.10"},
		{name: "AAAA fallback", host: "v6only.net", want: "2001:db8::1"},
		{name: "nxdomain", host: "missing.org", wantErr: true},
		{name: "no data", host: "nodata.net", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ips, err := r.LookupIP(context.Background(), tt.host)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", ips)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ips) == 0 || ips[0].String() != tt.want {
				t.Errorf("expected %s, got %v", tt.want, ips)
			}
		})
	}
}

// TestNewDNSResolver tests server address normalization.
func TestNewDNSResolver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		server string
		want   string
	}{
		{server: "9.9.9.9", want: "9.9.9.9:53"},
		{server: "127.0.0.1:5353", want: "127.0.0.1:5353"},
		{server: "2001:db8::53", want: "[2001:db8::53]:53"},
	}
	for _, tt := range tests {
		if got := NewDNSResolver(tt.server, 0).Server(); got != tt.want {
			t.Errorf("NewDNSResolver(%q).Server() = %q, want %q", tt.server, got, tt.want)
		}
	}
}
