// Package tor provides the SOCKS5 connectivity used to reach info pages of
// servers that are only published as onion addresses.
//
// Client wraps a SOCKS5 dialer, usually an external Tor at
// socks5h://127.0.0.1:9050. Daemon runs a private Tor through tornago for
// hosts without one.
package tor
