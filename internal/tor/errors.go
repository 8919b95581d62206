package tor

import "errors"

var (
	// ErrProxyNotTor means something listens on the proxy address but does
	// not complete a SOCKS5 exchange.
	ErrProxyNotTor = errors.New("not a SOCKS5 proxy")

	// ErrProxyCannotConnect means the proxy port is closed or unreachable.
	ErrProxyCannotConnect = errors.New("SOCKS5 proxy unreachable")

	// ErrProxyTimeout means the proxy accepted but never answered.
	ErrProxyTimeout = errors.New("SOCKS5 proxy timed out")

	// ErrProxyStatusUnknown is returned by Err for out-of-range statuses.
	ErrProxyStatusUnknown = errors.New("unknown proxy status")

	// ErrInvalidProxyAddress is returned by ParseProxyAddress.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port or socks5h://host:port")

	// ErrNotRunning is returned when a client is requested from a daemon
	// that is not running.
	ErrNotRunning = errors.New("tor daemon is not running")
)

// ProxyStatus is the outcome of Client.CheckConnection.
type ProxyStatus int

// Proxy check outcomes.
const (
	ProxyStatusOK ProxyStatus = iota
	ProxyStatusWrongType
	ProxyStatusCannotConnect
	ProxyStatusTimeout
)

var proxyStatuses = map[ProxyStatus]struct {
	text string
	err  error
}{
	ProxyStatusOK:            {"ok", nil},
	ProxyStatusWrongType:     {"not socks5", ErrProxyNotTor},
	ProxyStatusCannotConnect: {"unreachable", ErrProxyCannotConnect},
	ProxyStatusTimeout:       {"timeout", ErrProxyTimeout},
}

func (s ProxyStatus) String() string {
	if st, ok := proxyStatuses[s]; ok {
		return st.text
	}
	return "unknown"
}

// Err maps the status to its sentinel error; ProxyStatusOK maps to nil.
func (s ProxyStatus) Err() error {
	if st, ok := proxyStatuses[s]; ok {
		return st.err
	}
	return ErrProxyStatusUnknown
}
