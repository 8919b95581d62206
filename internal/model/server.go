package model

import (
	"encoding/json"
	"fmt"
)

// Protocol identifies the transport a registered server speaks.
// The numeric values match the registry's "protocol" column.
type Protocol int

const (
	// ProtocolUnknown is any value the registry stores that we do not recognize.
	ProtocolUnknown Protocol = 0
	// ProtocolSMP is the SimpleX Messaging Protocol relay.
	ProtocolSMP Protocol = 1
	// ProtocolXFTP is the file transfer protocol server.
	ProtocolXFTP Protocol = 2
)

// String returns the URI scheme of the protocol.
func (p Protocol) String() string {
	switch p {
	case ProtocolSMP:
		return "smp"
	case ProtocolXFTP:
		return "xftp"
	default:
		return "unknown"
	}
}

// ParseProtocol converts a URI scheme into a Protocol.
// Unrecognized schemes map to ProtocolUnknown.
func ParseProtocol(scheme string) Protocol {
	switch scheme {
	case "smp":
		return ProtocolSMP
	case "xftp":
		return ProtocolXFTP
	default:
		return ProtocolUnknown
	}
}

// UnmarshalJSON accepts the registry's integer encoding.
// Integers outside the known range decode to ProtocolUnknown rather than failing,
// so a single odd row never breaks fetching the whole server set.
func (p *Protocol) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid protocol value %s: %w", string(data), err)
	}
	switch Protocol(n) {
	case ProtocolSMP, ProtocolXFTP:
		*p = Protocol(n)
	default:
		*p = ProtocolUnknown
	}
	return nil
}

// Server is a registered server as fetched from the registry.
// It is treated as immutable for the duration of a validation pass.
type Server struct {
	// UUID is the opaque registry identifier.
	UUID string `json:"uuid"`

	// Protocol is the transport the server speaks.
	Protocol Protocol `json:"protocol"`

	// Identity is the server key fingerprint.
	Identity string `json:"identity"`

	// Host is "hostname[:port][,hostname[:port]...]".
	Host string `json:"host"`
}

// URI returns the canonical address "protocol://identity@host".
// The value is always recomputed and never stored.
func (s Server) URI() string {
	return fmt.Sprintf("%s://%s@%s", s.Protocol, s.Identity, s.Host)
}
