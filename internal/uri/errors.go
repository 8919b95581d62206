package uri

import "errors"

var (
	// ErrInvalidURI is returned when the scheme is neither smp nor xftp,
	// or the address lacks the identity@host structure.
	ErrInvalidURI = errors.New("invalid SMP/XFTP URI")

	// ErrNoHosts is returned when the host list contains no usable entry.
	ErrNoHosts = errors.New("server address has no hosts")
)
