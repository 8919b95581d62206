package smp

import "errors"

var (
	// ErrConnectionFailed is returned when the relay cannot be reached, the
	// websocket handshake fails or the command cannot be sent.
	ErrConnectionFailed = errors.New("relay connection failed")

	// ErrConnectionLost is returned when reading from an established relay
	// connection fails for a reason other than an orderly close.
	ErrConnectionLost = errors.New("relay connection lost")

	// ErrInvalidEndpoint is returned when the relay endpoint is not a ws:// or
	// wss:// URL.
	ErrInvalidEndpoint = errors.New("invalid relay endpoint: expected ws:// or wss:// URL")
)
