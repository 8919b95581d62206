package smp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nao1215/registry-validator/internal/retry"
)

// DefaultAttempts is the number of probe attempts per server.
const DefaultAttempts = 3

// defaultHandshakeTimeout bounds the websocket opening handshake.
const defaultHandshakeTimeout = 30 * time.Second

// Tester sends liveness probes through a validation relay.
type Tester struct {
	// endpoint is the relay websocket URL.
	endpoint string

	// dialer opens relay connections.
	dialer *websocket.Dialer

	// attempts is the retry budget used by Probe.
	attempts int

	// retryDelay is the pause between Probe attempts.
	retryDelay time.Duration

	// attemptTimeout bounds a single Test call. Zero disables it.
	attemptTimeout time.Duration

	// newCorrID generates correlation ids.
	newCorrID func() string

	logger *slog.Logger
}

// Option configures a Tester.
type Option func(*Tester)

// WithAttempts sets how many attempts Probe makes.
func WithAttempts(n int) Option {
	return func(t *Tester) {
		t.attempts = n
	}
}

// WithRetryDelay sets the pause between Probe attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(t *Tester) {
		t.retryDelay = d
	}
}

// WithAttemptTimeout bounds each attempt. Zero means an attempt waits until
// the relay answers or closes the connection.
func WithAttemptTimeout(d time.Duration) Option {
	return func(t *Tester) {
		t.attemptTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tester) {
		t.logger = logger
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(t *Tester) {
		t.dialer = d
	}
}

// NewTester creates a Tester for the relay at endpoint.
func NewTester(endpoint string, opts ...Option) (*Tester, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	t := &Tester{
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		attempts:  DefaultAttempts,
		newCorrID: uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Endpoint returns the relay URL.
func (t *Tester) Endpoint() string {
	return t.endpoint
}

// Test runs one liveness probe for the server at uri.
//
// It returns true when the relay reports a test result without failure for
// this probe's correlation id. An orderly close by the relay before a match
// yields (false, nil). Connection problems are reported as
// ErrConnectionFailed or ErrConnectionLost.
func (t *Tester) Test(ctx context.Context, uri string) (bool, error) {
	if t.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.attemptTimeout)
		defer cancel()
	}

	conn, _, err := t.dialer.DialContext(ctx, t.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, t.endpoint, err)
	}
	defer conn.Close()

	// Unblocks ReadMessage when the context ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close() //nolint:errcheck // closed again by the deferred call
	})
	defer stop()

	cmd := Command{CorrID: t.newCorrID(), Cmd: TestCommand(uri)}
	if err := conn.WriteJSON(cmd); err != nil {
		return false, fmt.Errorf("%w: send command: %w", ErrConnectionFailed, err)
	}
	t.logger.Debug("probe sent", "corr_id", cmd.CorrID, "uri", uri)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, fmt.Errorf("probe aborted: %w", ctxErr)
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				t.logger.Debug("relay closed connection before reply", "corr_id", cmd.CorrID, "code", closeErr.Code)
				return false, nil
			}
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, fmt.Errorf("%w: %w", ErrConnectionLost, err)
		}

		var reply Reply
		if err := json.Unmarshal(data, &reply); err != nil {
			t.logger.Debug("skipping undecodable relay message", "error", err)
			continue
		}
		if reply.CorrID != cmd.CorrID {
			continue
		}
		if !reply.IsTestResult() {
			t.logger.Debug("ignoring reply", "corr_id", cmd.CorrID, "type", reply.Resp.Type)
			continue
		}
		return reply.Passed(), nil
	}
}

// Probe runs Test up to the configured number of attempts, each on a fresh
// connection, and stops at the first success. Running out of attempts is
// reported as (false, nil); only context cancellation and an invalid attempt
// budget are returned as errors.
func (t *Tester) Probe(ctx context.Context, uri string) (bool, error) {
	ok, err := retry.Do(ctx, t.attempts, func(ctx context.Context, attempt int) (bool, error) {
		ok, err := t.Test(ctx, uri)
		switch {
		case err != nil:
			t.logger.Debug("probe attempt failed", "uri", uri, "attempt", attempt, "error", err)
		case !ok:
			t.logger.Debug("probe attempt not confirmed", "uri", uri, "attempt", attempt)
		}
		return ok, err
	}, retry.WithDelay(t.retryDelay))
	if errors.Is(err, retry.ErrExhausted) {
		return false, nil
	}
	return ok, err
}
