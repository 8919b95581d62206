package tor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultBootstrapTimeout bounds how long a Daemon waits for Tor to
// bootstrap.
const DefaultBootstrapTimeout = 3 * time.Minute

// Daemon is a private Tor process bound to OS-assigned loopback ports. It
// lives for one validation run.
type Daemon struct {
	mu      sync.Mutex
	process *tornago.TorProcess

	bootstrapTimeout time.Duration
	logger           *slog.Logger
}

// DaemonOption configures a Daemon.
type DaemonOption func(*Daemon)

// WithBootstrapTimeout sets how long Start waits for the daemon.
func WithBootstrapTimeout(d time.Duration) DaemonOption {
	return func(t *Daemon) {
		t.bootstrapTimeout = d
	}
}

// WithDaemonLogger sets the logger.
func WithDaemonLogger(logger *slog.Logger) DaemonOption {
	return func(t *Daemon) {
		t.logger = logger
	}
}

// NewDaemon returns a Daemon that has not been started.
func NewDaemon(opts ...DaemonOption) *Daemon {
	t := &Daemon{
		bootstrapTimeout: DefaultBootstrapTimeout,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type launch struct {
	process *tornago.TorProcess
	err     error
}

// Start launches Tor and waits until it has bootstrapped. When ctx ends
// first, Start returns ctx's error and the process is stopped as soon as it
// comes up.
func (t *Daemon) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(t.bootstrapTimeout),
	)
	if err != nil {
		return fmt.Errorf("invalid tor launch config: %w", err)
	}

	t.logger.Info("bootstrapping tor", "timeout", t.bootstrapTimeout)
	done := make(chan launch, 1)
	go func() {
		p, err := tornago.StartTorDaemon(cfg)
		done <- launch{process: p, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if l := <-done; l.process != nil {
				_ = l.process.Stop()
			}
		}()
		return fmt.Errorf("tor bootstrap abandoned: %w", ctx.Err())
	case l := <-done:
		if l.err != nil {
			return fmt.Errorf("failed to start tor: %w", l.err)
		}
		t.mu.Lock()
		t.process = l.process
		t.mu.Unlock()
		t.logger.Info("tor ready", "socks", l.process.SocksAddr())
		return nil
	}
}

// Stop terminates the process. Stopping a daemon that is not running is a
// no-op.
func (t *Daemon) Stop() error {
	t.mu.Lock()
	p := t.process
	t.process = nil
	t.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Stop()
}

// Running reports whether Start succeeded and Stop has not been called.
func (t *Daemon) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.process != nil
}

// SocksAddr is the daemon's SOCKS5 "host:port", empty when not running.
func (t *Daemon) SocksAddr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.process == nil {
		return ""
	}
	return t.process.SocksAddr()
}

// Client returns a SOCKS5 client for the running daemon.
func (t *Daemon) Client() (*Client, error) {
	addr := t.SocksAddr()
	if addr == "" {
		return nil, ErrNotRunning
	}
	return NewClient(addr)
}
