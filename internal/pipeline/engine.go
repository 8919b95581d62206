package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nao1215/registry-validator/internal/database"
	"github.com/nao1215/registry-validator/internal/model"
	"github.com/nao1215/registry-validator/internal/uri"
)

// Registry is the part of database.Store the engine uses.
type Registry interface {
	FetchAllServers(ctx context.Context) ([]model.Server, error)
	ServerDeleter
	StatusWriter
}

// Engine runs one validation pass over the registry.
type Engine struct {
	registry Registry
	pipeline *Pipeline

	dryRun  bool
	shuffle func([]model.Server)
	logger  *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	dryRun         bool
	officialMarker string
	shuffle        func([]model.Server)
	logger         *slog.Logger
}

// WithDryRun computes every status but writes and deletes nothing.
func WithDryRun(dryRun bool) EngineOption {
	return func(c *engineConfig) {
		c.dryRun = dryRun
	}
}

// WithOfficialMarker sets the substring identifying official servers.
func WithOfficialMarker(marker string) EngineOption {
	return func(c *engineConfig) {
		c.officialMarker = marker
	}
}

// WithShuffle replaces the uniform shuffle of the server order.
func WithShuffle(shuffle func([]model.Server)) EngineOption {
	return func(c *engineConfig) {
		c.shuffle = shuffle
	}
}

// WithEngineLogger sets the logger of the engine and its steps.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// ShuffleServers permutes servers uniformly at random.
func ShuffleServers(servers []model.Server) {
	rand.Shuffle(len(servers), func(i, j int) {
		servers[i], servers[j] = servers[j], servers[i]
	})
}

// NewEngine wires the validation steps.
func NewEngine(registry Registry, tester LivenessTester, resolver CountryResolver, checker InfoPageChecker, opts ...EngineOption) *Engine {
	cfg := engineConfig{
		officialMarker: uri.DefaultOfficialMarker,
		shuffle:        ShuffleServers,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := New([]Step{
		NewOfficialStep(registry, cfg.officialMarker, cfg.dryRun, cfg.logger),
		NewClassifyStep(cfg.officialMarker, cfg.logger),
		NewLivenessStep(tester, cfg.logger),
		NewGeolocateStep(resolver, cfg.logger),
		NewInfoPageStep(checker, cfg.logger),
		NewPersistStep(registry, cfg.dryRun, cfg.logger),
	}, WithLogger(cfg.logger))

	return &Engine{
		registry: registry,
		pipeline: p,
		dryRun:   cfg.dryRun,
		shuffle:  cfg.shuffle,
		logger:   cfg.logger,
	}
}

// StepNames returns the per-server steps in order.
func (e *Engine) StepNames() []string {
	return e.pipeline.StepNames()
}

// Run fetches the server set and validates every server, one at a time.
//
// A fetch failure is returned wrapped in database.ErrFetchServers. Errors of
// individual servers are logged and recorded in the summary. When ctx is
// cancelled the run stops and the partial summary is returned with the
// context error.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		StartedAt: time.Now(),
		DryRun:    e.dryRun,
	}
	if e.dryRun {
		e.logger.Info("running in dry mode, the registry will not be modified")
	}

	servers, err := e.registry.FetchAllServers(ctx)
	if err != nil {
		if !errors.Is(err, database.ErrFetchServers) {
			err = fmt.Errorf("%w: %w", database.ErrFetchServers, err)
		}
		return nil, err
	}
	e.shuffle(servers)
	summary.Total = len(servers)
	e.logger.Info("found servers", "count", len(servers))

	for i, server := range servers {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = time.Now()
			return summary, err
		}

		e.logger.Info("validating server", "index", i+1, "total", len(servers), "server", server.UUID)
		summary.Results = append(summary.Results, e.validate(ctx, server))
	}

	summary.FinishedAt = time.Now()
	e.logger.Info("validation finished",
		"total", summary.Total,
		"recorded", summary.Count(OutcomeRecorded),
		"dry_run", summary.Count(OutcomeDryRun),
		"deleted", summary.Count(OutcomeDeleted),
		"failed", summary.Count(OutcomeFailed),
		"duration", summary.Duration().Round(time.Millisecond),
	)
	return summary, nil
}

// validate runs the pipeline for one server and never fails the run.
func (e *Engine) validate(ctx context.Context, server model.Server) Result {
	start := time.Now()
	check := NewCheck(server)

	err := e.pipeline.Execute(ctx, check)
	if err != nil {
		e.logger.Error("server validation failed",
			"server", server.UUID,
			"uri", check.URI,
			"steps", check.Steps,
			"error", err,
		)
	}
	return check.result(err, time.Since(start))
}
