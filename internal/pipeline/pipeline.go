package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// Step is one stage of validating a server.
type Step interface {
	// Do runs the step on check. Returning ErrStop skips the remaining
	// steps; any other error fails the server.
	Do(ctx context.Context, check *Check) error

	// Name identifies the step in logs and in Check.Steps.
	Name() string
}

// Pipeline is a fixed sequence of steps shared by every server of a run.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New returns a pipeline running steps in the given order.
func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:  slices.Clone(steps),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs the steps on check. It returns at the first failing step,
// returns nil when a step yields ErrStop, and checks ctx before each step.
// Every step that ran is appended to check.Steps.
func (p *Pipeline) Execute(ctx context.Context, check *Check) error {
	log := p.logger.With("server", check.Server.UUID)
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			log.Warn("validation interrupted", "before", step.Name(), "reason", err)
			return err
		}

		err := step.Do(ctx, check)
		check.Steps = append(check.Steps, step.Name())
		switch {
		case errors.Is(err, ErrStop):
			log.Debug("remaining steps skipped", "after", step.Name())
			return nil
		case err != nil:
			return err
		}
		log.Debug("step done", "step", step.Name())
	}
	return nil
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
