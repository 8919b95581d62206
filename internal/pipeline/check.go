package pipeline

import (
	"time"

	"github.com/nao1215/registry-validator/internal/model"
	"github.com/nao1215/registry-validator/internal/uri"
)

// Outcome is how the processing of one server ended.
type Outcome int

const (
	// OutcomeFailed means a step returned an error.
	OutcomeFailed Outcome = iota
	// OutcomeRecorded means a status row was written.
	OutcomeRecorded
	// OutcomeDryRun means a status was computed but not written.
	OutcomeDryRun
	// OutcomeDeleted means an official server was removed from the registry.
	OutcomeDeleted
	// OutcomeOfficial means an official server was skipped without deletion.
	OutcomeOfficial
)

// String returns the outcome name used in logs and reports.
func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDryRun:
		return "dry_run"
	case OutcomeDeleted:
		return "deleted"
	case OutcomeOfficial:
		return "official"
	default:
		return "failed"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Check carries the state of one server through the pipeline.
type Check struct {
	Server model.Server

	// URI is the canonical address, computed once from Server.
	URI string

	// Address is set by the classify step.
	Address *uri.Address

	Live              bool
	Country           *model.Country
	InfoPageAvailable bool

	// Status is set by the persist step.
	Status *model.ServerStatus

	Outcome Outcome

	// Steps lists the steps that ran, in order.
	Steps []string
}

// NewCheck starts a check for server.
func NewCheck(server model.Server) *Check {
	return &Check{
		Server: server,
		URI:    server.URI(),
	}
}

// Result is the summary of one processed server.
type Result struct {
	ServerUUID        string         `json:"server_uuid"`
	URI               string         `json:"uri"`
	Protocol          model.Protocol `json:"protocol"`
	Outcome           Outcome        `json:"outcome"`
	Live              bool           `json:"status"`
	Country           string         `json:"country,omitempty"`
	InfoPageAvailable bool           `json:"info_page_available"`
	Error             string         `json:"error,omitempty"`
	Duration          time.Duration  `json:"duration_ns"`
}

// result converts a finished check.
func (c *Check) result(err error, elapsed time.Duration) Result {
	r := Result{
		ServerUUID:        c.Server.UUID,
		URI:               c.URI,
		Protocol:          c.Server.Protocol,
		Outcome:           c.Outcome,
		Live:              c.Live,
		InfoPageAvailable: c.InfoPageAvailable,
		Duration:          elapsed,
	}
	if c.Country != nil {
		r.Country = c.Country.String()
	}
	if err != nil {
		r.Outcome = OutcomeFailed
		r.Error = err.Error()
	}
	return r
}

// Summary describes one validation run.
type Summary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`

	// Total is the number of servers fetched.
	Total int `json:"total"`

	Results []Result `json:"results"`
}

// Count returns how many servers ended with outcome.
func (s *Summary) Count(outcome Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

// LiveCount returns how many tested servers passed the liveness probe.
func (s *Summary) LiveCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Live {
			n++
		}
	}
	return n
}

// Duration returns the wall time of the run.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
