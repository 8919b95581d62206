package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/registry-validator/internal/pipeline"
)

// timeLayout formats timestamps in the text and Markdown output.
const timeLayout = time.RFC3339

// TextWriter prints a short summary for the terminal.
type TextWriter struct {
	baseWriter

	// failuresOnly hides servers that did not fail.
	failuresOnly bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithFailuresOnly lists only failed servers.
func WithFailuresOnly(only bool) TextWriterOption {
	return func(w *TextWriter) {
		w.failuresOnly = only
	}
}

// NewTextWriter creates a TextWriter.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *TextWriter) Write(summary *pipeline.Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("REGISTRY VALIDATION\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	if summary.DryRun {
		sb.WriteString("Mode:      dry run (registry not modified)\n")
	}
	fmt.Fprintf(&sb, "Started:   %s\n", summary.StartedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Duration:  %s\n", summary.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "Servers:   %d (processed %d)\n", summary.Total, len(summary.Results))
	fmt.Fprintf(&sb, "Live:      %d\n", summary.LiveCount())
	sb.WriteString("\n")

	for _, o := range outcomes {
		fmt.Fprintf(&sb, "  %-10s %d\n", strings.ToUpper(o.String())+":", summary.Count(o))
	}
	sb.WriteString("\n")

	for _, r := range summary.Results {
		if w.failuresOnly && r.Outcome != pipeline.OutcomeFailed {
			continue
		}
		fmt.Fprintf(&sb, "[%s] %s %s\n", r.Outcome, r.ServerUUID, r.URI)
		if r.Error != "" {
			fmt.Fprintf(&sb, "    error: %s\n", r.Error)
			continue
		}
		if tested(r.Outcome) {
			fmt.Fprintf(&sb, "    live=%t country=%s info_page=%t\n", r.Live, orDash(r.Country), r.InfoPageAvailable)
		}
	}

	return io.WriteString(w.output, sb.String())
}

var outcomes = []pipeline.Outcome{
	pipeline.OutcomeRecorded,
	pipeline.OutcomeDryRun,
	pipeline.OutcomeDeleted,
	pipeline.OutcomeOfficial,
	pipeline.OutcomeFailed,
}

// tested reports whether the checks ran for a server with this outcome.
func tested(o pipeline.Outcome) bool {
	return o == pipeline.OutcomeRecorded || o == pipeline.OutcomeDryRun
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
