package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/registry-validator/internal/pipeline"
)

// JSONWriter writes the summary as one JSON document.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Counts holds the per-outcome totals of a run.
type Counts struct {
	Recorded int `json:"recorded"`
	DryRun   int `json:"dry_run"`
	Deleted  int `json:"deleted"`
	Official int `json:"official"`
	Failed   int `json:"failed"`
	Live     int `json:"live"`
}

// Document is the JSON layout of a run.
type Document struct {
	*pipeline.Summary

	DurationMS int64  `json:"duration_ms"`
	Counts     Counts `json:"counts"`
}

// NewDocument computes the derived fields of summary.
func NewDocument(summary *pipeline.Summary) *Document {
	return &Document{
		Summary:    summary,
		DurationMS: summary.Duration().Milliseconds(),
		Counts: Counts{
			Recorded: summary.Count(pipeline.OutcomeRecorded),
			DryRun:   summary.Count(pipeline.OutcomeDryRun),
			Deleted:  summary.Count(pipeline.OutcomeDeleted),
			Official: summary.Count(pipeline.OutcomeOfficial),
			Failed:   summary.Count(pipeline.OutcomeFailed),
			Live:     summary.LiveCount(),
		},
	}
}

// Write implements Writer.
func (w *JSONWriter) Write(summary *pipeline.Summary) (int, error) {
	var (
		data []byte
		err  error
	)
	doc := NewDocument(summary)
	if w.indent {
		data, err = json.MarshalIndent(doc, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
