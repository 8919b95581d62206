package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nao1215/registry-validator/internal/pipeline"
)

// ErrUnknownFormat is returned for a report format we cannot write.
var ErrUnknownFormat = errors.New("unknown report format")

// Format names an output format.
type Format string

const (
	// FormatText is the plain text summary.
	FormatText Format = "text"
	// FormatJSON is the JSON document.
	FormatJSON Format = "json"
	// FormatMarkdown is the Markdown document.
	FormatMarkdown Format = "markdown"
)

// Writer writes a run summary.
type Writer interface {
	// Write returns the number of bytes written.
	Write(summary *pipeline.Summary) (int, error)
}

// MultiWriter writes the same summary to several Writers, stopping at the
// first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(summary *pipeline.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// FormatFromPath picks the format from a file extension.
// Unknown extensions fall back to text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatText
	}
}

// New returns the Writer for format.
func New(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatText:
		return NewTextWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
