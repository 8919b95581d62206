package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/registry-validator/internal/pipeline"
)

// MarkdownWriter writes the summary as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(summary *pipeline.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeOutcomes(md, summary)
	w.writeServers(md, summary)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *pipeline.Summary) {
	md.H1("Registry Validation Report")
	md.PlainText("")

	mode := "live"
	if summary.DryRun {
		mode = "dry run"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.StartedAt.Format(timeLayout)},
			{"Duration", summary.Duration().Round(time.Millisecond).String()},
			{"Mode", mode},
			{"Servers", strconv.Itoa(summary.Total)},
			{"Processed", strconv.Itoa(len(summary.Results))},
			{"Live", strconv.Itoa(summary.LiveCount())},
		},
	})
	md.PlainText("")

	if summary.DryRun {
		md.Note("Dry run: no status was recorded and no server was deleted.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, summary *pipeline.Summary) {
	md.H2("Outcomes")
	md.PlainText("")

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{o.String(), strconv.Itoa(summary.Count(o))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Servers"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(summary.Results) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Outcome Distribution"),
			piechart.WithShowData(true),
		)
		for _, o := range outcomes {
			if n := summary.Count(o); n > 0 {
				chart.LabelAndIntValue(o.String(), uint64(n))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if failed := summary.Count(pipeline.OutcomeFailed); failed > 0 {
		md.Warningf("%d server(s) could not be validated.", failed)
	} else {
		md.Tip("Every server was processed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeServers(md *markdown.Markdown, summary *pipeline.Summary) {
	md.H2("Servers")
	md.PlainText("")

	if len(summary.Results) == 0 {
		md.PlainText("No servers were processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.Results))
	for _, r := range summary.Results {
		live, info := "-", "-"
		if tested(r.Outcome) {
			live = yesNo(r.Live)
			info = yesNo(r.InfoPageAvailable)
		}
		rows = append(rows, []string{
			"`" + r.ServerUUID + "`",
			r.Protocol.String(),
			r.Outcome.String(),
			live,
			orDash(r.Country),
			info,
			orDash(r.Error),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Server", "Protocol", "Outcome", "Live", "Country", "Info Page", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
