// Package report renders the summary of a validation run.
//
// Three formats are available: a plain text summary for the terminal,
// JSON for other tools, and Markdown for sharing. All of them implement
// Writer so they can be combined with MultiWriter.
package report
