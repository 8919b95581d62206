// Package retry provides a bounded retry combinator for probes that answer
// with a yes/no outcome.
package retry
