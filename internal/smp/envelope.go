package smp

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ResultType is the response type the relay uses for a finished server test.
const ResultType = "serverTestResult"

// Command is the outbound envelope.
type Command struct {
	CorrID string `json:"corrId"`
	Cmd    string `json:"cmd"`
}

// Reply is an inbound envelope. Only the fields the probe needs are decoded.
type Reply struct {
	CorrID string   `json:"corrId"`
	Resp   Response `json:"resp"`
}

// Response is the body of a Reply.
type Response struct {
	Type string `json:"type"`

	// TestFailure describes why the test failed. Absent or null on success.
	TestFailure json.RawMessage `json:"testFailure,omitempty"`
}

// TestCommand builds the relay command testing the given server address.
func TestCommand(uri string) string {
	return "/_server test 1 " + strings.TrimSpace(uri)
}

// IsTestResult reports whether the reply is a finished server test.
func (r Reply) IsTestResult() bool {
	return r.Resp.Type == ResultType
}

// Passed reports whether the test result carries no failure.
func (r Reply) Passed() bool {
	failure := bytes.TrimSpace(r.Resp.TestFailure)
	return len(failure) == 0 || bytes.Equal(failure, []byte("null"))
}
