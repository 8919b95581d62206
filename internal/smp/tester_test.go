package smp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// relay is an in-process validation relay.
type relay struct {
	url         string
	connections atomic.Int32

	mu       sync.Mutex
	commands []Command
}

func (r *relay) received() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// newRelay starts a relay that reads one command per connection and hands
// the connection to handle. n is the 1-based connection number.
func newRelay(t *testing.T, handle func(conn *websocket.Conn, cmd Command, n int)) *relay {
	t.Helper()

	r := &relay{}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := int(r.connections.Add(1))

		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		r.mu.Lock()
		r.commands = append(r.commands, cmd)
		r.mu.Unlock()

		handle(conn, cmd, n)
	}))
	t.Cleanup(srv.Close)

	r.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return r
}

func writeReply(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Errorf("write reply: %v", err)
	}
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
}

func result(corrID string, failure any) map[string]any {
	resp := map[string]any{"type": ResultType}
	if failure != nil {
		resp["testFailure"] = failure
	}
	return map[string]any{"corrId": corrID, "resp": resp}
}

func newTestTester(t *testing.T, endpoint string, opts ...Option) *Tester {
	t.Helper()
	tester, err := NewTester(endpoint, opts...)
	if err != nil {
		t.Fatalf("NewTester() error: %v", err)
	}
	return tester
}

// TestNewTester tests relay endpoint validation.
func TestNewTester(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		wantErr  bool
	}{
		{name: "ws", endpoint: "ws://localhost:5225"},
		{name: "wss", endpoint: "wss://relay.example.com/api"},
		{name: "http scheme", endpoint: "http://localhost:5225", wantErr: true},
		{name: "no host", endpoint: "ws://", wantErr: true},
		{name: "empty", endpoint: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tester, err := NewTester(tt.endpoint)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEndpoint) {
					t.Errorf("expected ErrInvalidEndpoint, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tester.Endpoint() != tt.endpoint {
				t.Errorf("expected endpoint %q, got %q", tt.endpoint, tester.Endpoint())
			}
		})
	}
}

// TestTesterTest tests a single probe exchange.
func TestTesterTest(t *testing.T) {
	t.Parallel()

	t.Run("matching success after noise", func(t *testing.T) {
		t.Parallel()

		r := newRelay(t, func(conn *websocket.Conn, cmd Command, _ int) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
			writeReply(t, conn, result("someone-else", nil))
			writeReply(t, conn, map[string]any{"corrId": cmd.CorrID, "resp": map[string]any{"type": "cmdOk"}})
			writeReply(t, conn, result(cmd.CorrID, nil))
		})

		ok, err := newTestTester(t, r.url).Test(context.Background(), "  smp://k1@example.com:5223 ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Error("expected success")
		}

		cmds := r.received()
		if len(cmds) != 1 {
			t.Fatalf("expected 1 command, got %d", len(cmds))
		}
		if cmds[0].Cmd != "/_server test 1 smp://k1@example.com:5223" {
			t.Errorf("unexpected command %q", cmds[0].Cmd)
		}
		if cmds[0].CorrID == "" {
			t.Error("expected a correlation id")
		}
	})

	t.Run("explicit null failure is success", func(t *testing.T) {
		t.Parallel()

		r := newRelay(t, func(conn *websocket.Conn, cmd Command, _ int) {
			_ = conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"corrId":"`+cmd.CorrID+`","resp":{"type":"serverTestResult","testFailure":null}}`))
		})

		ok, err := newTestTester(t, r.url).Test(context.Background(), "smp://k1@example.com")
		if err != nil || !ok {
			t.Errorf("expected success, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("test failure", func(t *testing.T) {
		t.Parallel()

		r := newRelay(t, func(conn *websocket.Conn, cmd Command, _ int) {
			writeReply(t, conn, result(cmd.CorrID, map[string]any{"testStep": "connect"}))
		})

		ok, err := newTestTester(t, r.url).Test(context.Background(), "smp://k1@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected failure")
		}
	})

	t.Run("relay closes without reply", func(t *testing.T) {
		t.Parallel()

		r := newRelay(t, func(conn *websocket.Conn, _ Command, _ int) {
			writeReply(t, conn, result("someone-else", nil))
			closeNormally(conn)
		})

		ok, err := newTestTester(t, r.url).Test(context.Background(), "smp://k1@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected failure")
		}
	})

	t.Run("relay unreachable", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
		srv.Close()

		_, err := newTestTester(t, endpoint).Test(context.Background(), "smp://k1@example.com")
		if !errors.Is(err, ErrConnectionFailed) {
			t.Errorf("expected ErrConnectionFailed, got %v", err)
		}
	})

	t.Run("handshake rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)
		endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")

		_, err := newTestTester(t, endpoint).Test(context.Background(), "smp://k1@example.com")
		if !errors.Is(err, ErrConnectionFailed) {
			t.Errorf("expected ErrConnectionFailed, got %v", err)
		}
	})

	t.Run("attempt timeout", func(t *testing.T) {
		t.Parallel()

		r := newRelay(t, func(conn *websocket.Conn, _ Command, _ int) {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		})

		tester := newTestTester(t, r.url, WithAttemptTimeout(50*time.Millisecond))
		ok, err := tester.Test(context.Background(), "smp://k1@example.com")
		if ok {
			t.Error("expected failure")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("fresh correlation id per call", func(t *testing.T) {
		t.Parallel()

		r := newRelay(t, func(conn *websocket.Conn, cmd Command, _ int) {
			writeReply(t, conn, result(cmd.CorrID, nil))
		})
		tester := newTestTester(t, r.url)

		for range 2 {
			if _, err := tester.Test(context.Background(), "smp://k1@example.com"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		cmds := r.received()
		if len(cmds) != 2 {
			t.Fatalf("expected 2 commands, got %d", len(cmds))
		}
		if cmds[0].CorrID == cmds[1].CorrID {
			t.Errorf("expected distinct correlation ids, got %q twice", cmds[0].CorrID)
		}
	})
}

// TestTesterProbe tests the bounded retry around Test.
func TestTesterProbe(t *testing.T) {
	t.Parallel()

	t.Run("stops at first success", func(t *testing.T) {
		t.Parallel()

		r := newRelay(t, func(conn *websocket.Conn, cmd Command, n int) {
			if n < 2 {
				closeNormally(conn)
				return
			}
			writeReply(t, conn, result(cmd.CorrID, nil))
		})

		ok, err := newTestTester(t, r.url, WithAttempts(3)).Probe(context.Background(), "smp://k1@example.com")
		if err != nil || !ok {
			t.Fatalf("expected success, got ok=%v err=%v", ok, err)
		}
		if got := r.connections.Load(); got != 2 {
			t.Errorf("expected 2 connections, got %d", got)
		}
	})

	t.Run("never more than the attempt budget", func(t *testing.T) {
		t.Parallel()

		r := newRelay(t, func(conn *websocket.Conn, cmd Command, _ int) {
			writeReply(t, conn, result(cmd.CorrID, "unreachable"))
		})

		ok, err := newTestTester(t, r.url, WithAttempts(3)).Probe(context.Background(), "smp://k1@example.com")
		if err != nil {
			t.Fatalf("exhaustion must not be an error, got %v", err)
		}
		if ok {
			t.Error("expected failure")
		}
		if got := r.connections.Load(); got != 3 {
			t.Errorf("expected 3 connections, got %d", got)
		}
	})

	t.Run("connection errors are absorbed", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)
		endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")

		ok, err := newTestTester(t, endpoint, WithAttempts(2)).Probe(context.Background(), "smp://k1@example.com")
		if err != nil || ok {
			t.Errorf("expected (false, nil), got ok=%v err=%v", ok, err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		r := newRelay(t, func(conn *websocket.Conn, cmd Command, _ int) {
			writeReply(t, conn, result(cmd.CorrID, nil))
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ok, err := newTestTester(t, r.url).Probe(ctx, "smp://k1@example.com")
		if ok {
			t.Error("expected failure")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestReplyPassed tests interpretation of the testFailure field.
func TestReplyPassed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "absent", raw: `{"corrId":"1","resp":{"type":"serverTestResult"}}`, want: true},
		{name: "null", raw: `{"corrId":"1","resp":{"type":"serverTestResult","testFailure":null}}`, want: true},
		{name: "object", raw: `{"corrId":"1","resp":{"type":"serverTestResult","testFailure":{"testStep":"tsConnect"}}}`, want: false},
		{name: "string", raw: `{"corrId":"1","resp":{"type":"serverTestResult","testFailure":"x"}}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var r Reply
			if err := json.Unmarshal([]byte(tt.raw), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !r.IsTestResult() {
				t.Error("expected a test result")
			}
			if got := r.Passed(); got != tt.want {
				t.Errorf("Passed() = %v, want %v", got, tt.want)
			}
		})
	}
}
