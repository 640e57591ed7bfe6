package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestComponentAppearsOnce(t *testing.T) {
	var buf bytes.Buffer
	l := NewText(&buf, slog.LevelDebug, ComponentApp).WithComponent(ComponentLedger)
	l.InfoContext(context.Background(), "hello", FieldEntryID, "42")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=ledger") {
		t.Errorf("unexpected component attrs: %s", out)
	}
	if !strings.Contains(out, "entry_id=42") {
		t.Errorf("missing entry id: %s", out)
	}
}

func TestLogEntryChanged(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(NewText(&buf, slog.LevelInfo, ComponentHTTP))
	sl.LogEntryChanged(context.Background(), OpPayment, "1", "Long Term Payables", 500)

	out := buf.String()
	for _, want := range []string{"operation=payment", "entry_id=1", "amount_cents=500", `category="Long Term Payables"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestDiscardIsSilent(t *testing.T) {
	Discard().Error("nothing to see")
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	base := NewText(&buf, slog.LevelInfo, ComponentHTTP)

	tests := []struct {
		name   string
		id     string
		wantID bool
	}{
		{"with id", "req_1", true},
		{"without id", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return tt.id })(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					FromContext(r.Context()).InfoContext(r.Context(), "inside")
				})))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			out := buf.String()
			if !strings.Contains(out, "component=http") {
				t.Errorf("context logger not used: %s", out)
			}
			if got := strings.Contains(out, FieldRequestID+"="); got != tt.wantID {
				t.Errorf("request id present = %v, want %v: %s", got, tt.wantID, out)
			}
		})
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("FromContext() = %+v", l)
	}
}
