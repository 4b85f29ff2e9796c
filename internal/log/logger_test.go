package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONFormatIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: "report", Format: "json", Output: &buf})
	l.Info("built", FieldRows, 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != "report" {
		t.Fatalf("component = %v", rec[FieldComponent])
	}
	if rec[FieldRows] != float64(3) {
		t.Fatalf("rows = %v", rec[FieldRows])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Output: &buf})
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %s", buf.String())
	}
}

func TestWithComponentDoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf}).WithComponent("quotes")
	l.Warn("slow")
	if n := strings.Count(buf.String(), "component="); n != 1 {
		t.Fatalf("component appears %d times: %s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "component=quotes") {
		t.Fatalf("missing component: %s", buf.String())
	}
}

func TestOpenAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("previous\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout bytes.Buffer
	l, err := Open(Config{File: path, Output: &stdout})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l.With("k", "v").Info("hello")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "previous\n") {
		t.Fatalf("file truncated: %q", data)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(stdout.String(), "hello") {
		t.Fatalf("record missing: file=%q stdout=%q", data, stdout.String())
	}
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(Config{File: filepath.Join(t.TempDir(), "missing", "app.log")})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCloseWithoutFile(t *testing.T) {
	if err := NewNop().Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestLogFieldsToSliceSorted(t *testing.T) {
	got := NewFields().WithOperation("home").WithError(errors.New("boom")).WithComponent("x").ToSlice()
	want := []any{FieldComponent, "x", FieldError, "boom", FieldOperation, "home"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf}).With(FieldRequestID, "rid-1")
	ctx := NewContext(context.Background(), base)

	FromContext(ctx).InfoContext(ctx, "inside")
	if !strings.Contains(buf.String(), "request_id=rid-1") {
		t.Fatalf("request id not propagated: %s", buf.String())
	}

	if l := FromContext(context.Background()); l == nil || l.Component() != ComponentApp {
		t.Fatalf("unexpected fallback logger: %+v", l)
	}
}

func TestHTTPEndLevel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{503, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Output: &buf}))
		req := httptest.NewRequest(http.MethodGet, "/api/home?datetime=x", nil)
		sl.LogHTTPEnd(context.Background(), req, tt.code, 12, "192.0.2.1")
		out := buf.String()
		if !strings.Contains(out, tt.want) || !strings.Contains(out, "status_code=") {
			t.Errorf("status %d: got %s", tt.code, out)
		}
	}
}
