package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/swfrench/ewt/internal/logging"
	"golang.org/x/exp/slog"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
	}
	for _, tc := range testCases {
		got, err := logging.ParseLevel(tc.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) returned unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := logging.ParseLevel("loud"); !errors.Is(err, logging.ErrUnknownSetting) {
		t.Errorf("ParseLevel() returned incorrect error - got: %v want: %v", err, logging.ErrUnknownSetting)
	}
}

func TestNewInvalid(t *testing.T) {
	for _, opts := range []logging.Options{{Level: "loud"}, {Format: "xml"}} {
		if _, err := logging.New(opts); !errors.Is(err, logging.ErrUnknownSetting) {
			t.Errorf("New(%+v) returned incorrect error - got: %v want: %v", opts, err, logging.ErrUnknownSetting)
		}
	}
}

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := logging.New(logging.Options{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}
	l.Info("quiet")
	l.Warn("loud")
	if got := buf.String(); strings.Contains(got, "quiet") || !strings.Contains(got, "loud") {
		t.Errorf("Logger did not respect level, output: %q", got)
	}
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	l, err := logging.New(logging.Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}
	l.Info("decoded",
		"secret", "hunter2",
		"Token", "eyJh",
		"reason", "authentication",
		slog.Group("request", "csrf_token", "abc", "path", "/"),
		slog.Group("session_token", "raw", "eyJi"))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() of log record returned unexpected error: %v", err)
	}
	if got["secret"] != logging.Redacted {
		t.Errorf("secret attribute not redacted: %v", got["secret"])
	}
	if got["Token"] != logging.Redacted {
		t.Errorf("Token attribute not redacted: %v", got["Token"])
	}
	if got["reason"] != "authentication" {
		t.Errorf("reason attribute unexpectedly changed: %v", got["reason"])
	}
	req, ok := got["request"].(map[string]any)
	if !ok {
		t.Fatalf("request group missing from log record: %v", got)
	}
	if req["csrf_token"] != logging.Redacted {
		t.Errorf("request.csrf_token attribute not redacted: %v", req["csrf_token"])
	}
	if req["path"] != "/" {
		t.Errorf("request.path attribute unexpectedly changed: %v", req["path"])
	}
	st, ok := got["session_token"].(map[string]any)
	if !ok {
		t.Fatalf("session_token group missing from log record: %v", got)
	}
	if st["raw"] != logging.Redacted {
		t.Errorf("session_token.raw attribute not redacted: %v", st["raw"])
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Errorf("Log output contains secret value: %q", buf.String())
	}
}
