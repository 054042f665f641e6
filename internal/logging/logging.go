// Package logging builds slog loggers for the ewt command. Attributes whose
// keys suggest secret material are redacted before they reach the handler.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slog"
)

// Redacted replaces the value of sensitive attributes.
const Redacted = "[REDACTED]"

// ErrUnknownSetting indicates an unrecognized level or format name.
var ErrUnknownSetting = errors.New("unknown logging setting")

// Format selects the handler used by New.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var sensitiveKeys = []string{
	"secret",
	"token",
	"key",
	"password",
	"csrf",
	"payload",
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("level %q: %w", s, ErrUnknownSetting)
}

// ParseFormat parses a case-insensitive format name ("text" or "json").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("format %q: %w", s, ErrUnknownSetting)
}

// Options configures New.
type Options struct {
	// Level is the minimum level logged.
	// Default if unspecified: "info"
	Level string
	// Format is "text" or "json".
	// Default if unspecified: "text"
	Format string
	// Output receives log records.
	// Default if unspecified: os.Stderr
	Output io.Writer
}

// New returns a logger configured by opts.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: redact,
	}
	var h slog.Handler
	switch format {
	case FormatJSON:
		h = slog.NewJSONHandler(out, hopts)
	default:
		h = slog.NewTextHandler(out, hopts)
	}
	return slog.New(h), nil
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// redact is called once per leaf attribute, with the names of its enclosing
// groups. A sensitive group name redacts every attribute inside it.
func redact(groups []string, a slog.Attr) slog.Attr {
	if isSensitive(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	for _, g := range groups {
		if isSensitive(g) {
			return slog.String(a.Key, Redacted)
		}
	}
	return a
}
