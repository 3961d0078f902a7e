// Package logging configures the slog handlers used by rdr.
//
// Every run logs to stderr and, when a log directory is given, to a
// timestamped file. Two extra levels mirror the engine's log files:
// CONFIG for resolved settings and RESULT for produced artifacts.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Custom levels between the standard ones.
const (
	LevelConfig = slog.LevelInfo - 2
	LevelResult = slog.LevelInfo + 2
)

// ParseLevel converts a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "config":
		return LevelConfig, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "result":
		return LevelResult, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// LevelName renders custom levels by name.
func LevelName(l slog.Level) string {
	switch l {
	case LevelConfig:
		return "CONFIG"
	case LevelResult:
		return "RESULT"
	}
	return l.String()
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(l))
		}
	}
	return a
}

// Options configures New.
type Options struct {
	Level  slog.Level
	Format string // text or json
	LogDir string
	Name   string // log file prefix
	Now    func() time.Time
}

// Logger is a configured logger with its open log file.
type Logger struct {
	*slog.Logger
	File string
	file *os.File
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// New creates a logger writing to w and, when LogDir is set, to a log file
// named <Name>_<timestamp>.log. The file always records from LevelConfig up.
func New(w io.Writer, opts Options) (*Logger, error) {
	consoleLevel := opts.Level
	handlers := []slog.Handler{newHandler(w, opts.Format, consoleLevel)}

	out := &Logger{}
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		name := opts.Name
		if name == "" {
			name = "rdr"
		}
		out.File = filepath.Join(opts.LogDir, fmt.Sprintf("%s_%s.log", name, now().Format("2006_01_02_15h_04m_05s")))
		f, err := os.Create(out.File)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		out.file = f
		handlers = append(handlers, newHandler(f, "text", min(consoleLevel, LevelConfig)))
	}

	out.Logger = slog.New(Tee(handlers...))
	return out, nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Tee returns a handler that forwards records to every handler enabled for them.
func Tee(handlers ...slog.Handler) slog.Handler {
	return teeHandler(handlers)
}

type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
