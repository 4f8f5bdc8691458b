package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// logLevel is shared by every handler InitLogger builds, so SetLogLevel
// takes effect without rebuilding the logger.
var logLevel = new(slog.LevelVar)

// InitLogger initializes the application logger based on configuration
func InitLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	logLevel.Set(parseLogLevel(cfg.Level))

	var writer io.Writer = os.Stderr
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		writer = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	default:
		// Only color console output, never files
		if cfg.Color && cfg.File == "" {
			handler = NewColoredTextHandler(writer, handlerOpts)
		} else {
			handler = slog.NewTextHandler(writer, handlerOpts)
		}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// SetLogLevel changes the level of the logger built by InitLogger
func SetLogLevel(level string) {
	logLevel.Set(parseLogLevel(level))
}

// ColoredTextHandler wraps slog.TextHandler to color the level for console output
type ColoredTextHandler struct {
	handler slog.Handler
	buf     *strings.Builder
	mu      *sync.Mutex
	writer  io.Writer
}

// NewColoredTextHandler creates a new handler that adds colors for console output
func NewColoredTextHandler(w io.Writer, opts *slog.HandlerOptions) *ColoredTextHandler {
	buf := &strings.Builder{}
	return &ColoredTextHandler{
		handler: slog.NewTextHandler(buf, opts),
		buf:     buf,
		mu:      &sync.Mutex{},
		writer:  w,
	}
}

// Handle implements slog.Handler interface
func (h *ColoredTextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.handler.Handle(ctx, r); err != nil {
		return err
	}

	_, err := io.WriteString(h.writer, colorize(h.buf.String(), r.Level))
	return err
}

// WithAttrs implements slog.Handler interface
func (h *ColoredTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColoredTextHandler{
		handler: h.handler.WithAttrs(attrs),
		buf:     h.buf,
		mu:      h.mu,
		writer:  h.writer,
	}
}

// WithGroup implements slog.Handler interface
func (h *ColoredTextHandler) WithGroup(name string) slog.Handler {
	return &ColoredTextHandler{
		handler: h.handler.WithGroup(name),
		buf:     h.buf,
		mu:      h.mu,
		writer:  h.writer,
	}
}

// Enabled implements slog.Handler interface
func (h *ColoredTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// colorize wraps the first field of the line (the timestamp) in the level's color
func colorize(line string, level slog.Level) string {
	var code string
	switch {
	case level >= slog.LevelError:
		code = "31" // red
	case level >= slog.LevelWarn:
		code = "33" // yellow
	case level >= slog.LevelInfo:
		code = "32" // green
	default:
		code = "90" // gray
	}

	first, rest, found := strings.Cut(line, " ")
	if !found {
		return fmt.Sprintf("\033[%sm%s\033[0m", code, line)
	}
	return fmt.Sprintf("\033[%sm%s\033[0m %s", code, first, rest)
}

// parseLogLevel parses a log level string
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
