// Package main is the entry point for the anchor simulator.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stacklok/spatial-anchors/cmd/anchor-sim/app"
	"github.com/stacklok/spatial-anchors/internal/config"
)

// logSettings reads ANCHORS_LOG_LEVEL and ANCHORS_LOG_FORMAT, falling back to
// LOG_LEVEL and LOG_FORMAT
func logSettings() (slog.Level, string) {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("log_level", os.Getenv("LOG_LEVEL"))
	v.SetDefault("log_format", os.Getenv("LOG_FORMAT"))

	level := slog.LevelInfo
	if s := v.GetString("log_level"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			slog.Warn("Invalid log level, using INFO", "value", s)
			level = slog.LevelInfo
		}
	}
	return level, strings.ToLower(v.GetString("log_format"))
}

// traceHandler wraps an slog.Handler to inject OpenTelemetry trace_id and
// span_id into every log record and to filter records below level
type traceHandler struct {
	slog.Handler
	level slog.Level
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.Handler.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}

// newBaseHandler returns the handler for format: "json" (default), "text", or
// "console" for a zap development logger bridged through logr
func newBaseHandler(level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "text":
		return slog.NewTextHandler(os.Stderr, opts)
	case "console":
		zapCfg := zap.NewDevelopmentConfig()
		// slog debug records reach zapr as V(4), which zap logs at level -4
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-4))
		zapCfg.OutputPaths = []string{"stderr"}
		if zapLogger, err := zapCfg.Build(); err == nil {
			return logr.ToSlogHandler(zapr.NewLogger(zapLogger))
		}
	}
	return slog.NewJSONHandler(os.Stderr, opts)
}

func main() {
	// Logs go to stderr to keep stdout clean for command output
	level, format := logSettings()
	slog.SetDefault(slog.New(&traceHandler{Handler: newBaseHandler(level, format), level: level}))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
