// Package logtrace configures the process-wide zerolog logger and carries
// per-operation trace identifiers through contexts.
package logtrace

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger. An unknown level falls back to info.
// With console set, output is human readable; otherwise it is JSON with Unix timestamps.
func InitLogger(level string, console bool) {
	initLogger(os.Stderr, level, console)
}

func initLogger(w io.Writer, level string, console bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

type traceKey struct{}

// WithTrace returns a context carrying a fresh trace ID, and the ID itself.
func WithTrace(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(ctx, traceKey{}, id), id
}

// TraceFromContext returns the trace ID stored by WithTrace, or "".
func TraceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Ctx returns the global logger enriched with the context's trace ID.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if id := TraceFromContext(ctx); id != "" {
		l = l.With().Str("trace_id", id).Logger()
	}
	return &l
}
