package logger

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var log zerolog.Logger

func init() {
	log = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Init configures the global logger with the service name and level.
// Unknown levels fall back to info.
func Init(service, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log = zerolog.New(os.Stderr).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// L returns the global logger.
func L() *zerolog.Logger { return &log }

// Ctx returns a logger enriched with the trace and span IDs of the active
// span, so log lines can be correlated with traces.
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return &log
	}
	l := log.With().
		Str("trace_id", spanCtx.TraceID().String()).
		Str("span_id", spanCtx.SpanID().String()).
		Logger()
	return &l
}
