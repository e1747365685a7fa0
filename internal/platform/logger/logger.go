package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Setup configures the global zerolog logger.
func Setup(pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// WithRequest returns a context carrying a logger tagged with the request id
// and, when a span is recording, its trace and span ids.
func WithRequest(ctx context.Context, requestID string) context.Context {
	lc := log.With()
	if requestID != "" {
		lc = lc.Str("request_id", requestID)
	}

	span := trace.SpanFromContext(ctx)
	if sc := span.SpanContext(); span.IsRecording() && sc.HasTraceID() {
		lc = lc.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
	}

	l := lc.Logger()
	return l.WithContext(ctx)
}
