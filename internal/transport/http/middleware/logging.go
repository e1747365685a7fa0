package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// StatusRecorder receives one observation per served request.
type StatusRecorder interface {
	Record(status int, duration time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func Logger(metrics StatusRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			elapsed := time.Since(start)

			if metrics != nil {
				metrics.Record(recorder.status, elapsed)
			}

			logger := zerolog.Ctx(r.Context())
			event := logger.Info()
			if recorder.status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			if user, ok := GetUser(r.Context()); ok {
				event = event.Str("employee", user.EmployeeCode)
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", recorder.status).
				Int64("duration_ms", elapsed.Milliseconds()).
				Msg("request")
		})
	}
}
