package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"hrflow/internal/platform/logger"
	"hrflow/internal/requestctx"
)

// RequestID assigns the request id, records the client address and hangs a
// request-scoped zerolog logger on the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestctx.WithRequestID(r.Context(), reqID)
		ctx = requestctx.WithClientIP(ctx, clientIP(r))
		ctx = logger.WithRequest(ctx, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
