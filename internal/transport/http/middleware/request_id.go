package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"policedir/internal/requestctx"
)

// maxRequestIDLen bounds client-supplied ids so a hostile device cannot
// bloat log lines.
const maxRequestIDLen = 64

// RequestID keeps the device-supplied X-Request-ID when it is short and
// printable, so the app's local logs line up with server logs, and mints a
// fresh id otherwise.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := sanitizeRequestID(r.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestctx.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sanitizeRequestID(id string) string {
	if id == "" || len(id) > maxRequestIDLen {
		return ""
	}
	for _, c := range id {
		if c <= ' ' || c > '~' {
			return ""
		}
	}
	return id
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
