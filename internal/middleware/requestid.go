// Package middleware provides HTTP middleware for the AgentForge control
// API that is independent of the router.
package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Strob0t/AgentForge/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID tags every control API request with an id: the caller's
// X-Request-ID when present (the dashboard sends one per action), a fresh
// one otherwise. The id lands in the request context for log correlation
// and is echoed on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = newRequestID()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newRequestID returns a uuid without separators, 32 hex chars.
func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
