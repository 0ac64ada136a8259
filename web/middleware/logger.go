// Package middleware holds http.Handler wrappers used by the playground server.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/oteto/gonkey-playground/internal/helpers"
)

// RootPath is the only path RequestLogger records.
const RootPath = "/"

// RequestLogger logs the caller's address for requests to the root path and
// forwards every request to next unchanged.
func RequestLogger(handler slog.Handler, next http.Handler) http.Handler {
	_, logger := helpers.SetupLogger(handler, "middleware", "RequestLogger")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == RootPath {
			logger.InfoContext(r.Context(), "page request", "remoteAddr", r.RemoteAddr)
		}
		next.ServeHTTP(w, r)
	})
}
