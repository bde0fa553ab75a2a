package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	dErrors "creditgate/pkg/domain-errors"
	"creditgate/pkg/platform/httputil"
)

// RequireAdmin guards the support endpoints with a static API key. The
// deployed configuration carries only the bcrypt hash; with no hash
// configured the admin surface is disabled entirely.
func RequireAdmin(apiKeyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKeyHash == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin surface is disabled"))
				return
			}
			key := r.Header.Get("X-API-Key")
			if key == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing API key"))
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(apiKeyHash), []byte(key)); err != nil {
				if logger != nil {
					logger.WarnContext(r.Context(), "rejected admin API key")
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
