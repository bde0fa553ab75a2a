package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "creditgate/pkg/domain"
	dErrors "creditgate/pkg/domain-errors"
	"creditgate/pkg/platform/httputil"
	"creditgate/pkg/requestcontext"
)

// Auth resolves the caller's user identity from a Bearer token when one is
// presented. Requests without a token pass through as guests; invalid tokens
// are rejected outright rather than silently downgraded.
func Auth(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := parseUserToken(token, signingKey)
			if err != nil {
				ctx := r.Context()
				if logger != nil {
					logger.WarnContext(ctx, "rejected invalid bearer token", "error", err)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(r.Context(), userID)))
		})
	}
}

// RequireUser rejects requests that did not authenticate as a user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.UserID(r.Context()).IsNil() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseUserToken(token string, signingKey []byte) (id.UserID, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return id.UserID{}, err
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return id.UserID{}, fmt.Errorf("token subject: %w", err)
	}
	return id.ParseUserID(subject)
}
