// Package middleware holds the HTTP middleware chain: request metadata,
// caller identity, and the admin surface guard.
package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"creditgate/pkg/requestcontext"
)

// RequestMeta stamps every request with an ID, the arrival time, and client
// metadata. The pinned time is what all window and period arithmetic uses, so
// one request sees one consistent clock.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		ctx = requestcontext.WithClientMetadata(ctx, clientIP(r), describeAgent(r.UserAgent()))

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// describeAgent condenses the raw User-Agent into the browser/OS summary the
// audit trail records.
func describeAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString("/")
		b.WriteString(version)
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" (")
		b.WriteString(os)
		b.WriteString(")")
	}
	if ua.Bot() {
		b.WriteString(" [bot]")
	}
	return b.String()
}
