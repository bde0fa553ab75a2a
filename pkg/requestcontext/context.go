// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by transport middleware and consumed by services. Keeping
// this package free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	userID := requestcontext.UserID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithDeviceID(ctx, "device-token")
package requestcontext

import (
	"context"
	"time"

	id "creditgate/pkg/domain"
	dErrors "creditgate/pkg/domain-errors"
)

// Context key types (unexported for encapsulation).
type (
	userIDKey      struct{}
	deviceIDKey    struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value (nil UUID) if not set, meaning a guest request.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// DeviceID retrieves the device identifier from the context.
func DeviceID(ctx context.Context) id.DeviceID {
	if deviceID, ok := ctx.Value(deviceIDKey{}).(id.DeviceID); ok {
		return deviceID
	}
	return ""
}

// WithDeviceID injects a device identifier into a context.
// Useful for service unit tests that don't run the full middleware chain.
func WithDeviceID(ctx context.Context, deviceID id.DeviceID) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, deviceID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	return ctx
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests that
// don't care about time).
//
// All window arithmetic in the rate limiter and all period boundaries in the
// credit ledger read time through this accessor, so tests advance a simulated
// clock by re-injecting a later value.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Subject resolves the policy subject for the request: the authenticated
// user when one is present, otherwise the anonymous device. Errors when the
// middleware chain established neither identity.
func Subject(ctx context.Context) (id.Subject, error) {
	if userID := UserID(ctx); !userID.IsNil() {
		return id.UserSubject(userID)
	}
	if deviceID := DeviceID(ctx); deviceID != "" {
		return id.GuestSubject(deviceID)
	}
	return id.Subject{}, dErrors.New(dErrors.CodeUnauthorized, "no caller identity on request")
}
