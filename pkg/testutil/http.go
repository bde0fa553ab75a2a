// Package testutil provides common test utilities for handler and
// integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	id "creditgate/pkg/domain"
	"creditgate/pkg/requestcontext"
)

// NewJSONRequest creates an HTTP request with a JSON body.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AsUser attaches an authenticated user identity to the request context,
// simulating the auth middleware.
func AsUser(t *testing.T, req *http.Request, userID string) *http.Request {
	t.Helper()
	parsed, err := id.ParseUserID(userID)
	require.NoError(t, err, "invalid user id in test")
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// AsDevice attaches a guest device identity to the request context,
// simulating the device middleware.
func AsDevice(req *http.Request, deviceID string) *http.Request {
	return req.WithContext(requestcontext.WithDeviceID(req.Context(), id.DeviceID(deviceID)))
}

// AtTime pins the request-scoped clock, simulating the requesttime middleware
// with a controlled timestamp.
func AtTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// DecodeJSON decodes a recorded response body into dst.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}
