// Package test holds black-box smoke tests exercising the assembled router
// with in-memory backends, the same wiring main uses in dev mode.
package test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"creditgate/internal/checker"
	checkerhandler "creditgate/internal/checker/handler"
	creditshandler "creditgate/internal/credits/handler"
	"creditgate/internal/credits/service/guest"
	"creditgate/internal/credits/service/ledger"
	"creditgate/internal/credits/store/guestflag"
	roleStore "creditgate/internal/credits/store/role"
	subStore "creditgate/internal/credits/store/subscription"
	usageStore "creditgate/internal/credits/store/usage"
	"creditgate/internal/platform/kv"
	ratelimithandler "creditgate/internal/ratelimit/handler"
	ratelimit "creditgate/internal/ratelimit/service"
	"creditgate/internal/ratelimit/store/kvwindow"
	httptransport "creditgate/internal/transport/http"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	rates, err := ratelimit.New(kvwindow.New(kv.NewMemory()))
	require.NoError(t, err)
	guests, err := guest.New(guestflag.New(kv.NewMemory()))
	require.NoError(t, err)
	creditLedger, err := ledger.New(roleStore.NewMemory(), subStore.NewMemory(), usageStore.NewMemory())
	require.NoError(t, err)
	authorize, err := checker.New(rates, guests, creditLedger)
	require.NoError(t, err)

	router := httptransport.NewRouter(httptransport.Deps{
		Authorize:     checkerhandler.New(authorize, log),
		Credits:       creditshandler.New(guests, creditLedger, log),
		RateLimit:     ratelimithandler.New(rates, creditLedger, log),
		JWTSigningKey: []byte("test-signing-key"),
		Logger:        log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouterSmoke(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	t.Run("healthz answers", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics endpoint is mounted", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("guest authorize flow issues a device cookie", func(t *testing.T) {
		resp, err := client.Post(srv.URL+"/authorize", "application/json",
			jsonBody(t, map[string]any{"action": "document_generation"}))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var verdict struct {
			Allowed bool `json:"allowed"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&verdict))
		require.True(t, verdict.Allowed)

		var deviceCookie bool
		for _, c := range resp.Cookies() {
			if c.Name == "cg_device_id" {
				deviceCookie = true
			}
		}
		require.True(t, deviceCookie, "first request should set a device cookie")
	})

	t.Run("unknown action is a 4xx", func(t *testing.T) {
		resp, err := client.Post(srv.URL+"/authorize", "application/json",
			jsonBody(t, map[string]any{"action": "sculpture"}))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("admin surface is disabled without a key hash", func(t *testing.T) {
		resp, err := client.Post(srv.URL+"/admin/ratelimit/reset", "application/json",
			jsonBody(t, map[string]any{"subject": "device:abc", "action": "document_generation"}))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("invalid bearer token is rejected", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/credits", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
