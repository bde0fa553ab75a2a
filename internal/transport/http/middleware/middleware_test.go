package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"creditgate/pkg/requestcontext"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func signToken(t *testing.T, key []byte, subject string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestAuth(t *testing.T) {
	key := []byte("test-signing-key")
	userID := "4fa0a938-21bb-4f29-8dcf-2c5257f1167e"

	capture := func(gotUser *string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*gotUser = requestcontext.UserID(r.Context()).String()
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("valid token resolves the user", func(t *testing.T) {
		var got string
		handler := Auth(key, testLogger)(capture(&got))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, key, userID, time.Hour))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, got)
	})

	t.Run("no token passes through as guest", func(t *testing.T) {
		var got string
		handler := Auth(key, testLogger)(capture(&got))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "00000000-0000-0000-0000-000000000000", got)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		var got string
		handler := Auth(key, testLogger)(capture(&got))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, []byte("other-key"), userID, time.Hour))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		var got string
		handler := Auth(key, testLogger)(capture(&got))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, key, userID, -time.Hour))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RequireUser rejects guests", func(t *testing.T) {
		handler := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDeviceIdentity(t *testing.T) {
	capture := func(gotDevice *string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*gotDevice = requestcontext.DeviceID(r.Context()).String()
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("missing cookie issues a fresh device", func(t *testing.T) {
		var got string
		handler := DeviceIdentity(capture(&got))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.NotEmpty(t, got)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, DeviceCookie, cookies[0].Name)
		assert.Equal(t, got, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("valid cookie is reused", func(t *testing.T) {
		var got string
		handler := DeviceIdentity(capture(&got))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "known-device-token"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "known-device-token", got)
		assert.Empty(t, rec.Result().Cookies(), "no reissue for a valid cookie")
	})

	t.Run("malformed cookie is replaced", func(t *testing.T) {
		var got string
		handler := DeviceIdentity(capture(&got))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "bad:token"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.NotEqual(t, "bad:token", got)
		assert.Len(t, rec.Result().Cookies(), 1)
	})
}

func TestRequireAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("matching key passes", func(t *testing.T) {
		handler := RequireAdmin(string(hash), testLogger)(next)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-API-Key", "admin-secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		handler := RequireAdmin(string(hash), testLogger)(next)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-API-Key", "guess")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no configured hash disables the surface", func(t *testing.T) {
		handler := RequireAdmin("", testLogger)(next)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-API-Key", "admin-secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequestMeta(t *testing.T) {
	t.Run("generates and echoes a request ID", func(t *testing.T) {
		var gotID string
		handler := RequestMeta(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = requestcontext.RequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.NotEmpty(t, gotID)
		assert.Equal(t, gotID, rec.Header().Get("X-Request-ID"))
	})

	t.Run("honors an inbound request ID", func(t *testing.T) {
		var gotID string
		handler := RequestMeta(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = requestcontext.RequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "upstream-id", gotID)
	})

	t.Run("condenses the user agent", func(t *testing.T) {
		var gotUA string
		handler := RequestMeta(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = requestcontext.UserAgent(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Contains(t, gotUA, "Chrome")
	})
}
