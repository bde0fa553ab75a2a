package middleware

import (
	"net/http"
	"time"

	id "creditgate/pkg/domain"
	"creditgate/pkg/requestcontext"
)

// DeviceCookie names the cookie carrying the anonymous device identifier.
const DeviceCookie = "cg_device_id"

const deviceCookieMaxAge = 400 * 24 * time.Hour

// DeviceIdentity ensures every request carries a device identifier: an
// existing valid cookie is reused, anything else gets a fresh one. The
// identifier is an opaque token for per-device accounting, not a credential.
func DeviceIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID, ok := deviceFromCookie(r)
		if !ok {
			deviceID = id.NewDeviceID()
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookie,
				Value:    deviceID.String(),
				Path:     "/",
				MaxAge:   int(deviceCookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithDeviceID(r.Context(), deviceID)))
	})
}

func deviceFromCookie(r *http.Request) (id.DeviceID, bool) {
	cookie, err := r.Cookie(DeviceCookie)
	if err != nil {
		return "", false
	}
	deviceID, err := id.ParseDeviceID(cookie.Value)
	if err != nil {
		return "", false
	}
	return deviceID, true
}
