package authz

import "net/http"

// RequireDevice rejects requests that carry no authenticated device.
func RequireDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := DeviceIDFromRequest(r); !ok {
			http.Error(w, "Missing device context", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
