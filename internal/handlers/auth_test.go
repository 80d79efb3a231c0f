package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agri-notify/internal/authz"
)

func signed(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTMiddleware(t *testing.T) {
	h := NewAuthHandler(nil, "secret", time.Hour, zerolog.Nop())
	var seen string
	protected := h.JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = authz.DeviceIDFromRequest(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec.Code
	}

	now := time.Now()
	valid := signed(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
		Subject: "dev-1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	assert.Equal(t, http.StatusNoContent, call("Bearer "+valid))
	assert.Equal(t, "dev-1", seen)

	expired := signed(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
		Subject: "dev-1", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	})
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+expired))

	forged := signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
		Subject: "dev-1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+forged))

	noExpiry := signed(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{Subject: "dev-1"})
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+noExpiry))

	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusUnauthorized, call("Token "+valid))
}
