package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/authz"
	"github.com/stanstork/agri-notify/internal/repository"
	"github.com/stanstork/agri-notify/internal/secure"
)

type AuthHandler struct {
	devices   repository.DeviceRepository
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
}

type registerRequest struct {
	Name       string `json:"name"`
	Passphrase string `json:"passphrase"`
}

type tokenRequest struct {
	DeviceID   string `json:"device_id"`
	Passphrase string `json:"passphrase"`
}

func NewAuthHandler(devices repository.DeviceRepository, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthHandler{
		devices:   devices,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger.With().Str("handler", "auth").Logger(),
	}
}

// Register creates a device identity protected by a passphrase.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	hash, err := secure.HashPassphrase(req.Passphrase)
	if err != nil {
		if errors.Is(err, secure.ErrWeakPassphrase) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("failed to hash passphrase")
		http.Error(w, "Failed to register device", http.StatusInternalServerError)
		return
	}

	device, err := h.devices.CreateDevice(r.Context(), req.Name, hash)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create device")
		http.Error(w, "Failed to register device", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("device_id", device.ID).Msg("device registered")
	writeJSON(w, http.StatusCreated, map[string]string{"device_id": device.ID, "name": device.Name})
}

// Token exchanges a device id and passphrase for a signed bearer token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	device, err := h.devices.GetDevice(r.Context(), strings.TrimSpace(req.DeviceID))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			h.logger.Error().Err(err).Msg("failed to load device")
		}
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}
	if err := secure.VerifyPassphrase(req.Passphrase, device.SecretHash); err != nil {
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   device.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
	})
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}

func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		if claims.ExpiresAt == nil || claims.Subject == "" {
			http.Error(w, "Missing token claim", http.StatusUnauthorized)
			return
		}

		ctx := authz.WithDevice(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
