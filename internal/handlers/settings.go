package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/authz"
	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/settings"
)

type SettingsHandler struct {
	service *settings.Service
	logger  zerolog.Logger
}

func NewSettingsHandler(service *settings.Service, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("handler", "settings").Logger(),
	}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := authz.DeviceIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing device context", http.StatusUnauthorized)
		return
	}
	current, err := h.service.Load(r.Context(), deviceID)
	h.respond(w, deviceID, current, err)
}

// Replace stores a complete settings value.
func (h *SettingsHandler) Replace(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := authz.DeviceIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing device context", http.StatusUnauthorized)
		return
	}
	var next models.Settings
	if err := decodeJSON(r, &next); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	saved, err := h.service.Save(r.Context(), deviceID, next)
	h.respond(w, deviceID, saved, err)
}

// Patch applies the fields present in the body.
func (h *SettingsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := authz.DeviceIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing device context", http.StatusUnauthorized)
		return
	}
	var patch models.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	saved, err := h.service.Patch(r.Context(), deviceID, patch)
	h.respond(w, deviceID, saved, err)
}

func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := authz.DeviceIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing device context", http.StatusUnauthorized)
		return
	}
	saved, err := h.service.Reset(r.Context(), deviceID)
	h.respond(w, deviceID, saved, err)
}

func (h *SettingsHandler) respond(w http.ResponseWriter, deviceID string, s models.Settings, err error) {
	if err != nil {
		if errors.Is(err, models.ErrInvalidSettings) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Str("device_id", deviceID).Msg("settings request failed")
		http.Error(w, "Failed to process settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
