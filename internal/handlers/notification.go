package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/authz"
	"github.com/stanstork/agri-notify/internal/ledger"
	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/notification"
)

type NotificationHandler struct {
	service notification.Service
	now     func() time.Time
	logger  zerolog.Logger
}

// pushPayload is the inbound push message as the platform hands it over.
type pushPayload struct {
	ID        string     `json:"id"`
	Category  string     `json:"category"`
	Priority  string     `json:"priority"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	DeepLink  string     `json:"deep_link"`
	CreatedAt *time.Time `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (p pushPayload) record(now time.Time) models.Record {
	createdAt := now
	if p.CreatedAt != nil {
		createdAt = *p.CreatedAt
	}
	return models.Record{
		ID:        strings.TrimSpace(p.ID),
		Category:  models.ParseCategory(p.Category),
		Priority:  models.ParsePriority(p.Priority),
		Title:     p.Title,
		Body:      p.Body,
		DeepLink:  p.DeepLink,
		CreatedAt: createdAt,
		ExpiresAt: p.ExpiresAt,
	}
}

func NewNotificationHandler(service notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		now:     time.Now,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

// Ingest runs an inbound push through the delivery pipeline.
func (h *NotificationHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := authz.DeviceIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing device context", http.StatusUnauthorized)
		return
	}

	var payload pushPayload
	if err := decodePush(r, &payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	now := h.now()
	delivery, err := h.service.Deliver(r.Context(), deviceID, payload.record(now), now)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidRecord):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ledger.ErrDuplicateEntry):
			http.Error(w, "Notification already delivered", http.StatusConflict)
		default:
			h.logger.Error().Err(err).Str("device_id", deviceID).Msg("failed to deliver notification")
			http.Error(w, "Failed to deliver notification", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, delivery)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := authz.DeviceIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing device context", http.StatusUnauthorized)
		return
	}

	inbox, err := h.service.Inbox(r.Context(), deviceID)
	if err != nil {
		h.logger.Error().Err(err).Str("device_id", deviceID).Msg("failed to list notifications")
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "mark notification read", func(deviceID, id string) error {
		return h.service.MarkRead(r.Context(), deviceID, id)
	})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "mark all notifications read", func(deviceID, _ string) error {
		return h.service.MarkAllRead(r.Context(), deviceID)
	})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "delete notification", func(deviceID, id string) error {
		return h.service.Delete(r.Context(), deviceID, id)
	})
}

func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "clear notifications", func(deviceID, _ string) error {
		return h.service.Clear(r.Context(), deviceID)
	})
}

// mutate runs a history update; unknown ids are not an error.
func (h *NotificationHandler) mutate(w http.ResponseWriter, r *http.Request, action string, fn func(deviceID, id string) error) {
	deviceID, ok := authz.DeviceIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing device context", http.StatusUnauthorized)
		return
	}
	id := strings.TrimSpace(mux.Vars(r)["id"])

	if err := fn(deviceID, id); err != nil {
		h.logger.Error().Err(err).Str("device_id", deviceID).Str("notification_id", id).Msgf("failed to %s", action)
		http.Error(w, "Failed to update notifications", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
