package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/authz"
	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/reminder"
)

// ReminderScheduler starts and cancels durable reminders.
type ReminderScheduler interface {
	Schedule(ctx context.Context, deviceID string, record models.Record, fireAt time.Time) (string, error)
	Cancel(ctx context.Context, deviceID, reminderID string) error
}

type ReminderHandler struct {
	scheduler ReminderScheduler
	logger    zerolog.Logger
}

type reminderRequest struct {
	pushPayload
	FireAt time.Time `json:"fire_at"`
}

func NewReminderHandler(scheduler ReminderScheduler, logger zerolog.Logger) *ReminderHandler {
	return &ReminderHandler{
		scheduler: scheduler,
		logger:    logger.With().Str("handler", "reminder").Logger(),
	}
}

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := authz.DeviceIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing device context", http.StatusUnauthorized)
		return
	}

	var req reminderRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.FireAt.IsZero() {
		http.Error(w, "fire_at is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		req.Category = string(models.CategoryReminder)
	}

	id, err := h.scheduler.Schedule(r.Context(), deviceID, req.record(req.FireAt), req.FireAt)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidRecord):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, reminder.ErrAlreadyScheduled):
			http.Error(w, "Reminder already scheduled", http.StatusConflict)
			return
		}
		h.logger.Error().Err(err).Str("device_id", deviceID).Msg("failed to schedule reminder")
		http.Error(w, "Failed to schedule reminder", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"reminder_id": id, "fire_at": req.FireAt})
}

func (h *ReminderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := authz.DeviceIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing device context", http.StatusUnauthorized)
		return
	}
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		http.Error(w, "Reminder ID is required", http.StatusBadRequest)
		return
	}

	if err := h.scheduler.Cancel(r.Context(), deviceID, id); err != nil {
		h.logger.Error().Err(err).Str("device_id", deviceID).Str("reminder_id", id).Msg("failed to cancel reminder")
		http.Error(w, "Failed to cancel reminder", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
