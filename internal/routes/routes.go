package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stanstork/agri-notify/internal/authz"
	"github.com/stanstork/agri-notify/internal/handlers"
)

// NewRouter wires the public and device-authenticated endpoints. Reminder
// routes are registered only when reminders is non-nil.
func NewRouter(
	auth *handlers.AuthHandler,
	notifications *handlers.NotificationHandler,
	settings *handlers.SettingsHandler,
	reminders *handlers.ReminderHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public device endpoints
	router.HandleFunc("/api/devices", auth.Register).Methods(http.MethodPost)
	router.HandleFunc("/api/devices/token", auth.Token).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware, authz.RequireDevice)

	api.HandleFunc("/notifications", notifications.Ingest).Methods(http.MethodPost)
	api.HandleFunc("/notifications", notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications", notifications.Clear).Methods(http.MethodDelete)
	api.HandleFunc("/notifications/read", notifications.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{id}/read", notifications.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{id}", notifications.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/settings", settings.Get).Methods(http.MethodGet)
	api.HandleFunc("/settings", settings.Replace).Methods(http.MethodPut)
	api.HandleFunc("/settings", settings.Patch).Methods(http.MethodPatch)
	api.HandleFunc("/settings/reset", settings.Reset).Methods(http.MethodPost)

	if reminders != nil {
		api.HandleFunc("/reminders", reminders.Create).Methods(http.MethodPost)
		api.HandleFunc("/reminders/{id}", reminders.Cancel).Methods(http.MethodDelete)
	}

	return router
}
