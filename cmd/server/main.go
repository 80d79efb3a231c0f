package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/stanstork/agri-notify/internal/config"
	"github.com/stanstork/agri-notify/internal/handlers"
	"github.com/stanstork/agri-notify/internal/ledger"
	"github.com/stanstork/agri-notify/internal/middleware"
	"github.com/stanstork/agri-notify/internal/migration"
	"github.com/stanstork/agri-notify/internal/notification"
	"github.com/stanstork/agri-notify/internal/reminder"
	"github.com/stanstork/agri-notify/internal/repository"
	"github.com/stanstork/agri-notify/internal/routes"
	"github.com/stanstork/agri-notify/internal/secure"
	"github.com/stanstork/agri-notify/internal/settings"
	"github.com/stanstork/agri-notify/internal/temporal"
	"github.com/stanstork/agri-notify/internal/temporal/activities"
	"github.com/stanstork/agri-notify/internal/temporal/workflows"
)

type application struct {
	config         *config.Config
	db             *sqlx.DB
	temporalClient tc.Client
	logger         zerolog.Logger
	settings       *settings.Service
	notifications  notification.Service
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database connection.
	db, err := repository.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()

	// Run database migrations.
	if err := migration.RunMigrations(db.DB, cfg.Database.Driver, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
	}
	app.initServices()

	// Reminders need a Temporal frontend; without one the API runs without them.
	var temporalWorker worker.Worker
	if cfg.Temporal.Enabled {
		app.temporalClient, err = tc.Dial(tc.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    temporal.NewZerologAdapter(logger),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Unable to create Temporal client")
		}
		defer app.temporalClient.Close()
		temporalWorker = app.startTemporalWorker(logger)
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initServices builds the settings store, the history ledger and the dispatcher.
func (app *application) initServices() {
	cfg := app.config
	logger := app.logger

	var settingsStore settings.Store = repository.NewSettingsRepository(app.db)
	if cfg.Settings.Backend == "file" {
		fileStore, err := settings.NewFileStore(cfg.Settings.Dir)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open settings directory")
		}
		settingsStore = fileStore
	}
	app.settings = settings.NewService(settingsStore, logger)

	var sealer *secure.Sealer
	if cfg.Ledger.Encrypt {
		ring, err := secure.OpenKeyring(secure.KeyringOptions{
			ServiceName:  cfg.Keyring.ServiceName,
			FileDir:      cfg.Keyring.FileDir,
			FilePassword: cfg.Keyring.FilePassword,
			Backends:     cfg.Keyring.Backends,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open keyring")
		}
		masterKey, err := secure.LoadOrCreateMasterKey(ring, cfg.Keyring.MasterKeyName)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load storage master key")
		}
		sealer, err = secure.NewSealer(masterKey, "notification-history")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialise history encryption")
		}
	}
	history := ledger.New(repository.NewHistoryRepository(app.db, sealer), cfg.Ledger.Capacity, logger)

	notifiers := []notification.Notifier{notification.NewPlatformNotifier(cfg.Push, logger)}
	if cfg.Email.Enabled {
		emailNotifier, err := notification.NewEmailNotifier(cfg.Email, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to configure email notifier")
		}
		notifiers = append(notifiers, emailNotifier)
	}

	app.notifications = notification.NewService(history, app.settings, logger, notifiers...)
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(repository.NewDeviceRepository(app.db), app.config.JWTSecret, app.config.TokenTTL, logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, logger)
	settingsHandler := handlers.NewSettingsHandler(app.settings, logger)

	var reminderHandler *handlers.ReminderHandler
	if app.temporalClient != nil {
		scheduler := reminder.NewScheduler(app.temporalClient, app.config.Temporal.TaskQueue, logger)
		reminderHandler = handlers.NewReminderHandler(scheduler, logger)
	}

	return routes.NewRouter(authHandler, notificationHandler, settingsHandler, reminderHandler)
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	taskQueue := app.config.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = temporal.ReminderTaskQueue
	}

	w := worker.New(app.temporalClient, taskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ReminderWorkflow)
	w.RegisterActivity(&activities.Activities{Notifications: app.notifications})

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Str("task_queue", taskQueue).Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	if temporalWorker != nil {
		logger.Info().Msg("Stopping Temporal worker...")
		temporalWorker.Stop()
		logger.Info().Msg("Temporal worker stopped.")
	}
}
