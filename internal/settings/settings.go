// Package settings loads and updates per-device notification preferences.
package settings

import (
	"context"
	"errors"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/models"
)

// ErrNotFound is returned by a Store that holds no settings for a device.
var ErrNotFound = errors.New("settings: not found")

// Store persists settings values. Service serialises every call.
type Store interface {
	Get(ctx context.Context, deviceID string) (models.Settings, error)
	Put(ctx context.Context, deviceID string, s models.Settings) error
}

// Service is the settings store the dispatcher reads before every decision.
type Service struct {
	mu     sync.Mutex
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// Load returns the device's settings, persisting the defaults on first use.
func (s *Service) Load(ctx context.Context, deviceID string) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, deviceID)
}

func (s *Service) loadLocked(ctx context.Context, deviceID string) (models.Settings, error) {
	current, err := s.store.Get(ctx, deviceID)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Settings{}, pkgerrors.Wrap(err, "failed to load notification settings")
	}

	defaults := models.DefaultSettings()
	if err := s.store.Put(ctx, deviceID, defaults); err != nil {
		return models.Settings{}, pkgerrors.Wrap(err, "failed to store default notification settings")
	}
	s.logger.Info().Str("device_id", deviceID).Msg("initialised default notification settings")
	return defaults, nil
}

// Save replaces the device's settings.
func (s *Service) Save(ctx context.Context, deviceID string, next models.Settings) (models.Settings, error) {
	if err := next.Validate(); err != nil {
		return models.Settings{}, err
	}
	if next.CategoryEnabled == nil {
		next.CategoryEnabled = map[models.NotificationCategory]bool{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Put(ctx, deviceID, next); err != nil {
		return models.Settings{}, pkgerrors.Wrap(err, "failed to save notification settings")
	}
	return next, nil
}

// Patch merges a partial update onto the current settings.
func (s *Service) Patch(ctx context.Context, deviceID string, patch models.SettingsPatch) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(ctx, deviceID)
	if err != nil {
		return models.Settings{}, err
	}
	next := patch.Apply(current)
	if err := next.Validate(); err != nil {
		return models.Settings{}, err
	}
	if err := s.store.Put(ctx, deviceID, next); err != nil {
		return models.Settings{}, pkgerrors.Wrap(err, "failed to save notification settings")
	}
	return next, nil
}

// Reset restores the documented defaults.
func (s *Service) Reset(ctx context.Context, deviceID string) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := models.DefaultSettings()
	if err := s.store.Put(ctx, deviceID, defaults); err != nil {
		return models.Settings{}, pkgerrors.Wrap(err, "failed to reset notification settings")
	}
	s.logger.Info().Str("device_id", deviceID).Msg("notification settings reset")
	return defaults, nil
}
