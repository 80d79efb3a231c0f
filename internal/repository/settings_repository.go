package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/settings"
)

// SettingsRepository stores one JSON settings document per device.
type SettingsRepository struct {
	db *sqlx.DB
}

var _ settings.Store = (*SettingsRepository)(nil)

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context, deviceID string) (models.Settings, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, r.db.Rebind(
		`SELECT payload FROM notification_settings WHERE device_id = ?`), deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Settings{}, settings.ErrNotFound
	}
	if err != nil {
		return models.Settings{}, errors.Wrap(err, "failed to read settings")
	}

	var s models.Settings
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return models.Settings{}, errors.Wrapf(err, "failed to decode settings for device %s", deviceID)
	}
	if s.CategoryEnabled == nil {
		s.CategoryEnabled = map[models.NotificationCategory]bool{}
	}
	return s, nil
}

func (r *SettingsRepository) Put(ctx context.Context, deviceID string, s models.Settings) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to encode settings")
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO notification_settings (device_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE
		SET payload = excluded.payload, updated_at = excluded.updated_at`),
		deviceID, string(payload), time.Now().UTC())
	return errors.Wrap(err, "failed to write settings")
}
