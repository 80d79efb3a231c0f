package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/stanstork/agri-notify/internal/models"
)

type DeviceRepository interface {
	CreateDevice(ctx context.Context, name, secretHash string) (models.Device, error)
	GetDevice(ctx context.Context, id string) (models.Device, error)
}

type deviceRepository struct {
	db *sqlx.DB
}

func NewDeviceRepository(db *sqlx.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) CreateDevice(ctx context.Context, name, secretHash string) (models.Device, error) {
	device := models.Device{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(name),
		SecretHash: secretHash,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO devices (id, name, secret_hash, created_at)
		VALUES (?, ?, ?, ?)`),
		device.ID, device.Name, device.SecretHash, device.CreatedAt)
	if err != nil {
		return models.Device{}, errors.Wrap(err, "failed to create device")
	}
	return device, nil
}

func (r *deviceRepository) GetDevice(ctx context.Context, id string) (models.Device, error) {
	var device models.Device
	err := r.db.GetContext(ctx, &device, r.db.Rebind(
		`SELECT id, name, secret_hash, created_at FROM devices WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Device{}, ErrNotFound
	}
	if err != nil {
		return models.Device{}, errors.Wrap(err, "failed to get device")
	}
	device.CreatedAt = device.CreatedAt.UTC()
	return device, nil
}
