package settings

import (
	"context"

	"github.com/stanstork/agri-notify/internal/models"
)

type MemoryStore struct {
	values map[string]models.Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]models.Settings)}
}

func (m *MemoryStore) Get(_ context.Context, deviceID string) (models.Settings, error) {
	v, ok := m.values[deviceID]
	if !ok {
		return models.Settings{}, ErrNotFound
	}
	return v.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, deviceID string, s models.Settings) error {
	m.values[deviceID] = s.Clone()
	return nil
}
