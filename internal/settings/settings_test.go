package settings_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/settings"
	"github.com/stanstork/agri-notify/internal/settings/settingstest"
)

func TestMemoryStore(t *testing.T) {
	settingstest.RunStoreContract(t, func(t *testing.T) settings.Store {
		return settings.NewMemoryStore()
	})
}

func TestFileStore(t *testing.T) {
	settingstest.RunStoreContract(t, func(t *testing.T) settings.Store {
		store, err := settings.NewFileStore(t.TempDir())
		require.NoError(t, err)
		return store
	})
}

func TestFileStoreWritesYAMLPerDevice(t *testing.T) {
	dir := t.TempDir()
	store, err := settings.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "dev-7", models.DefaultSettings()))

	raw, err := os.ReadFile(filepath.Join(dir, "dev-7.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "22:00")

	_, err = store.Get(context.Background(), "../escape")
	assert.Error(t, err)
}

func TestLoadPersistsDefaultsOnFirstUse(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	svc := settings.NewService(store, zerolog.Nop())

	got, err := svc.Load(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), got)

	stored, err := store.Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestSaveValidates(t *testing.T) {
	svc := settings.NewService(settings.NewMemoryStore(), zerolog.Nop())
	bad := models.DefaultSettings()
	bad.QuietHours.Timezone = "Nowhere/Land"

	_, err := svc.Save(context.Background(), "dev-1", bad)
	require.ErrorIs(t, err, models.ErrInvalidSettings)
}

func TestSaveIsPickedUpByNextLoad(t *testing.T) {
	ctx := context.Background()
	svc := settings.NewService(settings.NewMemoryStore(), zerolog.Nop())

	next := models.DefaultSettings()
	next.Enabled = false
	_, err := svc.Save(ctx, "dev-1", next)
	require.NoError(t, err)

	got, err := svc.Load(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestPatchMergesOntoStoredValue(t *testing.T) {
	ctx := context.Background()
	svc := settings.NewService(settings.NewMemoryStore(), zerolog.Nop())

	on := true
	got, err := svc.Patch(ctx, "dev-1", models.SettingsPatch{
		QuietHours: &models.QuietHoursPatch{Enabled: &on},
	})
	require.NoError(t, err)
	assert.True(t, got.QuietHours.Enabled)
	assert.True(t, got.Sound)

	tz := "Invalid/Zone"
	_, err = svc.Patch(ctx, "dev-1", models.SettingsPatch{QuietHours: &models.QuietHoursPatch{Timezone: &tz}})
	require.ErrorIs(t, err, models.ErrInvalidSettings)

	stored, err := svc.Load(ctx, "dev-1")
	require.NoError(t, err)
	assert.Empty(t, stored.QuietHours.Timezone)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (models.Settings, error) {
	return models.Settings{}, errors.New("disk unavailable")
}

func (failingStore) Put(context.Context, string, models.Settings) error {
	return errors.New("disk unavailable")
}

func TestStoreFailuresAreSurfaced(t *testing.T) {
	svc := settings.NewService(failingStore{}, zerolog.Nop())
	_, err := svc.Load(context.Background(), "dev-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk unavailable")

	_, err = svc.Reset(context.Background(), "dev-1")
	require.Error(t, err)
}
