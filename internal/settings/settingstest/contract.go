// Package settingstest holds behaviour checks shared by every settings.Store.
package settingstest

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/settings"
)

func RunStoreContract(t *testing.T, newStore func(t *testing.T) settings.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing device reports not found", func(t *testing.T) {
		_, err := newStore(t).Get(ctx, "unknown-device")
		require.ErrorIs(t, err, settings.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		store := newStore(t)
		want := models.DefaultSettings()
		want.Sound = false
		want.CategoryEnabled[models.CategoryForumActivity] = false
		want.QuietHours = models.QuietHours{
			Enabled:  true,
			Start:    models.MustClockTime("21:15"),
			End:      models.MustClockTime("05:45"),
			Timezone: "Africa/Lagos",
		}
		require.NoError(t, store.Put(ctx, "dev-1", want))

		got, err := store.Get(ctx, "dev-1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("reset then load returns defaults", func(t *testing.T) {
		svc := settings.NewService(newStore(t), zerolog.Nop())
		off := false
		_, err := svc.Patch(ctx, "dev-1", models.SettingsPatch{Enabled: &off})
		require.NoError(t, err)

		_, err = svc.Reset(ctx, "dev-1")
		require.NoError(t, err)
		got, err := svc.Load(ctx, "dev-1")
		require.NoError(t, err)
		assert.Equal(t, models.DefaultSettings(), got)
	})
}
