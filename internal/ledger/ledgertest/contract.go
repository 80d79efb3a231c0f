// Package ledgertest holds behaviour checks shared by every ledger.Store.
package ledgertest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agri-notify/internal/ledger"
	"github.com/stanstork/agri-notify/internal/models"
)

var base = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

// Record builds the i-th record of a test sequence.
func Record(i int) models.Record {
	return models.Record{
		ID:        fmt.Sprintf("n-%03d", i),
		Category:  models.CategoryMarketPrice,
		Priority:  models.PriorityNormal,
		Title:     fmt.Sprintf("Maize price update %d", i),
		Body:      "Wholesale maize is up 3% at the county market.",
		DeepLink:  fmt.Sprintf("agri://market/maize/%d", i),
		CreatedAt: base.Add(time.Duration(i) * time.Minute),
	}
}

var shown = models.Decision{ShowAlert: true, PlaySound: true, SetBadge: true, EffectivePriority: models.OSPriorityDefault}

// RunStoreContract exercises a Store through a Ledger.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	t.Helper()
	ctx := context.Background()

	newLedger := func(t *testing.T, capacity int) *ledger.Ledger {
		return ledger.New(newStore(t), capacity, zerolog.Nop())
	}

	appendN := func(t *testing.T, l *ledger.Ledger, device string, n int) {
		for i := 0; i < n; i++ {
			rec := Record(i)
			require.NoError(t, l.Append(ctx, device, rec, shown, rec.CreatedAt))
		}
	}

	t.Run("evicts oldest beyond capacity", func(t *testing.T) {
		l := newLedger(t, 100)
		appendN(t, l, "dev-1", 150)

		entries, err := l.List(ctx, "dev-1")
		require.NoError(t, err)
		require.Len(t, entries, 100)
		for i, e := range entries {
			assert.Equal(t, Record(149-i).ID, e.Record.ID)
		}
	})

	t.Run("round trips entry fields", func(t *testing.T) {
		l := newLedger(t, 10)
		rec := Record(1)
		expires := base.Add(48 * time.Hour)
		rec.ExpiresAt = &expires
		rec.Priority = models.PriorityUrgent
		rec.Read = true
		require.NoError(t, l.Append(ctx, "dev-1", rec, shown, base))

		entries, err := l.List(ctx, "dev-1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		got := entries[0]
		assert.Equal(t, rec.ID, got.Record.ID)
		assert.Equal(t, rec.Title, got.Record.Title)
		assert.Equal(t, rec.Body, got.Record.Body)
		assert.Equal(t, rec.DeepLink, got.Record.DeepLink)
		assert.Equal(t, models.PriorityUrgent, got.Record.Priority)
		assert.Equal(t, models.CategoryMarketPrice, got.Record.Category)
		assert.False(t, got.Record.Read, "appended entries start unread")
		assert.True(t, rec.CreatedAt.Equal(got.Record.CreatedAt))
		require.NotNil(t, got.Record.ExpiresAt)
		assert.True(t, expires.Equal(*got.Record.ExpiresAt))
		assert.Equal(t, shown, got.Decision)
		assert.True(t, base.Equal(got.RecordedAt))
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		l := newLedger(t, 10)
		appendN(t, l, "dev-1", 2)
		err := l.Append(ctx, "dev-1", Record(1), shown, base)
		require.ErrorIs(t, err, ledger.ErrDuplicateEntry)

		entries, err := l.List(ctx, "dev-1")
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		// the same id on another device is a different ledger
		require.NoError(t, l.Append(ctx, "dev-2", Record(1), shown, base))
	})

	t.Run("mark read touches only the target", func(t *testing.T) {
		l := newLedger(t, 10)
		appendN(t, l, "dev-1", 3)
		require.NoError(t, l.MarkRead(ctx, "dev-1", Record(1).ID))
		require.NoError(t, l.MarkRead(ctx, "dev-1", "missing"))

		entries, err := l.List(ctx, "dev-1")
		require.NoError(t, err)
		for _, e := range entries {
			assert.Equal(t, e.Record.ID == Record(1).ID, e.Record.Read, e.Record.ID)
		}
		unread, err := l.UnreadCount(ctx, "dev-1")
		require.NoError(t, err)
		assert.Equal(t, 2, unread)
	})

	t.Run("mark all read", func(t *testing.T) {
		l := newLedger(t, 10)
		appendN(t, l, "dev-1", 3)
		appendN(t, l, "dev-2", 2)
		require.NoError(t, l.MarkAllRead(ctx, "dev-1"))

		unread, err := l.UnreadCount(ctx, "dev-1")
		require.NoError(t, err)
		assert.Zero(t, unread)
		unread, err = l.UnreadCount(ctx, "dev-2")
		require.NoError(t, err)
		assert.Equal(t, 2, unread)
	})

	t.Run("badge counts only unread badged entries", func(t *testing.T) {
		l := newLedger(t, 10)
		silent := models.Decision{EffectivePriority: models.OSPriorityNone}
		require.NoError(t, l.Append(ctx, "dev-1", Record(0), silent, base))
		require.NoError(t, l.Append(ctx, "dev-1", Record(1), silent, base))
		require.NoError(t, l.Append(ctx, "dev-1", Record(2), shown, base))
		require.NoError(t, l.Append(ctx, "dev-1", Record(3), shown, base))
		require.NoError(t, l.MarkRead(ctx, "dev-1", Record(3).ID))

		badge, err := l.BadgeCount(ctx, "dev-1")
		require.NoError(t, err)
		assert.Equal(t, 1, badge)
		unread, err := l.UnreadCount(ctx, "dev-1")
		require.NoError(t, err)
		assert.Equal(t, 3, unread)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		l := newLedger(t, 10)
		appendN(t, l, "dev-1", 3)
		require.NoError(t, l.Delete(ctx, "dev-1", Record(1).ID))
		require.NoError(t, l.Delete(ctx, "dev-1", Record(1).ID))

		entries, err := l.List(ctx, "dev-1")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, Record(2).ID, entries[0].Record.ID)
		assert.Equal(t, Record(0).ID, entries[1].Record.ID)
	})

	t.Run("clear empties one device", func(t *testing.T) {
		l := newLedger(t, 10)
		appendN(t, l, "dev-1", 3)
		appendN(t, l, "dev-2", 1)
		require.NoError(t, l.Clear(ctx, "dev-1"))

		entries, err := l.List(ctx, "dev-1")
		require.NoError(t, err)
		assert.Empty(t, entries)
		entries, err = l.List(ctx, "dev-2")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}
