// Package ledger keeps the bounded, per-device history of delivered and
// suppressed notifications that backs the in-app inbox.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/models"
)

// DefaultCapacity is the number of entries kept per device.
const DefaultCapacity = 100

// ErrDuplicateEntry is returned when a record id is already in the device's ledger.
var ErrDuplicateEntry = errors.New("ledger: notification id already recorded")

// Store persists ledger entries. Implementations need not be safe for concurrent
// use; Ledger serialises every call.
type Store interface {
	// Append inserts entry as the most recent one and drops the oldest entries
	// beyond capacity in the same unit of work.
	Append(ctx context.Context, deviceID string, entry models.LedgerEntry, capacity int) error
	MarkRead(ctx context.Context, deviceID, id string) error
	MarkAllRead(ctx context.Context, deviceID string) error
	Delete(ctx context.Context, deviceID, id string) error
	Clear(ctx context.Context, deviceID string) error
	// List returns entries most recent first.
	List(ctx context.Context, deviceID string) ([]models.LedgerEntry, error)
	UnreadCount(ctx context.Context, deviceID string) (int, error)
	// BadgeCount counts unread entries whose decision set the badge.
	BadgeCount(ctx context.Context, deviceID string) (int, error)
}

// Ledger applies mutations one at a time so concurrent deliveries never lose updates.
type Ledger struct {
	mu       sync.Mutex
	store    Store
	capacity int
	logger   zerolog.Logger
}

func New(store Store, capacity int, logger zerolog.Logger) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		store:    store,
		capacity: capacity,
		logger:   logger.With().Str("component", "ledger").Logger(),
	}
}

func (l *Ledger) Capacity() int {
	return l.capacity
}

// Append records a delivery decision. The stored record always starts unread.
func (l *Ledger) Append(ctx context.Context, deviceID string, record models.Record, decision models.Decision, recordedAt time.Time) error {
	record.Read = false
	entry := models.LedgerEntry{
		Record:     record,
		Decision:   decision,
		RecordedAt: recordedAt,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Append(ctx, deviceID, entry, l.capacity); err != nil {
		return err
	}
	l.logger.Debug().
		Str("device_id", deviceID).
		Str("notification_id", record.ID).
		Bool("show_alert", decision.ShowAlert).
		Msg("ledger entry appended")
	return nil
}

func (l *Ledger) MarkRead(ctx context.Context, deviceID, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.MarkRead(ctx, deviceID, id)
}

func (l *Ledger) MarkAllRead(ctx context.Context, deviceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.MarkAllRead(ctx, deviceID)
}

func (l *Ledger) Delete(ctx context.Context, deviceID, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Delete(ctx, deviceID, id)
}

func (l *Ledger) Clear(ctx context.Context, deviceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Clear(ctx, deviceID)
}

// List returns a snapshot; callers may modify it freely.
func (l *Ledger) List(ctx context.Context, deviceID string) ([]models.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.List(ctx, deviceID)
}

func (l *Ledger) UnreadCount(ctx context.Context, deviceID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.UnreadCount(ctx, deviceID)
}

// BadgeCount is the app icon badge: unread entries that were allowed to badge.
func (l *Ledger) BadgeCount(ctx context.Context, deviceID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.BadgeCount(ctx, deviceID)
}
