package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/stanstork/agri-notify/internal/ledger"
	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/secure"
)

const historyColumns = `device_id, id, seq, category, priority, title, body, deep_link,
	created_at, expires_at, is_read, show_alert, play_sound, set_badge, os_priority, recorded_at`

type historyRow struct {
	DeviceID   string     `db:"device_id"`
	ID         string     `db:"id"`
	Seq        int64      `db:"seq"`
	Category   string     `db:"category"`
	Priority   string     `db:"priority"`
	Title      string     `db:"title"`
	Body       string     `db:"body"`
	DeepLink   string     `db:"deep_link"`
	CreatedAt  time.Time  `db:"created_at"`
	ExpiresAt  *time.Time `db:"expires_at"`
	IsRead     bool       `db:"is_read"`
	ShowAlert  bool       `db:"show_alert"`
	PlaySound  bool       `db:"play_sound"`
	SetBadge   bool       `db:"set_badge"`
	OSPriority string     `db:"os_priority"`
	RecordedAt time.Time  `db:"recorded_at"`
}

// HistoryRepository is the SQL-backed ledger.Store. When a sealer is set the
// title, body and deep link columns are encrypted at rest.
type HistoryRepository struct {
	db     *sqlx.DB
	sealer *secure.Sealer
}

var _ ledger.Store = (*HistoryRepository)(nil)

func NewHistoryRepository(db *sqlx.DB, sealer *secure.Sealer) *HistoryRepository {
	return &HistoryRepository{db: db, sealer: sealer}
}

func sealAAD(deviceID, id string) string {
	return deviceID + "/" + id
}

func (r *HistoryRepository) seal(value, aad string) (string, error) {
	if r.sealer == nil {
		return value, nil
	}
	return r.sealer.Seal(value, aad)
}

func (r *HistoryRepository) open(value, aad string) (string, error) {
	if r.sealer == nil {
		return value, nil
	}
	return r.sealer.Open(value, aad)
}

func (r *HistoryRepository) Append(ctx context.Context, deviceID string, entry models.LedgerEntry, capacity int) error {
	rec := entry.Record
	aad := sealAAD(deviceID, rec.ID)

	title, err := r.seal(rec.Title, aad)
	if err != nil {
		return errors.Wrap(err, "failed to seal title")
	}
	body, err := r.seal(rec.Body, aad)
	if err != nil {
		return errors.Wrap(err, "failed to seal body")
	}
	deepLink, err := r.seal(rec.DeepLink, aad)
	if err != nil {
		return errors.Wrap(err, "failed to seal deep link")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin history transaction")
	}
	defer tx.Rollback()

	var existing int
	err = tx.GetContext(ctx, &existing, tx.Rebind(
		`SELECT COUNT(*) FROM notification_history WHERE device_id = ? AND id = ?`), deviceID, rec.ID)
	if err != nil {
		return errors.Wrap(err, "failed to check for duplicate entry")
	}
	if existing > 0 {
		return ledger.ErrDuplicateEntry
	}

	var seq int64
	err = tx.GetContext(ctx, &seq, tx.Rebind(
		`SELECT COALESCE(MAX(seq), 0) FROM notification_history WHERE device_id = ?`), deviceID)
	if err != nil {
		return errors.Wrap(err, "failed to read history sequence")
	}

	var expiresAt *time.Time
	if rec.ExpiresAt != nil {
		t := rec.ExpiresAt.UTC()
		expiresAt = &t
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO notification_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		deviceID, rec.ID, seq+1, string(rec.Category), rec.Priority.String(),
		title, body, deepLink,
		rec.CreatedAt.UTC(), expiresAt, rec.Read,
		entry.Decision.ShowAlert, entry.Decision.PlaySound, entry.Decision.SetBadge,
		string(entry.Decision.EffectivePriority), entry.RecordedAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert history entry")
	}

	if capacity > 0 {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM notification_history
			WHERE device_id = ? AND seq NOT IN (
				SELECT seq FROM notification_history
				WHERE device_id = ?
				ORDER BY seq DESC
				LIMIT ?
			)`), deviceID, deviceID, capacity)
		if err != nil {
			return errors.Wrap(err, "failed to prune history")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit history entry")
}

func (r *HistoryRepository) MarkRead(ctx context.Context, deviceID, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE notification_history SET is_read = ? WHERE device_id = ? AND id = ?`), true, deviceID, id)
	return errors.Wrap(err, "failed to mark entry read")
}

func (r *HistoryRepository) MarkAllRead(ctx context.Context, deviceID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE notification_history SET is_read = ? WHERE device_id = ?`), true, deviceID)
	return errors.Wrap(err, "failed to mark entries read")
}

func (r *HistoryRepository) Delete(ctx context.Context, deviceID, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM notification_history WHERE device_id = ? AND id = ?`), deviceID, id)
	return errors.Wrap(err, "failed to delete entry")
}

func (r *HistoryRepository) Clear(ctx context.Context, deviceID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM notification_history WHERE device_id = ?`), deviceID)
	return errors.Wrap(err, "failed to clear history")
}

func (r *HistoryRepository) List(ctx context.Context, deviceID string) ([]models.LedgerEntry, error) {
	var rows []historyRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		`SELECT `+historyColumns+` FROM notification_history WHERE device_id = ? ORDER BY seq DESC`), deviceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list history")
	}

	entries := make([]models.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := r.toEntry(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *HistoryRepository) UnreadCount(ctx context.Context, deviceID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(
		`SELECT COUNT(*) FROM notification_history WHERE device_id = ? AND is_read = ?`), deviceID, false)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, errors.Wrap(err, "failed to count unread entries")
	}
	return n, nil
}

func (r *HistoryRepository) BadgeCount(ctx context.Context, deviceID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(
		`SELECT COUNT(*) FROM notification_history WHERE device_id = ? AND is_read = ? AND set_badge = ?`), deviceID, false, true)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count badged entries")
	}
	return n, nil
}

func (r *HistoryRepository) toEntry(row historyRow) (models.LedgerEntry, error) {
	aad := sealAAD(row.DeviceID, row.ID)
	title, err := r.open(row.Title, aad)
	if err != nil {
		return models.LedgerEntry{}, errors.Wrapf(err, "failed to open entry %s", row.ID)
	}
	body, err := r.open(row.Body, aad)
	if err != nil {
		return models.LedgerEntry{}, errors.Wrapf(err, "failed to open entry %s", row.ID)
	}
	deepLink, err := r.open(row.DeepLink, aad)
	if err != nil {
		return models.LedgerEntry{}, errors.Wrapf(err, "failed to open entry %s", row.ID)
	}

	var expiresAt *time.Time
	if row.ExpiresAt != nil {
		t := row.ExpiresAt.UTC()
		expiresAt = &t
	}

	return models.LedgerEntry{
		Record: models.Record{
			ID:        row.ID,
			Category:  models.ParseCategory(row.Category),
			Priority:  models.ParsePriority(row.Priority),
			Title:     title,
			Body:      body,
			DeepLink:  deepLink,
			CreatedAt: row.CreatedAt.UTC(),
			ExpiresAt: expiresAt,
			Read:      row.IsRead,
		},
		Decision: models.Decision{
			ShowAlert:         row.ShowAlert,
			PlaySound:         row.PlaySound,
			SetBadge:          row.SetBadge,
			EffectivePriority: models.OSPriority(row.OSPriority),
		},
		RecordedAt: row.RecordedAt.UTC(),
	}, nil
}
