package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agri-notify/internal/config"
	"github.com/stanstork/agri-notify/internal/ledger"
	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/policy"
	"github.com/stanstork/agri-notify/internal/settings"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []Dispatch
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, d Dispatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, d)
	return r.err
}

type brokenStore struct {
	ledger.Store
}

func (brokenStore) Append(context.Context, string, models.LedgerEntry, int) error {
	return errors.New("disk full")
}

func (brokenStore) UnreadCount(context.Context, string) (int, error) {
	return 0, nil
}

func (brokenStore) BadgeCount(context.Context, string) (int, error) {
	return 0, nil
}

type fixture struct {
	svc      Service
	settings *settings.Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T, store ledger.Store, extra ...Notifier) fixture {
	t.Helper()
	st := settings.NewService(settings.NewMemoryStore(), zerolog.Nop())
	rec := &recordingNotifier{}
	notifiers := append([]Notifier{rec}, extra...)
	svc := NewService(ledger.New(store, 100, zerolog.Nop()), st, zerolog.Nop(), notifiers...)
	return fixture{svc: svc, settings: st, notifier: rec}
}

var evening = time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)

func record(id string, priority models.NotificationPriority) models.Record {
	return models.Record{
		ID:        id,
		Category:  models.CategoryHealthAlert,
		Priority:  priority,
		Title:     "Cow #12 temperature high",
		Body:      "Rectal temperature 40.5C recorded at the evening check.",
		CreatedAt: evening.Add(-time.Minute),
	}
}

func enableQuietHours(t *testing.T, st *settings.Service) {
	t.Helper()
	on := true
	start, end := models.MustClockTime("22:00"), models.MustClockTime("07:00")
	_, err := st.Patch(context.Background(), "dev-1", models.SettingsPatch{
		QuietHours: &models.QuietHoursPatch{Enabled: &on, Start: &start, End: &end},
	})
	require.NoError(t, err)
}

func TestDeliverDuringQuietHours(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ledger.NewMemoryStore())
	enableQuietHours(t, f.settings)

	high, err := f.svc.Deliver(ctx, "dev-1", record("n-1", models.PriorityHigh), evening)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusSuppressed, high.Status)
	assert.False(t, high.Decision.ShowAlert)
	assert.True(t, high.Decision.SetBadge)
	assert.Equal(t, 1, high.Badge)

	urgent, err := f.svc.Deliver(ctx, "dev-1", record("n-2", models.PriorityUrgent), evening)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusDelivered, urgent.Status)
	assert.Equal(t, models.OSPriorityHigh, urgent.Decision.EffectivePriority)
	assert.Equal(t, 2, urgent.Badge)

	require.Len(t, f.notifier.calls, 2, "badge-only decisions still reach the platform")
	assert.Equal(t, "n-2", f.notifier.calls[1].Record.ID)

	inbox, err := f.svc.Inbox(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, inbox.Entries, 2)
	assert.Equal(t, "n-2", inbox.Entries[0].Record.ID)
	assert.Equal(t, 2, inbox.Unread)
}

func TestDeliverGloballyDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ledger.NewMemoryStore())
	off := false
	_, err := f.settings.Patch(ctx, "dev-1", models.SettingsPatch{Enabled: &off})
	require.NoError(t, err)

	got, err := f.svc.Deliver(ctx, "dev-1", record("n-1", models.PriorityUrgent), evening)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusSuppressed, got.Status)
	assert.False(t, got.Decision.Surfaces())
	assert.Empty(t, f.notifier.calls)

	inbox, err := f.svc.Inbox(ctx, "dev-1")
	require.NoError(t, err)
	assert.Len(t, inbox.Entries, 1, "suppressed records are still recorded")
}

func TestBadgeIgnoresDeliveriesWhileGloballyDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ledger.NewMemoryStore())
	off, on := false, true
	_, err := f.settings.Patch(ctx, "dev-1", models.SettingsPatch{Enabled: &off})
	require.NoError(t, err)

	for _, id := range []string{"n-1", "n-2"} {
		got, err := f.svc.Deliver(ctx, "dev-1", record(id, models.PriorityNormal), evening)
		require.NoError(t, err)
		assert.False(t, got.Decision.SetBadge)
		assert.Zero(t, got.Badge)
	}

	_, err = f.settings.Patch(ctx, "dev-1", models.SettingsPatch{Enabled: &on})
	require.NoError(t, err)
	got, err := f.svc.Deliver(ctx, "dev-1", record("n-3", models.PriorityNormal), evening)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Badge)
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, 1, f.notifier.calls[0].Badge)

	inbox, err := f.svc.Inbox(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, 3, inbox.Unread, "the inbox still lists every unread entry")
}

func TestDeliverWithoutPriorityRecordsNormal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ledger.NewMemoryStore())

	var rec models.Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","category":"reminder","title":"Vaccinate","body":"Goats due"}`), &rec))
	_, err := f.svc.Deliver(ctx, "dev-1", rec, evening)
	require.NoError(t, err)

	inbox, err := f.svc.Inbox(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, inbox.Entries, 1)
	assert.Equal(t, models.PriorityNormal, inbox.Entries[0].Record.Priority)
}

func TestDeliverDiscardsExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ledger.NewMemoryStore())
	rec := record("n-1", models.PriorityUrgent)
	expires := evening
	rec.ExpiresAt = &expires

	got, err := f.svc.Deliver(ctx, "dev-1", rec, evening)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusDiscarded, got.Status)
	assert.Empty(t, f.notifier.calls)

	inbox, err := f.svc.Inbox(ctx, "dev-1")
	require.NoError(t, err)
	assert.Empty(t, inbox.Entries)
}

func TestDeliverRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ledger.NewMemoryStore())

	_, err := f.svc.Deliver(ctx, "dev-1", models.Record{ID: "n-1"}, evening)
	require.ErrorIs(t, err, models.ErrInvalidRecord)

	_, err = f.svc.Deliver(ctx, "dev-1", record("n-1", models.PriorityLow), time.Time{})
	require.ErrorIs(t, err, policy.ErrInvalidClock)

	_, err = f.svc.Deliver(ctx, "", record("n-1", models.PriorityLow), evening)
	require.Error(t, err)
}

func TestDeliverDuplicateIsReturned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ledger.NewMemoryStore())

	_, err := f.svc.Deliver(ctx, "dev-1", record("n-1", models.PriorityNormal), evening)
	require.NoError(t, err)
	_, err = f.svc.Deliver(ctx, "dev-1", record("n-1", models.PriorityNormal), evening)
	require.ErrorIs(t, err, ledger.ErrDuplicateEntry)
	assert.Len(t, f.notifier.calls, 1)
}

func TestDeliverSurvivesHistoryAndNotifierFailures(t *testing.T) {
	ctx := context.Background()
	failing := &recordingNotifier{err: errors.New("platform unavailable")}
	f := newFixture(t, brokenStore{}, failing)

	got, err := f.svc.Deliver(ctx, "dev-1", record("n-1", models.PriorityNormal), evening)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryStatusDelivered, got.Status)
	assert.Len(t, f.notifier.calls, 1)
	assert.Len(t, failing.calls, 1)
}

func TestInboxPassthroughs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, ledger.NewMemoryStore())
	for _, id := range []string{"n-1", "n-2", "n-3"} {
		_, err := f.svc.Deliver(ctx, "dev-1", record(id, models.PriorityNormal), evening)
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.MarkRead(ctx, "dev-1", "n-2"))
	inbox, err := f.svc.Inbox(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, inbox.Unread)

	require.NoError(t, f.svc.Delete(ctx, "dev-1", "n-1"))
	require.NoError(t, f.svc.MarkAllRead(ctx, "dev-1"))
	inbox, err = f.svc.Inbox(ctx, "dev-1")
	require.NoError(t, err)
	assert.Len(t, inbox.Entries, 2)
	assert.Zero(t, inbox.Unread)

	require.NoError(t, f.svc.Clear(ctx, "dev-1"))
	inbox, err = f.svc.Inbox(ctx, "dev-1")
	require.NoError(t, err)
	assert.Empty(t, inbox.Entries)
}

func TestEmailNotifierEscalatesUrgentAlerts(t *testing.T) {
	n, err := NewEmailNotifier(config.EmailConfig{
		From:       "alerts@farm.example",
		SMTPHost:   "smtp.farm.example",
		Recipients: []string{" manager@farm.example ", ""},
	}, zerolog.Nop())
	require.NoError(t, err)

	var sent []string
	n.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.farm.example:587", addr)
		assert.Equal(t, []string{"manager@farm.example"}, to)
		sent = append(sent, string(msg))
		return nil
	}

	shown := models.Decision{ShowAlert: true, SetBadge: true}
	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, Dispatch{DeviceID: "dev-1", Record: record("n-1", models.PriorityHigh), Decision: shown}))
	require.NoError(t, n.Notify(ctx, Dispatch{DeviceID: "dev-1", Record: record("n-2", models.PriorityUrgent), Decision: models.Decision{SetBadge: true}}))
	assert.Empty(t, sent)

	require.NoError(t, n.Notify(ctx, Dispatch{DeviceID: "dev-1", Record: record("n-3", models.PriorityUrgent), Decision: shown}))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Subject: [Farm alert] Cow #12 temperature high")
	assert.Contains(t, sent[0], "Priority: urgent")
}

func TestEmailNotifierRequiresHost(t *testing.T) {
	_, err := NewEmailNotifier(config.EmailConfig{From: "a@b"}, zerolog.Nop())
	require.Error(t, err)
}

func TestPlatformNotifierName(t *testing.T) {
	on := NewPlatformNotifier(config.PushConfig{Enabled: true, AppID: "com.example.agri"}, zerolog.Nop())
	assert.Equal(t, "PlatformNotifier(platform=mock, app=com.example.agri)", notifierChannelName(on))
	require.NoError(t, on.Notify(context.Background(), Dispatch{Record: record("n-1", models.PriorityLow)}))

	off := NewPlatformNotifier(config.PushConfig{}, zerolog.Nop())
	assert.Equal(t, "PlatformNotifier(disabled)", notifierChannelName(off))
}
