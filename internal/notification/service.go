package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/ledger"
	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/policy"
	"github.com/stanstork/agri-notify/internal/settings"
)

// Inbox is a device's history plus its unread count.
type Inbox struct {
	Entries []models.LedgerEntry `json:"entries"`
	Unread  int                  `json:"unread"`
}

type Service interface {
	// Deliver decides how record is presented at now, records it and hands it to
	// the platform notifiers.
	Deliver(ctx context.Context, deviceID string, record models.Record, now time.Time) (models.Delivery, error)
	Inbox(ctx context.Context, deviceID string) (Inbox, error)
	MarkRead(ctx context.Context, deviceID, id string) error
	MarkAllRead(ctx context.Context, deviceID string) error
	Delete(ctx context.Context, deviceID, id string) error
	Clear(ctx context.Context, deviceID string) error
}

type service struct {
	ledger    *ledger.Ledger
	settings  *settings.Service
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(l *ledger.Ledger, s *settings.Service, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		ledger:    l,
		settings:  s,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

func (s *service) Deliver(ctx context.Context, deviceID string, record models.Record, now time.Time) (models.Delivery, error) {
	if deviceID == "" {
		return models.Delivery{}, fmt.Errorf("device id is required")
	}
	if now.IsZero() {
		return models.Delivery{}, policy.ErrInvalidClock
	}
	if err := record.Validate(); err != nil {
		return models.Delivery{}, err
	}
	if !record.Category.IsValid() {
		record.Category = models.CategorySystem
	}

	log := s.logger.With().
		Str("device_id", deviceID).
		Str("notification_id", record.ID).
		Str("category", string(record.Category)).
		Logger()

	if record.IsExpired(now) {
		log.Info().Str("status", string(models.DeliveryStatusDiscarded)).Msg("expired notification discarded")
		return models.Delivery{
			NotificationID: record.ID,
			Status:         models.DeliveryStatusDiscarded,
			Decision:       models.Decision{EffectivePriority: models.OSPriorityNone},
		}, nil
	}

	current, err := s.settings.Load(ctx, deviceID)
	if err != nil {
		return models.Delivery{}, err
	}

	decision, err := policy.Decide(record, current, now)
	if err != nil {
		return models.Delivery{}, err
	}

	if err := s.ledger.Append(ctx, deviceID, record, decision, now); err != nil {
		if errors.Is(err, ledger.ErrDuplicateEntry) {
			return models.Delivery{}, err
		}
		log.Error().Err(err).Msg("failed to record notification in history")
	}

	badge := 0
	if decision.SetBadge {
		if badge, err = s.ledger.BadgeCount(ctx, deviceID); err != nil {
			log.Warn().Err(err).Msg("failed to compute badge count")
		}
	}

	status := models.DeliveryStatusSuppressed
	if decision.ShowAlert {
		status = models.DeliveryStatusDelivered
	}
	delivery := models.Delivery{
		NotificationID: record.ID,
		Status:         status,
		Decision:       decision,
		Badge:          badge,
	}

	if decision.ShowAlert || decision.SetBadge {
		d := Dispatch{DeviceID: deviceID, Record: record, Decision: decision, Badge: badge}
		for _, notifier := range s.notifiers {
			if err := notifier.Notify(ctx, d); err != nil {
				logNotifyError(s.logger, err, notifierChannelName(notifier), d)
			}
		}
	}

	log.Info().
		Str("status", string(status)).
		Str("priority", record.Priority.String()).
		Str("os_priority", string(decision.EffectivePriority)).
		Msg("notification processed")
	return delivery, nil
}

func (s *service) Inbox(ctx context.Context, deviceID string) (Inbox, error) {
	entries, err := s.ledger.List(ctx, deviceID)
	if err != nil {
		return Inbox{}, pkgerrors.Wrap(err, "failed to list notification history")
	}
	unread := 0
	for _, e := range entries {
		if !e.Record.Read {
			unread++
		}
	}
	return Inbox{Entries: entries, Unread: unread}, nil
}

func (s *service) MarkRead(ctx context.Context, deviceID, id string) error {
	return s.ledger.MarkRead(ctx, deviceID, id)
}

func (s *service) MarkAllRead(ctx context.Context, deviceID string) error {
	return s.ledger.MarkAllRead(ctx, deviceID)
}

func (s *service) Delete(ctx context.Context, deviceID, id string) error {
	return s.ledger.Delete(ctx, deviceID, id)
}

func (s *service) Clear(ctx context.Context, deviceID string) error {
	return s.ledger.Clear(ctx, deviceID)
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
