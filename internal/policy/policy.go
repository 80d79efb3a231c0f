// Package policy decides whether and how a notification is surfaced.
//
// Decide is a pure function of its arguments: it reads no clock, holds no state
// and may be called from any goroutine.
package policy

import (
	"errors"
	"time"

	"github.com/stanstork/agri-notify/internal/models"
)

// ErrInvalidClock is returned when the caller does not supply the current time.
var ErrInvalidClock = errors.New("policy: current time is required")

var (
	suppressAll = models.Decision{EffectivePriority: models.OSPriorityNone}
	badgeOnly   = models.Decision{SetBadge: true, EffectivePriority: models.OSPriorityNone}
)

// Decide evaluates record against settings at now. Rules are applied in order and
// the first match wins. Expired records must be filtered out by the caller.
func Decide(record models.Record, settings models.Settings, now time.Time) (models.Decision, error) {
	if now.IsZero() {
		return models.Decision{}, ErrInvalidClock
	}

	if !settings.Enabled {
		return suppressAll, nil
	}

	// A disabled category still bumps the badge so suppressed activity stays discoverable.
	if !settings.IsCategoryEnabled(record.Category) {
		return badgeOnly, nil
	}

	if record.Priority != models.PriorityUrgent && settings.QuietHours.Enabled && IsQuietNow(settings.QuietHours, now) {
		return badgeOnly, nil
	}

	if record.Priority == models.PriorityUrgent {
		return models.Decision{
			ShowAlert:         true,
			PlaySound:         true,
			SetBadge:          true,
			EffectivePriority: models.OSPriorityHigh,
		}, nil
	}

	return models.Decision{
		ShowAlert:         true,
		PlaySound:         settings.Sound,
		SetBadge:          true,
		EffectivePriority: models.OSPriorityDefault,
	}, nil
}

// IsQuietNow reports whether now falls inside the window, ignoring q.Enabled.
// Both bounds are inclusive; end <= start wraps midnight.
func IsQuietNow(q models.QuietHours, now time.Time) bool {
	if q.Timezone != "" {
		if loc, err := time.LoadLocation(q.Timezone); err == nil {
			now = now.In(loc)
		}
	}
	m := models.ClockTimeOf(now)
	if q.End <= q.Start {
		return m >= q.Start || m <= q.End
	}
	return m >= q.Start && m <= q.End
}
