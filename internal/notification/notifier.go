package notification

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stanstork/agri-notify/internal/models"
)

// Dispatch is what a platform adapter receives once the policy has decided.
type Dispatch struct {
	DeviceID string
	Record   models.Record
	Decision models.Decision
	// Badge is the device's unread count after the record was recorded.
	Badge int
}

type Notifier interface {
	Notify(ctx context.Context, d Dispatch) error
}

func sanitizeRecipients(recipients []string) []string {
	var cleaned []string
	for _, recipient := range recipients {
		if r := strings.TrimSpace(recipient); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	return cleaned
}

func logNotifyError(logger zerolog.Logger, err error, channel string, d Dispatch) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("device_id", d.DeviceID).
		Str("notification_id", d.Record.ID).
		Str("category", string(d.Record.Category)).
		Str("channel", channel).
		Msg("failed to deliver notification")
}
