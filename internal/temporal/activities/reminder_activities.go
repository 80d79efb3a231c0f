package activities

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/stanstork/agri-notify/internal/ledger"
	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/notification"
	"github.com/stanstork/agri-notify/internal/temporal"
)

type Activities struct {
	Notifications notification.Service
	// Now defaults to time.Now; expiry and quiet hours are judged at fire time.
	Now func() time.Time
}

func (a *Activities) DeliverReminderActivity(ctx context.Context, params temporal.ReminderParams) (models.Delivery, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Delivering reminder", "deviceID", params.DeviceID, "notificationID", params.Record.ID)

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	delivery, err := a.Notifications.Deliver(ctx, params.DeviceID, params.Record, now())
	switch {
	case err == nil:
		logger.Info("Reminder processed", "status", string(delivery.Status))
		return delivery, nil
	case errors.Is(err, ledger.ErrDuplicateEntry), errors.Is(err, models.ErrInvalidRecord):
		// a retry cannot fix these
		return models.Delivery{}, sdktemporal.NewNonRetryableApplicationError(err.Error(), "ReminderRejected", err)
	default:
		logger.Error("Failed to deliver reminder", "error", err)
		return models.Delivery{}, err
	}
}
