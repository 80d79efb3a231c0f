package workflows

import (
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/temporal"
	"github.com/stanstork/agri-notify/internal/temporal/activities"
)

// ReminderWorkflow waits until params.FireAt and then delivers the reminder
// through the regular delivery pipeline. Cancelling the workflow while it
// sleeps drops the reminder.
func ReminderWorkflow(ctx workflow.Context, params temporal.ReminderParams) (models.Delivery, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			MaximumAttempts: 5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Reminder scheduled", "DeviceID", params.DeviceID, "NotificationID", params.Record.ID, "FireAt", params.FireAt)

	if wait := params.FireAt.Sub(workflow.Now(ctx)); wait > 0 {
		if err := workflow.Sleep(ctx, wait); err != nil {
			logger.Info("Reminder cancelled before firing.", "NotificationID", params.Record.ID)
			return models.Delivery{}, err
		}
	}

	var a *activities.Activities
	var delivery models.Delivery
	err := workflow.ExecuteActivity(ctx, a.DeliverReminderActivity, params).Get(ctx, &delivery)
	if err != nil {
		logger.Error("Failed to deliver reminder.", "error", err)
		return models.Delivery{}, err
	}

	logger.Info("Reminder delivered.", "NotificationID", params.Record.ID, "Status", string(delivery.Status))
	return delivery, nil
}
