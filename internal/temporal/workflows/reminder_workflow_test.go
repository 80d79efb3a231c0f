package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/temporal"
	"github.com/stanstork/agri-notify/internal/temporal/activities"
)

func reminderParams(fireAt time.Time) temporal.ReminderParams {
	return temporal.ReminderParams{
		DeviceID: "dev-1",
		FireAt:   fireAt,
		Record: models.Record{
			ID:       "rem-1",
			Category: models.CategoryReminder,
			Priority: models.PriorityNormal,
			Title:    "Vaccinate the goats",
			Body:     "PPR booster is due for the east paddock herd.",
		},
	}
}

func TestReminderWorkflowFiresAtScheduledTime(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	a := &activities.Activities{}
	env.RegisterActivity(a)

	fireAt := env.Now().Add(6 * time.Hour)
	env.OnActivity(a.DeliverReminderActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, p temporal.ReminderParams) (models.Delivery, error) {
			assert.False(t, env.Now().Before(p.FireAt), "reminder fired early")
			return models.Delivery{NotificationID: p.Record.ID, Status: models.DeliveryStatusDelivered}, nil
		})

	env.ExecuteWorkflow(ReminderWorkflow, reminderParams(fireAt))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var delivery models.Delivery
	require.NoError(t, env.GetWorkflowResult(&delivery))
	assert.Equal(t, "rem-1", delivery.NotificationID)
	assert.Equal(t, models.DeliveryStatusDelivered, delivery.Status)
	env.AssertExpectations(t)
}

func TestReminderWorkflowPastFireTimeRunsImmediately(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	a := &activities.Activities{}
	env.RegisterActivity(a)
	env.OnActivity(a.DeliverReminderActivity, mock.Anything, mock.Anything).
		Return(models.Delivery{Status: models.DeliveryStatusSuppressed}, nil).Once()

	env.ExecuteWorkflow(ReminderWorkflow, reminderParams(env.Now().Add(-time.Hour)))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestReminderWorkflowCancelledWhileSleeping(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	a := &activities.Activities{}
	env.RegisterActivity(a)

	env.RegisterDelayedCallback(env.CancelWorkflow, time.Hour)
	env.ExecuteWorkflow(ReminderWorkflow, reminderParams(env.Now().Add(24*time.Hour)))

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertNotCalled(t, "DeliverReminderActivity", mock.Anything, mock.Anything)
}

func TestReminderWorkflowSurfacesActivityFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	a := &activities.Activities{}
	env.RegisterActivity(a)
	env.OnActivity(a.DeliverReminderActivity, mock.Anything, mock.Anything).
		Return(models.Delivery{}, errors.New("settings store unavailable"))

	env.ExecuteWorkflow(ReminderWorkflow, reminderParams(env.Now()))

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}
