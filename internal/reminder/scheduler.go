// Package reminder schedules locally-triggered notifications, such as
// vaccination or irrigation reminders, as durable Temporal workflows.
package reminder

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.temporal.io/api/serviceerror"
	tc "go.temporal.io/sdk/client"

	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/temporal"
	"github.com/stanstork/agri-notify/internal/temporal/workflows"
)

// ErrAlreadyScheduled is returned when a reminder with the same id is still pending.
var ErrAlreadyScheduled = stderrors.New("reminder: already scheduled")

// WorkflowClient is the part of the Temporal client the scheduler uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tc.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tc.WorkflowRun, error)
	CancelWorkflow(ctx context.Context, workflowID string, runID string) error
}

type Scheduler struct {
	client    WorkflowClient
	taskQueue string
	logger    zerolog.Logger
}

func NewScheduler(client WorkflowClient, taskQueue string, logger zerolog.Logger) *Scheduler {
	if taskQueue == "" {
		taskQueue = temporal.ReminderTaskQueue
	}
	return &Scheduler{
		client:    client,
		taskQueue: taskQueue,
		logger:    logger.With().Str("component", "reminder_scheduler").Logger(),
	}
}

// Schedule starts a workflow that delivers record to deviceID at fireAt and
// returns the reminder id. Records without an id get one; the category
// defaults to reminder.
func (s *Scheduler) Schedule(ctx context.Context, deviceID string, record models.Record, fireAt time.Time) (string, error) {
	if deviceID == "" {
		return "", fmt.Errorf("device id is required")
	}
	if fireAt.IsZero() {
		return "", fmt.Errorf("fire time is required")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Category == "" {
		record.Category = models.CategoryReminder
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = fireAt
	}
	if err := record.Validate(); err != nil {
		return "", err
	}

	options := tc.StartWorkflowOptions{
		ID:        temporal.ReminderWorkflowID(deviceID, record.ID),
		TaskQueue: s.taskQueue,

		// Without this a pending workflow is returned as if it had been started.
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	params := temporal.ReminderParams{DeviceID: deviceID, FireAt: fireAt.UTC(), Record: record}

	run, err := s.client.ExecuteWorkflow(ctx, options, workflows.ReminderWorkflow, params)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if stderrors.As(err, &started) {
			return "", ErrAlreadyScheduled
		}
		return "", errors.Wrap(err, "failed to start reminder workflow")
	}

	s.logger.Info().
		Str("device_id", deviceID).
		Str("notification_id", record.ID).
		Str("workflow_id", run.GetID()).
		Time("fire_at", fireAt).
		Msg("reminder scheduled")
	return record.ID, nil
}

// Cancel drops a pending reminder. Only reminders of deviceID can be reached.
func (s *Scheduler) Cancel(ctx context.Context, deviceID, reminderID string) error {
	if err := s.client.CancelWorkflow(ctx, temporal.ReminderWorkflowID(deviceID, reminderID), ""); err != nil {
		return errors.Wrap(err, "failed to cancel reminder workflow")
	}
	s.logger.Info().Str("device_id", deviceID).Str("notification_id", reminderID).Msg("reminder cancelled")
	return nil
}
