package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	tc "go.temporal.io/sdk/client"

	"github.com/stanstork/agri-notify/internal/models"
	"github.com/stanstork/agri-notify/internal/temporal"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) ExecuteWorkflow(ctx context.Context, options tc.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tc.WorkflowRun, error) {
	ret := m.Called(ctx, options, workflow, args)
	run, _ := ret.Get(0).(tc.WorkflowRun)
	return run, ret.Error(1)
}

func (m *mockClient) CancelWorkflow(ctx context.Context, workflowID string, runID string) error {
	return m.Called(ctx, workflowID, runID).Error(0)
}

type fakeRun struct {
	tc.WorkflowRun
	id string
}

func (r fakeRun) GetID() string    { return r.id }
func (r fakeRun) GetRunID() string { return "run-1" }

func TestScheduleStartsReminderWorkflow(t *testing.T) {
	client := &mockClient{}
	s := NewScheduler(client, "", zerolog.Nop())
	fireAt := time.Date(2024, 9, 1, 6, 30, 0, 0, time.UTC)

	var captured temporal.ReminderParams
	client.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(o tc.StartWorkflowOptions) bool {
			return o.TaskQueue == temporal.ReminderTaskQueue &&
				o.ID == temporal.ReminderWorkflowID("dev-1", "rem-7") &&
				o.WorkflowExecutionErrorWhenAlreadyStarted
		}),
		mock.Anything, mock.Anything,
	).Run(func(args mock.Arguments) {
		captured = args.Get(3).([]interface{})[0].(temporal.ReminderParams)
	}).Return(fakeRun{id: "agri-reminder-dev-1-rem-7"}, nil)

	id, err := s.Schedule(context.Background(), "dev-1", models.Record{
		ID:    "rem-7",
		Title: "Spray the tomatoes",
		Body:  "Late blight risk is high after this week's rain.",
	}, fireAt)
	require.NoError(t, err)
	assert.Equal(t, "rem-7", id)
	assert.Equal(t, models.CategoryReminder, captured.Record.Category)
	assert.True(t, fireAt.Equal(captured.FireAt))
	client.AssertExpectations(t)
}

func TestScheduleGeneratesIDAndValidates(t *testing.T) {
	client := &mockClient{}
	s := NewScheduler(client, "custom-queue", zerolog.Nop())
	client.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fakeRun{id: "wf"}, nil)

	id, err := s.Schedule(context.Background(), "dev-1", models.Record{Title: "t", Body: "b"}, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.Schedule(context.Background(), "dev-1", models.Record{Title: "t"}, time.Now())
	require.ErrorIs(t, err, models.ErrInvalidRecord)
	_, err = s.Schedule(context.Background(), "dev-1", models.Record{Title: "t", Body: "b"}, time.Time{})
	require.Error(t, err)
	client.AssertNumberOfCalls(t, "ExecuteWorkflow", 1)
}

func TestScheduleWrapsClientErrors(t *testing.T) {
	client := &mockClient{}
	s := NewScheduler(client, "", zerolog.Nop())
	client.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("frontend unavailable"))

	_, err := s.Schedule(context.Background(), "dev-1", models.Record{Title: "t", Body: "b"}, time.Now())
	require.ErrorContains(t, err, "frontend unavailable")
}

func TestCancelIsScopedToDevice(t *testing.T) {
	client := &mockClient{}
	s := NewScheduler(client, "", zerolog.Nop())
	client.On("CancelWorkflow", mock.Anything, "agri-reminder-dev-1-rem-7", "").Return(nil)

	require.NoError(t, s.Cancel(context.Background(), "dev-1", "rem-7"))
	client.AssertExpectations(t)
}

func TestScheduleRejectsPendingReminderID(t *testing.T) {
	client := &mockClient{}
	s := NewScheduler(client, "", zerolog.Nop())
	client.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &serviceerror.WorkflowExecutionAlreadyStarted{Message: "workflow execution already started"})

	_, err := s.Schedule(context.Background(), "dev-1", models.Record{ID: "rem-7", Title: "t", Body: "b"}, time.Now())
	require.ErrorIs(t, err, ErrAlreadyScheduled)
}
