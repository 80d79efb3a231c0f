package temporal

import (
	"time"

	"github.com/stanstork/agri-notify/internal/models"
)

// ReminderTaskQueue is the default task queue for reminder workflows.
const ReminderTaskQueue = "AGRI_NOTIFY_REMINDERS"

// ReminderWorkflowIDPrefix starts every reminder workflow id.
const ReminderWorkflowIDPrefix = "agri-reminder-"

// DefaultActivityTimeout bounds a single delivery attempt.
const DefaultActivityTimeout = 30 * time.Second

// ReminderParams is the input of ReminderWorkflow.
type ReminderParams struct {
	DeviceID string
	FireAt   time.Time
	Record   models.Record
}

// ReminderWorkflowID scopes a reminder id to its device.
func ReminderWorkflowID(deviceID, reminderID string) string {
	return ReminderWorkflowIDPrefix + deviceID + "-" + reminderID
}
