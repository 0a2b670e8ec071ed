package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskPasswordExpiryScan warns users whose passwords expire soon.
	TaskPasswordExpiryScan = "user:password_expiry_scan"
	// TaskStaleProjectScan snapshots projects with no recent activity.
	TaskStaleProjectScan = "project:stale_scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewPasswordExpiryScanTask constructs the daily password expiry scan task.
func NewPasswordExpiryScanTask() *asynq.Task {
	return asynq.NewTask(TaskPasswordExpiryScan, nil)
}

// NewStaleProjectScanTask constructs the daily stale project scan task.
func NewStaleProjectScanTask() *asynq.Task {
	return asynq.NewTask(TaskStaleProjectScan, nil)
}
