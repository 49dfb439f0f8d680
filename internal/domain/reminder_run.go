package domain

import "time"

// RunState is the persisted position of a reminder workflow execution.
// The run row is the only durable state the workflow needs: after a process
// restart any worker can pick the row up and continue from the stored
// offset index.
type RunState string

const (
	// RunPending means the run is ready to be advanced through its current offset.
	RunPending RunState = "pending"
	// RunSleeping means the run is suspended until WakeAt.
	RunSleeping RunState = "sleeping"
	// RunDispatching means a reminder email for the current offset is being sent.
	RunDispatching RunState = "dispatching"
	// RunDone means all offsets were processed or the run terminated early.
	RunDone RunState = "done"
	// RunFailed means a dispatch precondition failed and the run was aborted.
	RunFailed RunState = "failed"
)

// Terminal reports whether the run will never be advanced again.
func (s RunState) Terminal() bool {
	return s == RunDone || s == RunFailed
}

// ReminderRun is one workflow execution for one subscription. Exactly one
// logical run exists per subscription.
type ReminderRun struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	State          RunState  `json:"state"`
	OffsetIndex    int       `json:"offset_index"`
	WakeAt         time.Time `json:"wake_at"`
	LastError      string    `json:"last_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
