package stores

import "time"

// RunStatus is the lifecycle state of one recorded invocation.
type RunStatus string

const (
	RunStatusRunning    RunStatus = "running"
	RunStatusSucceeded  RunStatus = "succeeded"
	RunStatusFailed     RunStatus = "failed"
	RunStatusRolledBack RunStatus = "rolled_back"
)

// Run is one provision or decommission invocation. This is an audit trail
// only: rollback state never lives here, and site status is always
// reconstructed from the live resources.
type Run struct {
	ID          string     `json:"id"`
	Operation   string     `json:"operation"` // provision, decommission
	SiteID      string     `json:"site_id"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
}

// Event is one step observation within a run.
type Event struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Step      string    `json:"step"`
	Action    string    `json:"action"` // apply, compensate, remove
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
