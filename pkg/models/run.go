package models

import "time"

// RunStatus defines the lifecycle states of workflow and node runs.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailed
}

// WorkflowRun is one execution instance of a workflow against an input.
// It is created RUNNING and mutated exactly once to a terminal status.
type WorkflowRun struct {
	ID          string     `json:"id"`
	WorkflowID  string     `json:"workflow_id"`
	UserID      string     `json:"user_id"`
	Input       any        `json:"input"`
	Output      any        `json:"output,omitempty"`
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NodeRun is the audit record of a single executed node. Pruned nodes have none.
type NodeRun struct {
	ID            string     `json:"id"`
	WorkflowRunID string     `json:"workflow_run_id"`
	NodeID        string     `json:"node_id"`
	Input         any        `json:"input"`
	Output        any        `json:"output,omitempty"`
	Status        RunStatus  `json:"status"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
