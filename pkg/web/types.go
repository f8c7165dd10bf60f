// Package web provides the HTTP surface of the workflow engine: workflow
// management, manual and webhook runs, chat event callbacks and document indexing.
package web

// RunWorkflowRequest is the body of a manual run.
type RunWorkflowRequest struct {
	UserID string `json:"user_id"`
	Input  any    `json:"input"`
}

// RunResponse is returned by manual and webhook runs.
type RunResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"run_id,omitempty"`
	Output  any    `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// chatEnvelope is the outer body of a chat provider callback.
type chatEnvelope struct {
	Type      string    `json:"type"`
	Challenge string    `json:"challenge"`
	TeamID    string    `json:"team_id"`
	EventID   string    `json:"event_id"`
	Event     chatEvent `json:"event"`
}

type chatEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Channel string `json:"channel"`
	User    string `json:"user"`
	Text    string `json:"text"`
	BotID   string `json:"bot_id"`
	Team    string `json:"team"`
}
