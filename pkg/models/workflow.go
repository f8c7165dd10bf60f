// Package models defines the core domain models for graph-based workflow automation.
package models

import "time"

// Workflow is the owner record of a node graph. Nodes and edges are loaded
// separately through the graph source.
type Workflow struct {
	ID          string          `json:"id"                    yaml:"id"                    validate:"required"`
	Name        string          `json:"name"                  yaml:"name"                  validate:"required,min=1"`
	UserID      string          `json:"user_id"               yaml:"user_id"               validate:"required"`
	WebhookID   string          `json:"webhook_id,omitempty"  yaml:"webhook_id,omitempty"`
	Nodes       []*WorkflowNode `json:"nodes"                 yaml:"nodes"                 validate:"dive"`
	Edges       []*WorkflowEdge `json:"edges"                 yaml:"edges"                 validate:"dive"`
	CreatedAt   time.Time       `json:"created_at"            yaml:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"            yaml:"updated_at,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}
