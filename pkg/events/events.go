// Package events defines the run lifecycle notifications published on the event bus.
package events

import (
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every run lifecycle event.
const Topic = "flowforge.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowRunStartedEvent   EventType = "workflow.run.started"
	WorkflowRunCompletedEvent EventType = "workflow.run.completed"
	WorkflowRunFailedEvent    EventType = "workflow.run.failed"
	NodeRunCompletedEvent     EventType = "node.run.completed"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	RunID      string    `json:"run_id"`
	UserID     string    `json:"user_id,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID, runID, userID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		RunID:      runID,
		UserID:     userID,
	}
}

// WorkflowRunStarted is published once the run record exists.
type WorkflowRunStarted struct {
	BaseEvent

	Input any `json:"input,omitempty"`
}

func (w WorkflowRunStarted) GetType() EventType {
	return WorkflowRunStartedEvent
}

type WorkflowRunCompleted struct {
	BaseEvent

	Output     any   `json:"output,omitempty"`
	DurationMs int64 `json:"duration_ms"`
}

func (w WorkflowRunCompleted) GetType() EventType {
	return WorkflowRunCompletedEvent
}

type WorkflowRunFailed struct {
	BaseEvent

	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

func (w WorkflowRunFailed) GetType() EventType {
	return WorkflowRunFailedEvent
}

// NodeRunCompleted is published after each executed node, successful or not.
type NodeRunCompleted struct {
	BaseEvent

	NodeID     string           `json:"node_id"`
	NodeType   models.NodeType  `json:"node_type"`
	Status     models.RunStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

func (n NodeRunCompleted) GetType() EventType {
	return NodeRunCompletedEvent
}

// New returns an empty event value for eventType, or nil if unknown.
func New(eventType EventType) any {
	switch eventType {
	case WorkflowRunStartedEvent:
		return &WorkflowRunStarted{}
	case WorkflowRunCompletedEvent:
		return &WorkflowRunCompleted{}
	case WorkflowRunFailedEvent:
		return &WorkflowRunFailed{}
	case NodeRunCompletedEvent:
		return &NodeRunCompleted{}
	default:
		return nil
	}
}
