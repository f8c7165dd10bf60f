// Package trigger implements the entry nodes of a workflow. Both trigger kinds
// pass their input through unchanged.
package trigger

import (
	"context"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// Node is an identity node.
type Node struct {
	nodeType models.NodeType
}

// NewNode creates a passthrough node reporting nodeType.
func NewNode(nodeType models.NodeType) *Node {
	return &Node{nodeType: nodeType}
}

func (n *Node) Type() models.NodeType {
	return n.nodeType
}

func (n *Node) Execute(_ context.Context, req protocol.Request) (any, error) {
	return req.Input, nil
}

// NodeFactory creates TRIGGER or SLACK_TRIGGER nodes.
type NodeFactory struct {
	nodeType models.NodeType
}

// NewNodeFactory creates the factory for manual and webhook triggers.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{nodeType: models.NodeTypeTrigger}
}

// NewSlackNodeFactory creates the factory for chat event triggers.
func NewSlackNodeFactory() protocol.NodeFactory {
	return &NodeFactory{nodeType: models.NodeTypeSlackTrigger}
}

func (f *NodeFactory) Create(_ protocol.Dependencies) (protocol.Node, error) {
	return NewNode(f.nodeType), nil
}

func (f *NodeFactory) ID() models.NodeType {
	return f.nodeType
}

func (f *NodeFactory) Name() string {
	if f.nodeType == models.NodeTypeSlackTrigger {
		return "Slack Trigger"
	}

	return "Trigger"
}

func (f *NodeFactory) Description() string {
	if f.nodeType == models.NodeTypeSlackTrigger {
		return "Starts the workflow from a Slack event. Emits the event payload unchanged."
	}

	return "Starts the workflow from a webhook or manual run. Emits the workflow input unchanged."
}

// Schema returns the JSON schema for the trigger configuration. SLACK_TRIGGER
// carries the filters used to match inbound events.
func (f *NodeFactory) Schema() map[string]any {
	if f.nodeType != models.NodeTypeSlackTrigger {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"team_id": map[string]any{
				"type":        "string",
				"description": "Only events from this workspace start the workflow.",
			},
			"channel": map[string]any{
				"type":        "string",
				"description": "Optional channel filter.",
			},
			"event_types": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Accepted event types. Defaults to message and app_mention.",
				"default":     DefaultSlackEventTypes,
			},
		},
	}
}

// DefaultSlackEventTypes are accepted when a SLACK_TRIGGER declares none.
var DefaultSlackEventTypes = []string{"message", "app_mention"}
