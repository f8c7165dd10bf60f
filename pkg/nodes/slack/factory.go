package slack

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// NodeFactory creates SLACK nodes.
type NodeFactory struct{}

// NewNodeFactory creates a new factory instance.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{}
}

func (f *NodeFactory) Create(deps protocol.Dependencies) (protocol.Node, error) {
	return NewNode(deps.Credentials, deps.Config.Slack.APIURL, deps.HTTPClient, deps.Logger), nil
}

func (f *NodeFactory) ID() models.NodeType {
	return models.NodeTypeSlack
}

func (f *NodeFactory) Name() string {
	return "Slack"
}

func (f *NodeFactory) Description() string {
	return "Posts a message to a Slack channel using the workspace bot token"
}

func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":    "string",
				"enum":    []string{ActionSend},
				"default": ActionSend,
			},
			"team_id": map[string]any{
				"type":        "string",
				"description": "Workspace id. Defaults to the triggering event's workspace.",
			},
			"channel": map[string]any{
				"type":        "string",
				"description": "Channel id. Defaults to the triggering event's channel.",
			},
			"text": map[string]any{
				"type":     "string",
				"examples": []string{"Hello from FlowForge", "Summary: {{input}}"},
			},
		},
	}
}
