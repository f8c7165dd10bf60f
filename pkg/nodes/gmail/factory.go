package gmail

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// NodeFactory creates GMAIL nodes.
type NodeFactory struct{}

// NewNodeFactory creates a new factory instance.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{}
}

func (f *NodeFactory) Create(deps protocol.Dependencies) (protocol.Node, error) {
	return NewNode(deps.Credentials, deps.Config.Google.GmailEndpoint, deps.HTTPClient, deps.Logger), nil
}

func (f *NodeFactory) ID() models.NodeType {
	return models.NodeTypeGmail
}

func (f *NodeFactory) Name() string {
	return "Gmail"
}

func (f *NodeFactory) Description() string {
	return "Reads messages matching a search query or sends a plain-text email from the connected account"
}

func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{ActionRead, ActionSend},
			},
			"query": map[string]any{
				"type":        "string",
				"description": "Gmail search query used by READ.",
				"examples":    []string{"in:inbox is:unread"},
			},
			"max_results": map[string]any{
				"type":        []string{"number", "string"},
				"description": "Messages returned by READ, truncated and clamped to 1..50.",
				"default":     DefaultMaxResults,
			},
			"to": map[string]any{
				"type":     "string",
				"examples": []string{"{{input.to}}"},
			},
			"subject": map[string]any{
				"type":     "string",
				"examples": []string{"{{input.subject}}"},
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Message body. Defaults to the node input as JSON.",
				"examples":    []string{"{{input.body}}"},
			},
		},
		"required": []string{"action"},
	}
}
