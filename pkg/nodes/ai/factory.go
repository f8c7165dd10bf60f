package ai

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// NodeFactory creates AI_TRANSFORM nodes.
type NodeFactory struct{}

// NewNodeFactory creates a new factory instance.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{}
}

// Create binds a node to the configured generator.
func (f *NodeFactory) Create(deps protocol.Dependencies) (protocol.Node, error) {
	return NewNode(deps.Generator, deps.Config.Gemini, deps.Logger), nil
}

// ID returns the factory ID.
func (f *NodeFactory) ID() models.NodeType {
	return models.NodeTypeAITransform
}

// Name returns the factory name.
func (f *NodeFactory) Name() string {
	return "AI Transform"
}

// Description returns the factory description.
func (f *NodeFactory) Description() string {
	return "Renders a prompt with the node input and returns the generated text. Falls back to a message when the provider is unavailable."
}

// Schema returns the JSON schema for AI_TRANSFORM configuration.
func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt_template": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Prompt sent to the model. {{input}} is replaced by the node input.",
				"examples":    []string{"Summarize the following:\n\n{{input}}"},
			},
			"fallback_message": map[string]any{
				"type":        "string",
				"description": "Returned when the provider stays unavailable after retries.",
			},
		},
		"required": []string{"prompt_template"},
	}
}
