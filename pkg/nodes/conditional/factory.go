package conditional

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// NodeFactory creates conditional Node instances.
type NodeFactory struct{}

// NewNodeFactory creates a new factory instance.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{}
}

// Create creates a new Node instance.
func (f *NodeFactory) Create(_ protocol.Dependencies) (protocol.Node, error) {
	return NewNode(), nil
}

// ID returns the factory ID.
func (f *NodeFactory) ID() models.NodeType {
	return models.NodeTypeConditional
}

// Name returns the factory name.
func (f *NodeFactory) Name() string {
	return "Conditional"
}

// Description returns the factory description.
func (f *NodeFactory) Description() string {
	return "Compares two operands and routes execution to the true or false branch."
}

// Schema returns the JSON schema for Conditional node configuration.
func (f *NodeFactory) Schema() map[string]any {
	operators := make([]string, len(Operators))
	for i, op := range Operators {
		operators[i] = string(op)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"left_value": map[string]any{
				"description": "Left operand. Strings starting with $. read a field from the node input.",
				"examples":    []string{"$.status", "$.order.total"},
			},
			"operator": map[string]any{
				"type": "string",
				"enum": operators,
			},
			"right_value": map[string]any{
				"description": "Right operand. Numeric strings and true/false/null are converted to literals.",
				"examples":    []string{"ok", "100", "true"},
			},
		},
		"required": []string{"left_value", "operator", "right_value"},
	}
}
