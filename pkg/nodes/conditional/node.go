package conditional

import (
	"context"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// Node implements protocol.Node for conditional branching. Its output is a
// Result; the scheduler reads Result.Branch to prune the non-taken edges.
type Node struct{}

// NewNode creates a new conditional node.
func NewNode() *Node {
	return &Node{}
}

// Type returns the node type.
func (n *Node) Type() models.NodeType {
	return models.NodeTypeConditional
}

// Execute validates the config and evaluates it against the node input.
func (n *Node) Execute(_ context.Context, req protocol.Request) (any, error) {
	cfg, err := ParseConfig(req.Config)
	if err != nil {
		return nil, err
	}

	return Branch(cfg, req.Input)
}
