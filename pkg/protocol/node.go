// Package protocol defines the interfaces and contracts for pluggable nodes.
package protocol

import (
	"context"

	"github.com/dukex/flowforge/pkg/models"
)

// Request carries everything a node needs for one execution.
type Request struct {
	// NodeID is the id of the workflow node being executed.
	NodeID string
	// Config is the node's configuration. For HTTP_REQUEST, GMAIL and SLACK
	// nodes every {{input}} placeholder is already resolved; other types get
	// it as stored and render their own templates.
	Config map[string]any
	// Input is the resolved node input (parent output, fan-in bundle or workflow input).
	Input any
	// UserID scopes retrieval and credential lookups.
	UserID string
	// WorkflowInput is the input the whole run was started with.
	WorkflowInput any
}

// Node executes one node type. Implementations hold no per-run state.
type Node interface {
	Type() models.NodeType
	Execute(ctx context.Context, req Request) (any, error)
}

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a new node instance bound to the given dependencies
	Create(deps Dependencies) (Node, error)

	// ID returns the node type this factory builds
	ID() models.NodeType

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}
