package models

// NodeType identifies the behavior a workflow node dispatches to.
type NodeType string

const (
	NodeTypeTrigger      NodeType = "TRIGGER"
	NodeTypeSlackTrigger NodeType = "SLACK_TRIGGER" // external-trigger passthrough
	NodeTypeAITransform  NodeType = "AI_TRANSFORM"
	NodeTypeHTTPRequest  NodeType = "HTTP_REQUEST"
	NodeTypeRAGQA        NodeType = "RAG_QA"
	NodeTypeGmail        NodeType = "GMAIL"
	NodeTypeSlack        NodeType = "SLACK"
	NodeTypeConditional  NodeType = "CONDITIONAL"
)

// Branch handles used on edges leaving a CONDITIONAL node.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// WorkflowNode is a single typed unit of work. It is immutable during a run.
type WorkflowNode struct {
	ID       string         `json:"id"       yaml:"id"       validate:"required"`
	Type     NodeType       `json:"type"     yaml:"type"     validate:"required"`
	Config   map[string]any `json:"config"   yaml:"config"`
	Position int            `json:"position" yaml:"position"`
}

// WorkflowEdge is a directed dependency between two nodes. SourceHandle is only
// meaningful when the source is a CONDITIONAL node.
type WorkflowEdge struct {
	ID           string  `json:"id"                      yaml:"id"                      validate:"required"`
	SourceNodeID string  `json:"source_node_id"          yaml:"source_node_id"          validate:"required"`
	TargetNodeID string  `json:"target_node_id"          yaml:"target_node_id"          validate:"required"`
	SourceHandle *string `json:"source_handle,omitempty" yaml:"source_handle,omitempty"`
	TargetHandle *string `json:"target_handle,omitempty" yaml:"target_handle,omitempty"`
}

// IsSelfLoop reports whether the edge points back at its own source.
func (e *WorkflowEdge) IsSelfLoop() bool {
	return e.SourceNodeID == e.TargetNodeID
}

// Handle returns the source handle or an empty string.
func (e *WorkflowEdge) Handle() string {
	if e.SourceHandle == nil {
		return ""
	}

	return *e.SourceHandle
}
