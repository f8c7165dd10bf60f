package ragqa

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// NodeFactory creates RAG_QA nodes.
type NodeFactory struct{}

// NewNodeFactory creates a new factory instance.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{}
}

func (f *NodeFactory) Create(deps protocol.Dependencies) (protocol.Node, error) {
	return NewNode(deps.Retriever, deps.Generator, deps.Logger), nil
}

func (f *NodeFactory) ID() models.NodeType {
	return models.NodeTypeRAGQA
}

func (f *NodeFactory) Name() string {
	return "RAG Q&A"
}

func (f *NodeFactory) Description() string {
	return "Answers a question using the user's indexed documents as context"
}

func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt_template": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Prompt with {{context}} and {{question}} placeholders.",
				"examples":    []string{"Answer using the context.\n\nContext:\n{{context}}\n\nQuestion: {{question}}"},
			},
			"top_k": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 50,
				"default": DefaultTopK,
			},
		},
		"required": []string{"prompt_template"},
	}
}
