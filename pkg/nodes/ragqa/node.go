// Package ragqa implements the RAG_QA node: retrieve context for a question,
// then answer it with the generative text provider. Failures propagate.
package ragqa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/nodes"
	"github.com/dukex/flowforge/pkg/protocol"
)

// DefaultTopK is the number of chunks retrieved when top_k is unset.
const DefaultTopK = 5

// ErrMissingQuestion is returned when the input carries no question.
var ErrMissingQuestion = errors.New("RAG_QA input has no question")

// Config is the typed configuration of a RAG_QA node.
type Config struct {
	PromptTemplate string `json:"prompt_template"`
	TopK           int    `json:"top_k,omitempty"`
}

// Node implements RAG_QA.
type Node struct {
	retriever protocol.Retriever
	generator protocol.Generator
	logger    *slog.Logger
}

// NewNode creates a RAG node.
func NewNode(retriever protocol.Retriever, generator protocol.Generator, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}

	return &Node{retriever: retriever, generator: generator, logger: logger.With("module", "rag_qa")}
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeRAGQA
}

// Execute answers the question found in the input using the user's documents.
// The answer is nil when the provider returns no text.
func (n *Node) Execute(ctx context.Context, req protocol.Request) (any, error) {
	var cfg Config

	err := nodes.DecodeConfig(req.Config, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.PromptTemplate == "" {
		return nil, nodes.MissingConfig(models.NodeTypeRAGQA, "prompt_template")
	}

	if n.retriever == nil || n.generator == nil {
		return nil, fmt.Errorf("RAG_QA node has no retriever or generator configured")
	}

	question, ok := Question(req.Input)
	if !ok {
		return nil, ErrMissingQuestion
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	retrieved, err := n.retriever.RetrieveContext(ctx, req.UserID, question, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	n.logger.DebugContext(ctx, "retrieved context", "node_id", req.NodeID, "user_id", req.UserID, "top_k", topK)

	prompt := RenderPrompt(cfg.PromptTemplate, retrieved, question)

	answer, err := n.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if answer == "" {
		return nil, nil
	}

	return answer, nil
}

// Question extracts the question: the input itself when it is a string,
// otherwise its "question" field.
func Question(input any) (string, bool) {
	switch v := input.(type) {
	case string:
		return v, true
	case map[string]any:
		q, ok := v["question"].(string)

		return q, ok
	default:
		return "", false
	}
}

// RenderPrompt replaces the first {{context}} and the first {{question}} token.
func RenderPrompt(promptTemplate, retrieved, question string) string {
	prompt := strings.Replace(promptTemplate, "{{context}}", retrieved, 1)

	return strings.Replace(prompt, "{{question}}", question, 1)
}
