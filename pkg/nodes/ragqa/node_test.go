package ragqa

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/flowforge/pkg/nodes"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) RetrieveContext(ctx context.Context, userID, question string, topK int) (string, error) {
	args := m.Called(ctx, userID, question, topK)

	return args.String(0), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)

	return args.String(0), args.Error(1)
}

const promptTemplate = "Context: {{context}}\nQ: {{question}}"

func TestNode_Execute(t *testing.T) {
	retriever := &mockRetriever{}
	retriever.On("RetrieveContext", mock.Anything, "user-1", "What is Go?", DefaultTopK).Return("Go is a language.", nil)

	generator := &mockGenerator{}
	generator.On("GenerateContent", mock.Anything, "Context: Go is a language.\nQ: What is Go?").Return("A language.", nil)

	node := NewNode(retriever, generator, nil)

	out, err := node.Execute(context.Background(), protocol.Request{
		Config: map[string]any{"prompt_template": promptTemplate},
		Input:  map[string]any{"question": "What is Go?"},
		UserID: "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "A language.", out)
	retriever.AssertExpectations(t)
	generator.AssertExpectations(t)
}

func TestNode_Execute_StringInputAndTopK(t *testing.T) {
	retriever := &mockRetriever{}
	retriever.On("RetrieveContext", mock.Anything, "u", "why?", 2).Return("ctx", nil)

	generator := &mockGenerator{}
	generator.On("GenerateContent", mock.Anything, mock.Anything).Return("", nil)

	out, err := NewNode(retriever, generator, nil).Execute(context.Background(), protocol.Request{
		Config: map[string]any{"prompt_template": promptTemplate, "top_k": 2},
		Input:  "why?",
		UserID: "u",
	})

	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestNode_Execute_GeneratorErrorPropagates(t *testing.T) {
	retriever := &mockRetriever{}
	retriever.On("RetrieveContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ctx", nil)

	generator := &mockGenerator{}
	generator.On("GenerateContent", mock.Anything, mock.Anything).Return("", errors.New("provider down"))

	_, err := NewNode(retriever, generator, nil).Execute(context.Background(), protocol.Request{
		Config: map[string]any{"prompt_template": promptTemplate},
		Input:  "q",
	})

	assert.EqualError(t, err, "provider down")
	generator.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestNode_Execute_Errors(t *testing.T) {
	node := NewNode(&mockRetriever{}, &mockGenerator{}, nil)

	_, err := node.Execute(context.Background(), protocol.Request{Config: map[string]any{}, Input: "q"})
	assert.ErrorIs(t, err, nodes.ErrMissingConfig)

	_, err = node.Execute(context.Background(), protocol.Request{
		Config: map[string]any{"prompt_template": promptTemplate},
		Input:  map[string]any{"text": "no question"},
	})
	assert.ErrorIs(t, err, ErrMissingQuestion)
}

func TestRenderPrompt_FirstOccurrenceOnly(t *testing.T) {
	out := RenderPrompt("{{context}} {{context}} {{question}}", "C", "Q")

	assert.Equal(t, "C {{context}} Q", out)
}
