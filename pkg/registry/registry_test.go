package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoNode struct{}

func (echoNode) Type() models.NodeType { return "ECHO" }

func (echoNode) Execute(_ context.Context, req protocol.Request) (any, error) { return req.Input, nil }

type echoFactory struct {
	createErr error
}

func (f echoFactory) Create(protocol.Dependencies) (protocol.Node, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	return echoNode{}, nil
}

func (echoFactory) ID() models.NodeType  { return "ECHO" }
func (echoFactory) Name() string         { return "Echo" }
func (echoFactory) Description() string  { return "Returns its input" }
func (echoFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
		"required": []string{"message"},
	}
}

func TestRegistry_RegisterAndBuild(t *testing.T) {
	registry := NewRegistry(nil)
	registry.RegisterNode(echoFactory{})

	built, err := registry.Build(protocol.Dependencies{})
	require.NoError(t, err)
	require.Contains(t, built, models.NodeType("ECHO"))

	out, err := built["ECHO"].Execute(context.Background(), protocol.Request{Input: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestRegistry_BuildError(t *testing.T) {
	registry := NewRegistry(nil)
	registry.RegisterNode(echoFactory{createErr: errors.New("boom")})

	_, err := registry.Build(protocol.Dependencies{})

	assert.ErrorContains(t, err, "boom")
}

func TestRegistry_Factory_Unsupported(t *testing.T) {
	_, err := NewRegistry(nil).Factory("LOOP")

	require.ErrorIs(t, err, ErrUnsupportedNodeType)
	assert.EqualError(t, err, "Unsupported node type: LOOP")
}

func TestRegistry_ValidateConfig(t *testing.T) {
	registry := NewRegistry(nil)
	registry.RegisterNode(echoFactory{})

	assert.NoError(t, registry.ValidateConfig("ECHO", map[string]any{"message": "hi"}))

	err := registry.ValidateConfig("ECHO", nil)
	var validationErr *ConfigValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.NotEmpty(t, validationErr.Errors)

	err = registry.ValidateConfig("ECHO", map[string]any{"message": 3})
	assert.Error(t, err)

	assert.ErrorIs(t, registry.ValidateConfig("NOPE", nil), ErrUnsupportedNodeType)
}

func TestRegistry_DefaultNodes(t *testing.T) {
	registry := NewRegistry(nil)
	registry.RegisterDefaultNodes()

	assert.Equal(t, []models.NodeType{
		models.NodeTypeAITransform,
		models.NodeTypeConditional,
		models.NodeTypeGmail,
		models.NodeTypeHTTPRequest,
		models.NodeTypeRAGQA,
		models.NodeTypeSlack,
		models.NodeTypeSlackTrigger,
		models.NodeTypeTrigger,
	}, registry.Types())

	built, err := registry.Build(protocol.Dependencies{})
	require.NoError(t, err)

	for nodeType, node := range built {
		assert.Equal(t, nodeType, node.Type())
	}

	descriptors := registry.Descriptors()
	require.Len(t, descriptors, 8)
	assert.Equal(t, "AI Transform", descriptors[0].Name)
}

func TestRegistry_DefaultNodeSchemas(t *testing.T) {
	registry := NewRegistry(nil)
	registry.RegisterDefaultNodes()

	valid := map[models.NodeType]map[string]any{
		models.NodeTypeTrigger:      {},
		models.NodeTypeSlackTrigger: {"team_id": "T1", "event_types": []any{"message"}, "channel": ""},
		models.NodeTypeAITransform:  {"prompt_template": "Transform the following input:\n\n{{input}}"},
		models.NodeTypeHTTPRequest:  {"url": "https://example.com/api", "method": "POST", "body": map[string]any{"input": "{{input}}"}},
		models.NodeTypeRAGQA:        {"top_k": 5.0, "prompt_template": "{{context}} {{question}}"},
		models.NodeTypeGmail:        {"action": "READ", "query": "in:inbox is:unread", "max_results": 5.0},
		models.NodeTypeSlack:        {"action": "SEND", "team_id": "", "channel": "", "text": "Hello from FlowForge"},
		models.NodeTypeConditional:  {"left_value": "$.status", "operator": "equals", "right_value": "ok"},
	}

	for nodeType, config := range valid {
		assert.NoError(t, registry.ValidateConfig(nodeType, config), nodeType)
	}

	assert.Error(t, registry.ValidateConfig(models.NodeTypeConditional, map[string]any{"left_value": "a", "operator": "matches", "right_value": "b"}))
	assert.Error(t, registry.ValidateConfig(models.NodeTypeHTTPRequest, map[string]any{"method": "GET"}))
	assert.Error(t, registry.ValidateConfig(models.NodeTypeGmail, map[string]any{"action": "DELETE"}))
}
