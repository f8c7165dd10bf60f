package trigger

import (
	"context"
	"testing"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_Execute_Passthrough(t *testing.T) {
	input := map[string]any{"source": "slack", "text": "hi"}

	for _, factory := range []protocol.NodeFactory{NewNodeFactory(), NewSlackNodeFactory()} {
		node, err := factory.Create(protocol.Dependencies{})
		require.NoError(t, err)
		assert.Equal(t, factory.ID(), node.Type())

		out, err := node.Execute(context.Background(), protocol.Request{Input: input})
		require.NoError(t, err)
		assert.Equal(t, input, out)
	}
}

func TestNodeFactory_Metadata(t *testing.T) {
	assert.Equal(t, models.NodeTypeTrigger, NewNodeFactory().ID())
	assert.Equal(t, "Trigger", NewNodeFactory().Name())
	assert.Equal(t, models.NodeTypeSlackTrigger, NewSlackNodeFactory().ID())
	assert.Equal(t, "Slack Trigger", NewSlackNodeFactory().Name())

	props := NewSlackNodeFactory().Schema()["properties"].(map[string]any)
	assert.Contains(t, props, "team_id")
	assert.Contains(t, props, "event_types")
}
