package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/nodes/conditional"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/template"
)

// templatedTypes have their config resolved against {input} before dispatch.
var templatedTypes = map[models.NodeType]bool{
	models.NodeTypeHTTPRequest: true,
	models.NodeTypeGmail:       true,
	models.NodeTypeSlack:       true,
}

// dispatch runs node and returns the output to record on its node run and the
// value that flows to its children. They differ only for CONDITIONAL nodes.
func (e *Executor) dispatch(ctx context.Context, state *runState, node *models.WorkflowNode, input any) (any, any, error) {
	impl, ok := e.nodes[node.Type]
	if !ok {
		return nil, nil, &registry.UnsupportedNodeTypeError{Type: node.Type}
	}

	config := node.Config
	if templatedTypes[node.Type] {
		resolved, ok := template.Resolve(node.Config, map[string]any{"input": input}).(map[string]any)
		if ok {
			config = resolved
		}
	}

	output, err := impl.Execute(ctx, protocol.Request{
		NodeID:        node.ID,
		Config:        config,
		Input:         input,
		UserID:        state.run.UserID,
		WorkflowInput: state.run.Input,
	})
	if err != nil {
		return nil, nil, err
	}

	if node.Type != models.NodeTypeConditional {
		output, err = jsonValue(output)
		if err != nil {
			return nil, nil, fmt.Errorf("node %s returned a non-JSON output: %w", node.ID, err)
		}

		return output, output, nil
	}

	result, ok := output.(conditional.Result)
	if !ok {
		return nil, nil, fmt.Errorf("conditional node %s returned %T", node.ID, output)
	}

	return result, result.Passthrough, nil
}

// jsonValue converts typed node outputs (structs, typed slices and maps) into
// the map[string]any / []any shape that field paths and placeholders walk.
// Values already in that shape are returned as is.
func jsonValue(value any) (any, error) {
	if isJSONShaped(value) {
		return value, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var out any

	err = json.Unmarshal(raw, &out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func isJSONShaped(value any) bool {
	switch v := value.(type) {
	case nil, string, bool, json.Number,
		float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case map[string]any:
		for _, item := range v {
			if !isJSONShaped(item) {
				return false
			}
		}

		return true
	case []any:
		for _, item := range v {
			if !isJSONShaped(item) {
				return false
			}
		}

		return true
	default:
		return false
	}
}
