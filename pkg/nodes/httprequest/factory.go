package httprequest

import (
	"net/http"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
)

// NodeFactory creates HTTP_REQUEST nodes.
type NodeFactory struct{}

// NewNodeFactory creates a new HTTP request node factory.
func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{}
}

// Create creates a node sharing the dependency HTTP client. When none is given a
// client with the configured timeout is built.
func (f *NodeFactory) Create(deps protocol.Dependencies) (protocol.Node, error) {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: deps.Config.WithDefaults().HTTPTimeout}
	}

	return NewNode(client, deps.Logger), nil
}

func (f *NodeFactory) ID() models.NodeType {
	return models.NodeTypeHTTPRequest
}

func (f *NodeFactory) Name() string {
	return "HTTP Request"
}

func (f *NodeFactory) Description() string {
	return "Calls an HTTP endpoint with the node input and returns the JSON response"
}

// Schema returns the JSON schema for HTTP request node configuration.
func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "URL to call. Supports {{input}} and {{input.field}} placeholders.",
				"examples": []string{
					"https://api.example.com/items",
					"https://api.example.com/users/{{input.user_id}}",
				},
			},
			"method": map[string]any{
				"type":    "string",
				"default": DefaultMethod,
				"enum":    []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "get", "post", "put", "delete", "patch"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body": map[string]any{
				"description": "When an object, it is sent as JSON with the node input merged under \"input\".",
			},
			"response_path": map[string]any{
				"type":        "string",
				"description": "Dot-separated path narrowing the JSON response.",
				"examples":    []string{"data.id", "items.0.name"},
			},
		},
		"required": []string{"url"},
	}
}
