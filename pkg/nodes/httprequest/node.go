// Package httprequest implements the HTTP_REQUEST node.
package httprequest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/nodes"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/dukex/flowforge/pkg/template"
)

// DefaultMethod is used when the config does not name one.
const DefaultMethod = http.MethodPost

// ErrResponsePathNotFound is matched by every ResponsePathNotFoundError.
var ErrResponsePathNotFound = errors.New("response path not found")

// HTTPError reports a non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP request failed with status %d: %s", e.StatusCode, e.Body)
}

// ResponsePathNotFoundError reports a response_path segment missing from the response.
type ResponsePathNotFoundError struct {
	Path string
}

func (e *ResponsePathNotFoundError) Error() string {
	return fmt.Sprintf("Response path %q not found", e.Path)
}

func (e *ResponsePathNotFoundError) Is(target error) bool {
	return target == ErrResponsePathNotFound
}

// Config is the typed configuration of an HTTP_REQUEST node.
type Config struct {
	URL          string            `json:"url"`
	Method       string            `json:"method,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         any               `json:"body,omitempty"`
	ResponsePath string            `json:"response_path,omitempty"`
}

// Node implements HTTP_REQUEST. Its config is expected to be template-resolved.
type Node struct {
	client *http.Client
	logger *slog.Logger
}

// NewNode creates an HTTP node. A nil client uses http.DefaultClient.
func NewNode(client *http.Client, logger *slog.Logger) *Node {
	if client == nil {
		client = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Node{client: client, logger: logger.With("module", "http_request")}
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeHTTPRequest
}

// Execute sends the request and returns the decoded JSON response, narrowed by
// response_path when set.
func (n *Node) Execute(ctx context.Context, req protocol.Request) (any, error) {
	var cfg Config

	err := nodes.DecodeConfig(req.Config, &cfg)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nodes.MissingConfig(models.NodeTypeHTTPRequest, "url")
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = DefaultMethod
	}

	body, err := requestBody(cfg.Body, req.Input)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	for key, value := range cfg.Headers {
		httpReq.Header.Set(key, value)
	}

	n.logger.DebugContext(ctx, "sending HTTP request", "node_id", req.NodeID, "method", method, "url", cfg.URL)

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTTP response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var result any

	if len(bytes.TrimSpace(data)) > 0 {
		err = json.Unmarshal(data, &result)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HTTP response as JSON: %w", err)
		}
	}

	if cfg.ResponsePath == "" {
		return result, nil
	}

	return Extract(result, cfg.ResponsePath)
}

// Extract walks the dot-separated path into value.
func Extract(value any, path string) (any, error) {
	current := value

	for _, segment := range strings.Split(path, ".") {
		next, ok := template.Lookup(current, []string{segment})
		if !ok {
			return nil, &ResponsePathNotFoundError{Path: path}
		}

		current = next
	}

	return current, nil
}

// requestBody merges the input under "input" when the configured body is an object.
func requestBody(configured any, input any) (io.Reader, error) {
	object, ok := configured.(map[string]any)
	if !ok {
		return nil, nil
	}

	merged := make(map[string]any, len(object)+1)
	for key, value := range object {
		merged[key] = value
	}

	merged["input"] = input

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode HTTP request body: %w", err)
	}

	return bytes.NewReader(data), nil
}
