package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowforge/pkg/cmd"
	"github.com/dukex/flowforge/pkg/config"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workflowYAML = `
id: greet
name: Greet
user_id: user-1
webhook_id: greet-hook
nodes:
  - id: trigger
    type: TRIGGER
  - id: check
    type: CONDITIONAL
    position: 1
    config:
      left_value: $.name
      operator: not_equals
      right_value: ""
  - id: named
    type: TRIGGER
    position: 2
edges:
  - id: e1
    source_node_id: trigger
    target_node_id: check
  - id: e2
    source_node_id: check
    target_node_id: named
    source_handle: "true"
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	command := NewCommand()
	command.Writer = &out

	err := command.Run(context.Background(), append([]string{"flowforge"}, args...))

	return out.String(), err
}

func TestCLI_ImportValidateRun(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(t.TempDir(), "greet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(workflowYAML), 0o600))

	global := []string{"--database-url", "file://" + dataDir, "--event-bus", "none", "--log-level", "error"}

	out, err := runCLI(t, append(global, "import", "--file", path)...)
	require.NoError(t, err)
	assert.Equal(t, "imported workflow greet (Greet)\n", out)

	out, err = runCLI(t, append(global, "validate", "--workflow-id", "greet")...)
	require.NoError(t, err)
	assert.Equal(t, "workflow greet is valid\n", out)

	out, err = runCLI(t, append(global, "run", "--workflow-id", "greet", "--input", `{"name":"Ada"}`)...)
	require.NoError(t, err)

	var output map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	assert.Equal(t, map[string]any{"name": "Ada"}, output)
}

func TestCLI_RunErrors(t *testing.T) {
	global := []string{"--database-url", "file://" + t.TempDir(), "--event-bus", "none", "--log-level", "error"}

	_, err := runCLI(t, append(global, "run", "--workflow-id", "missing")...)
	assert.ErrorContains(t, err, "workflow not found")

	_, err = runCLI(t, append(global, "run", "--workflow-id", "x", "--input", "{bad")...)
	assert.ErrorContains(t, err, "invalid --input")

	_, err = runCLI(t, append(global, "import", "--file", "/does/not/exist.yaml")...)
	assert.Error(t, err)
}

func setupTestAPI(t *testing.T) *API {
	t.Helper()

	cfg := config.Default()
	cfg.Runtime.DatabaseURL = "file://" + t.TempDir()
	cfg.Runtime.EventBus = "gochannel"

	engine, err := cmd.NewEngine(context.Background(), cfg, log.Discard())
	require.NoError(t, err)

	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	require.NoError(t, subscribeRunEvents(t.Context(), engine.EventBus, log.Discard()))

	return NewAPI(log.Discard(), engine)
}

func TestAPI_RootAndProbes(t *testing.T) {
	app := setupTestAPI(t).App()

	for path, expected := range map[string]string{"/": "FlowForge API", "/livez": "OK", "/readyz": "OK"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, expected, string(body), path)
	}
}

func TestAPI_UnknownWebhook(t *testing.T) {
	api := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/none", bytes.NewBufferString(`{"input":1}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := api.App().Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
