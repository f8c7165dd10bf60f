package postgresql_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/persistence/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDB(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"document_chunks", "credentials", "node_runs", "workflow_runs", "workflow_edges", "workflow_nodes", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"pgvector/pgvector:pg16",
			postgres.WithDatabase("flowforge_test"),
			postgres.WithUsername("flowforge"),
			postgres.WithPassword("flowforge"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDB(ctx, t, databaseURL)

	p, err := postgresql.NewPersistence(ctx, log.Discard(), databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDB(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx
}

func TestIntegration_WorkflowRoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.WorkflowRepository()
	handle := models.BranchTrue

	workflow := &models.Workflow{
		Name:      "Support triage",
		UserID:    "user-1",
		WebhookID: uuid.NewString(),
		Nodes: []*models.WorkflowNode{
			{ID: "trigger", Type: models.NodeTypeSlackTrigger, Config: map[string]any{"team_id": "T1"}},
			{ID: "check", Type: models.NodeTypeConditional, Config: map[string]any{"left_value": "$.text", "operator": "contains", "right_value": "urgent"}, Position: 1},
			{ID: "reply", Type: models.NodeTypeSlack, Config: map[string]any{"text": "on it"}, Position: 2},
		},
		Edges: []*models.WorkflowEdge{
			{ID: "e1", SourceNodeID: "trigger", TargetNodeID: "check"},
			{ID: "e2", SourceNodeID: "check", TargetNodeID: "reply", SourceHandle: &handle},
		},
	}

	require.NoError(t, repo.Save(ctx, workflow))
	require.NotEmpty(t, workflow.ID)

	loaded, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Support triage", loaded.Name)
	require.Len(t, loaded.Nodes, 3)
	assert.Equal(t, "reply", loaded.Nodes[2].ID)
	require.Len(t, loaded.Edges, 2)
	assert.Equal(t, models.BranchTrue, loaded.Edges[1].Handle())

	byHook, err := repo.GetByWebhookID(ctx, workflow.WebhookID)
	require.NoError(t, err)
	assert.Equal(t, workflow.ID, byHook.ID)

	refs, err := repo.NodesByType(ctx, models.NodeTypeSlackTrigger)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "T1", refs[0].Node.Config["team_id"])

	workflow.Nodes = workflow.Nodes[:1]
	workflow.Edges = nil
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err = repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 1)
	assert.Empty(t, loaded.Edges)

	require.NoError(t, repo.Delete(ctx, workflow.ID))

	_, err = repo.GetByID(ctx, workflow.ID)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestIntegration_RunRecorder(t *testing.T) {
	p, ctx := setupTestDB(t)
	runs := p.RunRepository()

	run := &models.WorkflowRun{ID: uuid.NewString(), WorkflowID: "wf", UserID: "u", Input: map[string]any{"text": "hi"}, Status: models.RunStatusRunning}
	require.NoError(t, runs.CreateRun(ctx, run))

	first := &models.NodeRun{ID: uuid.NewString(), WorkflowRunID: run.ID, NodeID: "a", Input: "hi", Status: models.RunStatusRunning}
	second := &models.NodeRun{ID: uuid.NewString(), WorkflowRunID: run.ID, NodeID: "b", Input: "hi", Status: models.RunStatusRunning}
	require.NoError(t, runs.CreateNodeRun(ctx, first))
	require.NoError(t, runs.CreateNodeRun(ctx, second))

	require.NoError(t, runs.CompleteNodeRun(ctx, first.ID, map[string]any{"ok": true}))
	require.NoError(t, runs.FailNodeRun(ctx, second.ID, "boom"))
	require.NoError(t, runs.FailRun(ctx, run.ID, "boom"))

	assert.ErrorIs(t, runs.CompleteRun(ctx, run.ID, "late"), persistence.ErrRunFinalized)
	assert.ErrorIs(t, runs.CompleteRun(ctx, "missing", nil), persistence.ErrRunNotFound)

	loaded, err := runs.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, loaded.Status)
	assert.Equal(t, "boom", loaded.Error)
	assert.Equal(t, map[string]any{"text": "hi"}, loaded.Input)

	nodeRuns, err := runs.NodeRuns(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, nodeRuns, 2)
	assert.Equal(t, "a", nodeRuns[0].NodeID)
	assert.Equal(t, map[string]any{"ok": true}, nodeRuns[0].Output)
	assert.Equal(t, models.RunStatusFailed, nodeRuns[1].Status)
}

func TestIntegration_CredentialsAndVectors(t *testing.T) {
	p, ctx := setupTestDB(t)
	creds := p.CredentialRepository()

	require.NoError(t, creds.SaveCredential(ctx, &models.Credential{ID: "c1", UserID: "u", Provider: models.CredentialProviderGmail, AccessToken: "a", RefreshToken: "r"}))

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, creds.UpdateCredential(ctx, "c1", "b", &expiry))

	credential, err := creds.GetCredential(ctx, "u", models.CredentialProviderGmail, "")
	require.NoError(t, err)
	assert.Equal(t, "b", credential.AccessToken)
	assert.True(t, expiry.Equal(*credential.ExpiresAt))

	vectors := p.VectorRepository()
	require.NoError(t, vectors.Upsert(ctx, []*models.DocumentChunk{
		{ID: "d-0", DocumentID: "d", UserID: "u", Text: "alpha", Embedding: []float32{1, 0}},
		{ID: "d-1", DocumentID: "d", UserID: "u", Text: "beta", Embedding: []float32{0, 1}},
		{ID: "x-0", DocumentID: "x", UserID: "other", Text: "gamma", Embedding: []float32{0, 1}},
	}))

	matches, err := vectors.Query(ctx, "u", []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "beta", matches[0].Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "alpha", matches[1].Text)
}
