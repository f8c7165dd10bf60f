package file

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	p, err := NewPersistence("file://" + t.TempDir())
	require.NoError(t, err)

	return p
}

func sampleWorkflow(id string) *models.Workflow {
	handle := models.BranchTrue

	return &models.Workflow{
		ID:        id,
		Name:      "Sample",
		UserID:    "user-1",
		WebhookID: "hook-" + id,
		Nodes: []*models.WorkflowNode{
			{ID: "trigger", Type: models.NodeTypeSlackTrigger, Config: map[string]any{"team_id": "T1"}, Position: 0},
			{ID: "cond", Type: models.NodeTypeConditional, Config: map[string]any{"left_value": "$.x", "operator": "equals", "right_value": "1"}, Position: 1},
		},
		Edges: []*models.WorkflowEdge{
			{ID: "e1", SourceNodeID: "trigger", TargetNodeID: "cond"},
			{ID: "e2", SourceNodeID: "cond", TargetNodeID: "trigger", SourceHandle: &handle},
		},
	}
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := newTestPersistence(t)
	assert.NoError(t, p.HealthCheck(context.Background()))
	assert.NoError(t, p.Close(context.Background()))

	missing, err := NewPersistence("/definitely/not/here")
	require.NoError(t, err)
	assert.Error(t, missing.HealthCheck(context.Background()))
}

func TestWorkflowRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).WorkflowRepository()

	workflow := sampleWorkflow("wf-1")
	require.NoError(t, repo.Save(ctx, workflow))
	assert.False(t, workflow.CreatedAt.IsZero())

	loaded, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Sample", loaded.Name)
	require.Len(t, loaded.Nodes, 2)
	require.Len(t, loaded.Edges, 2)
	assert.Equal(t, models.BranchTrue, loaded.Edges[1].Handle())

	byHook, err := repo.GetByWebhookID(ctx, "hook-wf-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", byHook.ID)

	_, err = repo.GetByWebhookID(ctx, "nope")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	refs, err := repo.NodesByType(ctx, models.NodeTypeSlackTrigger)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "wf-1", refs[0].WorkflowID)
	assert.Equal(t, "user-1", refs[0].UserID)
	assert.Equal(t, "T1", refs[0].Node.Config["team_id"])

	require.NoError(t, repo.Delete(ctx, "wf-1"))
	_, err = repo.GetByID(ctx, "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
	assert.NoError(t, repo.Delete(ctx, "wf-1"))
}

func TestWorkflowRepository_GetAllOrdered(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).WorkflowRepository()

	first := sampleWorkflow("b")
	first.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := sampleWorkflow("a")
	second.CreatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, first))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
}

func TestRunRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).RunRepository()

	run := &models.WorkflowRun{ID: "run-1", WorkflowID: "wf-1", UserID: "u", Input: map[string]any{"x": 1.0}, Status: models.RunStatusRunning}
	require.NoError(t, repo.CreateRun(ctx, run))

	for i, nodeID := range []string{"a", "b", "c"} {
		nodeRun := &models.NodeRun{ID: "nr-" + nodeID, WorkflowRunID: "run-1", NodeID: nodeID, Input: i, Status: models.RunStatusRunning}
		require.NoError(t, repo.CreateNodeRun(ctx, nodeRun))
	}

	require.NoError(t, repo.CreateNodeRun(ctx, &models.NodeRun{ID: "other", WorkflowRunID: "run-2", NodeID: "z", Status: models.RunStatusRunning}))

	require.NoError(t, repo.CompleteNodeRun(ctx, "nr-a", "out-a"))
	require.NoError(t, repo.FailNodeRun(ctx, "nr-b", "boom"))
	assert.ErrorIs(t, repo.CompleteNodeRun(ctx, "nr-a", "again"), persistence.ErrRunFinalized)
	assert.ErrorIs(t, repo.CompleteNodeRun(ctx, "missing", nil), persistence.ErrRunNotFound)

	nodeRuns, err := repo.NodeRuns(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, nodeRuns, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{nodeRuns[0].NodeID, nodeRuns[1].NodeID, nodeRuns[2].NodeID})
	assert.Equal(t, models.RunStatusSuccess, nodeRuns[0].Status)
	assert.Equal(t, "out-a", nodeRuns[0].Output)
	assert.Equal(t, models.RunStatusFailed, nodeRuns[1].Status)
	assert.Equal(t, "boom", nodeRuns[1].Error)
	assert.Equal(t, models.RunStatusRunning, nodeRuns[2].Status)

	require.NoError(t, repo.CompleteRun(ctx, "run-1", "final"))
	assert.ErrorIs(t, repo.FailRun(ctx, "run-1", "late"), persistence.ErrRunFinalized)

	loaded, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, loaded.Status)
	assert.Equal(t, "final", loaded.Output)
	assert.NotNil(t, loaded.CompletedAt)

	_, err = repo.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestCredentialRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).CredentialRepository()

	require.NoError(t, repo.SaveCredential(ctx, &models.Credential{ID: "c1", UserID: "u", Provider: models.CredentialProviderGmail, AccessToken: "old", RefreshToken: "r"}))
	require.NoError(t, repo.SaveCredential(ctx, &models.Credential{ID: "c2", UserID: "u", Provider: models.CredentialProviderSlack, WorkspaceID: "T1", AccessToken: "xoxb-1"}))
	require.NoError(t, repo.SaveCredential(ctx, &models.Credential{ID: "c3", UserID: "u", Provider: models.CredentialProviderSlack, WorkspaceID: "T2", AccessToken: "xoxb-2"}))

	gmail, err := repo.GetCredential(ctx, "u", models.CredentialProviderGmail, "")
	require.NoError(t, err)
	assert.Equal(t, "old", gmail.AccessToken)

	slack, err := repo.GetCredential(ctx, "u", models.CredentialProviderSlack, "T2")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-2", slack.AccessToken)

	_, err = repo.GetCredential(ctx, "u", models.CredentialProviderSlack, "T3")
	assert.ErrorIs(t, err, persistence.ErrCredentialNotFound)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateCredential(ctx, "c1", "new", &expiry))

	gmail, err = repo.GetCredential(ctx, "u", models.CredentialProviderGmail, "")
	require.NoError(t, err)
	assert.Equal(t, "new", gmail.AccessToken)
	assert.True(t, expiry.Equal(*gmail.ExpiresAt))

	assert.ErrorIs(t, repo.UpdateCredential(ctx, "missing", "x", nil), persistence.ErrCredentialNotFound)
}

func TestVectorRepository_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	p, err := NewPersistence(root)
	require.NoError(t, err)

	require.NoError(t, p.VectorRepository().Upsert(ctx, []*models.DocumentChunk{
		{ID: "doc-0", DocumentID: "doc", UserID: "u", Text: "alpha", Embedding: []float32{1, 0}},
		{ID: "doc-1", DocumentID: "doc", UserID: "u", Text: "beta", Embedding: []float32{0, 1}},
	}))

	reopened, err := NewPersistence(root)
	require.NoError(t, err)

	matches, err := reopened.VectorRepository().Query(ctx, "u", []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "beta", matches[0].Text)
}
