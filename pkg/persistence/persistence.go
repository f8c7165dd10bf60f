// Package persistence provides the storage abstraction for workflows, run
// records, external-service credentials and document vectors.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/flowforge/pkg/models"
)

// Persistence groups the repositories of one storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	RunRepository() RunRepository
	CredentialRepository() CredentialRepository
	VectorRepository() VectorRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository is the graph source.
type WorkflowRepository interface {
	// GetByID returns the workflow with its nodes and edges, or ErrWorkflowNotFound.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// GetByWebhookID returns the workflow bound to a webhook id, or ErrWorkflowNotFound.
	GetByWebhookID(ctx context.Context, webhookID string) (*models.Workflow, error)
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
	// NodesByType returns every node of nodeType across all workflows.
	NodesByType(ctx context.Context, nodeType models.NodeType) ([]*WorkflowNodeRef, error)
}

// WorkflowNodeRef is a node together with its owning workflow.
type WorkflowNodeRef struct {
	WorkflowID string
	UserID     string
	Node       *models.WorkflowNode
}

// RunRepository is the run recorder. Runs and node runs are created RUNNING
// and written to a terminal status exactly once.
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.WorkflowRun) error
	CompleteRun(ctx context.Context, runID string, output any) error
	FailRun(ctx context.Context, runID string, message string) error
	GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error)

	CreateNodeRun(ctx context.Context, nodeRun *models.NodeRun) error
	CompleteNodeRun(ctx context.Context, nodeRunID string, output any) error
	FailNodeRun(ctx context.Context, nodeRunID string, message string) error
	// NodeRuns returns the node runs of a run in creation order.
	NodeRuns(ctx context.Context, runID string) ([]*models.NodeRun, error)
}

// CredentialRepository stores external-service tokens.
type CredentialRepository interface {
	// GetCredential returns the credential of a user for provider. An empty
	// workspaceID matches any workspace. Returns ErrCredentialNotFound.
	GetCredential(ctx context.Context, userID string, provider models.CredentialProvider, workspaceID string) (*models.Credential, error)
	SaveCredential(ctx context.Context, credential *models.Credential) error
	UpdateCredential(ctx context.Context, id string, accessToken string, expiresAt *time.Time) error
}

// VectorRepository stores embedded document chunks for similarity search.
type VectorRepository interface {
	Upsert(ctx context.Context, chunks []*models.DocumentChunk) error
	// Query returns at most topK chunks owned by userID, most similar first.
	Query(ctx context.Context, userID string, vector []float32, topK int) ([]*models.ChunkMatch, error)
}
