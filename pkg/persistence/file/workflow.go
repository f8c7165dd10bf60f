package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

const workflowsCollection = "workflows"

// WorkflowRepository stores each workflow, nodes and edges included, in one file.
type WorkflowRepository struct {
	docs *documents
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := wr.docs.read(workflowsCollection, workflowID, &workflow)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	return &workflow, nil
}

// GetAll returns every stored workflow ordered by creation time.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := wr.docs.ids(workflowsCollection)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := wr.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	slices.SortFunc(workflows, func(a, b *models.Workflow) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return workflows, nil
}

// GetByWebhookID scans workflows for the given webhook id.
func (wr *WorkflowRepository) GetByWebhookID(ctx context.Context, webhookID string) (*models.Workflow, error) {
	workflows, err := wr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, workflow := range workflows {
		if webhookID != "" && workflow.WebhookID == webhookID {
			return workflow, nil
		}
	}

	return nil, persistence.NewWorkflowError("GetByWebhookID", webhookID, persistence.ErrWorkflowNotFound)
}

// Save saves a workflow to the file system.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return wr.docs.write(workflowsCollection, workflow.ID, workflow)
}

// Delete removes a workflow by its ID.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	return wr.docs.remove(workflowsCollection, id)
}

// NodesByType returns matching nodes of every workflow.
func (wr *WorkflowRepository) NodesByType(ctx context.Context, nodeType models.NodeType) ([]*persistence.WorkflowNodeRef, error) {
	workflows, err := wr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]*persistence.WorkflowNodeRef, 0)

	for _, workflow := range workflows {
		for _, node := range workflow.Nodes {
			if node.Type == nodeType {
				refs = append(refs, &persistence.WorkflowNodeRef{WorkflowID: workflow.ID, UserID: workflow.UserID, Node: node})
			}
		}
	}

	return refs, nil
}
