package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/workflow"
	"github.com/google/uuid"
)

// Executor runs a workflow to completion.
type Executor interface {
	Execute(ctx context.Context, req workflow.ExecuteRequest) (any, error)
}

// RunResult is the outcome of a synchronous run.
type RunResult struct {
	RunID  string `json:"run_id"`
	Output any    `json:"output"`
}

// RunDetails is a run with its node runs in creation order.
type RunDetails struct {
	Run      *models.WorkflowRun `json:"run"`
	NodeRuns []*models.NodeRun   `json:"node_runs"`
}

type Run struct {
	persistence persistence.Persistence
	executor    Executor
}

func NewRun(persistence persistence.Persistence, executor Executor) *Run {
	return &Run{persistence: persistence, executor: executor}
}

// Start executes a stored workflow. An empty userID runs as the workflow owner.
func (r *Run) Start(ctx context.Context, workflowID, userID string, input any) (*RunResult, error) {
	wf, err := r.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		userID = wf.UserID
	}

	return r.execute(ctx, wf.ID, userID, input)
}

// TriggerWebhook executes the workflow bound to webhookID as its owner.
func (r *Run) TriggerWebhook(ctx context.Context, webhookID string, input any) (*RunResult, error) {
	wf, err := r.persistence.WorkflowRepository().GetByWebhookID(ctx, webhookID)
	if err != nil {
		return nil, err
	}

	return r.execute(ctx, wf.ID, wf.UserID, input)
}

// Get returns a run and its node runs.
func (r *Run) Get(ctx context.Context, runID string) (*RunDetails, error) {
	run, err := r.persistence.RunRepository().GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	nodeRuns, err := r.persistence.RunRepository().NodeRuns(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load node runs: %w", err)
	}

	return &RunDetails{Run: run, NodeRuns: nodeRuns}, nil
}

func (r *Run) execute(ctx context.Context, workflowID, userID string, input any) (*RunResult, error) {
	runID := uuid.NewString()

	output, err := r.executor.Execute(ctx, workflow.ExecuteRequest{
		WorkflowID: workflowID,
		UserID:     userID,
		Input:      input,
		RunID:      runID,
	})
	if err != nil {
		var runErr *workflow.RunError
		if !errors.As(err, &runErr) {
			return nil, err
		}

		return &RunResult{RunID: runID}, err
	}

	return &RunResult{RunID: runID, Output: output}, nil
}
