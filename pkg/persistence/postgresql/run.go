package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

// RunRepository records workflow runs and node runs.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

func (r *RunRepository) CreateRun(ctx context.Context, run *models.WorkflowRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	input, err := marshalValue(run.Input)
	if err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_runs (id, workflow_id, user_id, input, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.WorkflowID, run.UserID, input, string(run.Status), run.CreatedAt)
	if err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	return nil
}

func (r *RunRepository) CompleteRun(ctx context.Context, runID string, output any) error {
	value, err := marshalValue(output)
	if err != nil {
		return persistence.NewRunError("CompleteRun", runID, err)
	}

	return r.finish(ctx, "CompleteRun", "workflow_runs", runID, `
		UPDATE workflow_runs
		SET status = 'SUCCESS', output = $2, completed_at = $3
		WHERE id = $1 AND status = 'RUNNING'
	`, value)
}

func (r *RunRepository) FailRun(ctx context.Context, runID string, message string) error {
	return r.finish(ctx, "FailRun", "workflow_runs", runID, `
		UPDATE workflow_runs
		SET status = 'FAILED', error = $2, completed_at = $3
		WHERE id = $1 AND status = 'RUNNING'
	`, message)
}

func (r *RunRepository) GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	var (
		run           models.WorkflowRun
		status        string
		input, output []byte
		message       sql.NullString
		completedAt   sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, user_id, input, output, status, error, created_at, completed_at
		FROM workflow_runs
		WHERE id = $1
	`, runID).Scan(&run.ID, &run.WorkflowID, &run.UserID, &input, &output, &status, &message, &run.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("GetRun", runID, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewRunError("GetRun", runID, err)
	}

	run.Status = models.RunStatus(status)
	run.Error = message.String
	run.CompletedAt = timePtr(completedAt)

	run.Input, err = unmarshalValue(input)
	if err != nil {
		return nil, persistence.NewRunError("GetRun", runID, err)
	}

	run.Output, err = unmarshalValue(output)
	if err != nil {
		return nil, persistence.NewRunError("GetRun", runID, err)
	}

	return &run, nil
}

func (r *RunRepository) CreateNodeRun(ctx context.Context, nodeRun *models.NodeRun) error {
	if nodeRun.StartedAt.IsZero() {
		nodeRun.StartedAt = time.Now().UTC()
	}

	input, err := marshalValue(nodeRun.Input)
	if err != nil {
		return persistence.NewRunError("CreateNodeRun", nodeRun.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO node_runs (id, workflow_run_id, node_id, input, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, nodeRun.ID, nodeRun.WorkflowRunID, nodeRun.NodeID, input, string(nodeRun.Status), nodeRun.StartedAt)
	if err != nil {
		return persistence.NewRunError("CreateNodeRun", nodeRun.ID, err)
	}

	return nil
}

func (r *RunRepository) CompleteNodeRun(ctx context.Context, nodeRunID string, output any) error {
	value, err := marshalValue(output)
	if err != nil {
		return persistence.NewRunError("CompleteNodeRun", nodeRunID, err)
	}

	return r.finish(ctx, "CompleteNodeRun", "node_runs", nodeRunID, `
		UPDATE node_runs
		SET status = 'SUCCESS', output = $2, completed_at = $3
		WHERE id = $1 AND status = 'RUNNING'
	`, value)
}

func (r *RunRepository) FailNodeRun(ctx context.Context, nodeRunID string, message string) error {
	return r.finish(ctx, "FailNodeRun", "node_runs", nodeRunID, `
		UPDATE node_runs
		SET status = 'FAILED', error = $2, completed_at = $3
		WHERE id = $1 AND status = 'RUNNING'
	`, message)
}

// NodeRuns returns the node runs of runID in creation order.
func (r *RunRepository) NodeRuns(ctx context.Context, runID string) ([]*models.NodeRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_run_id, node_id, input, output, status, error, started_at, completed_at
		FROM node_runs
		WHERE workflow_run_id = $1
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, persistence.NewRunError("NodeRuns", runID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	nodeRuns := make([]*models.NodeRun, 0)

	for rows.Next() {
		var (
			nodeRun       models.NodeRun
			status        string
			input, output []byte
			message       sql.NullString
			completedAt   sql.NullTime
		)

		err := rows.Scan(&nodeRun.ID, &nodeRun.WorkflowRunID, &nodeRun.NodeID, &input, &output, &status, &message, &nodeRun.StartedAt, &completedAt)
		if err != nil {
			return nil, persistence.NewRunError("NodeRuns", runID, err)
		}

		nodeRun.Status = models.RunStatus(status)
		nodeRun.Error = message.String
		nodeRun.CompletedAt = timePtr(completedAt)

		nodeRun.Input, err = unmarshalValue(input)
		if err != nil {
			return nil, persistence.NewRunError("NodeRuns", runID, err)
		}

		nodeRun.Output, err = unmarshalValue(output)
		if err != nil {
			return nil, persistence.NewRunError("NodeRuns", runID, err)
		}

		nodeRuns = append(nodeRuns, &nodeRun)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewRunError("NodeRuns", runID, err)
	}

	return nodeRuns, nil
}

// finish applies a terminal update guarded by status = 'RUNNING'. When no row
// changes it tells a missing record apart from an already finalized one.
func (r *RunRepository) finish(ctx context.Context, op, table, id, query string, value any) error {
	result, err := r.db.ExecContext(ctx, query, id, value, time.Now().UTC())
	if err != nil {
		return persistence.NewRunError(op, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError(op, id, err)
	}

	if affected > 0 {
		return nil
	}

	var exists bool

	err = r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return persistence.NewRunError(op, id, err)
	}

	if !exists {
		return persistence.NewRunError(op, id, persistence.ErrRunNotFound)
	}

	return persistence.NewRunError(op, id, persistence.ErrRunFinalized)
}

func marshalValue(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	return data, nil
}

func unmarshalValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var value any

	err := json.Unmarshal(data, &value)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return value, nil
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}

	return &value.Time
}
