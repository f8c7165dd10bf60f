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
	"github.com/google/uuid"
)

const selectWorkflows = `
		SELECT
			id
		  , name
		  , description
		  , user_id
		  , webhook_id
		  , created_at
		  , updated_at
		FROM workflows
	`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetAll returns all workflows ordered by creation time.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, selectWorkflows+" ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		err = r.loadGraph(ctx, workflow)
		if err != nil {
			return nil, err
		}
	}

	return workflows, nil
}

// GetByID returns a workflow with its nodes and edges.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.getOne(ctx, "GetByID", id, selectWorkflows+" WHERE id = $1")
}

// GetByWebhookID returns the workflow bound to webhookID.
func (r *WorkflowRepository) GetByWebhookID(ctx context.Context, webhookID string) (*models.Workflow, error) {
	return r.getOne(ctx, "GetByWebhookID", webhookID, selectWorkflows+" WHERE webhook_id = $1")
}

func (r *WorkflowRepository) getOne(ctx context.Context, op, key, query string) (*models.Workflow, error) {
	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError(op, key, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	err = r.loadGraph(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Save upserts a workflow and replaces its nodes and edges in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) (err error) {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, user_id, webhook_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			user_id = EXCLUDED.user_id,
			webhook_id = EXCLUDED.webhook_id,
			updated_at = EXCLUDED.updated_at
	`,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.UserID,
		nullString(workflow.WebhookID),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow base: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_edges WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing edges: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_nodes WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing nodes: %w", err)
	}

	for seq, node := range workflow.Nodes {
		config, err := json.Marshal(node.Config)
		if err != nil {
			return fmt.Errorf("failed to marshal config of node %s: %w", node.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_nodes (workflow_id, id, node_type, config, position, seq)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, workflow.ID, node.ID, string(node.Type), config, node.Position, seq)
		if err != nil {
			return fmt.Errorf("failed to save node %s: %w", node.ID, err)
		}
	}

	for seq, edge := range workflow.Edges {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_edges (workflow_id, id, source_node_id, target_node_id, source_handle, target_handle, seq)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, workflow.ID, edge.ID, edge.SourceNodeID, edge.TargetNodeID, edge.SourceHandle, edge.TargetHandle, seq)
		if err != nil {
			return fmt.Errorf("failed to save edge %s: %w", edge.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes a workflow; nodes and edges cascade.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// NodesByType returns every node of nodeType with its owning workflow.
func (r *WorkflowRepository) NodesByType(ctx context.Context, nodeType models.NodeType) ([]*persistence.WorkflowNodeRef, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			n.workflow_id
		  , w.user_id
		  , n.id
		  , n.node_type
		  , n.config
		  , n.position
		FROM workflow_nodes n
		JOIN workflows w ON w.id = n.workflow_id
		WHERE n.node_type = $1
		ORDER BY w.created_at ASC, n.workflow_id ASC, n.seq ASC
	`, string(nodeType))
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes by type: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	refs := make([]*persistence.WorkflowNodeRef, 0)

	for rows.Next() {
		var ref persistence.WorkflowNodeRef

		node, err := scanNode(rows, &ref.WorkflowID, &ref.UserID)
		if err != nil {
			return nil, err
		}

		ref.Node = node
		refs = append(refs, &ref)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return refs, nil
}

func (r *WorkflowRepository) loadGraph(ctx context.Context, workflow *models.Workflow) error {
	nodes, err := r.loadNodes(ctx, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to load nodes of workflow %s: %w", workflow.ID, err)
	}

	edges, err := r.loadEdges(ctx, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to load edges of workflow %s: %w", workflow.ID, err)
	}

	workflow.Nodes = nodes
	workflow.Edges = edges

	return nil
}

func (r *WorkflowRepository) loadNodes(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, node_type, config, position
		FROM workflow_nodes
		WHERE workflow_id = $1
		ORDER BY seq ASC
	`, workflowID)
	if err != nil {
		return nil, err
	}

	defer closeRows(ctx, r.logger, rows)

	nodes := make([]*models.WorkflowNode, 0)

	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

func (r *WorkflowRepository) loadEdges(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_node_id, target_node_id, source_handle, target_handle
		FROM workflow_edges
		WHERE workflow_id = $1
		ORDER BY seq ASC
	`, workflowID)
	if err != nil {
		return nil, err
	}

	defer closeRows(ctx, r.logger, rows)

	edges := make([]*models.WorkflowEdge, 0)

	for rows.Next() {
		var (
			edge                       models.WorkflowEdge
			sourceHandle, targetHandle sql.NullString
		)

		err := rows.Scan(&edge.ID, &edge.SourceNodeID, &edge.TargetNodeID, &sourceHandle, &targetHandle)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edge.SourceHandle = stringPtr(sourceHandle)
		edge.TargetHandle = stringPtr(targetHandle)
		edges = append(edges, &edge)
	}

	return edges, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow  models.Workflow
		webhookID sql.NullString
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.UserID,
		&webhookID,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.WebhookID = webhookID.String

	return &workflow, nil
}

// scanNode scans the node columns after any leading destinations.
func scanNode(row scanner, leading ...any) (*models.WorkflowNode, error) {
	var (
		node     models.WorkflowNode
		nodeType string
		config   []byte
	)

	dest := append(leading, &node.ID, &nodeType, &config, &node.Position)

	err := row.Scan(dest...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan node: %w", err)
	}

	node.Type = models.NodeType(nodeType)

	if len(config) > 0 {
		err = json.Unmarshal(config, &node.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal config of node %s: %w", node.ID, err)
		}
	}

	return &node, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}

	return &value.String
}
