package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

type Workflow struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	graphs      *workflow.Validator
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, graphs *workflow.Validator) *Workflow {
	return &Workflow{
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		graphs:      graphs,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns the workflows of userID, or every workflow when userID is empty.
func (w *Workflow) List(ctx context.Context, userID string) ([]*models.Workflow, error) {
	all, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return all, nil
	}

	return slices.DeleteFunc(all, func(wf *models.Workflow) bool {
		return wf.UserID != userID
	}), nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create validates and stores a new workflow. An empty id is generated.
func (w *Workflow) Create(ctx context.Context, wf *models.Workflow) (*models.Workflow, error) {
	if wf == nil {
		return nil, ErrWorkflowNil
	}

	now := time.Now().UTC()

	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}

	wf.CreatedAt = now
	wf.UpdatedAt = now

	err := w.check("Create", wf)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, wf)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return wf, nil
}

// Update replaces an existing workflow by its ID.
func (w *Workflow) Update(ctx context.Context, workflowID string, wf *models.Workflow) (*models.Workflow, error) {
	if wf == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	wf.ID = workflowID
	wf.CreatedAt = existing.CreatedAt
	wf.UpdatedAt = time.Now().UTC()

	err = w.check("Update", wf)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, wf)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return wf, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	_, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// Validate checks a stored workflow without running it.
func (w *Workflow) Validate(ctx context.Context, workflowID string) error {
	err := w.graphs.Validate(ctx, workflowID)
	if err != nil && !errors.Is(err, persistence.ErrWorkflowNotFound) {
		return NewValidationError("Validate", "INVALID_WORKFLOW", err.Error(), errors.Join(ErrInvalidWorkflow, err))
	}

	return err
}

// Import decodes a workflow definition in format ("yaml", "yml" or "json")
// and creates or replaces it.
func (w *Workflow) Import(ctx context.Context, data []byte, format string) (*models.Workflow, error) {
	wf := &models.Workflow{}

	var err error

	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, wf)
	case "json":
		err = json.Unmarshal(data, wf)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err != nil {
		return nil, NewValidationError("Import", "INVALID_FILE", err.Error(), ErrInvalidRequest)
	}

	if wf.ID != "" {
		_, err = w.persistence.WorkflowRepository().GetByID(ctx, wf.ID)
		if err == nil {
			return w.Update(ctx, wf.ID, wf)
		}

		if !errors.Is(err, persistence.ErrWorkflowNotFound) {
			return nil, err
		}
	}

	return w.Create(ctx, wf)
}

func (w *Workflow) check(op string, wf *models.Workflow) error {
	if strings.TrimSpace(wf.Name) == "" {
		return ErrWorkflowNameRequired
	}

	err := w.validate.Struct(wf)
	if err != nil {
		return NewValidationError(op, "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	err = w.graphs.ValidateWorkflow(wf)
	if err != nil {
		return NewValidationError(op, "INVALID_WORKFLOW", err.Error(), errors.Join(ErrInvalidWorkflow, err))
	}

	return nil
}
