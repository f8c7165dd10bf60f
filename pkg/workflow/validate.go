package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/registry"
)

// Validator checks a workflow ahead of execution.
type Validator struct {
	workflows persistence.WorkflowRepository
	registry  *registry.Registry
}

func NewValidator(workflows persistence.WorkflowRepository, reg *registry.Registry) *Validator {
	return &Validator{workflows: workflows, registry: reg}
}

// Validate loads a stored workflow and validates it.
func (v *Validator) Validate(ctx context.Context, workflowID string) error {
	workflow, err := v.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	return v.ValidateWorkflow(workflow)
}

// ValidateWorkflow reports every problem found: unknown node types, configs
// rejected by their schema, conditional edges without a branch handle and
// cycles. The result is an errors.Join of the individual errors.
func (v *Validator) ValidateWorkflow(workflow *models.Workflow) error {
	problems := make([]error, 0)
	seen := make(map[string]bool, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if seen[node.ID] {
			problems = append(problems, fmt.Errorf("duplicate node id %q", node.ID))

			continue
		}

		seen[node.ID] = true

		err := v.registry.ValidateConfig(node.Type, node.Config)
		if err != nil {
			problems = append(problems, fmt.Errorf("node %s: %w", node.ID, err))
		}
	}

	graph := BuildGraph(workflow.Nodes, workflow.Edges)

	err := graph.CheckBranchHandles()
	if err != nil {
		problems = append(problems, err)
	}

	_, err = graph.Order()
	if err != nil {
		problems = append(problems, err)
	}

	return errors.Join(problems...)
}
