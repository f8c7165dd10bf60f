package mocks

import (
	"context"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByWebhookID(ctx context.Context, webhookID string) (*models.Workflow, error) {
	args := m.Called(ctx, webhookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockWorkflowRepository) NodesByType(ctx context.Context, nodeType models.NodeType) ([]*persistence.WorkflowNodeRef, error) {
	args := m.Called(ctx, nodeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*persistence.WorkflowNodeRef), args.Error(1)
}

// MockRunRepository is a mock implementation of persistence.RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) CreateRun(ctx context.Context, run *models.WorkflowRun) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockRunRepository) CompleteRun(ctx context.Context, runID string, output any) error {
	args := m.Called(ctx, runID, output)

	return args.Error(0)
}

func (m *MockRunRepository) FailRun(ctx context.Context, runID string, message string) error {
	args := m.Called(ctx, runID, message)

	return args.Error(0)
}

func (m *MockRunRepository) GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowRun), args.Error(1)
}

func (m *MockRunRepository) CreateNodeRun(ctx context.Context, nodeRun *models.NodeRun) error {
	args := m.Called(ctx, nodeRun)

	return args.Error(0)
}

func (m *MockRunRepository) CompleteNodeRun(ctx context.Context, nodeRunID string, output any) error {
	args := m.Called(ctx, nodeRunID, output)

	return args.Error(0)
}

func (m *MockRunRepository) FailNodeRun(ctx context.Context, nodeRunID string, message string) error {
	args := m.Called(ctx, nodeRunID, message)

	return args.Error(0)
}

func (m *MockRunRepository) NodeRuns(ctx context.Context, runID string) ([]*models.NodeRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.NodeRun), args.Error(1)
}
