package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/mocks"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/nodes/trigger"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func triggerOnly() *models.Workflow {
	return &models.Workflow{
		ID:     "wf",
		UserID: "user-1",
		Nodes:  []*models.WorkflowNode{node("trigger", models.NodeTypeTrigger, 0)},
	}
}

func mockedExecutor(workflows *mocks.MockWorkflowRepository, runs *mocks.MockRunRepository, opts ...Option) *Executor {
	nodeSet := map[models.NodeType]protocol.Node{
		models.NodeTypeTrigger: trigger.NewNode(models.NodeTypeTrigger),
	}

	opts = append(opts, WithIDGenerator(func() string { return "run-1" }))

	return NewExecutor(workflows, runs, nodeSet, log.Discard(), opts...)
}

func TestExecute_CreateRunFailure(t *testing.T) {
	workflows := &mocks.MockWorkflowRepository{}
	runs := &mocks.MockRunRepository{}
	runs.On("CreateRun", mock.Anything, mock.AnythingOfType("*models.WorkflowRun")).Return(errors.New("disk full"))

	_, err := mockedExecutor(workflows, runs).Execute(context.Background(), ExecuteRequest{WorkflowID: "wf"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create workflow run")
	runs.AssertNotCalled(t, "FailRun", mock.Anything, mock.Anything, mock.Anything)
	workflows.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestExecute_CompleteNodeRunFailureFailsRun(t *testing.T) {
	workflows := &mocks.MockWorkflowRepository{}
	workflows.On("GetByID", mock.Anything, "wf").Return(triggerOnly(), nil)

	runs := &mocks.MockRunRepository{}
	runs.On("CreateRun", mock.Anything, mock.AnythingOfType("*models.WorkflowRun")).Return(nil)
	runs.On("CreateNodeRun", mock.Anything, mock.AnythingOfType("*models.NodeRun")).Return(nil)
	runs.On("CompleteNodeRun", mock.Anything, "run-1", mock.Anything).Return(errors.New("write failed"))
	runs.On("FailNodeRun", mock.Anything, "run-1", "failed to complete node run: write failed").Return(nil)
	runs.On("FailRun", mock.Anything, "run-1", mock.MatchedBy(func(message string) bool {
		return strings.Contains(message, "failed to complete node run")
	})).Return(nil)

	_, err := mockedExecutor(workflows, runs).Execute(context.Background(), ExecuteRequest{WorkflowID: "wf", Input: "hi"})

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "run-1", runErr.RunID)
	runs.AssertExpectations(t)
	runs.AssertNotCalled(t, "CompleteRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_PublishFailureDoesNotFailRun(t *testing.T) {
	workflows := &mocks.MockWorkflowRepository{}
	workflows.On("GetByID", mock.Anything, "wf").Return(triggerOnly(), nil)

	runs := &mocks.MockRunRepository{}
	runs.On("CreateRun", mock.Anything, mock.AnythingOfType("*models.WorkflowRun")).Return(nil)
	runs.On("CreateNodeRun", mock.Anything, mock.AnythingOfType("*models.NodeRun")).Return(nil)
	runs.On("CompleteNodeRun", mock.Anything, "run-1", "hi").Return(nil)
	runs.On("CompleteRun", mock.Anything, "run-1", "hi").Return(nil)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "run-1", mock.Anything).Return(errors.New("broker down"))

	output, err := mockedExecutor(workflows, runs, WithEventPublisher(bus)).
		Execute(context.Background(), ExecuteRequest{WorkflowID: "wf", Input: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "hi", output)
	runs.AssertExpectations(t)
	bus.AssertNumberOfCalls(t, "Publish", 3)
}

func TestExecute_WorkflowLookupFailureFailsRun(t *testing.T) {
	workflows := &mocks.MockWorkflowRepository{}
	workflows.On("GetByID", mock.Anything, "wf").Return(nil, errors.New("lookup failed"))

	runs := &mocks.MockRunRepository{}
	runs.On("CreateRun", mock.Anything, mock.AnythingOfType("*models.WorkflowRun")).Return(nil)
	runs.On("FailRun", mock.Anything, "run-1", "lookup failed").Return(nil)

	_, err := mockedExecutor(workflows, runs).Execute(context.Background(), ExecuteRequest{WorkflowID: "wf"})

	require.EqualError(t, err, "lookup failed")
	runs.AssertExpectations(t)
}
