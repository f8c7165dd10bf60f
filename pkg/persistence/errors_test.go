package persistence_test

import (
	"errors"
	"testing"

	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error constants are available", func(t *testing.T) {
		assert.NotNil(t, persistence.ErrWorkflowNotFound)
		assert.NotNil(t, persistence.ErrRunNotFound)
		assert.NotNil(t, persistence.ErrRunFinalized)
		assert.NotNil(t, persistence.ErrCredentialNotFound)
	})

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		runErr := persistence.NewRunError("CompleteRun", "run-1", persistence.ErrRunNotFound)
		credentialErr := &persistence.CredentialError{UserID: "u", Provider: "gmail", Err: persistence.ErrCredentialNotFound}

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsRunNotFound(runErr))
		assert.True(t, persistence.IsCredentialNotFound(credentialErr))

		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.False(t, errors.Is(runErr, persistence.ErrRunFinalized))
	})

	t.Run("errors contain context", func(t *testing.T) {
		err := persistence.NewWorkflowError("Save", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "Save")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")

		runErr := persistence.NewRunError("FailRun", "run-9", persistence.ErrRunFinalized)
		assert.Equal(t, "FailRun operation failed for run run-9: run already finalized", runErr.Error())
	})
}
