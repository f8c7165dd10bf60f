// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/nodes/conditional"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/workflow"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrInvalidWorkflow      = errors.New("invalid workflow")
	ErrUnsupportedFormat    = errors.New("unsupported workflow file format")
	ErrEmptyDocument        = errors.New("document text is required")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrInvalidWorkflow) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptyDocument)
}

// IsWorkflowDefinitionError reports errors caused by the workflow graph or a
// node configuration rather than by the engine.
func IsWorkflowDefinitionError(err error) bool {
	return errors.Is(err, workflow.ErrGraphCycle) ||
		errors.Is(err, workflow.ErrMissingBranchHandle) ||
		errors.Is(err, registry.ErrUnsupportedNodeType) ||
		errors.Is(err, conditional.ErrInvalidConfig)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
