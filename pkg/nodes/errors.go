// Package nodes holds helpers shared by the node type implementations.
package nodes

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/models"
)

// ErrMissingConfig is matched by every MissingConfigError.
var ErrMissingConfig = errors.New("missing required config")

// MissingConfigError reports a required configuration field that is absent or empty.
// Message, when set, replaces the default text.
type MissingConfigError struct {
	NodeType models.NodeType
	Field    string
	Message  string
}

func (e *MissingConfigError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("%s node missing %s", e.NodeType, e.Field)
}

func (e *MissingConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// MissingConfig builds a MissingConfigError.
func MissingConfig(nodeType models.NodeType, field string) error {
	return &MissingConfigError{NodeType: nodeType, Field: field}
}

// DecodeConfig maps a raw configuration value onto a typed config struct.
func DecodeConfig(raw any, out any) error {
	if raw == nil {
		return nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode node config: %w", err)
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("invalid node config: %w", err)
	}

	return nil
}
