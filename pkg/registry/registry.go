// Package registry holds the node factories known to the engine and validates
// node configuration against their JSON schemas.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// ErrUnsupportedNodeType is matched by UnsupportedNodeTypeError.
var ErrUnsupportedNodeType = errors.New("unsupported node type")

// UnsupportedNodeTypeError reports a node type with no registered factory.
type UnsupportedNodeTypeError struct {
	Type models.NodeType
}

func (e *UnsupportedNodeTypeError) Error() string {
	return fmt.Sprintf("Unsupported node type: %s", e.Type)
}

func (e *UnsupportedNodeTypeError) Is(target error) bool {
	return target == ErrUnsupportedNodeType
}

// ConfigValidationError lists the schema violations of one node config.
type ConfigValidationError struct {
	Type   models.NodeType
	Errors []string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid %s config: %s", e.Type, strings.Join(e.Errors, "; "))
}

// NodeDescriptor is the public metadata of a node type.
type NodeDescriptor struct {
	Type        models.NodeType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      map[string]any  `json:"schema"`
}

type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeType]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		logger:    log.With("module", "registry"),
		factories: make(map[models.NodeType]protocol.NodeFactory),
	}
}

// RegisterNode adds or replaces the factory for its node type.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.factories[factory.ID()] = factory
	r.logger.Debug("registered node factory", "type", factory.ID())
}

// Factory returns the factory for nodeType.
func (r *Registry) Factory(nodeType models.NodeType) (protocol.NodeFactory, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, &UnsupportedNodeTypeError{Type: nodeType}
	}

	return factory, nil
}

// Types returns the registered node types in lexical order.
func (r *Registry) Types() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.factories))
	for nodeType := range r.factories {
		types = append(types, nodeType)
	}

	slices.Sort(types)

	return types
}

// Descriptors returns the metadata of every registered node type.
func (r *Registry) Descriptors() []NodeDescriptor {
	types := r.Types()
	descriptors := make([]NodeDescriptor, 0, len(types))

	for _, nodeType := range types {
		factory := r.factories[nodeType]
		descriptors = append(descriptors, NodeDescriptor{
			Type:        nodeType,
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return descriptors
}

// Build creates one node per registered type, bound to deps.
func (r *Registry) Build(deps protocol.Dependencies) (map[models.NodeType]protocol.Node, error) {
	built := make(map[models.NodeType]protocol.Node, len(r.factories))

	for nodeType, factory := range r.factories {
		node, err := factory.Create(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s node: %w", nodeType, err)
		}

		built[nodeType] = node
	}

	return built, nil
}

// ValidateConfig checks config against the schema of nodeType.
func (r *Registry) ValidateConfig(nodeType models.NodeType, config map[string]any) error {
	factory, err := r.Factory(nodeType)
	if err != nil {
		return err
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate %s config: %w", nodeType, err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}

	return &ConfigValidationError{Type: nodeType, Errors: violations}
}
