// Package workflow schedules and executes workflow graphs.
package workflow

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
)

var (
	ErrGraphCycle          = errors.New("workflow graph contains a cycle")
	ErrMissingBranchHandle = errors.New("conditional edge is missing a branch handle")
)

// GraphCycleError lists the nodes the topological sort could not reach.
type GraphCycleError struct {
	Unvisited []string
}

func (e *GraphCycleError) Error() string {
	return fmt.Sprintf("Workflow graph contains a cycle involving nodes: %s", strings.Join(e.Unvisited, ", "))
}

func (e *GraphCycleError) Is(target error) bool {
	return target == ErrGraphCycle
}

// MissingBranchHandleError is raised for an edge leaving a CONDITIONAL node
// whose source handle is neither "true" nor "false".
type MissingBranchHandleError struct {
	NodeID string
	EdgeID string
}

func (e *MissingBranchHandleError) Error() string {
	return fmt.Sprintf("Edge %s from conditional node %s must use a \"true\" or \"false\" handle", e.EdgeID, e.NodeID)
}

func (e *MissingBranchHandleError) Is(target error) bool {
	return target == ErrMissingBranchHandle
}

// Graph is the dependency graph of one workflow. Dangling edges and
// self-loops are dropped on construction.
type Graph struct {
	nodes    []*models.WorkflowNode
	byID     map[string]*models.WorkflowNode
	listing  map[string]int
	edges    []*models.WorkflowEdge
	incoming map[string][]*models.WorkflowEdge
	outgoing map[string][]*models.WorkflowEdge
}

func BuildGraph(nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) *Graph {
	g := &Graph{
		nodes:    nodes,
		byID:     make(map[string]*models.WorkflowNode, len(nodes)),
		listing:  make(map[string]int, len(nodes)),
		incoming: make(map[string][]*models.WorkflowEdge),
		outgoing: make(map[string][]*models.WorkflowEdge),
	}

	for i, node := range nodes {
		if _, exists := g.byID[node.ID]; exists {
			continue
		}

		g.byID[node.ID] = node
		g.listing[node.ID] = i
	}

	for _, edge := range edges {
		if edge.IsSelfLoop() {
			continue
		}

		if _, ok := g.byID[edge.SourceNodeID]; !ok {
			continue
		}

		if _, ok := g.byID[edge.TargetNodeID]; !ok {
			continue
		}

		g.edges = append(g.edges, edge)
		g.incoming[edge.TargetNodeID] = append(g.incoming[edge.TargetNodeID], edge)
		g.outgoing[edge.SourceNodeID] = append(g.outgoing[edge.SourceNodeID], edge)
	}

	return g
}

// Linear reports whether the graph has no edges, in which case nodes run as
// a pipeline ordered by position.
func (g *Graph) Linear() bool {
	return len(g.edges) == 0
}

func (g *Graph) Node(id string) *models.WorkflowNode {
	return g.byID[id]
}

func (g *Graph) Incoming(id string) []*models.WorkflowEdge {
	return g.incoming[id]
}

func (g *Graph) Outgoing(id string) []*models.WorkflowEdge {
	return g.outgoing[id]
}

// Order returns an execution order consistent with every edge. Ready nodes
// are taken by position, then by listing order.
func (g *Graph) Order() ([]*models.WorkflowNode, error) {
	unique := g.uniqueNodes()

	if g.Linear() {
		slices.SortStableFunc(unique, g.compare)

		return unique, nil
	}

	indegree := make(map[string]int, len(unique))
	for _, node := range unique {
		indegree[node.ID] = len(g.incoming[node.ID])
	}

	queue := make([]*models.WorkflowNode, 0, len(unique))

	for _, node := range unique {
		if indegree[node.ID] == 0 {
			queue = append(queue, node)
		}
	}

	slices.SortStableFunc(queue, g.compare)

	order := make([]*models.WorkflowNode, 0, len(unique))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		released := make([]*models.WorkflowNode, 0)

		for _, edge := range g.outgoing[current.ID] {
			indegree[edge.TargetNodeID]--
			if indegree[edge.TargetNodeID] == 0 {
				released = append(released, g.byID[edge.TargetNodeID])
			}
		}

		slices.SortStableFunc(released, g.compare)
		queue = append(queue, released...)
	}

	if len(order) < len(unique) {
		unvisited := make([]string, 0, len(unique)-len(order))

		for _, node := range unique {
			if indegree[node.ID] > 0 {
				unvisited = append(unvisited, node.ID)
			}
		}

		return nil, &GraphCycleError{Unvisited: unvisited}
	}

	return order, nil
}

// CheckBranchHandles verifies every edge leaving a CONDITIONAL node carries
// a "true" or "false" handle.
func (g *Graph) CheckBranchHandles() error {
	for _, edge := range g.edges {
		if g.byID[edge.SourceNodeID].Type != models.NodeTypeConditional {
			continue
		}

		if !validHandle(edge.Handle()) {
			return &MissingBranchHandleError{NodeID: edge.SourceNodeID, EdgeID: edge.ID}
		}
	}

	return nil
}

func (g *Graph) uniqueNodes() []*models.WorkflowNode {
	unique := make([]*models.WorkflowNode, 0, len(g.byID))

	for i, node := range g.nodes {
		if g.listing[node.ID] == i {
			unique = append(unique, node)
		}
	}

	return unique
}

func (g *Graph) compare(a, b *models.WorkflowNode) int {
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}

	return cmp.Compare(g.listing[a.ID], g.listing[b.ID])
}

func validHandle(handle string) bool {
	return handle == models.BranchTrue || handle == models.BranchFalse
}
