package workflow

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/nodes/conditional"
)

// runState is the execution context of one run: produced outputs, executed
// nodes and pruned edges.
type runState struct {
	graph    *Graph
	run      *models.WorkflowRun
	outputs  map[string]any
	executed []string
	pruned   map[string]bool
	last     any
}

func newRunState(graph *Graph, run *models.WorkflowRun) *runState {
	return &runState{
		graph:   graph,
		run:     run,
		outputs: make(map[string]any),
		pruned:  make(map[string]bool),
		last:    run.Input,
	}
}

// input returns the input of node and whether the node should run at all.
func (s *runState) input(node *models.WorkflowNode) (any, bool) {
	if s.graph.Linear() {
		return s.last, true
	}

	incoming := s.graph.Incoming(node.ID)
	if len(incoming) == 0 {
		return s.run.Input, true
	}

	live := make([]*models.WorkflowEdge, 0, len(incoming))

	for _, edge := range incoming {
		if s.isLive(edge) {
			live = append(live, edge)
		}
	}

	switch len(live) {
	case 0:
		return nil, false
	case 1:
		return s.outputs[live[0].SourceNodeID], true
	default:
		bundle := make(map[string]any, len(live))
		for _, edge := range live {
			bundle[edge.SourceNodeID] = s.outputs[edge.SourceNodeID]
		}

		return bundle, true
	}
}

func (s *runState) isLive(edge *models.WorkflowEdge) bool {
	if s.pruned[edge.ID] {
		return false
	}

	_, executed := s.outputs[edge.SourceNodeID]

	return executed
}

// prune marks the edges of a conditional node that the taken branch does not follow.
func (s *runState) prune(node *models.WorkflowNode, recorded any) error {
	result, _ := recorded.(conditional.Result)

	for _, edge := range s.graph.Outgoing(node.ID) {
		handle := edge.Handle()
		if !validHandle(handle) {
			return &MissingBranchHandleError{NodeID: node.ID, EdgeID: edge.ID}
		}

		if handle != result.Branch {
			s.pruned[edge.ID] = true
		}
	}

	return nil
}

func (s *runState) record(node *models.WorkflowNode, output any) {
	s.outputs[node.ID] = output
	s.executed = append(s.executed, node.ID)
	s.last = output
}

// output selects the workflow output: the last output of a linear pipeline,
// else the output of the single terminal node or a map of terminal outputs.
func (s *runState) output() any {
	if s.graph.Linear() {
		return s.last
	}

	terminals := make([]string, 0, 1)

	for _, id := range s.executed {
		if !s.hasLiveOutgoing(id) {
			terminals = append(terminals, id)
		}
	}

	switch len(terminals) {
	case 0:
		return nil
	case 1:
		return s.outputs[terminals[0]]
	default:
		out := make(map[string]any, len(terminals))
		for _, id := range terminals {
			out[id] = s.outputs[id]
		}

		return out
	}
}

func (s *runState) hasLiveOutgoing(id string) bool {
	for _, edge := range s.graph.Outgoing(id) {
		if !s.pruned[edge.ID] {
			return true
		}
	}

	return false
}
