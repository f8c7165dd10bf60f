package file

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

const (
	runsCollection     = "runs"
	nodeRunsCollection = "node_runs"
)

// RunRepository stores workflow runs and node runs as separate documents.
type RunRepository struct {
	docs *documents

	seqMu   sync.Mutex
	lastSeq int64
}

type nodeRunDocument struct {
	models.NodeRun

	Seq int64 `json:"seq"`
}

func (rr *RunRepository) nextSeq() int64 {
	rr.seqMu.Lock()
	defer rr.seqMu.Unlock()

	rr.lastSeq = max(rr.lastSeq+1, time.Now().UnixNano())

	return rr.lastSeq
}

func (rr *RunRepository) CreateRun(_ context.Context, run *models.WorkflowRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	return rr.docs.write(runsCollection, run.ID, run)
}

func (rr *RunRepository) CompleteRun(_ context.Context, runID string, output any) error {
	return rr.finishRun("CompleteRun", runID, func(run *models.WorkflowRun) {
		run.Status = models.RunStatusSuccess
		run.Output = output
	})
}

func (rr *RunRepository) FailRun(_ context.Context, runID string, message string) error {
	return rr.finishRun("FailRun", runID, func(run *models.WorkflowRun) {
		run.Status = models.RunStatusFailed
		run.Error = message
	})
}

func (rr *RunRepository) finishRun(op, runID string, apply func(*models.WorkflowRun)) error {
	var run models.WorkflowRun

	err := rr.docs.update(runsCollection, runID, &run, func() error {
		if run.Status.IsTerminal() {
			return persistence.ErrRunFinalized
		}

		apply(&run)

		now := time.Now().UTC()
		run.CompletedAt = &now

		return nil
	})

	return wrapRunErr(op, runID, err)
}

func (rr *RunRepository) GetRun(_ context.Context, runID string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun

	err := rr.docs.read(runsCollection, runID, &run)
	if err != nil {
		return nil, wrapRunErr("GetRun", runID, err)
	}

	return &run, nil
}

func (rr *RunRepository) CreateNodeRun(_ context.Context, nodeRun *models.NodeRun) error {
	if nodeRun.StartedAt.IsZero() {
		nodeRun.StartedAt = time.Now().UTC()
	}

	return rr.docs.write(nodeRunsCollection, nodeRun.ID, &nodeRunDocument{NodeRun: *nodeRun, Seq: rr.nextSeq()})
}

func (rr *RunRepository) CompleteNodeRun(_ context.Context, nodeRunID string, output any) error {
	return rr.finishNodeRun("CompleteNodeRun", nodeRunID, func(nodeRun *models.NodeRun) {
		nodeRun.Status = models.RunStatusSuccess
		nodeRun.Output = output
	})
}

func (rr *RunRepository) FailNodeRun(_ context.Context, nodeRunID string, message string) error {
	return rr.finishNodeRun("FailNodeRun", nodeRunID, func(nodeRun *models.NodeRun) {
		nodeRun.Status = models.RunStatusFailed
		nodeRun.Error = message
	})
}

func (rr *RunRepository) finishNodeRun(op, nodeRunID string, apply func(*models.NodeRun)) error {
	var doc nodeRunDocument

	err := rr.docs.update(nodeRunsCollection, nodeRunID, &doc, func() error {
		if doc.Status.IsTerminal() {
			return persistence.ErrRunFinalized
		}

		apply(&doc.NodeRun)

		now := time.Now().UTC()
		doc.CompletedAt = &now

		return nil
	})

	return wrapRunErr(op, nodeRunID, err)
}

// NodeRuns scans every node run document; the file backend keeps no index.
func (rr *RunRepository) NodeRuns(_ context.Context, runID string) ([]*models.NodeRun, error) {
	ids, err := rr.docs.ids(nodeRunsCollection)
	if err != nil {
		return nil, err
	}

	docs := make([]*nodeRunDocument, 0)

	for _, id := range ids {
		var doc nodeRunDocument

		err := rr.docs.read(nodeRunsCollection, id, &doc)
		if err != nil {
			return nil, fmt.Errorf("failed to read node run %s: %w", id, err)
		}

		if doc.WorkflowRunID == runID {
			docs = append(docs, &doc)
		}
	}

	slices.SortFunc(docs, func(a, b *nodeRunDocument) int { return cmp.Compare(a.Seq, b.Seq) })

	nodeRuns := make([]*models.NodeRun, len(docs))
	for i, doc := range docs {
		nodeRuns[i] = &doc.NodeRun
	}

	return nodeRuns, nil
}

func wrapRunErr(op, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return persistence.NewRunError(op, id, persistence.ErrRunNotFound)
	default:
		return persistence.NewRunError(op, id, err)
	}
}
