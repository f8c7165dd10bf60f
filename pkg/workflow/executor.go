package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/metrics"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExecuteRequest identifies the workflow to run and its input.
type ExecuteRequest struct {
	WorkflowID string
	UserID     string
	Input      any
	// RunID is generated when empty.
	RunID string
}

// RunError is returned when a run ends FAILED. Its message is the root cause,
// which is also the message stored on the run record.
type RunError struct {
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Executor runs workflows one node at a time and records every run.
type Executor struct {
	workflows persistence.WorkflowRepository
	runs      persistence.RunRepository
	nodes     map[models.NodeType]protocol.Node
	logger    *slog.Logger
	publisher eventbus.EventPublisher
	metrics   *metrics.Collector
	tracer    trace.Tracer
	newID     func() string
}

type Option func(*Executor)

// WithEventPublisher publishes run lifecycle events on publisher.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Executor) { e.publisher = publisher }
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(e *Executor) { e.metrics = collector }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) { e.tracer = tracer }
}

// WithIDGenerator overrides how run and node run ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(e *Executor) { e.newID = newID }
}

func NewExecutor(
	workflows persistence.WorkflowRepository,
	runs persistence.RunRepository,
	nodes map[models.NodeType]protocol.Node,
	logger *slog.Logger,
	opts ...Option,
) *Executor {
	e := &Executor{
		workflows: workflows,
		runs:      runs,
		nodes:     nodes,
		logger:    logger.With("module", "workflow_executor"),
		tracer:    otelhelper.Tracer("flowforge/workflow"),
		newID:     uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs a workflow to completion and returns its output. Any node
// failure fails the run and is returned wrapped in a *RunError.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) (any, error) {
	started := time.Now()

	runID := req.RunID
	if runID == "" {
		runID = e.newID()
	}

	run := &models.WorkflowRun{
		ID:         runID,
		WorkflowID: req.WorkflowID,
		UserID:     req.UserID,
		Input:      req.Input,
		Status:     models.RunStatusRunning,
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID),
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.UserIDKey, req.UserID),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", req.WorkflowID, "run_id", run.ID)

	err := e.runs.CreateRun(ctx, run)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create workflow run: %w", err)
	}

	logger.InfoContext(ctx, "workflow run started")
	e.publish(ctx, run.ID, events.WorkflowRunStarted{
		BaseEvent: events.NewBaseEvent(events.WorkflowRunStartedEvent, run.WorkflowID, run.ID, run.UserID),
		Input:     run.Input,
	})

	output, err := e.execute(ctx, logger, run)
	if err != nil {
		return nil, e.fail(ctx, logger, span, run, started, err)
	}

	err = e.runs.CompleteRun(ctx, run.ID, output)
	if err != nil {
		return nil, e.fail(ctx, logger, span, run, started, fmt.Errorf("failed to complete workflow run: %w", err))
	}

	duration := time.Since(started)

	logger.InfoContext(ctx, "workflow run completed", "duration_ms", duration.Milliseconds())
	span.SetStatus(codes.Ok, "")
	e.metrics.RecordRun(models.RunStatusSuccess, duration)
	e.publish(ctx, run.ID, events.WorkflowRunCompleted{
		BaseEvent:  events.NewBaseEvent(events.WorkflowRunCompletedEvent, run.WorkflowID, run.ID, run.UserID),
		Output:     output,
		DurationMs: duration.Milliseconds(),
	})

	return output, nil
}

func (e *Executor) execute(ctx context.Context, logger *slog.Logger, run *models.WorkflowRun) (any, error) {
	workflow, err := e.workflows.GetByID(ctx, run.WorkflowID)
	if err != nil {
		return nil, err
	}

	graph := BuildGraph(workflow.Nodes, workflow.Edges)

	order, err := graph.Order()
	if err != nil {
		return nil, err
	}

	state := newRunState(graph, run)

	for _, node := range order {
		input, live := state.input(node)
		if !live {
			logger.DebugContext(ctx, "skipping node on pruned branch", "node_id", node.ID)

			continue
		}

		err := e.executeNode(ctx, logger, state, node, input)
		if err != nil {
			return nil, err
		}
	}

	return state.output(), nil
}

func (e *Executor) executeNode(ctx context.Context, logger *slog.Logger, state *runState, node *models.WorkflowNode, input any) error {
	started := time.Now()
	logger = logger.With("node_id", node.ID, "node_type", node.Type)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	nodeRun := &models.NodeRun{
		ID:            e.newID(),
		WorkflowRunID: state.run.ID,
		NodeID:        node.ID,
		Input:         input,
		Status:        models.RunStatusRunning,
	}

	err := e.runs.CreateNodeRun(ctx, nodeRun)
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to create node run: %w", err)
	}

	logger.DebugContext(ctx, "executing node")

	recorded, propagated, err := e.dispatch(ctx, state, node, input)
	if err == nil && node.Type == models.NodeTypeConditional {
		err = state.prune(node, recorded)
	}

	if err != nil {
		otelhelper.SetError(span, err)
		e.finishNode(ctx, state, node, models.RunStatusFailed, err.Error(), started)

		failErr := e.runs.FailNodeRun(ctx, nodeRun.ID, err.Error())
		if failErr != nil {
			logger.ErrorContext(ctx, "failed to record node failure", "error", failErr)
		}

		return err
	}

	err = e.runs.CompleteNodeRun(ctx, nodeRun.ID, recorded)
	if err != nil {
		err = fmt.Errorf("failed to complete node run: %w", err)
		otelhelper.SetError(span, err)

		failErr := e.runs.FailNodeRun(ctx, nodeRun.ID, err.Error())
		if failErr != nil {
			logger.ErrorContext(ctx, "failed to record node failure", "error", failErr)
		}

		return err
	}

	state.record(node, propagated)
	e.finishNode(ctx, state, node, models.RunStatusSuccess, "", started)

	return nil
}

func (e *Executor) finishNode(ctx context.Context, state *runState, node *models.WorkflowNode, status models.RunStatus, message string, started time.Time) {
	duration := time.Since(started)

	e.metrics.RecordNode(node.Type, status, duration)
	e.publish(ctx, state.run.ID, events.NodeRunCompleted{
		BaseEvent:  events.NewBaseEvent(events.NodeRunCompletedEvent, state.run.WorkflowID, state.run.ID, state.run.UserID),
		NodeID:     node.ID,
		NodeType:   node.Type,
		Status:     status,
		Error:      message,
		DurationMs: duration.Milliseconds(),
	})
}

func (e *Executor) fail(ctx context.Context, logger *slog.Logger, span trace.Span, run *models.WorkflowRun, started time.Time, cause error) error {
	duration := time.Since(started)

	logger.ErrorContext(ctx, "workflow run failed", "error", cause, "duration_ms", duration.Milliseconds())
	otelhelper.SetError(span, cause)

	err := e.runs.FailRun(ctx, run.ID, cause.Error())
	if err != nil && !errors.Is(err, persistence.ErrRunFinalized) {
		logger.ErrorContext(ctx, "failed to record run failure", "error", err)
	}

	e.metrics.RecordRun(models.RunStatusFailed, duration)
	e.publish(ctx, run.ID, events.WorkflowRunFailed{
		BaseEvent:  events.NewBaseEvent(events.WorkflowRunFailedEvent, run.WorkflowID, run.ID, run.UserID),
		Error:      cause.Error(),
		DurationMs: duration.Milliseconds(),
	})

	return &RunError{RunID: run.ID, Err: cause}
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, key, event)
	if err != nil {
		e.logger.WarnContext(ctx, "failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
