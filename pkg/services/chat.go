package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/flowforge/pkg/dedupe"
	"github.com/dukex/flowforge/pkg/metrics"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/workflow"
)

// DefaultChatEventTypes are matched by chat triggers without event_types.
var DefaultChatEventTypes = []string{"message", "app_mention"}

// ChatEvent is one event callback delivered by the chat provider.
type ChatEvent struct {
	TeamID    string
	EventID   string
	EventType string
	Subtype   string
	Channel   string
	User      string
	Text      string
	BotID     string
	Raw       any
}

// Input is the workflow input built from the event.
func (e ChatEvent) Input() map[string]any {
	return map[string]any{
		"source":        "slack",
		"team_id":       e.TeamID,
		"event_id":      e.EventID,
		"event_type":    e.EventType,
		"event_subtype": nullable(e.Subtype),
		"channel":       nullable(e.Channel),
		"user":          nullable(e.User),
		"text":          nullable(e.Text),
		"raw":           e.Raw,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}

// ChatEvents starts the workflows whose chat trigger matches an event.
type ChatEvents struct {
	workflows persistence.WorkflowRepository
	executor  Executor
	dedupe    dedupe.Store
	metrics   *metrics.Collector
	logger    *slog.Logger
}

func NewChatEvents(
	workflows persistence.WorkflowRepository,
	executor Executor,
	store dedupe.Store,
	collector *metrics.Collector,
	logger *slog.Logger,
) *ChatEvents {
	return &ChatEvents{
		workflows: workflows,
		executor:  executor,
		dedupe:    store,
		metrics:   collector,
		logger:    logger.With("module", "chat_events"),
	}
}

// Dispatch runs every distinct workflow with a matching trigger once per
// event id and returns how many runs were started. Bot messages and events
// without a team are ignored. Run failures are logged, not returned.
func (s *ChatEvents) Dispatch(ctx context.Context, event ChatEvent) (int, error) {
	if event.Subtype == "bot_message" || event.BotID != "" || event.TeamID == "" {
		return 0, nil
	}

	refs, err := s.workflows.NodesByType(ctx, models.NodeTypeSlackTrigger)
	if err != nil {
		return 0, err
	}

	owners := make(map[string]string)
	order := make([]string, 0)

	for _, ref := range refs {
		if !MatchesChatTrigger(ref.Node.Config, event) {
			continue
		}

		if _, seen := owners[ref.WorkflowID]; !seen {
			order = append(order, ref.WorkflowID)
		}

		owners[ref.WorkflowID] = ref.UserID
	}

	input := event.Input()

	var (
		wg      sync.WaitGroup
		started int
	)

	for _, workflowID := range order {
		if event.EventID != "" {
			claimed, err := s.dedupe.Claim(ctx, workflowID+":"+event.EventID)
			if err != nil {
				return started, err
			}

			if !claimed {
				s.metrics.RecordTriggerEvent("duplicate")
				s.logger.InfoContext(ctx, "skipping duplicate chat event", "workflow_id", workflowID, "event_id", event.EventID)

				continue
			}
		}

		s.metrics.RecordTriggerEvent("accepted")
		started++

		wg.Add(1)

		go func(workflowID, userID string) {
			defer wg.Done()

			_, err := s.executor.Execute(ctx, workflow.ExecuteRequest{WorkflowID: workflowID, UserID: userID, Input: input})
			if err != nil {
				s.logger.ErrorContext(ctx, "chat triggered run failed", "workflow_id", workflowID, "event_id", event.EventID, "error", err)
			}
		}(workflowID, owners[workflowID])
	}

	wg.Wait()

	return started, nil
}

// MatchesChatTrigger applies the team_id, channel and event_types filters of
// a chat trigger configuration. Empty filters match anything.
func MatchesChatTrigger(config map[string]any, event ChatEvent) bool {
	if team, _ := config["team_id"].(string); team != "" && team != event.TeamID {
		return false
	}

	if channel, _ := config["channel"].(string); channel != "" && event.Channel != "" && channel != event.Channel {
		return false
	}

	types := stringList(config["event_types"])
	if len(types) == 0 {
		types = DefaultChatEventTypes
	}

	return slices.Contains(types, event.EventType)
}

func stringList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}
