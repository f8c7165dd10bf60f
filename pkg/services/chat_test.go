package services

import (
	"errors"
	"testing"

	"github.com/dukex/flowforge/pkg/dedupe"
	"github.com/dukex/flowforge/pkg/log"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func saveChatWorkflow(t *testing.T, store *file.Persistence, id, owner string, configs ...map[string]any) {
	t.Helper()

	nodes := make([]*models.WorkflowNode, 0, len(configs))
	for i, config := range configs {
		nodes = append(nodes, &models.WorkflowNode{
			ID:       id + "-trigger-" + string(rune('a'+i)),
			Type:     models.NodeTypeSlackTrigger,
			Config:   config,
			Position: i,
		})
	}

	require.NoError(t, store.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID: id, Name: id, UserID: owner, Nodes: nodes,
	}))
}

func messageEvent() ChatEvent {
	return ChatEvent{
		TeamID:    "T1",
		EventID:   "Ev1",
		EventType: "message",
		Channel:   "C1",
		User:      "U1",
		Text:      "hello",
		Raw:       map[string]any{"type": "event_callback"},
	}
}

func TestChatEvents_DispatchRunsEachMatchingWorkflowOnce(t *testing.T) {
	store := newStore(t)
	saveChatWorkflow(t, store, "wf-a", "alice", map[string]any{"team_id": "T1"}, map[string]any{"channel": "C1"})
	saveChatWorkflow(t, store, "wf-b", "bob", map[string]any{"team_id": "T2"})
	saveChatWorkflow(t, store, "wf-c", "carol", map[string]any{"event_types": []any{"app_mention"}})

	executor := &mockExecutor{}
	executor.On("Execute", mock.Anything, "wf-a").Return("ok", nil)

	service := NewChatEvents(store.WorkflowRepository(), executor, dedupe.NewMemoryStore(0), nil, log.Discard())

	started, err := service.Dispatch(t.Context(), messageEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, started)

	require.Len(t, executor.requests, 1)
	assert.Equal(t, "alice", executor.requests[0].UserID)
	assert.Equal(t, map[string]any{
		"source":        "slack",
		"team_id":       "T1",
		"event_id":      "Ev1",
		"event_type":    "message",
		"event_subtype": nil,
		"channel":       "C1",
		"user":          "U1",
		"text":          "hello",
		"raw":           map[string]any{"type": "event_callback"},
	}, executor.requests[0].Input)

	started, err = service.Dispatch(t.Context(), messageEvent())
	require.NoError(t, err)
	assert.Equal(t, 0, started)
	executor.AssertNumberOfCalls(t, "Execute", 1)
}

func TestChatEvents_DispatchIgnoresBotsAndMissingTeam(t *testing.T) {
	store := newStore(t)
	saveChatWorkflow(t, store, "wf", "owner", map[string]any{})

	executor := &mockExecutor{}
	service := NewChatEvents(store.WorkflowRepository(), executor, dedupe.NewMemoryStore(0), nil, log.Discard())

	bot := messageEvent()
	bot.BotID = "B1"

	botSubtype := messageEvent()
	botSubtype.Subtype = "bot_message"

	noTeam := messageEvent()
	noTeam.TeamID = ""

	for _, event := range []ChatEvent{bot, botSubtype, noTeam} {
		started, err := service.Dispatch(t.Context(), event)
		require.NoError(t, err)
		assert.Zero(t, started)
	}

	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestChatEvents_RunFailureIsNotReturned(t *testing.T) {
	store := newStore(t)
	saveChatWorkflow(t, store, "wf", "owner", map[string]any{})

	executor := &mockExecutor{}
	executor.On("Execute", mock.Anything, "wf").Return(nil, errors.New("boom"))

	service := NewChatEvents(store.WorkflowRepository(), executor, dedupe.NewMemoryStore(0), nil, log.Discard())

	started, err := service.Dispatch(t.Context(), messageEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, started)
}

func TestMatchesChatTrigger(t *testing.T) {
	event := messageEvent()

	tests := []struct {
		name   string
		config map[string]any
		want   bool
	}{
		{"empty config matches default types", map[string]any{}, true},
		{"team mismatch", map[string]any{"team_id": "T9"}, false},
		{"channel mismatch", map[string]any{"channel": "C9"}, false},
		{"explicit event types", map[string]any{"event_types": []string{"app_mention"}}, false},
		{"empty event types fall back", map[string]any{"event_types": []any{}}, true},
		{"all filters match", map[string]any{"team_id": "T1", "channel": "C1", "event_types": []any{"message"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesChatTrigger(tt.config, event))
		})
	}

	noChannel := event
	noChannel.Channel = ""
	assert.True(t, MatchesChatTrigger(map[string]any{"channel": "C9"}, noChannel))
}
