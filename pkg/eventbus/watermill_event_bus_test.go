package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowforge/pkg/channels/gochannel"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	pub, sub := gochannel.CreateChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.NodeRunCompleted, 1)

	require.NoError(t, bus.Handle(events.NodeRunCompletedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.NodeRunCompleted)

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, bus.Subscribe(ctx))

	// Events without a handler are dropped.
	require.NoError(t, bus.Publish(ctx, "run-1", events.WorkflowRunStarted{
		BaseEvent: events.NewBaseEvent(events.WorkflowRunStartedEvent, "wf-1", "run-1", "u"),
	}))

	require.NoError(t, bus.Publish(ctx, "run-1", events.NodeRunCompleted{
		BaseEvent: events.NewBaseEvent(events.NodeRunCompletedEvent, "wf-1", "run-1", "u"),
		NodeID:    "a",
		NodeType:  models.NodeTypeTrigger,
		Status:    models.RunStatusSuccess,
	}))

	select {
	case event := <-received:
		assert.Equal(t, "a", event.NodeID)
		assert.Equal(t, models.RunStatusSuccess, event.Status)
		assert.Equal(t, "run-1", event.RunID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	assert.NotEmpty(t, bus.GenerateID())
}
