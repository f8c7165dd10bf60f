package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	_, _, err := CreateChannel(watermill.NopLogger{}, Config{ConsumerGroup: "cg-flowforge"})
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, _, err = CreateChannel(watermill.NopLogger{}, Config{Brokers: []string{"", ""}})
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestConfig_BrokersDropsBlanks(t *testing.T) {
	cfg := Config{Brokers: []string{"", "kafka-1:9092", "", "kafka-2:9092"}}

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.brokers())
	assert.Len(t, cfg.Brokers, 4)
}

func TestRunPartitionKey(t *testing.T) {
	msg := message.NewMessage("msg-1", []byte(`{}`))
	msg.Metadata.Set(events.EventMetadataKey, "run-42")

	key, err := runPartitionKey(events.Topic, msg)
	require.NoError(t, err)
	assert.Equal(t, "run-42", key)
}
