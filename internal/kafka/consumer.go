package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"pos-sync/internal/logger"
	"pos-sync/internal/models"
)

// Consumer is the push subscription for one client surface. Each surface uses
// its own group ID so every terminal receives every event.
type Consumer struct {
	brokers []string
	topic   string
	groupID string
	log     *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	return &Consumer{brokers: brokers, topic: topic, groupID: groupID, log: log}
}

// Run blocks reading events until the context is cancelled or the reader
// fails, satisfying livesync.EventSource. Messages that do not decode into an
// event envelope are logged and dropped; they never stop the loop.
func (c *Consumer) Run(ctx context.Context, handle func(models.Event)) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.brokers,
		Topic:    c.topic,
		GroupID:  c.groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	c.log.LogKafka("subscribe", c.topic, fmt.Sprintf("group %s consuming", c.groupID))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		var ev models.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Warn("KAFKA", fmt.Sprintf("malformed event dropped: %v", err))
			continue
		}
		handle(ev)
	}
}
