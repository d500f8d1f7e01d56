package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"pos-sync/internal/logger"
	"pos-sync/internal/models"
)

// Producer publishes push events for the order-service. Payload shapes vary
// by event kind for compatibility with the historical producers the surfaces
// already normalize: created carries the full object, updated nests the
// partial under "order"/"table", deleted carries an ID reference.
type Producer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{writer: writer, log: log}
}

// PublishOrderCreated streams the full new order.
func (p *Producer) PublishOrderCreated(order models.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return p.publish(order.ID, models.Event{Type: models.EventOrderCreated, Payload: payload})
}

// PublishOrderUpdated streams the changed fields nested under "order".
func (p *Producer) PublishOrderUpdated(id string, changed map[string]any) error {
	changed["id"] = id
	payload, err := json.Marshal(map[string]any{"order": changed})
	if err != nil {
		return err
	}
	return p.publish(id, models.Event{Type: models.EventOrderUpdated, Payload: payload})
}

// PublishOrderDeleted streams an ID reference.
func (p *Producer) PublishOrderDeleted(id string) error {
	payload, err := json.Marshal(map[string]any{"orderId": id})
	if err != nil {
		return err
	}
	return p.publish(id, models.Event{Type: models.EventOrderDeleted, Payload: payload})
}

// PublishTableUpdated streams the changed table fields nested under "table".
func (p *Producer) PublishTableUpdated(id string, changed map[string]any) error {
	changed["id"] = id
	payload, err := json.Marshal(map[string]any{"table": changed})
	if err != nil {
		return err
	}
	return p.publish(id, models.Event{Type: models.EventTableUpdated, Payload: payload})
}

func (p *Producer) publish(key string, ev models.Event) error {
	msgBytes, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.log.LogKafka("publish", p.writer.Topic, fmt.Sprintf("[%s] %s", ev.Type, key))

	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// Close gracefully shuts down the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
