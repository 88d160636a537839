package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"shopcore/internal/pkg/mq"
	"shopcore/internal/store/port"
)

// EventBusKafkaAdapter publishes order lifecycle events to the orders
// topic, keyed by event ID so replays stay identifiable.
type EventBusKafkaAdapter struct {
	writer *kafka.Writer
}

func NewEventBusKafkaAdapter(writer *kafka.Writer) *EventBusKafkaAdapter {
	return &EventBusKafkaAdapter{writer: writer}
}

func (a *EventBusKafkaAdapter) Publish(ctx context.Context, event port.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(event.EventID), payload)
}

func (a *EventBusKafkaAdapter) Close() error {
	return a.writer.Close()
}
