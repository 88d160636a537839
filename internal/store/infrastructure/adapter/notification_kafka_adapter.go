package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"shopcore/internal/pkg/mq"
)

// NotificationKafkaAdapter implements port.NotificationGateway by handing
// messages to the notifications topic; an out-of-process mailer consumes
// them. Delivery retries belong to that consumer, not to the workflow.
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

type mailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (a *NotificationKafkaAdapter) Send(ctx context.Context, toAddress, subject, body string) error {
	payload, err := json.Marshal(mailMessage{To: toAddress, Subject: subject, Body: body})
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(toAddress), payload)
}

func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
