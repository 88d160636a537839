package port

import (
	"context"

	"shopcore/internal/store/domain"
)

// OrderEvent is the payload broadcast after an order commit. EventID is
// unique per publication and doubles as the message key.
type OrderEvent struct {
	EventID    string        `json:"eventId"`
	OrderID    uint          `json:"orderId"`
	CustomerID uint          `json:"customerId"`
	Status     domain.Status `json:"status"`
	Message    string        `json:"message"`
}

// EventBus publishes order lifecycle events to interested consumers
// (message broker, connected websocket clients). Best-effort, post-commit.
type EventBus interface {
	Publish(ctx context.Context, event OrderEvent) error
}
