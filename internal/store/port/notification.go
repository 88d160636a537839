package port

import "context"

// NotificationGateway delivers customer-facing messages (order
// confirmations, status updates). Implementations are best-effort: the
// workflow logs failures and never surfaces them to the caller.
type NotificationGateway interface {
	Send(ctx context.Context, toAddress, subject, body string) error
}
