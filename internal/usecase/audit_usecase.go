package usecase

import (
	"context"

	"authgate/internal/domain/service"
)

// AuditConsumer records account events delivered by the message queue.
type AuditConsumer interface {
	// Consume returns ErrInvalidEvent for events that will never be accepted.
	// Any other error is worth a redelivery.
	Consume(ctx context.Context, event *service.AccountEvent) error
}
