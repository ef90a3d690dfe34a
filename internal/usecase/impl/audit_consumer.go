package impl

import (
	"context"
	"log/slog"

	deliverycontext "authgate/internal/delivery/context"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/domain/service"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

const (
	auditRecorded = "recorded"
	auditRejected = "rejected"
)

// auditConsumer writes one structured audit entry per account event.
type auditConsumer struct {
	metrics service.AuditMetrics
	logger  *slog.Logger
}

// AuditConsumerParams holds dependencies for AuditConsumer, injected by Fx.
type AuditConsumerParams struct {
	fx.In

	Metrics service.AuditMetrics
	Logger  *slog.Logger
}

// NewAuditConsumer is the constructor for auditConsumer.
func NewAuditConsumer(params AuditConsumerParams) usecase.AuditConsumer {
	return &auditConsumer{
		metrics: params.Metrics,
		logger:  params.Logger,
	}
}

func (a *auditConsumer) Consume(ctx context.Context, event *service.AccountEvent) error {
	logger := deliverycontext.GetLoggerOrDefault(ctx, a.logger)

	if details := validateAccountEvent(event); details != "" {
		eventType := "unknown"
		if event != nil && event.Type.Valid() {
			eventType = string(event.Type)
		}
		a.metrics.RecordAccountEvent(eventType, auditRejected)
		logger.Warn("Rejected account event", slog.String("reason", details))

		return domainerrors.ErrInvalidEvent.WithDetails(details)
	}

	a.metrics.RecordAccountEvent(string(event.Type), auditRecorded)
	logger.Info("Account event",
		slog.String("type", string(event.Type)),
		slog.String("user_id", event.UserID),
		slog.String("provider", event.Provider),
		slog.Time("occurred_at", event.OccurredAt),
	)

	return nil
}

// validateAccountEvent returns an empty string for a well-formed event.
func validateAccountEvent(event *service.AccountEvent) string {
	switch {
	case event == nil:
		return "event is empty"
	case !event.Type.Valid():
		return "unknown event type"
	case event.OccurredAt.IsZero():
		return "occurred_at is missing"
	}

	if _, err := uuid.Parse(event.UserID); err != nil {
		return "user_id is not a uuid"
	}

	return ""
}
