package notify

import (
	"context"
	"log/slog"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/middleware"
)

// LogNotifier writes lifecycle events to the request logger.
type LogNotifier struct{}

var _ portssvc.Notifier = LogNotifier{}

func (LogNotifier) Notify(ctx context.Context, event domain.LifecycleEvent) {
	attrs := make([]any, 0, len(event.Attributes)+4)
	attrs = append(attrs,
		slog.String("event", string(event.Kind)),
		slog.String("declaration_id", event.DeclarationID),
		slog.String("recipient_id", event.RecipientID),
		slog.Time("occurred_at", event.OccurredAt),
	)
	for k, v := range event.Attributes {
		attrs = append(attrs, slog.String(k, v))
	}
	middleware.GetLoggerFromCtx(ctx).Info("Lifecycle event", attrs...)
}

// FanOut delivers every event to each notifier in order.
type FanOut []portssvc.Notifier

var _ portssvc.Notifier = FanOut(nil)

func (f FanOut) Notify(ctx context.Context, event domain.LifecycleEvent) {
	for _, n := range f {
		n.Notify(ctx, event)
	}
}
