package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/middleware"
	"github.com/SscSPs/etat_civil_app/internal/platform/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	defaultStreamMaxLen = 100_000
	publishTimeout      = 2 * time.Second
)

// RedisStreamNotifier appends lifecycle events to a Redis stream consumed by
// the delivery workers (SMS, e-mail). Failures are logged and counted.
type RedisStreamNotifier struct {
	client  redis.UniversalClient
	stream  string
	maxLen  int64
	metrics *metrics.Metrics
}

func NewRedisStreamNotifier(client redis.UniversalClient, stream string, m *metrics.Metrics) *RedisStreamNotifier {
	return &RedisStreamNotifier{client: client, stream: stream, maxLen: defaultStreamMaxLen, metrics: m}
}

var _ portssvc.Notifier = (*RedisStreamNotifier)(nil)

func (n *RedisStreamNotifier) Notify(ctx context.Context, event domain.LifecycleEvent) {
	logger := middleware.GetLoggerFromCtx(ctx)

	attributes, err := json.Marshal(event.Attributes)
	if err != nil {
		logger.Error("Failed to encode event attributes", slog.String("error", err.Error()))
		n.metrics.NotificationFailed("redis")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: n.maxLen,
		Approx: true,
		Values: map[string]any{
			"kind":           string(event.Kind),
			"declaration_id": event.DeclarationID,
			"recipient_id":   event.RecipientID,
			"context":        event.Context,
			"attributes":     string(attributes),
			"occurred_at":    event.OccurredAt.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		logger.Error("Failed to publish lifecycle event",
			slog.String("event", string(event.Kind)),
			slog.String("stream", n.stream),
			slog.String("error", err.Error()))
		n.metrics.NotificationFailed("redis")
	}
}
