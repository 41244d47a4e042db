package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/middleware"
	"github.com/SscSPs/etat_civil_app/internal/platform/metrics"
)

// BaseService provides common functionality for all services
type BaseService struct {
	Notifier portssvc.Notifier
	Metrics  *metrics.Metrics
	Clock    func() time.Time
}

// ServiceOption is a functional option for the collaborators shared by all services
type ServiceOption func(*BaseService)

// WithNotifier sets the dispatcher that receives lifecycle events
func WithNotifier(n portssvc.Notifier) ServiceOption {
	return func(s *BaseService) {
		s.Notifier = n
	}
}

// WithMetrics sets the Prometheus collectors
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *BaseService) {
		s.Metrics = m
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *BaseService) {
		s.Clock = clock
	}
}

func newBaseService(opts []ServiceOption) BaseService {
	var b BaseService
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Now returns the current time in UTC
func (s *BaseService) Now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// Publish hands events to the notifier. It runs after the state change is
// stored, so a cancelled request does not drop notifications.
func (s *BaseService) Publish(ctx context.Context, events ...domain.LifecycleEvent) {
	if s.Notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, e := range events {
		s.Notifier.Notify(ctx, e)
	}
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}
