package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/middleware"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/clock"
	"github.com/google/uuid"
)

// BaseService provides common functionality for all services
type BaseService struct {
	Clock     clock.Clock
	Publisher portssvc.EventPublisher
	Notifier  portssvc.Notifier
	Scheduler portssvc.Scheduler
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

// LogWarn logs a warning with consistent formatting
func (s *BaseService) LogWarn(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Warn(msg, keyvals...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// Now returns the injected clock's time.
func (s *BaseService) Now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

// Publish sends event once the unit of work commits. Failures are logged only.
func (s *BaseService) Publish(uow portsrepo.UnitOfWork, event domain.Event) {
	if s.Publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.Now()
	}
	uow.AfterCommit(func(ctx context.Context) {
		if err := s.Publisher.Publish(ctx, event); err != nil {
			s.LogError(ctx, err, "Failed to publish event", slog.String("type", string(event.Type)), slog.String("order_id", event.OrderID))
		}
	})
}

// Notify sends a user notification once the unit of work commits.
func (s *BaseService) Notify(uow portsrepo.UnitOfWork, n domain.Notification) {
	if s.Notifier == nil || n.UserID == "" {
		return
	}
	uow.AfterCommit(func(ctx context.Context) {
		if err := s.Notifier.NotifyUser(ctx, n); err != nil {
			s.LogError(ctx, err, "Failed to notify user", slog.String("user_id", n.UserID), slog.String("order_id", n.OrderID))
		}
	})
}

// ScheduleAfterCommit enqueues task once the unit of work commits.
func (s *BaseService) ScheduleAfterCommit(uow portsrepo.UnitOfWork, task domain.ScheduledTask) {
	if s.Scheduler == nil {
		return
	}
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	uow.AfterCommit(func(ctx context.Context) {
		if err := s.Scheduler.Schedule(ctx, task); err != nil {
			s.LogError(ctx, err, "Failed to schedule task",
				slog.String("kind", string(task.Kind)),
				slog.String("job_id", task.JobID),
				slog.String("order_id", task.OrderID),
				slog.Time("run_at", task.RunAt))
		}
	})
}

// Audit appends an audit record inside the current unit of work.
func (s *BaseService) Audit(ctx context.Context, uow portsrepo.UnitOfWork, entityType, entityID, action, actorID string, metadata map[string]string) error {
	return uow.Audit().AppendAudit(ctx, domain.AuditRecord{
		AuditID:    uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Metadata:   metadata,
		CreatedAt:  s.Now(),
	})
}

// TransitionOrder moves order to next, appends a status-history row and
// announces the change. The caller persists the order.
func (s *BaseService) TransitionOrder(ctx context.Context, uow portsrepo.UnitOfWork, order *domain.Order, next domain.OrderStatus, actorID, reason string) error {
	if !order.Status.CanTransitionTo(next) {
		return domain.ErrInvalidTransition
	}
	now := s.Now()
	history := domain.OrderStatusHistory{
		HistoryID:  uuid.NewString(),
		OrderID:    order.OrderID,
		FromStatus: order.Status,
		ToStatus:   next,
		ActorID:    actorID,
		Reason:     reason,
		CreatedAt:  now,
	}
	if err := uow.Orders().AppendStatusHistory(ctx, history); err != nil {
		return err
	}
	order.Status = next
	order.LastUpdatedAt = now
	order.LastUpdatedBy = actorID

	channels := []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller, domain.ChannelAdmin}
	if order.HasRider() {
		channels = append(channels, domain.ChannelRider)
	}
	s.Publish(uow, domain.Event{
		Type:     domain.EventOrderStatusChanged,
		OrderID:  order.OrderID,
		Channels: channels,
		Payload:  map[string]string{"from": string(history.FromStatus), "to": string(next)},
	})
	s.LogInfo(ctx, "Order status changed",
		slog.String("order_id", order.OrderID),
		slog.String("from", string(history.FromStatus)),
		slog.String("to", string(next)))
	return nil
}
