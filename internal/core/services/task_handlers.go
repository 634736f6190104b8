package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
)

// taskHandler runs due scheduled tasks, each in its own transaction. Expected
// domain outcomes are logged and acknowledged; storage failures are returned
// so the scheduler redelivers the task.
type taskHandler struct {
	BaseService
	tm       portsrepo.TransactionManager
	dispatch portssvc.DispatchSvc
	orders   portssvc.OrderSvc
}

var _ portssvc.TaskHandler = (*taskHandler)(nil)

func (h *taskHandler) HandleTask(ctx context.Context, task domain.ScheduledTask) error {
	logger := h.GetLogger(ctx).With(
		slog.String("task_id", task.TaskID),
		slog.String("kind", string(task.Kind)),
		slog.String("order_id", task.OrderID))

	err := h.tm.WithinTx(ctx, func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		switch task.Kind {
		case domain.TaskBroadcastOffers:
			_, err := h.dispatch.BroadcastOffers(ctx, uow, task.JobID, task.Mode)
			return err
		case domain.TaskEscrowAutoRelease:
			_, err := h.orders.AutoRelease(ctx, uow, task.OrderID)
			return err
		default:
			logger.Warn("Unknown task kind, dropping")
			return nil
		}
	})
	if err == nil {
		logger.Debug("Task handled")
		return nil
	}
	if apperrors.IsDomain(err) {
		logger.Warn("Task finished with domain outcome", slog.String("error", err.Error()))
		return nil
	}
	logger.Error("Task failed", slog.String("error", err.Error()))
	return err
}
