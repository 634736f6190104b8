package services

import (
	"context"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
)

// EventPublisher broadcasts order, shipment and workflow changes to role-scoped
// channels. Publish is called after commit and its failure never rolls back state.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Notifier sends fire-and-forget user notifications.
type Notifier interface {
	NotifyUser(ctx context.Context, notification domain.Notification) error
	SendOTP(ctx context.Context, userID, orderID, code string, expiresAt time.Time) error
}

// Scheduler runs a task at or after its RunAt with at-least-once delivery.
type Scheduler interface {
	Schedule(ctx context.Context, task domain.ScheduledTask) error
}

// TaskHandler consumes due scheduled tasks. It must tolerate redelivery.
type TaskHandler interface {
	HandleTask(ctx context.Context, task domain.ScheduledTask) error
}
