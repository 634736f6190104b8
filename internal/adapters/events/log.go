package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/middleware"
)

// LogPublisher writes events and notifications to the structured log. It is used
// when no Kafka brokers are configured.
type LogPublisher struct{}

var (
	_ portssvc.EventPublisher = LogPublisher{}
	_ portssvc.Notifier       = LogPublisher{}
)

func (LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	middleware.GetLoggerFromCtx(ctx).Info("Event published",
		slog.String("type", string(event.Type)),
		slog.String("order_id", event.OrderID),
		slog.Any("channels", event.Channels),
		slog.Any("payload", event.Payload))
	return nil
}

func (LogPublisher) NotifyUser(ctx context.Context, n domain.Notification) error {
	middleware.GetLoggerFromCtx(ctx).Info("Notification sent",
		slog.String("user_id", n.UserID),
		slog.String("order_id", n.OrderID),
		slog.String("title", n.Title))
	return nil
}

// SendOTP never logs the code itself.
func (LogPublisher) SendOTP(ctx context.Context, userID, orderID, _ string, expiresAt time.Time) error {
	middleware.GetLoggerFromCtx(ctx).Info("Delivery OTP issued",
		slog.String("user_id", userID),
		slog.String("order_id", orderID),
		slog.Time("expires_at", expiresAt))
	return nil
}
