package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes coordinator events and user notifications to two topics,
// keyed by order id so that one order's messages stay ordered within a partition.
type KafkaPublisher struct {
	events        MessageWriter
	notifications MessageWriter
}

// NewKafkaWriter builds a writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaPublisher creates a publisher over the given writers.
func NewKafkaPublisher(events, notifications MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{events: events, notifications: notifications}
}

var (
	_ portssvc.EventPublisher = (*KafkaPublisher)(nil)
	_ portssvc.Notifier       = (*KafkaPublisher)(nil)
)

// notificationMessage is the wire format of the notifications topic.
type notificationMessage struct {
	Kind      string            `json:"kind"`
	UserID    string            `json:"userID"`
	OrderID   string            `json:"orderID,omitempty"`
	Title     string            `json:"title,omitempty"`
	Body      string            `json:"body,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Code      string            `json:"code,omitempty"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.events.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.OrderID),
		Value:   data,
		Headers: []kafka.Header{{Key: "type", Value: []byte(event.Type)}},
	})
}

func (p *KafkaPublisher) NotifyUser(ctx context.Context, n domain.Notification) error {
	return p.writeNotification(ctx, notificationMessage{
		Kind:    "push",
		UserID:  n.UserID,
		OrderID: n.OrderID,
		Title:   n.Title,
		Body:    n.Body,
		Data:    n.Data,
	})
}

func (p *KafkaPublisher) SendOTP(ctx context.Context, userID, orderID, code string, expiresAt time.Time) error {
	return p.writeNotification(ctx, notificationMessage{
		Kind:      "otp",
		UserID:    userID,
		OrderID:   orderID,
		Code:      code,
		ExpiresAt: &expiresAt,
	})
}

func (p *KafkaPublisher) writeNotification(ctx context.Context, msg notificationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return p.notifications.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.UserID),
		Value: data,
	})
}

// Close flushes and closes both writers.
func (p *KafkaPublisher) Close() error {
	errEvents := p.events.Close()
	errNotifications := p.notifications.Close()
	if errEvents != nil {
		return errEvents
	}
	return errNotifications
}
