package domain

import "time"

// EventType names an order, shipment or workflow change broadcast to listeners.
type EventType string

const (
	EventOrderStatusChanged EventType = "order.status_changed"
	EventPaymentCaptured    EventType = "order.payment_captured"
	EventWorkflowAdvanced   EventType = "workflow.advanced"
	EventQuoteUpdated       EventType = "quote.updated"
	EventOfferSent          EventType = "shipment.offer_sent"
	EventRiderAssigned      EventType = "shipment.rider_assigned"
	EventShipmentUpdated    EventType = "shipment.updated"
	EventEscrowChanged      EventType = "escrow.changed"
	EventDisputeChanged     EventType = "dispute.changed"
)

// Channel is a role-scoped listener group for one order.
type Channel string

const (
	ChannelBuyer  Channel = "buyer"
	ChannelSeller Channel = "seller"
	ChannelRider  Channel = "rider"
	ChannelAdmin  Channel = "admin"
)

// Event is published after the transaction that produced it commits.
type Event struct {
	Type       EventType         `json:"type"`
	OrderID    string            `json:"orderID"`
	Channels   []Channel         `json:"channels"`
	Payload    map[string]string `json:"payload,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Notification is a fire-and-forget message to one user.
type Notification struct {
	UserID  string            `json:"userID"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	OrderID string            `json:"orderID,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}

// TaskKind names a deferred action.
type TaskKind string

const (
	TaskBroadcastOffers   TaskKind = "broadcast_offers"
	TaskEscrowAutoRelease TaskKind = "escrow_auto_release"
)

// ScheduledTask is a "run at or after RunAt" message. Handlers must tolerate
// redelivery.
type ScheduledTask struct {
	TaskID  string        `json:"taskID"`
	Kind    TaskKind      `json:"kind"`
	JobID   string        `json:"jobID,omitempty"`
	OrderID string        `json:"orderID,omitempty"`
	Mode    BroadcastMode `json:"mode,omitempty"`
	RunAt   time.Time     `json:"runAt"`
}
