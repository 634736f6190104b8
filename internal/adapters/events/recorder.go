package events

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
)

// SentOTP is one OTP captured by a Recorder.
type SentOTP struct {
	UserID    string
	OrderID   string
	Code      string
	ExpiresAt time.Time
}

// Recorder keeps every event, notification and OTP in memory.
type Recorder struct {
	mu            sync.Mutex
	events        []domain.Event
	notifications []domain.Notification
	otps          []SentOTP
}

var (
	_ portssvc.EventPublisher = (*Recorder)(nil)
	_ portssvc.Notifier       = (*Recorder)(nil)
)

func (r *Recorder) Publish(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) NotifyUser(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *Recorder) SendOTP(_ context.Context, userID, orderID, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.otps = append(r.otps, SentOTP{UserID: userID, OrderID: orderID, Code: code, ExpiresAt: expiresAt})
	return nil
}

// Events returns the recorded events of the given type, or all when typ is empty.
func (r *Recorder) Events(typ domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Event{}
	for _, e := range r.events {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Notifications returns the notifications sent to userID.
func (r *Recorder) Notifications(userID string) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Notification{}
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// LastOTP returns the most recent OTP sent for orderID.
func (r *Recorder) LastOTP(orderID string) (SentOTP, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.otps) - 1; i >= 0; i-- {
		if r.otps[i].OrderID == orderID {
			return r.otps[i], true
		}
	}
	return SentOTP{}, false
}
