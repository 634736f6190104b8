package domain

import "time"

// DispatchPurpose distinguishes outbound delivery from returns.
type DispatchPurpose string

const (
	PurposeDelivery DispatchPurpose = "delivery"
	PurposeReturn   DispatchPurpose = "return"
)

// JobStatus is the state of a dispatch job.
type JobStatus string

const (
	JobPending      JobStatus = "pending"
	JobBroadcasting JobStatus = "broadcasting"
	JobAssigned     JobStatus = "assigned"
	JobExpired      JobStatus = "expired"
	JobCancelled    JobStatus = "cancelled"
)

// IsOpen reports whether the job still accepts offers.
func (s JobStatus) IsOpen() bool {
	switch s {
	case JobPending, JobBroadcasting:
		return true
	case JobAssigned, JobExpired, JobCancelled:
		return false
	default:
		return false
	}
}

// DispatchJob is one assignment process for an order.
type DispatchJob struct {
	JobID               string          `json:"jobID"`
	OrderID             string          `json:"orderID"`
	Purpose             DispatchPurpose `json:"purpose"`
	Status              JobStatus       `json:"status"`
	AssignedRiderID     *string         `json:"assignedRiderID,omitempty"`
	PrivatePoolUntil    time.Time       `json:"privatePoolUntil"`
	FallbackBroadcastAt time.Time       `json:"fallbackBroadcastAt"`
	AssignedAt          *time.Time      `json:"assignedAt,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// IsAssignedTo reports whether riderID holds the job.
func (j *DispatchJob) IsAssignedTo(riderID string) bool {
	return j.Status == JobAssigned && j.AssignedRiderID != nil && *j.AssignedRiderID == riderID
}

// OfferStatus is the state of a rider's offer.
type OfferStatus string

const (
	OfferSent     OfferStatus = "sent"
	OfferSeen     OfferStatus = "seen"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
	OfferExpired  OfferStatus = "expired"
)

// IsPending reports whether the rider may still answer.
func (s OfferStatus) IsPending() bool {
	switch s {
	case OfferSent, OfferSeen:
		return true
	case OfferAccepted, OfferDeclined, OfferExpired:
		return false
	default:
		return false
	}
}

// DispatchOffer invites one rider to one job.
type DispatchOffer struct {
	OfferID     string      `json:"offerID"`
	JobID       string      `json:"jobID"`
	RiderID     string      `json:"riderID"`
	Status      OfferStatus `json:"status"`
	SentAt      time.Time   `json:"sentAt"`
	RespondedAt *time.Time  `json:"respondedAt,omitempty"`
}

// BroadcastMode selects the candidate pool of a broadcast.
type BroadcastMode string

const (
	BroadcastPrivate  BroadcastMode = "private"
	BroadcastFallback BroadcastMode = "fallback"
)

// RiderStatus is a rider's availability.
type RiderStatus string

const (
	RiderAvailable RiderStatus = "available"
	RiderBusy      RiderStatus = "busy"
	RiderOffline   RiderStatus = "offline"
)

// Rider is a delivery partner operating in one zone.
type Rider struct {
	RiderID  string      `json:"riderID"`
	UserID   string      `json:"userID"`
	ZoneID   string      `json:"zoneID"`
	Status   RiderStatus `json:"status"`
	IsActive bool        `json:"isActive"`
}

// ProofKind distinguishes pickup and delivery proofs.
type ProofKind string

const (
	ProofPickup   ProofKind = "pickup"
	ProofDelivery ProofKind = "delivery"
)

// DeliveryProof is a rider's evidence of pickup or delivery.
type DeliveryProof struct {
	ProofID   string    `json:"proofID"`
	JobID     string    `json:"jobID"`
	OrderID   string    `json:"orderID"`
	Kind      ProofKind `json:"kind"`
	PhotoURL  string    `json:"photoURL"`
	Note      string    `json:"note,omitempty"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
