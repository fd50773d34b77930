package model

import "time"

type ReservationKind string

const (
	KindRegular ReservationKind = "regular"
	KindEvent   ReservationKind = "event"
)

func (k ReservationKind) IsValid() bool {
	return k == KindRegular || k == KindEvent
}

// ReservationStatus is the lifecycle status as persisted.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusApproved  ReservationStatus = "approved"
	StatusActive    ReservationStatus = "active"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusRejected  ReservationStatus = "rejected"
)

// BlockingStatuses occupy their spots for conflict detection.
var BlockingStatuses = []ReservationStatus{StatusPending, StatusApproved, StatusActive}

func (s ReservationStatus) IsBlocking() bool {
	switch s {
	case StatusPending, StatusApproved, StatusActive:
		return true
	}
	return false
}

func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// DisplayStatus is derived from a stored status and the current time.
// It is computed on every read and never persisted.
type DisplayStatus string

const (
	DisplayPending   DisplayStatus = "pending"
	DisplayApproved  DisplayStatus = "approved"
	DisplayActive    DisplayStatus = "active"
	DisplayCompleted DisplayStatus = "completed"
	DisplayCancelled DisplayStatus = "cancelled"
	DisplayRejected  DisplayStatus = "rejected"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Reservation covers both kinds. A regular reservation holds exactly one spot
// and carries its lot; an event reservation holds one or more spots and the
// event metadata.
type Reservation struct {
	ID               string            `json:"id" bson:"_id"`
	Kind             ReservationKind   `json:"kind" bson:"kind"`
	SpotIDs          []string          `json:"spot_ids" bson:"spot_ids"`
	LotID            string            `json:"lot_id,omitempty" bson:"lot_id,omitempty"`
	Requester        string            `json:"requester" bson:"requester"`
	EventName        string            `json:"event_name,omitempty" bson:"event_name,omitempty"`
	Justification    string            `json:"justification,omitempty" bson:"justification,omitempty"`
	AdminNotes       string            `json:"admin_notes,omitempty" bson:"admin_notes,omitempty"`
	StartTime        time.Time         `json:"start_time" bson:"start_time"`
	EndTime          time.Time         `json:"end_time" bson:"end_time"`
	TotalPrice       Cents             `json:"total_price" bson:"total_price_cents"`
	Status           ReservationStatus `json:"status" bson:"status"`
	PaymentStatus    PaymentStatus     `json:"payment_status" bson:"payment_status"`
	PaymentSessionID string            `json:"payment_session_id,omitempty" bson:"payment_session_id,omitempty"`
	PaidAt           *time.Time        `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" bson:"updated_at"`
}

func (r *Reservation) Window() Window {
	return Window{Start: r.StartTime, End: r.EndTime}
}

// ReservationView is a reservation as served to callers, carrying the status
// resolved at response time.
type ReservationView struct {
	*Reservation
	EffectiveStatus DisplayStatus `json:"effective_status"`
}
