package events

import (
	"context"
	"time"

	"campuspark/pkg/kafka"
	"campuspark/pkg/logger"
	"campuspark/pkg/middleware"
	"campuspark/pkg/model"
)

type EventType string

const (
	Created   EventType = "reservation.created"
	Modified  EventType = "reservation.modified"
	Cancelled EventType = "reservation.cancelled"
	Approved  EventType = "reservation.approved"
	Rejected  EventType = "reservation.rejected"
	Paid      EventType = "reservation.paid"
)

const (
	SchemaVersion = "1"
	Source        = "campuspark.reservations"

	publishTimeout = 5 * time.Second
)

type ReservationEvent struct {
	Type          EventType               `json:"type"`
	ReservationID string                  `json:"reservation_id"`
	Kind          model.ReservationKind   `json:"kind"`
	SpotIDs       []string                `json:"spot_ids"`
	LotID         string                  `json:"lot_id,omitempty"`
	Requester     string                  `json:"requester"`
	Status        model.ReservationStatus `json:"status"`
	PaymentStatus model.PaymentStatus     `json:"payment_status"`
	StartTime     time.Time               `json:"start_time"`
	EndTime       time.Time               `json:"end_time"`
	TotalPrice    model.Cents             `json:"total_price"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

func NewReservationEvent(eventType EventType, r *model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID,
		Kind:          r.Kind,
		SpotIDs:       r.SpotIDs,
		LotID:         r.LotID,
		Requester:     r.Requester,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		TotalPrice:    r.TotalPrice,
		OccurredAt:    at.UTC(),
	}
}

// Publisher emits lifecycle events after the state change has committed.
// Failures are logged and never undo the change. A nil producer disables
// publishing.
type Publisher struct {
	producer kafka.Publisher
	log      *logger.Logger
}

func NewPublisher(producer kafka.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{producer: producer, log: log}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.producer != nil
}

func (p *Publisher) Publish(ctx context.Context, eventType EventType, r *model.Reservation) {
	if !p.Enabled() {
		return
	}

	msg, err := kafka.NewMessage().
		WithKey(r.ID).
		WithValue(NewReservationEvent(eventType, r, time.Now())).
		WithEventType(string(eventType)).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		p.log.Error("Failed to build reservation event", "type", eventType, "id", r.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish reservation event", "type", eventType, "id", r.ID, "error", err)
	}
}
