package model

import "time"

type PaymentOutcome string

const (
	OutcomePaid      PaymentOutcome = "paid"
	OutcomeDuplicate PaymentOutcome = "duplicate"
	OutcomeNotFound  PaymentOutcome = "not_found"
	OutcomeFailed    PaymentOutcome = "failed"
)

type PaymentSource string

const (
	SourceWebhook PaymentSource = "webhook"
	SourceKafka   PaymentSource = "kafka"
)

// PaymentAudit is one row of the payment confirmation trail.
type PaymentAudit struct {
	ID            string         `json:"id" db:"id"`
	ReservationID string         `json:"reservation_id" db:"reservation_id"`
	SessionID     string         `json:"session_id" db:"session_id"`
	Source        PaymentSource  `json:"source" db:"source"`
	Outcome       PaymentOutcome `json:"outcome" db:"outcome"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}
