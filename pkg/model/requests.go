package model

import "time"

type ReservationCreate struct {
	Kind          ReservationKind `json:"kind" validate:"omitempty,oneof=regular event"`
	SpotID        string          `json:"spot_id,omitempty" validate:"omitempty,max=64,spot_id"`
	SpotIDs       []string        `json:"spot_ids,omitempty" validate:"omitempty,dive,required,max=64,spot_id"`
	Requester     string          `json:"requester" validate:"required,min=1,max=100"`
	StartTime     time.Time       `json:"start_time" validate:"required"`
	EndTime       time.Time       `json:"end_time" validate:"required"`
	EventName     string          `json:"event_name,omitempty" validate:"required_if=Kind event,omitempty,max=200"`
	Justification string          `json:"justification,omitempty" validate:"omitempty,max=2000"`
}

// Spots merges the single-spot and multi-spot request forms.
func (r *ReservationCreate) Spots() []string {
	if r.SpotID == "" {
		return r.SpotIDs
	}
	return append([]string{r.SpotID}, r.SpotIDs...)
}

type ReservationUpdate struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

type AdminDecision struct {
	AdminNotes string `json:"admin_notes,omitempty" validate:"omitempty,max=2000"`
}

type PaymentConfirmation struct {
	ReservationID string `json:"reservation_id" validate:"required,max=64"`
	SessionID     string `json:"session_id" validate:"required,max=255"`
}

type ReservationFilter struct {
	Requester string
	Kind      ReservationKind
}

// LotProvision is one entry of a lot inventory file. Spots defaults to
// Capacity when omitted.
type LotProvision struct {
	Name     string      `json:"name" validate:"omitempty,max=100"`
	Location string      `json:"location" validate:"omitempty,max=200"`
	Capacity int         `json:"capacity" validate:"min=0,max=10000"`
	Counters LotCounters `json:"counters"`
	BaseRate Cents       `json:"base_rate" validate:"min=0"`
	Spots    *int        `json:"spots,omitempty" validate:"omitempty,min=0,max=10000"`
	SpotType string      `json:"spot_type,omitempty" validate:"omitempty,max=50"`
}
