package model

import "time"

const (
	DefaultLotName     = "NA"
	DefaultLotLocation = "Main Campus West"
)

// LotCounters holds per-category spot counts as provisioned. They are not
// reconciled against Capacity or against the lot's Spot records.
type LotCounters struct {
	FacultyStaff           int `json:"faculty_staff" bson:"faculty_staff"`
	CommuterPremium        int `json:"commuter_premium" bson:"commuter_premium"`
	Metered                int `json:"metered" bson:"metered"`
	Commuter               int `json:"commuter" bson:"commuter"`
	Resident               int `json:"resident" bson:"resident"`
	ADA                    int `json:"ada" bson:"ada"`
	ReservedMisc           int `json:"reserved_misc" bson:"reserved_misc"`
	StateOnly              int `json:"state_only" bson:"state_only"`
	SpecialServiceOnly     int `json:"special_service_only" bson:"special_service_only"`
	StateAndSpecialService int `json:"state_and_special_service" bson:"state_and_special_service"`
	EVCharging             int `json:"ev_charging" bson:"ev_charging"`
}

type Lot struct {
	ID        string      `json:"id" bson:"_id,omitempty"`
	Name      string      `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Location  string      `json:"location" bson:"location" validate:"required,max=200"`
	Capacity  int         `json:"capacity" bson:"capacity" validate:"min=0"`
	Counters  LotCounters `json:"counters" bson:"counters"`
	BaseRate  Cents       `json:"base_rate" bson:"base_rate_cents" validate:"min=0"`
	SpotIDs   []string    `json:"spot_ids" bson:"spot_ids"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}

type Spot struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	Code       string    `json:"code" bson:"code" validate:"required,max=32"`
	LotID      string    `json:"lot_id" bson:"lot_id" validate:"required"`
	Type       string    `json:"type" bson:"type" validate:"required,max=50"`
	Level      int       `json:"level" bson:"level"`
	IsOccupied bool      `json:"is_occupied" bson:"is_occupied"`
	IsReserved bool      `json:"is_reserved" bson:"is_reserved"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
