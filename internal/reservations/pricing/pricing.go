package pricing

import "campuspark/pkg/model"

const (
	DefaultRateCentsPerHour = 250

	millisPerHour = int64(3_600_000)
)

// Engine prices windows at a flat hourly rate. Amounts are computed in
// integer cents and rounded up to the next cent.
type Engine struct {
	rateCentsPerHour int64
}

func NewEngine(rateCentsPerHour int) *Engine {
	return &Engine{rateCentsPerHour: int64(rateCentsPerHour)}
}

func (e *Engine) Rate() model.Cents {
	return model.Cents(e.rateCentsPerHour)
}

// Price is the cost of one spot over w. An inverted window costs nothing.
func (e *Engine) Price(w model.Window) model.Cents {
	return e.PriceSpots(w, 1)
}

// PriceSpots is the cost of spots spots held together over w.
func (e *Engine) PriceSpots(w model.Window, spots int) model.Cents {
	ms := w.Duration().Milliseconds()
	if ms <= 0 || spots <= 0 {
		return 0
	}
	return model.Cents(ceilDiv(ms*e.rateCentsPerHour*int64(spots), millisPerHour))
}

// For prices a reservation of kind over w holding spotCount spots.
func (e *Engine) For(kind model.ReservationKind, w model.Window, spotCount int) model.Cents {
	if kind == model.KindEvent {
		return e.PriceSpots(w, spotCount)
	}
	return e.Price(w)
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
