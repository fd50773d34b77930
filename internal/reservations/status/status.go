package status

import (
	"time"

	"campuspark/pkg/model"
)

// Effective resolves the status shown to callers at now. It never mutates r.
func Effective(r *model.Reservation, now time.Time) model.DisplayStatus {
	switch r.Status {
	case model.StatusCancelled:
		return model.DisplayCancelled
	case model.StatusRejected:
		return model.DisplayRejected
	case model.StatusApproved:
		switch {
		case !now.Before(r.EndTime):
			return model.DisplayCompleted
		case !now.Before(r.StartTime):
			return model.DisplayActive
		}
		return model.DisplayApproved
	case model.StatusPending:
		if r.StartTime.After(now) {
			return model.DisplayPending
		}
	}
	return byTime(r, now)
}

func byTime(r *model.Reservation, now time.Time) model.DisplayStatus {
	switch {
	case now.Before(r.StartTime):
		return model.DisplayPending
	case now.Before(r.EndTime):
		return model.DisplayActive
	}
	return model.DisplayCompleted
}

func View(r *model.Reservation, now time.Time) *model.ReservationView {
	return &model.ReservationView{Reservation: r, EffectiveStatus: Effective(r, now)}
}

func Views(rs []*model.Reservation, now time.Time) []*model.ReservationView {
	views := make([]*model.ReservationView, 0, len(rs))
	for _, r := range rs {
		views = append(views, View(r, now))
	}
	return views
}
