// Package conflict decides whether a spot set is free for a window.
//
// Windows are half-open: a reservation ending at 10:00 does not overlap one
// starting at 10:00. Only pending, approved and active reservations block.
package conflict

import (
	"context"
	"slices"

	"campuspark/pkg/model"
)

// Finder returns candidate reservations over spotIDs during w. Candidates are
// re-checked here, so a finder may over-approximate.
type Finder interface {
	FindOverlapping(ctx context.Context, spotIDs []string, w model.Window, excludeID string) ([]*model.Reservation, error)
}

type Detector struct {
	finder Finder
}

func NewDetector(finder Finder) *Detector {
	return &Detector{finder: finder}
}

func Overlaps(a, b model.Window) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// FindConflict returns the first reservation blocking the request, or nil.
func (d *Detector) FindConflict(ctx context.Context, spotIDs []string, w model.Window, excludeID string) (*model.Reservation, error) {
	if len(spotIDs) == 0 {
		return nil, nil
	}

	candidates, err := d.finder.FindOverlapping(ctx, spotIDs, w, excludeID)
	if err != nil {
		return nil, err
	}
	return FirstConflict(candidates, spotIDs, w, excludeID), nil
}

func (d *Detector) HasConflict(ctx context.Context, spotIDs []string, w model.Window, excludeID string) (bool, error) {
	r, err := d.FindConflict(ctx, spotIDs, w, excludeID)
	return r != nil, err
}

func FirstConflict(candidates []*model.Reservation, spotIDs []string, w model.Window, excludeID string) *model.Reservation {
	for _, c := range candidates {
		if c == nil || (excludeID != "" && c.ID == excludeID) {
			continue
		}
		if !c.Status.IsBlocking() || !sharesSpot(c.SpotIDs, spotIDs) {
			continue
		}
		if Overlaps(c.Window(), w) {
			return c
		}
	}
	return nil
}

func sharesSpot(held, requested []string) bool {
	for _, id := range requested {
		if slices.Contains(held, id) {
			return true
		}
	}
	return false
}
