package conflict

import (
	"context"
	"errors"
	"testing"
	"time"

	"campuspark/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func window(startHour, endHour int) model.Window {
	return model.Window{
		Start: base.Add(time.Duration(startHour) * time.Hour),
		End:   base.Add(time.Duration(endHour) * time.Hour),
	}
}

func reservation(id string, status model.ReservationStatus, w model.Window, spots ...string) *model.Reservation {
	return &model.Reservation{ID: id, Status: status, SpotIDs: spots, StartTime: w.Start, EndTime: w.End}
}

type finderFunc func(ctx context.Context, spotIDs []string, w model.Window, excludeID string) ([]*model.Reservation, error)

func (f finderFunc) FindOverlapping(ctx context.Context, spotIDs []string, w model.Window, excludeID string) ([]*model.Reservation, error) {
	return f(ctx, spotIDs, w, excludeID)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Window
		want bool
	}{
		{"identical", window(0, 2), window(0, 2), true},
		{"partial", window(0, 2), window(1, 3), true},
		{"contained", window(0, 4), window(1, 2), true},
		{"back to back", window(0, 2), window(2, 4), false},
		{"back to back reversed", window(2, 4), window(0, 2), false},
		{"disjoint", window(0, 1), window(3, 4), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "overlap is symmetric")
		})
	}
}

func TestFirstConflict(t *testing.T) {
	w := window(1, 3)

	tests := []struct {
		name      string
		candidate *model.Reservation
		excludeID string
		want      bool
	}{
		{"pending blocks", reservation("r1", model.StatusPending, window(2, 4), "s1"), "", true},
		{"approved blocks", reservation("r1", model.StatusApproved, window(0, 2), "s1"), "", true},
		{"active blocks", reservation("r1", model.StatusActive, window(0, 5), "s1"), "", true},
		{"completed never blocks", reservation("r1", model.StatusCompleted, window(1, 3), "s1"), "", false},
		{"cancelled never blocks", reservation("r1", model.StatusCancelled, window(1, 3), "s1"), "", false},
		{"rejected never blocks", reservation("r1", model.StatusRejected, window(1, 3), "s1"), "", false},
		{"excluded reservation", reservation("r1", model.StatusPending, window(1, 3), "s1"), "r1", false},
		{"different spot", reservation("r1", model.StatusPending, window(1, 3), "s2"), "", false},
		{"shares one spot of an event", reservation("r1", model.StatusApproved, window(1, 3), "s9", "s1"), "", true},
		{"ends at start", reservation("r1", model.StatusPending, window(0, 1), "s1"), "", false},
		{"starts at end", reservation("r1", model.StatusPending, window(3, 5), "s1"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstConflict([]*model.Reservation{tt.candidate}, []string{"s1"}, w, tt.excludeID)
			assert.Equal(t, tt.want, got != nil)
		})
	}
}

func TestDetector_ShortCircuits(t *testing.T) {
	first := reservation("r1", model.StatusPending, window(1, 2), "s1")
	second := reservation("r2", model.StatusPending, window(1, 2), "s1")

	d := NewDetector(finderFunc(func(ctx context.Context, spotIDs []string, w model.Window, excludeID string) ([]*model.Reservation, error) {
		return []*model.Reservation{first, second}, nil
	}))

	got, err := d.FindConflict(context.Background(), []string{"s1"}, window(1, 2), "")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

func TestDetector_PropagatesFinderError(t *testing.T) {
	d := NewDetector(finderFunc(func(ctx context.Context, spotIDs []string, w model.Window, excludeID string) ([]*model.Reservation, error) {
		return nil, errors.New("timeout")
	}))

	_, err := d.HasConflict(context.Background(), []string{"s1"}, window(1, 2), "")
	assert.Error(t, err)
}

func TestDetector_EmptySpotSet(t *testing.T) {
	d := NewDetector(finderFunc(func(ctx context.Context, spotIDs []string, w model.Window, excludeID string) ([]*model.Reservation, error) {
		t.Fatal("finder must not be called")
		return nil, nil
	}))

	ok, err := d.HasConflict(context.Background(), nil, window(1, 2), "")
	require.NoError(t, err)
	assert.False(t, ok)
}
