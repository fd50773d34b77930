package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"campuspark/internal/reservations/conflict"
	reservationserrors "campuspark/internal/reservations/errors"
	mongotx "campuspark/pkg/db/mongo"
	"campuspark/pkg/kafka"
	"campuspark/pkg/model"
)

// fakeStore is an in-memory reservation store, lock table and spot registry.
// Transactions run one at a time and roll back on error, which gives the
// same outcome as the serializable retry the Mongo store provides.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	reservations map[string]*model.Reservation
	spots        map[string]*model.Spot
	locked       []string

	// txErr, when set, fails the next transaction before it runs.
	txErr error
	// setReservedErr, when set, fails the next SetReserved call.
	setReservedErr error
}

func newFakeStore(spots ...*model.Spot) *fakeStore {
	f := &fakeStore{
		reservations: map[string]*model.Reservation{},
		spots:        map[string]*model.Spot{},
	}
	for _, s := range spots {
		f.spots[s.ID] = s
	}
	return f
}

func cloneReservation(r *model.Reservation) *model.Reservation {
	c := *r
	c.SpotIDs = slices.Clone(r.SpotIDs)
	return &c
}

func (f *fakeStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	if err := f.txErr; err != nil {
		f.txErr = nil
		f.mu.Unlock()
		return fmt.Errorf("transaction failed: %w", err)
	}
	resSnap := make(map[string]*model.Reservation, len(f.reservations))
	for id, r := range f.reservations {
		resSnap[id] = cloneReservation(r)
	}
	spotSnap := make(map[string]*model.Spot, len(f.spots))
	for id, s := range f.spots {
		c := *s
		spotSnap[id] = &c
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.reservations = resSnap
		f.spots = spotSnap
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) Insert(ctx context.Context, r *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[r.ID]; ok {
		return fmt.Errorf("duplicate key %s", r.ID)
	}
	f.reservations[r.ID] = cloneReservation(r)
	return nil
}

func (f *fakeStore) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrNotFound, id)
	}
	return cloneReservation(r), nil
}

func (f *fakeStore) matching(filter model.ReservationFilter) []*model.Reservation {
	var out []*model.Reservation
	for _, r := range f.reservations {
		if filter.Requester != "" && r.Requester != filter.Requester {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		out = append(out, cloneReservation(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f *fakeStore) FindAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matching(filter)
	if offset >= int64(len(all)) {
		return []*model.Reservation{}, nil
	}
	end := min(int64(len(all)), offset+int64(limit))
	return all[offset:end], nil
}

func (f *fakeStore) Count(ctx context.Context, filter model.ReservationFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.matching(filter))), nil
}

func (f *fakeStore) replace(r *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[r.ID]; !ok {
		return fmt.Errorf("%w: %s", reservationserrors.ErrNotFound, r.ID)
	}
	f.reservations[r.ID] = cloneReservation(r)
	return nil
}

func (f *fakeStore) UpdateWindow(ctx context.Context, r *model.Reservation) error  { return f.replace(r) }
func (f *fakeStore) UpdateStatus(ctx context.Context, r *model.Reservation) error  { return f.replace(r) }
func (f *fakeStore) UpdatePayment(ctx context.Context, r *model.Reservation) error { return f.replace(r) }

func (f *fakeStore) FindOverlapping(ctx context.Context, spotIDs []string, w model.Window, excludeID string) ([]*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reservation
	for _, r := range f.reservations {
		if r.ID == excludeID || !r.Status.IsBlocking() || !conflict.Overlaps(r.Window(), w) {
			continue
		}
		if slices.ContainsFunc(spotIDs, func(id string) bool { return slices.Contains(r.SpotIDs, id) }) {
			out = append(out, cloneReservation(r))
		}
	}
	return out, nil
}

func (f *fakeStore) HasBlocking(ctx context.Context, spotID string, excludeID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if r.ID != excludeID && r.Status.IsBlocking() && r.EndTime.After(now) && slices.Contains(r.SpotIDs, spotID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Lock(ctx context.Context, spotIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, spotIDs...)
	return nil
}

func (f *fakeStore) FindSpotsByIDs(ctx context.Context, ids []string) ([]*model.Spot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Spot
	for _, id := range ids {
		if s, ok := f.spots[id]; ok {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeStore) SetReserved(ctx context.Context, spotIDs []string, reserved bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.setReservedErr; err != nil {
		f.setReservedErr = nil
		return err
	}
	for _, id := range spotIDs {
		if s, ok := f.spots[id]; ok {
			s.IsReserved = reserved
		}
	}
	return nil
}

func (f *fakeStore) spotReserved(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spots[id].IsReserved
}

func (f *fakeStore) blocking() []*model.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reservation
	for _, r := range f.reservations {
		if r.Status.IsBlocking() {
			out = append(out, cloneReservation(r))
		}
	}
	return out
}

type capturePublisher struct {
	mu     sync.Mutex
	events []string
}

func (c *capturePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, msg.GetEventType())
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}
