package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campuspark/internal/reservations/events"
	"campuspark/internal/reservations/pricing"
	"campuspark/internal/reservations/validator"
	"campuspark/pkg/config"
	apperrors "campuspark/pkg/errors"
	"campuspark/pkg/logger"
	"campuspark/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// now is 08:00; windows below start at 10:00 or later unless a test moves the clock.
var now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

type harness struct {
	svc       *reservationService
	store     *fakeStore
	clock     *clock
	published *capturePublisher
}

func newHarness(t *testing.T, mutate ...func(cfg *config.Config)) *harness {
	t.Helper()

	log := logger.Discard()
	cfg := &config.Config{
		Log:                    log,
		MinLeadTime:            10 * time.Minute,
		RateCentsPerHour:       pricing.DefaultRateCentsPerHour,
		MaxReservationDuration: 7 * 24 * time.Hour,
		MaxEventSpots:          200,
	}
	for _, m := range mutate {
		m(cfg)
	}

	store := newFakeStore(
		&model.Spot{ID: "spot-a1", Code: "BLUE-001", LotID: "lot-blue", Type: "regular", Level: 1},
		&model.Spot{ID: "spot-a2", Code: "BLUE-002", LotID: "lot-blue", Type: "regular", Level: 1},
		&model.Spot{ID: "spot-b1", Code: "GOLD-001", LotID: "lot-gold", Type: "regular", Level: 1},
	)
	published := &capturePublisher{}
	clk := &clock{now: now}

	svc := NewReservationService(
		store,
		store,
		store,
		validator.NewReservationValidator(cfg.MaxEventSpots, log),
		pricing.NewEngine(cfg.RateCentsPerHour),
		events.NewPublisher(published, log),
		nil,
		cfg,
	).(*reservationService)
	svc.now = clk.Now

	return &harness{svc: svc, store: store, clock: clk, published: published}
}

func regular(spot string, start, end time.Time) *model.ReservationCreate {
	return &model.ReservationCreate{
		SpotID:    spot,
		Requester: "JDoe@Campus.edu",
		StartTime: start,
		EndTime:   end,
	}
}

func event(start, end time.Time, spots ...string) *model.ReservationCreate {
	return &model.ReservationCreate{
		Kind:          model.KindEvent,
		SpotIDs:       spots,
		Requester:     "events@campus.edu",
		EventName:     "Spring Open House",
		Justification: "Visitor parking",
		StartTime:     start,
		EndTime:       end,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

func TestCreate_Regular(t *testing.T) {
	h := newHarness(t)

	view, err := h.svc.Create(context.Background(), regular("spot-a1", at(10, 0), at(13, 0)))
	require.NoError(t, err)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, model.KindRegular, view.Kind)
	assert.Equal(t, model.StatusPending, view.Status)
	assert.Equal(t, model.DisplayPending, view.EffectiveStatus)
	assert.Equal(t, model.PaymentUnpaid, view.PaymentStatus)
	assert.Equal(t, "lot-blue", view.LotID)
	assert.Equal(t, "jdoe@campus.edu", view.Requester)
	assert.Equal(t, "7.50", view.TotalPrice.String())
	assert.True(t, h.store.spotReserved("spot-a1"))
	assert.Equal(t, []string{string(events.Created)}, h.published.types())
	assert.Contains(t, h.store.locked, "spot-a1")
}

func TestCreate_Event(t *testing.T) {
	h := newHarness(t)

	view, err := h.svc.Create(context.Background(), event(at(10, 0), at(12, 0), "spot-a1", "spot-b1"))
	require.NoError(t, err)

	assert.Equal(t, model.KindEvent, view.Kind)
	assert.Empty(t, view.LotID)
	assert.Equal(t, []string{"spot-a1", "spot-b1"}, view.SpotIDs)
	assert.Equal(t, model.Cents(1000), view.TotalPrice)
	assert.True(t, h.store.spotReserved("spot-a1"))
	assert.True(t, h.store.spotReserved("spot-b1"))
}

func TestCreate_WindowRules(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"inside lead time", now.Add(5 * time.Minute), now.Add(2 * time.Hour)},
		{"in the past", now.Add(-time.Hour), now.Add(time.Hour)},
		{"end equals start", at(10, 0), at(10, 0)},
		{"end before start", at(12, 0), at(10, 0)},
		{"longer than the maximum", at(10, 0), at(10, 0).Add(8 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.svc.Create(context.Background(), regular("spot-a1", tt.start, tt.end))
			assertCode(t, err, apperrors.CodeInvalidWindow)

			assert.Empty(t, h.store.blocking(), "no reservation persisted")
			assert.False(t, h.store.spotReserved("spot-a1"), "spot flag untouched")
			assert.Empty(t, h.published.types())
		})
	}
}

func TestCreate_ExactlyAtLeadTime(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Create(context.Background(), regular("spot-a1", now.Add(10*time.Minute), now.Add(time.Hour)))
	assert.NoError(t, err)
}

func TestCreate_UnknownSpot(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Create(context.Background(), event(at(10, 0), at(11, 0), "spot-a1", "spot-zz"))
	assertCode(t, err, apperrors.CodeNotFound)
	assert.False(t, h.store.spotReserved("spot-a1"))
	assert.Empty(t, h.store.blocking())
}

func TestCreate_ValidationFailure(t *testing.T) {
	h := newHarness(t)

	req := regular("spot-a1", at(10, 0), at(11, 0))
	req.Requester = "   "
	_, err := h.svc.Create(context.Background(), req)
	assertCode(t, err, apperrors.CodeValidation)
}

func TestCreate_Conflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, regular("spot-a1", at(11, 0), at(13, 0)))
	assertCode(t, err, apperrors.CodeSlotUnavailable)

	_, err = h.svc.Create(ctx, event(at(9, 0), at(10, 30), "spot-b1", "spot-a1"))
	assertCode(t, err, apperrors.CodeSlotUnavailable)
	assert.False(t, h.store.spotReserved("spot-b1"), "failed event left no partial writes")

	_, err = h.svc.Create(ctx, regular("spot-a2", at(11, 0), at(13, 0)))
	assert.NoError(t, err, "other spots stay free")
}

func TestCreate_BackToBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, regular("spot-a1", at(12, 0), at(14, 0)))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, regular("spot-a1", at(9, 0), at(10, 0)))
	require.NoError(t, err)

	assert.Len(t, h.store.blocking(), 3)
}

func TestCreate_ConcurrentExactlyOneWins(t *testing.T) {
	h := newHarness(t)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.svc.Create(context.Background(), regular("spot-a1", at(10, 0), at(12, 0)))
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotUnavailable), "unexpected error %v", err)
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, h.store.blocking(), 1)
}

func TestNoOverlappingBlockingReservations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	windows := [][2]time.Time{
		{at(10, 0), at(12, 0)}, {at(11, 0), at(13, 0)}, {at(12, 0), at(14, 0)},
		{at(9, 0), at(15, 0)}, {at(13, 30), at(14, 30)}, {at(14, 0), at(16, 0)},
	}
	var ids []string
	for _, w := range windows {
		for _, spot := range []string{"spot-a1", "spot-a2"} {
			if v, err := h.svc.Create(ctx, regular(spot, w[0], w[1])); err == nil {
				ids = append(ids, v.ID)
			}
		}
		if v, err := h.svc.Create(ctx, event(w[0], w[1], "spot-a1", "spot-a2")); err == nil {
			ids = append(ids, v.ID)
		}
	}
	require.NotEmpty(t, ids)
	require.NoError(t, h.svc.Cancel(ctx, ids[0]))
	for _, w := range windows {
		_, _ = h.svc.Create(ctx, regular("spot-a1", w[0], w[1]))
	}

	blocking := h.store.blocking()
	for i, a := range blocking {
		for _, b := range blocking[i+1:] {
			for _, spot := range a.SpotIDs {
				for _, other := range b.SpotIDs {
					if spot == other {
						overlap := a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime)
						assert.False(t, overlap, "%s and %s overlap on %s", a.ID, b.ID, spot)
					}
				}
			}
		}
	}
}

func TestCancel_ThenRecreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)

	require.NoError(t, h.svc.Cancel(ctx, first.ID))
	assert.False(t, h.store.spotReserved("spot-a1"))

	got, err := h.svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.Equal(t, model.DisplayCancelled, got.EffectiveStatus)

	second, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, h.store.spotReserved("spot-a1"))

	assert.Equal(t,
		[]string{string(events.Created), string(events.Cancelled), string(events.Created)},
		h.published.types())
}

func TestCancel_KeepsFlagWhileAnotherReservationHoldsSpot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, regular("spot-a1", at(14, 0), at(16, 0)))
	require.NoError(t, err)

	require.NoError(t, h.svc.Cancel(ctx, first.ID))
	assert.True(t, h.store.spotReserved("spot-a1"))
}

func TestCancel_ClearsFlagWhenOnlyEndedReservationsRemain(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)

	nextDay := 24 * time.Hour
	h.clock.Set(now.Add(nextDay))
	second, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0).Add(nextDay), at(12, 0).Add(nextDay)))
	require.NoError(t, err)
	require.True(t, h.store.spotReserved("spot-a1"))

	require.NoError(t, h.svc.Cancel(ctx, second.ID))
	assert.False(t, h.store.spotReserved("spot-a1"), "yesterday's reservation no longer holds the spot")
}

func TestCancel_States(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)

	h.clock.Set(at(11, 0))
	assertCode(t, h.svc.Cancel(ctx, view.ID), apperrors.CodeInvalidState)

	h.clock.Set(at(13, 0))
	assertCode(t, h.svc.Cancel(ctx, view.ID), apperrors.CodeInvalidState)

	h.clock.Set(now)
	require.NoError(t, h.svc.Cancel(ctx, view.ID))
	assertCode(t, h.svc.Cancel(ctx, view.ID), apperrors.CodeInvalidState)

	assertCode(t, h.svc.Cancel(ctx, "65f1a2b3c4d5e6f708192a3b"), apperrors.CodeNotFound)
}

func TestCancel_ApprovedBeforeStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, event(at(10, 0), at(12, 0), "spot-a1"))
	require.NoError(t, err)
	_, err = h.svc.Approve(ctx, view.ID, nil)
	require.NoError(t, err)

	require.NoError(t, h.svc.Cancel(ctx, view.ID))
	assert.False(t, h.store.spotReserved("spot-a1"))
}

func TestModify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, regular("spot-a1", at(14, 0), at(16, 0)))
	require.NoError(t, err)

	modified, err := h.svc.Modify(ctx, view.ID, &model.ReservationUpdate{StartTime: at(11, 0), EndTime: at(14, 0)})
	require.NoError(t, err, "overlapping its own previous window is allowed")
	assert.Equal(t, model.Cents(750), modified.TotalPrice)
	assert.Equal(t, model.StatusPending, modified.Status)
	assert.Equal(t, at(11, 0), modified.StartTime)

	_, err = h.svc.Modify(ctx, view.ID, &model.ReservationUpdate{StartTime: at(13, 0), EndTime: at(15, 0)})
	assertCode(t, err, apperrors.CodeSlotUnavailable)

	_, err = h.svc.Modify(ctx, view.ID, &model.ReservationUpdate{StartTime: now, EndTime: at(9, 0)})
	assertCode(t, err, apperrors.CodeInvalidWindow)

	got, err := h.svc.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, at(11, 0), got.StartTime, "failed modifications leave the record unchanged")
}

func TestModify_OnlyPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, event(at(10, 0), at(12, 0), "spot-a1"))
	require.NoError(t, err)
	_, err = h.svc.Approve(ctx, view.ID, &model.AdminDecision{AdminNotes: "ok"})
	require.NoError(t, err)

	_, err = h.svc.Modify(ctx, view.ID, &model.ReservationUpdate{StartTime: at(11, 0), EndTime: at(12, 0)})
	assertCode(t, err, apperrors.CodeInvalidState)

	_, err = h.svc.Modify(ctx, "65f1a2b3c4d5e6f708192a3b", &model.ReservationUpdate{StartTime: at(11, 0), EndTime: at(12, 0)})
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestApproveReject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, event(at(10, 0), at(12, 0), "spot-a1", "spot-a2"))
	require.NoError(t, err)

	rejected, err := h.svc.Reject(ctx, view.ID, &model.AdminDecision{AdminNotes: "  conflicts with exams  "})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	assert.Equal(t, "conflicts with exams", rejected.AdminNotes)
	assert.False(t, h.store.spotReserved("spot-a1"))
	assert.False(t, h.store.spotReserved("spot-a2"))

	_, err = h.svc.Approve(ctx, view.ID, nil)
	assertCode(t, err, apperrors.CodeInvalidState)

	_, err = h.svc.Reject(ctx, view.ID, nil)
	assertCode(t, err, apperrors.CodeInvalidState)
}

func TestApprove_Twice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, event(at(10, 0), at(12, 0), "spot-a1"))
	require.NoError(t, err)

	approved, err := h.svc.Approve(ctx, view.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	assert.Equal(t, model.DisplayApproved, approved.EffectiveStatus)
	assert.True(t, h.store.spotReserved("spot-a1"))

	_, err = h.svc.Approve(ctx, view.ID, nil)
	assertCode(t, err, apperrors.CodeInvalidState)

	h.clock.Set(at(11, 0))
	got, err := h.svc.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DisplayActive, got.EffectiveStatus)
	assert.Equal(t, model.StatusApproved, got.Status)
}

func TestApprove_RegularNeedsFlag(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)
	_, err = h.svc.Approve(ctx, view.ID, nil)
	assertCode(t, err, apperrors.CodeInvalidState)

	allowed := newHarness(t, func(cfg *config.Config) { cfg.AllowRegularApproval = true })
	view, err = allowed.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)
	approved, err := allowed.svc.Approve(ctx, view.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
}

func TestMarkPaid_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)

	paid, changed, err := h.svc.MarkPaid(ctx, view.ID, "cs_test_123")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, model.StatusPending, paid.Status, "lifecycle status untouched")
	assert.Equal(t, "cs_test_123", paid.PaymentSessionID)
	require.NotNil(t, paid.PaidAt)

	again, changed, err := h.svc.MarkPaid(ctx, view.ID, "cs_test_other")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "cs_test_123", again.PaymentSessionID)
	assert.Equal(t, paid.PaidAt, again.PaidAt)

	require.NoError(t, h.svc.Cancel(ctx, view.ID))
	_, changed, err = h.svc.MarkPaid(ctx, view.ID, "cs_test_123")
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t,
		[]string{string(events.Created), string(events.Paid), string(events.Cancelled)},
		h.published.types())

	_, _, err = h.svc.MarkPaid(ctx, "65f1a2b3c4d5e6f708192a3b", "cs")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestStoreFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	h.store.txErr = errors.New("server selection timeout")

	_, err := h.svc.Create(context.Background(), regular("spot-a1", at(10, 0), at(12, 0)))
	assertCode(t, err, apperrors.CodeStoreUnavailable)
	assert.True(t, apperrors.AsAppError(err).Retryable())
	assert.False(t, h.store.spotReserved("spot-a1"))

	_, err = h.svc.Create(context.Background(), regular("spot-a1", at(10, 0), at(12, 0)))
	assert.NoError(t, err, "retry succeeds once the store recovers")
}

func TestCreate_RollsBackWhenSpotFlagFails(t *testing.T) {
	h := newHarness(t)
	h.store.setReservedErr = errors.New("write conflict")

	_, err := h.svc.Create(context.Background(), regular("spot-a1", at(10, 0), at(12, 0)))
	assertCode(t, err, apperrors.CodeStoreUnavailable)
	assert.Empty(t, h.store.blocking(), "no reservation survives the failed transaction")
	assert.False(t, h.store.spotReserved("spot-a1"))
	assert.Empty(t, h.published.types())
}

func TestGetAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, regular("spot-a1", at(10, 0), at(12, 0)))
	require.NoError(t, err)
	h.clock.Set(now.Add(time.Second))
	_, err = h.svc.Create(ctx, event(at(10, 0), at(12, 0), "spot-b1"))
	require.NoError(t, err)

	all, total, err := h.svc.GetAll(ctx, model.ReservationFilter{Kind: "all"}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, all, 2)
	assert.Equal(t, model.KindEvent, all[0].Kind, "newest first")

	mine, total, err := h.svc.GetAll(ctx, model.ReservationFilter{Requester: " JDOE@campus.edu"}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.KindRegular, mine[0].Kind)

	onlyEvents, _, err := h.svc.GetAll(ctx, model.ReservationFilter{Kind: model.KindEvent}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, onlyEvents, 1)

	_, _, err = h.svc.GetAll(ctx, model.ReservationFilter{Kind: "vip"}, 10, 0)
	assertCode(t, err, apperrors.CodeInvalidInput)
}
