package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"campuspark/internal/reservations/conflict"
	reservationserrors "campuspark/internal/reservations/errors"
	"campuspark/internal/reservations/events"
	"campuspark/internal/reservations/pricing"
	"campuspark/internal/reservations/repository"
	"campuspark/internal/reservations/status"
	"campuspark/internal/reservations/validator"
	"campuspark/pkg/cache"
	"campuspark/pkg/config"
	apperrors "campuspark/pkg/errors"
	"campuspark/pkg/model"
	"campuspark/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReservationService interface {
	Create(ctx context.Context, req *model.ReservationCreate) (*model.ReservationView, error)
	GetByID(ctx context.Context, id string) (*model.ReservationView, error)
	GetAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.ReservationView, int64, error)
	Modify(ctx context.Context, id string, req *model.ReservationUpdate) (*model.ReservationView, error)
	Cancel(ctx context.Context, id string) error
	Approve(ctx context.Context, id string, decision *model.AdminDecision) (*model.ReservationView, error)
	Reject(ctx context.Context, id string, decision *model.AdminDecision) (*model.ReservationView, error)

	// MarkPaid records a confirmed payment. Repeating it is a no-op and
	// reports changed=false.
	MarkPaid(ctx context.Context, id string, sessionID string) (view *model.ReservationView, changed bool, err error)
}

// SpotStore is the part of the lot registry the lifecycle writes through.
type SpotStore interface {
	FindSpotsByIDs(ctx context.Context, ids []string) ([]*model.Spot, error)
	SetReserved(ctx context.Context, spotIDs []string, reserved bool) error
}

type reservationService struct {
	repo      repository.ReservationRepository
	locks     repository.LockRepository
	spots     SpotStore
	detector  *conflict.Detector
	pricing   *pricing.Engine
	validator *validator.ReservationValidator
	publisher *events.Publisher
	cache     *cache.SpotCache
	cfg       *config.Config
	now       func() time.Time
}

func NewReservationService(
	repo repository.ReservationRepository,
	locks repository.LockRepository,
	spots SpotStore,
	validator *validator.ReservationValidator,
	pricing *pricing.Engine,
	publisher *events.Publisher,
	spotCache *cache.SpotCache,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		locks:     locks,
		spots:     spots,
		detector:  conflict.NewDetector(repo),
		pricing:   pricing,
		validator: validator,
		publisher: publisher,
		cache:     spotCache,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *reservationService) Create(ctx context.Context, req *model.ReservationCreate) (*model.ReservationView, error) {
	s.sanitizeCreate(req)
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "requester", req.Requester, "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	now := s.now().UTC()
	w := normalizeWindow(req.StartTime, req.EndTime)
	if err := s.checkWindow(w, now); err != nil {
		return nil, err
	}

	spotIDs := sanitizer.NormalizeSpotIDs(req.Spots())
	id := primitive.NewObjectID().Hex()
	createdAt := now.Truncate(time.Millisecond)

	var created *model.Reservation
	var lotIDs []string
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		spots, err := s.spots.FindSpotsByIDs(txCtx, spotIDs)
		if err != nil {
			return err
		}
		if missing := missingSpot(spotIDs, spots); missing != "" {
			return apperrors.NotFoundWithID("Spot", missing)
		}

		if err := s.locks.Lock(txCtx, spotIDs); err != nil {
			return err
		}
		if err := s.ensureFree(txCtx, spotIDs, w, ""); err != nil {
			return err
		}

		r := &model.Reservation{
			ID:            id,
			Kind:          req.Kind,
			SpotIDs:       spotIDs,
			Requester:     req.Requester,
			EventName:     req.EventName,
			Justification: req.Justification,
			StartTime:     w.Start,
			EndTime:       w.End,
			TotalPrice:    s.pricing.For(req.Kind, w, len(spotIDs)),
			Status:        model.StatusPending,
			PaymentStatus: model.PaymentUnpaid,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		}
		if r.Kind == model.KindRegular {
			r.LotID = spots[0].LotID
		}

		if err := s.repo.Insert(txCtx, r); err != nil {
			return err
		}
		if err := s.spots.SetReserved(txCtx, spotIDs, true); err != nil {
			return err
		}

		created = r
		lotIDs = lotsOf(spots)
		return nil
	})
	if err != nil {
		return nil, s.fail("Create reservation", id, err)
	}

	s.cache.Invalidate(ctx, lotIDs...)
	s.publisher.Publish(ctx, events.Created, created)

	s.cfg.Log.Info("Reservation created",
		"id", created.ID,
		"kind", created.Kind,
		"spots", len(created.SpotIDs),
		"requester", created.Requester,
		"start_time", created.StartTime,
		"total_price", created.TotalPrice.String(),
	)
	return status.View(created, s.now()), nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.ReservationView, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail("Get reservation", id, err)
	}
	return status.View(r, s.now()), nil
}

func (s *reservationService) GetAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.ReservationView, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)
	filter.Requester = sanitizer.NormalizeRequester(filter.Requester)
	if filter.Kind == "all" {
		filter.Kind = ""
	}
	if filter.Kind != "" && !filter.Kind.IsValid() {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid kind parameter: %s", filter.Kind))
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count reservations", "error", err)
			errCount = apperrors.StoreUnavailable("Count reservations", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		reservations, err = s.repo.FindAll(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list reservations",
				"requester", filter.Requester,
				"kind", filter.Kind,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.StoreUnavailable("List reservations", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return status.Views(reservations, s.now()), count, nil
}

func (s *reservationService) Modify(ctx context.Context, id string, req *model.ReservationUpdate) (*model.ReservationView, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	if err := s.validator.ValidateUpdate(req); err != nil {
		s.cfg.Log.Warn("Reservation update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	now := s.now().UTC()
	w := normalizeWindow(req.StartTime, req.EndTime)
	if err := s.checkWindow(w, now); err != nil {
		return nil, err
	}

	var updated *model.Reservation
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		r, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if r.Status != model.StatusPending {
			return apperrors.InvalidState(fmt.Sprintf("Only pending reservations can be modified (status: %s)", r.Status))
		}

		if err := s.locks.Lock(txCtx, r.SpotIDs); err != nil {
			return err
		}
		if err := s.ensureFree(txCtx, r.SpotIDs, w, r.ID); err != nil {
			return err
		}

		r.StartTime = w.Start
		r.EndTime = w.End
		r.TotalPrice = s.pricing.For(r.Kind, w, len(r.SpotIDs))
		r.UpdatedAt = now.Truncate(time.Millisecond)
		if err := s.repo.UpdateWindow(txCtx, r); err != nil {
			return err
		}

		updated = r
		return nil
	})
	if err != nil {
		return nil, s.fail("Modify reservation", id, err)
	}

	s.publisher.Publish(ctx, events.Modified, updated)
	s.cfg.Log.Info("Reservation modified",
		"id", id,
		"start_time", updated.StartTime,
		"end_time", updated.EndTime,
		"total_price", updated.TotalPrice.String(),
	)
	return status.View(updated, s.now()), nil
}

func (s *reservationService) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	now := s.now().UTC()
	var cancelled *model.Reservation
	var lotIDs []string
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		r, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if !cancellable(r, now) {
			return apperrors.InvalidState(fmt.Sprintf(
				"Reservation cannot be cancelled (status: %s)", status.Effective(r, now),
			))
		}

		r.Status = model.StatusCancelled
		r.UpdatedAt = now.Truncate(time.Millisecond)
		lotIDs, err = s.release(txCtx, r, now)
		if err != nil {
			return err
		}

		cancelled = r
		return nil
	})
	if err != nil {
		return s.fail("Cancel reservation", id, err)
	}

	s.cache.Invalidate(ctx, lotIDs...)
	s.publisher.Publish(ctx, events.Cancelled, cancelled)
	s.cfg.Log.Info("Reservation cancelled", "id", id, "requester", cancelled.Requester)
	return nil
}

// cancellable allows cancelling only before the window starts, from a stored
// pending or approved status.
func cancellable(r *model.Reservation, now time.Time) bool {
	if r.Status != model.StatusPending && r.Status != model.StatusApproved {
		return false
	}
	eff := status.Effective(r, now)
	return eff == model.DisplayPending || eff == model.DisplayApproved
}

func (s *reservationService) Approve(ctx context.Context, id string, decision *model.AdminDecision) (*model.ReservationView, error) {
	return s.decide(ctx, id, decision, model.StatusApproved)
}

func (s *reservationService) Reject(ctx context.Context, id string, decision *model.AdminDecision) (*model.ReservationView, error) {
	return s.decide(ctx, id, decision, model.StatusRejected)
}

func (s *reservationService) decide(ctx context.Context, id string, decision *model.AdminDecision, to model.ReservationStatus) (*model.ReservationView, error) {
	op := "Approve reservation"
	eventType := events.Approved
	if to == model.StatusRejected {
		op = "Reject reservation"
		eventType = events.Rejected
	}

	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	if decision == nil {
		decision = &model.AdminDecision{}
	}
	decision.AdminNotes = sanitizer.NormalizeNotes(decision.AdminNotes)
	if err := s.validator.ValidateDecision(decision); err != nil {
		return nil, apperrors.Validation("Invalid admin decision", map[string]any{"error": err.Error()})
	}

	now := s.now().UTC()
	var decided *model.Reservation
	var lotIDs []string
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		r, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if r.Kind != model.KindEvent && !s.cfg.AllowRegularApproval {
			return apperrors.InvalidState("Only event reservations go through approval")
		}
		if r.Status != model.StatusPending {
			return apperrors.InvalidState(fmt.Sprintf("Only pending reservations can be decided (status: %s)", r.Status))
		}

		r.Status = to
		r.UpdatedAt = now.Truncate(time.Millisecond)
		if decision.AdminNotes != "" {
			r.AdminNotes = decision.AdminNotes
		}

		if to == model.StatusRejected {
			lotIDs, err = s.release(txCtx, r, now)
			if err != nil {
				return err
			}
		} else if err := s.repo.UpdateStatus(txCtx, r); err != nil {
			return err
		}

		decided = r
		return nil
	})
	if err != nil {
		return nil, s.fail(op, id, err)
	}

	s.cache.Invalidate(ctx, lotIDs...)
	s.publisher.Publish(ctx, eventType, decided)
	s.cfg.Log.Info("Reservation decided", "id", id, "status", decided.Status, "kind", decided.Kind)
	return status.View(decided, s.now()), nil
}

func (s *reservationService) MarkPaid(ctx context.Context, id string, sessionID string) (*model.ReservationView, bool, error) {
	if id == "" {
		return nil, false, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	sessionID = strings.TrimSpace(sessionID)

	now := s.now().UTC()
	var result *model.Reservation
	var changed bool
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		changed = false
		r, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if r.PaymentStatus == model.PaymentPaid {
			result = r
			return nil
		}

		paidAt := now.Truncate(time.Millisecond)
		r.PaymentStatus = model.PaymentPaid
		r.PaymentSessionID = sessionID
		r.PaidAt = &paidAt
		r.UpdatedAt = paidAt
		if err := s.repo.UpdatePayment(txCtx, r); err != nil {
			return err
		}

		result = r
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, s.fail("Mark reservation paid", id, err)
	}

	if changed {
		s.publisher.Publish(ctx, events.Paid, result)
		s.cfg.Log.Info("Reservation paid", "id", id, "session_id", sessionID)
	} else {
		s.cfg.Log.Info("Duplicate payment confirmation ignored", "id", id, "session_id", sessionID)
	}
	return status.View(result, s.now()), changed, nil
}

// --- Helpers ---

// release persists r's terminal status and clears isReserved on every spot no
// other blocking reservation still holds at now. It returns the affected lots.
func (s *reservationService) release(ctx context.Context, r *model.Reservation, now time.Time) ([]string, error) {
	if err := s.locks.Lock(ctx, r.SpotIDs); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, r); err != nil {
		return nil, err
	}

	var free []string
	for _, spotID := range r.SpotIDs {
		held, err := s.repo.HasBlocking(ctx, spotID, r.ID, now)
		if err != nil {
			return nil, err
		}
		if !held {
			free = append(free, spotID)
		}
	}
	if len(free) == 0 {
		return nil, nil
	}

	if err := s.spots.SetReserved(ctx, free, false); err != nil {
		return nil, err
	}
	spots, err := s.spots.FindSpotsByIDs(ctx, free)
	if err != nil {
		return nil, err
	}
	return lotsOf(spots), nil
}

func (s *reservationService) ensureFree(ctx context.Context, spotIDs []string, w model.Window, excludeID string) error {
	existing, err := s.detector.FindConflict(ctx, spotIDs, w, excludeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.SlotUnavailable("Requested spot is already reserved for an overlapping window").
			WithDetails(map[string]any{
				"start_time": existing.StartTime.Format(time.RFC3339),
				"end_time":   existing.EndTime.Format(time.RFC3339),
			})
	}
	return nil
}

func (s *reservationService) checkWindow(w model.Window, now time.Time) error {
	if w.Start.IsZero() || w.End.IsZero() {
		return apperrors.InvalidWindow("start_time and end_time are required")
	}
	if !w.Start.Before(w.End) {
		return apperrors.InvalidWindow("end_time must be after start_time")
	}
	if earliest := now.Add(s.cfg.MinLeadTime); w.Start.Before(earliest) {
		return apperrors.InvalidWindow(fmt.Sprintf(
			"start_time must be at least %s from now", s.cfg.MinLeadTime,
		))
	}
	if s.cfg.MaxReservationDuration > 0 && w.Duration() > s.cfg.MaxReservationDuration {
		return apperrors.InvalidWindow(fmt.Sprintf(
			"reservations may last at most %s", s.cfg.MaxReservationDuration,
		))
	}
	return nil
}

func normalizeWindow(start, end time.Time) model.Window {
	return model.Window{
		Start: start.UTC().Truncate(time.Millisecond),
		End:   end.UTC().Truncate(time.Millisecond),
	}
}

func (s *reservationService) sanitizeCreate(req *model.ReservationCreate) {
	if req.Kind == "" {
		req.Kind = model.KindRegular
	}
	req.Requester = sanitizer.NormalizeRequester(req.Requester)
	req.SpotID = strings.TrimSpace(req.SpotID)
	req.SpotIDs = sanitizer.NormalizeStringSlice(req.SpotIDs, strings.TrimSpace)
	req.EventName = sanitizer.NormalizeEventName(req.EventName)
	req.Justification = sanitizer.NormalizeNotes(req.Justification)
	if req.SpotID != "" && slices.Contains(req.SpotIDs, req.SpotID) {
		req.SpotIDs = slices.DeleteFunc(req.SpotIDs, func(id string) bool { return id == req.SpotID })
	}
}

func missingSpot(ids []string, found []*model.Spot) string {
	for _, id := range ids {
		if !slices.ContainsFunc(found, func(s *model.Spot) bool { return s.ID == id }) {
			return id
		}
	}
	return ""
}

func lotsOf(spots []*model.Spot) []string {
	lots := make([]string, 0, len(spots))
	for _, spot := range spots {
		if spot.LotID != "" && !slices.Contains(lots, spot.LotID) {
			lots = append(lots, spot.LotID)
		}
	}
	return lots
}

// fail maps repository and transaction errors onto the API error set. Domain
// errors pass through; anything else means the store could not complete the
// operation and nothing was committed.
func (s *reservationService) fail(op, id string, err error) error {
	switch {
	case apperrors.IsAppError(err):
		appErr := apperrors.AsAppError(err)
		if appErr.Code == apperrors.CodeStoreUnavailable {
			s.cfg.Log.Error(op+" failed", "id", id, "error", err)
		} else {
			s.cfg.Log.Warn(op+" rejected", "id", id, "code", appErr.Code, "reason", appErr.Message)
		}
		return err
	case errors.Is(err, reservationserrors.ErrNotFound), errors.Is(err, reservationserrors.ErrInvalidID):
		return apperrors.NotFoundWithID("Reservation", id)
	}

	s.cfg.Log.Error(op+" failed", "id", id, "error", err)
	return apperrors.StoreUnavailable(op, err)
}
