package service

import (
	"context"
	"strings"

	"campuspark/internal/payments/audit"
	"campuspark/internal/reservations/validator"
	"campuspark/pkg/config"
	apperrors "campuspark/pkg/errors"
	"campuspark/pkg/model"
)

// PaymentService applies checkout confirmations to reservations.
type PaymentService interface {
	Confirm(ctx context.Context, req *model.PaymentConfirmation, source model.PaymentSource) (*model.ReservationView, error)
}

// Marker flips a reservation's payment status. Implemented by the reservation service.
type Marker interface {
	MarkPaid(ctx context.Context, id string, sessionID string) (*model.ReservationView, bool, error)
}

type paymentService struct {
	marker    Marker
	audit     audit.Repository
	validator *validator.ReservationValidator
	cfg       *config.Config
}

// NewPaymentService builds the service. A nil audit repository disables the trail.
func NewPaymentService(marker Marker, auditRepo audit.Repository, validator *validator.ReservationValidator, cfg *config.Config) PaymentService {
	return &paymentService{
		marker:    marker,
		audit:     auditRepo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *paymentService) Confirm(ctx context.Context, req *model.PaymentConfirmation, source model.PaymentSource) (*model.ReservationView, error) {
	req.ReservationID = strings.TrimSpace(req.ReservationID)
	req.SessionID = strings.TrimSpace(req.SessionID)

	if err := s.validator.ValidatePayment(req); err != nil {
		s.cfg.Log.Warn("Payment confirmation validation failed", "source", source, "error", err)
		return nil, apperrors.Validation("Invalid payment confirmation", map[string]any{"error": err.Error()})
	}

	view, changed, err := s.marker.MarkPaid(ctx, req.ReservationID, req.SessionID)
	switch {
	case err == nil && changed:
		s.record(ctx, req, source, model.OutcomePaid)
	case err == nil:
		s.record(ctx, req, source, model.OutcomeDuplicate)
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		s.record(ctx, req, source, model.OutcomeNotFound)
	default:
		s.record(ctx, req, source, model.OutcomeFailed)
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

// record never fails the confirmation; the reservation is the source of truth.
func (s *paymentService) record(ctx context.Context, req *model.PaymentConfirmation, source model.PaymentSource, outcome model.PaymentOutcome) {
	if s.audit == nil {
		return
	}
	entry := &model.PaymentAudit{
		ReservationID: req.ReservationID,
		SessionID:     req.SessionID,
		Source:        source,
		Outcome:       outcome,
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.cfg.Log.Error("Failed to record payment audit", "reservation_id", req.ReservationID, "outcome", outcome, "error", err)
	}
}
