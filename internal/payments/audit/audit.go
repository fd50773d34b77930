package audit

import (
	"context"
	"fmt"
	"time"

	"campuspark/pkg/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const Table = "payment_audits"

// Schema creates the audit table. Applied by cmd/migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS payment_audits (
	id             UUID PRIMARY KEY,
	reservation_id VARCHAR(64)  NOT NULL,
	session_id     VARCHAR(255) NOT NULL,
	source         VARCHAR(16)  NOT NULL,
	outcome        VARCHAR(16)  NOT NULL,
	created_at     TIMESTAMPTZ  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payment_audits_reservation ON payment_audits (reservation_id, created_at DESC);
`

type Repository interface {
	Record(ctx context.Context, entry *model.PaymentAudit) error
	FindByReservation(ctx context.Context, reservationID string) ([]model.PaymentAudit, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Record(ctx context.Context, entry *model.PaymentAudit) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO payment_audits (id, reservation_id, session_id, source, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ReservationID, entry.SessionID, entry.Source, entry.Outcome, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record payment audit: %w", err)
	}
	return nil
}

func (r *postgresRepository) FindByReservation(ctx context.Context, reservationID string) ([]model.PaymentAudit, error) {
	query := `
		SELECT id, reservation_id, session_id, source, outcome, created_at
		FROM payment_audits
		WHERE reservation_id = $1
		ORDER BY created_at DESC`

	entries := []model.PaymentAudit{}
	if err := r.db.SelectContext(ctx, &entries, query, reservationID); err != nil {
		return nil, fmt.Errorf("failed to load payment audits: %w", err)
	}
	return entries, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply %s schema: %w", Table, err)
	}
	return nil
}
