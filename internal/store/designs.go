package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"furnish-service/internal/models"
)

const designColumns = `id, status, tier, style, budget_total, request, result, error,
	COALESCE(idempotency_key, '') AS idempotency_key, created_at, updated_at`

// CreateDesign inserts a new design. CreatedAt and UpdatedAt are set here.
func (s *Store) CreateDesign(ctx context.Context, d *models.Design) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := s.db.Rebind(`
		INSERT INTO designs (id, status, tier, style, budget_total, request, result, error, idempotency_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.Status, d.Tier, d.Style, d.BudgetTotal, d.Request, d.Result, d.Error,
		d.IdempotencyKey, d.CreatedAt, d.UpdatedAt)
	return err
}

// GetDesignByID retrieves a design by ID
func (s *Store) GetDesignByID(ctx context.Context, id string) (*models.Design, error) {
	var d models.Design
	err := s.db.GetContext(ctx, &d, s.db.Rebind("SELECT "+designColumns+" FROM designs WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("design %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDesignByIdempotencyKey retrieves a design by idempotency key, nil when absent
func (s *Store) GetDesignByIdempotencyKey(ctx context.Context, key string) (*models.Design, error) {
	var d models.Design
	err := s.db.GetContext(ctx, &d, s.db.Rebind("SELECT "+designColumns+" FROM designs WHERE idempotency_key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDesignOutcome stores the final status, serialized result and error message
func (s *Store) UpdateDesignOutcome(ctx context.Context, id, status, result, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE designs SET status = ?, result = ?, error = ?, updated_at = ? WHERE id = ?"),
		status, result, errMsg, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("design %s: %w", id, ErrNotFound)
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		s.db.Rebind("SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = ?)"), eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO processed_events (event_id, event_type) VALUES (?, ?) ON CONFLICT (event_id) DO NOTHING"),
		eventID, eventType)
	return err
}
