package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
)

type deliveryLogRepository struct {
	BaseRepository
}

func NewDeliveryLogRepository(db *sqlx.DB) repository.DeliveryLogRepository {
	return &deliveryLogRepository{NewBaseRepository(db)}
}

func (r *deliveryLogRepository) Create(ctx context.Context, l *model.DeliveryLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO delivery_logs (
			id, channel, user_id, recipient, subject, message, notification_type,
			status, error_message, sent_at, created_at
		) VALUES (
			:id, :channel, :user_id, :recipient, :subject, :message, :notification_type,
			:status, :error_message, :sent_at, :created_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, l); err != nil {
		return fmt.Errorf("failed to create %s log: %w", l.Channel, err)
	}
	return nil
}

// UpdateOutcome records the result of the attempt. Only a pending log is updated.
func (r *deliveryLogRepository) UpdateOutcome(ctx context.Context, l *model.DeliveryLog) error {
	query := `
		UPDATE delivery_logs
		SET status = :status, error_message = :error_message, sent_at = :sent_at
		WHERE id = :id AND status = 'pending'`

	result, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, l)
	if err != nil {
		return fmt.Errorf("failed to update %s log: %w", l.Channel, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s log: %w", l.Channel, err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to update %s log: %w", l.Channel, repository.ErrNotFound)
	}
	return nil
}
