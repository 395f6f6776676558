package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
)

const preferenceColumns = `user_id, enable_in_app, enable_email, appointment_emails, order_emails,
	payment_emails, marketing_emails, enable_sms, appointment_sms, order_sms, payment_sms,
	enable_push, created_at, updated_at`

type preferenceRepository struct {
	BaseRepository
}

func NewPreferenceRepository(db *sqlx.DB) repository.PreferenceRepository {
	return &preferenceRepository{NewBaseRepository(db)}
}

func (r *preferenceRepository) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	var p model.NotificationPreference
	query := `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE user_id = $1`
	if err := sqlx.GetContext(ctx, r.ext(ctx), &p, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get notification preferences: %w", notFound(err))
	}
	return &p, nil
}

func (r *preferenceRepository) Create(ctx context.Context, p *model.NotificationPreference) (*model.NotificationPreference, error) {
	query := `
		INSERT INTO notification_preferences (
			user_id, enable_in_app, enable_email, appointment_emails, order_emails,
			payment_emails, marketing_emails, enable_sms, appointment_sms, order_sms, payment_sms,
			enable_push, created_at, updated_at
		) VALUES (
			:user_id, :enable_in_app, :enable_email, :appointment_emails, :order_emails,
			:payment_emails, :marketing_emails, :enable_sms, :appointment_sms, :order_sms, :payment_sms,
			:enable_push, :created_at, :updated_at
		)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, p); err != nil {
		return nil, fmt.Errorf("failed to create notification preferences: %w", err)
	}
	return r.Get(ctx, p.UserID)
}

func (r *preferenceRepository) Update(ctx context.Context, p *model.NotificationPreference) error {
	query := `
		UPDATE notification_preferences SET
			enable_in_app = :enable_in_app,
			enable_email = :enable_email,
			appointment_emails = :appointment_emails,
			order_emails = :order_emails,
			payment_emails = :payment_emails,
			marketing_emails = :marketing_emails,
			enable_sms = :enable_sms,
			appointment_sms = :appointment_sms,
			order_sms = :order_sms,
			payment_sms = :payment_sms,
			enable_push = :enable_push,
			updated_at = :updated_at
		WHERE user_id = :user_id`

	result, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, p)
	if err != nil {
		return fmt.Errorf("failed to update notification preferences: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update notification preferences: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to update notification preferences: %w", repository.ErrNotFound)
	}
	return nil
}
