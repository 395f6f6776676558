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

const notificationColumns = `id, user_id, notification_type, title, message, ref_kind, ref_id,
	action_url, action_text, is_read, read_at, created_at`

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{NewBaseRepository(db)}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO notifications (
			id, user_id, notification_type, title, message, ref_kind, ref_id,
			action_url, action_text, is_read, read_at, created_at
		) VALUES (
			:id, :user_id, :notification_type, :title, :message, :ref_kind, :ref_id,
			:action_url, :action_text, :is_read, :read_at, :created_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.ext(ctx), &n, query, id); err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", notFound(err))
	}
	return &n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter model.InboxFilter, p model.Pagination) ([]*model.Notification, error) {
	p = p.Normalize()
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	switch filter {
	case model.InboxUnread:
		query += ` AND is_read = false`
	case model.InboxRead:
		query += ` AND is_read = true`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var out []*model.Notification
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &out, query, userID, p.Limit, p.Offset); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`
	if err := sqlx.GetContext(ctx, r.ext(ctx), &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = $3
		WHERE id = $1 AND user_id = $2 AND is_read = false`

	result, err := r.ext(ctx).ExecContext(ctx, query, id, userID, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return rows > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = $2
		WHERE user_id = $1 AND is_read = false`

	result, err := r.ext(ctx).ExecContext(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.ext(ctx).ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to delete notification: %w", repository.ErrNotFound)
	}
	return nil
}
