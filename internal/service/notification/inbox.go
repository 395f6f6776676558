package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
	apperrors "github.com/jwalitptl/uhcare-api/pkg/errors"
)

// RecentLimit is how many notifications the header dropdown shows.
const RecentLimit = 6

// Inbox is the user-facing side of in-app notifications.
type Inbox struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

func NewInbox(repo repository.NotificationRepository) *Inbox {
	return &Inbox{repo: repo, now: time.Now}
}

func (s *Inbox) List(ctx context.Context, userID uuid.UUID, filter model.InboxFilter, p model.Pagination) ([]*model.Notification, error) {
	list, err := s.repo.ListByUser(ctx, userID, filter, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *Inbox) Recent(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	return s.List(ctx, userID, model.InboxAll, model.Pagination{Limit: RecentLimit})
}

func (s *Inbox) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications read. read_at is kept from the first call.
func (s *Inbox) MarkRead(ctx context.Context, userID, id uuid.UUID) (*model.Notification, error) {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.repo.MarkRead(ctx, id, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	if updated {
		n.MarkRead(now)
	}
	return n, nil
}

func (s *Inbox) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return count, nil
}

func (s *Inbox) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// owned loads a notification, hiding other users' notifications as not found.
func (s *Inbox) owned(ctx context.Context, userID, id uuid.UUID) (*model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("notification", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	if n.UserID != userID {
		return nil, apperrors.NotFound("notification", nil)
	}
	return n, nil
}
