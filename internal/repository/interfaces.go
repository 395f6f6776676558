package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/uhcare-api/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Transactor runs fn in one database transaction carried by ctx.
// Repositories called with that ctx join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderFilter narrows administrative listings.
type OrderFilter struct {
	Status     model.Status
	Pagination model.Pagination
}

type OrderStore[E model.Entity] interface {
	Get(ctx context.Context, id uuid.UUID) (E, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (E, error)
	Insert(ctx context.Context, e E) error
	Update(ctx context.Context, e E) error
	NumberExists(ctx context.Context, number string) (bool, error)
	// ListByParty returns entities where the user is the customer or the provider.
	ListByParty(ctx context.Context, userID uuid.UUID, p model.Pagination) ([]E, error)
	List(ctx context.Context, filter OrderFilter) ([]E, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	ListByEntity(ctx context.Context, ref model.Ref) ([]*model.Activity, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter model.InboxFilter, p model.Pagination) ([]*model.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	// MarkRead reports false when the notification was already read.
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type DeliveryLogRepository interface {
	Create(ctx context.Context, log *model.DeliveryLog) error
	UpdateOutcome(ctx context.Context, log *model.DeliveryLog) error
}

type PreferenceRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
	// Create inserts p unless a row already exists and returns the stored row.
	Create(ctx context.Context, p *model.NotificationPreference) (*model.NotificationPreference, error)
	Update(ctx context.Context, p *model.NotificationPreference) error
}

type UserDirectory interface {
	Contact(ctx context.Context, userID uuid.UUID) (*model.Contact, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	// ClaimPending locks due events for the surrounding transaction.
	ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
