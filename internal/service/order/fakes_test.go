package order

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/uhcare-api/internal/channel"
	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
	"github.com/jwalitptl/uhcare-api/internal/service/preference"
)

type memPharmacyStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*model.PharmacyOrder
	taken   map[string]bool
	updates int
}

func newMemPharmacyStore() *memPharmacyStore {
	return &memPharmacyStore{rows: map[uuid.UUID]*model.PharmacyOrder{}, taken: map[string]bool{}}
}

func copyOrder(o *model.PharmacyOrder) *model.PharmacyOrder {
	c := *o
	c.Items = append([]model.PharmacyOrderItem(nil), o.Items...)
	return &c
}

func (s *memPharmacyStore) Get(_ context.Context, id uuid.UUID) (*model.PharmacyOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *memPharmacyStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.PharmacyOrder, error) {
	return s.Get(ctx, id)
}

func (s *memPharmacyStore) Insert(_ context.Context, o *model.PharmacyOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[o.ID] = copyOrder(o)
	s.taken[o.Number] = true
	return nil
}

func (s *memPharmacyStore) Update(_ context.Context, o *model.PharmacyOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	s.rows[o.ID] = copyOrder(o)
	return nil
}

func (s *memPharmacyStore) NumberExists(_ context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taken[number], nil
}

func (s *memPharmacyStore) ListByParty(_ context.Context, userID uuid.UUID, _ model.Pagination) ([]*model.PharmacyOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PharmacyOrder
	for _, o := range s.rows {
		if o.CustomerID == userID || (o.ProviderID != nil && *o.ProviderID == userID) {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (s *memPharmacyStore) List(_ context.Context, filter repository.OrderFilter) ([]*model.PharmacyOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PharmacyOrder
	for _, o := range s.rows {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

type fakeTx struct {
	calls int
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type memActivities struct {
	items []*model.Activity
}

func (m *memActivities) Create(_ context.Context, a *model.Activity) error {
	m.items = append(m.items, a)
	return nil
}

func (m *memActivities) ListByEntity(_ context.Context, ref model.Ref) ([]*model.Activity, error) {
	var out []*model.Activity
	for _, a := range m.items {
		if a.EntityKind == ref.Kind && a.EntityID == ref.ID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memActivities) ofType(t model.ActivityType) []*model.Activity {
	var out []*model.Activity
	for _, a := range m.items {
		if a.ActivityType == t {
			out = append(out, a)
		}
	}
	return out
}

type memOutbox struct {
	events []*model.OutboxEvent
}

func (m *memOutbox) Create(_ context.Context, e *model.OutboxEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memOutbox) ClaimPending(context.Context, int) ([]*model.OutboxEvent, error) { return nil, nil }
func (m *memOutbox) MarkProcessed(context.Context, uuid.UUID) error                  { return nil }
func (m *memOutbox) MarkRetry(context.Context, uuid.UUID, string, time.Time) error   { return nil }
func (m *memOutbox) MarkFailed(context.Context, uuid.UUID, string) error             { return nil }
func (m *memOutbox) DeleteProcessedBefore(context.Context, time.Time) (int64, error) { return 0, nil }

// The fakes below back a real notification dispatcher.

type defaultPrefs struct{}

func (defaultPrefs) Get(_ context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	return model.DefaultPreferences(userID, time.Now()), nil
}

func (defaultPrefs) Update(_ context.Context, userID uuid.UUID, _ preference.UpdateRequest) (*model.NotificationPreference, error) {
	return model.DefaultPreferences(userID, time.Now()), nil
}

type memNotifications struct {
	items []*model.Notification
}

func (m *memNotifications) Create(_ context.Context, n *model.Notification) error {
	m.items = append(m.items, n)
	return nil
}

func (m *memNotifications) GetByID(context.Context, uuid.UUID) (*model.Notification, error) {
	return nil, repository.ErrNotFound
}

func (m *memNotifications) ListByUser(context.Context, uuid.UUID, model.InboxFilter, model.Pagination) ([]*model.Notification, error) {
	return m.items, nil
}

func (m *memNotifications) CountUnread(context.Context, uuid.UUID) (int, error) {
	return len(m.items), nil
}

func (m *memNotifications) MarkRead(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

func (m *memNotifications) MarkAllRead(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}

func (m *memNotifications) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type memLogs struct {
	items map[uuid.UUID]*model.DeliveryLog
}

func (m *memLogs) Create(_ context.Context, l *model.DeliveryLog) error {
	c := *l
	m.items[l.ID] = &c
	return nil
}

func (m *memLogs) UpdateOutcome(_ context.Context, l *model.DeliveryLog) error {
	c := *l
	m.items[l.ID] = &c
	return nil
}

type contacts map[uuid.UUID]*model.Contact

func (c contacts) Contact(_ context.Context, userID uuid.UUID) (*model.Contact, error) {
	contact, ok := c[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return contact, nil
}

type stubTransport struct {
	configured bool
	err        error
}

func (s *stubTransport) Configured() bool { return s.configured }

func (s *stubTransport) Send(context.Context, channel.Message) error { return s.err }
