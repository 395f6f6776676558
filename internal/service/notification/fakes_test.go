package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/uhcare-api/internal/channel"
	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
	"github.com/jwalitptl/uhcare-api/internal/service/preference"
)

type fakePrefs struct {
	prefs map[uuid.UUID]*model.NotificationPreference
	err   error
}

func (f *fakePrefs) Get(_ context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.prefs[userID]; ok {
		c := *p
		return &c, nil
	}
	return model.DefaultPreferences(userID, time.Now()), nil
}

func (f *fakePrefs) Update(context.Context, uuid.UUID, preference.UpdateRequest) (*model.NotificationPreference, error) {
	return nil, errors.New("not used")
}

type fakeNotifications struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Notification
	err   error
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{items: map[uuid.UUID]*model.Notification{}}
}

func (f *fakeNotifications) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	c := *n
	f.items[n.ID] = &c
	return nil
}

func (f *fakeNotifications) GetByID(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *n
	return &c, nil
}

func (f *fakeNotifications) ListByUser(_ context.Context, userID uuid.UUID, filter model.InboxFilter, p model.Pagination) ([]*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Notification
	for _, n := range f.items {
		if n.UserID != userID {
			continue
		}
		if (filter == model.InboxUnread && n.IsRead) || (filter == model.InboxRead && !n.IsRead) {
			continue
		}
		c := *n
		out = append(out, &c)
	}
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

func (f *fakeNotifications) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.items[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	return n.MarkRead(at), nil
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.items {
		if n.UserID == userID && n.MarkRead(at) {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) Delete(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.items[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeNotifications) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeLogs struct {
	mu      sync.Mutex
	logs    []*model.DeliveryLog
	updates map[uuid.UUID]int
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{updates: map[uuid.UUID]int{}}
}

func (f *fakeLogs) Create(_ context.Context, l *model.DeliveryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *l
	f.logs = append(f.logs, &c)
	return nil
}

func (f *fakeLogs) UpdateOutcome(_ context.Context, l *model.DeliveryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.logs {
		if existing.ID == l.ID {
			if existing.Status != model.DeliveryPending {
				return repository.ErrNotFound
			}
			*existing = *l
			f.updates[l.ID]++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeLogs) byChannel(ch model.Channel) []*model.DeliveryLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.DeliveryLog
	for _, l := range f.logs {
		if l.Channel == ch {
			out = append(out, l)
		}
	}
	return out
}

type fakeUsers struct {
	contacts map[uuid.UUID]*model.Contact
}

func (f *fakeUsers) Contact(_ context.Context, userID uuid.UUID) (*model.Contact, error) {
	c, ok := f.contacts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

type fakeTransport struct {
	mu         sync.Mutex
	configured bool
	err        error
	panics     string
	sent       []channel.Message
}

func (f *fakeTransport) Configured() bool { return f.configured }

func (f *fakeTransport) Send(_ context.Context, msg channel.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics != "" {
		panic(f.panics)
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeBroker struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (f *fakeBroker) Publish(_ context.Context, ch string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ch)
	return f.err
}

func (f *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not used")
}

func (f *fakeBroker) Close() error { return nil }
