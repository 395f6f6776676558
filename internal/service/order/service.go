// Package order runs the write path shared by every order-like entity:
// guard the change, persist it with its timeline and outbox event in one
// transaction, then notify the parties once the transaction has committed.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/uhcare-api/internal/lifecycle"
	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
	apperrors "github.com/jwalitptl/uhcare-api/pkg/errors"
	"github.com/jwalitptl/uhcare-api/pkg/logger"
	"github.com/jwalitptl/uhcare-api/pkg/metrics"
)

// maxNumberAttempts bounds how often a colliding reference number is regenerated.
const maxNumberAttempts = 5

// Notifier receives every committed change.
type Notifier interface {
	Notify(ctx context.Context, change *lifecycle.Change)
}

type Deps[E model.Entity] struct {
	Policy     *lifecycle.Policy[E]
	Store      repository.OrderStore[E]
	Tx         repository.Transactor
	Activities repository.ActivityRepository
	Outbox     repository.OutboxRepository
	Notifier   Notifier
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

type Service[E model.Entity] struct {
	policy     *lifecycle.Policy[E]
	store      repository.OrderStore[E]
	tx         repository.Transactor
	activities repository.ActivityRepository
	outbox     repository.OutboxRepository
	notifier   Notifier
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
}

func NewService[E model.Entity](deps Deps[E]) *Service[E] {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service[E]{
		policy:     deps.Policy,
		store:      deps.Store,
		tx:         deps.Tx,
		activities: deps.Activities,
		outbox:     deps.Outbox,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		log:        log.WithFields(map[string]interface{}{"kind": string(deps.Policy.Kind)}),
		now:        time.Now,
	}
}

func (s *Service[E]) Policy() *lifecycle.Policy[E] {
	return s.policy
}

// Create places a new entity. Customers always place entities for themselves;
// administrators must name the customer.
func (s *Service[E]) Create(ctx context.Context, actor model.Actor, e E) (E, error) {
	var zero E
	core := e.Core()
	if !actor.IsAdmin() {
		core.CustomerID = actor.UserID
	}
	if core.CustomerID == uuid.Nil {
		return zero, apperrors.Validation(apperrors.FieldError{Field: "customer_id", Message: "is required"})
	}
	core.ID = uuid.Nil
	core.Number = ""

	change, err := s.policy.Create(e, s.now())
	if err != nil {
		s.reject(err)
		return zero, err
	}
	change.ActorID = &actor.UserID

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUniqueNumber(ctx, e); err != nil {
			return err
		}
		change.Number = core.Number
		if err := s.store.Insert(ctx, e); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.policy.Noun, err)
		}
		return s.record(ctx, change)
	})
	if err != nil {
		return zero, err
	}

	s.committed(ctx, change)
	return e, nil
}

func (s *Service[E]) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (E, error) {
	var zero E
	e, err := s.load(ctx, s.store.Get, id)
	if err != nil {
		return zero, err
	}
	if err := s.authorize(actor, e); err != nil {
		return zero, err
	}
	return e, nil
}

// ListForUser lists entities where the actor is the customer or the provider.
func (s *Service[E]) ListForUser(ctx context.Context, actor model.Actor, p model.Pagination) ([]E, error) {
	list, err := s.store.ListByParty(ctx, actor.UserID, p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", s.policy.Noun, err)
	}
	return list, nil
}

// List is the administrative listing across all users.
func (s *Service[E]) List(ctx context.Context, actor model.Actor, filter repository.OrderFilter) ([]E, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("administrator access required")
	}
	if filter.Status != "" && !s.policy.Known(filter.Status) {
		return nil, apperrors.Validation(apperrors.FieldError{Field: "status", Message: "unknown status"})
	}
	filter.Pagination = filter.Pagination.Normalize()
	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", s.policy.Noun, err)
	}
	return list, nil
}

// Amend applies mutate to the stored entity. Status changes go through Transition,
// so any status set by mutate is ignored. Administrators may change locked fields.
func (s *Service[E]) Amend(ctx context.Context, actor model.Actor, id uuid.UUID, mutate func(E) error) (E, error) {
	return s.update(ctx, actor, id, lifecycle.Options{Override: actor.IsAdmin()}, func(next E) error {
		status := next.Core().Status
		if err := mutate(next); err != nil {
			return err
		}
		next.Core().Status = status
		return nil
	})
}

// Transition moves the entity to status to. reason is kept only when to is a
// cancellation status.
func (s *Service[E]) Transition(ctx context.Context, actor model.Actor, id uuid.UUID, to model.Status, reason string) (E, error) {
	var zero E
	if !s.policy.Known(to) {
		err := apperrors.Validation(apperrors.FieldError{Field: "status", Message: fmt.Sprintf("unknown %s status %q", s.policy.Noun, to)})
		s.reject(err)
		return zero, err
	}
	return s.update(ctx, actor, id, lifecycle.Options{}, func(next E) error {
		next.Core().Status = to
		if reason != "" && s.policy.IsCancellation(to) {
			next.Core().CancellationReason = reason
		}
		return nil
	})
}

// Activities returns the entity's timeline, oldest first.
func (s *Service[E]) Activities(ctx context.Context, actor model.Actor, id uuid.UUID) ([]*model.Activity, error) {
	e, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	list, err := s.activities.ListByEntity(ctx, model.Ref{Kind: s.policy.Kind, ID: e.Core().ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return list, nil
}

func (s *Service[E]) update(ctx context.Context, actor model.Actor, id uuid.UUID, opts lifecycle.Options, apply func(E) error) (E, error) {
	var (
		zero   E
		result E
		change *lifecycle.Change
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		prev, err := s.load(ctx, s.store.GetForUpdate, id)
		if err != nil {
			return err
		}
		if err := s.authorize(actor, prev); err != nil {
			return err
		}

		// A second read gives the caller a copy to edit while prev stays as persisted.
		next, err := s.load(ctx, s.store.Get, id)
		if err != nil {
			return err
		}
		if err := apply(next); err != nil {
			return err
		}
		if to := next.Core().Status; to != prev.Core().Status && !s.policy.MayEnter(actor, prev, to) {
			err := apperrors.Forbidden(fmt.Sprintf("not allowed to move this %s to %s", s.policy.Noun, to))
			s.reject(err)
			return err
		}

		change, err = s.policy.Update(prev, next, opts, s.now())
		if err != nil {
			s.reject(err)
			return err
		}
		change.ActorID = &actor.UserID

		if err := s.store.Update(ctx, next); err != nil {
			return fmt.Errorf("failed to update %s: %w", s.policy.Noun, err)
		}
		if err := s.record(ctx, change); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return zero, err
	}

	s.committed(ctx, change)
	return result, nil
}

func (s *Service[E]) load(ctx context.Context, get func(context.Context, uuid.UUID) (E, error), id uuid.UUID) (E, error) {
	var zero E
	e, err := get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return zero, apperrors.NotFound(s.policy.Noun, err)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s: %w", s.policy.Noun, err)
	}
	return e, nil
}

// authorize hides entities from users who are neither party to them nor administrators.
func (s *Service[E]) authorize(actor model.Actor, e E) error {
	if actor.IsAdmin() {
		return nil
	}
	c := e.Core()
	if c.CustomerID == actor.UserID {
		return nil
	}
	if c.ProviderID != nil && *c.ProviderID == actor.UserID {
		return nil
	}
	return apperrors.NotFound(s.policy.Noun, nil)
}

func (s *Service[E]) ensureUniqueNumber(ctx context.Context, e E) error {
	core := e.Core()
	for i := 0; i < maxNumberAttempts; i++ {
		exists, err := s.store.NumberExists(ctx, core.Number)
		if err != nil {
			return fmt.Errorf("failed to check %s number: %w", s.policy.Noun, err)
		}
		if !exists {
			return nil
		}
		core.Number = lifecycle.NewNumber(s.policy.Prefix)
	}
	return fmt.Errorf("failed to generate a unique %s number after %d attempts", s.policy.Noun, maxNumberAttempts)
}

// record writes the timeline entries and the outbox event for change.
func (s *Service[E]) record(ctx context.Context, change *lifecycle.Change) error {
	for _, a := range s.timeline(change) {
		if err := s.activities.Create(ctx, a); err != nil {
			return fmt.Errorf("failed to record activity: %w", err)
		}
	}

	eventType := outboxEventType(change)
	if eventType == "" {
		return nil
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: change.At,
		UpdatedAt: change.At,
	}); err != nil {
		return fmt.Errorf("failed to write outbox event: %w", err)
	}
	return nil
}

func (s *Service[E]) timeline(change *lifecycle.Change) []*model.Activity {
	noun := capitalize(s.policy.Noun)
	entry := func(t model.ActivityType, title, message string, meta model.JSONMap) *model.Activity {
		return &model.Activity{
			ID:           uuid.New(),
			EntityKind:   change.Kind,
			EntityID:     change.EntityID,
			ActorID:      change.ActorID,
			ActivityType: t,
			Title:        title,
			Message:      message,
			Metadata:     meta,
			CreatedAt:    change.At,
		}
	}

	var out []*model.Activity
	if change.Created {
		out = append(out, entry(model.ActivityPlaced, noun+" placed",
			fmt.Sprintf("Your %s has been placed successfully.", s.policy.Noun), nil))
		if change.Attachment {
			out = append(out, entry(model.ActivityPrescriptionUploaded, "Prescription uploaded",
				"Prescription image uploaded with the order.", nil))
		}
	}
	if change.StatusChanged() {
		display := statusDisplay(change.To)
		out = append(out, entry(model.ActivityStatus, noun+" "+strings.ToLower(display),
			fmt.Sprintf("%s status updated to %s.", noun, display),
			model.JSONMap{"from": string(change.From), "to": string(change.To)}))
	}
	if change.Verified {
		out = append(out, entry(model.ActivityPrescriptionVerified, "Prescription verified",
			"Prescription has been verified by the pharmacist.", nil))
	}
	if len(change.Amended) > 0 {
		out = append(out, entry(model.ActivityAmended, noun+" amended",
			fmt.Sprintf("An administrator changed: %s.", strings.Join(change.Amended, ", ")),
			model.JSONMap{"fields": change.Amended}))
	}
	return out
}

func outboxEventType(change *lifecycle.Change) string {
	switch {
	case change.Created:
		return model.EventEntityCreated
	case change.StatusChanged():
		return model.EventEntityStatusChanged
	case change.Verified || len(change.Amended) > 0:
		return model.EventEntityAmended
	}
	return ""
}

// committed runs after the transaction. Nothing here can fail the write.
func (s *Service[E]) committed(ctx context.Context, change *lifecycle.Change) {
	if s.metrics != nil && (change.Created || change.StatusChanged()) {
		from := string(change.From)
		if change.Created {
			from = "none"
		}
		s.metrics.LifecycleTransitions.WithLabelValues(string(change.Kind), from, string(change.To)).Inc()
	}

	s.log.Info("entity saved",
		"entity_id", change.EntityID.String(),
		"number", change.Number,
		"from", string(change.From),
		"to", string(change.To),
	)

	if s.notifier != nil {
		s.notify(context.WithoutCancel(ctx), change)
	}
}

func (s *Service[E]) notify(ctx context.Context, change *lifecycle.Change) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(fmt.Errorf("panic: %v", r), "notifier panicked", "entity_id", change.EntityID.String())
		}
	}()
	s.notifier.Notify(ctx, change)
}

func (s *Service[E]) reject(err error) {
	if s.metrics == nil {
		return
	}
	reason := "other"
	switch {
	case errors.Is(err, apperrors.ErrLockedFieldMutation):
		reason = "locked_field"
	case errors.Is(err, apperrors.ErrInvalidStatusTransition):
		reason = "invalid_transition"
	case errors.Is(err, apperrors.ErrValidationFailed):
		reason = "validation"
	case errors.Is(err, apperrors.ErrAccessDenied):
		reason = "forbidden"
	}
	s.metrics.LifecycleRejections.WithLabelValues(string(s.policy.Kind), reason).Inc()
}

// statusDisplay renders a status for people: out_for_delivery -> Out for delivery.
func statusDisplay(st model.Status) string {
	return capitalize(strings.ReplaceAll(string(st), "_", " "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
