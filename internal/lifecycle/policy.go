// Package lifecycle guards the status lifecycle of order-like entities: the
// allowed transitions, the fields that freeze once an entity leaves its initial
// status, transition timestamps, derived totals and reference numbers.
package lifecycle

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/uhcare-api/internal/model"
	apperrors "github.com/jwalitptl/uhcare-api/pkg/errors"
)

// Field is a named accessor for one locked field of E.
type Field[E any] struct {
	Name string
	Get  func(E) any
}

// Stamp returns the address of a transition timestamp on E.
type Stamp[E any] func(E) **time.Time

// Options tune a single Update.
type Options struct {
	// Override allows locked fields to change after the initial status.
	// Only administrator-originated writes set it.
	Override bool
}

// Policy configures the lifecycle of one entity kind.
type Policy[E model.Entity] struct {
	Kind        model.Kind
	Prefix      string
	Noun        string
	Initial     model.Status
	Statuses    []model.Status
	Transitions map[model.Status][]model.Status
	// Cancellations are the terminal statuses that end an entity early.
	Cancellations []model.Status
	Stamps      map[model.Status]Stamp[E]
	Locked      []Field[E]
	// Actors lists, per target status, which party of the entity may move it
	// there. Administrators may enter any status.
	Actors map[model.Status][]model.Role

	// Totals recomputes derived monetary fields in place.
	Totals func(E)
	// Verified reports the entity's verification flag, if it has one.
	Verified func(E) bool
	// Attachment reports whether a supporting document was supplied.
	Attachment func(E) bool
	Validate   func(E) error
}

// Change describes what a persist did to an entity.
type Change struct {
	Kind       model.Kind   `json:"kind"`
	EntityID   uuid.UUID    `json:"entity_id"`
	Number     string       `json:"number"`
	CustomerID uuid.UUID    `json:"customer_id"`
	ProviderID *uuid.UUID   `json:"provider_id,omitempty"`
	ActorID    *uuid.UUID   `json:"actor_id,omitempty"`
	Created    bool         `json:"created"`
	From       model.Status `json:"from,omitempty"`
	To         model.Status `json:"to"`
	Verified   bool         `json:"verified"`
	Attachment bool         `json:"attachment"`
	Override   bool         `json:"override"`
	Amended    []string     `json:"amended,omitempty"`
	At         time.Time    `json:"at"`
}

func (c *Change) Ref() model.Ref {
	return model.Ref{Kind: c.Kind, ID: c.EntityID}
}

func (c *Change) StatusChanged() bool {
	return !c.Created && c.From != c.To
}

// Create prepares a new entity for its first persist.
func (p *Policy[E]) Create(next E, now time.Time) (*Change, error) {
	c := next.Core()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Status = p.Initial
	c.CreatedAt = now
	c.UpdatedAt = now
	c.ConfirmedAt, c.CompletedAt, c.CancelledAt = nil, nil, nil
	for _, stamp := range p.Stamps {
		*stamp(next) = nil
	}
	if c.Number == "" {
		c.Number = NewNumber(p.Prefix)
	}

	if p.Validate != nil {
		if err := p.Validate(next); err != nil {
			return nil, err
		}
	}
	if p.Totals != nil {
		p.Totals(next)
	}

	change := p.change(next, now)
	change.Created = true
	change.To = c.Status
	if p.Attachment != nil {
		change.Attachment = p.Attachment(next)
	}
	return change, nil
}

// Update checks next against the persisted prev and prepares next for persist.
// Nothing in next may be written when an error is returned.
func (p *Policy[E]) Update(prev, next E, opts Options, now time.Time) (*Change, error) {
	pc, nc := prev.Core(), next.Core()

	nc.ID = pc.ID
	nc.Number = pc.Number
	nc.CustomerID = pc.CustomerID
	nc.CreatedAt = pc.CreatedAt
	nc.ConfirmedAt, nc.CompletedAt, nc.CancelledAt = pc.ConfirmedAt, pc.CompletedAt, pc.CancelledAt
	for _, stamp := range p.Stamps {
		*stamp(next) = *stamp(prev)
	}

	if nc.Status == "" {
		nc.Status = pc.Status
	}
	if nc.Status != pc.Status && !p.Allows(pc.Status, nc.Status) {
		return nil, apperrors.InvalidStatusTransition(p.Noun, string(pc.Status), string(nc.Status))
	}

	changed := p.changedLocked(prev, next)
	if pc.Status != p.Initial && len(changed) > 0 && !opts.Override {
		return nil, apperrors.LockedFieldMutation(p.Noun, changed)
	}

	if p.Validate != nil {
		if err := p.Validate(next); err != nil {
			return nil, err
		}
	}

	if nc.Status != pc.Status {
		if stamp, ok := p.Stamps[nc.Status]; ok {
			if ts := stamp(next); *ts == nil {
				t := now
				*ts = &t
			}
		}
	}
	if p.Totals != nil {
		p.Totals(next)
	}
	nc.UpdatedAt = now

	change := p.change(next, now)
	change.From = pc.Status
	change.To = nc.Status
	if p.Verified != nil {
		change.Verified = !p.Verified(prev) && p.Verified(next)
	}
	if pc.Status != p.Initial && len(changed) > 0 {
		change.Override = true
		change.Amended = changed
	}
	return change, nil
}

// Allows reports whether from -> to is a listed edge.
func (p *Policy[E]) Allows(from, to model.Status) bool {
	for _, s := range p.Transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MayEnter reports whether actor may move e into status to. RoleCustomer
// matches the entity's customer and RoleProvider its assigned provider.
func (p *Policy[E]) MayEnter(actor model.Actor, e E, to model.Status) bool {
	if actor.IsAdmin() {
		return true
	}
	c := e.Core()
	for _, role := range p.Actors[to] {
		switch role {
		case model.RoleCustomer:
			if c.CustomerID == actor.UserID {
				return true
			}
		case model.RoleProvider:
			if c.ProviderID != nil && *c.ProviderID == actor.UserID {
				return true
			}
		}
	}
	return false
}

// IsCancellation reports whether to ends the entity early.
func (p *Policy[E]) IsCancellation(to model.Status) bool {
	for _, s := range p.Cancellations {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s permits no further transitions.
func (p *Policy[E]) IsTerminal(s model.Status) bool {
	return len(p.Transitions[s]) == 0
}

// Known reports whether s belongs to this entity's status set.
func (p *Policy[E]) Known(s model.Status) bool {
	for _, k := range p.Statuses {
		if k == s {
			return true
		}
	}
	return false
}

func (p *Policy[E]) change(e E, now time.Time) *Change {
	c := e.Core()
	return &Change{
		Kind:       p.Kind,
		EntityID:   c.ID,
		Number:     c.Number,
		CustomerID: c.CustomerID,
		ProviderID: c.ProviderID,
		At:         now,
	}
}

func (p *Policy[E]) changedLocked(prev, next E) []string {
	var changed []string
	for _, f := range p.Locked {
		if !equal(f.Get(prev), f.Get(next)) {
			changed = append(changed, f.Name)
		}
	}
	return changed
}

func equal(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case decimal.Decimal:
		bv, ok := b.(decimal.Decimal)
		return ok && av.Equal(bv)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// NewNumber returns prefix followed by 8 uppercase hex characters.
func NewNumber(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(hex[:8])
}
