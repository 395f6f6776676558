package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
)

// UpdateRequest changes only the toggles that are set.
type UpdateRequest struct {
	EnableInApp       *bool `json:"enable_in_app"`
	EnableEmail       *bool `json:"enable_email"`
	AppointmentEmails *bool `json:"appointment_emails"`
	OrderEmails       *bool `json:"order_emails"`
	PaymentEmails     *bool `json:"payment_emails"`
	MarketingEmails   *bool `json:"marketing_emails"`
	EnableSMS         *bool `json:"enable_sms"`
	AppointmentSMS    *bool `json:"appointment_sms"`
	OrderSMS          *bool `json:"order_sms"`
	PaymentSMS        *bool `json:"payment_sms"`
	EnablePush        *bool `json:"enable_push"`
}

type Service interface {
	// Get returns the user's preferences, creating the defaults on first use.
	Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
	Update(ctx context.Context, userID uuid.UUID, req UpdateRequest) (*model.NotificationPreference, error)
}

type service struct {
	repo  repository.PreferenceRepository
	cache *cache.Cache
	now   func() time.Time
}

func NewService(repo repository.PreferenceRepository, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &service{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
		now:   time.Now,
	}
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	if cached, ok := s.cache.Get(userID.String()); ok {
		p := *cached.(*model.NotificationPreference)
		return &p, nil
	}

	prefs, err := s.repo.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		prefs, err = s.repo.Create(ctx, model.DefaultPreferences(userID, s.now()))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification preferences: %w", err)
	}

	s.store(prefs)
	p := *prefs
	return &p, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, req UpdateRequest) (*model.NotificationPreference, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	apply(&prefs.EnableInApp, req.EnableInApp)
	apply(&prefs.EnableEmail, req.EnableEmail)
	apply(&prefs.AppointmentEmails, req.AppointmentEmails)
	apply(&prefs.OrderEmails, req.OrderEmails)
	apply(&prefs.PaymentEmails, req.PaymentEmails)
	apply(&prefs.MarketingEmails, req.MarketingEmails)
	apply(&prefs.EnableSMS, req.EnableSMS)
	apply(&prefs.AppointmentSMS, req.AppointmentSMS)
	apply(&prefs.OrderSMS, req.OrderSMS)
	apply(&prefs.PaymentSMS, req.PaymentSMS)
	apply(&prefs.EnablePush, req.EnablePush)
	prefs.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, prefs); err != nil {
		s.cache.Delete(userID.String())
		return nil, fmt.Errorf("failed to update notification preferences: %w", err)
	}

	s.store(prefs)
	p := *prefs
	return &p, nil
}

func (s *service) store(p *model.NotificationPreference) {
	c := *p
	s.cache.SetDefault(p.UserID.String(), &c)
}

func apply(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
