package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationPreference holds a user's channel toggles.
type NotificationPreference struct {
	UserID uuid.UUID `json:"user_id" db:"user_id"`

	EnableInApp bool `json:"enable_in_app" db:"enable_in_app"`

	EnableEmail       bool `json:"enable_email" db:"enable_email"`
	AppointmentEmails bool `json:"appointment_emails" db:"appointment_emails"`
	OrderEmails       bool `json:"order_emails" db:"order_emails"`
	PaymentEmails     bool `json:"payment_emails" db:"payment_emails"`
	MarketingEmails   bool `json:"marketing_emails" db:"marketing_emails"`

	EnableSMS      bool `json:"enable_sms" db:"enable_sms"`
	AppointmentSMS bool `json:"appointment_sms" db:"appointment_sms"`
	OrderSMS       bool `json:"order_sms" db:"order_sms"`
	PaymentSMS     bool `json:"payment_sms" db:"payment_sms"`

	EnablePush bool `json:"enable_push" db:"enable_push"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences enables everything except marketing email.
func DefaultPreferences(userID uuid.UUID, now time.Time) *NotificationPreference {
	return &NotificationPreference{
		UserID:            userID,
		EnableInApp:       true,
		EnableEmail:       true,
		AppointmentEmails: true,
		OrderEmails:       true,
		PaymentEmails:     true,
		MarketingEmails:   false,
		EnableSMS:         true,
		AppointmentSMS:    true,
		OrderSMS:          true,
		PaymentSMS:        true,
		EnablePush:        true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Allows reports whether a channel may carry a notification of the given category.
// The master toggle always applies; category toggles refine email and SMS.
func (p *NotificationPreference) Allows(channel Channel, category Category) bool {
	switch channel {
	case ChannelInApp:
		return p.EnableInApp
	case ChannelPush:
		return p.EnablePush
	case ChannelEmail:
		if !p.EnableEmail {
			return false
		}
		switch category {
		case CategoryAppointment:
			return p.AppointmentEmails
		case CategoryOrder:
			return p.OrderEmails
		case CategoryPayment:
			return p.PaymentEmails
		case CategoryMarketing:
			return p.MarketingEmails
		}
		return true
	case ChannelSMS:
		if !p.EnableSMS {
			return false
		}
		switch category {
		case CategoryAppointment:
			return p.AppointmentSMS
		case CategoryOrder:
			return p.OrderSMS
		case CategoryPayment:
			return p.PaymentSMS
		case CategoryMarketing:
			return false
		}
		return true
	}
	return false
}
