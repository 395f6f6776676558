package model

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// DeliveryLog records one outbound email or SMS attempt.
type DeliveryLog struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	Channel          Channel          `json:"channel" db:"channel"`
	UserID           *uuid.UUID       `json:"user_id,omitempty" db:"user_id"`
	Recipient        string           `json:"recipient" db:"recipient"`
	Subject          string           `json:"subject,omitempty" db:"subject"`
	Message          string           `json:"message" db:"message"`
	NotificationType NotificationType `json:"notification_type" db:"notification_type"`
	Status           DeliveryStatus   `json:"status" db:"status"`
	ErrorMessage     string           `json:"error_message,omitempty" db:"error_message"`
	SentAt           *time.Time       `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}
