package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationAppointmentBooked    NotificationType = "appointment_booked"
	NotificationAppointmentConfirmed NotificationType = "appointment_confirmed"
	NotificationAppointmentCancelled NotificationType = "appointment_cancelled"
	NotificationAppointmentReminder  NotificationType = "appointment_reminder"
	NotificationAppointmentCompleted NotificationType = "appointment_completed"
	NotificationPaymentReceived      NotificationType = "payment_received"
	NotificationPaymentPending       NotificationType = "payment_pending"
	NotificationOrderPlaced          NotificationType = "order_placed"
	NotificationOrderConfirmed       NotificationType = "order_confirmed"
	NotificationOrderShipped         NotificationType = "order_shipped"
	NotificationOrderDelivered       NotificationType = "order_delivered"
	NotificationOrderCancelled       NotificationType = "order_cancelled"
	NotificationPrescriptionVerified NotificationType = "prescription_verified"
	NotificationRentalStarted        NotificationType = "rental_started"
	NotificationRentalDue            NotificationType = "rental_due"
	NotificationRentalOverdue        NotificationType = "rental_overdue"
	NotificationRentalReturned       NotificationType = "rental_returned"
	NotificationSystemAlert          NotificationType = "system_alert"
	NotificationWelcome              NotificationType = "welcome"
)

// Category groups notification types for per-category channel preferences.
type Category string

const (
	CategoryAppointment Category = "appointment"
	CategoryOrder       Category = "order"
	CategoryPayment     Category = "payment"
	CategoryMarketing   Category = "marketing"
	CategorySystem      Category = "system"
)

func (t NotificationType) Category() Category {
	switch {
	case strings.HasPrefix(string(t), "appointment_"):
		return CategoryAppointment
	case strings.HasPrefix(string(t), "payment_"):
		return CategoryPayment
	case strings.HasPrefix(string(t), "order_"),
		strings.HasPrefix(string(t), "rental_"),
		t == NotificationPrescriptionVerified:
		return CategoryOrder
	default:
		return CategorySystem
	}
}

// DefaultActionText labels the action link when the caller does not.
const DefaultActionText = "View Details"

// Notification is an in-app inbox entry.
type Notification struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	UserID           uuid.UUID        `json:"user_id" db:"user_id"`
	NotificationType NotificationType `json:"notification_type" db:"notification_type"`
	Title            string           `json:"title" db:"title"`
	Message          string           `json:"message" db:"message"`
	RefKind          *Kind            `json:"ref_kind,omitempty" db:"ref_kind"`
	RefID            *uuid.UUID       `json:"ref_id,omitempty" db:"ref_id"`
	ActionURL        string           `json:"action_url,omitempty" db:"action_url"`
	ActionText       string           `json:"action_text" db:"action_text"`
	IsRead           bool             `json:"is_read" db:"is_read"`
	ReadAt           *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// SetRef attaches a typed entity reference.
func (n *Notification) SetRef(ref *Ref) {
	if ref == nil {
		n.RefKind, n.RefID = nil, nil
		return
	}
	kind, id := ref.Kind, ref.ID
	n.RefKind, n.RefID = &kind, &id
}

// Ref returns the typed entity reference, if any.
func (n *Notification) Ref() *Ref {
	if n.RefKind == nil || n.RefID == nil {
		return nil
	}
	return &Ref{Kind: *n.RefKind, ID: *n.RefID}
}

// MarkRead flags the notification read; read_at is set only on the first call.
func (n *Notification) MarkRead(now time.Time) bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	n.ReadAt = &now
	return true
}

// InboxFilter narrows an inbox listing.
type InboxFilter string

const (
	InboxAll    InboxFilter = "all"
	InboxUnread InboxFilter = "unread"
	InboxRead   InboxFilter = "read"
)

// ParseInboxFilter falls back to all for unknown values.
func ParseInboxFilter(s string) InboxFilter {
	switch InboxFilter(s) {
	case InboxUnread, InboxRead:
		return InboxFilter(s)
	default:
		return InboxAll
	}
}
