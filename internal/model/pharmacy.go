package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PharmacyStatusPending        Status = "pending"
	PharmacyStatusConfirmed      Status = "confirmed"
	PharmacyStatusProcessing     Status = "processing"
	PharmacyStatusOutForDelivery Status = "out_for_delivery"
	PharmacyStatusDelivered      Status = "delivered"
	PharmacyStatusCancelled      Status = "cancelled"
)

// DefaultDeliveryCharge applies to pharmacy orders that do not name one.
var DefaultDeliveryCharge = decimal.RequireFromString("100.00")

type PharmacyOrder struct {
	OrderCore
	DeliveryAddress      string              `json:"delivery_address" db:"delivery_address" validate:"required"`
	DeliveryPhone        string              `json:"delivery_phone" db:"delivery_phone" validate:"required,max=15"`
	DeliveryInstructions string              `json:"delivery_instructions" db:"delivery_instructions"`
	PrescriptionImage    string              `json:"prescription_image,omitempty" db:"prescription_image" validate:"omitempty,url"`
	PrescriptionVerified bool                `json:"prescription_verified" db:"prescription_verified"`
	Subtotal             decimal.Decimal     `json:"subtotal" db:"subtotal" validate:"gte=0"`
	DeliveryCharge       decimal.Decimal     `json:"delivery_charge" db:"delivery_charge" validate:"gte=0"`
	Discount             decimal.Decimal     `json:"discount" db:"discount" validate:"gte=0"`
	TotalAmount          decimal.Decimal     `json:"total_amount" db:"total_amount"`
	DeliveryPerson       string              `json:"delivery_person,omitempty" db:"delivery_person"`
	DeliveredAt          *time.Time          `json:"delivered_at,omitempty" db:"delivered_at"`
	CustomerNotes        string              `json:"customer_notes" db:"customer_notes"`
	InternalNotes        string              `json:"internal_notes,omitempty" db:"internal_notes"`
	Items                []PharmacyOrderItem `json:"items,omitempty" db:"-" validate:"dive"`
}

type PharmacyOrderItem struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	OrderID    uuid.UUID       `json:"order_id" db:"order_id"`
	MedicineID uuid.UUID       `json:"medicine_id" db:"medicine_id" validate:"required"`
	Quantity   int             `json:"quantity" db:"quantity" validate:"gte=1"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price" validate:"gte=0"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
}
