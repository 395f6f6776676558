package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RentalStatusPending   Status = "pending"
	RentalStatusConfirmed Status = "confirmed"
	RentalStatusActive    Status = "active"
	RentalStatusReturned  Status = "returned"
	RentalStatusOverdue   Status = "overdue"
	RentalStatusCancelled Status = "cancelled"
)

type EquipmentRental struct {
	OrderCore
	EquipmentID          uuid.UUID       `json:"equipment_id" db:"equipment_id" validate:"required"`
	RentalPeriod         string          `json:"rental_period" db:"rental_period" validate:"oneof=daily weekly monthly"`
	Quantity             int             `json:"quantity" db:"quantity" validate:"gte=1"`
	StartDate            time.Time       `json:"start_date" db:"start_date" validate:"required"`
	EndDate              time.Time       `json:"end_date" db:"end_date" validate:"required"`
	DeliveryAddress      string          `json:"delivery_address" db:"delivery_address" validate:"required"`
	DeliveryPhone        string          `json:"delivery_phone" db:"delivery_phone" validate:"required,max=15"`
	DeliveryInstructions string          `json:"delivery_instructions" db:"delivery_instructions"`
	CustomerNotes        string          `json:"customer_notes" db:"customer_notes"`
	RentalPrice          decimal.Decimal `json:"rental_price" db:"rental_price" validate:"gte=0"`
	SecurityDeposit      decimal.Decimal `json:"security_deposit" db:"security_deposit" validate:"gte=0"`
	DeliveryCharge       decimal.Decimal `json:"delivery_charge" db:"delivery_charge" validate:"gte=0"`
	LateFee              decimal.Decimal `json:"late_fee" db:"late_fee" validate:"gte=0"`
	DamageCharge         decimal.Decimal `json:"damage_charge" db:"damage_charge" validate:"gte=0"`
	TotalAmount          decimal.Decimal `json:"total_amount" db:"total_amount"`
	ConditionAtDelivery  string          `json:"condition_at_delivery,omitempty" db:"condition_at_delivery"`
	ConditionAtReturn    string          `json:"condition_at_return,omitempty" db:"condition_at_return"`
	DamageNotes          string          `json:"damage_notes,omitempty" db:"damage_notes"`
}

// RentalDays is the inclusive length of the rental window.
func (r *EquipmentRental) RentalDays() int {
	days := int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

const (
	PurchaseStatusPending    Status = "pending"
	PurchaseStatusConfirmed  Status = "confirmed"
	PurchaseStatusProcessing Status = "processing"
	PurchaseStatusShipped    Status = "shipped"
	PurchaseStatusDelivered  Status = "delivered"
	PurchaseStatusCancelled  Status = "cancelled"
)

type EquipmentPurchase struct {
	OrderCore
	EquipmentID          uuid.UUID       `json:"equipment_id" db:"equipment_id" validate:"required"`
	Quantity             int             `json:"quantity" db:"quantity" validate:"gte=1"`
	DeliveryAddress      string          `json:"delivery_address" db:"delivery_address" validate:"required"`
	DeliveryPhone        string          `json:"delivery_phone" db:"delivery_phone" validate:"required,max=15"`
	DeliveryInstructions string          `json:"delivery_instructions" db:"delivery_instructions"`
	CustomerNotes        string          `json:"customer_notes" db:"customer_notes"`
	UnitPrice            decimal.Decimal `json:"unit_price" db:"unit_price" validate:"gte=0"`
	Subtotal             decimal.Decimal `json:"subtotal" db:"subtotal"`
	DeliveryCharge       decimal.Decimal `json:"delivery_charge" db:"delivery_charge" validate:"gte=0"`
	Discount             decimal.Decimal `json:"discount" db:"discount" validate:"gte=0"`
	TotalAmount          decimal.Decimal `json:"total_amount" db:"total_amount"`
	DeliveredAt          *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`
	WarrantyMonths       int             `json:"warranty_months" db:"warranty_months" validate:"gte=0"`
	WarrantyExpiresAt    *time.Time      `json:"warranty_expires_at,omitempty" db:"warranty_expires_at"`
}
