package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies an order-like entity type.
type Kind string

const (
	KindAppointment         Kind = "appointment"
	KindPersonalAppointment Kind = "personal_appointment"
	KindPharmacyOrder       Kind = "pharmacy_order"
	KindEquipmentRental     Kind = "equipment_rental"
	KindEquipmentPurchase   Kind = "equipment_purchase"
)

// Ref is a typed reference to an order-like entity.
type Ref struct {
	Kind Kind      `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// Status is an entity-specific lifecycle status.
type Status string

// StatusPending is the initial status of every order-like entity.
const StatusPending Status = "pending"

// OrderCore contains the lifecycle fields shared by every order-like entity.
type OrderCore struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Number             string     `json:"number" db:"number"`
	CustomerID         uuid.UUID  `json:"customer_id" db:"customer_id"`
	ProviderID         *uuid.UUID `json:"provider_id,omitempty" db:"provider_id"`
	Status             Status     `json:"status" db:"status"`
	CancellationReason string     `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

func (c *OrderCore) Core() *OrderCore {
	return c
}

// Entity is implemented by every order-like entity through its embedded OrderCore.
type Entity interface {
	Core() *OrderCore
}

// Pagination represents common pagination parameters
type Pagination struct {
	Limit  int `json:"limit" form:"limit"`
	Offset int `json:"offset" form:"offset"`
}

// Normalize clamps the window to sane defaults.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
	return json.Unmarshal(data, m)
}
