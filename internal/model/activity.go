package model

import (
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityPlaced               ActivityType = "placed"
	ActivityStatus               ActivityType = "status"
	ActivityPrescriptionUploaded ActivityType = "prescription_uploaded"
	ActivityPrescriptionVerified ActivityType = "prescription_verified"
	ActivityAmended              ActivityType = "amended"
)

// Activity is one entry in an order-like entity's timeline.
type Activity struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	EntityKind   Kind         `json:"entity_kind" db:"entity_kind"`
	EntityID     uuid.UUID    `json:"entity_id" db:"entity_id"`
	ActorID      *uuid.UUID   `json:"actor_id,omitempty" db:"actor_id"`
	ActivityType ActivityType `json:"activity_type" db:"activity_type"`
	Title        string       `json:"title" db:"title"`
	Message      string       `json:"message" db:"message"`
	Metadata     JSONMap      `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
