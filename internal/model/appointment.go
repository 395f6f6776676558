package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AppointmentStatusPending    Status = "pending"
	AppointmentStatusConfirmed  Status = "confirmed"
	AppointmentStatusInProgress Status = "in_progress"
	AppointmentStatusCompleted  Status = "completed"
	AppointmentStatusCancelled  Status = "cancelled"
	AppointmentStatusRejected   Status = "rejected"
)

// Appointment is a booking of a provider's catalogue service at the patient's address.
type Appointment struct {
	OrderCore
	ServiceID         uuid.UUID       `json:"service_id" db:"service_id" validate:"required"`
	AppointmentDate   time.Time       `json:"appointment_date" db:"appointment_date" validate:"required"`
	AppointmentTime   string          `json:"appointment_time" db:"appointment_time" validate:"required"`
	DurationHours     int             `json:"duration_hours" db:"duration_hours" validate:"gte=1"`
	ServiceAddress    string          `json:"service_address" db:"service_address" validate:"required"`
	PatientNotes      string          `json:"patient_notes" db:"patient_notes"`
	ProviderNotes     string          `json:"provider_notes" db:"provider_notes"`
	ServicePrice      decimal.Decimal `json:"service_price" db:"service_price" validate:"gte=0"`
	FinalPrice        decimal.Decimal `json:"final_price" db:"final_price" validate:"gte=0"`
	AdditionalCharges decimal.Decimal `json:"additional_charges" db:"additional_charges" validate:"gte=0"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
}

const (
	PersonalStatusPending             Status = "pending"
	PersonalStatusConfirmed           Status = "confirmed"
	PersonalStatusInProgress          Status = "in_progress"
	PersonalStatusCompleted           Status = "completed"
	PersonalStatusCancelledByPatient  Status = "cancelled_by_patient"
	PersonalStatusCancelledByProvider Status = "cancelled_by_provider"
	PersonalStatusNoShow              Status = "no_show"
)

// PersonalAppointment is a consultation with a provider at home, in clinic or by video.
type PersonalAppointment struct {
	OrderCore
	AppointmentType   string          `json:"appointment_type" db:"appointment_type" validate:"required"`
	AppointmentDate   time.Time       `json:"appointment_date" db:"appointment_date" validate:"required"`
	AppointmentTime   string          `json:"appointment_time" db:"appointment_time" validate:"required"`
	DurationMinutes   int             `json:"duration_minutes" db:"duration_minutes" validate:"gte=1"`
	LocationType      string          `json:"location_type" db:"location_type" validate:"oneof=home clinic video"`
	LocationAddress   string          `json:"location_address" db:"location_address"`
	VideoLink         string          `json:"video_link,omitempty" db:"video_link"`
	Reason            string          `json:"reason" db:"reason" validate:"required"`
	Symptoms          string          `json:"symptoms" db:"symptoms"`
	PatientNotes      string          `json:"patient_notes" db:"patient_notes"`
	ProviderNotes     string          `json:"provider_notes" db:"provider_notes"`
	Diagnosis         string          `json:"diagnosis,omitempty" db:"diagnosis"`
	Prescription      string          `json:"prescription,omitempty" db:"prescription"`
	ConsultationFee   decimal.Decimal `json:"consultation_fee" db:"consultation_fee" validate:"gte=0"`
	AdditionalCharges decimal.Decimal `json:"additional_charges" db:"additional_charges" validate:"gte=0"`
	TotalFee          decimal.Decimal `json:"total_fee" db:"total_fee"`
}
