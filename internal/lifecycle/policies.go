package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/uhcare-api/internal/model"
	apperrors "github.com/jwalitptl/uhcare-api/pkg/errors"
	"github.com/jwalitptl/uhcare-api/pkg/validator"
)

func confirmedAt[E model.Entity](e E) **time.Time { return &e.Core().ConfirmedAt }
func completedAt[E model.Entity](e E) **time.Time { return &e.Core().CompletedAt }
func cancelledAt[E model.Entity](e E) **time.Time { return &e.Core().CancelledAt }

var (
	customer         = []model.Role{model.RoleCustomer}
	provider         = []model.Role{model.RoleProvider}
	customerProvider = []model.Role{model.RoleCustomer, model.RoleProvider}
)

func providerID[E model.Entity](e E) any { return e.Core().ProviderID }

func validate[E any](e E) error {
	return validator.Default().Validate(e)
}

// AppointmentPolicy governs catalogue-service appointments.
func AppointmentPolicy() *Policy[*model.Appointment] {
	return &Policy[*model.Appointment]{
		Kind:    model.KindAppointment,
		Prefix:  "AP",
		Noun:    "appointment",
		Initial: model.AppointmentStatusPending,
		Statuses: []model.Status{
			model.AppointmentStatusPending,
			model.AppointmentStatusConfirmed,
			model.AppointmentStatusInProgress,
			model.AppointmentStatusCompleted,
			model.AppointmentStatusCancelled,
			model.AppointmentStatusRejected,
		},
		Transitions: map[model.Status][]model.Status{
			model.AppointmentStatusPending: {
				model.AppointmentStatusConfirmed,
				model.AppointmentStatusCancelled,
				model.AppointmentStatusRejected,
			},
			model.AppointmentStatusConfirmed: {
				model.AppointmentStatusInProgress,
				model.AppointmentStatusCompleted,
				model.AppointmentStatusCancelled,
				model.AppointmentStatusRejected,
			},
			model.AppointmentStatusInProgress: {
				model.AppointmentStatusCompleted,
			},
		},
		Cancellations: []model.Status{model.AppointmentStatusCancelled, model.AppointmentStatusRejected},
		Actors: map[model.Status][]model.Role{
			model.AppointmentStatusConfirmed:  provider,
			model.AppointmentStatusInProgress: provider,
			model.AppointmentStatusCompleted:  provider,
			model.AppointmentStatusRejected:   provider,
			model.AppointmentStatusCancelled:  customerProvider,
		},
		Stamps: map[model.Status]Stamp[*model.Appointment]{
			model.AppointmentStatusConfirmed: confirmedAt[*model.Appointment],
			model.AppointmentStatusCompleted: completedAt[*model.Appointment],
			model.AppointmentStatusCancelled: cancelledAt[*model.Appointment],
			model.AppointmentStatusRejected:  cancelledAt[*model.Appointment],
		},
		Locked: []Field[*model.Appointment]{
			{Name: "provider_id", Get: providerID[*model.Appointment]},
			{Name: "service_id", Get: func(a *model.Appointment) any { return a.ServiceID }},
			{Name: "appointment_date", Get: func(a *model.Appointment) any { return a.AppointmentDate }},
			{Name: "appointment_time", Get: func(a *model.Appointment) any { return a.AppointmentTime }},
			{Name: "duration_hours", Get: func(a *model.Appointment) any { return a.DurationHours }},
			{Name: "service_address", Get: func(a *model.Appointment) any { return a.ServiceAddress }},
			{Name: "patient_notes", Get: func(a *model.Appointment) any { return a.PatientNotes }},
			{Name: "service_price", Get: func(a *model.Appointment) any { return a.ServicePrice }},
		},
		Totals: func(a *model.Appointment) {
			base := a.FinalPrice
			if base.IsZero() {
				base = a.ServicePrice
			}
			a.TotalAmount = base.Add(a.AdditionalCharges)
		},
		Validate: validate[*model.Appointment],
	}
}

// PersonalAppointmentPolicy governs home, clinic and video consultations.
func PersonalAppointmentPolicy() *Policy[*model.PersonalAppointment] {
	type pa = *model.PersonalAppointment
	return &Policy[pa]{
		Kind:    model.KindPersonalAppointment,
		Prefix:  "PA",
		Noun:    "appointment",
		Initial: model.PersonalStatusPending,
		Statuses: []model.Status{
			model.PersonalStatusPending,
			model.PersonalStatusConfirmed,
			model.PersonalStatusInProgress,
			model.PersonalStatusCompleted,
			model.PersonalStatusCancelledByPatient,
			model.PersonalStatusCancelledByProvider,
			model.PersonalStatusNoShow,
		},
		Transitions: map[model.Status][]model.Status{
			model.PersonalStatusPending: {
				model.PersonalStatusConfirmed,
				model.PersonalStatusCancelledByPatient,
				model.PersonalStatusCancelledByProvider,
			},
			model.PersonalStatusConfirmed: {
				model.PersonalStatusInProgress,
				model.PersonalStatusCompleted,
				model.PersonalStatusCancelledByPatient,
				model.PersonalStatusCancelledByProvider,
				model.PersonalStatusNoShow,
			},
			model.PersonalStatusInProgress: {
				model.PersonalStatusCompleted,
			},
		},
		Cancellations: []model.Status{
			model.PersonalStatusCancelledByPatient,
			model.PersonalStatusCancelledByProvider,
			model.PersonalStatusNoShow,
		},
		Actors: map[model.Status][]model.Role{
			model.PersonalStatusConfirmed:           provider,
			model.PersonalStatusInProgress:          provider,
			model.PersonalStatusCompleted:           provider,
			model.PersonalStatusCancelledByPatient:  customer,
			model.PersonalStatusCancelledByProvider: provider,
			model.PersonalStatusNoShow:              provider,
		},
		Stamps: map[model.Status]Stamp[pa]{
			model.PersonalStatusConfirmed:           confirmedAt[pa],
			model.PersonalStatusCompleted:           completedAt[pa],
			model.PersonalStatusCancelledByPatient:  cancelledAt[pa],
			model.PersonalStatusCancelledByProvider: cancelledAt[pa],
			model.PersonalStatusNoShow:              cancelledAt[pa],
		},
		Locked: []Field[pa]{
			{Name: "provider_id", Get: providerID[pa]},
			{Name: "appointment_type", Get: func(a pa) any { return a.AppointmentType }},
			{Name: "appointment_date", Get: func(a pa) any { return a.AppointmentDate }},
			{Name: "appointment_time", Get: func(a pa) any { return a.AppointmentTime }},
			{Name: "duration_minutes", Get: func(a pa) any { return a.DurationMinutes }},
			{Name: "location_type", Get: func(a pa) any { return a.LocationType }},
			{Name: "location_address", Get: func(a pa) any { return a.LocationAddress }},
			{Name: "reason", Get: func(a pa) any { return a.Reason }},
			{Name: "symptoms", Get: func(a pa) any { return a.Symptoms }},
			{Name: "patient_notes", Get: func(a pa) any { return a.PatientNotes }},
			{Name: "consultation_fee", Get: func(a pa) any { return a.ConsultationFee }},
		},
		Totals: func(a pa) {
			a.TotalFee = a.ConsultationFee.Add(a.AdditionalCharges)
		},
		Validate: func(a pa) error {
			if err := validate(a); err != nil {
				return err
			}
			if a.LocationType == "home" && a.LocationAddress == "" {
				return apperrors.Validation(apperrors.FieldError{Field: "location_address", Message: "is required for home visits"})
			}
			return nil
		},
	}
}

// PharmacyOrderPolicy governs medicine orders.
func PharmacyOrderPolicy() *Policy[*model.PharmacyOrder] {
	type po = *model.PharmacyOrder
	return &Policy[po]{
		Kind:    model.KindPharmacyOrder,
		Prefix:  "PH",
		Noun:    "order",
		Initial: model.PharmacyStatusPending,
		Statuses: []model.Status{
			model.PharmacyStatusPending,
			model.PharmacyStatusConfirmed,
			model.PharmacyStatusProcessing,
			model.PharmacyStatusOutForDelivery,
			model.PharmacyStatusDelivered,
			model.PharmacyStatusCancelled,
		},
		Transitions: map[model.Status][]model.Status{
			model.PharmacyStatusPending: {
				model.PharmacyStatusConfirmed,
				model.PharmacyStatusProcessing,
				model.PharmacyStatusCancelled,
			},
			model.PharmacyStatusConfirmed: {
				model.PharmacyStatusProcessing,
				model.PharmacyStatusCancelled,
			},
			model.PharmacyStatusProcessing: {
				model.PharmacyStatusOutForDelivery,
			},
			model.PharmacyStatusOutForDelivery: {
				model.PharmacyStatusDelivered,
			},
		},
		Cancellations: []model.Status{model.PharmacyStatusCancelled},
		Actors: map[model.Status][]model.Role{
			model.PharmacyStatusConfirmed:      provider,
			model.PharmacyStatusProcessing:     provider,
			model.PharmacyStatusOutForDelivery: provider,
			model.PharmacyStatusDelivered:      provider,
			model.PharmacyStatusCancelled:      customerProvider,
		},
		Stamps: map[model.Status]Stamp[po]{
			model.PharmacyStatusConfirmed: confirmedAt[po],
			model.PharmacyStatusDelivered: func(o po) **time.Time { return &o.DeliveredAt },
			model.PharmacyStatusCancelled: cancelledAt[po],
		},
		Locked: []Field[po]{
			{Name: "provider_id", Get: providerID[po]},
			{Name: "delivery_address", Get: func(o po) any { return o.DeliveryAddress }},
			{Name: "delivery_phone", Get: func(o po) any { return o.DeliveryPhone }},
			{Name: "delivery_instructions", Get: func(o po) any { return o.DeliveryInstructions }},
			{Name: "prescription_image", Get: func(o po) any { return o.PrescriptionImage }},
			{Name: "customer_notes", Get: func(o po) any { return o.CustomerNotes }},
			{Name: "items", Get: func(o po) any { return itemsKey(o.Items) }},
			{Name: "subtotal", Get: func(o po) any { return o.Subtotal }},
			{Name: "delivery_charge", Get: func(o po) any { return o.DeliveryCharge }},
		},
		Totals: func(o po) {
			if len(o.Items) > 0 {
				subtotal := decimal.Zero
				for i := range o.Items {
					item := &o.Items[i]
					item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
					subtotal = subtotal.Add(item.TotalPrice)
				}
				o.Subtotal = subtotal
			}
			o.TotalAmount = o.Subtotal.Add(o.DeliveryCharge).Sub(o.Discount)
		},
		Verified:   func(o po) bool { return o.PrescriptionVerified },
		Attachment: func(o po) bool { return o.PrescriptionImage != "" },
		Validate:   validate[po],
	}
}

// EquipmentRentalPolicy governs equipment rentals.
func EquipmentRentalPolicy() *Policy[*model.EquipmentRental] {
	type er = *model.EquipmentRental
	return &Policy[er]{
		Kind:    model.KindEquipmentRental,
		Prefix:  "RN",
		Noun:    "rental",
		Initial: model.RentalStatusPending,
		Statuses: []model.Status{
			model.RentalStatusPending,
			model.RentalStatusConfirmed,
			model.RentalStatusActive,
			model.RentalStatusReturned,
			model.RentalStatusOverdue,
			model.RentalStatusCancelled,
		},
		Transitions: map[model.Status][]model.Status{
			model.RentalStatusPending: {
				model.RentalStatusConfirmed,
				model.RentalStatusCancelled,
			},
			model.RentalStatusConfirmed: {
				model.RentalStatusActive,
				model.RentalStatusCancelled,
			},
			model.RentalStatusActive: {
				model.RentalStatusReturned,
				model.RentalStatusOverdue,
			},
			model.RentalStatusOverdue: {
				model.RentalStatusReturned,
			},
		},
		Cancellations: []model.Status{model.RentalStatusCancelled},
		Actors: map[model.Status][]model.Role{
			model.RentalStatusConfirmed: provider,
			model.RentalStatusActive:    provider,
			model.RentalStatusReturned:  provider,
			model.RentalStatusOverdue:   provider,
			model.RentalStatusCancelled: customerProvider,
		},
		Stamps: map[model.Status]Stamp[er]{
			model.RentalStatusConfirmed: confirmedAt[er],
			model.RentalStatusReturned:  completedAt[er],
			model.RentalStatusCancelled: cancelledAt[er],
		},
		Locked: []Field[er]{
			{Name: "provider_id", Get: providerID[er]},
			{Name: "equipment_id", Get: func(r er) any { return r.EquipmentID }},
			{Name: "rental_period", Get: func(r er) any { return r.RentalPeriod }},
			{Name: "quantity", Get: func(r er) any { return r.Quantity }},
			{Name: "start_date", Get: func(r er) any { return r.StartDate }},
			{Name: "end_date", Get: func(r er) any { return r.EndDate }},
			{Name: "delivery_address", Get: func(r er) any { return r.DeliveryAddress }},
			{Name: "delivery_phone", Get: func(r er) any { return r.DeliveryPhone }},
			{Name: "delivery_instructions", Get: func(r er) any { return r.DeliveryInstructions }},
			{Name: "customer_notes", Get: func(r er) any { return r.CustomerNotes }},
			{Name: "rental_price", Get: func(r er) any { return r.RentalPrice }},
			{Name: "security_deposit", Get: func(r er) any { return r.SecurityDeposit }},
			{Name: "delivery_charge", Get: func(r er) any { return r.DeliveryCharge }},
		},
		Totals: func(r er) {
			rent := r.RentalPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
			r.TotalAmount = rent.
				Add(r.SecurityDeposit).
				Add(r.DeliveryCharge).
				Add(r.LateFee).
				Add(r.DamageCharge)
		},
		Validate: func(r er) error {
			if err := validate(r); err != nil {
				return err
			}
			if r.EndDate.Before(r.StartDate) {
				return apperrors.Validation(apperrors.FieldError{Field: "end_date", Message: "must not be before start_date"})
			}
			return nil
		},
	}
}

// EquipmentPurchasePolicy governs equipment purchases.
func EquipmentPurchasePolicy() *Policy[*model.EquipmentPurchase] {
	type ep = *model.EquipmentPurchase
	return &Policy[ep]{
		Kind:    model.KindEquipmentPurchase,
		Prefix:  "EP",
		Noun:    "order",
		Initial: model.PurchaseStatusPending,
		Statuses: []model.Status{
			model.PurchaseStatusPending,
			model.PurchaseStatusConfirmed,
			model.PurchaseStatusProcessing,
			model.PurchaseStatusShipped,
			model.PurchaseStatusDelivered,
			model.PurchaseStatusCancelled,
		},
		Transitions: map[model.Status][]model.Status{
			model.PurchaseStatusPending: {
				model.PurchaseStatusConfirmed,
				model.PurchaseStatusCancelled,
			},
			model.PurchaseStatusConfirmed: {
				model.PurchaseStatusProcessing,
				model.PurchaseStatusCancelled,
			},
			model.PurchaseStatusProcessing: {
				model.PurchaseStatusShipped,
			},
			model.PurchaseStatusShipped: {
				model.PurchaseStatusDelivered,
			},
		},
		Cancellations: []model.Status{model.PurchaseStatusCancelled},
		Actors: map[model.Status][]model.Role{
			model.PurchaseStatusConfirmed:  provider,
			model.PurchaseStatusProcessing: provider,
			model.PurchaseStatusShipped:    provider,
			model.PurchaseStatusDelivered:  provider,
			model.PurchaseStatusCancelled:  customerProvider,
		},
		Stamps: map[model.Status]Stamp[ep]{
			model.PurchaseStatusConfirmed: confirmedAt[ep],
			model.PurchaseStatusDelivered: func(p ep) **time.Time { return &p.DeliveredAt },
			model.PurchaseStatusCancelled: cancelledAt[ep],
		},
		Locked: []Field[ep]{
			{Name: "provider_id", Get: providerID[ep]},
			{Name: "equipment_id", Get: func(p ep) any { return p.EquipmentID }},
			{Name: "quantity", Get: func(p ep) any { return p.Quantity }},
			{Name: "delivery_address", Get: func(p ep) any { return p.DeliveryAddress }},
			{Name: "delivery_phone", Get: func(p ep) any { return p.DeliveryPhone }},
			{Name: "delivery_instructions", Get: func(p ep) any { return p.DeliveryInstructions }},
			{Name: "customer_notes", Get: func(p ep) any { return p.CustomerNotes }},
			{Name: "unit_price", Get: func(p ep) any { return p.UnitPrice }},
			{Name: "delivery_charge", Get: func(p ep) any { return p.DeliveryCharge }},
		},
		Totals: func(p ep) {
			p.Subtotal = p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
			p.TotalAmount = p.Subtotal.Add(p.DeliveryCharge).Sub(p.Discount)
			if p.DeliveredAt != nil && p.WarrantyMonths > 0 {
				expires := p.DeliveredAt.AddDate(0, p.WarrantyMonths, 0)
				p.WarrantyExpiresAt = &expires
			}
		},
		Validate: validate[ep],
	}
}

// itemsKey renders the priced content of items for comparison, ignoring row
// identity and decimal scale.
func itemsKey(items []model.PharmacyOrderItem) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "%s:%d:%s;", it.MedicineID, it.Quantity, it.UnitPrice.String())
	}
	return b.String()
}
