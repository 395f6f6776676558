package order

import (
	"github.com/jwalitptl/uhcare-api/internal/model"
)

// placement is shared by every kind: customers choose the provider when booking only.
var placement = []string{"provider_id"}

func AppointmentConfig() Config[*model.Appointment] {
	return Config[*model.Appointment]{
		Path: "/appointments",
		New:  func() *model.Appointment { return &model.Appointment{} },
		Protected: []string{
			"provider_notes", "service_price", "final_price", "additional_charges",
		},
		Placement: placement,
	}
}

func PersonalAppointmentConfig() Config[*model.PersonalAppointment] {
	return Config[*model.PersonalAppointment]{
		Path: "/appointments/personal",
		New:  func() *model.PersonalAppointment { return &model.PersonalAppointment{} },
		Protected: []string{
			"provider_notes", "diagnosis", "prescription", "consultation_fee", "additional_charges",
		},
		Placement: placement,
	}
}

func PharmacyOrderConfig() Config[*model.PharmacyOrder] {
	return Config[*model.PharmacyOrder]{
		Path: "/pharmacy/orders",
		New:  func() *model.PharmacyOrder { return &model.PharmacyOrder{} },
		Defaults: func(o *model.PharmacyOrder, present map[string]bool) {
			if !present["delivery_charge"] {
				o.DeliveryCharge = model.DefaultDeliveryCharge
			}
		},
		Protected: []string{
			"prescription_verified", "internal_notes", "delivery_person",
			"subtotal", "items[].unit_price", "discount", "delivery_charge",
		},
		Placement: placement,
	}
}

func EquipmentRentalConfig() Config[*model.EquipmentRental] {
	return Config[*model.EquipmentRental]{
		Path: "/equipment/rentals",
		New:  func() *model.EquipmentRental { return &model.EquipmentRental{} },
		Protected: []string{
			"rental_price", "security_deposit", "delivery_charge", "late_fee", "damage_charge",
			"damage_notes", "condition_at_delivery", "condition_at_return",
		},
		Placement: placement,
	}
}

func EquipmentPurchaseConfig() Config[*model.EquipmentPurchase] {
	return Config[*model.EquipmentPurchase]{
		Path: "/equipment/purchases",
		New:  func() *model.EquipmentPurchase { return &model.EquipmentPurchase{} },
		Protected: []string{
			"unit_price", "delivery_charge", "discount", "warranty_months",
		},
		Placement: placement,
	}
}
