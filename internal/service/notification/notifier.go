package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/uhcare-api/internal/lifecycle"
	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/pkg/logger"
)

type audience int

const (
	toCustomer audience = iota
	toProvider
	// toCounterparty is whichever of customer and provider did not cause the change.
	toCounterparty
)

type rule struct {
	to      audience
	typ     model.NotificationType
	title   string
	message string
	email   bool
	sms     bool
	action  string
}

type ruleKey struct {
	kind   model.Kind
	status model.Status
}

var actionPaths = map[model.Kind]string{
	model.KindAppointment:         "/appointments/%s/",
	model.KindPersonalAppointment: "/appointments/personal/%s/",
	model.KindPharmacyOrder:       "/pharmacy/orders/%s/",
	model.KindEquipmentRental:     "/equipment/rentals/%s/",
	model.KindEquipmentPurchase:   "/equipment/purchases/%s/",
}

var createdRules = map[model.Kind][]rule{
	model.KindAppointment: {
		{to: toCustomer, typ: model.NotificationAppointmentBooked, title: "Appointment Booked",
			message: "Your appointment request %s has been submitted and is awaiting confirmation.", email: true},
		{to: toProvider, typ: model.NotificationAppointmentBooked, title: "New Appointment Request",
			message: "You have a new appointment request %s.", email: true},
	},
	model.KindPersonalAppointment: {
		{to: toCustomer, typ: model.NotificationAppointmentBooked, title: "Appointment Booked",
			message: "Your appointment %s has been booked and is awaiting confirmation.", email: true, sms: true},
		{to: toProvider, typ: model.NotificationAppointmentBooked, title: "New Appointment Request",
			message: "You have a new appointment request %s.", email: true},
	},
	model.KindPharmacyOrder: {
		{to: toCustomer, typ: model.NotificationOrderPlaced, title: "Order Placed",
			message: "Your order %s has been placed successfully.", email: true},
	},
	model.KindEquipmentRental: {
		{to: toCustomer, typ: model.NotificationOrderPlaced, title: "Rental Request Placed",
			message: "Your rental request %s has been placed successfully.", email: true},
	},
	model.KindEquipmentPurchase: {
		{to: toCustomer, typ: model.NotificationOrderPlaced, title: "Order Placed",
			message: "Your equipment order %s has been placed successfully.", email: true},
	},
}

var statusRules = map[ruleKey][]rule{
	{model.KindAppointment, model.AppointmentStatusConfirmed}: {
		{to: toCustomer, typ: model.NotificationAppointmentConfirmed, title: "Appointment Confirmed",
			message: "Your appointment %s has been confirmed.", email: true, sms: true},
	},
	{model.KindAppointment, model.AppointmentStatusCompleted}: {
		{to: toCustomer, typ: model.NotificationAppointmentCompleted, title: "Appointment Completed",
			message: "Your appointment %s is complete. Please leave a review.", email: true, action: "review/"},
	},
	{model.KindAppointment, model.AppointmentStatusCancelled}: {
		{to: toCounterparty, typ: model.NotificationAppointmentCancelled, title: "Appointment Cancelled",
			message: "Appointment %s has been cancelled.", email: true, sms: true},
	},
	{model.KindAppointment, model.AppointmentStatusRejected}: {
		{to: toCustomer, typ: model.NotificationAppointmentCancelled, title: "Appointment Declined",
			message: "Your appointment request %s was declined by the provider.", email: true, sms: true},
	},

	{model.KindPersonalAppointment, model.PersonalStatusConfirmed}: {
		{to: toCustomer, typ: model.NotificationAppointmentConfirmed, title: "Appointment Confirmed",
			message: "Your appointment %s has been confirmed.", email: true, sms: true},
	},
	{model.KindPersonalAppointment, model.PersonalStatusCompleted}: {
		{to: toCustomer, typ: model.NotificationAppointmentCompleted, title: "Appointment Completed",
			message: "Your appointment %s is complete. Please leave a review.", email: true, action: "review/"},
	},
	{model.KindPersonalAppointment, model.PersonalStatusCancelledByPatient}: {
		{to: toProvider, typ: model.NotificationAppointmentCancelled, title: "Appointment Cancelled",
			message: "The patient cancelled appointment %s.", email: true, sms: true},
	},
	{model.KindPersonalAppointment, model.PersonalStatusCancelledByProvider}: {
		{to: toCustomer, typ: model.NotificationAppointmentCancelled, title: "Appointment Cancelled",
			message: "Your provider cancelled appointment %s.", email: true, sms: true},
	},

	{model.KindPharmacyOrder, model.PharmacyStatusConfirmed}: {
		{to: toCustomer, typ: model.NotificationOrderConfirmed, title: "Order Confirmed",
			message: "Your order %s has been confirmed.", email: true, sms: true},
	},
	{model.KindPharmacyOrder, model.PharmacyStatusOutForDelivery}: {
		{to: toCustomer, typ: model.NotificationOrderShipped, title: "Out for Delivery",
			message: "Your order %s is out for delivery.", email: true, sms: true},
	},
	{model.KindPharmacyOrder, model.PharmacyStatusDelivered}: {
		{to: toCustomer, typ: model.NotificationOrderDelivered, title: "Order Delivered",
			message: "Your order %s has been delivered.", email: true},
	},
	{model.KindPharmacyOrder, model.PharmacyStatusCancelled}: {
		{to: toCustomer, typ: model.NotificationOrderCancelled, title: "Order Cancelled",
			message: "Your order %s has been cancelled.", email: true, sms: true},
	},

	{model.KindEquipmentRental, model.RentalStatusConfirmed}: {
		{to: toCustomer, typ: model.NotificationOrderConfirmed, title: "Rental Confirmed",
			message: "Your rental %s has been confirmed.", email: true, sms: true},
	},
	{model.KindEquipmentRental, model.RentalStatusActive}: {
		{to: toCustomer, typ: model.NotificationRentalStarted, title: "Rental Started",
			message: "Your rental %s is now active.", email: true},
	},
	{model.KindEquipmentRental, model.RentalStatusOverdue}: {
		{to: toCustomer, typ: model.NotificationRentalOverdue, title: "Rental Overdue",
			message: "Your rental %s is overdue. Please return the equipment to avoid late fees.", email: true, sms: true},
	},
	{model.KindEquipmentRental, model.RentalStatusReturned}: {
		{to: toCustomer, typ: model.NotificationRentalReturned, title: "Equipment Returned",
			message: "We have received the equipment for rental %s. Thank you.", email: true},
	},
	{model.KindEquipmentRental, model.RentalStatusCancelled}: {
		{to: toCustomer, typ: model.NotificationOrderCancelled, title: "Rental Cancelled",
			message: "Your rental %s has been cancelled.", email: true, sms: true},
	},

	{model.KindEquipmentPurchase, model.PurchaseStatusConfirmed}: {
		{to: toCustomer, typ: model.NotificationOrderConfirmed, title: "Order Confirmed",
			message: "Your equipment order %s has been confirmed.", email: true, sms: true},
	},
	{model.KindEquipmentPurchase, model.PurchaseStatusShipped}: {
		{to: toCustomer, typ: model.NotificationOrderShipped, title: "Order Shipped",
			message: "Your equipment order %s has been shipped.", email: true, sms: true},
	},
	{model.KindEquipmentPurchase, model.PurchaseStatusDelivered}: {
		{to: toCustomer, typ: model.NotificationOrderDelivered, title: "Order Delivered",
			message: "Your equipment order %s has been delivered.", email: true},
	},
	{model.KindEquipmentPurchase, model.PurchaseStatusCancelled}: {
		{to: toCustomer, typ: model.NotificationOrderCancelled, title: "Order Cancelled",
			message: "Your equipment order %s has been cancelled.", email: true, sms: true},
	},
}

var verifiedRule = rule{
	to: toCustomer, typ: model.NotificationPrescriptionVerified, title: "Prescription Verified",
	message: "The prescription for order %s has been verified.", email: true,
}

var amendedRule = rule{
	to: toCustomer, typ: model.NotificationSystemAlert, title: "Details Updated",
	message: "An administrator updated the details of %s.", email: true,
}

// Sender is the part of the Dispatcher the Notifier needs.
type Sender interface {
	Dispatch(ctx context.Context, req Request) *Result
}

// Notifier turns committed lifecycle changes into notifications.
type Notifier struct {
	sender Sender
	log    *logger.Logger
}

func NewNotifier(sender Sender, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{sender: sender, log: log}
}

// Requests lists the notifications a change produces.
func (n *Notifier) Requests(change *lifecycle.Change) []Request {
	var rules []rule
	switch {
	case change.Created:
		rules = append(rules, createdRules[change.Kind]...)
	case change.StatusChanged():
		rules = append(rules, statusRules[ruleKey{change.Kind, change.To}]...)
	}
	if change.Verified {
		rules = append(rules, verifiedRule)
	}
	if len(change.Amended) > 0 {
		rules = append(rules, amendedRule)
	}

	ref := change.Ref()
	reqs := make([]Request, 0, len(rules))
	for _, r := range rules {
		userID, ok := recipient(r.to, change)
		if !ok {
			continue
		}
		action := fmt.Sprintf(actionPaths[change.Kind], change.EntityID) + r.action
		reqs = append(reqs, Request{
			UserID:    userID,
			Type:      r.typ,
			Title:     r.title,
			Message:   fmt.Sprintf(r.message, change.Number),
			Ref:       &ref,
			ActionURL: action,
			SendEmail: r.email,
			SendSMS:   r.sms,
		})
	}
	return reqs
}

// Notify dispatches every notification for change. It never fails and
// never panics; a panicking dispatch is logged and the next request is sent.
func (n *Notifier) Notify(ctx context.Context, change *lifecycle.Change) {
	for _, req := range n.Requests(change) {
		n.dispatch(ctx, change, req)
	}
}

func (n *Notifier) dispatch(ctx context.Context, change *lifecycle.Change, req Request) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error(fmt.Errorf("panic: %v", r), "notification dispatch panicked",
				"entity_id", change.EntityID.String(),
				"user_id", req.UserID.String(),
				"type", string(req.Type),
			)
		}
	}()
	n.sender.Dispatch(ctx, req)
}

func recipient(a audience, change *lifecycle.Change) (uuid.UUID, bool) {
	switch a {
	case toCustomer:
		return change.CustomerID, true
	case toProvider:
		if change.ProviderID == nil {
			return uuid.Nil, false
		}
		return *change.ProviderID, true
	case toCounterparty:
		if change.ActorID != nil && change.ProviderID != nil && *change.ActorID == change.CustomerID {
			return *change.ProviderID, true
		}
		if change.ActorID != nil && *change.ActorID == change.CustomerID {
			return uuid.Nil, false
		}
		return change.CustomerID, true
	}
	return uuid.Nil, false
}
