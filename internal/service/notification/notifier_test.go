package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/uhcare-api/internal/lifecycle"
	"github.com/jwalitptl/uhcare-api/internal/model"
)

type recordingSender struct {
	requests []Request
}

func (r *recordingSender) Dispatch(_ context.Context, req Request) *Result {
	r.requests = append(r.requests, req)
	return &Result{}
}

type panickingSender struct {
	calls int
}

func (p *panickingSender) Dispatch(context.Context, Request) *Result {
	p.calls++
	panic("preference cache corrupted")
}

func TestNotifier_ContainsDispatchPanics(t *testing.T) {
	sender := &panickingSender{}
	providerID := uuid.New()
	change := &lifecycle.Change{
		Kind:       model.KindPersonalAppointment,
		EntityID:   uuid.New(),
		Number:     "PA00C0FFEE",
		CustomerID: uuid.New(),
		ProviderID: &providerID,
		Created:    true,
		To:         model.PersonalStatusPending,
	}

	assert.NotPanics(t, func() {
		NewNotifier(sender, nil).Notify(context.Background(), change)
	})
	assert.Equal(t, 2, sender.calls)
}

func TestNotifier_PharmacyOrderPlaced(t *testing.T) {
	sender := &recordingSender{}
	change := &lifecycle.Change{
		Kind:       model.KindPharmacyOrder,
		EntityID:   uuid.New(),
		Number:     "PH1A2B3C4D",
		CustomerID: uuid.New(),
		Created:    true,
		To:         model.PharmacyStatusPending,
	}

	NewNotifier(sender, nil).Notify(context.Background(), change)

	require.Len(t, sender.requests, 1)
	req := sender.requests[0]
	assert.Equal(t, change.CustomerID, req.UserID)
	assert.Equal(t, model.NotificationOrderPlaced, req.Type)
	assert.Equal(t, "Your order PH1A2B3C4D has been placed successfully.", req.Message)
	assert.Equal(t, "/pharmacy/orders/"+change.EntityID.String()+"/", req.ActionURL)
	assert.Equal(t, &model.Ref{Kind: model.KindPharmacyOrder, ID: change.EntityID}, req.Ref)
	assert.True(t, req.SendEmail)
	assert.False(t, req.SendSMS)
}

func TestNotifier_PersonalAppointmentCreatedNotifiesBothParties(t *testing.T) {
	provider := uuid.New()
	reqs := NewNotifier(nil, nil).Requests(&lifecycle.Change{
		Kind:       model.KindPersonalAppointment,
		EntityID:   uuid.New(),
		Number:     "PA00AA11BB",
		CustomerID: uuid.New(),
		ProviderID: &provider,
		Created:    true,
	})

	require.Len(t, reqs, 2)
	assert.True(t, reqs[0].SendSMS)
	assert.Equal(t, provider, reqs[1].UserID)
	assert.False(t, reqs[1].SendSMS)
}

func TestNotifier_CancellationGoesToOtherParty(t *testing.T) {
	customer, provider := uuid.New(), uuid.New()

	byPatient := NewNotifier(nil, nil).Requests(&lifecycle.Change{
		Kind: model.KindPersonalAppointment, EntityID: uuid.New(), CustomerID: customer, ProviderID: &provider,
		From: model.PersonalStatusConfirmed, To: model.PersonalStatusCancelledByPatient,
	})
	require.Len(t, byPatient, 1)
	assert.Equal(t, provider, byPatient[0].UserID)

	byCustomer := NewNotifier(nil, nil).Requests(&lifecycle.Change{
		Kind: model.KindAppointment, EntityID: uuid.New(), CustomerID: customer, ProviderID: &provider,
		ActorID: &customer, From: model.AppointmentStatusPending, To: model.AppointmentStatusCancelled,
	})
	require.Len(t, byCustomer, 1)
	assert.Equal(t, provider, byCustomer[0].UserID)

	byProvider := NewNotifier(nil, nil).Requests(&lifecycle.Change{
		Kind: model.KindAppointment, EntityID: uuid.New(), CustomerID: customer, ProviderID: &provider,
		ActorID: &provider, From: model.AppointmentStatusConfirmed, To: model.AppointmentStatusCancelled,
	})
	require.Len(t, byProvider, 1)
	assert.Equal(t, customer, byProvider[0].UserID)
}

func TestNotifier_CompletedLinksToReview(t *testing.T) {
	id := uuid.New()
	reqs := NewNotifier(nil, nil).Requests(&lifecycle.Change{
		Kind: model.KindPersonalAppointment, EntityID: id, CustomerID: uuid.New(),
		From: model.PersonalStatusInProgress, To: model.PersonalStatusCompleted,
	})

	require.Len(t, reqs, 1)
	assert.Equal(t, "/appointments/personal/"+id.String()+"/review/", reqs[0].ActionURL)
}

func TestNotifier_VerificationAndAmendment(t *testing.T) {
	reqs := NewNotifier(nil, nil).Requests(&lifecycle.Change{
		Kind: model.KindPharmacyOrder, EntityID: uuid.New(), CustomerID: uuid.New(),
		From: model.PharmacyStatusConfirmed, To: model.PharmacyStatusConfirmed,
		Verified: true, Override: true, Amended: []string{"delivery_address"},
	})

	require.Len(t, reqs, 2)
	assert.Equal(t, model.NotificationPrescriptionVerified, reqs[0].Type)
	assert.Equal(t, model.NotificationSystemAlert, reqs[1].Type)
}

func TestNotifier_SilentTransitions(t *testing.T) {
	reqs := NewNotifier(nil, nil).Requests(&lifecycle.Change{
		Kind: model.KindPharmacyOrder, EntityID: uuid.New(), CustomerID: uuid.New(),
		From: model.PharmacyStatusConfirmed, To: model.PharmacyStatusProcessing,
	})
	assert.Empty(t, reqs)
}
