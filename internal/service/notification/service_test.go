package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/pkg/metrics"
)

type harness struct {
	dispatcher    *Dispatcher
	prefs         *fakePrefs
	notifications *fakeNotifications
	logs          *fakeLogs
	email         *fakeTransport
	sms           *fakeTransport
	broker        *fakeBroker
	userID        uuid.UUID
}

func newHarness() *harness {
	userID := uuid.New()
	h := &harness{
		prefs:         &fakePrefs{prefs: map[uuid.UUID]*model.NotificationPreference{}},
		notifications: newFakeNotifications(),
		logs:          newFakeLogs(),
		email:         &fakeTransport{configured: true},
		sms:           &fakeTransport{configured: true},
		broker:        &fakeBroker{},
		userID:        userID,
	}
	users := &fakeUsers{contacts: map[uuid.UUID]*model.Contact{
		userID: {UserID: userID, Email: "asha@example.org", Phone: "+9779800000000", FirstName: "Asha"},
	}}
	h.dispatcher = NewDispatcher(Config{SiteName: "UH Care", ChannelTimeout: time.Second}, Deps{
		Preferences:   h.prefs,
		Notifications: h.notifications,
		Logs:          h.logs,
		Users:         users,
		Email:         h.email,
		SMS:           h.sms,
		Broker:        h.broker,
		Metrics:       metrics.NewForTest(),
	})
	return h
}

func (h *harness) request(email, sms bool) Request {
	return Request{
		UserID:    h.userID,
		Type:      model.NotificationOrderPlaced,
		Title:     "Order Placed",
		Message:   "Your order PH1A2B3C4D has been placed successfully.",
		Ref:       &model.Ref{Kind: model.KindPharmacyOrder, ID: uuid.New()},
		ActionURL: "/pharmacy/orders/1/",
		SendEmail: email,
		SendSMS:   sms,
	}
}

func TestDispatch_InAppAndEmailWithoutSMS(t *testing.T) {
	h := newHarness()

	res := h.dispatcher.Dispatch(context.Background(), h.request(true, false))

	require.NotNil(t, res.Notification)
	assert.Equal(t, 1, h.notifications.count())
	assert.Equal(t, model.DefaultActionText, res.Notification.ActionText)
	require.NotNil(t, res.Notification.Ref())
	assert.Equal(t, model.KindPharmacyOrder, res.Notification.Ref().Kind)

	emails := h.logs.byChannel(model.ChannelEmail)
	require.Len(t, emails, 1)
	assert.Equal(t, model.DeliverySent, emails[0].Status)
	assert.NotNil(t, emails[0].SentAt)
	assert.Equal(t, "asha@example.org", emails[0].Recipient)
	assert.Empty(t, h.logs.byChannel(model.ChannelSMS))
	assert.Nil(t, res.SMSLog)

	require.Len(t, h.email.sent, 1)
	assert.Contains(t, h.email.sent[0].HTML, "UH Care")
	assert.Equal(t, []string{"notifications:" + h.userID.String()}, h.broker.published)
}

func TestDispatch_EmailFailureDoesNotBlockOtherChannels(t *testing.T) {
	h := newHarness()
	h.email.err = errors.New("smtp: connection refused")

	res := h.dispatcher.Dispatch(context.Background(), h.request(true, true))

	require.NotNil(t, res.Notification)
	assert.Equal(t, 1, h.notifications.count())

	require.NotNil(t, res.EmailLog)
	assert.Equal(t, model.DeliveryFailed, res.EmailLog.Status)
	assert.Contains(t, res.EmailLog.ErrorMessage, "connection refused")
	assert.Nil(t, res.EmailLog.SentAt)

	require.NotNil(t, res.SMSLog)
	assert.Equal(t, model.DeliverySent, res.SMSLog.Status)
	assert.Len(t, h.sms.sent, 1)
}

func TestDispatch_PanickingTransportIsContained(t *testing.T) {
	h := newHarness()
	h.email.panics = "twilio: nil response"

	var res *Result
	require.NotPanics(t, func() {
		res = h.dispatcher.Dispatch(context.Background(), h.request(true, true))
	})

	require.NotNil(t, res.EmailLog)
	assert.Equal(t, model.DeliveryFailed, res.EmailLog.Status)
	assert.Contains(t, res.EmailLog.ErrorMessage, "twilio: nil response")
	require.NotNil(t, res.SMSLog)
	assert.Equal(t, model.DeliverySent, res.SMSLog.Status)
}

func TestDispatch_UnconfiguredSMSStaysPending(t *testing.T) {
	h := newHarness()
	h.sms.configured = false

	res := h.dispatcher.Dispatch(context.Background(), h.request(false, true))

	smsLogs := h.logs.byChannel(model.ChannelSMS)
	require.Len(t, smsLogs, 1)
	assert.Equal(t, model.DeliveryPending, smsLogs[0].Status)
	assert.Zero(t, h.logs.updates[smsLogs[0].ID])
	assert.Equal(t, model.DeliveryPending, res.SMSLog.Status)
}

func TestDispatch_UnconfiguredEmailFails(t *testing.T) {
	h := newHarness()
	h.email.configured = false

	res := h.dispatcher.Dispatch(context.Background(), h.request(true, false))

	require.NotNil(t, res.EmailLog)
	assert.Equal(t, model.DeliveryFailed, res.EmailLog.Status)
	assert.Equal(t, 1, h.logs.updates[res.EmailLog.ID])
}

func TestDispatch_LogUpdatedExactlyOnce(t *testing.T) {
	h := newHarness()

	res := h.dispatcher.Dispatch(context.Background(), h.request(true, true))

	assert.Equal(t, 1, h.logs.updates[res.EmailLog.ID])
	assert.Equal(t, 1, h.logs.updates[res.SMSLog.ID])
}

func TestDispatch_HonoursMasterToggles(t *testing.T) {
	h := newHarness()
	prefs := model.DefaultPreferences(h.userID, time.Now())
	prefs.EnableInApp = false
	prefs.EnableEmail = false
	h.prefs.prefs[h.userID] = prefs

	res := h.dispatcher.Dispatch(context.Background(), h.request(true, true))

	assert.Nil(t, res.Notification)
	assert.Nil(t, res.EmailLog)
	assert.Equal(t, 0, h.notifications.count())
	assert.Empty(t, h.logs.byChannel(model.ChannelEmail))
	require.NotNil(t, res.SMSLog)
}

func TestDispatch_HonoursCategoryToggles(t *testing.T) {
	h := newHarness()
	prefs := model.DefaultPreferences(h.userID, time.Now())
	prefs.OrderSMS = false
	h.prefs.prefs[h.userID] = prefs

	res := h.dispatcher.Dispatch(context.Background(), h.request(true, true))

	assert.NotNil(t, res.EmailLog)
	assert.Nil(t, res.SMSLog)

	req := h.request(true, true)
	req.Type = model.NotificationAppointmentConfirmed
	res = h.dispatcher.Dispatch(context.Background(), req)
	assert.NotNil(t, res.SMSLog)
}

func TestDispatch_PreferenceFailureFallsBackToDefaults(t *testing.T) {
	h := newHarness()
	h.prefs.err = errors.New("db down")

	res := h.dispatcher.Dispatch(context.Background(), h.request(true, false))

	assert.NotNil(t, res.Notification)
	assert.NotNil(t, res.EmailLog)
}

func TestDispatch_InAppFailureIsContained(t *testing.T) {
	h := newHarness()
	h.notifications.err = errors.New("insert failed")
	h.broker.err = errors.New("redis down")

	res := h.dispatcher.Dispatch(context.Background(), h.request(true, false))

	assert.Nil(t, res.Notification)
	require.NotNil(t, res.EmailLog)
	assert.Equal(t, model.DeliverySent, res.EmailLog.Status)
}

func TestDispatch_UnknownUserSkipsOutboundChannels(t *testing.T) {
	h := newHarness()
	req := h.request(true, true)
	req.UserID = uuid.New()

	res := h.dispatcher.Dispatch(context.Background(), req)

	assert.NotNil(t, res.Notification)
	assert.Nil(t, res.EmailLog)
	assert.Nil(t, res.SMSLog)
}

func TestDispatch_NoDedupeAcrossCalls(t *testing.T) {
	h := newHarness()
	req := h.request(true, false)

	h.dispatcher.Dispatch(context.Background(), req)
	h.dispatcher.Dispatch(context.Background(), req)

	assert.Equal(t, 2, h.notifications.count())
	assert.Len(t, h.logs.byChannel(model.ChannelEmail), 2)
}
