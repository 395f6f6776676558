package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/uhcare-api/internal/channel"
	"github.com/jwalitptl/uhcare-api/internal/email"
	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
	"github.com/jwalitptl/uhcare-api/internal/service/preference"
	"github.com/jwalitptl/uhcare-api/pkg/logger"
	"github.com/jwalitptl/uhcare-api/pkg/messaging"
	"github.com/jwalitptl/uhcare-api/pkg/metrics"
)

// Request is one notification to one user.
type Request struct {
	UserID     uuid.UUID
	Type       model.NotificationType
	Title      string
	Message    string
	Ref        *model.Ref
	ActionURL  string
	ActionText string
	SendEmail  bool
	SendSMS    bool
}

// Result reports what each channel did. A nil entry means the channel was skipped.
type Result struct {
	Notification *model.Notification
	EmailLog     *model.DeliveryLog
	SMSLog       *model.DeliveryLog
}

type Config struct {
	SiteName       string
	ChannelTimeout time.Duration
}

// Dispatcher fans a Request out to the in-app, email and SMS channels.
// Channel failures are logged and recorded, never returned.
type Dispatcher struct {
	cfg           Config
	prefs         preference.Service
	notifications repository.NotificationRepository
	logs          repository.DeliveryLogRepository
	users         repository.UserDirectory
	email         channel.Transport
	sms           channel.Transport
	renderer      *email.Renderer
	broker        messaging.Broker
	metrics       *metrics.Metrics
	logger        *logger.Logger
	now           func() time.Time
}

type Deps struct {
	Preferences   preference.Service
	Notifications repository.NotificationRepository
	Logs          repository.DeliveryLogRepository
	Users         repository.UserDirectory
	Email         channel.Transport
	SMS           channel.Transport
	Renderer      *email.Renderer
	// Broker is optional; in-app notifications are pushed to it when set.
	Broker  messaging.Broker
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

func NewDispatcher(cfg Config, deps Deps) *Dispatcher {
	if cfg.SiteName == "" {
		cfg.SiteName = "UH Care"
	}
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = 10 * time.Second
	}
	if deps.Renderer == nil {
		deps.Renderer = email.MustRenderer()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &Dispatcher{
		cfg:           cfg,
		prefs:         deps.Preferences,
		notifications: deps.Notifications,
		logs:          deps.Logs,
		users:         deps.Users,
		email:         deps.Email,
		sms:           deps.SMS,
		renderer:      deps.Renderer,
		broker:        deps.Broker,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		now:           time.Now,
	}
}

// Dispatch delivers req over every channel the user's preferences allow,
// in the order in-app, email, SMS.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Result {
	res := &Result{}
	log := d.logger.WithFields(map[string]interface{}{
		"user_id":           req.UserID.String(),
		"notification_type": string(req.Type),
	})

	prefs, err := d.prefs.Get(ctx, req.UserID)
	if err != nil {
		log.Error(err, "failed to resolve notification preferences, using defaults")
		prefs = model.DefaultPreferences(req.UserID, d.now())
	}
	category := req.Type.Category()

	if prefs.Allows(model.ChannelInApp, category) {
		res.Notification = d.inApp(ctx, log, req)
	}

	wantEmail := req.SendEmail && prefs.Allows(model.ChannelEmail, category)
	wantSMS := req.SendSMS && prefs.Allows(model.ChannelSMS, category)
	if !wantEmail && !wantSMS {
		return res
	}

	contact, err := d.users.Contact(ctx, req.UserID)
	if err != nil {
		log.Error(err, "failed to resolve user contact, skipping email and sms")
		return res
	}

	if wantEmail {
		if contact.Email == "" {
			log.Warn("user has no email address, skipping email")
		} else {
			res.EmailLog = d.sendEmail(ctx, log, req, contact)
		}
	}
	if wantSMS {
		if contact.Phone == "" {
			log.Warn("user has no phone number, skipping sms")
		} else {
			res.SMSLog = d.sendSMS(ctx, log, req, contact)
		}
	}
	return res
}

func (d *Dispatcher) inApp(ctx context.Context, log *logger.Logger, req Request) *model.Notification {
	actionText := req.ActionText
	if actionText == "" {
		actionText = model.DefaultActionText
	}
	n := &model.Notification{
		ID:               uuid.New(),
		UserID:           req.UserID,
		NotificationType: req.Type,
		Title:            req.Title,
		Message:          req.Message,
		ActionURL:        req.ActionURL,
		ActionText:       actionText,
		CreatedAt:        d.now(),
	}
	n.SetRef(req.Ref)

	if err := d.notifications.Create(ctx, n); err != nil {
		log.Error(err, "failed to create in-app notification")
		d.count(model.ChannelInApp, model.DeliveryFailed)
		return nil
	}
	d.count(model.ChannelInApp, model.DeliverySent)

	if d.broker != nil {
		msg := messaging.Message{Type: string(n.NotificationType), Payload: n}
		if err := d.broker.Publish(ctx, messaging.UserChannel(n.UserID.String()), msg); err != nil {
			log.Warn("failed to push in-app notification", "error", err.Error())
		}
	}
	return n
}

func (d *Dispatcher) sendEmail(ctx context.Context, log *logger.Logger, req Request, contact *model.Contact) *model.DeliveryLog {
	subject, html, text, renderErr := d.renderer.Render(email.Context{
		Recipient: contact.FullName(),
		Title:     req.Title,
		Body:      req.Message,
		ActionURL: req.ActionURL,
		SiteName:  d.cfg.SiteName,
	})
	if renderErr != nil {
		subject, text = req.Title, req.Message
	}

	entry := d.newLog(model.ChannelEmail, req, contact.Email, subject, text)
	if err := d.logs.Create(ctx, entry); err != nil {
		log.Error(err, "failed to create email log, skipping email")
		return nil
	}

	var sendErr error
	switch {
	case renderErr != nil:
		sendErr = renderErr
	case !d.email.Configured():
		sendErr = channel.ErrUnconfigured
	default:
		sendErr = d.attempt(ctx, model.ChannelEmail, d.email, channel.Message{
			To:      contact.Email,
			Subject: subject,
			Text:    text,
			HTML:    html,
		})
	}

	d.finish(ctx, log, entry, sendErr)
	return entry
}

func (d *Dispatcher) sendSMS(ctx context.Context, log *logger.Logger, req Request, contact *model.Contact) *model.DeliveryLog {
	entry := d.newLog(model.ChannelSMS, req, contact.Phone, "", req.Message)
	if err := d.logs.Create(ctx, entry); err != nil {
		log.Error(err, "failed to create sms log, skipping sms")
		return nil
	}

	if !d.sms.Configured() {
		log.Warn("sms transport is not configured, leaving log pending", "log_id", entry.ID.String())
		d.count(model.ChannelSMS, model.DeliveryPending)
		return entry
	}

	err := d.attempt(ctx, model.ChannelSMS, d.sms, channel.Message{To: contact.Phone, Text: req.Message})
	d.finish(ctx, log, entry, err)
	return entry
}

func (d *Dispatcher) attempt(ctx context.Context, ch model.Channel, t channel.Transport, msg channel.Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ChannelTimeout)
	defer cancel()

	start := time.Now()
	err := channel.Run(ctx, func() error { return t.Send(ctx, msg) })
	if d.metrics != nil {
		d.metrics.ChannelLatency.WithLabelValues(string(ch)).Observe(time.Since(start).Seconds())
	}
	return err
}

func (d *Dispatcher) newLog(ch model.Channel, req Request, recipient, subject, message string) *model.DeliveryLog {
	userID := req.UserID
	return &model.DeliveryLog{
		ID:               uuid.New(),
		Channel:          ch,
		UserID:           &userID,
		Recipient:        recipient,
		Subject:          subject,
		Message:          message,
		NotificationType: req.Type,
		Status:           model.DeliveryPending,
		CreatedAt:        d.now(),
	}
}

// finish moves a pending log to sent or failed.
func (d *Dispatcher) finish(ctx context.Context, log *logger.Logger, entry *model.DeliveryLog, sendErr error) {
	if sendErr != nil {
		entry.Status = model.DeliveryFailed
		entry.ErrorMessage = sendErr.Error()
		log.Error(sendErr, fmt.Sprintf("%s delivery failed", entry.Channel), "recipient", entry.Recipient)
	} else {
		now := d.now()
		entry.Status = model.DeliverySent
		entry.SentAt = &now
		log.Info(fmt.Sprintf("%s delivered", entry.Channel), "recipient", entry.Recipient)
	}
	d.count(entry.Channel, entry.Status)

	if err := d.logs.UpdateOutcome(ctx, entry); err != nil {
		log.Error(err, "failed to record delivery outcome", "log_id", entry.ID.String())
	}
}

func (d *Dispatcher) count(ch model.Channel, status model.DeliveryStatus) {
	if d.metrics != nil {
		d.metrics.NotificationDeliveries.WithLabelValues(string(ch), string(status)).Inc()
	}
}
