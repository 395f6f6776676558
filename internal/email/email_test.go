package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/uhcare-api/internal/channel"
)

func TestRenderer_EscapesAndIncludesAction(t *testing.T) {
	subject, html, text, err := MustRenderer().Render(Context{
		Recipient: "Asha",
		Title:     "Order Placed",
		Body:      "Your order <PH12AB34CD> has been placed.",
		ActionURL: "/pharmacy/orders/1/",
		SiteName:  "UH Care",
	})
	require.NoError(t, err)

	assert.Equal(t, "Order Placed - UH Care", subject)
	assert.Contains(t, html, "&lt;PH12AB34CD&gt;")
	assert.Contains(t, html, `href="/pharmacy/orders/1/"`)
	assert.Contains(t, text, "View details: /pharmacy/orders/1/")
}

func TestSMTPTransport_Unconfigured(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{})
	assert.False(t, tr.Configured())
	assert.ErrorIs(t, tr.Send(context.Background(), channel.Message{To: "a@example.org"}), channel.ErrUnconfigured)
}

func TestSMTPTransport_SendBuildsMessage(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.example.org", Port: 587, From: "noreply@uhcare.example"})
	var sent *gomail.Message
	tr.send = func(m *gomail.Message) error {
		sent = m
		return nil
	}

	err := tr.Send(context.Background(), channel.Message{To: "asha@example.org", Subject: "Hi", Text: "body"})
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, []string{"asha@example.org"}, sent.GetHeader("To"))
	assert.Equal(t, []string{"Hi"}, sent.GetHeader("Subject"))
}

func TestSMTPTransport_WrapsRelayError(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{Host: "smtp.example.org", Port: 587, From: "noreply@uhcare.example"})
	relay := errors.New("550 mailbox unavailable")
	tr.send = func(*gomail.Message) error { return relay }

	err := tr.Send(context.Background(), channel.Message{To: "asha@example.org"})
	assert.ErrorIs(t, err, relay)
}
