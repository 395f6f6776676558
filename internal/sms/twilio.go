package sms

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/jwalitptl/uhcare-api/internal/channel"
)

// Config holds Twilio credentials. Read from TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN
// and TWILIO_PHONE_NUMBER.
type Config struct {
	AccountSID  string `envconfig:"ACCOUNT_SID"`
	AuthToken   string `envconfig:"AUTH_TOKEN"`
	PhoneNumber string `envconfig:"PHONE_NUMBER"`
}

// LoadConfig reads Twilio credentials from the environment. Missing values are not an error.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("twilio", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read twilio config: %w", err)
	}
	return cfg, nil
}

func (c Config) complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.PhoneNumber != ""
}

// TwilioTransport sends SMS through the Twilio REST API.
type TwilioTransport struct {
	cfg  Config
	send func(params *twilioApi.CreateMessageParams) error
}

func NewTwilioTransport(cfg Config) *TwilioTransport {
	t := &TwilioTransport{cfg: cfg}
	if cfg.complete() {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		t.send = func(params *twilioApi.CreateMessageParams) error {
			_, err := client.Api.CreateMessage(params)
			return err
		}
	}
	return t
}

var _ channel.Transport = (*TwilioTransport)(nil)

func (t *TwilioTransport) Configured() bool {
	return t.cfg.complete() && t.send != nil
}

func (t *TwilioTransport) Send(ctx context.Context, msg channel.Message) error {
	if !t.Configured() {
		return channel.ErrUnconfigured
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(t.cfg.PhoneNumber)
	params.SetBody(msg.Text)

	if err := channel.Run(ctx, func() error { return t.send(params) }); err != nil {
		return fmt.Errorf("failed to send sms to %s: %w", msg.To, err)
	}
	return nil
}
