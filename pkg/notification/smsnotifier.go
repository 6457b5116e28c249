package notification

import (
	"bytes"
	"fmt"
	"log/slog"
	texttemplate "text/template"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioConfig holds the Twilio account settings
type TwilioConfig struct {
	AccountSid string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	From       string `env:"TWILIO_FROM" env-default:"+15005550006"`
}

// SMSNotifier delivers notices as text messages via Twilio
type SMSNotifier struct {
	client       *twilio.RestClient
	TwilioConfig TwilioConfig
}

// NewSMSNotifier creates an SMSNotifier with the given Twilio settings
func NewSMSNotifier(config TwilioConfig) *SMSNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})
	return &SMSNotifier{
		client:       client,
		TwilioConfig: config,
	}
}

// Send renders the text template and delivers the message
func (s *SMSNotifier) Send(noticeType NoticeType, data NotificationData, template NoticeTemplate) error {
	if data.To == "" {
		return fmt.Errorf("SMS notification requires 'To' number")
	}

	body := data.Body
	if template.Text != "" {
		tmpl, err := texttemplate.New("sms").Parse(template.Text)
		if err != nil {
			slog.Error("Failed to parse SMS template", "err", err)
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data.Data); err != nil {
			slog.Error("Failed to execute SMS template", "err", err)
			return err
		}
		body = buf.String()
	}
	if body == "" {
		return fmt.Errorf("SMS notification requires a body or a text template")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(data.To)
	params.SetFrom(s.TwilioConfig.From)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		slog.Error("Failed to send SMS", "err", err, "to", data.To)
		return err
	}

	slog.Info("SMS sent", "to", data.To, "notice", noticeType)
	return nil
}
