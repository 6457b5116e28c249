package notification

import (
	"embed"
	"log/slog"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithTwilio adds an SMS notifier with the provided Twilio configuration
func WithTwilio(config TwilioConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(SMSSystem, NewSMSNotifier(config))
		return nil
	}
}

// WithNotifier registers an arbitrary notifier for a system, used by tests
// and by deployments with their own transports
func WithNotifier(system NotificationSystem, notifier Notifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(system, notifier)
		return nil
	}
}

// WithMfaCodeEmailTemplate registers the MFA code email template
func WithMfaCodeEmailTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(MfaCodeNotice, EmailSystem, NoticeTemplate{
			Subject: "Your verification code",
			Html:    loadTemplate("templates/email/mfa_code.html"),
		})
	}
}

// WithMfaCodeSmsTemplate registers the MFA code SMS template
func WithMfaCodeSmsTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(MfaCodeNotice, SMSSystem, NoticeTemplate{
			Text: "Your verification code is: {{.Passcode}}",
		})
	}
}

// WithDefaultTemplates registers all default notice templates
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		options := []NotificationManagerOption{
			WithMfaCodeEmailTemplate(),
			WithMfaCodeSmsTemplate(),
		}
		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewNotificationManagerWithOptions creates a notification manager with the
// provided options
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	nm := NewNotificationManager()
	for _, opt := range opts {
		if err := opt(nm); err != nil {
			return nil, err
		}
	}
	return nm, nil
}
