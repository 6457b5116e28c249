package notification

// NotificationSystem represents a delivery channel (e.g. email, SMS).
type NotificationSystem string

// NoticeType represents a kind of notification (e.g. "mfa_code").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"
)

const (
	// MfaCodeNotice carries a one-time MFA code to the user
	MfaCodeNotice NoticeType = "mfa_code"
)

// NotificationData is the per-send payload handed to a notifier
type NotificationData struct {
	To      string            // Recipient identifier (email address or phone number)
	Subject string            // Optional subject override
	Body    string            // Pre-rendered content, used when no template applies
	Data    map[string]string // Template values (e.g. {"Passcode": "482913"})
}

// NoticeTemplate describes how a notice renders on a given system
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier delivers a rendered notice over one channel. A non-nil error
// means the transport could not deliver; callers can rely on that being
// distinguishable from a verification failure.
type Notifier interface {
	Send(noticeType NoticeType, data NotificationData, template NoticeTemplate) error
}
