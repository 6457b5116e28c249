package notification

import "sync"

// MockNotifier records every send instead of delivering it. Safe for
// concurrent use; tests inspect SentNotifications afterwards.
type MockNotifier struct {
	mu                sync.Mutex
	SentNotifications []NotificationData
	FailWith          error // when set, Send returns this error
}

func (m *MockNotifier) Send(noticeType NoticeType, data NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.SentNotifications = append(m.SentNotifications, data)
	return nil
}

// Sent returns a copy of the recorded notifications
func (m *MockNotifier) Sent() []NotificationData {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]NotificationData, len(m.SentNotifications))
	copy(out, m.SentNotifications)
	return out
}
