package notification

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendUsesRegisteredNotifier(t *testing.T) {
	mock := &MockNotifier{}
	nm, err := NewNotificationManagerWithOptions(
		WithNotifier(EmailSystem, mock),
		WithDefaultTemplates(),
	)
	require.NoError(t, err)

	err = nm.Send(MfaCodeNotice, EmailSystem, NotificationData{
		To:   "user@example.com",
		Data: map[string]string{"Passcode": "482913"},
	})
	require.NoError(t, err)

	sent := mock.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "user@example.com", sent[0].To)
	assert.Equal(t, "482913", sent[0].Data["Passcode"])
}

func TestSendFailsWithoutNotifier(t *testing.T) {
	nm, err := NewNotificationManagerWithOptions(WithDefaultTemplates())
	require.NoError(t, err)

	err = nm.Send(MfaCodeNotice, SMSSystem, NotificationData{To: "+15551234567"})
	assert.Error(t, err)
}

func TestSendFailsWithoutTemplate(t *testing.T) {
	nm, err := NewNotificationManagerWithOptions(
		WithNotifier(EmailSystem, &MockNotifier{}),
	)
	require.NoError(t, err)

	err = nm.Send(MfaCodeNotice, EmailSystem, NotificationData{To: "user@example.com"})
	assert.Error(t, err)
}

func TestSendPropagatesTransportError(t *testing.T) {
	mock := &MockNotifier{FailWith: fmt.Errorf("smtp connect refused")}
	nm, err := NewNotificationManagerWithOptions(
		WithNotifier(EmailSystem, mock),
		WithDefaultTemplates(),
	)
	require.NoError(t, err)

	err = nm.Send(MfaCodeNotice, EmailSystem, NotificationData{To: "user@example.com"})
	assert.ErrorContains(t, err, "smtp connect refused")
}

func TestHasNotifier(t *testing.T) {
	nm, err := NewNotificationManagerWithOptions(
		WithNotifier(EmailSystem, &MockNotifier{}),
	)
	require.NoError(t, err)

	assert.True(t, nm.HasNotifier(EmailSystem))
	assert.False(t, nm.HasNotifier(SMSSystem))
}
