package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	messages []*gomail.Message
	err      error
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.messages = append(r.messages, m...)
	return r.err
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestService_SendPasswordReset(t *testing.T) {
	sender := &recordingSender{}
	svc := NewWithSender(sender, "noreply@example.com")

	require.NoError(t, svc.SendPasswordReset(context.Background(), "alice@example.com", "alice"))
	require.Len(t, sender.messages, 1)

	m := sender.messages[0]
	assert.Equal(t, []string{"alice@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"noreply@example.com"}, m.GetHeader("From"))
	assert.Contains(t, render(t, m), "Hello alice")
}

func TestService_SendAccountLocked(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	svc := NewWithSender(sender, "noreply@example.com")

	err := svc.SendAccountLocked(context.Background(), "bob@example.com", "bob")
	assert.ErrorContains(t, err, "smtp down")
	assert.Len(t, sender.messages, 1)
}

func TestService_CancelledContext(t *testing.T) {
	sender := &recordingSender{}
	svc := NewWithSender(sender, "noreply@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.SendAccountLocked(ctx, "bob@example.com", "bob"), context.Canceled)
	assert.Empty(t, sender.messages)
}

func TestNewService_Disabled(t *testing.T) {
	assert.IsType(t, NoopService{}, NewService(Config{}))
}
