package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Service sends account notices. Notices never include a password.
type Service interface {
	SendAccountLocked(ctx context.Context, to, username string) error
	SendPasswordReset(ctx context.Context, to, username string) error
}

// Sender delivers messages; *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	sender Sender
	from   string
}

// NewService returns an SMTP backed service, or a no-op one when mail is disabled.
func NewService(cfg Config) Service {
	if !cfg.Enabled {
		return NoopService{}
	}
	return NewWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

func NewWithSender(sender Sender, from string) Service {
	return &smtpService{sender: sender, from: from}
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

func (s *smtpService) SendAccountLocked(ctx context.Context, to, username string) error {
	return s.send(ctx, to, "Your account has been locked",
		fmt.Sprintf("Hello %s,\n\nAn administrator has locked your account. Contact support if you think this is a mistake.\n", username))
}

func (s *smtpService) SendPasswordReset(ctx context.Context, to, username string) error {
	return s.send(ctx, to, "Your password has been reset",
		fmt.Sprintf("Hello %s,\n\nAn administrator has reset your password. You will receive the new password through a separate channel.\n", username))
}

type NoopService struct{}

func (NoopService) SendAccountLocked(context.Context, string, string) error { return nil }

func (NoopService) SendPasswordReset(context.Context, string, string) error { return nil }
