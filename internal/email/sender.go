package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Sender delivers the account lifecycle emails. Delivery is best-effort:
// the account service logs failures and carries on.
type Sender interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// SMTPSender delivers through a plain SMTP relay configured from the
// SMTP_* environment keys. No third-party mail client is involved.
type SMTPSender struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (s *SMTPSender) SendVerification(_ context.Context, to, token string) error {
	body := fmt.Sprintf("Use the token below to verify your email address:\r\n\r\n%s\r\n", token)
	return s.send(to, "Verify your email", body)
}

func (s *SMTPSender) SendPasswordReset(_ context.Context, to, token string) error {
	body := fmt.Sprintf("Use the token below to reset your password. It is valid for 1 day:\r\n\r\n%s\r\n", token)
	return s.send(to, "Reset your password", body)
}

func (s *SMTPSender) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.From, to, subject, body)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	return smtp.SendMail(s.Host+":"+s.Port, auth, s.From, []string{to}, []byte(msg))
}

// LogSender stands in when no SMTP relay is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendVerification(_ context.Context, to, token string) error {
	s.Logger.Info("verification_email", "to", to, "token", token)
	return nil
}

func (s *LogSender) SendPasswordReset(_ context.Context, to, token string) error {
	s.Logger.Info("password_reset_email", "to", to, "token", token)
	return nil
}
