package service

import (
	"bitwise74/campus-finder/config"
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	SendVerification(ctx context.Context, to, name, code string) error
	// SendPasswordReset mails both the short code and the reset link
	SendPasswordReset(ctx context.Context, to, name, code, link string) error
}

// NewMailer returns an SMTP mailer when mail is enabled and a mailer that
// only logs the codes otherwise
func NewMailer(cfg config.MailConfig) Mailer {
	if !cfg.Enabled {
		return LogMailer{}
	}

	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.Sender,
	}
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, name, code string) error {
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Welcome to Campus Finder!</h2>
<p>Hello %s,</p>
<p>Use the code below to verify your email address:</p>
<h3 style="font-size: 24px; letter-spacing: 5px;">%s</h3>
<p>This code will expire in 15 minutes.</p>
<p>If you did not request this, please ignore this email.</p>
</div>`, html.EscapeString(name), code)

	return m.send(ctx, to, "Verify your email - Campus Finder", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, code, link string) error {
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Password reset request</h2>
<p>Hello %s,</p>
<p>Your reset code is:</p>
<h3 style="font-size: 24px; letter-spacing: 5px;">%s</h3>
<p>The code expires in 15 minutes. You can also click <a href="%s">here</a> to choose a new password, the link expires in 1 hour.</p>
<p>If you did not request a password reset, please ignore this email.</p>
</div>`, html.EscapeString(name), code, html.EscapeString(link))

	return m.send(ctx, to, "Reset your password - Campus Finder", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if to == m.from {
		return fmt.Errorf("refusing to send mail to the sender address")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.from, "Campus Finder"))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	// gomail has no context support, so a cancelled request only stops
	// the wait, not the SMTP session
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogMailer writes codes to the log instead of sending them. Used in
// development when no SMTP server is configured
type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, to, _, code string) error {
	zap.L().Info("Verification code", zap.String("email", to), zap.String("code", code))
	return nil
}

func (LogMailer) SendPasswordReset(_ context.Context, to, _, code, link string) error {
	zap.L().Info("Password reset requested", zap.String("email", to), zap.String("code", code), zap.String("link", link))
	return nil
}
