// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"os"
	"strings"
	"time"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Attempts int
}

func ConfigFromEnv() Config {
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	return Config{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASS"),
		From:     os.Getenv("SENDER_EMAIL"),
		Attempts: 2,
	}
}

// SMTPSender sends through a relay with PLAIN auth.
type SMTPSender struct {
	cfg Config
	// send is smtp.SendMail; replaced in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg Config) *SMTPSender {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if s.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	body := build(s.cfg.From, m)
	var err error
	for i := 0; i < s.cfg.Attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * 500 * time.Millisecond):
			}
		}
		err = s.send(s.cfg.Host+":"+s.cfg.Port, auth, s.cfg.From, []string{m.To}, body)
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("send mail to %s: %w", m.To, err)
}

func build(from string, m Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.HTML)
	return []byte(b.String())
}

// Welcome is sent after registration.
func Welcome(to, name string) Message {
	return Message{
		To:      to,
		Subject: "Welcome to TrueSocial",
		HTML: fmt.Sprintf(`<html><body>
<h2>Welcome to TrueSocial, %s!</h2>
<p>Your account has been created with email id: %s</p>
</body></html>`, html.EscapeString(name), html.EscapeString(to)),
	}
}

// VerifyOTP carries the email verification code.
func VerifyOTP(to, otp string) Message {
	return Message{
		To:      to,
		Subject: "Account Verification OTP",
		HTML: fmt.Sprintf(`<html><body>
<h2>Verify your account</h2>
<p>Your OTP is <strong>%s</strong>. Verify your account using this OTP within 24 hours.</p>
</body></html>`, otp),
	}
}

// ResetOTP carries the password reset code.
func ResetOTP(to, otp string) Message {
	return Message{
		To:      to,
		Subject: "Password reset OTP",
		HTML: fmt.Sprintf(`<html><body>
<h2>Password reset</h2>
<p>Your OTP for resetting your password is <strong>%s</strong>. It is valid for 15 minutes.</p>
</body></html>`, otp),
	}
}
