// Package email delivers transactional mail for the credential flows.
package email

import (
	"fmt"
	"log"
	"net/smtp"
)

// Sender delivers the transactional emails the auth flows need
type Sender interface {
	SendVerification(to, token string) error
	SendPasswordReset(to, token string) error
	SendWelcome(to string) error
}

// SMTPSender sends mail over plain SMTP with optional AUTH
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	appURL   string
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, username, password, from, fromName, appURL string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		appURL:   appURL,
	}
}

func (s *SMTPSender) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.fromName, s.from, to, subject, body)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	return smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg))
}

func (s *SMTPSender) SendVerification(to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.appURL, token)
	body := fmt.Sprintf("Welcome!\n\nPlease verify your email address by opening the link below. The link expires in 24 hours.\n\n%s\n", link)
	return s.send(to, "Verify your email", body)
}

func (s *SMTPSender) SendPasswordReset(to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, token)
	body := fmt.Sprintf("A password reset was requested for your account.\n\nOpen the link below to choose a new password. The link expires in 1 hour. If you did not request this, ignore this email.\n\n%s\n", link)
	return s.send(to, "Reset your password", body)
}

func (s *SMTPSender) SendWelcome(to string) error {
	body := "Your email is verified and your account is ready.\n\nHappy budgeting!\n"
	return s.send(to, "Welcome aboard", body)
}

// LogSender writes emails to the application log instead of sending them.
// Used in development when no SMTP host is configured.
type LogSender struct{}

func (LogSender) SendVerification(to, token string) error {
	log.Printf("[EMAIL] Verification for %s, token: %s", to, token)
	return nil
}

func (LogSender) SendPasswordReset(to, token string) error {
	log.Printf("[EMAIL] Password reset for %s, token: %s", to, token)
	return nil
}

func (LogSender) SendWelcome(to string) error {
	log.Printf("[EMAIL] Welcome mail for %s", to)
	return nil
}
