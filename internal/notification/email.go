package notification

import (
	"fmt"
	"net/smtp"
)

// Mailer is the outbound email delivery collaborator. A failed Send is
// reported to the caller but never rolls back state persisted before
// dispatch.
type Mailer interface {
	Send(toEmail, toName, subject, bodyHTML string) error
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailService delivers mail over SMTP.
type EmailService struct {
	config EmailConfig
}

// NewEmailService creates a new SMTP-backed mailer.
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// Send delivers a single HTML email.
func (s *EmailService) Send(toEmail, toName, subject, bodyHTML string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	to := toEmail
	if toName != "" {
		to = fmt.Sprintf("%s <%s>", toName, toEmail)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, bodyHTML)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{toEmail}, []byte(msg))
}

// VerificationEmail builds the subject and body for a one-time code
// email.
func VerificationEmail(handle, code string) (subject, body string) {
	subject = "Rishta Verification Code"
	body = fmt.Sprintf(`<html><body>
		<h2>Hello %s,</h2>
		<p>Thank you for registering. Use the following code to verify your account:</p>
		<p style="font-size:24px;font-weight:bold;letter-spacing:4px;">%s</p>
		<p>This code expires in 1 hour.</p>
		<p>If you did not request this code, please ignore this email.</p>
	</body></html>`, handle, code)
	return subject, body
}
