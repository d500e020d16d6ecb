package main

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Zachkp/globe-portfolio/internal/config"
)

var errSMTPNotConfigured = errors.New("SMTP credentials not configured")

// contactMessage is one submission of the contact form.
type contactMessage struct {
	Name    string
	Email   string
	Message string
}

func (m contactMessage) valid() bool {
	return strings.TrimSpace(m.Name) != "" &&
		strings.Contains(m.Email, "@") &&
		strings.TrimSpace(m.Message) != ""
}

// mailer delivers a contact message. Tests replace sendContactEmail.
type mailer func(cfg config.SMTPConfig, msg contactMessage) error

// headerSafe drops line breaks so form input cannot add mail headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

func sendContactEmail(cfg config.SMTPConfig, msg contactMessage) error {
	if !cfg.Enabled() {
		return errSMTPNotConfigured
	}

	subject := fmt.Sprintf("Portfolio Contact: %s", headerSafe(msg.Name))
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, msg.Name, msg.Email, msg.Message)

	raw := []byte("To: " + cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + cfg.User + "\r\n" +
		"Reply-To: " + headerSafe(msg.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	if err := smtp.SendMail(cfg.Host+":"+cfg.Port, auth, cfg.User, []string{cfg.To}, raw); err != nil {
		return fmt.Errorf("send contact email: %w", err)
	}

	log.Info().Str("name", msg.Name).Msg("contact email sent")
	return nil
}
