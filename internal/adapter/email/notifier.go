// Package email provides an SMTP-based notifier for scheduled messages.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/port/notifier"
)

func init() {
	notifier.Register(message.ChannelEmail, func(cfg map[string]string) (notifier.Notifier, error) {
		return NewNotifier(SMTPConfig{
			Host:     cfg["host"],
			Port:     cfg["port"],
			Username: cfg["username"],
			Password: cfg["password"],
			From:     cfg["from"],
		}), nil
	})
}

// SMTPConfig holds the configuration for SMTP connections.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Notifier sends email messages via SMTP.
type Notifier struct {
	cfg SMTPConfig
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg SMTPConfig) *Notifier {
	return &Notifier{cfg: cfg}
}

// Channel returns the channel this notifier serves.
func (n *Notifier) Channel() message.Channel { return message.ChannelEmail }

// Send delivers the message body as a plain-text email. The recipient is
// the lead's email address.
func (n *Notifier) Send(_ context.Context, d notifier.Delivery) error {
	if n.cfg.Host == "" || n.cfg.From == "" {
		return notifier.ErrNotConfigured
	}
	if d.Recipient == "" {
		return fmt.Errorf("email: message %s has no recipient address", d.MessageID)
	}

	addr := n.cfg.Host + ":" + n.cfg.Port

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		n.cfg.From, d.Recipient, "Follow-up", d.Body)

	var auth smtp.Auth
	if n.cfg.Password != "" {
		user := n.cfg.Username
		if user == "" {
			user = n.cfg.From
		}
		auth = smtp.PlainAuth("", user, n.cfg.Password, n.cfg.Host)
	}

	return smtp.SendMail(addr, auth, n.cfg.From, []string{d.Recipient}, []byte(msg))
}
