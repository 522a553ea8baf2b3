// Package notifier defines the outbound delivery port (interface) and the
// channel registry. The engine only records that a message was handed to a
// notifier; delivery guarantees and retries are the notifier's concern.
package notifier

import (
	"context"
	"errors"

	"github.com/fluxcrm/leadengine/internal/domain/message"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Delivery is the payload handed to a Notifier for one due message.
type Delivery struct {
	MessageID string `json:"message_id"`
	TenantID  string `json:"tenant_id"`
	LeadID    string `json:"lead_id"`
	Body      string `json:"body"`
	// Recipient is the channel-specific address (phone number, email),
	// resolved from the lead's attribute bag by the dispatcher.
	Recipient string `json:"recipient"`
}

// Notifier is the port interface for sending a message over one channel.
type Notifier interface {
	// Channel returns the message channel this notifier serves.
	Channel() message.Channel

	// Send delivers the message. A returned error marks the message failed;
	// the engine never retries on its own.
	Send(ctx context.Context, d Delivery) error
}
