// Package message defines the ScheduledMessage domain entity, an outbound
// communication queued for a future send.
package message

import (
	"fmt"
	"strings"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain"
)

// Status represents the state of a scheduled message. Sent, failed and
// cancelled are all terminal; a terminal message is never re-scheduled,
// a new one is created instead.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Channel identifies the delivery medium of a message.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
)

// ValidChannels is the set of supported delivery channels.
var ValidChannels = map[Channel]bool{
	ChannelWhatsApp: true,
	ChannelEmail:    true,
	ChannelSMS:      true,
}

// ScheduledMessage is an outbound communication attached to a lead. The
// engine records scheduling and outcome; delivery belongs to the notifier
// collaborator.
type ScheduledMessage struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	LeadID        string     `json:"lead_id"`
	OwnerID       string     `json:"owner_id"`
	Channel       Channel    `json:"channel"`
	Body          string     `json:"body"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	Status        Status     `json:"status"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Due reports whether the message should be handed to the notifier as of
// the given instant.
func (m *ScheduledMessage) Due(asOf time.Time) bool {
	return m.Status == StatusScheduled && !m.ScheduledAt.After(asOf)
}

// MarkSent transitions the message to sent. Only scheduled messages may
// transition; SentAt is set exactly once.
func (m *ScheduledMessage) MarkSent(now time.Time) error {
	if err := m.requireScheduled(); err != nil {
		return err
	}
	m.Status = StatusSent
	m.SentAt = &now
	m.UpdatedAt = now
	return nil
}

// MarkFailed transitions the message to failed with the notifier's reason.
func (m *ScheduledMessage) MarkFailed(now time.Time, reason string) error {
	if err := m.requireScheduled(); err != nil {
		return err
	}
	m.Status = StatusFailed
	m.FailureReason = reason
	m.UpdatedAt = now
	return nil
}

// Cancel transitions the message to cancelled.
func (m *ScheduledMessage) Cancel(now time.Time) error {
	if err := m.requireScheduled(); err != nil {
		return err
	}
	m.Status = StatusCancelled
	m.UpdatedAt = now
	return nil
}

func (m *ScheduledMessage) requireScheduled() error {
	if m.Status != StatusScheduled {
		return fmt.Errorf("%w: message %s is %s", domain.ErrInvalidState, m.ID, m.Status)
	}
	return nil
}

// CreateRequest holds the fields needed to schedule a message. A past
// ScheduledAt is accepted and means "send on the next dispatcher poll";
// a zero value is rejected.
type CreateRequest struct {
	LeadID      string    `json:"lead_id"`
	OwnerID     string    `json:"owner_id"`
	Channel     Channel   `json:"channel"`
	Body        string    `json:"body"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Validate checks the CreateRequest.
func (r *CreateRequest) Validate() error {
	if !ValidChannels[r.Channel] {
		return fmt.Errorf("%w: unknown channel %q", domain.ErrValidation, r.Channel)
	}
	if strings.TrimSpace(r.Body) == "" {
		return fmt.Errorf("%w: message body is required", domain.ErrValidation)
	}
	if r.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled_at is required", domain.ErrValidation)
	}
	return nil
}
