// Package sms implements a notifier.Notifier backed by a generic HTTP
// SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/port/notifier"
)

func init() {
	notifier.Register(message.ChannelSMS, func(cfg map[string]string) (notifier.Notifier, error) {
		n := NewNotifier(cfg["gateway_url"], cfg["token"], cfg["sender"])
		if d, err := time.ParseDuration(cfg["timeout"]); err == nil && d > 0 {
			n.httpClient.Timeout = d
		}
		return n, nil
	})
}

// Notifier sends SMS messages through a gateway endpoint.
type Notifier struct {
	gatewayURL string
	token      string
	sender     string
	httpClient *http.Client
}

// NewNotifier creates an SMS notifier for the given gateway.
func NewNotifier(gatewayURL, token, sender string) *Notifier {
	return &Notifier{
		gatewayURL: gatewayURL,
		token:      token,
		sender:     sender,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Channel returns the channel this notifier serves.
func (n *Notifier) Channel() message.Channel { return message.ChannelSMS }

type outboundSMS struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

// Send posts the message to the gateway. The recipient is the lead's
// phone number.
func (n *Notifier) Send(ctx context.Context, d notifier.Delivery) error {
	if n.gatewayURL == "" {
		return notifier.ErrNotConfigured
	}
	if d.Recipient == "" {
		return fmt.Errorf("sms: message %s has no recipient phone", d.MessageID)
	}

	body, err := json.Marshal(outboundSMS{To: d.Recipient, From: n.sender, Text: d.Body})
	if err != nil {
		return fmt.Errorf("sms marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.gatewayURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms gateway %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
