// Package whatsapp implements a notifier.Notifier backed by an HTTP
// WhatsApp gateway (whatsmeow-based or Cloud API compatible).
package whatsapp

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
	notifier.Register(message.ChannelWhatsApp, func(cfg map[string]string) (notifier.Notifier, error) {
		n := NewNotifier(cfg["gateway_url"], cfg["token"])
		if d, err := time.ParseDuration(cfg["timeout"]); err == nil && d > 0 {
			n.httpClient.Timeout = d
		}
		return n, nil
	})
}

// Notifier sends WhatsApp messages through a gateway endpoint.
type Notifier struct {
	gatewayURL string
	token      string
	httpClient *http.Client
}

// NewNotifier creates a WhatsApp notifier for the given gateway.
func NewNotifier(gatewayURL, token string) *Notifier {
	return &Notifier{
		gatewayURL: gatewayURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Channel returns the channel this notifier serves.
func (n *Notifier) Channel() message.Channel { return message.ChannelWhatsApp }

// outboundMessage is the gateway send payload.
type outboundMessage struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send posts the message to the gateway. The recipient is the lead's
// phone number in international format.
func (n *Notifier) Send(ctx context.Context, d notifier.Delivery) error {
	if n.gatewayURL == "" {
		return notifier.ErrNotConfigured
	}
	if d.Recipient == "" {
		return fmt.Errorf("whatsapp: message %s has no recipient phone", d.MessageID)
	}

	body, err := json.Marshal(outboundMessage{Phone: d.Recipient, Message: d.Body})
	if err != nil {
		return fmt.Errorf("whatsapp marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.gatewayURL+"/send/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp gateway %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
