// Package event defines the domain event envelope emitted after every
// successful mutation, consumed by the reporting and notifier collaborators.
package event

import (
	"encoding/json"
	"time"
)

// Type identifies the kind of domain event.
type Type string

const (
	TypeStageCreated   Type = "pipeline.stage.created"
	TypeStageReordered Type = "pipeline.stage.reordered"
	TypeStageDeleted   Type = "pipeline.stage.deleted"

	TypeLeadCreated Type = "pipeline.lead.created"
	TypeLeadMoved   Type = "pipeline.lead.moved"
	TypeLeadUpdated Type = "pipeline.lead.updated"
	TypeLeadDeleted Type = "pipeline.lead.deleted"

	TypeTaskCreated   Type = "followup.task.created"
	TypeTaskCompleted Type = "followup.task.completed"
	TypeTaskCancelled Type = "followup.task.cancelled"

	TypeMessageScheduled Type = "followup.message.scheduled"
	TypeMessageSent      Type = "followup.message.sent"
	TypeMessageFailed    Type = "followup.message.failed"
	TypeMessageCancelled Type = "followup.message.cancelled"
)

// Event is the envelope published for every successful mutation.
type Event struct {
	Type       Type            `json:"event_type"`
	TenantID   string          `json:"tenant_id"`
	EntityID   string          `json:"entity_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// New builds an event envelope, marshaling the payload. A payload that
// fails to marshal is dropped rather than blocking the mutation's event.
func New(t Type, tenantID, entityID string, payload any) Event {
	ev := Event{
		Type:       t,
		TenantID:   tenantID,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Payload = data
		}
	}
	return ev
}
