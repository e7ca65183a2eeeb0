// Package notify records in-app notifications and queues the email side
// effects that moderation actions produce.
package notify

import "time"

// EventType identifies the kind of queued event.
type EventType string

// EventTypeEmail marks an event carrying an outbound email.
const EventTypeEmail EventType = "email"

// EmailEvent describes an email waiting for delivery.
type EmailEvent struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Event is the unit published to the delivery queue.
type Event struct {
	Type       EventType   `json:"type"`
	Email      *EmailEvent `json:"email,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}
