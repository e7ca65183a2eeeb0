package notify

import (
	"context"
	"testing"
	"time"
)

func TestMemoryQueueFanOut(t *testing.T) {
	queue := NewMemoryQueue(4)
	first := queue.Subscribe()
	second := queue.Subscribe()
	defer first.Close()
	defer second.Close()

	event := Event{
		Type:       EventTypeEmail,
		Email:      &EmailEvent{To: "user@example.com", Subject: "hi", Body: "body"},
		OccurredAt: time.Now(),
	}
	if err := queue.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	for _, sub := range []Subscription{first, second} {
		select {
		case got := <-sub.Events():
			if got.Email == nil || got.Email.To != "user@example.com" {
				t.Fatalf("unexpected event payload: %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event")
		}
	}
}

func TestMemoryQueueRejectsMissingType(t *testing.T) {
	queue := NewMemoryQueue(1)
	if err := queue.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error for event without type")
	}
}

func TestMemoryQueueDropsWhenSubscriberIsFull(t *testing.T) {
	queue := NewMemoryQueue(1)
	sub := queue.Subscribe()
	defer sub.Close()

	event := Event{Type: EventTypeEmail, Email: &EmailEvent{To: "a@example.com"}}
	for i := 0; i < 3; i++ {
		if err := queue.Publish(context.Background(), event); err != nil {
			t.Fatalf("Publish returned error: %v", err)
		}
	}
	if got := len(sub.Events()); got != 1 {
		t.Fatalf("expected exactly one buffered event, got %d", got)
	}
}

func TestMemorySubscriptionCloseIsIdempotent(t *testing.T) {
	queue := NewMemoryQueue(1)
	sub := queue.Subscribe()
	sub.Close()
	sub.Close()
	if err := queue.Publish(context.Background(), Event{Type: EventTypeEmail}); err != nil {
		t.Fatalf("Publish after close returned error: %v", err)
	}
}
