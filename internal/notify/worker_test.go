package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"seedvault/internal/mail"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) sent() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mail.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func TestWorkerDeliversEmailEvents(t *testing.T) {
	queue := NewMemoryQueue(4)
	sender := &recordingSender{}
	worker := NewWorker(queue, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	// Give the worker time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	event := Event{
		Type:  EventTypeEmail,
		Email: &EmailEvent{To: "user@example.com", Subject: "subject", Body: "body"},
	}
	if err := queue.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if msgs := sender.sent(); len(msgs) == 1 {
			if msgs[0].To != "user@example.com" || msgs[0].Subject != "subject" {
				t.Fatalf("unexpected message: %+v", msgs[0])
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for delivery")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop after cancel")
	}
}

func TestWorkerSkipsNonEmailEvents(t *testing.T) {
	queue := NewMemoryQueue(4)
	sender := &recordingSender{}
	worker := NewWorker(queue, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	if err := queue.Publish(context.Background(), Event{Type: "unknown"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if msgs := sender.sent(); len(msgs) != 0 {
		t.Fatalf("expected no deliveries, got %d", len(msgs))
	}
}
