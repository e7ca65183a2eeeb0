package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"seedvault/internal/mail"
)

// Worker drains the delivery queue and hands email events to the mailer.
type Worker struct {
	queue      Queue
	sender     mail.Sender
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewWorker constructs a delivery worker bound to the queue and sender.
func NewWorker(queue Queue, sender mail.Sender, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:      queue,
		sender:     sender,
		logger:     logger,
		maxRetries: 2,
		retryDelay: 2 * time.Second,
	}
}

// Run consumes queued events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.queue == nil {
		return
	}
	sub := w.queue.Subscribe()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if event.Type != EventTypeEmail || event.Email == nil {
		return
	}
	msg := mail.Message{
		To:      event.Email.To,
		Subject: event.Email.Subject,
		Body:    event.Email.Body,
	}
	var err error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryDelay):
			}
		}
		err = w.sender.Send(ctx, msg)
		if err == nil {
			w.logger.Info("email delivered", "to", msg.To, "subject", msg.Subject)
			return
		}
		if errors.Is(err, mail.ErrNotConfigured) {
			// No point retrying until an admin saves SMTP settings.
			break
		}
	}
	w.logger.Error("email delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
}
