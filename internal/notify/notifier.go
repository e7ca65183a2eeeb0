package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seedvault/internal/models"
	"seedvault/internal/storage"
)

// Notifier fans moderation and request outcomes into user inboxes and the
// email delivery queue. Failures are logged and never roll back the mutation
// that triggered them.
type Notifier struct {
	store  storage.Repository
	queue  Queue
	logger *slog.Logger
}

// NewNotifier constructs a notifier. The queue may be nil when email delivery
// is disabled.
func NewNotifier(store storage.Repository, queue Queue, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: store, queue: queue, logger: logger}
}

// PeerBanCreated notifies the banned user, when the ban targets a known
// account, that a ban was placed against them.
func (n *Notifier) PeerBanCreated(ctx context.Context, ban models.PeerBan, admin models.User) {
	if n == nil || ban.UserID == nil {
		return
	}
	message := fmt.Sprintf("A tracker ban was placed on your account: %s", ban.Reason)
	if ban.ExpiresAt != nil {
		message = fmt.Sprintf("%s (expires %s)", message, ban.ExpiresAt.UTC().Format(time.RFC3339))
	}
	n.deliver(ctx, *ban.UserID, storage.CreateNotificationParams{
		UserID:       *ban.UserID,
		Type:         models.NotificationPeerBanCreated,
		Message:      message,
		AdminID:      &admin.ID,
		RelatedBanID: &ban.ID,
	}, "Tracker ban placed on your account", message)
}

// PeerBanRemoved notifies the previously banned user that the ban was lifted.
func (n *Notifier) PeerBanRemoved(ctx context.Context, ban models.PeerBan, admin models.User) {
	if n == nil || ban.UserID == nil {
		return
	}
	message := "A tracker ban on your account has been lifted."
	n.deliver(ctx, *ban.UserID, storage.CreateNotificationParams{
		UserID:       *ban.UserID,
		Type:         models.NotificationPeerBanRemoved,
		Message:      message,
		AdminID:      &admin.ID,
		RelatedBanID: &ban.ID,
	}, "Tracker ban lifted", message)
}

// RequestFilled notifies the request owner that their request was filled.
func (n *Notifier) RequestFilled(ctx context.Context, request models.Request, filler models.User, torrent models.Torrent) {
	if n == nil {
		return
	}
	if request.UserID == filler.ID {
		// Filling your own request produces no inbox entry.
		return
	}
	message := fmt.Sprintf("Your request %q was filled by %s with %q.", request.Title, filler.Username, torrent.Name)
	n.deliver(ctx, request.UserID, storage.CreateNotificationParams{
		UserID:  request.UserID,
		Type:    models.NotificationRequestFilled,
		Message: message,
	}, "Your request was filled", message)
}

func (n *Notifier) deliver(ctx context.Context, userID string, params storage.CreateNotificationParams, subject, body string) {
	if n.store != nil {
		if _, err := n.store.CreateNotification(params); err != nil {
			n.logger.Error("notification create failed", "user_id", userID, "type", params.Type, "error", err)
		}
	}
	if n.queue == nil {
		return
	}
	recipient, err := n.store.GetUser(userID)
	if err != nil {
		n.logger.Error("notification recipient lookup failed", "user_id", userID, "error", err)
		return
	}
	if recipient.Email == "" {
		return
	}
	event := Event{
		Type: EventTypeEmail,
		Email: &EmailEvent{
			To:      recipient.Email,
			Subject: subject,
			Body:    body,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := n.queue.Publish(ctx, event); err != nil {
		n.logger.Error("email enqueue failed", "user_id", userID, "type", params.Type, "error", err)
	}
}
