package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"seedvault/internal/models"
)

// postgresSchema is the embedded DDL applied by MigratePostgres. Statements
// are idempotent so the migration can run on every boot.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		passkey TEXT NOT NULL UNIQUE,
		rss_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		rss_token TEXT,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		parent_id TEXT REFERENCES categories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS torrents (
		id TEXT PRIMARY KEY,
		info_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		uploader_id TEXT NOT NULL REFERENCES users(id),
		category_id TEXT NOT NULL REFERENCES categories(id),
		file_path TEXT NOT NULL DEFAULT '',
		nfo_path TEXT,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		is_approved BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category_id TEXT REFERENCES categories(id),
		status TEXT NOT NULL,
		filled_by_id TEXT REFERENCES users(id),
		filled_torrent_id TEXT REFERENCES torrents(id),
		created_at TIMESTAMPTZ NOT NULL,
		filled_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS peer_bans (
		id TEXT PRIMARY KEY,
		user_id TEXT REFERENCES users(id),
		passkey TEXT,
		peer_id TEXT,
		ip TEXT,
		reason TEXT NOT NULL,
		expires_at TIMESTAMPTZ,
		banned_by_id TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS announcements (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		pinned BOOLEAN NOT NULL DEFAULT FALSE,
		visible BOOLEAN NOT NULL DEFAULT TRUE,
		created_by_id TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wiki_pages (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		parent_id TEXT REFERENCES wiki_pages(id),
		visible BOOLEAN NOT NULL DEFAULT TRUE,
		locked BOOLEAN NOT NULL DEFAULT FALSE,
		created_by_id TEXT NOT NULL REFERENCES users(id),
		updated_by_id TEXT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		admin_id TEXT REFERENCES users(id),
		related_ban_id TEXT,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookmarks (
		user_id TEXT NOT NULL REFERENCES users(id),
		torrent_id TEXT NOT NULL REFERENCES torrents(id),
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, torrent_id)
	)`,
	`CREATE TABLE IF NOT EXISTS site_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		registration_mode TEXT NOT NULL,
		require_torrent_approval BOOLEAN NOT NULL,
		smtp_host TEXT NOT NULL DEFAULT '',
		smtp_port INTEGER NOT NULL DEFAULT 0,
		smtp_username TEXT NOT NULL DEFAULT '',
		smtp_password TEXT NOT NULL DEFAULT '',
		smtp_from TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS auth_sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		absolute_expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_torrents_category ON torrents(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_auth_sessions_expires ON auth_sessions(expires_at)`,
}

// MigratePostgres applies the embedded schema to the database at dsn.
func MigratePostgres(ctx context.Context, dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("postgres dsn required")
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close(ctx)

	for _, statement := range postgresSchema {
		if _, err := conn.Exec(ctx, statement); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

func (r *postgresRepository) withConn(fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	ctx := context.Background()
	if r.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.AcquireTimeout)
		defer cancel()
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire postgres connection: %w", err)
	}
	defer conn.Release()
	return fn(ctx, conn)
}

func rollbackTx(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx)
}

func (r *postgresRepository) importSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if r == nil || r.pool == nil {
		return ErrPostgresUnavailable
	}
	return r.withConn(func(_ context.Context, conn *pgxpool.Conn) error {
		tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin snapshot transaction: %w", err)
		}
		defer rollbackTx(ctx, tx)

		if err := importSnapshotUsers(ctx, tx, snapshot.Users); err != nil {
			return err
		}
		if err := importSnapshotCategories(ctx, tx, snapshot.Categories); err != nil {
			return err
		}
		if err := importSnapshotTorrents(ctx, tx, snapshot.Torrents); err != nil {
			return err
		}
		if err := importSnapshotRequests(ctx, tx, snapshot.Requests); err != nil {
			return err
		}
		if err := importSnapshotPeerBans(ctx, tx, snapshot.PeerBans); err != nil {
			return err
		}
		if err := importSnapshotAnnouncements(ctx, tx, snapshot.Announcements); err != nil {
			return err
		}
		if err := importSnapshotWikiPages(ctx, tx, snapshot.WikiPages); err != nil {
			return err
		}
		if err := importSnapshotNotifications(ctx, tx, snapshot.Notifications); err != nil {
			return err
		}
		if err := importSnapshotBookmarks(ctx, tx, snapshot.Bookmarks); err != nil {
			return err
		}
		if err := importSnapshotSiteConfig(ctx, tx, snapshot.Config); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit snapshot import: %w", err)
		}
		return nil
	})
}

func sortedKeys[V any](entries map[string]V) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizeCreatedAt(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts.UTC()
}

func optionalString(value *string) any {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return strings.TrimSpace(*value)
}

func optionalTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return value.UTC()
}

func importSnapshotUsers(ctx context.Context, tx pgx.Tx, users map[string]models.User) error {
	for _, key := range sortedKeys(users) {
		user := users[key]
		id := strings.TrimSpace(user.ID)
		if id == "" {
			id = key
		}
		_, err := tx.Exec(ctx, "INSERT INTO users (id, username, email, password_hash, role, status, passkey, rss_enabled, rss_token, email_verified, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (id) DO NOTHING", id, strings.TrimSpace(user.Username), strings.TrimSpace(user.Email), user.PasswordHash, user.Role, user.Status, user.Passkey, user.RSSEnabled, user.RSSToken, user.EmailVerified, normalizeCreatedAt(user.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert user %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotCategories(ctx context.Context, tx pgx.Tx, categories map[string]models.Category) error {
	keys := sortedKeys(categories)
	// Parents first so child rows satisfy the self-reference.
	for pass := 0; pass < 2; pass++ {
		for _, key := range keys {
			category := categories[key]
			isChild := category.ParentID != nil
			if (pass == 0) == isChild {
				continue
			}
			id := strings.TrimSpace(category.ID)
			if id == "" {
				id = key
			}
			_, err := tx.Exec(ctx, "INSERT INTO categories (id, name, description, parent_id) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING", id, strings.TrimSpace(category.Name), category.Description, optionalString(category.ParentID))
			if err != nil {
				return fmt.Errorf("insert category %s: %w", id, err)
			}
		}
	}
	return nil
}

func importSnapshotTorrents(ctx context.Context, tx pgx.Tx, torrents map[string]models.Torrent) error {
	for _, key := range sortedKeys(torrents) {
		torrent := torrents[key]
		id := strings.TrimSpace(torrent.ID)
		if id == "" {
			id = key
		}
		var nfoPath any
		if torrent.NFOPath != "" {
			nfoPath = torrent.NFOPath
		}
		_, err := tx.Exec(ctx, "INSERT INTO torrents (id, info_hash, name, description, uploader_id, category_id, file_path, nfo_path, size_bytes, is_approved, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (id) DO NOTHING", id, torrent.InfoHash, torrent.Name, torrent.Description, torrent.UploaderID, torrent.CategoryID, torrent.FilePath, nfoPath, torrent.Size, torrent.IsApproved, normalizeCreatedAt(torrent.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert torrent %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotRequests(ctx context.Context, tx pgx.Tx, requests map[string]models.Request) error {
	for _, key := range sortedKeys(requests) {
		request := requests[key]
		id := strings.TrimSpace(request.ID)
		if id == "" {
			id = key
		}
		_, err := tx.Exec(ctx, "INSERT INTO requests (id, user_id, title, description, category_id, status, filled_by_id, filled_torrent_id, created_at, filled_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) ON CONFLICT (id) DO NOTHING", id, request.UserID, request.Title, request.Description, optionalString(request.CategoryID), request.Status, optionalString(request.FilledByID), optionalString(request.FilledTorrentID), normalizeCreatedAt(request.CreatedAt), optionalTime(request.FilledAt))
		if err != nil {
			return fmt.Errorf("insert request %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotPeerBans(ctx context.Context, tx pgx.Tx, bans map[string]models.PeerBan) error {
	for _, key := range sortedKeys(bans) {
		ban := bans[key]
		id := strings.TrimSpace(ban.ID)
		if id == "" {
			id = key
		}
		_, err := tx.Exec(ctx, "INSERT INTO peer_bans (id, user_id, passkey, peer_id, ip, reason, expires_at, banned_by_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (id) DO NOTHING", id, optionalString(ban.UserID), optionalString(ban.Passkey), optionalString(ban.PeerID), optionalString(ban.IP), ban.Reason, optionalTime(ban.ExpiresAt), ban.BannedByID, normalizeCreatedAt(ban.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert peer ban %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotAnnouncements(ctx context.Context, tx pgx.Tx, announcements map[string]models.Announcement) error {
	for _, key := range sortedKeys(announcements) {
		announcement := announcements[key]
		id := strings.TrimSpace(announcement.ID)
		if id == "" {
			id = key
		}
		_, err := tx.Exec(ctx, "INSERT INTO announcements (id, title, body, pinned, visible, created_by_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING", id, announcement.Title, announcement.Body, announcement.Pinned, announcement.Visible, announcement.CreatedByID, normalizeCreatedAt(announcement.CreatedAt), normalizeCreatedAt(announcement.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert announcement %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotWikiPages(ctx context.Context, tx pgx.Tx, pages map[string]models.WikiPage) error {
	keys := sortedKeys(pages)
	for pass := 0; pass < 2; pass++ {
		for _, key := range keys {
			page := pages[key]
			isChild := page.ParentID != nil
			if (pass == 0) == isChild {
				continue
			}
			id := strings.TrimSpace(page.ID)
			if id == "" {
				id = key
			}
			var updatedBy any
			if strings.TrimSpace(page.UpdatedByID) != "" {
				updatedBy = page.UpdatedByID
			}
			_, err := tx.Exec(ctx, "INSERT INTO wiki_pages (id, slug, title, content, parent_id, visible, locked, created_by_id, updated_by_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (id) DO NOTHING", id, page.Slug, page.Title, page.Content, optionalString(page.ParentID), page.Visible, page.Locked, page.CreatedByID, updatedBy, normalizeCreatedAt(page.CreatedAt), normalizeCreatedAt(page.UpdatedAt))
			if err != nil {
				return fmt.Errorf("insert wiki page %s: %w", id, err)
			}
		}
	}
	return nil
}

func importSnapshotNotifications(ctx context.Context, tx pgx.Tx, notifications map[string]models.Notification) error {
	for _, key := range sortedKeys(notifications) {
		notification := notifications[key]
		id := strings.TrimSpace(notification.ID)
		if id == "" {
			id = key
		}
		_, err := tx.Exec(ctx, "INSERT INTO notifications (id, user_id, type, message, admin_id, related_ban_id, read, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING", id, notification.UserID, notification.Type, notification.Message, optionalString(notification.AdminID), optionalString(notification.RelatedBanID), notification.Read, normalizeCreatedAt(notification.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert notification %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotBookmarks(ctx context.Context, tx pgx.Tx, bookmarks map[string]map[string]models.Bookmark) error {
	for _, userID := range sortedKeys(bookmarks) {
		marks := bookmarks[userID]
		for _, torrentID := range sortedKeys(marks) {
			mark := marks[torrentID]
			_, err := tx.Exec(ctx, "INSERT INTO bookmarks (user_id, torrent_id, note, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING", userID, torrentID, mark.Note, normalizeCreatedAt(mark.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert bookmark %s/%s: %w", userID, torrentID, err)
			}
		}
	}
	return nil
}

func importSnapshotSiteConfig(ctx context.Context, tx pgx.Tx, config models.SiteConfig) error {
	if config.RegistrationMode == "" {
		config.RegistrationMode = models.RegistrationOpen
	}
	_, err := tx.Exec(ctx, "INSERT INTO site_config (id, registration_mode, require_torrent_approval, smtp_host, smtp_port, smtp_username, smtp_password, smtp_from) VALUES (1, $1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING", config.RegistrationMode, config.RequireTorrentApproval, config.SMTP.Host, config.SMTP.Port, config.SMTP.Username, config.SMTP.Password, config.SMTP.From)
	if err != nil {
		return fmt.Errorf("insert site config: %w", err)
	}
	return nil
}
