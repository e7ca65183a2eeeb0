package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"seedvault/internal/models"
)

// ErrPostgresUnavailable is returned when a repository method has not yet been
// ported to the Postgres driver.
var ErrPostgresUnavailable = fmt.Errorf("postgres repository unavailable")

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository. The caller must
// ensure migrations have been applied prior to invoking this constructor.
func NewPostgresRepository(dsn string, opts ...Option) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	return &postgresRepository{pool: pool, cfg: cfg}, nil
}

func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return ErrPostgresUnavailable
	}
	return r.pool.Ping(ctx)
}

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) AuthenticateUser(identifier, password string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetUser(id string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListUsers() []models.User {
	return nil
}

func (r *postgresRepository) UpdateUserProfile(id string, update ProfileUpdate) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) SetUserStatus(id string, status string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) SetUserRole(id string, role string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) RotatePasskey(id string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) SetRSSEnabled(id string, enabled bool) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ResetRSSToken(id string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) BootstrapOwner(username, email, password string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) CreateTorrent(params CreateTorrentParams) (models.Torrent, error) {
	return models.Torrent{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetTorrent(id string) (models.Torrent, error) {
	return models.Torrent{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListTorrents(filter TorrentFilter) []models.Torrent {
	return nil
}

func (r *postgresRepository) ApproveTorrent(id string) (models.Torrent, error) {
	return models.Torrent{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeleteTorrent(id string) (models.Torrent, error) {
	return models.Torrent{}, ErrPostgresUnavailable
}

func (r *postgresRepository) CreateCategory(params CategoryParams) (models.Category, error) {
	return models.Category{}, ErrPostgresUnavailable
}

func (r *postgresRepository) UpdateCategory(id string, params CategoryParams) (models.Category, error) {
	return models.Category{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeleteCategory(id string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) GetCategory(id string) (models.Category, error) {
	return models.Category{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListCategories() []models.Category {
	return nil
}

func (r *postgresRepository) CreateRequest(params CreateRequestParams) (models.Request, error) {
	return models.Request{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetRequest(id string) (models.Request, error) {
	return models.Request{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListRequests(filter RequestFilter) []models.Request {
	return nil
}

func (r *postgresRepository) FillRequest(id, fillerID, torrentID string) (models.Request, error) {
	return models.Request{}, ErrPostgresUnavailable
}

func (r *postgresRepository) CloseRequest(id string) (models.Request, error) {
	return models.Request{}, ErrPostgresUnavailable
}

func (r *postgresRepository) RejectRequest(id string) (models.Request, error) {
	return models.Request{}, ErrPostgresUnavailable
}

func (r *postgresRepository) CreatePeerBan(params CreatePeerBanParams) (models.PeerBan, error) {
	return models.PeerBan{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetPeerBan(id string) (models.PeerBan, error) {
	return models.PeerBan{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListPeerBans(filter PeerBanFilter) ([]models.PeerBan, error) {
	return nil, ErrPostgresUnavailable
}

func (r *postgresRepository) DeletePeerBan(id string) (models.PeerBan, error) {
	return models.PeerBan{}, ErrPostgresUnavailable
}

func (r *postgresRepository) CreateAnnouncement(params AnnouncementParams) (models.Announcement, error) {
	return models.Announcement{}, ErrPostgresUnavailable
}

func (r *postgresRepository) UpdateAnnouncement(id string, update AnnouncementUpdate) (models.Announcement, error) {
	return models.Announcement{}, ErrPostgresUnavailable
}

func (r *postgresRepository) SetAnnouncementFlag(id, flag string, value bool) (models.Announcement, error) {
	return models.Announcement{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeleteAnnouncement(id string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) GetAnnouncement(id string, includeHidden bool) (models.Announcement, error) {
	return models.Announcement{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListAnnouncements(includeHidden bool) []models.Announcement {
	return nil
}

func (r *postgresRepository) CreateWikiPage(params WikiPageParams) (models.WikiPage, error) {
	return models.WikiPage{}, ErrPostgresUnavailable
}

func (r *postgresRepository) UpdateWikiPage(id string, update WikiPageUpdate, editorID string) (models.WikiPage, error) {
	return models.WikiPage{}, ErrPostgresUnavailable
}

func (r *postgresRepository) SetWikiPageFlag(id, flag string, value bool) (models.WikiPage, error) {
	return models.WikiPage{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeleteWikiPage(id string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) GetWikiPage(id string, includeHidden bool) (models.WikiPage, error) {
	return models.WikiPage{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetWikiPageBySlug(slug string, includeHidden bool) (models.WikiPage, error) {
	return models.WikiPage{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListWikiPages(includeHidden bool) []models.WikiPage {
	return nil
}

func (r *postgresRepository) CreateNotification(params CreateNotificationParams) (models.Notification, error) {
	return models.Notification{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListNotifications(userID string, unreadOnly bool) []models.Notification {
	return nil
}

func (r *postgresRepository) MarkNotificationRead(userID, id string) (models.Notification, error) {
	return models.Notification{}, ErrPostgresUnavailable
}

func (r *postgresRepository) MarkAllNotificationsRead(userID string) (int, error) {
	return 0, ErrPostgresUnavailable
}

func (r *postgresRepository) ClearNotifications(userID string) (int, error) {
	return 0, ErrPostgresUnavailable
}

func (r *postgresRepository) AddBookmark(userID, torrentID, note string) (models.Bookmark, error) {
	return models.Bookmark{}, ErrPostgresUnavailable
}

func (r *postgresRepository) UpdateBookmarkNote(userID, torrentID, note string) (models.Bookmark, error) {
	return models.Bookmark{}, ErrPostgresUnavailable
}

func (r *postgresRepository) RemoveBookmark(userID, torrentID string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) ListBookmarks(userID string) []models.Bookmark {
	return nil
}

func (r *postgresRepository) GetSiteConfig() models.SiteConfig {
	return models.SiteConfig{}
}

func (r *postgresRepository) UpdateSiteConfig(update SiteConfigUpdate) (models.SiteConfig, error) {
	return models.SiteConfig{}, ErrPostgresUnavailable
}

var _ Repository = (*postgresRepository)(nil)
