package storage

import (
	"context"

	"seedvault/internal/models"
)

// Repository is the persistence contract shared by the JSON and Postgres
// drivers.
type Repository interface {
	// Users.
	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(identifier string, password string) (models.User, error)
	GetUser(id string) (models.User, error)
	ListUsers() []models.User
	UpdateUserProfile(id string, update ProfileUpdate) (models.User, error)
	SetUserStatus(id string, status string) (models.User, error)
	SetUserRole(id string, role string) (models.User, error)
	RotatePasskey(id string) (models.User, error)
	SetRSSEnabled(id string, enabled bool) (models.User, error)
	ResetRSSToken(id string) (models.User, error)
	BootstrapOwner(username string, email string, password string) (models.User, error)

	// Torrents.
	CreateTorrent(params CreateTorrentParams) (models.Torrent, error)
	GetTorrent(id string) (models.Torrent, error)
	ListTorrents(filter TorrentFilter) []models.Torrent
	ApproveTorrent(id string) (models.Torrent, error)
	DeleteTorrent(id string) (models.Torrent, error)

	// Categories.
	CreateCategory(params CategoryParams) (models.Category, error)
	UpdateCategory(id string, params CategoryParams) (models.Category, error)
	DeleteCategory(id string) error
	GetCategory(id string) (models.Category, error)
	ListCategories() []models.Category

	// Requests.
	CreateRequest(params CreateRequestParams) (models.Request, error)
	GetRequest(id string) (models.Request, error)
	ListRequests(filter RequestFilter) []models.Request
	FillRequest(id string, fillerID string, torrentID string) (models.Request, error)
	CloseRequest(id string) (models.Request, error)
	RejectRequest(id string) (models.Request, error)

	// Peer bans.
	CreatePeerBan(params CreatePeerBanParams) (models.PeerBan, error)
	GetPeerBan(id string) (models.PeerBan, error)
	ListPeerBans(filter PeerBanFilter) ([]models.PeerBan, error)
	DeletePeerBan(id string) (models.PeerBan, error)

	// Announcements.
	CreateAnnouncement(params AnnouncementParams) (models.Announcement, error)
	UpdateAnnouncement(id string, update AnnouncementUpdate) (models.Announcement, error)
	SetAnnouncementFlag(id string, flag string, value bool) (models.Announcement, error)
	DeleteAnnouncement(id string) error
	GetAnnouncement(id string, includeHidden bool) (models.Announcement, error)
	ListAnnouncements(includeHidden bool) []models.Announcement

	// Wiki.
	CreateWikiPage(params WikiPageParams) (models.WikiPage, error)
	UpdateWikiPage(id string, update WikiPageUpdate, editorID string) (models.WikiPage, error)
	SetWikiPageFlag(id string, flag string, value bool) (models.WikiPage, error)
	DeleteWikiPage(id string) error
	GetWikiPage(id string, includeHidden bool) (models.WikiPage, error)
	GetWikiPageBySlug(slug string, includeHidden bool) (models.WikiPage, error)
	ListWikiPages(includeHidden bool) []models.WikiPage

	// Notifications.
	CreateNotification(params CreateNotificationParams) (models.Notification, error)
	ListNotifications(userID string, unreadOnly bool) []models.Notification
	MarkNotificationRead(userID string, id string) (models.Notification, error)
	MarkAllNotificationsRead(userID string) (int, error)
	ClearNotifications(userID string) (int, error)

	// Bookmarks.
	AddBookmark(userID string, torrentID string, note string) (models.Bookmark, error)
	UpdateBookmarkNote(userID string, torrentID string, note string) (models.Bookmark, error)
	RemoveBookmark(userID string, torrentID string) error
	ListBookmarks(userID string) []models.Bookmark

	// Site policy.
	GetSiteConfig() models.SiteConfig
	UpdateSiteConfig(update SiteConfigUpdate) (models.SiteConfig, error)

	Ping(ctx context.Context) error
}

var _ Repository = (*Storage)(nil)
