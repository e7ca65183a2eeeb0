package models

import "time"

// Role ladder for accounts. Roles are totally ordered: USER < MOD < ADMIN <
// OWNER. Exactly one role is assigned per user.
const (
	RoleUser  = "USER"
	RoleMod   = "MOD"
	RoleAdmin = "ADMIN"
	RoleOwner = "OWNER"
)

const (
	UserStatusActive = "ACTIVE"
	UserStatusBanned = "BANNED"
)

const (
	RequestStatusOpen     = "OPEN"
	RequestStatusFilled   = "FILLED"
	RequestStatusClosed   = "CLOSED"
	RequestStatusRejected = "REJECTED"
)

const (
	RegistrationOpen   = "OPEN"
	RegistrationInvite = "INVITE"
	RegistrationClosed = "CLOSED"
)

// Notification types emitted by moderation and request workflows.
const (
	NotificationPeerBanCreated = "PEER_BAN_CREATED"
	NotificationPeerBanRemoved = "PEER_BAN_REMOVED"
	NotificationRequestFilled  = "REQUEST_FILLED"
)

// User is a registered account. Passkey is the 32-hex-character tracker
// credential embedded in announce URLs; RSSToken gates personalised feeds.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"passwordHash,omitempty"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	Passkey       string    `json:"passkey,omitempty"`
	RSSEnabled    bool      `json:"rssEnabled"`
	RSSToken      string    `json:"rssToken,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IsAdmin reports whether the account may perform admin-gated actions.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleOwner
}

// Torrent is an uploaded metainfo record. FilePath and NFOPath point at
// artifacts under the server upload directory; InfoHash is unique site-wide.
type Torrent struct {
	ID          string    `json:"id"`
	InfoHash    string    `json:"infoHash"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UploaderID  string    `json:"uploaderId"`
	CategoryID  string    `json:"categoryId"`
	FilePath    string    `json:"filePath,omitempty"`
	NFOPath     string    `json:"nfoPath,omitempty"`
	Size        int64     `json:"size"`
	IsApproved  bool      `json:"isApproved"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasNFO reports whether an NFO artifact was stored with the upload.
func (t Torrent) HasNFO() bool {
	return t.NFOPath != ""
}

// Category groups torrents. The tree is one level deep: a category either has
// no parent or a parent that itself has none.
type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
}

// Request is a community content request moving through
// OPEN -> FILLED | CLOSED | REJECTED. Terminal states never transition again.
type Request struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	CategoryID      *string    `json:"categoryId,omitempty"`
	Status          string     `json:"status"`
	FilledByID      *string    `json:"filledById,omitempty"`
	FilledTorrentID *string    `json:"filledTorrentId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	FilledAt        *time.Time `json:"filledAt,omitempty"`
}

// PeerBan blocks a peer from the tracker by at least one of user, passkey,
// peer id, or IP address. A nil ExpiresAt means the ban is permanent.
type PeerBan struct {
	ID         string     `json:"id"`
	UserID     *string    `json:"userId,omitempty"`
	Passkey    *string    `json:"passkey,omitempty"`
	PeerID     *string    `json:"peerId,omitempty"`
	IP         *string    `json:"ip,omitempty"`
	Reason     string     `json:"reason"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	BannedByID string     `json:"bannedById"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Active reports whether the ban is still in force at the given instant.
func (b PeerBan) Active(now time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}

// Announcement is a site-wide post. Hidden announcements stay out of public
// listings; pinned ones sort first.
type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Pinned      bool      `json:"pinned"`
	Visible     bool      `json:"visible"`
	CreatedByID string    `json:"createdById"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WikiPage is addressed publicly by slug. Locked pages refuse edits from
// non-admin roles; hidden pages stay out of public listings.
type WikiPage struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ParentID    *string   `json:"parentId,omitempty"`
	Visible     bool      `json:"visible"`
	Locked      bool      `json:"locked"`
	CreatedByID string    `json:"createdById"`
	UpdatedByID string    `json:"updatedById,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Notification is a per-user inbox entry created by moderation side effects.
type Notification struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	AdminID      *string   `json:"adminId,omitempty"`
	RelatedBanID *string   `json:"relatedBanId,omitempty"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Bookmark links a user to a torrent; the (user, torrent) pair is unique.
type Bookmark struct {
	UserID    string    `json:"userId"`
	TorrentID string    `json:"torrentId"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SMTPSettings carries the outbound mail configuration edited by admins.
type SMTPSettings struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	From     string `json:"from"`
}

// Configured reports whether enough fields are present to attempt delivery.
func (s SMTPSettings) Configured() bool {
	return s.Host != "" && s.Port > 0 && s.From != ""
}

// SiteConfig is the singleton runtime policy record.
type SiteConfig struct {
	RegistrationMode       string       `json:"registrationMode"`
	RequireTorrentApproval bool         `json:"requireTorrentApproval"`
	SMTP                   SMTPSettings `json:"smtp"`
}
