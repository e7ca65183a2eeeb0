package api

import (
	"time"

	"seedvault/internal/models"
)

// View structs keep password hashes, passkeys, and artifact paths out of API
// payloads; the persistence models carry them for storage only.

type userResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	RSSEnabled    bool   `json:"rssEnabled"`
	EmailVerified bool   `json:"emailVerified"`
	CreatedAt     string `json:"createdAt"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Role:          user.Role,
		Status:        user.Status,
		RSSEnabled:    user.RSSEnabled,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339Nano),
	}
}

type profileResponse struct {
	userResponse
	Passkey string `json:"passkey"`
}

func newProfileResponse(user models.User) profileResponse {
	return profileResponse{
		userResponse: newUserResponse(user),
		Passkey:      user.Passkey,
	}
}

type authResponse struct {
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expiresAt"`
	User      profileResponse `json:"user"`
}

func newAuthResponse(user models.User, token string, expires time.Time) authResponse {
	return authResponse{
		Token:     token,
		ExpiresAt: expires.UTC().Format(time.RFC3339Nano),
		User:      newProfileResponse(user),
	}
}

type torrentResponse struct {
	ID          string `json:"id"`
	InfoHash    string `json:"infoHash"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UploaderID  string `json:"uploaderId"`
	CategoryID  string `json:"categoryId"`
	Size        int64  `json:"size"`
	IsApproved  bool   `json:"isApproved"`
	HasNFO      bool   `json:"hasNfo"`
	CreatedAt   string `json:"createdAt"`
}

func newTorrentResponse(torrent models.Torrent) torrentResponse {
	return torrentResponse{
		ID:          torrent.ID,
		InfoHash:    torrent.InfoHash,
		Name:        torrent.Name,
		Description: torrent.Description,
		UploaderID:  torrent.UploaderID,
		CategoryID:  torrent.CategoryID,
		Size:        torrent.Size,
		IsApproved:  torrent.IsApproved,
		HasNFO:      torrent.HasNFO(),
		CreatedAt:   torrent.CreatedAt.Format(time.RFC3339Nano),
	}
}

func newTorrentResponses(torrents []models.Torrent) []torrentResponse {
	response := make([]torrentResponse, 0, len(torrents))
	for _, torrent := range torrents {
		response = append(response, newTorrentResponse(torrent))
	}
	return response
}

type categoryResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
}

func newCategoryResponse(category models.Category) categoryResponse {
	return categoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		ParentID:    category.ParentID,
	}
}

type requestResponse struct {
	ID              string  `json:"id"`
	UserID          string  `json:"userId"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	CategoryID      *string `json:"categoryId,omitempty"`
	Status          string  `json:"status"`
	FilledByID      *string `json:"filledById,omitempty"`
	FilledTorrentID *string `json:"filledTorrentId,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	FilledAt        *string `json:"filledAt,omitempty"`
}

func newRequestResponse(request models.Request) requestResponse {
	resp := requestResponse{
		ID:              request.ID,
		UserID:          request.UserID,
		Title:           request.Title,
		Description:     request.Description,
		CategoryID:      request.CategoryID,
		Status:          request.Status,
		FilledByID:      request.FilledByID,
		FilledTorrentID: request.FilledTorrentID,
		CreatedAt:       request.CreatedAt.Format(time.RFC3339Nano),
	}
	if request.FilledAt != nil {
		filled := request.FilledAt.Format(time.RFC3339Nano)
		resp.FilledAt = &filled
	}
	return resp
}

type peerBanResponse struct {
	ID         string  `json:"id"`
	UserID     *string `json:"userId,omitempty"`
	Passkey    *string `json:"passkey,omitempty"`
	PeerID     *string `json:"peerId,omitempty"`
	IP         *string `json:"ip,omitempty"`
	Reason     string  `json:"reason"`
	ExpiresAt  *string `json:"expiresAt,omitempty"`
	BannedByID string  `json:"bannedById"`
	Active     bool    `json:"active"`
	CreatedAt  string  `json:"createdAt"`
}

func newPeerBanResponse(ban models.PeerBan) peerBanResponse {
	resp := peerBanResponse{
		ID:         ban.ID,
		UserID:     ban.UserID,
		Passkey:    ban.Passkey,
		PeerID:     ban.PeerID,
		IP:         ban.IP,
		Reason:     ban.Reason,
		BannedByID: ban.BannedByID,
		Active:     ban.Active(time.Now()),
		CreatedAt:  ban.CreatedAt.Format(time.RFC3339Nano),
	}
	if ban.ExpiresAt != nil {
		expires := ban.ExpiresAt.Format(time.RFC3339Nano)
		resp.ExpiresAt = &expires
	}
	return resp
}

type announcementResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Pinned      bool   `json:"pinned"`
	Visible     bool   `json:"visible"`
	CreatedByID string `json:"createdById"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func newAnnouncementResponse(announcement models.Announcement) announcementResponse {
	return announcementResponse{
		ID:          announcement.ID,
		Title:       announcement.Title,
		Body:        announcement.Body,
		Pinned:      announcement.Pinned,
		Visible:     announcement.Visible,
		CreatedByID: announcement.CreatedByID,
		CreatedAt:   announcement.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   announcement.UpdatedAt.Format(time.RFC3339Nano),
	}
}

type wikiPageResponse struct {
	ID          string  `json:"id"`
	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	ParentID    *string `json:"parentId,omitempty"`
	Visible     bool    `json:"visible"`
	Locked      bool    `json:"locked"`
	CreatedByID string  `json:"createdById"`
	UpdatedByID string  `json:"updatedById,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func newWikiPageResponse(page models.WikiPage) wikiPageResponse {
	return wikiPageResponse{
		ID:          page.ID,
		Slug:        page.Slug,
		Title:       page.Title,
		Content:     page.Content,
		ParentID:    page.ParentID,
		Visible:     page.Visible,
		Locked:      page.Locked,
		CreatedByID: page.CreatedByID,
		UpdatedByID: page.UpdatedByID,
		CreatedAt:   page.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   page.UpdatedAt.Format(time.RFC3339Nano),
	}
}

type notificationResponse struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Message      string  `json:"message"`
	AdminID      *string `json:"adminId,omitempty"`
	RelatedBanID *string `json:"relatedBanId,omitempty"`
	Read         bool    `json:"read"`
	CreatedAt    string  `json:"createdAt"`
}

func newNotificationResponse(notification models.Notification) notificationResponse {
	return notificationResponse{
		ID:           notification.ID,
		Type:         notification.Type,
		Message:      notification.Message,
		AdminID:      notification.AdminID,
		RelatedBanID: notification.RelatedBanID,
		Read:         notification.Read,
		CreatedAt:    notification.CreatedAt.Format(time.RFC3339Nano),
	}
}

type bookmarkResponse struct {
	TorrentID string `json:"torrentId"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func newBookmarkResponse(bookmark models.Bookmark) bookmarkResponse {
	return bookmarkResponse{
		TorrentID: bookmark.TorrentID,
		Note:      bookmark.Note,
		CreatedAt: bookmark.CreatedAt.Format(time.RFC3339Nano),
	}
}

type smtpResponse struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	From       string `json:"from"`
	Configured bool   `json:"configured"`
}

func newSMTPResponse(settings models.SMTPSettings) smtpResponse {
	return smtpResponse{
		Host:       settings.Host,
		Port:       settings.Port,
		Username:   settings.Username,
		From:       settings.From,
		Configured: settings.Configured(),
	}
}
