package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"seedvault/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	return store
}

func registerUser(t *testing.T, store *Storage, username string) models.User {
	t.Helper()
	user, err := store.CreateUser(CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) returned error: %v", username, err)
	}
	return user
}

func seedCategory(t *testing.T, store *Storage) models.Category {
	t.Helper()
	category, err := store.CreateCategory(CategoryParams{Name: "Movies"})
	if err != nil {
		t.Fatalf("CreateCategory returned error: %v", err)
	}
	return category
}

func seedTorrent(t *testing.T, store *Storage, uploader models.User, category models.Category, infoHash string, approved bool) models.Torrent {
	t.Helper()
	torrent, err := store.CreateTorrent(CreateTorrentParams{
		InfoHash:   infoHash,
		Name:       "Example Release " + infoHash[:8],
		UploaderID: uploader.ID,
		CategoryID: category.ID,
		Size:       1024,
		Approved:   approved,
	})
	if err != nil {
		t.Fatalf("CreateTorrent returned error: %v", err)
	}
	return torrent
}

func TestCreateUserFirstAccountBecomesOwner(t *testing.T) {
	store := newTestStorage(t)

	first := registerUser(t, store, "alice")
	if first.Role != models.RoleOwner {
		t.Fatalf("expected first user role %s, got %s", models.RoleOwner, first.Role)
	}
	second := registerUser(t, store, "bob")
	if second.Role != models.RoleUser {
		t.Fatalf("expected second user role %s, got %s", models.RoleUser, second.Role)
	}
	if len(first.Passkey) != 32 {
		t.Fatalf("expected 32-character passkey, got %q", first.Passkey)
	}
}

func TestCreateUserHonoursRegistrationMode(t *testing.T) {
	store := newTestStorage(t)
	registerUser(t, store, "alice")

	closed := models.RegistrationClosed
	if _, err := store.UpdateSiteConfig(SiteConfigUpdate{RegistrationMode: &closed}); err != nil {
		t.Fatalf("UpdateSiteConfig returned error: %v", err)
	}
	if _, err := store.CreateUser(CreateUserParams{Username: "bob", Email: "bob@example.com", Password: "password123"}); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("expected ErrRegistrationClosed, got %v", err)
	}

	invite := models.RegistrationInvite
	if _, err := store.UpdateSiteConfig(SiteConfigUpdate{RegistrationMode: &invite}); err != nil {
		t.Fatalf("UpdateSiteConfig returned error: %v", err)
	}
	if _, err := store.CreateUser(CreateUserParams{Username: "bob", Email: "bob@example.com", Password: "password123"}); !errors.Is(err, ErrInviteRequired) {
		t.Fatalf("expected ErrInviteRequired, got %v", err)
	}
	if _, err := store.CreateUser(CreateUserParams{Username: "bob", Email: "bob@example.com", Password: "password123", InviteCode: "welcome"}); err != nil {
		t.Fatalf("expected invite registration to succeed, got %v", err)
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	store := newTestStorage(t)
	registerUser(t, store, "alice")

	if _, err := store.CreateUser(CreateUserParams{Username: "ALICE", Email: "other@example.com", Password: "password123"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}
	if _, err := store.CreateUser(CreateUserParams{Username: "carol", Email: "alice@example.com", Password: "password123"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestAuthenticateUser(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")
	registerUser(t, store, "bob")

	if _, err := store.AuthenticateUser("alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("email login failed: %v", err)
	}
	if _, err := store.AuthenticateUser("alice", "correct horse battery"); err != nil {
		t.Fatalf("username login failed: %v", err)
	}
	if _, err := store.AuthenticateUser("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	bob := store.ListUsers()[1]
	if _, err := store.SetUserStatus(bob.ID, models.UserStatusBanned); err != nil {
		t.Fatalf("SetUserStatus returned error: %v", err)
	}
	if _, err := store.AuthenticateUser("bob", "correct horse battery"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled for banned user, got %v", err)
	}
	_ = alice
}

func TestOwnerCannotBeBannedOrDemoted(t *testing.T) {
	store := newTestStorage(t)
	owner := registerUser(t, store, "alice")

	if _, err := store.SetUserStatus(owner.ID, models.UserStatusBanned); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState banning owner, got %v", err)
	}
	if _, err := store.SetUserRole(owner.ID, models.RoleUser); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState demoting owner, got %v", err)
	}
}

func TestSetUserRoleAcceptsPromotionLadder(t *testing.T) {
	store := newTestStorage(t)
	registerUser(t, store, "alice")
	bob := registerUser(t, store, "bob")

	for _, role := range []string{models.RoleMod, models.RoleAdmin, models.RoleUser} {
		updated, err := store.SetUserRole(bob.ID, role)
		if err != nil {
			t.Fatalf("SetUserRole(%s) returned error: %v", role, err)
		}
		if updated.Role != role {
			t.Fatalf("expected role %s, got %s", role, updated.Role)
		}
	}
	if _, err := store.SetUserRole(bob.ID, models.RoleOwner); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation assigning OWNER, got %v", err)
	}
}

func TestRotatePasskeyChangesValue(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")

	updated, err := store.RotatePasskey(alice.ID)
	if err != nil {
		t.Fatalf("RotatePasskey returned error: %v", err)
	}
	if updated.Passkey == alice.Passkey {
		t.Fatalf("expected passkey to change")
	}
	if len(updated.Passkey) != 32 {
		t.Fatalf("expected 32-character passkey, got %q", updated.Passkey)
	}
}

func TestCreateTorrentValidation(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")
	category := seedCategory(t, store)

	if _, err := store.CreateTorrent(CreateTorrentParams{InfoHash: "", Name: "x", UploaderID: alice.ID, CategoryID: category.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty info hash, got %v", err)
	}
	if _, err := store.CreateTorrent(CreateTorrentParams{InfoHash: "ab12", Name: "x", UploaderID: alice.ID, CategoryID: "missing"}); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for unknown category, got %v", err)
	}

	seedTorrent(t, store, alice, category, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true)
	if _, err := store.CreateTorrent(CreateTorrentParams{InfoHash: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", Name: "dupe", UploaderID: alice.ID, CategoryID: category.ID}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated info hash, got %v", err)
	}
}

func TestListTorrentsFilters(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")
	category := seedCategory(t, store)

	approved := seedTorrent(t, store, alice, category, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true)
	pending := seedTorrent(t, store, alice, category, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", false)

	public := store.ListTorrents(TorrentFilter{ApprovedOnly: true})
	if len(public) != 1 || public[0].ID != approved.ID {
		t.Fatalf("expected only approved torrent in public listing, got %d entries", len(public))
	}
	pendingList := store.ListTorrents(TorrentFilter{PendingOnly: true})
	if len(pendingList) != 1 || pendingList[0].ID != pending.ID {
		t.Fatalf("expected only pending torrent, got %d entries", len(pendingList))
	}
	matches := store.ListTorrents(TorrentFilter{Query: "example release"})
	if len(matches) != 2 {
		t.Fatalf("expected case-insensitive query to match both, got %d", len(matches))
	}
}

func TestApproveAndDeleteTorrent(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")
	category := seedCategory(t, store)
	torrent := seedTorrent(t, store, alice, category, "cccccccccccccccccccccccccccccccccccccccc", false)

	approved, err := store.ApproveTorrent(torrent.ID)
	if err != nil {
		t.Fatalf("ApproveTorrent returned error: %v", err)
	}
	if !approved.IsApproved {
		t.Fatalf("expected torrent to be approved")
	}

	if _, err := store.AddBookmark(alice.ID, torrent.ID, ""); err != nil {
		t.Fatalf("AddBookmark returned error: %v", err)
	}
	deleted, err := store.DeleteTorrent(torrent.ID)
	if err != nil {
		t.Fatalf("DeleteTorrent returned error: %v", err)
	}
	if deleted.ID != torrent.ID {
		t.Fatalf("expected deleted torrent %s, got %s", torrent.ID, deleted.ID)
	}
	if marks := store.ListBookmarks(alice.ID); len(marks) != 0 {
		t.Fatalf("expected bookmarks to be removed with torrent, got %d", len(marks))
	}
	if _, err := store.GetTorrent(torrent.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFillRequestTransitionsOnce(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")
	bob := registerUser(t, store, "bob")
	category := seedCategory(t, store)
	torrent := seedTorrent(t, store, alice, category, "dddddddddddddddddddddddddddddddddddddddd", true)

	request, err := store.CreateRequest(CreateRequestParams{UserID: alice.ID, Title: "Need this"})
	if err != nil {
		t.Fatalf("CreateRequest returned error: %v", err)
	}

	filled, err := store.FillRequest(request.ID, bob.ID, torrent.ID)
	if err != nil {
		t.Fatalf("FillRequest returned error: %v", err)
	}
	if filled.Status != models.RequestStatusFilled || filled.FilledByID == nil || *filled.FilledByID != bob.ID {
		t.Fatalf("unexpected filled request: %+v", filled)
	}
	if filled.FilledAt == nil || filled.FilledAt.After(time.Now().Add(time.Minute)) {
		t.Fatalf("expected filledAt to be set")
	}

	if _, err := store.FillRequest(request.ID, alice.ID, torrent.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected second fill to fail with ErrInvalidState, got %v", err)
	}
}

func TestFillRequestRejectsUnapprovedTorrent(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")
	category := seedCategory(t, store)
	pending := seedTorrent(t, store, alice, category, "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", false)

	request, err := store.CreateRequest(CreateRequestParams{UserID: alice.ID, Title: "Need this"})
	if err != nil {
		t.Fatalf("CreateRequest returned error: %v", err)
	}

	if _, err := store.FillRequest(request.ID, alice.ID, pending.ID); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for unapproved torrent, got %v", err)
	}
	current, err := store.GetRequest(request.ID)
	if err != nil {
		t.Fatalf("GetRequest returned error: %v", err)
	}
	if current.Status != models.RequestStatusOpen {
		t.Fatalf("expected request to stay OPEN, got %s", current.Status)
	}
}

func TestCloseAndRejectRequestAreTerminal(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")

	request, err := store.CreateRequest(CreateRequestParams{UserID: alice.ID, Title: "Need this"})
	if err != nil {
		t.Fatalf("CreateRequest returned error: %v", err)
	}
	closed, err := store.CloseRequest(request.ID)
	if err != nil {
		t.Fatalf("CloseRequest returned error: %v", err)
	}
	if closed.Status != models.RequestStatusClosed {
		t.Fatalf("expected CLOSED, got %s", closed.Status)
	}
	if _, err := store.RejectRequest(request.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState rejecting closed request, got %v", err)
	}
}

func TestCreatePeerBanValidation(t *testing.T) {
	store := newTestStorage(t)
	admin := registerUser(t, store, "alice")

	if _, err := store.CreatePeerBan(CreatePeerBanParams{Reason: "", BannedByID: admin.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing reason, got %v", err)
	}
	if _, err := store.CreatePeerBan(CreatePeerBanParams{Reason: "cheating", BannedByID: admin.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing target, got %v", err)
	}
	badIP := "not-an-ip"
	if _, err := store.CreatePeerBan(CreatePeerBanParams{Reason: "cheating", IP: &badIP, BannedByID: admin.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad IP, got %v", err)
	}
	missing := "missing-user"
	if _, err := store.CreatePeerBan(CreatePeerBanParams{Reason: "cheating", UserID: &missing, BannedByID: admin.ID}); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for unknown user, got %v", err)
	}
}

func TestListPeerBansActiveFilter(t *testing.T) {
	store := newTestStorage(t)
	admin := registerUser(t, store, "alice")

	ip := "203.0.113.7"
	permanent, err := store.CreatePeerBan(CreatePeerBanParams{Reason: "cheating", IP: &ip, BannedByID: admin.ID})
	if err != nil {
		t.Fatalf("CreatePeerBan returned error: %v", err)
	}
	past := time.Now().Add(-time.Hour).UTC()
	peer := "-SV1000-abcdefghijkl"
	expired, err := store.CreatePeerBan(CreatePeerBanParams{Reason: "old client", PeerID: &peer, ExpiresAt: &past, BannedByID: admin.ID})
	if err != nil {
		t.Fatalf("CreatePeerBan returned error: %v", err)
	}

	active := true
	got, err := store.ListPeerBans(PeerBanFilter{Active: &active})
	if err != nil {
		t.Fatalf("ListPeerBans returned error: %v", err)
	}
	if len(got) != 1 || got[0].ID != permanent.ID {
		t.Fatalf("expected only the permanent ban to be active, got %d entries", len(got))
	}

	inactive := false
	got, err = store.ListPeerBans(PeerBanFilter{Active: &inactive})
	if err != nil {
		t.Fatalf("ListPeerBans returned error: %v", err)
	}
	if len(got) != 1 || got[0].ID != expired.ID {
		t.Fatalf("expected only the expired ban, got %d entries", len(got))
	}

	if _, err := store.ListPeerBans(PeerBanFilter{Type: "bogus", Value: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown target type, got %v", err)
	}
	got, err = store.ListPeerBans(PeerBanFilter{Type: BanTargetIP, Value: ip})
	if err != nil {
		t.Fatalf("ListPeerBans returned error: %v", err)
	}
	if len(got) != 1 || got[0].ID != permanent.ID {
		t.Fatalf("expected IP target lookup to match the permanent ban")
	}
}

func TestAnnouncementFlagsAndVisibility(t *testing.T) {
	store := newTestStorage(t)
	admin := registerUser(t, store, "alice")

	announcement, err := store.CreateAnnouncement(AnnouncementParams{Title: "Downtime", Body: "Tracker restarting", Visible: true, CreatedByID: admin.ID})
	if err != nil {
		t.Fatalf("CreateAnnouncement returned error: %v", err)
	}
	hidden, err := store.SetAnnouncementFlag(announcement.ID, FlagVisible, false)
	if err != nil {
		t.Fatalf("SetAnnouncementFlag returned error: %v", err)
	}
	if hidden.Visible {
		t.Fatalf("expected announcement to be hidden")
	}
	if list := store.ListAnnouncements(false); len(list) != 0 {
		t.Fatalf("expected hidden announcement out of public list, got %d", len(list))
	}
	if list := store.ListAnnouncements(true); len(list) != 1 {
		t.Fatalf("expected hidden announcement in admin list, got %d", len(list))
	}
	if _, err := store.SetAnnouncementFlag(announcement.ID, FlagLocked, true); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for locked flag on announcement, got %v", err)
	}
}

func TestPinnedAnnouncementsSortFirst(t *testing.T) {
	store := newTestStorage(t)
	admin := registerUser(t, store, "alice")

	older, err := store.CreateAnnouncement(AnnouncementParams{Title: "Old", Body: "old", Visible: true, CreatedByID: admin.ID})
	if err != nil {
		t.Fatalf("CreateAnnouncement returned error: %v", err)
	}
	if _, err := store.CreateAnnouncement(AnnouncementParams{Title: "New", Body: "new", Visible: true, CreatedByID: admin.ID}); err != nil {
		t.Fatalf("CreateAnnouncement returned error: %v", err)
	}
	if _, err := store.SetAnnouncementFlag(older.ID, FlagPinned, true); err != nil {
		t.Fatalf("SetAnnouncementFlag returned error: %v", err)
	}

	list := store.ListAnnouncements(false)
	if len(list) != 2 || list[0].ID != older.ID {
		t.Fatalf("expected pinned announcement first")
	}
}

func TestWikiPageSlugLifecycle(t *testing.T) {
	store := newTestStorage(t)
	admin := registerUser(t, store, "alice")

	page, err := store.CreateWikiPage(WikiPageParams{Slug: "Upload-Rules", Title: "Upload rules", Content: "be nice", Visible: true, CreatedByID: admin.ID})
	if err != nil {
		t.Fatalf("CreateWikiPage returned error: %v", err)
	}
	if page.Slug != "upload-rules" {
		t.Fatalf("expected normalised slug, got %q", page.Slug)
	}
	if _, err := store.CreateWikiPage(WikiPageParams{Slug: "upload-rules", Title: "Dup", Visible: true, CreatedByID: admin.ID}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated slug, got %v", err)
	}

	locked, err := store.SetWikiPageFlag(page.ID, FlagLocked, true)
	if err != nil {
		t.Fatalf("SetWikiPageFlag returned error: %v", err)
	}
	if !locked.Locked {
		t.Fatalf("expected page to be locked")
	}
	if _, err := store.SetWikiPageFlag(page.ID, FlagPinned, true); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for pinned flag on wiki page, got %v", err)
	}

	if _, err := store.SetWikiPageFlag(page.ID, FlagVisible, false); err != nil {
		t.Fatalf("SetWikiPageFlag returned error: %v", err)
	}
	if _, err := store.GetWikiPageBySlug("upload-rules", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected hidden page to 404 publicly, got %v", err)
	}
	if _, err := store.GetWikiPageBySlug("upload-rules", true); err != nil {
		t.Fatalf("expected admin read of hidden page to succeed, got %v", err)
	}
}

func TestNotificationsScopeToOwner(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")
	bob := registerUser(t, store, "bob")

	notification, err := store.CreateNotification(CreateNotificationParams{UserID: alice.ID, Type: models.NotificationPeerBanCreated, Message: "you were banned"})
	if err != nil {
		t.Fatalf("CreateNotification returned error: %v", err)
	}

	if _, err := store.MarkNotificationRead(bob.ID, notification.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound marking someone else's notification, got %v", err)
	}
	read, err := store.MarkNotificationRead(alice.ID, notification.ID)
	if err != nil {
		t.Fatalf("MarkNotificationRead returned error: %v", err)
	}
	if !read.Read {
		t.Fatalf("expected notification marked read")
	}
	if unread := store.ListNotifications(alice.ID, true); len(unread) != 0 {
		t.Fatalf("expected no unread notifications, got %d", len(unread))
	}

	if _, err := store.CreateNotification(CreateNotificationParams{UserID: alice.ID, Type: models.NotificationRequestFilled, Message: "filled"}); err != nil {
		t.Fatalf("CreateNotification returned error: %v", err)
	}
	updated, err := store.MarkAllNotificationsRead(alice.ID)
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead returned error: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 notification updated, got %d", updated)
	}
	removed, err := store.ClearNotifications(alice.ID)
	if err != nil {
		t.Fatalf("ClearNotifications returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 notifications cleared, got %d", removed)
	}
}

func TestBookmarkRules(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")
	category := seedCategory(t, store)
	approved := seedTorrent(t, store, alice, category, "ffffffffffffffffffffffffffffffffffffffff", true)
	pending := seedTorrent(t, store, alice, category, "0000000000000000000000000000000000000000", false)

	if _, err := store.AddBookmark(alice.ID, pending.ID, ""); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference bookmarking unapproved torrent, got %v", err)
	}
	if _, err := store.AddBookmark(alice.ID, approved.ID, "keep"); err != nil {
		t.Fatalf("AddBookmark returned error: %v", err)
	}
	if _, err := store.AddBookmark(alice.ID, approved.ID, ""); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate bookmarking twice, got %v", err)
	}

	updated, err := store.UpdateBookmarkNote(alice.ID, approved.ID, "watch later")
	if err != nil {
		t.Fatalf("UpdateBookmarkNote returned error: %v", err)
	}
	if updated.Note != "watch later" {
		t.Fatalf("expected updated note, got %q", updated.Note)
	}
	if err := store.RemoveBookmark(alice.ID, approved.ID); err != nil {
		t.Fatalf("RemoveBookmark returned error: %v", err)
	}
	if err := store.RemoveBookmark(alice.ID, approved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing twice, got %v", err)
	}
}

func TestCategoryTreeRules(t *testing.T) {
	store := newTestStorage(t)
	alice := registerUser(t, store, "alice")

	root, err := store.CreateCategory(CategoryParams{Name: "Movies"})
	if err != nil {
		t.Fatalf("CreateCategory returned error: %v", err)
	}
	child, err := store.CreateCategory(CategoryParams{Name: "HD", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("CreateCategory child returned error: %v", err)
	}
	if _, err := store.CreateCategory(CategoryParams{Name: "Remux", ParentID: &child.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for two-level nesting, got %v", err)
	}

	if err := store.DeleteCategory(root.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState deleting category with children, got %v", err)
	}
	seedTorrent(t, store, alice, child, "1111111111111111111111111111111111111111", true)
	if err := store.DeleteCategory(child.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState deleting category with torrents, got %v", err)
	}
}

func TestSiteConfigUpdateValidation(t *testing.T) {
	store := newTestStorage(t)

	config := store.GetSiteConfig()
	if config.RegistrationMode != models.RegistrationOpen || !config.RequireTorrentApproval {
		t.Fatalf("unexpected defaults: %+v", config)
	}

	bad := "SOMETIMES"
	if _, err := store.UpdateSiteConfig(SiteConfigUpdate{RegistrationMode: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown mode, got %v", err)
	}

	host := "smtp.example.com"
	port := 587
	from := "tracker@example.com"
	updated, err := store.UpdateSiteConfig(SiteConfigUpdate{SMTPHost: &host, SMTPPort: &port, SMTPFrom: &from})
	if err != nil {
		t.Fatalf("UpdateSiteConfig returned error: %v", err)
	}
	if !updated.SMTP.Configured() {
		t.Fatalf("expected SMTP to be configured")
	}
}

func TestStoragePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	alice := registerUser(t, store, "alice")
	category := seedCategory(t, store)
	seedTorrent(t, store, alice, category, "2222222222222222222222222222222222222222", true)

	reopened, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	if len(reopened.ListUsers()) != 1 {
		t.Fatalf("expected 1 user after reopen")
	}
	if len(reopened.ListTorrents(TorrentFilter{})) != 1 {
		t.Fatalf("expected 1 torrent after reopen")
	}
	if _, err := reopened.AuthenticateUser("alice", "correct horse battery"); err != nil {
		t.Fatalf("expected login to survive reopen, got %v", err)
	}
}
