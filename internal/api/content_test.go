package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"seedvault/internal/storage"
)

func TestAnnouncementVisibility(t *testing.T) {
	h := newTestHandler(t)
	owner := registerUser(t, h, "owner")

	rec := httptest.NewRecorder()
	h.AdminAnnouncements(rec, authedRequest(t, h, owner, http.MethodPost, "/api/admin/announcement", jsonBody(t, map[string]interface{}{
		"title": "Maintenance window",
		"body":  "Tracker restarts at midnight UTC.",
	})))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created announcementResponse
	decodeBody(t, rec, &created)

	rec = httptest.NewRecorder()
	h.Announcements(rec, httptest.NewRequest(http.MethodGet, "/api/announcements", nil))
	var listing listResponse
	decodeBody(t, rec, &listing)
	if listing.Total != 1 {
		t.Fatalf("public total = %d, want 1", listing.Total)
	}

	// Hide it and the public listing empties while the admin one keeps it.
	rec = httptest.NewRecorder()
	h.AdminAnnouncementByID(rec, authedRequest(t, h, owner, http.MethodPost, "/api/admin/announcement/"+created.ID+"/hide", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("hide status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Announcements(rec, httptest.NewRequest(http.MethodGet, "/api/announcements", nil))
	decodeBody(t, rec, &listing)
	if listing.Total != 0 {
		t.Fatalf("public total after hide = %d, want 0", listing.Total)
	}

	rec = httptest.NewRecorder()
	h.AnnouncementByID(rec, httptest.NewRequest(http.MethodGet, "/api/announcements/"+created.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("hidden detail status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.AdminAnnouncements(rec, authedRequest(t, h, owner, http.MethodGet, "/api/admin/announcement", nil))
	var adminListing struct {
		Announcements []announcementResponse `json:"announcements"`
	}
	decodeBody(t, rec, &adminListing)
	if len(adminListing.Announcements) != 1 {
		t.Fatalf("admin total = %d, want 1", len(adminListing.Announcements))
	}
}

func TestAnnouncementPinSortsFirst(t *testing.T) {
	h := newTestHandler(t)
	owner := registerUser(t, h, "owner")

	older, err := h.Store.CreateAnnouncement(storage.AnnouncementParams{
		Title: "older", Body: "x", Visible: true, CreatedByID: owner.ID,
	})
	if err != nil {
		t.Fatalf("CreateAnnouncement: %v", err)
	}
	if _, err := h.Store.CreateAnnouncement(storage.AnnouncementParams{
		Title: "newer", Body: "x", Visible: true, CreatedByID: owner.ID,
	}); err != nil {
		t.Fatalf("CreateAnnouncement: %v", err)
	}

	rec := httptest.NewRecorder()
	h.AdminAnnouncementByID(rec, authedRequest(t, h, owner, http.MethodPost, "/api/admin/announcement/"+older.ID+"/pin", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pin status = %d: %s", rec.Code, rec.Body.String())
	}

	announcements := h.Store.ListAnnouncements(false)
	if len(announcements) != 2 || announcements[0].ID != older.ID {
		t.Fatalf("pinned announcement is not first: %+v", announcements)
	}
}

func TestWikiSlugAddressingAndVisibility(t *testing.T) {
	h := newTestHandler(t)
	owner := registerUser(t, h, "owner")

	rec := httptest.NewRecorder()
	h.AdminWiki(rec, authedRequest(t, h, owner, http.MethodPost, "/api/admin/wiki", jsonBody(t, map[string]interface{}{
		"slug":    "upload-rules",
		"title":   "Upload rules",
		"content": "Name things properly.",
	})))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created wikiPageResponse
	decodeBody(t, rec, &created)

	rec = httptest.NewRecorder()
	h.WikiBySlug(rec, httptest.NewRequest(http.MethodGet, "/api/wiki/upload-rules", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("slug lookup status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.AdminWikiByID(rec, authedRequest(t, h, owner, http.MethodPost, "/api/admin/wiki/"+created.ID+"/hide", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("hide status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.WikiBySlug(rec, httptest.NewRequest(http.MethodGet, "/api/wiki/upload-rules", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("hidden slug lookup status = %d, want 404", rec.Code)
	}
}

func TestWikiLockBlocksNothingForAdmins(t *testing.T) {
	h := newTestHandler(t)
	owner := registerUser(t, h, "owner")

	page, err := h.Store.CreateWikiPage(storage.WikiPageParams{
		Slug: "faq", Title: "FAQ", Content: "answers", Visible: true, CreatedByID: owner.ID,
	})
	if err != nil {
		t.Fatalf("CreateWikiPage: %v", err)
	}

	rec := httptest.NewRecorder()
	h.AdminWikiByID(rec, authedRequest(t, h, owner, http.MethodPost, "/api/admin/wiki/"+page.ID+"/lock", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("lock status = %d: %s", rec.Code, rec.Body.String())
	}

	title := "FAQ v2"
	rec = httptest.NewRecorder()
	h.AdminWikiByID(rec, authedRequest(t, h, owner, http.MethodPut, "/api/admin/wiki/"+page.ID, jsonBody(t, map[string]string{
		"title": title,
	})))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin edit of locked page status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated wikiPageResponse
	decodeBody(t, rec, &updated)
	if updated.Title != title {
		t.Fatalf("title = %q, want %q", updated.Title, title)
	}
	if updated.UpdatedByID != owner.ID {
		t.Fatalf("updatedById = %q, want %q", updated.UpdatedByID, owner.ID)
	}
}

func TestCategoryAdminCRUD(t *testing.T) {
	h := newTestHandler(t)
	owner := registerUser(t, h, "owner")

	rec := httptest.NewRecorder()
	h.AdminCategories(rec, authedRequest(t, h, owner, http.MethodPost, "/api/admin/category", jsonBody(t, map[string]string{
		"name": "Linux ISOs",
	})))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created categoryResponse
	decodeBody(t, rec, &created)

	rec = httptest.NewRecorder()
	h.AdminCategoryByID(rec, authedRequest(t, h, owner, http.MethodPut, "/api/admin/category/"+created.ID, jsonBody(t, map[string]string{
		"name":        "Linux",
		"description": "distribution images",
	})))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	// A category with torrents refuses deletion.
	torrent := createApprovedTorrent(t, h, owner.ID, created.ID, "debian-13")
	rec = httptest.NewRecorder()
	h.AdminCategoryByID(rec, authedRequest(t, h, owner, http.MethodDelete, "/api/admin/category/"+created.ID, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("delete with torrents status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	if _, err := h.Store.DeleteTorrent(torrent.ID); err != nil {
		t.Fatalf("DeleteTorrent: %v", err)
	}
	rec = httptest.NewRecorder()
	h.AdminCategoryByID(rec, authedRequest(t, h, owner, http.MethodDelete, "/api/admin/category/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
}
