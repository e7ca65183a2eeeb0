package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	bencode "github.com/jackpal/bencode-go"

	"seedvault/internal/models"
	"seedvault/internal/storage"
)

func torrentFixture(t *testing.T, name string) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := bencode.Marshal(&buf, map[string]interface{}{
		"announce": "https://tracker.example.com/announce",
		"info": map[string]interface{}{
			"name":         name,
			"length":       int64(4096),
			"piece length": int64(16384),
			"pieces":       "aaaaaaaaaaaaaaaaaaaa",
		},
	})
	if err != nil {
		t.Fatalf("marshal metainfo: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, h *Handler, user models.User, name, categoryID string, nfo []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("torrent", name+".torrent")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(torrentFixture(t, name)); err != nil {
		t.Fatalf("write torrent part: %v", err)
	}
	if nfo != nil {
		nfoPart, err := form.CreateFormFile("nfo", name+".nfo")
		if err != nil {
			t.Fatalf("create nfo part: %v", err)
		}
		if _, err := nfoPart.Write(nfo); err != nil {
			t.Fatalf("write nfo part: %v", err)
		}
	}
	form.WriteField("name", name)
	form.WriteField("description", "test upload")
	form.WriteField("categoryId", categoryID)
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	r := authedRequest(t, h, user, http.MethodPost, "/api/torrent/upload", nil)
	r.Body = nopCloser{bytes.NewReader(body.Bytes())}
	r.ContentLength = int64(body.Len())
	r.Header.Set("Content-Type", form.FormDataContentType())
	return r
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }

func createCategory(t *testing.T, h *Handler, name string) models.Category {
	t.Helper()
	category, err := h.Store.CreateCategory(storage.CategoryParams{Name: name})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	return category
}

func TestTorrentUploadAndApprovalQueue(t *testing.T) {
	h := newTestHandler(t)
	owner := registerUser(t, h, "owner")
	uploader := registerUser(t, h, "uploader")
	category := createCategory(t, h, "Linux ISOs")

	rec := httptest.NewRecorder()
	h.TorrentUpload(rec, uploadRequest(t, h, uploader, "debian-13", category.ID, []byte("release notes")))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded torrentResponse
	decodeBody(t, rec, &uploaded)
	if uploaded.IsApproved {
		t.Fatalf("upload should start unapproved while approval is required")
	}
	if !uploaded.HasNFO {
		t.Fatalf("upload should record the nfo artifact")
	}

	// Pending uploads stay out of the public listing.
	rec = httptest.NewRecorder()
	h.TorrentList(rec, httptest.NewRequest(http.MethodGet, "/api/torrent/list", nil))
	var listing listResponse
	decodeBody(t, rec, &listing)
	if listing.Total != 0 {
		t.Fatalf("public listing total = %d, want 0", listing.Total)
	}

	// The uploader still sees their own pending torrent.
	rec = httptest.NewRecorder()
	h.TorrentByID(rec, authedRequest(t, h, uploader, http.MethodGet, "/api/torrent/"+uploaded.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("uploader detail status = %d: %s", rec.Code, rec.Body.String())
	}

	// A third party gets a 404, not a 403, so pending ids do not leak.
	other := registerUser(t, h, "other")
	rec = httptest.NewRecorder()
	h.TorrentByID(rec, authedRequest(t, h, other, http.MethodGet, "/api/torrent/"+uploaded.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("third-party detail status = %d, want 404", rec.Code)
	}

	// Approve and the torrent becomes public.
	rec = httptest.NewRecorder()
	h.AdminTorrentAction(rec, authedRequest(t, h, owner, http.MethodPost, "/api/admin/torrent/"+uploaded.ID+"/approve", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	h.TorrentList(rec, httptest.NewRequest(http.MethodGet, "/api/torrent/list", nil))
	decodeBody(t, rec, &listing)
	if listing.Total != 1 {
		t.Fatalf("public listing total after approve = %d, want 1", listing.Total)
	}
}

func TestTorrentUploadRejectsDuplicateInfoHash(t *testing.T) {
	h := newTestHandler(t)
	uploader := registerUser(t, h, "uploader")
	category := createCategory(t, h, "Linux ISOs")

	rec := httptest.NewRecorder()
	h.TorrentUpload(rec, uploadRequest(t, h, uploader, "debian-13", category.ID, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first upload status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.TorrentUpload(rec, uploadRequest(t, h, uploader, "debian-13", category.ID, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate upload status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestTorrentUploadDuplicateKeepsOriginalArtifacts(t *testing.T) {
	h := newTestHandler(t)
	uploader := registerUser(t, h, "uploader")
	category := createCategory(t, h, "Linux ISOs")

	rec := httptest.NewRecorder()
	h.TorrentUpload(rec, uploadRequest(t, h, uploader, "debian-13", category.ID, []byte("release notes")))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded torrentResponse
	decodeBody(t, rec, &uploaded)
	original, err := h.Store.GetTorrent(uploaded.ID)
	if err != nil {
		t.Fatalf("GetTorrent: %v", err)
	}

	rec = httptest.NewRecorder()
	h.TorrentUpload(rec, uploadRequest(t, h, uploader, "debian-13", category.ID, []byte("other notes")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate upload status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	if _, err := os.Stat(original.FilePath); err != nil {
		t.Fatalf("torrent artifact missing after rejected duplicate: %v", err)
	}
	if _, err := os.Stat(original.NFOPath); err != nil {
		t.Fatalf("nfo artifact missing after rejected duplicate: %v", err)
	}

	rec = httptest.NewRecorder()
	h.TorrentByID(rec, authedRequest(t, h, uploader, http.MethodGet, "/api/torrent/"+uploaded.ID+"/download", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download after rejected duplicate status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTorrentListHugePageReturnsEmptyPage(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.TorrentList(rec, httptest.NewRequest(http.MethodGet, "/api/torrent/list?page=9223372036854775807&limit=100", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var listing struct {
		Items []torrentResponse `json:"items"`
		Total int               `json:"total"`
	}
	decodeBody(t, rec, &listing)
	if len(listing.Items) != 0 {
		t.Fatalf("items = %d, want empty page", len(listing.Items))
	}
}

func TestTorrentDownloadAndNFO(t *testing.T) {
	h := newTestHandler(t)
	uploader := registerUser(t, h, "uploader")
	category := createCategory(t, h, "Linux ISOs")

	rec := httptest.NewRecorder()
	h.TorrentUpload(rec, uploadRequest(t, h, uploader, "debian-13", category.ID, []byte("release notes")))
	var uploaded torrentResponse
	decodeBody(t, rec, &uploaded)

	rec = httptest.NewRecorder()
	h.TorrentByID(rec, authedRequest(t, h, uploader, http.MethodGet, "/api/torrent/"+uploaded.ID+"/download", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-bittorrent" {
		t.Fatalf("download content type = %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), torrentFixture(t, "debian-13")) {
		t.Fatalf("download body does not match the stored metainfo")
	}

	rec = httptest.NewRecorder()
	h.TorrentByID(rec, authedRequest(t, h, uploader, http.MethodGet, "/api/torrent/"+uploaded.ID+"/nfo", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("nfo status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "release notes" {
		t.Fatalf("nfo body = %q", rec.Body.String())
	}
}

func TestAdminTorrentRejectRemovesArtifacts(t *testing.T) {
	h := newTestHandler(t)
	owner := registerUser(t, h, "owner")
	category := createCategory(t, h, "Linux ISOs")

	rec := httptest.NewRecorder()
	h.TorrentUpload(rec, uploadRequest(t, h, owner, "debian-13", category.ID, []byte("notes")))
	var uploaded torrentResponse
	decodeBody(t, rec, &uploaded)
	stored, err := h.Store.GetTorrent(uploaded.ID)
	if err != nil {
		t.Fatalf("GetTorrent: %v", err)
	}

	rec = httptest.NewRecorder()
	h.AdminTorrentAction(rec, authedRequest(t, h, owner, http.MethodPost, "/api/admin/torrent/"+uploaded.ID+"/reject", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reject status = %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := h.Store.GetTorrent(uploaded.ID); err == nil {
		t.Fatalf("rejected torrent still present")
	}
	if _, err := os.Stat(stored.FilePath); !os.IsNotExist(err) {
		t.Fatalf("torrent artifact still on disk: %v", err)
	}
	if _, err := os.Stat(stored.NFOPath); !os.IsNotExist(err) {
		t.Fatalf("nfo artifact still on disk: %v", err)
	}
}

func TestAdminTorrentPendingRequiresAdmin(t *testing.T) {
	h := newTestHandler(t)
	registerUser(t, h, "owner")
	user := registerUser(t, h, "bob")

	rec := httptest.NewRecorder()
	h.AdminTorrentsPending(rec, authedRequest(t, h, user, http.MethodGet, "/api/admin/torrent/pending", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	mod := promoteUser(t, h, user.ID, models.RoleMod)
	rec = httptest.NewRecorder()
	h.AdminTorrentsPending(rec, authedRequest(t, h, mod, http.MethodGet, "/api/admin/torrent/pending", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("mod status = %d, want 403", rec.Code)
	}
}

func TestCategoryTorrents(t *testing.T) {
	h := newTestHandler(t)
	owner := registerUser(t, h, "owner")
	approval := false
	if _, err := h.Store.UpdateSiteConfig(storage.SiteConfigUpdate{RequireTorrentApproval: &approval}); err != nil {
		t.Fatalf("UpdateSiteConfig: %v", err)
	}
	linux := createCategory(t, h, "Linux ISOs")
	other := createCategory(t, h, "Documentaries")

	rec := httptest.NewRecorder()
	h.TorrentUpload(rec, uploadRequest(t, h, owner, "debian-13", linux.ID, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.CategoryByID(rec, httptest.NewRequest(http.MethodGet, "/api/category/"+linux.ID+"/torrents", nil))
	var listing listResponse
	decodeBody(t, rec, &listing)
	if listing.Total != 1 {
		t.Fatalf("category listing total = %d, want 1", listing.Total)
	}

	rec = httptest.NewRecorder()
	h.CategoryByID(rec, httptest.NewRequest(http.MethodGet, "/api/category/"+other.ID+"/torrents", nil))
	decodeBody(t, rec, &listing)
	if listing.Total != 0 {
		t.Fatalf("empty category total = %d, want 0", listing.Total)
	}
}
