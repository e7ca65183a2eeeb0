package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"seedvault/internal/models"
)

// Snapshot captures a complete JSON-serialisable view of the datastore so it
// can be exported from the JSON driver and replayed into Postgres.
type Snapshot struct {
	Users         map[string]models.User                `json:"users"`
	Torrents      map[string]models.Torrent             `json:"torrents"`
	Categories    map[string]models.Category            `json:"categories"`
	Requests      map[string]models.Request             `json:"requests"`
	PeerBans      map[string]models.PeerBan             `json:"peerBans"`
	Announcements map[string]models.Announcement        `json:"announcements"`
	WikiPages     map[string]models.WikiPage            `json:"wikiPages"`
	Notifications map[string]models.Notification        `json:"notifications"`
	Bookmarks     map[string]map[string]models.Bookmark `json:"bookmarks"`
	Config        models.SiteConfig                     `json:"config"`
}

// SnapshotCounts summarises collection sizes so operators can sanity-check an
// import before running it.
type SnapshotCounts struct {
	Users         int
	Torrents      int
	Categories    int
	Requests      int
	PeerBans      int
	Announcements int
	WikiPages     int
	Notifications int
	Bookmarks     int
}

// ExportSnapshot copies the live dataset into a Snapshot.
func (s *Storage) ExportSnapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := cloneDataset(s.data)
	return &Snapshot{
		Users:         data.Users,
		Torrents:      data.Torrents,
		Categories:    data.Categories,
		Requests:      data.Requests,
		PeerBans:      data.PeerBans,
		Announcements: data.Announcements,
		WikiPages:     data.WikiPages,
		Notifications: data.Notifications,
		Bookmarks:     data.Bookmarks,
		Config:        data.Config,
	}
}

// LoadSnapshotFromJSON reads a datastore file from disk as a Snapshot.
func LoadSnapshotFromJSON(path string) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var snapshot Snapshot
	if err := decoder.Decode(&snapshot); err != nil {
		if err == io.EOF {
			snapshot.ensureInitialized()
			return &snapshot, nil
		}
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	snapshot.ensureInitialized()
	return &snapshot, nil
}

func (s *Snapshot) ensureInitialized() {
	if s.Users == nil {
		s.Users = make(map[string]models.User)
	}
	if s.Torrents == nil {
		s.Torrents = make(map[string]models.Torrent)
	}
	if s.Categories == nil {
		s.Categories = make(map[string]models.Category)
	}
	if s.Requests == nil {
		s.Requests = make(map[string]models.Request)
	}
	if s.PeerBans == nil {
		s.PeerBans = make(map[string]models.PeerBan)
	}
	if s.Announcements == nil {
		s.Announcements = make(map[string]models.Announcement)
	}
	if s.WikiPages == nil {
		s.WikiPages = make(map[string]models.WikiPage)
	}
	if s.Notifications == nil {
		s.Notifications = make(map[string]models.Notification)
	}
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]models.Bookmark)
	}
}

// Counts walks a Snapshot and summarises how many rows of each type an import
// will write.
func (s *Snapshot) Counts() SnapshotCounts {
	if s == nil {
		return SnapshotCounts{}
	}
	counts := SnapshotCounts{
		Users:         len(s.Users),
		Torrents:      len(s.Torrents),
		Categories:    len(s.Categories),
		Requests:      len(s.Requests),
		PeerBans:      len(s.PeerBans),
		Announcements: len(s.Announcements),
		WikiPages:     len(s.WikiPages),
		Notifications: len(s.Notifications),
	}
	for _, marks := range s.Bookmarks {
		counts.Bookmarks += len(marks)
	}
	return counts
}

// ImportSnapshotToPostgres hands a Snapshot to the Postgres repository for
// bulk loading.
func ImportSnapshotToPostgres(ctx context.Context, repo Repository, snapshot *Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is required")
	}
	pgRepo, ok := repo.(*postgresRepository)
	if !ok {
		return fmt.Errorf("postgres repository required for snapshot import")
	}
	snapshot.ensureInitialized()
	return pgRepo.importSnapshot(ctx, snapshot)
}
