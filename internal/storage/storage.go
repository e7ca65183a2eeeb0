package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"seedvault/internal/models"
)

type dataset struct {
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

func newDataset() dataset {
	return dataset{
		Users:         make(map[string]models.User),
		Torrents:      make(map[string]models.Torrent),
		Categories:    make(map[string]models.Category),
		Requests:      make(map[string]models.Request),
		PeerBans:      make(map[string]models.PeerBan),
		Announcements: make(map[string]models.Announcement),
		WikiPages:     make(map[string]models.WikiPage),
		Notifications: make(map[string]models.Notification),
		Bookmarks:     make(map[string]map[string]models.Bookmark),
		Config:        defaultSiteConfig(),
	}
}

func defaultSiteConfig() models.SiteConfig {
	return models.SiteConfig{
		RegistrationMode:       models.RegistrationOpen,
		RequireTorrentApproval: true,
	}
}

// Storage keeps the whole dataset in memory guarded by a RWMutex and persists
// it to a single JSON file through an atomic temp-file rename.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset

	// persistOverride lets tests intercept persistence.
	persistOverride func(dataset) error
}

// NewStorage opens (or initialises) the JSON datastore at path.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	store := &Storage{filePath: path}
	for _, opt := range opts {
		if opt != nil {
			opt.applyJSON(store)
		}
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	if s.filePath == "" {
		s.data = newDataset()
		return nil
	}

	if dir := filepath.Dir(s.filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = newDataset()
			return s.persist()
		}
		return fmt.Errorf("open datastore: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var data dataset
	if err := decoder.Decode(&data); err != nil {
		if err == io.EOF {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode datastore: %w", err)
	}
	ensureDatasetInitialized(&data)
	s.data = data
	return nil
}

func ensureDatasetInitialized(data *dataset) {
	if data.Users == nil {
		data.Users = make(map[string]models.User)
	}
	if data.Torrents == nil {
		data.Torrents = make(map[string]models.Torrent)
	}
	if data.Categories == nil {
		data.Categories = make(map[string]models.Category)
	}
	if data.Requests == nil {
		data.Requests = make(map[string]models.Request)
	}
	if data.PeerBans == nil {
		data.PeerBans = make(map[string]models.PeerBan)
	}
	if data.Announcements == nil {
		data.Announcements = make(map[string]models.Announcement)
	}
	if data.WikiPages == nil {
		data.WikiPages = make(map[string]models.WikiPage)
	}
	if data.Notifications == nil {
		data.Notifications = make(map[string]models.Notification)
	}
	if data.Bookmarks == nil {
		data.Bookmarks = make(map[string]map[string]models.Bookmark)
	}
	if data.Config.RegistrationMode == "" {
		data.Config.RegistrationMode = models.RegistrationOpen
	}
}

func (s *Storage) persist() error {
	if s.persistOverride != nil {
		return s.persistOverride(s.data)
	}
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		return s.persistOverride(data)
	}
	if s.filePath == "" {
		return nil
	}

	dir := filepath.Dir(s.filePath)
	tmp, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp datastore: %w", err)
	}

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync datastore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close datastore: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("replace datastore: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(data dataset) dataset {
	clone := dataset{
		Users:         make(map[string]models.User, len(data.Users)),
		Torrents:      make(map[string]models.Torrent, len(data.Torrents)),
		Categories:    make(map[string]models.Category, len(data.Categories)),
		Requests:      make(map[string]models.Request, len(data.Requests)),
		PeerBans:      make(map[string]models.PeerBan, len(data.PeerBans)),
		Announcements: make(map[string]models.Announcement, len(data.Announcements)),
		WikiPages:     make(map[string]models.WikiPage, len(data.WikiPages)),
		Notifications: make(map[string]models.Notification, len(data.Notifications)),
		Bookmarks:     make(map[string]map[string]models.Bookmark, len(data.Bookmarks)),
		Config:        data.Config,
	}
	for id, user := range data.Users {
		clone.Users[id] = user
	}
	for id, torrent := range data.Torrents {
		clone.Torrents[id] = torrent
	}
	for id, category := range data.Categories {
		clone.Categories[id] = category
	}
	for id, request := range data.Requests {
		clone.Requests[id] = request
	}
	for id, ban := range data.PeerBans {
		clone.PeerBans[id] = ban
	}
	for id, announcement := range data.Announcements {
		clone.Announcements[id] = announcement
	}
	for id, page := range data.WikiPages {
		clone.WikiPages[id] = page
	}
	for id, notification := range data.Notifications {
		clone.Notifications[id] = notification
	}
	for userID, marks := range data.Bookmarks {
		inner := make(map[string]models.Bookmark, len(marks))
		for torrentID, mark := range marks {
			inner[torrentID] = mark
		}
		clone.Bookmarks[userID] = inner
	}
	return clone
}

// Ping reports datastore health. The JSON store is healthy whenever the
// process is running.
func (s *Storage) Ping(context.Context) error {
	return nil
}
