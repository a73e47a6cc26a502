package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rajatsrma/promptcraft/internal/prompt"
)

const (
	// DefaultDir is the per-project session directory.
	DefaultDir = ".promptcraft"

	indexFile     = "sessions_index.json"
	sessionsDir   = "sessions"
	legacyBackup  = "legacy_backup"
	exportVersion = "1.0"
)

// Manager owns the sessions stored under one directory. It keeps the whole
// index in memory and writes through on every change. It is not safe for
// concurrent use.
type Manager struct {
	dir      string
	sessions *store
	index    map[string]*Session
	now      func() time.Time
}

// Open loads the session index under dir, creating the directory layout if
// needed. A corrupt index is rebuilt from the session files, and legacy
// prompt files found directly in dir are migrated.
func Open(dir string) (*Manager, error) {
	if dir == "" {
		dir = DefaultDir
	}
	m := &Manager{
		dir:      dir,
		sessions: newStore(filepath.Join(dir, sessionsDir)),
		index:    make(map[string]*Session),
		now:      time.Now,
	}
	if err := os.MkdirAll(m.sessions.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	if err := m.loadIndex(); err != nil {
		log.Printf("[session] warning: index unreadable, rebuilding: %v", err)
		m.rebuildIndex()
	}
	if err := m.migrateLegacy(); err != nil {
		return nil, err
	}
	return m, nil
}

// Dir returns the session directory.
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) indexPath() string {
	return filepath.Join(m.dir, indexFile)
}

func (m *Manager) loadIndex() error {
	data, err := os.ReadFile(m.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var idx map[string]*Session
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	for id, s := range idx {
		if s == nil {
			return fmt.Errorf("%w: null entry %s", ErrInvalidSession, id)
		}
		m.index[id] = s
	}
	return nil
}

func (m *Manager) rebuildIndex() {
	m.index = make(map[string]*Session)
	keys, err := m.sessions.Keys()
	if err != nil {
		log.Printf("[session] warning: cannot list sessions: %v", err)
		return
	}
	for _, id := range keys {
		var s Session
		if err := m.sessions.Load(id, &s); err != nil {
			log.Printf("[session] warning: skipping %s: %v", id, err)
			continue
		}
		m.index[id] = &s
	}
}

func (m *Manager) saveIndex() error {
	data, err := marshalJSON(m.index)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.WriteFile(m.indexPath(), data, 0644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func (m *Manager) persist(s *Session) error {
	if err := m.sessions.Save(s.ID, s); err != nil {
		return err
	}
	m.index[s.ID] = s
	return m.saveIndex()
}

var legacyKeys = []string{"persona", "task", "context", "schemas", "examples", "constraints"}

func isLegacy(raw map[string]json.RawMessage) bool {
	if _, ok := raw["id"]; ok {
		return false
	}
	for _, k := range legacyKeys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

// migrateLegacy turns bare <name>.json prompt files into sessions and moves
// the source files to legacy_backup/.
func (m *Manager) migrateLegacy() error {
	matches, err := filepath.Glob(filepath.Join(m.dir, "*.json"))
	if err != nil {
		return err
	}

	migrated := 0
	for _, path := range matches {
		if filepath.Base(path) == indexFile {
			continue
		}
		if err := m.migrateFile(path); err != nil {
			log.Printf("[session] warning: cannot migrate %s: %v", filepath.Base(path), err)
			continue
		}
		migrated++
	}
	if migrated > 0 {
		log.Printf("[session] migrated %d legacy sessions", migrated)
		return m.saveIndex()
	}
	return nil
}

func (m *Manager) migrateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !isLegacy(raw) {
		return fmt.Errorf("not a legacy prompt file")
	}
	var pd prompt.Data
	if err := json.Unmarshal(data, &pd); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), ".json")
	s := &Session{
		ID:        uuid.NewString(),
		Name:      strings.ReplaceAll(name, "_", " "),
		CreatedAt: info.ModTime(),
		LastUsed:  info.ModTime(),
		Tags:      []string{},
		Status:    StatusActive,
		Data:      &pd,
	}
	if err := m.sessions.Save(s.ID, s); err != nil {
		return err
	}
	m.index[s.ID] = s

	backup := filepath.Join(m.dir, legacyBackup)
	if err := os.MkdirAll(backup, 0755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(backup, filepath.Base(path)))
}

// Create stores a new active session for data.
func (m *Manager) Create(name string, data prompt.Data, tags []string, description string) (*Session, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidSession)
	}
	cwd, _ := os.Getwd()
	now := m.now()
	if tags == nil {
		tags = []string{}
	}
	s := &Session{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedAt:   now,
		LastUsed:    now,
		Tags:        tags,
		Status:      StatusActive,
		Description: description,
		ProjectPath: cwd,
		Data:        &data,
	}
	if err := m.persist(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// GetByName returns the most recently used session called name.
func (m *Manager) GetByName(name string) (*Session, error) {
	for _, s := range m.All() {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Find resolves ref as an ID, a unique ID prefix of at least four
// characters, or a name. Names also match with underscores read as spaces.
func (m *Manager) Find(ref string) (*Session, error) {
	if s, ok := m.index[ref]; ok {
		return s, nil
	}
	if s, err := m.GetByName(ref); err == nil {
		return s, nil
	}
	if alt := strings.ReplaceAll(ref, "_", " "); alt != ref {
		if s, err := m.GetByName(alt); err == nil {
			return s, nil
		}
	}
	if len(ref) >= 4 {
		var found *Session
		for id, s := range m.index {
			if strings.HasPrefix(id, ref) {
				if found != nil {
					return nil, fmt.Errorf("%w: ambiguous id prefix %s", ErrNotFound, ref)
				}
				found = s
			}
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Update saves s and marks it as used now.
func (m *Manager) Update(s *Session) error {
	s.LastUsed = m.now()
	return m.persist(s)
}

// Delete removes the session with id.
func (m *Manager) Delete(id string) error {
	if _, ok := m.index[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.index, id)
	if err := m.sessions.Delete(id); err != nil {
		return err
	}
	return m.saveIndex()
}

// Filter narrows a Search. Zero values disable a criterion.
type Filter struct {
	// Query matches name, description or any tag, ignoring case.
	Query string
	// Tags keeps sessions carrying at least one of these tags.
	Tags      []string
	Favorite  *bool
	Status    Status
	RatingMin int
	RatingMax int
	// CreatedFrom and CreatedTo bound CreatedAt inclusively.
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
}

func (f Filter) match(s *Session) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		hit := strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.Description), q) ||
			slices.ContainsFunc(s.Tags, func(t string) bool { return strings.Contains(strings.ToLower(t), q) })
		if !hit {
			return false
		}
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, s.HasTag) {
		return false
	}
	if f.Favorite != nil && s.Favorite != *f.Favorite {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.RatingMin > 0 && (s.Rating == nil || *s.Rating < f.RatingMin) {
		return false
	}
	if f.RatingMax > 0 && (s.Rating == nil || *s.Rating > f.RatingMax) {
		return false
	}
	if !f.CreatedFrom.IsZero() && s.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && s.CreatedAt.After(f.CreatedTo) {
		return false
	}
	return true
}

// Search returns the sessions matching f, most recently used first.
func (m *Manager) Search(f Filter) []*Session {
	var out []*Session
	for _, s := range m.index {
		if f.match(s) {
			out = append(out, s)
		}
	}
	sortByLastUsed(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func sortByLastUsed(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].LastUsed.Equal(sessions[j].LastUsed) {
			return sessions[i].LastUsed.After(sessions[j].LastUsed)
		}
		return sessions[i].ID < sessions[j].ID
	})
}

// All returns every session, most recently used first.
func (m *Manager) All() []*Session {
	return m.Search(Filter{})
}

// Favorites returns the favorite sessions, most recently used first.
func (m *Manager) Favorites() []*Session {
	yes := true
	return m.Search(Filter{Favorite: &yes})
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (m *Manager) ToggleFavorite(id string) (bool, error) {
	s, err := m.Get(id)
	if err != nil {
		return false, err
	}
	s.Favorite = !s.Favorite
	return s.Favorite, m.Update(s)
}

// Rate sets a 1 to 5 success rating.
func (m *Manager) Rate(id string, rating int) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	s.Rating = &rating
	return m.Update(s)
}

// SetStatus changes the lifecycle status.
func (m *Manager) SetStatus(id string, status Status) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Status = status
	return m.Update(s)
}

// AddTags adds the tags the session does not already carry.
func (m *Manager) AddTags(id string, tags []string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	for _, t := range tags {
		if t != "" && !s.HasTag(t) {
			s.Tags = append(s.Tags, t)
		}
	}
	return m.Update(s)
}

// RemoveTags drops the given tags from the session.
func (m *Manager) RemoveTags(id string, tags []string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Tags = slices.DeleteFunc(s.Tags, func(t string) bool { return slices.Contains(tags, t) })
	return m.Update(s)
}

// AllTags returns every tag in use, sorted.
func (m *Manager) AllTags() []string {
	var tags []string
	for _, s := range m.index {
		for _, t := range s.Tags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// ExportFile is the document written by Export and read by Import.
type ExportFile struct {
	Version   string     `json:"export_version"`
	Timestamp time.Time  `json:"export_timestamp"`
	Sessions  []*Session `json:"sessions"`
}

// Export writes the sessions with the given ids, or all sessions when ids
// is empty, to path. An empty path gets a timestamped name in the working
// directory. Unknown ids are skipped. It returns the path written.
func (m *Manager) Export(ids []string, path string) (string, error) {
	var sessions []*Session
	if len(ids) == 0 {
		sessions = m.All()
	} else {
		for _, id := range ids {
			if s, ok := m.index[id]; ok {
				sessions = append(sessions, s)
			}
		}
	}
	if sessions == nil {
		sessions = []*Session{}
	}

	now := m.now()
	if path == "" {
		path = fmt.Sprintf("promptcraft_sessions_export_%s.json", now.Format("20060102_150405"))
	}
	data, err := marshalJSON(ExportFile{Version: exportVersion, Timestamp: now, Sessions: sessions})
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// Import loads sessions from an export file. Sessions whose id already
// exists are skipped unless overwrite is set. Entries whose id is not a
// UUID are skipped and reported as ErrInvalidImport after the rest are
// stored. It returns how many were stored.
func (m *Manager) Import(path string, overwrite bool) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read import: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	list, ok := raw["sessions"]
	if !ok {
		return 0, fmt.Errorf("%w: no sessions key", ErrInvalidImport)
	}
	var sessions []*Session
	if err := json.Unmarshal(list, &sessions); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	count := 0
	var rejected []string
	for _, s := range sessions {
		if s == nil {
			continue
		}
		if !validID(s.ID) {
			rejected = append(rejected, strconv.Quote(s.ID))
			continue
		}
		if _, exists := m.index[s.ID]; exists && !overwrite {
			continue
		}
		if err := m.sessions.Save(s.ID, s); err != nil {
			return count, err
		}
		m.index[s.ID] = s
		count++
	}
	if err := m.saveIndex(); err != nil {
		return count, err
	}
	if len(rejected) > 0 {
		return count, fmt.Errorf("%w: invalid session id %s", ErrInvalidImport, strings.Join(rejected, ", "))
	}
	return count, nil
}

// validID reports whether id is a UUID usable as a file name in the
// sessions directory.
func validID(id string) bool {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// CleanupOld deletes non-favorite sessions not used in the last days days
// and returns how many were removed.
func (m *Manager) CleanupOld(days int) (int, error) {
	cutoff := m.now().AddDate(0, 0, -days)
	var stale []string
	for id, s := range m.index {
		if !s.Favorite && s.LastUsed.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		if err := m.Delete(id); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// Stats summarizes the stored sessions.
type Stats struct {
	Total     int            `json:"total_sessions"`
	Favorites int            `json:"favorite_sessions"`
	ByStatus  map[string]int `json:"sessions_by_status"`
	ByRating  map[string]int `json:"sessions_by_rating"`
	TagCounts map[string]int `json:"most_used_tags"`
	ThisWeek  int            `json:"sessions_this_week"`
	ThisMonth int            `json:"sessions_this_month"`
}

// TopTags returns up to n tags ordered by use count, then name.
func (st Stats) TopTags(n int) []string {
	tags := make([]string, 0, len(st.TagCounts))
	for t := range st.TagCounts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if st.TagCounts[tags[i]] != st.TagCounts[tags[j]] {
			return st.TagCounts[tags[i]] > st.TagCounts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if n > 0 && len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

// Stats counts sessions by status, rating, tag and recency of creation.
func (m *Manager) Stats() Stats {
	now := m.now()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	st := Stats{
		ByStatus:  make(map[string]int),
		ByRating:  make(map[string]int),
		TagCounts: make(map[string]int),
	}
	for _, s := range m.index {
		st.Total++
		if s.Favorite {
			st.Favorites++
		}
		st.ByStatus[string(s.Status)]++
		if s.Rating != nil {
			st.ByRating[fmt.Sprint(*s.Rating)]++
		}
		for _, t := range s.Tags {
			st.TagCounts[t]++
		}
		if !s.CreatedAt.Before(weekAgo) {
			st.ThisWeek++
		}
		if !s.CreatedAt.Before(monthAgo) {
			st.ThisMonth++
		}
	}
	return st
}
