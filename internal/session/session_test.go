package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajatsrma/promptcraft/internal/prompt"
)

func openTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".promptcraft")
	m, err := Open(dir)
	require.NoError(t, err)
	return m, dir
}

func TestOpenCreatesLayout(t *testing.T) {
	_, dir := openTestManager(t)
	info, err := os.Stat(filepath.Join(dir, "sessions"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateAndReopen(t *testing.T) {
	m, dir := openTestManager(t)

	s, err := m.Create("api review", prompt.Data{Task: "review"}, []string{"go"}, "weekly")
	require.NoError(t, err)
	assert.Len(t, s.ID, 36)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, s.CreatedAt, s.LastUsed)
	assert.FileExists(t, filepath.Join(dir, "sessions", s.ID+".json"))
	assert.FileExists(t, filepath.Join(dir, "sessions_index.json"))

	m2, err := Open(dir)
	require.NoError(t, err)
	got, err := m2.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "api review", got.Name)
	assert.Equal(t, "review", got.PromptData().Task)
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.Equal(t, "weekly", got.Description)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateRejectsEmptyName(t *testing.T) {
	m, _ := openTestManager(t)
	_, err := m.Create("  ", prompt.Data{}, nil, "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestGetMissing(t *testing.T) {
	m, _ := openTestManager(t)
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetByName("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFind(t *testing.T) {
	m, _ := openTestManager(t)
	s, err := m.Create("bug hunt", prompt.Data{Task: "t"}, nil, "")
	require.NoError(t, err)

	for _, ref := range []string{s.ID, s.ID[:8], "bug hunt", "bug_hunt"} {
		got, err := m.Find(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, s.ID, got.ID)
	}
	_, err = m.Find("zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBumpsLastUsed(t *testing.T) {
	m, _ := openTestManager(t)
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	s, err := m.Create("x", prompt.Data{}, nil, "")
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(time.Hour) }
	s.Description = "changed"
	require.NoError(t, m.Update(s))
	assert.Equal(t, base.Add(time.Hour), s.LastUsed)
	assert.Equal(t, base, s.CreatedAt)
}

func TestDelete(t *testing.T) {
	m, dir := openTestManager(t)
	s, err := m.Create("x", prompt.Data{}, nil, "")
	require.NoError(t, err)

	require.NoError(t, m.Delete(s.ID))
	assert.NoFileExists(t, filepath.Join(dir, "sessions", s.ID+".json"))
	assert.ErrorIs(t, m.Delete(s.ID), ErrNotFound)
	assert.Empty(t, m.All())
}

func seed(t *testing.T, m *Manager) (a, b, c *Session) {
	t.Helper()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	create := func(offset int, name string, tags []string, desc string) *Session {
		m.now = func() time.Time { return base.AddDate(0, 0, offset) }
		s, err := m.Create(name, prompt.Data{Task: name}, tags, desc)
		require.NoError(t, err)
		return s
	}
	a = create(0, "Login bug", []string{"auth", "bug"}, "")
	b = create(1, "Refactor parser", []string{"refactor"}, "cleanup of the Lexer")
	c = create(2, "Docs", nil, "")
	m.now = func() time.Time { return base.AddDate(0, 0, 3) }
	return a, b, c
}

func names(sessions []*Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.Name
	}
	return out
}

func TestSearch(t *testing.T) {
	m, _ := openTestManager(t)
	a, b, _ := seed(t, m)
	four, two := 4, 2
	a.Rating = &four
	b.Rating = &two
	yes := true

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all by last used", Filter{}, []string{"Docs", "Refactor parser", "Login bug"}},
		{"query name", Filter{Query: "LOGIN"}, []string{"Login bug"}},
		{"query description", Filter{Query: "lexer"}, []string{"Refactor parser"}},
		{"query tag", Filter{Query: "aut"}, []string{"Login bug"}},
		{"tags any", Filter{Tags: []string{"refactor", "bug"}}, []string{"Refactor parser", "Login bug"}},
		{"rating min", Filter{RatingMin: 3}, []string{"Login bug"}},
		{"rating max", Filter{RatingMax: 3}, []string{"Refactor parser"}},
		{"favorite", Filter{Favorite: &yes}, nil},
		{"status", Filter{Status: StatusArchived}, nil},
		{"limit", Filter{Limit: 1}, []string{"Docs"}},
		{"created from", Filter{CreatedFrom: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)}, []string{"Docs", "Refactor parser"}},
		{"created to", Filter{CreatedTo: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}, []string{"Login bug"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Search(tt.filter)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestFavorites(t *testing.T) {
	m, _ := openTestManager(t)
	a, _, _ := seed(t, m)

	on, err := m.ToggleFavorite(a.ID)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []string{"Login bug"}, names(m.Favorites()))

	on, err = m.ToggleFavorite(a.ID)
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, m.Favorites())

	_, err = m.ToggleFavorite("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRate(t *testing.T) {
	m, _ := openTestManager(t)
	a, _, _ := seed(t, m)

	assert.ErrorIs(t, m.Rate(a.ID, 0), ErrInvalidRating)
	assert.ErrorIs(t, m.Rate(a.ID, 6), ErrInvalidRating)
	assert.Nil(t, a.Rating)
	assert.Equal(t, "-", a.RatingString())

	require.NoError(t, m.Rate(a.ID, 3))
	require.NotNil(t, a.Rating)
	assert.Equal(t, 3, *a.Rating)
	assert.Equal(t, "★★★☆☆", a.RatingString())
}

func TestTags(t *testing.T) {
	m, _ := openTestManager(t)
	a, _, c := seed(t, m)

	require.NoError(t, m.AddTags(a.ID, []string{"bug", "urgent", ""}))
	assert.Equal(t, []string{"auth", "bug", "urgent"}, a.Tags)

	require.NoError(t, m.RemoveTags(a.ID, []string{"auth", "absent"}))
	assert.Equal(t, []string{"bug", "urgent"}, a.Tags)

	require.NoError(t, m.AddTags(c.ID, []string{"docs"}))
	assert.Equal(t, []string{"bug", "docs", "refactor", "urgent"}, m.AllTags())
}

func TestSetStatus(t *testing.T) {
	m, _ := openTestManager(t)
	a, _, _ := seed(t, m)
	require.NoError(t, m.SetStatus(a.ID, StatusCompleted))
	assert.Equal(t, []string{"Login bug"}, names(m.Search(Filter{Status: StatusCompleted})))
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("Archived")
	assert.True(t, ok)
	assert.Equal(t, StatusArchived, st)
	_, ok = ParseStatus("deleted")
	assert.False(t, ok)
}

func TestExportImport(t *testing.T) {
	m, _ := openTestManager(t)
	a, b, _ := seed(t, m)

	path := filepath.Join(t.TempDir(), "export.json")
	written, err := m.Export([]string{a.ID, "missing", b.ID}, path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "1.0", doc["export_version"])
	assert.Contains(t, doc, "export_timestamp")
	assert.Len(t, doc["sessions"], 2)

	other, _ := openTestManager(t)
	n, err := other.Import(path, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err := other.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Login bug", got.Name)

	n, err = other.Import(path, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = other.Import(path, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExportDefaultPath(t *testing.T) {
	m, _ := openTestManager(t)
	seed(t, m)
	t.Chdir(t.TempDir())

	path, err := m.Export(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "promptcraft_sessions_export_20250304_000000.json", path)
	assert.FileExists(t, path)
}

func TestImportInvalid(t *testing.T) {
	m, _ := openTestManager(t)
	dir := t.TempDir()

	noKey := filepath.Join(dir, "nokey.json")
	require.NoError(t, os.WriteFile(noKey, []byte(`{"other": []}`), 0644))
	_, err := m.Import(noKey, false)
	assert.ErrorIs(t, err, ErrInvalidImport)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`not json`), 0644))
	_, err = m.Import(bad, false)
	assert.ErrorIs(t, err, ErrInvalidImport)

	_, err = m.Import(filepath.Join(dir, "missing.json"), false)
	assert.Error(t, err)
}

func TestImportRejectsUnsafeIDs(t *testing.T) {
	m, dir := openTestManager(t)
	path := filepath.Join(t.TempDir(), "in.json")
	doc := `{"sessions": [
		{"id": "../../escaped", "name": "up", "status": "draft"},
		{"id": "sub/dir", "name": "nested", "status": "draft"},
		{"id": "plain-name", "name": "not a uuid", "status": "draft"},
		{"id": "0b8a4c2e-7f3d-4e91-a5b6-c7d8e9f0a1b2", "name": "ok", "status": "draft"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	n, err := m.Import(path, false)
	assert.ErrorIs(t, err, ErrInvalidImport)
	assert.ErrorContains(t, err, `"../../escaped"`)
	assert.Equal(t, 1, n)

	_, err = m.Get("0b8a4c2e-7f3d-4e91-a5b6-c7d8e9f0a1b2")
	assert.NoError(t, err)
	_, err = m.Get("../../escaped")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escaped.json"))
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("0b8a4c2e-7f3d-4e91-a5b6-c7d8e9f0a1b2"))
	assert.False(t, validID(""))
	assert.False(t, validID("../x"))
	assert.False(t, validID(`a\b`))
	assert.False(t, validID("abc-123"))
}

func TestImportZonelessTimestamps(t *testing.T) {
	m, _ := openTestManager(t)
	path := filepath.Join(t.TempDir(), "in.json")
	doc := `{"export_version": "1.0", "sessions": [{
		"id": "5f0c6a3e-9d1b-4c2a-8e7f-1a2b3c4d5e6f", "name": "old", "created_at": "2024-05-01T10:20:30.123456",
		"last_used": "2024-05-02T08:00:00", "tags": ["x"], "favorite": true,
		"success_rating": null, "status": "draft", "description": null,
		"project_path": null, "data": {"persona": null, "task": "t", "context": null,
		"schemas": [], "examples": [], "constraints": null}}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	n, err := m.Import(path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s, err := m.Get("5f0c6a3e-9d1b-4c2a-8e7f-1a2b3c4d5e6f")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, s.Status)
	assert.True(t, s.Favorite)
	assert.Equal(t, 2024, s.CreatedAt.Year())
	assert.Equal(t, 20, s.CreatedAt.Minute())
	assert.Equal(t, "t", s.PromptData().Task)
}

func TestCleanupOld(t *testing.T) {
	m, _ := openTestManager(t)
	a, b, c := seed(t, m)
	_, err := m.ToggleFavorite(a.ID)
	require.NoError(t, err)

	a.LastUsed = m.now().AddDate(0, 0, -90)
	b.LastUsed = m.now().AddDate(0, 0, -90)
	c.LastUsed = m.now().AddDate(0, 0, -1)

	n, err := m.CleanupOld(30)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = m.Get(b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, m.All(), 2)
}

func TestStats(t *testing.T) {
	m, _ := openTestManager(t)
	a, b, c := seed(t, m)
	require.NoError(t, m.Rate(a.ID, 5))
	require.NoError(t, m.AddTags(c.ID, []string{"bug"}))
	_, err := m.ToggleFavorite(b.ID)
	require.NoError(t, err)
	c.CreatedAt = m.now().AddDate(0, 0, -20)

	st := m.Stats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Favorites)
	assert.Equal(t, map[string]int{"active": 3}, st.ByStatus)
	assert.Equal(t, map[string]int{"5": 1}, st.ByRating)
	assert.Equal(t, 2, st.TagCounts["bug"])
	assert.Equal(t, 2, st.ThisWeek)
	assert.Equal(t, 3, st.ThisMonth)
	assert.Equal(t, []string{"bug", "auth"}, st.TopTags(2))
}

func TestLegacyMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".promptcraft")
	require.NoError(t, os.MkdirAll(dir, 0755))
	legacy := `{"persona": "p", "task": "fix it", "context": null, "schemas": ["s1"], "examples": [], "constraints": null}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "my_old_prompt.json"), []byte(legacy), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.json"), []byte(`{"id": "x"}`), 0644))

	m, err := Open(dir)
	require.NoError(t, err)

	s, err := m.GetByName("my old prompt")
	require.NoError(t, err)
	assert.Equal(t, "fix it", s.PromptData().Task)
	assert.Equal(t, []string{"s1"}, s.PromptData().Schemas)
	assert.FileExists(t, filepath.Join(dir, "legacy_backup", "my_old_prompt.json"))
	assert.NoFileExists(t, filepath.Join(dir, "my_old_prompt.json"))
	assert.FileExists(t, filepath.Join(dir, "unrelated.json"))
	assert.Len(t, m.All(), 1)
}

func TestCorruptIndexRebuilt(t *testing.T) {
	m, dir := openTestManager(t)
	s, err := m.Create("keep me", prompt.Data{Task: "t"}, nil, "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessions_index.json"), []byte("{broken"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessions", "junk.json"), []byte("[]"), 0644))

	m2, err := Open(dir)
	require.NoError(t, err)
	got, err := m2.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep me", got.Name)
	assert.Len(t, m2.All(), 1)
}

func TestLastUsedAgo(t *testing.T) {
	s := &Session{LastUsed: time.Now().Add(-3*time.Hour - time.Minute)}
	assert.Equal(t, "3 hours ago", s.LastUsedAgo())
}
