package filter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajatsrma/promptcraft/internal/types"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func createTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, ".gitignore", "# local stuff\nsecrets/\n*.log\n!keep.log\n/local.cfg\n")
	writeFile(t, dir, "app.py", "def hello():\n    pass\n")
	writeFile(t, dir, "requirements.txt", "requests==2.31.0\n")
	writeFile(t, dir, "README.md", "# Demo\n")
	writeFile(t, dir, "app.exe", "MZ")
	writeFile(t, dir, "server.log", "started\n")
	writeFile(t, dir, "local.cfg", "[x]\n")
	writeFile(t, dir, "secrets/key.py", "KEY = 1\n")
	writeFile(t, dir, "node_modules/lib/index.js", "module.exports = {}\n")
	writeFile(t, dir, "notes.xyz", "plain words\n")
	writeFile(t, dir, "big.py", strings.Repeat("x = 1\n", 300))
	return dir
}

func TestDetect(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		path string
		want types.FileCategory
	}{
		{"requirements.txt", types.CategoryConfig},
		{"app.exe", types.CategoryBinary},
		{"README.md", types.CategoryDocumentation},
		{"docs/Readme.MD", types.CategoryDocumentation},
		{"Dockerfile", types.CategoryConfig},
		{"Makefile", types.CategoryConfig},
		{"test_app.py", types.CategoryTest},
		{"src/app.test.js", types.CategoryTest},
		{"button.spec.ts", types.CategoryTest},
		{"main.go", types.CategorySourceCode},
		{"index.tsx", types.CategorySourceCode},
		{"notes.txt", types.CategoryDocumentation},
		{"settings.yaml", types.CategoryConfig},
		{"logo.png", types.CategoryBinary},
		{".dockerignore", types.CategoryBuild},
		{"thing.xyz", types.CategoryUnknown},
		{"LICENSE", types.CategoryDocumentation},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Detect(tt.path), "Detect(%q)", tt.path)
	}
}

func TestDetectTestMarkerNeedsSourceExtension(t *testing.T) {
	d := NewDetector()
	// "test" in the name only matters for source extensions.
	assert.Equal(t, types.CategoryDocumentation, d.Detect("test_plan.md"))
	assert.Equal(t, types.CategoryConfig, d.Detect("test.json"))
}

func TestIsText(t *testing.T) {
	d := NewDetector()
	assert.True(t, d.IsText("app.py"))
	assert.True(t, d.IsText("main.ts"))
	assert.True(t, d.IsText("data.json"))
	assert.True(t, d.IsText("README.md"))
	assert.True(t, d.IsText("Makefile"))
	assert.False(t, d.IsText("app.exe"))
	assert.False(t, d.IsText("logo.png"))
	assert.False(t, d.IsText("thing.xyz"))
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.log", "debug.log", true},
		{"*.log", "logs/debug.log", true},
		{"*.log", "debug.txt", false},
		{"node_modules/", "node_modules/", true},
		{"node_modules/", "node_modules/a.js", true},
		{"node_modules/", "src/node_modules/x/a.js", true},
		{"node_modules/", "node_modules", true},
		{"logs/", "logs", true},
		{"logs/", "logs.txt", false},
		{"/local.cfg", "local.cfg", true},
		{"/local.cfg", "sub/local.cfg", false},
		{"dist/*", "dist/main.js", true},
		{"docs/**/*.md", "docs/a/b/c.md", true},
		{"docs/**/*.md", "src/c.md", false},
		{"[", "anything", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchPattern(tt.pattern, tt.path), "matchPattern(%q, %q)", tt.pattern, tt.path)
	}
}

func TestLoadGitIgnore(t *testing.T) {
	dir := createTestRepo(t)
	g := LoadGitIgnore(dir)

	assert.Equal(t, []string{"secrets/", "*.log", "/local.cfg"}, g.Patterns())
	assert.True(t, g.Ignored("server.log"))
	assert.True(t, g.Ignored(filepath.Join(dir, "secrets", "key.py")))
	// Negations are recorded but never un-ignore.
	assert.True(t, g.Ignored("keep.log"))
	assert.False(t, g.Ignored("app.py"))
	assert.False(t, g.Ignored("/elsewhere/server.log"))
	assert.True(t, g.IgnoredDir("secrets"))
}

func TestGitIgnoreDirPatternMatchesPlainFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "logs/\n")
	writeFile(t, dir, "logs", "x")

	g := LoadGitIgnore(dir)
	assert.True(t, g.Ignored("logs"))
	assert.True(t, g.Ignored(filepath.Join(dir, "logs")))
	assert.True(t, g.IgnoredDir("logs"))
	assert.False(t, g.Ignored("logs.txt"))
}

func TestLoadGitIgnoreMissing(t *testing.T) {
	g := LoadGitIgnore(t.TempDir())
	assert.Empty(t, g.Patterns())
	assert.False(t, g.Ignored("anything.log"))
}

func TestGetInfo(t *testing.T) {
	dir := createTestRepo(t)
	f := New(dir, DefaultConfig())

	info := f.GetInfo("app.py")
	require.NotNil(t, info)
	assert.Equal(t, "app.py", info.RelativePath)
	assert.Equal(t, filepath.Join(f.Root(), "app.py"), info.Path)
	assert.Equal(t, int64(len("def hello():\n    pass\n")), info.Size)
	assert.Equal(t, types.CategorySourceCode, info.Category)
	assert.True(t, info.IsText)

	assert.Nil(t, f.GetInfo("missing.py"))
	assert.Nil(t, f.GetInfo("secrets"), "directories have no record")
	assert.Nil(t, f.GetInfo(filepath.Join(t.TempDir(), "outside.py")))
}

func TestShouldInclude(t *testing.T) {
	dir := createTestRepo(t)
	cfg := DefaultConfig()
	cfg.MaxFileSize = 1000
	f := New(dir, cfg)

	tests := []struct {
		path   string
		ok     bool
		reason string
	}{
		{"app.py", true, ""},
		{"requirements.txt", true, ""},
		{"README.md", true, ""},
		{"missing.py", false, ReasonNotAccessible},
		{"app.exe", false, ReasonBinary},
		{"big.py", false, "file_too_large_1800_bytes"},
		{"server.log", false, ReasonGitignore},
		{"local.cfg", false, ReasonGitignore},
		{"secrets/key.py", false, ReasonGitignore},
		{"node_modules/lib/index.js", false, ReasonIgnorePattern},
		{"notes.xyz", false, ReasonNotText},
	}
	for _, tt := range tests {
		ok, reason := f.ShouldInclude(tt.path)
		assert.Equal(t, tt.ok, ok, "ShouldInclude(%q)", tt.path)
		assert.Equal(t, tt.reason, reason, "ShouldInclude(%q) reason", tt.path)
	}
}

func TestShouldIncludeTooLargeByOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "edge.py", strings.Repeat("a", 101))

	f := New(dir, Config{MaxFileSize: 100})
	ok, reason := f.ShouldInclude("edge.py")
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(reason, "file_too_large_"), reason)
}

func TestGitignoreDisabled(t *testing.T) {
	dir := createTestRepo(t)
	f := New(dir, Config{MaxFileSize: 1 << 20})

	ok, reason := f.ShouldInclude("local.cfg")
	assert.True(t, ok, reason)
	// Default patterns still apply.
	ok, reason = f.ShouldInclude("server.log")
	assert.False(t, ok)
	assert.Equal(t, ReasonIgnorePattern, reason)
}

func TestCustomIgnorePatterns(t *testing.T) {
	dir := createTestRepo(t)
	cfg := DefaultConfig()
	cfg.IgnorePatterns = []string{"requirements.*"}
	f := New(dir, cfg)

	ok, reason := f.ShouldInclude("requirements.txt")
	assert.False(t, ok)
	assert.Equal(t, ReasonIgnorePattern, reason)
}

func TestFilterBuckets(t *testing.T) {
	dir := createTestRepo(t)
	f := New(dir, DefaultConfig())

	res := f.Filter([]string{"app.py", "README.md", "app.exe", "missing.py", "requirements.txt"})

	assert.Len(t, res.Included, 3)
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, ReasonBinary, res.Excluded[0].Reason)
	assert.Equal(t, "app.exe", res.Excluded[0].Record.RelativePath)

	assert.Len(t, res.ByCategory[types.CategorySourceCode], 1)
	assert.Len(t, res.ByCategory[types.CategoryConfig], 1)
	assert.Len(t, res.ByCategory[types.CategoryDocumentation], 1)
	for _, c := range types.AllCategories {
		_, ok := res.ByCategory[c]
		assert.True(t, ok, "bucket for %s", c)
	}
}

func TestRank(t *testing.T) {
	now := time.Now()
	records := []types.FileRecord{
		{RelativePath: "README.md", Category: types.CategoryDocumentation, Size: 10, ModTime: now},
		{RelativePath: "big.py", Category: types.CategorySourceCode, Size: 500, ModTime: now},
		{RelativePath: "old.py", Category: types.CategorySourceCode, Size: 100, ModTime: now.Add(-time.Hour)},
		{RelativePath: "new.py", Category: types.CategorySourceCode, Size: 100, ModTime: now},
		{RelativePath: "test_x.py", Category: types.CategoryTest, Size: 1, ModTime: now},
		{RelativePath: "go.mod", Category: types.CategoryConfig, Size: 50, ModTime: now},
		{RelativePath: "blob", Category: types.CategoryUnknown, Size: 1, ModTime: now},
	}
	f := New(t.TempDir(), DefaultConfig())

	var got []string
	for _, r := range f.Rank(records, 0) {
		got = append(got, r.RelativePath)
	}
	assert.Equal(t, []string{"new.py", "old.py", "big.py", "go.mod", "test_x.py", "README.md", "blob"}, got)

	assert.Len(t, f.Rank(records, 2), 2)
}

func TestScan(t *testing.T) {
	dir := createTestRepo(t)
	f := New(dir, DefaultConfig())

	res := f.Scan(100)

	var included []string
	for _, r := range res.Included {
		included = append(included, r.RelativePath)
	}
	assert.ElementsMatch(t, []string{".gitignore", "app.py", "big.py", "requirements.txt", "README.md"}, included)

	for _, e := range res.Excluded {
		assert.False(t, strings.HasPrefix(e.Record.RelativePath, "node_modules/"), "pruned dir was enumerated")
		assert.False(t, strings.HasPrefix(e.Record.RelativePath, "secrets/"), "gitignored dir was enumerated")
	}
}

func TestScanEnumerationCap(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, dir, filepath.Join("src", "m"+string(rune('a'+i))+".py"), "x = 1\n")
	}
	f := New(dir, DefaultConfig())

	res := f.Scan(2)
	assert.LessOrEqual(t, len(res.Included)+len(res.Excluded), 6)
	assert.NotEmpty(t, res.Included)
}

func TestShouldSkipDir(t *testing.T) {
	dir := createTestRepo(t)
	f := New(dir, DefaultConfig())

	assert.True(t, f.ShouldSkipDir("node_modules"))
	assert.True(t, f.ShouldSkipDir("src/__pycache__"))
	assert.True(t, f.ShouldSkipDir("secrets"))
	assert.False(t, f.ShouldSkipDir("src"))
	assert.False(t, f.ShouldSkipDir("."))
}

func TestValidPattern(t *testing.T) {
	assert.True(t, ValidPattern("*.log"))
	assert.True(t, ValidPattern("build/"))
	assert.False(t, ValidPattern("[abc"))
}
