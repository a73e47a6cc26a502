package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajatsrma/promptcraft/internal/browser"
	"github.com/rajatsrma/promptcraft/internal/config"
	"github.com/rajatsrma/promptcraft/internal/llm"
	"github.com/rajatsrma/promptcraft/internal/prompt"
	"github.com/rajatsrma/promptcraft/internal/session"
	"github.com/rajatsrma/promptcraft/internal/template"
	"github.com/rajatsrma/promptcraft/internal/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := buildRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func seedSession(t *testing.T, dir, name string, data prompt.Data, tags ...string) *session.Session {
	t.Helper()
	mgr, err := session.Open(filepath.Join(dir, session.DefaultDir))
	require.NoError(t, err)
	s, err := mgr.Create(name, data, tags, "")
	require.NoError(t, err)
	return s
}

func openSessions(t *testing.T, dir string) *session.Manager {
	t.Helper()
	mgr, err := session.Open(filepath.Join(dir, session.DefaultDir))
	require.NoError(t, err)
	return mgr
}

const appSource = `import os


class Greeter:
    def greet(self, name):
        return "hi " + name


def hello():
    return Greeter().greet("you")
`

func projectFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "app.py", appSource)
	writeFile(t, dir, "README.md", "# Demo\n\nA small demo project.\n")
	writeFile(t, dir, "node_modules/lib/index.js", "module.exports = 1;\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.bin"), []byte{0x00, 0x01, 0x02, 0xff, 0x00}, 0644))
	return dir
}

func TestBuildRootCmd(t *testing.T) {
	cmd := buildRootCmd()
	assert.Equal(t, "promptcraft", cmd.Use)
	assert.Equal(t, version, cmd.Version)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("dir"))
}

func TestBuildRootCmdSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"init", "list", "load", "run", "sessions", "templates", "files", "detect", "git", "completion"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "promptcraft")
	assert.Contains(t, out, "sessions")
}

func TestRootCmdVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/demo\n")

	out, err := execute(t, "init", "-C", dir, "--database", "postgres", "--provider", "Anthropic")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration saved")
	assert.Contains(t, out, "Go project")

	cfg, ok, err := config.LoadProject(dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "go", cfg.Framework)
	assert.Equal(t, "postgres", cfg.Database)
	assert.Equal(t, "Anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.LLM.Model)

	_, err = execute(t, "init", "-C", dir)
	assert.Error(t, err, "existing config needs --force")

	_, err = execute(t, "init", "-C", dir, "--force", "--framework", "gin", "--model", "gpt-4o")
	require.NoError(t, err)
	cfg, _, err = config.LoadProject(dir)
	require.NoError(t, err)
	assert.Equal(t, "gin", cfg.Framework)
	assert.Equal(t, "OpenAI", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
}

func TestListEmpty(t *testing.T) {
	out, err := execute(t, "list", "-C", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No saved sessions")
}

func TestListShowsSessions(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir, "Login bug", prompt.Data{Task: "Fix login"}, "auth")
	seedSession(t, dir, "Docs", prompt.Data{Task: "Write docs"})

	out, err := execute(t, "list", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved sessions (2)")
	assert.Contains(t, out, "Login bug")
	assert.Contains(t, out, "#auth")

	out, err = execute(t, "list", "-C", dir, "--tag", "auth")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved sessions (1)")
	assert.NotContains(t, out, "Docs")
}

func TestSessionsLifecycle(t *testing.T) {
	dir := t.TempDir()
	s := seedSession(t, dir, "Login bug", prompt.Data{Persona: "You are a security reviewer.", Task: "Review auth"}, "auth")

	out, err := execute(t, "sessions", "rate", "Login bug", "4", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "rated 4/5")

	_, err = execute(t, "sessions", "rate", "Login bug", "9", "-C", dir)
	assert.ErrorIs(t, err, session.ErrInvalidRating)
	_, err = execute(t, "sessions", "rate", "Login bug", "many", "-C", dir)
	assert.ErrorIs(t, err, session.ErrInvalidRating)

	out, err = execute(t, "sessions", "favorite", "Login_bug", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "added to favorites")

	out, err = execute(t, "sessions", "tag", s.ID[:8], "urgent", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "auth, urgent")

	out, err = execute(t, "sessions", "untag", s.ID, "auth", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "tags: urgent")

	out, err = execute(t, "sessions", "status", "Login bug", "Completed", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	_, err = execute(t, "sessions", "status", "Login bug", "paused", "-C", dir)
	assert.Error(t, err)

	got, err := openSessions(t, dir).Get(s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)
	assert.True(t, got.Favorite)
	assert.Equal(t, []string{"urgent"}, got.Tags)
	assert.Equal(t, session.StatusCompleted, got.Status)

	out, err = execute(t, "sessions", "show", "Login bug", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "# Persona")
	assert.Contains(t, out, "Review auth")
	assert.Contains(t, out, "★★★★☆")

	out, err = execute(t, "sessions", "delete", "Login bug", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")

	_, err = execute(t, "sessions", "show", "Login bug", "-C", dir)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessionsSearch(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir, "Login bug", prompt.Data{Task: "Fix login"}, "auth")
	seedSession(t, dir, "Docs", prompt.Data{Task: "Write docs"}, "docs")

	out, err := execute(t, "sessions", "search", "login", "--json", "-C", dir)
	require.NoError(t, err)
	var found []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "Login bug", found[0]["name"])

	out, err = execute(t, "sessions", "search", "--tag", "docs,auth", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved sessions (2)")

	out, err = execute(t, "sessions", "search", "--favorite", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No saved sessions")

	out, err = execute(t, "sessions", "search", "--favorite=false", "--limit", "1", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved sessions (1)")

	out, err = execute(t, "sessions", "search", "--until", "2000-01-01", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No saved sessions")

	_, err = execute(t, "sessions", "search", "--since", "yesterday", "-C", dir)
	assert.Error(t, err)
	_, err = execute(t, "sessions", "search", "--status", "unknown", "-C", dir)
	assert.Error(t, err)
}

func TestSessionsExportImport(t *testing.T) {
	src := t.TempDir()
	seedSession(t, src, "Login bug", prompt.Data{Task: "Fix login"}, "auth")
	exportPath := filepath.Join(t.TempDir(), "export.json")

	out, err := execute(t, "sessions", "export", "-o", exportPath, "-C", src)
	require.NoError(t, err)
	assert.Contains(t, out, exportPath)

	dst := t.TempDir()
	out, err = execute(t, "sessions", "import", exportPath, "-C", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 session(s)")

	out, err = execute(t, "sessions", "import", exportPath, "-C", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 session(s)")

	out, err = execute(t, "sessions", "import", exportPath, "--overwrite", "-C", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 session(s)")

	s, err := openSessions(t, dst).Find("Login bug")
	require.NoError(t, err)
	assert.Equal(t, "Fix login", s.PromptData().Task)
}

func TestSessionsCleanupAndStats(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir, "Login bug", prompt.Data{Task: "Fix login"}, "auth")
	seedSession(t, dir, "Docs", prompt.Data{Task: "Write docs"}, "auth", "docs")

	out, err := execute(t, "sessions", "stats", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Total:      2")
	assert.Contains(t, out, "active=2")
	assert.Contains(t, out, "auth (2), docs (1)")

	out, err = execute(t, "sessions", "stats", "--json", "-C", dir)
	require.NoError(t, err)
	var st session.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 2, st.Total)

	out, err = execute(t, "sessions", "cleanup", "--days", "30", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 session(s)")
}

func TestSessionsPromptExpandsReferences(t *testing.T) {
	dir := projectFixture(t)
	seedSession(t, dir, "Explain", prompt.Data{Task: "Explain @app.py#hello please"})

	out, err := execute(t, "sessions", "prompt", "Explain", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "#### `app.py` (hello)")
	assert.Contains(t, out, "def hello():")

	seedSession(t, dir, "Empty", prompt.Data{})
	_, err = execute(t, "sessions", "prompt", "Empty", "-C", dir)
	assert.ErrorContains(t, err, "contains no data")
}

func TestRunRequiresConfig(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir, "Login bug", prompt.Data{Task: "Fix login"})

	_, err := execute(t, "run", "Login bug", "-C", dir)
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestRunDryRunPrintsPrompt(t *testing.T) {
	dir := projectFixture(t)
	require.NoError(t, config.SaveProject(dir, config.DefaultProject()))
	seedSession(t, dir, "Explain", prompt.Data{Persona: "You are a tutor.", Task: "Explain @app.py:1-1"})

	out, err := execute(t, "run", "Explain", "--dry-run", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "# Persona\n\nYou are a tutor.")
	assert.Contains(t, out, "#### `app.py` (line 1)")
	assert.Contains(t, out, "tokens")
}

func TestRunWritesDebugPrompt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.SaveProject(dir, config.DefaultProject()))
	seedSession(t, dir, "Login bug", prompt.Data{Task: "Review auth"})

	dump := filepath.Join(t.TempDir(), "prompt.json")
	t.Setenv("PROMPTCRAFT_DEBUG_PROMPT_FILE", dump)

	out, err := execute(t, "run", "Login bug", "--raw", "--model", "gpt-4o", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, llm.DryRunReply)

	data, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Review auth")
	assert.Contains(t, string(data), `"model": "gpt-4o"`)
}

func TestRunWithoutAPIKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.SaveProject(dir, config.DefaultProject()))
	seedSession(t, dir, "Login bug", prompt.Data{Task: "Review auth"})

	t.Setenv("PROMPTCRAFT_DEBUG_PROMPT_FILE", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("BASE_URL", "")

	_, err := execute(t, "run", "Login bug", "-C", dir)
	assert.ErrorIs(t, err, llm.ErrNoAPIKey)
}

func TestRunEmptySession(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.SaveProject(dir, config.DefaultProject()))
	seedSession(t, dir, "Blank", prompt.Data{})

	_, err := execute(t, "run", "Blank", "-C", dir)
	assert.ErrorContains(t, err, "contains no data")
}

func TestTemplatesCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "templates", "list", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "code-review")
	assert.Contains(t, out, "(built-in)")

	out, err = execute(t, "templates", "show", "debugging", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "# Persona")
	assert.Contains(t, out, "# Task")

	_, err = execute(t, "templates", "show", "nope", "-C", dir)
	assert.ErrorIs(t, err, template.ErrNotFound)

	seedSession(t, dir, "Login bug", prompt.Data{Persona: "You are a security reviewer.", Task: "Review auth"})
	_, err = execute(t, "templates", "save", "security", "-C", dir)
	assert.Error(t, err, "--from is required")

	out, err = execute(t, "templates", "save", "security", "--from", "Login bug", "--tag", "auth", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Template \"security\" saved")
	assert.FileExists(t, filepath.Join(dir, template.DefaultUserDir, "security.json"))

	out, err = execute(t, "templates", "list", "--json", "-C", dir)
	require.NoError(t, err)
	var tpls []template.Template
	require.NoError(t, json.Unmarshal([]byte(out), &tpls))
	var names []string
	for _, tp := range tpls {
		names = append(names, tp.Name)
	}
	assert.Contains(t, names, "security")

	out, err = execute(t, "templates", "show", "security", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "You are a security reviewer.")

	_, err = execute(t, "templates", "delete", "security", "-C", dir)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, template.DefaultUserDir, "security.json"))

	_, err = execute(t, "templates", "delete", "debugging", "-C", dir)
	assert.ErrorIs(t, err, template.ErrReadOnly)
}

func TestTemplatesSuggest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/demo\n")

	out, err := execute(t, "templates", "suggest", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Go project")
	assert.Contains(t, out, "code-review")
}

func TestFilesScan(t *testing.T) {
	dir := projectFixture(t)

	out, err := execute(t, "files", "scan", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 file(s)")
	assert.Contains(t, out, "app.py")
	assert.Contains(t, out, "README.md")
	assert.NotContains(t, out, "node_modules")
	assert.NotContains(t, out, "data.bin")

	out, err = execute(t, "files", "scan", "--type", "source_code", "--json", "-C", dir)
	require.NoError(t, err)
	var found []browser.FileMetadata
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "app.py", found[0].RelativePath)
	assert.Equal(t, 10, found[0].LineCount)

	out, err = execute(t, "files", "scan", "--search", "demo", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "README.md")
	assert.NotContains(t, out, "app.py")

	_, err = execute(t, "files", "scan", "--sort", "random", "-C", dir)
	assert.Error(t, err)
	_, err = execute(t, "files", "scan", "--type", "images", "-C", dir)
	assert.Error(t, err)
}

func TestFilesPriority(t *testing.T) {
	dir := projectFixture(t)

	out, err := execute(t, "files", "priority", "--excluded", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1. source_code")
	assert.Contains(t, out, "2. documentation")
	assert.Contains(t, out, "binary_file")

	out, err = execute(t, "files", "priority", "-n", "1", "--json", "-C", dir)
	require.NoError(t, err)
	var ranked []types.FileRecord
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, "app.py", ranked[0].RelativePath)
}

func TestFilesChunks(t *testing.T) {
	dir := projectFixture(t)

	out, err := execute(t, "files", "chunks", "app.py", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "app.py: 4 chunk(s)")
	assert.Contains(t, out, "Greeter.greet")
	assert.Contains(t, out, "def hello()")

	out, err = execute(t, "files", "chunks", "app.py", "--kind", "function", "--json", "-C", dir)
	require.NoError(t, err)
	var chunks []types.CodeChunk
	require.NoError(t, json.Unmarshal([]byte(out), &chunks))
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0].Name)

	out, err = execute(t, "files", "chunks", "app.py", "--search", "GREET", "--preview", "1", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 chunk(s)")
	assert.Contains(t, out, "│ class Greeter:")

	_, err = execute(t, "files", "chunks", "app.py", "--kind", "widget", "-C", dir)
	assert.Error(t, err)
	_, err = execute(t, "files", "chunks", "missing.py", "-C", dir)
	assert.ErrorIs(t, err, browser.ErrFileNotAccessible)
	_, err = execute(t, "files", "chunks", "data.bin", "-C", dir)
	assert.ErrorContains(t, err, "binary")
}

func TestFilesSelect(t *testing.T) {
	dir := projectFixture(t)

	out, err := execute(t, "files", "select", "app.py", "--lines", "4-6", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "#### `app.py` (lines 4-6)\n```python\nclass Greeter:")
	assert.Contains(t, out, "Selected lines 4-6")

	out, err = execute(t, "files", "select", "app.py", "--chunks", "hello, greet", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "#### `app.py` (greet, hello)")

	out, err = execute(t, "files", "select", "README.md", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "(whole file)")
	assert.Contains(t, out, "A small demo project.")

	out, err = execute(t, "files", "select", "app.py", "--lines", "1-2", "--json", "-C", dir)
	require.NoError(t, err)
	var exp browser.SelectionExport
	require.NoError(t, json.Unmarshal([]byte(out), &exp))
	require.Len(t, exp.Files, 1)
	assert.Equal(t, "partial", exp.Files[0].SelectionType)
	assert.Equal(t, &browser.LineRange{Start: 1, End: 2}, exp.Files[0].LineRange)

	_, err = execute(t, "files", "select", "app.py", "--lines", "6-4", "-C", dir)
	assert.ErrorIs(t, err, browser.ErrInvalidLineRange)
	_, err = execute(t, "files", "select", "app.py", "--lines", "1-99", "-C", dir)
	assert.ErrorIs(t, err, browser.ErrLineRangeExceedsFile)
	_, err = execute(t, "files", "select", "app.py", "--chunks", "nothing", "-C", dir)
	assert.ErrorIs(t, err, browser.ErrNoMatchingChunks)
	_, err = execute(t, "files", "select", "app.py", "--lines", "1-2", "--chunks", "hello", "-C", dir)
	assert.Error(t, err)
}

func TestFilesSelectCopy(t *testing.T) {
	dir := projectFixture(t)
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { copyToClipboard = orig })

	out, err := execute(t, "files", "select", "app.py", "--chunks", "hello", "--copy", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Copied to clipboard")
	assert.Contains(t, copied, "def hello():")
}

func TestFilesPreview(t *testing.T) {
	dir := projectFixture(t)

	out, err := execute(t, "files", "preview", "app.py", "-n", "1", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "import os\n... (9 more lines)")
	assert.Contains(t, out, "utf-8")

	out, err = execute(t, "files", "preview", "data.bin", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "# Binary file")
}

func TestParseLineRange(t *testing.T) {
	tests := []struct {
		in         string
		start, end int
		wantErr    bool
	}{
		{"3-7", 3, 7, false},
		{" 2 - 4 ", 2, 4, false},
		{"5", 5, 5, false},
		{"a-b", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		start, end, err := parseLineRange(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, browser.ErrInvalidLineRange, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.start, start, tt.in)
		assert.Equal(t, tt.end, end, tt.in)
	}
}

func TestDetectCmd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/demo\n")

	out, err := execute(t, "detect", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Go project")
	assert.Contains(t, out, "• go")
	assert.Contains(t, out, "Suggested templates:")

	out, err = execute(t, "detect", "-C", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown project type")
	assert.Contains(t, out, "• code-review")
}

func TestGitCmdOutsideRepo(t *testing.T) {
	_, err := execute(t, "git", "-C", t.TempDir())
	assert.ErrorContains(t, err, "not a git repository")
}

func TestCompletionCmd(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "promptcraft")

	_, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}
