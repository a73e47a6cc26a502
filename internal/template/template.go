// Package template manages reusable prompt templates. Built-in templates
// are compiled into the binary; templates saved by the user live in a
// directory and take precedence over built-ins with the same name.
package template

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rajatsrma/promptcraft/internal/prompt"
)

//go:embed builtin/*.json
var builtinFS embed.FS

var (
	ErrNotFound    = errors.New("template not found")
	ErrReadOnly    = errors.New("built-in templates cannot be deleted")
	ErrInvalidName = errors.New("invalid template name")
)

// DefaultUserDir is where user templates are stored, relative to the
// project.
const DefaultUserDir = ".promptcraft/templates"

// Template pre-fills the single-valued prompt sections.
type Template struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Persona     string   `json:"persona"`
	Task        string   `json:"task"`
	Context     string   `json:"context"`
	Constraints string   `json:"constraints"`
	Tags        []string `json:"tags"`

	Builtin bool `json:"-"`
}

// Apply converts t into prompt data.
func Apply(t Template) prompt.Data {
	return prompt.Data{
		Persona:     t.Persona,
		Task:        t.Task,
		Context:     t.Context,
		Constraints: t.Constraints,
	}
}

// Manager reads built-in and user templates.
type Manager struct {
	userDir string
}

// NewManager returns a manager saving to userDir. An empty userDir uses
// DefaultUserDir.
func NewManager(userDir string) *Manager {
	if userDir == "" {
		userDir = DefaultUserDir
	}
	return &Manager{userDir: userDir}
}

// UserDir returns the directory user templates are saved to.
func (m *Manager) UserDir() string {
	return m.userDir
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func decode(data []byte, name string) (*Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	if t.Name == "" {
		t.Name = name
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return &t, nil
}

func (m *Manager) userPath(name string) string {
	return filepath.Join(m.userDir, name+".json")
}

// Load returns the template called name, preferring the user copy.
func (m *Manager) Load(name string) (*Template, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(m.userPath(name))
	if err == nil {
		return decode(data, name)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}

	data, err = builtinFS.ReadFile("builtin/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	t, err := decode(data, name)
	if err != nil {
		return nil, err
	}
	t.Builtin = true
	return t, nil
}

// Names returns every template name, sorted.
func (m *Manager) Names() []string {
	seen := make(map[string]bool)

	if entries, err := fs.ReadDir(builtinFS, "builtin"); err == nil {
		for _, e := range entries {
			seen[strings.TrimSuffix(e.Name(), ".json")] = true
		}
	}
	if entries, err := os.ReadDir(m.userDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
				seen[strings.TrimSuffix(e.Name(), ".json")] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// List loads every template, sorted by name. Templates that fail to parse
// are skipped and reported in the returned error.
func (m *Manager) List() ([]Template, error) {
	var out []Template
	var errs []error
	for _, name := range m.Names() {
		t, err := m.Load(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, errors.Join(errs...)
}

// Exists reports whether a template called name can be loaded.
func (m *Manager) Exists(name string) bool {
	_, err := m.Load(name)
	return err == nil
}

// Save writes t to the user directory, replacing any earlier copy.
func (m *Manager) Save(t Template) error {
	if err := validName(t.Name); err != nil {
		return err
	}
	if err := os.MkdirAll(m.userDir, 0755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	if err := os.WriteFile(m.userPath(t.Name), data, 0644); err != nil {
		return fmt.Errorf("write template %s: %w", t.Name, err)
	}
	return nil
}

// Delete removes a user template. Built-ins are read-only.
func (m *Manager) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(m.userPath(name))
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("delete template %s: %w", name, err)
	}
	if _, berr := builtinFS.ReadFile("builtin/" + name + ".json"); berr == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}
