package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// store persists one JSON document per key inside Dir.
type store struct {
	Dir string
}

func newStore(dir string) *store {
	return &store{Dir: dir}
}

// Save writes v to <key>.json.
func (s *store) Save(key string, v any) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := marshalJSON(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Load decodes <key>.json into v.
func (s *store) Load(key string, v any) error {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Exists returns true if <key>.json exists.
func (s *store) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// Delete removes <key>.json. A missing file is not an error.
func (s *store) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys.
func (s *store) Keys() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.json"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = strings.TrimSuffix(filepath.Base(m), ".json")
	}
	return keys, nil
}

func (s *store) path(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

// marshalJSON indents with two spaces and leaves <, > and & unescaped so
// code in prompts stays readable on disk.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
