// Package config loads the global user configuration and the per-project
// .promptcraft.yml file.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rajatsrma/promptcraft/internal/browser"
	"github.com/rajatsrma/promptcraft/internal/chunker"
	"github.com/rajatsrma/promptcraft/internal/filter"
)

// GlobalConfig holds credentials loaded from ~/.promptcraft/config.yaml.
type GlobalConfig struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	Model        string `yaml:"model"`
	BaseURL      string `yaml:"base_url"`
}

// DefaultGlobalPath returns the default global config file path.
func DefaultGlobalPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".promptcraft", "config.yaml")
}

// LoadGlobal reads the global config and exports its values as
// environment variables. Variables already set take precedence.
func LoadGlobal() (*GlobalConfig, error) {
	return LoadGlobalFrom(DefaultGlobalPath())
}

// LoadGlobalFrom reads a specific global config file.
func LoadGlobalFrom(path string) (*GlobalConfig, error) {
	cfg := &GlobalConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	setIfEmpty("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	setIfEmpty("MODEL", cfg.Model)
	setIfEmpty("BASE_URL", cfg.BaseURL)

	return cfg, nil
}

func setIfEmpty(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}

// ProjectFile is the project config file name.
const ProjectFile = ".promptcraft.yml"

// LLMConfig selects the model used by `run`.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// FilesConfig tunes file browsing.
type FilesConfig struct {
	MaxFileSizeMB   float64  `yaml:"max_file_size_mb"`
	MaxPreviewLines int      `yaml:"max_preview_lines"`
	UseGitignore    *bool    `yaml:"use_gitignore,omitempty"`
	IgnorePatterns  []string `yaml:"ignore_patterns,omitempty"`
	ChunkLines      int      `yaml:"chunk_lines"`
}

// ProjectConfig is the content of .promptcraft.yml.
type ProjectConfig struct {
	Framework  string      `yaml:"framework"`
	Database   string      `yaml:"database"`
	StyleGuide string      `yaml:"style_guide"`
	LLM        LLMConfig   `yaml:"llm"`
	Files      FilesConfig `yaml:"files"`
}

// Defaults used for fields the project file leaves out.
const (
	DefaultProvider        = "OpenAI"
	DefaultModel           = "gpt-4o-mini"
	DefaultMaxFileSizeMB   = 1.0
	DefaultMaxPreviewLines = 20
)

// DefaultModelFor returns the suggested model for a provider.
func DefaultModelFor(provider string) string {
	if provider == "Anthropic" {
		return "claude-3-haiku-20240307"
	}
	return DefaultModel
}

// DefaultProject returns a config with every default filled in.
func DefaultProject() *ProjectConfig {
	c := &ProjectConfig{}
	c.applyDefaults()
	return c
}

func (c *ProjectConfig) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultProvider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModelFor(c.LLM.Provider)
	}
	if c.Files.MaxFileSizeMB <= 0 {
		c.Files.MaxFileSizeMB = DefaultMaxFileSizeMB
	}
	if c.Files.MaxPreviewLines <= 0 {
		c.Files.MaxPreviewLines = DefaultMaxPreviewLines
	}
	if c.Files.UseGitignore == nil {
		yes := true
		c.Files.UseGitignore = &yes
	}
	if c.Files.ChunkLines <= 0 {
		c.Files.ChunkLines = chunker.DefaultChunkLines
	}
}

// LoadProject reads .promptcraft.yml from dir. ok is false when the file
// does not exist, in which case the defaults are returned.
func LoadProject(dir string) (cfg *ProjectConfig, ok bool, err error) {
	path := filepath.Join(dir, ProjectFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultProject(), false, nil
		}
		return nil, false, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg = &ProjectConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Files.IgnorePatterns = validPatterns(cfg.Files.IgnorePatterns)
	cfg.applyDefaults()
	return cfg, true, nil
}

func validPatterns(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		if !filter.ValidPattern(p) {
			log.Printf("[config] warning: ignoring invalid pattern %q", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// SaveProject writes cfg to dir/.promptcraft.yml.
func SaveProject(dir string, cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(dir, ProjectFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// FilterConfig converts the file settings for the file filter.
func (c *ProjectConfig) FilterConfig() filter.Config {
	fc := filter.DefaultConfig()
	fc.MaxFileSize = int64(c.Files.MaxFileSizeMB * 1024 * 1024)
	if c.Files.UseGitignore != nil {
		fc.UseGitignore = *c.Files.UseGitignore
	}
	fc.IgnorePatterns = append(fc.IgnorePatterns, c.Files.IgnorePatterns...)
	return fc
}

// BrowserOptions converts the file settings for the file browser.
func (c *ProjectConfig) BrowserOptions() browser.Options {
	return browser.Options{
		MaxPreviewLines: c.Files.MaxPreviewLines,
		ChunkLines:      c.Files.ChunkLines,
		Filter:          c.FilterConfig(),
	}
}
