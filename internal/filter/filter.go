package filter

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rajatsrma/promptcraft/internal/types"
	"github.com/rajatsrma/promptcraft/internal/util"
)

// Exclusion reason codes returned by ShouldInclude.
const (
	ReasonNotAccessible = "file_not_accessible"
	ReasonBinary        = "binary_file"
	ReasonGitignore     = "gitignore_pattern"
	ReasonIgnorePattern = "ignore_pattern"
	ReasonNotText       = "not_text_file"

	reasonTooLargeFormat = "file_too_large_%d_bytes"
)

// DefaultIgnorePatterns covers VCS, build output, caches, IDE files,
// compiled artifacts, archives and media. Patterns with a trailing "/"
// match any path component.
var DefaultIgnorePatterns = []string{
	// dependencies and build output
	"node_modules/", ".git/", "__pycache__/", ".venv/", "venv/",
	"env/", ".env/", "build/", "dist/", "target/", ".next/",
	".nuxt/", "coverage/", ".coverage/", ".pytest_cache/",
	".mypy_cache/", ".tox/", ".cache/", "tmp/", "temp/",

	// editors
	".vscode/", ".idea/", "*.swp", "*.swo", "*~", ".DS_Store",
	"thumbs.db", "desktop.ini",

	// compiled and temporary
	"*.pyc", "*.pyo", "*.pyd", "*.class", "*.o", "*.obj",
	"*.log", "*.tmp", "*.temp", "*.min.js", "*.min.css",
	"*.map", "*.bundle.js", "*.chunk.js",

	// packages
	"*.tar.gz", "*.zip", "*.rar", "*.7z", "*.deb", "*.rpm",
	"*.dmg", "*.pkg", "*.msi",

	// media
	"*.jpg", "*.jpeg", "*.png", "*.gif", "*.bmp", "*.ico",
	"*.mp3", "*.mp4", "*.avi", "*.mov", "*.pdf",
}

// Category order used by Rank. Binary and dependency files never reach
// ranking because ShouldInclude rejects them first.
var priorityOrder = []types.FileCategory{
	types.CategorySourceCode,
	types.CategoryConfig,
	types.CategoryTest,
	types.CategoryDocumentation,
	types.CategoryBuild,
	types.CategoryUnknown,
}

// Config holds filter configuration.
type Config struct {
	MaxFileSize    int64    // bytes
	UseGitignore   bool     // honor <root>/.gitignore
	IgnorePatterns []string // appended to DefaultIgnorePatterns
}

// DefaultConfig returns the default filter configuration (1MB limit,
// .gitignore honored, no custom patterns).
func DefaultConfig() Config {
	return Config{
		MaxFileSize:  1024 * 1024,
		UseGitignore: true,
	}
}

// Exclusion pairs a rejected record with the reason code that rejected it.
type Exclusion struct {
	Record types.FileRecord `json:"record"`
	Reason string           `json:"reason"`
}

// Result buckets the outcome of Filter.
type Result struct {
	Included   []types.FileRecord                        `json:"included"`
	Excluded   []Exclusion                               `json:"excluded"`
	ByCategory map[types.FileCategory][]types.FileRecord `json:"by_category"`
}

// Filter decides which files under a root are worth putting in a prompt.
type Filter struct {
	root           string
	maxFileSize    int64
	ignorePatterns []string
	gitignore      *GitIgnore
	detector       *Detector
}

// New creates a filter rooted at root.
func New(root string, cfg Config) *Filter {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = filepath.Clean(root)
	}

	patterns := make([]string, 0, len(DefaultIgnorePatterns)+len(cfg.IgnorePatterns))
	patterns = append(patterns, DefaultIgnorePatterns...)
	patterns = append(patterns, cfg.IgnorePatterns...)

	f := &Filter{
		root:           absRoot,
		maxFileSize:    cfg.MaxFileSize,
		ignorePatterns: patterns,
		detector:       NewDetector(),
	}
	if cfg.UseGitignore {
		f.gitignore = LoadGitIgnore(absRoot)
	}
	return f
}

// Root returns the absolute root directory.
func (f *Filter) Root() string {
	return f.root
}

// MaxFileSize returns the size limit in bytes.
func (f *Filter) MaxFileSize() int64 {
	return f.maxFileSize
}

// Detector returns the file type detector used by the filter.
func (f *Filter) Detector() *Detector {
	return f.detector
}

// Resolve turns a path into an absolute one, treating relative paths as
// relative to the filter root.
func (f *Filter) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(f.root, path)
}

// GetInfo returns the record for a regular file under the root, or nil if
// the path does not exist, is not a regular file, or lies outside the root.
func (f *Filter) GetInfo(path string) *types.FileRecord {
	abs := f.Resolve(path)
	fi, err := os.Stat(abs)
	if err != nil || !fi.Mode().IsRegular() {
		return nil
	}
	rel := util.RelativePath(f.root, abs)
	if rel == abs || strings.HasPrefix(rel, "../") {
		return nil
	}
	return &types.FileRecord{
		Path:         abs,
		RelativePath: rel,
		Size:         fi.Size(),
		Category:     f.detector.Detect(abs),
		IsText:       f.detector.IsText(abs),
		ModTime:      fi.ModTime(),
	}
}

// ShouldInclude runs the inclusion checks in order and reports the first
// failing one. An included path has an empty reason.
func (f *Filter) ShouldInclude(path string) (bool, string) {
	info := f.GetInfo(path)
	if info == nil {
		return false, ReasonNotAccessible
	}
	return f.check(*info)
}

func (f *Filter) check(info types.FileRecord) (bool, string) {
	if info.Category == types.CategoryBinary {
		return false, ReasonBinary
	}
	if f.maxFileSize > 0 && info.Size > f.maxFileSize {
		return false, fmt.Sprintf(reasonTooLargeFormat, info.Size)
	}
	if f.gitignore != nil && f.gitignore.Ignored(info.RelativePath) {
		return false, ReasonGitignore
	}
	if f.matchesIgnorePattern(info.RelativePath) {
		return false, ReasonIgnorePattern
	}
	if !info.IsText {
		return false, ReasonNotText
	}
	return true, ""
}

// matchesIgnorePattern checks a root-relative path against the default and
// custom patterns. Directory patterns match any path component, the file
// name included; file patterns match the relative path or the base name.
func (f *Filter) matchesIgnorePattern(rel string) bool {
	parts := strings.Split(rel, "/")
	base := parts[len(parts)-1]
	for _, pat := range f.ignorePatterns {
		if stem, ok := strings.CutSuffix(pat, "/"); ok {
			for _, part := range parts {
				if part == stem {
					return true
				}
			}
			continue
		}
		if glob(pat, rel) || glob(pat, base) {
			return true
		}
	}
	return false
}

// ShouldSkipDir reports whether a directory (relative to the root) can be
// pruned from a walk without visiting its files.
func (f *Filter) ShouldSkipDir(rel string) bool {
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return false
	}
	name := filepath.Base(rel)
	for _, pat := range f.ignorePatterns {
		if stem, ok := strings.CutSuffix(pat, "/"); ok && stem == name {
			return true
		}
	}
	return f.gitignore != nil && f.gitignore.IgnoredDir(rel)
}

// Filter applies ShouldInclude to every path. Paths with no record (missing,
// not regular files) are dropped without an exclusion entry.
func (f *Filter) Filter(paths []string) Result {
	res := Result{ByCategory: make(map[types.FileCategory][]types.FileRecord, len(types.AllCategories))}
	for _, c := range types.AllCategories {
		res.ByCategory[c] = nil
	}

	for _, p := range paths {
		info := f.GetInfo(p)
		if info == nil {
			continue
		}
		if ok, reason := f.check(*info); !ok {
			res.Excluded = append(res.Excluded, Exclusion{Record: *info, Reason: reason})
			continue
		}
		res.Included = append(res.Included, *info)
		res.ByCategory[info.Category] = append(res.ByCategory[info.Category], *info)
	}
	return res
}

// Rank orders records by category priority, then by ascending size, then by
// most recent modification. A limit <= 0 keeps every record.
func (f *Filter) Rank(records []types.FileRecord, limit int) []types.FileRecord {
	var ranked []types.FileRecord
	for _, category := range priorityOrder {
		var bucket []types.FileRecord
		for _, r := range records {
			if r.Category == category {
				bucket = append(bucket, r)
			}
		}
		sort.SliceStable(bucket, func(i, j int) bool {
			if bucket[i].Size != bucket[j].Size {
				return bucket[i].Size < bucket[j].Size
			}
			return bucket[i].ModTime.After(bucket[j].ModTime)
		})
		ranked = append(ranked, bucket...)
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Scan walks the root and filters what it finds. Raw enumeration stops at
// 3*maxFiles paths; ignored directories are pruned and unreadable entries
// skipped.
func (f *Filter) Scan(maxFiles int) Result {
	limit := 3 * maxFiles
	var paths []string

	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != f.root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != f.root && f.ShouldSkipDir(util.RelativePath(f.root, path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		if maxFiles > 0 && len(paths) >= limit {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		log.Printf("[filter] warning: scan of %s stopped: %v", f.root, err)
	}

	return f.Filter(paths)
}

// ValidPattern reports whether a custom ignore pattern is well formed.
func ValidPattern(pattern string) bool {
	return doublestar.ValidatePattern(strings.TrimSuffix(pattern, "/"))
}
