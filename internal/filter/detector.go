package filter

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/rajatsrma/promptcraft/internal/types"
)

type categorySet struct {
	category types.FileCategory
	entries  map[string]bool
}

func newSet(category types.FileCategory, entries ...string) categorySet {
	m := make(map[string]bool, len(entries))
	for _, e := range entries {
		m[e] = true
	}
	return categorySet{category: category, entries: m}
}

// Extension tables in lookup order. The first category whose set contains
// the extension wins, so the order is part of the detector's contract.
var extensionSets = []categorySet{
	newSet(types.CategorySourceCode,
		".py", ".js", ".ts", ".tsx", ".jsx", ".java", ".cpp", ".c", ".h",
		".cs", ".php", ".rb", ".go", ".rs", ".swift", ".kt", ".scala",
		".clj", ".hs", ".ml", ".r", ".m", ".mm", ".dart", ".vue", ".svelte"),
	newSet(types.CategoryConfig,
		".json", ".yaml", ".yml", ".toml", ".ini", ".cfg", ".conf",
		".env", ".properties", ".xml", ".plist", ".config"),
	newSet(types.CategoryDocumentation,
		".md", ".rst", ".txt", ".adoc", ".org", ".tex"),
	// Compound suffixes, matched against the whole filename.
	newSet(types.CategoryTest,
		".test.js", ".test.ts", ".spec.js", ".spec.ts", "_test.py"),
	newSet(types.CategoryBuild,
		".dockerfile", ".dockerignore", ".makefile"),
	newSet(types.CategoryBinary,
		".exe", ".dll", ".so", ".dylib", ".a", ".lib", ".bin",
		".img", ".iso", ".dmg", ".pkg", ".deb", ".rpm",
		".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar",
		".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".svg",
		".mp3", ".mp4", ".avi", ".mov", ".wmv", ".flv",
		".ttf", ".otf", ".woff", ".woff2", ".eot"),
}

// Exact lowercase filenames, checked before any extension rule.
var specialFiles = []categorySet{
	newSet(types.CategoryConfig,
		"package.json", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
		"requirements.txt", "pyproject.toml", "setup.py", "setup.cfg",
		"cargo.toml", "cargo.lock", "go.mod", "go.sum",
		"gemfile", "gemfile.lock", "composer.json", "composer.lock",
		"dockerfile", "docker-compose.yml", "docker-compose.yaml",
		"makefile", ".gitignore", ".gitattributes", ".editorconfig",
		"tsconfig.json", "jsconfig.json", ".eslintrc", ".prettierrc",
		"webpack.config.js", "vite.config.js", "rollup.config.js"),
	newSet(types.CategoryDocumentation,
		"readme.md", "readme.txt", "readme.rst", "readme",
		"changelog.md", "changelog.txt", "changelog",
		"license", "license.md", "license.txt",
		"contributing.md", "code_of_conduct.md"),
}

var testMarkers = []string{"test", "spec", "__test__"}

var testSourceExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
}

// MIME types outside text/* that still denote text content.
var textMIMETypes = map[string]bool{
	"application/json": true,
	"application/xml":  true,
	"application/yaml": true,
	"application/toml": true,
}

// Pinned guesses for extensions that system MIME tables disagree on
// (".ts" is MPEG transport stream on most Linux distributions).
var mimeOverrides = map[string]string{
	".py":   "text/x-python",
	".ts":   "text/x-typescript",
	".tsx":  "text/x-typescript",
	".md":   "text/markdown",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".toml": "application/toml",
}

// Detector classifies paths into file categories. It is a pure function of
// the path string and the static tables above.
type Detector struct{}

// NewDetector returns a file type detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the category for a path.
func (d *Detector) Detect(path string) types.FileCategory {
	filename := strings.ToLower(filepath.Base(path))
	ext := strings.ToLower(filepath.Ext(filename))

	for _, set := range specialFiles {
		if set.entries[filename] {
			return set.category
		}
	}

	if testSourceExtensions[ext] {
		for _, marker := range testMarkers {
			if strings.Contains(filename, marker) {
				return types.CategoryTest
			}
		}
	}

	for _, set := range extensionSets {
		if set.entries[ext] {
			return set.category
		}
		for suffix := range set.entries {
			if strings.Count(suffix, ".") > 1 || strings.HasPrefix(suffix, "_") {
				if strings.HasSuffix(filename, suffix) {
					return set.category
				}
			}
		}
	}

	return types.CategoryUnknown
}

// IsText reports whether a path is likely to hold text content.
func (d *Detector) IsText(path string) bool {
	category := d.Detect(path)
	if category == types.CategoryBinary {
		return false
	}

	if mimeType := GuessMIME(path); mimeType != "" {
		return strings.HasPrefix(mimeType, "text/") || textMIMETypes[mimeType]
	}

	switch category {
	case types.CategorySourceCode, types.CategoryConfig,
		types.CategoryDocumentation, types.CategoryTest:
		return true
	}
	return false
}

// GuessMIME returns the media type for a path's extension without
// parameters, or "" when it cannot be determined.
func GuessMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	if m, ok := mimeOverrides[ext]; ok {
		return m
	}
	full := mime.TypeByExtension(ext)
	if full == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(full)
	if err != nil {
		return ""
	}
	return mediaType
}
