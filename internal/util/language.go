package util

import (
	"path/filepath"
	"strings"
)

// Code-fence language hints by extension, used when embedding file content
// into Markdown prompts.
var languageExtensions = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "tsx",
	".java":  "java",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".dart":  "dart",
	".vue":   "vue",
	".sh":    "bash",
	".sql":   "sql",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".xml":   "xml",
	".html":  "html",
	".css":   "css",
	".md":    "markdown",
}

// GetLanguageFromExtension returns the fence language for a file extension.
// Returns empty string if unknown.
func GetLanguageFromExtension(ext string) string {
	return languageExtensions[strings.ToLower(ext)]
}

// GetLanguageFromPath returns the fence language for a file path.
func GetLanguageFromPath(filePath string) string {
	ext := filepath.Ext(filePath)
	return GetLanguageFromExtension(ext)
}
