package types

import "time"

// FileCategory is the coarse classification of a file, assigned once per path.
type FileCategory string

const (
	CategorySourceCode    FileCategory = "source_code"
	CategoryConfig        FileCategory = "config"
	CategoryDocumentation FileCategory = "documentation"
	CategoryTest          FileCategory = "test"
	CategoryBuild         FileCategory = "build"
	CategoryDependency    FileCategory = "dependency"
	CategoryBinary        FileCategory = "binary"
	CategoryUnknown       FileCategory = "unknown"
)

// AllCategories lists every category in declaration order.
var AllCategories = []FileCategory{
	CategorySourceCode,
	CategoryConfig,
	CategoryDocumentation,
	CategoryTest,
	CategoryBuild,
	CategoryDependency,
	CategoryBinary,
	CategoryUnknown,
}

// ParseCategory maps a category name ("source_code", "config", ...) to a FileCategory.
func ParseCategory(s string) (FileCategory, bool) {
	for _, c := range AllCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// ChunkKind identifies what construct a CodeChunk was extracted from.
type ChunkKind string

const (
	ChunkFunction  ChunkKind = "function"
	ChunkClass     ChunkKind = "class"
	ChunkMethod    ChunkKind = "method"
	ChunkComponent ChunkKind = "component"
	ChunkHook      ChunkKind = "hook"
	ChunkInterface ChunkKind = "interface"
	ChunkType      ChunkKind = "type"
	ChunkImport    ChunkKind = "import"
	ChunkVariable  ChunkKind = "variable"
	ChunkComment   ChunkKind = "comment"
)

// AllChunkKinds lists every chunk kind in declaration order.
var AllChunkKinds = []ChunkKind{
	ChunkFunction, ChunkClass, ChunkMethod, ChunkComponent, ChunkHook,
	ChunkInterface, ChunkType, ChunkImport, ChunkVariable, ChunkComment,
}

// ParseChunkKind maps a kind name ("function", "class", ...) to a ChunkKind.
func ParseChunkKind(s string) (ChunkKind, bool) {
	for _, k := range AllChunkKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// CodeChunk is a named, typed, line-bounded excerpt of a source file.
// StartLine and EndLine are 1-based and inclusive; StartLine <= EndLine.
type CodeChunk struct {
	Name       string    `json:"name"`
	Kind       ChunkKind `json:"kind"`
	Content    string    `json:"content"`
	StartLine  int       `json:"start_line"`
	EndLine    int       `json:"end_line"`
	FilePath   string    `json:"file_path"`
	Parent     string    `json:"parent,omitempty"` // enclosing class for methods
	Docstring  string    `json:"docstring,omitempty"`
	Signature  string    `json:"signature,omitempty"`
	Complexity int       `json:"complexity"`
}

// LineCount returns the number of source lines the chunk spans.
func (c CodeChunk) LineCount() int {
	return c.EndLine - c.StartLine + 1
}

// FileRecord holds the facts the filter needs to make an inclusion decision.
type FileRecord struct {
	Path         string       `json:"path"`
	RelativePath string       `json:"relative_path"`
	Size         int64        `json:"size"`
	Category     FileCategory `json:"category"`
	IsText       bool         `json:"is_text"`
	ModTime      time.Time    `json:"last_modified"`
}
