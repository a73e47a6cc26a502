// Package chunker splits source files into named, typed, line-bounded chunks
// that can be selected individually for a prompt.
package chunker

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rajatsrma/promptcraft/internal/types"
	"github.com/rajatsrma/promptcraft/internal/util"
	"github.com/rajatsrma/promptcraft/pkg/treesitter"
)

// LanguageChunker parses one file into chunks. Implementations never fail;
// problems degrade to a whole-file chunk.
type LanguageChunker interface {
	Parse(path string) []types.CodeChunk
}

var scriptExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true, ".cjs": true,
}

// SmartFileChunker picks a chunking strategy by file extension.
type SmartFileChunker struct {
	python *PythonChunker
	script *ScriptChunker
	lines  *LineChunker
}

// New creates a dispatcher. maxLines sets the block size of the line
// chunker; values <= 0 use DefaultChunkLines.
func New(maxLines int) *SmartFileChunker {
	if maxLines <= 0 {
		maxLines = DefaultChunkLines
	}
	return &SmartFileChunker{
		python: &PythonChunker{},
		script: &ScriptChunker{},
		lines:  &LineChunker{MaxLines: maxLines},
	}
}

// For returns the chunker that handles path.
func (s *SmartFileChunker) For(path string) LanguageChunker {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case treesitter.LanguageForPath(path) == "python":
		return s.python
	case scriptExtensions[ext]:
		return s.script
	default:
		return s.lines
	}
}

// Chunk parses path with the strategy for its extension.
func (s *SmartFileChunker) Chunk(path string) []types.CodeChunk {
	return s.For(path).Parse(path)
}

// ChunkSource chunks content that is already in memory, dispatching on
// path's extension.
func (s *SmartFileChunker) ChunkSource(path, src string) []types.CodeChunk {
	switch c := s.For(path).(type) {
	case *PythonChunker:
		return c.ParseSource(path, src)
	case *ScriptChunker:
		return c.ParseSource(path, src)
	case *LineChunker:
		return c.ParseSource(path, src)
	}
	return nil
}

// Preview returns at most maxLines lines of a chunk, with a
// "... (N more lines)" trailer when truncated.
func Preview(chunk types.CodeChunk, maxLines int) string {
	lines := util.SplitLines(chunk.Content)
	if len(lines) <= maxLines {
		return chunk.Content
	}
	return strings.Join(lines[:maxLines], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-maxLines)
}

// FilterByKind keeps chunks whose kind is one of kinds.
func FilterByKind(chunks []types.CodeChunk, kinds ...types.ChunkKind) []types.CodeChunk {
	var out []types.CodeChunk
	for _, c := range chunks {
		if slices.Contains(kinds, c.Kind) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByComplexity keeps chunks whose complexity is at most limit.
func FilterByComplexity(chunks []types.CodeChunk, limit int) []types.CodeChunk {
	var out []types.CodeChunk
	for _, c := range chunks {
		if c.Complexity <= limit {
			out = append(out, c)
		}
	}
	return out
}

// SearchByName keeps chunks whose name contains term, ignoring case.
func SearchByName(chunks []types.CodeChunk, term string) []types.CodeChunk {
	term = strings.ToLower(term)
	var out []types.CodeChunk
	for _, c := range chunks {
		if strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
		}
	}
	return out
}

// Summary counts chunks per kind.
func Summary(chunks []types.CodeChunk) map[types.ChunkKind]int {
	summary := make(map[types.ChunkKind]int)
	for _, c := range chunks {
		summary[c.Kind]++
	}
	return summary
}

// readSource loads a file as UTF-8 text.
func readSource(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[chunker] warning: cannot read %s: %v", path, err)
		return "", false
	}
	if !utf8.Valid(data) {
		log.Printf("[chunker] warning: %s is not valid UTF-8", path)
		return "", false
	}
	return string(data), true
}

// wholeFileChunk is the fallback used when a file cannot be parsed.
func wholeFileChunk(path, src string) types.CodeChunk {
	return types.CodeChunk{
		Name:      util.FileStem(path),
		Kind:      types.ChunkVariable,
		Content:   src,
		StartLine: 1,
		EndLine:   max(1, util.CountLines(src)),
		FilePath:  path,
	}
}

func unreadableChunk(path, placeholder string) types.CodeChunk {
	return types.CodeChunk{
		Name:      util.FileStem(path),
		Kind:      types.ChunkVariable,
		Content:   placeholder,
		StartLine: 1,
		EndLine:   1,
		FilePath:  path,
	}
}
