package chunker

import (
	"regexp"
	"strings"

	"github.com/rajatsrma/promptcraft/internal/types"
	"github.com/rajatsrma/promptcraft/internal/util"
)

type extractPass struct {
	kind    types.ChunkKind
	pattern *regexp.Regexp
}

// Declaration passes in output order. Each pass scans every line on its own,
// so a line matched by two passes (e.g. an exported capitalized function)
// yields two chunks.
var scriptPasses = []extractPass{
	{types.ChunkFunction, regexp.MustCompile(`^(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\([^)]*\)\s*\{`)},
	{types.ChunkFunction, regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?\([^)]*\)\s*=>\s*\{`)},
	{types.ChunkClass, regexp.MustCompile(`^(?:export\s+)?(?:abstract\s+)?class\s+(\w+)(?:\s+extends\s+\w+)?(?:\s+implements\s+[\w,\s]+)?\s*\{`)},
	{types.ChunkComponent, regexp.MustCompile(`^(?:export\s+)?(?:const|function)\s+([A-Z]\w*)\s*(?:\([^)]*\))?\s*(?::\s*React\.FC)?(?:<[^>]*>)?\s*[=\{]`)},
	{types.ChunkComponent, regexp.MustCompile(`^(?:export\s+)?(?:const|let)\s+([A-Z]\w*)\s*:\s*React\.FC(?:<[^>]*>)?\s*=`)},
	{types.ChunkHook, regexp.MustCompile(`^(?:export\s+)?(?:const|function)\s+(use[A-Z]\w*)\s*[=\(]`)},
	{types.ChunkInterface, regexp.MustCompile(`^(?:export\s+)?interface\s+(\w+)(?:\s+extends\s+[\w,\s]+)?\s*\{`)},
	{types.ChunkType, regexp.MustCompile(`^(?:export\s+)?type\s+(\w+)(?:<[^>]*>)?\s*=`)},
}

var (
	importLine   = regexp.MustCompile(`^import(?:\s|\{|\*|'|"|$)`)
	reexportLine = regexp.MustCompile(`^export\s*(?:\*|\{[^}]*\}\s*(?:from\b.*)?;?$|\{[^}]*$)`)
)

// ScriptChunker extracts declarations from brace-delimited languages
// (JavaScript, TypeScript, JSX) with line-oriented patterns.
type ScriptChunker struct{}

// Parse reads path and chunks it. It never fails: unreadable files and files
// with no recognizable declarations produce a single whole-file chunk.
func (c *ScriptChunker) Parse(path string) []types.CodeChunk {
	src, ok := readSource(path)
	if !ok {
		return []types.CodeChunk{unreadableChunk(path, "// Unable to read file")}
	}
	return c.ParseSource(path, src)
}

// ParseSource chunks already loaded source text.
func (c *ScriptChunker) ParseSource(path, src string) []types.CodeChunk {
	lines := util.SplitLines(src)

	var chunks []types.CodeChunk
	if imp, ok := importChunk(path, lines); ok {
		chunks = append(chunks, imp)
	}
	for _, pass := range scriptPasses {
		chunks = append(chunks, extractByPattern(path, lines, pass)...)
	}

	if len(chunks) == 0 {
		return []types.CodeChunk{wholeFileChunk(path, src)}
	}
	return chunks
}

func extractByPattern(path string, lines []string, pass extractPass) []types.CodeChunk {
	var chunks []types.CodeChunk
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		m := pass.pattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		end := findBlockEnd(lines, i)
		content := strings.Join(lines[i:end], "\n")
		chunks = append(chunks, types.CodeChunk{
			Name:       m[1],
			Kind:       pass.kind,
			Content:    content,
			StartLine:  i + 1,
			EndLine:    end,
			FilePath:   path,
			Signature:  trimmed,
			Complexity: textComplexity(end-i, content),
		})
	}
	return chunks
}

// textComplexity is a coarse size proxy: lines plus opening braces plus raw
// occurrences of "if" and "for".
func textComplexity(lineCount int, content string) int {
	return lineCount +
		strings.Count(content, "{") +
		strings.Count(content, "if") +
		strings.Count(content, "for")
}

// importChunk covers the first contiguous run of import and re-export
// statements. Blank lines, comments and the body of a multi-line
// import { ... } list do not break the run.
func importChunk(path string, lines []string) (types.CodeChunk, bool) {
	first, last := -1, -1
	inList := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case inList:
			last = i
			if strings.Contains(trimmed, "}") {
				inList = false
			}
		case importLine.MatchString(trimmed) || reexportLine.MatchString(trimmed):
			if first < 0 {
				first = i
			}
			last = i
			if strings.Contains(trimmed, "{") && !strings.Contains(trimmed, "}") {
				inList = true
			}
		case first >= 0 && (trimmed == "" || strings.HasPrefix(trimmed, "//")):
			// tolerated inside the run
		case first >= 0:
			return newImportChunk(path, lines, first, last), true
		}
	}
	if first < 0 {
		return types.CodeChunk{}, false
	}
	return newImportChunk(path, lines, first, last), true
}

func newImportChunk(path string, lines []string, first, last int) types.CodeChunk {
	return types.CodeChunk{
		Name:      "imports",
		Kind:      types.ChunkImport,
		Content:   strings.Join(lines[first:last+1], "\n"),
		StartLine: first + 1,
		EndLine:   last + 1,
		FilePath:  path,
	}
}
