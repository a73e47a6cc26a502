package browser

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rajatsrma/promptcraft/internal/types"
	"github.com/rajatsrma/promptcraft/internal/util"
)

var (
	ErrInvalidLineRange     = errors.New("invalid line range")
	ErrLineRangeExceedsFile = errors.New("line range exceeds file length")
	ErrNoMatchingChunks     = errors.New("no matching chunks")
	ErrFileNotAccessible    = errors.New("file not accessible")
)

// LineRange is a 1-based inclusive range of lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewLineRange validates and builds a range.
func NewLineRange(start, end int) (LineRange, error) {
	if start < 1 {
		return LineRange{}, fmt.Errorf("%w: line numbers must start from 1", ErrInvalidLineRange)
	}
	if end < start {
		return LineRange{}, fmt.Errorf("%w: end line %d is before start line %d", ErrInvalidLineRange, end, start)
	}
	return LineRange{Start: start, End: end}, nil
}

func (r LineRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("line %d", r.Start)
	}
	return fmt.Sprintf("lines %d-%d", r.Start, r.End)
}

// FileSelection is the part of a file chosen for a prompt. Chunks take
// priority over Range; with neither, the whole file is selected.
type FileSelection struct {
	File      *FileMetadata
	Range     *LineRange
	Chunks    []types.CodeChunk
	WholeFile bool
}

// Content returns the selected text.
func (s *FileSelection) Content() string {
	if len(s.Chunks) > 0 {
		parts := make([]string, len(s.Chunks))
		for i, c := range s.Chunks {
			parts[i] = c.Content
		}
		return strings.Join(parts, "\n\n")
	}

	data, err := os.ReadFile(s.File.Path)
	if err != nil {
		return "# Unable to read file content"
	}
	text, _, ok := decodeText(data)
	if !ok {
		return "# Unable to read file content"
	}
	if s.Range != nil {
		return util.ExtractLines(text, s.Range.Start, s.Range.End)
	}
	return text
}

// Summary describes what the selection covers.
func (s *FileSelection) Summary() string {
	switch {
	case len(s.Chunks) > 0:
		return "Selected chunks: " + strings.Join(s.chunkNames(), ", ")
	case s.Range != nil:
		return "Selected " + s.Range.String()
	default:
		return fmt.Sprintf("Whole file (%s)", s.File.SizeHuman)
	}
}

func (s *FileSelection) chunkNames() []string {
	names := make([]string, len(s.Chunks))
	for i, c := range s.Chunks {
		names[i] = c.Name
	}
	return names
}

// Label is the short form used in prompt headings.
func (s *FileSelection) Label() string {
	switch {
	case len(s.Chunks) > 0:
		return strings.Join(s.chunkNames(), ", ")
	case s.Range != nil:
		return s.Range.String()
	default:
		return "whole file"
	}
}

// Markdown renders the selection as a heading and a fenced code block.
func (s *FileSelection) Markdown() string {
	content := strings.TrimRight(s.Content(), "\n")
	lang := util.GetLanguageFromPath(s.File.Path)
	return fmt.Sprintf("#### `%s` (%s)\n```%s\n%s\n```", s.File.RelativePath, s.Label(), lang, content)
}

// SelectWholeFile selects all of path.
func (b *Browser) SelectWholeFile(path string) (*FileSelection, error) {
	m := b.Metadata(path, false)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotAccessible, path)
	}
	return &FileSelection{File: m, WholeFile: true}, nil
}

// SelectLines selects lines start..end of path. The range must lie within
// the file when its line count is known.
func (b *Browser) SelectLines(path string, start, end int) (*FileSelection, error) {
	m := b.Metadata(path, false)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotAccessible, path)
	}
	r, err := NewLineRange(start, end)
	if err != nil {
		return nil, err
	}
	if m.LineCount > 0 && end > m.LineCount {
		return nil, fmt.Errorf("%w: end line %d, file has %d lines", ErrLineRangeExceedsFile, end, m.LineCount)
	}
	return &FileSelection{File: m, Range: &r}, nil
}

// SelectChunks selects the chunks of path whose names are listed, in file
// order. It fails when no chunk matches.
func (b *Browser) SelectChunks(path string, names []string) (*FileSelection, error) {
	m := b.Metadata(path, true)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotAccessible, path)
	}
	var selected []types.CodeChunk
	for _, c := range m.Chunks {
		if slices.Contains(names, c.Name) {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoMatchingChunks, strings.Join(names, ", "), m.RelativePath)
	}
	return &FileSelection{File: m, Chunks: selected}, nil
}

// SelectionExport is the JSON summary of a set of selections.
type SelectionExport struct {
	Timestamp      time.Time       `json:"timestamp"`
	RootPath       string          `json:"root_path"`
	TotalFiles     int             `json:"total_files"`
	TotalSizeBytes int64           `json:"total_size_bytes"`
	Files          []SelectionFile `json:"files"`
}

// SelectionFile describes one exported selection.
type SelectionFile struct {
	Path          string           `json:"path"`
	SizeBytes     int64            `json:"size_bytes"`
	FileType      string           `json:"file_type"`
	LastModified  time.Time        `json:"last_modified"`
	SelectionType string           `json:"selection_type"`
	LineRange     *LineRange       `json:"line_range,omitempty"`
	Chunks        []SelectionChunk `json:"chunks,omitempty"`
}

// SelectionChunk describes one selected chunk.
type SelectionChunk struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Lines      string `json:"lines"`
	Complexity int    `json:"complexity"`
}

// ExportSelections summarizes selections for saving alongside a session.
func (b *Browser) ExportSelections(selections []*FileSelection) SelectionExport {
	out := SelectionExport{
		Timestamp:  time.Now(),
		RootPath:   b.Root(),
		TotalFiles: len(selections),
		Files:      make([]SelectionFile, 0, len(selections)),
	}
	for _, s := range selections {
		out.TotalSizeBytes += s.File.Size

		f := SelectionFile{
			Path:          s.File.RelativePath,
			SizeBytes:     s.File.Size,
			FileType:      string(s.File.Category),
			LastModified:  s.File.ModTime,
			SelectionType: "partial",
			LineRange:     s.Range,
		}
		if s.WholeFile {
			f.SelectionType = "whole_file"
		}
		for _, c := range s.Chunks {
			f.Chunks = append(f.Chunks, SelectionChunk{
				Name:       c.Name,
				Type:       string(c.Kind),
				Lines:      fmt.Sprintf("%d-%d", c.StartLine, c.EndLine),
				Complexity: c.Complexity,
			})
		}
		out.Files = append(out.Files, f)
	}
	return out
}
