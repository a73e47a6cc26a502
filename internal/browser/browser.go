// Package browser combines the file filter and chunker into metadata,
// previews and selections for interactive file picking.
package browser

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/rajatsrma/promptcraft/internal/chunker"
	"github.com/rajatsrma/promptcraft/internal/filter"
	"github.com/rajatsrma/promptcraft/internal/types"
	"github.com/rajatsrma/promptcraft/internal/util"
)

// FileMetadata is a FileRecord plus the derived facts shown while browsing.
type FileMetadata struct {
	types.FileRecord
	SizeHuman string            `json:"size_human"`
	MIMEType  string            `json:"mime_type,omitempty"`
	IsBinary  bool              `json:"is_binary"`
	LineCount int               `json:"line_count"`
	Encoding  string            `json:"encoding,omitempty"`
	Preview   string            `json:"preview,omitempty"`
	Chunks    []types.CodeChunk `json:"chunks,omitempty"`
}

// Name returns the file's base name.
func (m *FileMetadata) Name() string {
	return filepath.Base(m.Path)
}

// Options configures a Browser.
type Options struct {
	MaxPreviewLines int
	ChunkLines      int
	Filter          filter.Config
}

// DefaultOptions returns 20 preview lines, 100-line fallback chunks and the
// default filter configuration.
func DefaultOptions() Options {
	return Options{
		MaxPreviewLines: 20,
		ChunkLines:      chunker.DefaultChunkLines,
		Filter:          filter.DefaultConfig(),
	}
}

// Browser answers metadata, preview, chunk and selection queries for files
// under one root. It is not safe for concurrent use.
type Browser struct {
	filter          *filter.Filter
	chunker         *chunker.SmartFileChunker
	maxPreviewLines int
	cache           map[string]*FileMetadata
}

// New creates a browser rooted at root.
func New(root string, opts Options) *Browser {
	if opts.MaxPreviewLines <= 0 {
		opts.MaxPreviewLines = 20
	}
	return &Browser{
		filter:          filter.New(root, opts.Filter),
		chunker:         chunker.New(opts.ChunkLines),
		maxPreviewLines: opts.MaxPreviewLines,
		cache:           make(map[string]*FileMetadata),
	}
}

// Root returns the absolute root directory.
func (b *Browser) Root() string {
	return b.filter.Root()
}

// Filter returns the underlying file filter.
func (b *Browser) Filter() *filter.Filter {
	return b.filter
}

// Metadata returns metadata for path, or nil if it is missing, not a regular
// file or outside the root. Chunk-less lookups are cached; lookups with
// chunks are always recomputed and never cached.
func (b *Browser) Metadata(path string, includeChunks bool) *FileMetadata {
	key := b.filter.Resolve(path)
	if !includeChunks {
		if m, ok := b.cache[key]; ok {
			return m
		}
	}

	info := b.filter.GetInfo(key)
	if info == nil {
		return nil
	}

	m := &FileMetadata{
		FileRecord: *info,
		SizeHuman:  util.FormatSize(info.Size),
		MIMEType:   filter.GuessMIME(info.Path),
		IsBinary:   info.Category == types.CategoryBinary,
	}

	var text string
	if m.IsText && !m.IsBinary {
		text = b.loadText(m)
	}

	switch {
	case !includeChunks:
		b.cache[key] = m
	case m.IsText && !m.IsBinary:
		m.Chunks = b.chunker.ChunkSource(m.Path, text)
	}
	return m
}

// loadText reads and decodes the file, filling in encoding, line count and
// preview. Undecodable content flips the record to binary.
func (b *Browser) loadText(m *FileMetadata) string {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		log.Printf("[browser] warning: cannot read %s: %v", m.RelativePath, err)
		return ""
	}

	text, enc, ok := decodeText(data)
	if !ok {
		m.IsBinary = true
		m.IsText = false
		m.Encoding = EncodingBinary
		return ""
	}

	lines := util.SplitLines(text)
	m.Encoding = enc
	m.LineCount = len(lines)
	m.Preview = truncateLines(lines, b.maxPreviewLines)
	return text
}

func truncateLines(lines []string, maxLines int) string {
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:maxLines], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-maxLines)
}

// Scan walks the root and returns metadata for included files, stopping
// after maxFiles results. With includeSubdirs false only the root's own
// files are considered. If categories are given, only those are kept.
func (b *Browser) Scan(includeSubdirs bool, maxFiles int, categories ...types.FileCategory) []*FileMetadata {
	root := b.filter.Root()
	var results []*FileMetadata

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !includeSubdirs || b.filter.ShouldSkipDir(util.RelativePath(root, path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if ok, _ := b.filter.ShouldInclude(path); !ok {
			return nil
		}
		m := b.Metadata(path, false)
		if m == nil {
			return nil
		}
		if len(categories) > 0 && !slices.Contains(categories, m.Category) {
			return nil
		}
		results = append(results, m)
		if maxFiles > 0 && len(results) >= maxFiles {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		log.Printf("[browser] warning: scan of %s stopped: %v", root, err)
	}
	return results
}

// SortOrder names one of the eight supported orderings.
type SortOrder string

const (
	SortNameAsc      SortOrder = "name_asc"
	SortNameDesc     SortOrder = "name_desc"
	SortSizeAsc      SortOrder = "size_asc"
	SortSizeDesc     SortOrder = "size_desc"
	SortModifiedAsc  SortOrder = "modified_asc"
	SortModifiedDesc SortOrder = "modified_desc"
	SortTypeAsc      SortOrder = "type_asc"
	SortTypeDesc     SortOrder = "type_desc"
)

// SortOrders lists every order.
var SortOrders = []SortOrder{
	SortNameAsc, SortNameDesc, SortSizeAsc, SortSizeDesc,
	SortModifiedAsc, SortModifiedDesc, SortTypeAsc, SortTypeDesc,
}

// ParseSortOrder maps "name_asc", "size_desc", ... to a SortOrder.
func ParseSortOrder(s string) (SortOrder, bool) {
	for _, o := range SortOrders {
		if string(o) == s {
			return o, true
		}
	}
	return "", false
}

// Sort returns a sorted copy of files. Unknown orders keep the input order.
// Ties keep their relative order.
func Sort(files []*FileMetadata, order SortOrder) []*FileMetadata {
	out := slices.Clone(files)

	var less func(a, b *FileMetadata) bool
	switch order {
	case SortNameAsc, SortNameDesc:
		less = func(a, b *FileMetadata) bool { return strings.ToLower(a.Name()) < strings.ToLower(b.Name()) }
	case SortSizeAsc, SortSizeDesc:
		less = func(a, b *FileMetadata) bool { return a.Size < b.Size }
	case SortModifiedAsc, SortModifiedDesc:
		less = func(a, b *FileMetadata) bool { return a.ModTime.Before(b.ModTime) }
	case SortTypeAsc, SortTypeDesc:
		less = func(a, b *FileMetadata) bool { return a.Category < b.Category }
	default:
		return out
	}

	if strings.HasSuffix(string(order), "_desc") {
		sort.SliceStable(out, func(i, j int) bool { return less(out[j], out[i]) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// Search keeps files whose name or preview contains query, ignoring case.
func Search(files []*FileMetadata, query string) []*FileMetadata {
	query = strings.ToLower(query)
	var out []*FileMetadata
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.Name()), query) ||
			(f.Preview != "" && strings.Contains(strings.ToLower(f.Preview), query)) {
			out = append(out, f)
		}
	}
	return out
}

// Preview renders at most maxLines of a file for display. maxLines <= 0
// uses the browser's preview size.
func (b *Browser) Preview(path string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = b.maxPreviewLines
	}
	m := b.Metadata(path, false)
	if m == nil {
		return "# Unable to read file"
	}
	if m.IsBinary {
		mimeType := m.MIMEType
		if mimeType == "" {
			mimeType = "unknown"
		}
		return fmt.Sprintf("# Binary file (%s)\n# MIME type: %s", m.SizeHuman, mimeType)
	}
	if m.Preview == "" {
		return "# Unable to generate preview"
	}
	return truncateLines(util.SplitLines(m.Preview), maxLines)
}

// Chunks returns the parsed chunks of a text file, or nil.
func (b *Browser) Chunks(path string) []types.CodeChunk {
	m := b.Metadata(path, true)
	if m == nil {
		return nil
	}
	return m.Chunks
}
