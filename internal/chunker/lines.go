package chunker

import (
	"fmt"
	"strings"

	"github.com/rajatsrma/promptcraft/internal/types"
	"github.com/rajatsrma/promptcraft/internal/util"
)

// DefaultChunkLines is the block size used for files without a
// language-specific chunker.
const DefaultChunkLines = 100

// LineChunker splits any text file into fixed-size blocks of lines.
type LineChunker struct {
	MaxLines int
}

// Parse reads path and splits it into "<stem>_chunk_<k>" blocks. An empty
// file has no chunks.
func (c *LineChunker) Parse(path string) []types.CodeChunk {
	src, ok := readSource(path)
	if !ok {
		return []types.CodeChunk{unreadableChunk(path, "# Unable to read file")}
	}
	return c.ParseSource(path, src)
}

// ParseSource splits already loaded source text.
func (c *LineChunker) ParseSource(path, src string) []types.CodeChunk {
	size := c.MaxLines
	if size <= 0 {
		size = DefaultChunkLines
	}

	lines := util.SplitLines(src)
	stem := util.FileStem(path)

	var chunks []types.CodeChunk
	for start := 0; start < len(lines); start += size {
		end := min(start+size, len(lines))
		chunks = append(chunks, types.CodeChunk{
			Name:      fmt.Sprintf("%s_chunk_%d", stem, start/size+1),
			Kind:      types.ChunkVariable,
			Content:   strings.Join(lines[start:end], "\n"),
			StartLine: start + 1,
			EndLine:   end,
			FilePath:  path,
		})
	}
	return chunks
}
