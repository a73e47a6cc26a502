package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/rajatsrma/promptcraft/internal/browser"
	"github.com/rajatsrma/promptcraft/internal/chunker"
	"github.com/rajatsrma/promptcraft/internal/prompt"
	"github.com/rajatsrma/promptcraft/internal/types"
	"github.com/rajatsrma/promptcraft/internal/util"
	"github.com/spf13/cobra"
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

func newFilesCmd(e *env) *cobra.Command {
	filesCmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"f"},
		Short:   "Browse, chunk and select project files",
	}

	// --- scan ---
	var maxFiles int
	var kinds []string
	var sortOrder, search string
	var noSubdirs, scanJSON bool

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List the files worth including in a prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := parseCategories(kinds)
			if err != nil {
				return err
			}
			order, ok := browser.ParseSortOrder(sortOrder)
			if !ok {
				return fmt.Errorf("unknown sort order %q", sortOrder)
			}

			found := e.files().Scan(!noSubdirs, maxFiles, cats...)
			if search != "" {
				found = browser.Search(found, search)
			}
			found = browser.Sort(found, order)

			out := cmd.OutOrStdout()
			if scanJSON {
				return writeJSON(out, found)
			}
			if len(found) == 0 {
				fmt.Fprintln(out, "No matching files.")
				return nil
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("📁 %d file(s) in %s", len(found), e.files().Root())))
			for _, m := range found {
				fmt.Fprintf(out, "  %-14s %9s %6s  %s\n", m.Category, m.SizeHuman, lineCount(m), m.RelativePath)
			}
			return nil
		},
	}
	scanCmd.Flags().IntVar(&maxFiles, "max", 100, "Maximum number of files")
	scanCmd.Flags().StringSliceVar(&kinds, "type", nil, "Only these categories (source_code, config, test, ...)")
	scanCmd.Flags().StringVar(&sortOrder, "sort", string(browser.SortNameAsc), "Sort order (name|size|modified|type)_(asc|desc)")
	scanCmd.Flags().StringVar(&search, "search", "", "Keep files whose name or preview contains this text")
	scanCmd.Flags().BoolVar(&noSubdirs, "no-subdirs", false, "Only scan the top-level directory")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")
	filesCmd.AddCommand(scanCmd)

	// --- priority ---
	var limit int
	var showExcluded, priorityJSON bool

	priorityCmd := &cobra.Command{
		Use:   "priority",
		Short: "Rank included files by how useful they are as context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := e.files().Filter()
			res := f.Scan(maxFiles)
			ranked := f.Rank(res.Included, limit)

			out := cmd.OutOrStdout()
			if priorityJSON {
				return writeJSON(out, ranked)
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("🎯 Top %d of %d included file(s)", len(ranked), len(res.Included))))
			for i, r := range ranked {
				fmt.Fprintf(out, "%3d. %-14s %9s  %s\n", i+1, r.Category, util.FormatSize(r.Size), r.RelativePath)
			}
			if showExcluded && len(res.Excluded) > 0 {
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("🚫 Excluded (%d)", len(res.Excluded))))
				for _, x := range res.Excluded {
					fmt.Fprintf(out, "  %-20s %s\n", x.Reason, x.Record.RelativePath)
				}
			}
			return nil
		},
	}
	priorityCmd.Flags().IntVar(&maxFiles, "max", 100, "Maximum number of files to consider")
	priorityCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of files to show")
	priorityCmd.Flags().BoolVar(&showExcluded, "excluded", false, "Also list excluded files with the reason")
	priorityCmd.Flags().BoolVar(&priorityJSON, "json", false, "Output as JSON")
	filesCmd.AddCommand(priorityCmd)

	// --- chunks ---
	var chunkKinds []string
	var maxComplexity, previewLines int
	var nameSearch string
	var chunksJSON bool

	chunksCmd := &cobra.Command{
		Use:   "chunks <file>",
		Short: "List the functions, classes and other chunks of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := e.files().Metadata(args[0], true)
			if m == nil {
				return fmt.Errorf("%w: %s", browser.ErrFileNotAccessible, args[0])
			}
			if m.IsBinary {
				return fmt.Errorf("%s is a binary file", m.RelativePath)
			}

			chunks := m.Chunks
			if len(chunkKinds) > 0 {
				ks, err := parseChunkKinds(chunkKinds)
				if err != nil {
					return err
				}
				chunks = chunker.FilterByKind(chunks, ks...)
			}
			if maxComplexity > 0 {
				chunks = chunker.FilterByComplexity(chunks, maxComplexity)
			}
			if nameSearch != "" {
				chunks = chunker.SearchByName(chunks, nameSearch)
			}

			out := cmd.OutOrStdout()
			if chunksJSON {
				if chunks == nil {
					chunks = []types.CodeChunk{}
				}
				return writeJSON(out, chunks)
			}
			printChunks(out, m, chunks, previewLines)
			return nil
		},
	}
	chunksCmd.Flags().StringSliceVar(&chunkKinds, "kind", nil, "Only these kinds (function, class, method, ...)")
	chunksCmd.Flags().IntVar(&maxComplexity, "max-complexity", 0, "Only chunks at most this complex")
	chunksCmd.Flags().StringVar(&nameSearch, "search", "", "Only chunks whose name contains this text")
	chunksCmd.Flags().IntVar(&previewLines, "preview", 0, "Show the first N lines of each chunk")
	chunksCmd.Flags().BoolVar(&chunksJSON, "json", false, "Output as JSON")
	filesCmd.AddCommand(chunksCmd)

	// --- select ---
	var lines, names string
	var copyOut, selectJSON bool

	selectCmd := &cobra.Command{
		Use:   "select <file>",
		Short: "Render a file, a line range or named chunks as a prompt excerpt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := e.files()
			var sel *browser.FileSelection
			var err error
			switch {
			case names != "":
				sel, err = b.SelectChunks(args[0], splitList(names))
			case lines != "":
				start, end, perr := parseLineRange(lines)
				if perr != nil {
					return perr
				}
				sel, err = b.SelectLines(args[0], start, end)
			default:
				sel, err = b.SelectWholeFile(args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if selectJSON {
				return writeJSON(out, b.ExportSelections([]*browser.FileSelection{sel}))
			}
			text := sel.Markdown()
			fmt.Fprintln(out, text)
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%s · ~%s tokens", sel.Summary(), humanize.Comma(int64(prompt.EstimateTokens(text))))))
			if copyOut {
				if err := copyToClipboard(text); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				fmt.Fprintln(out, "📋 Copied to clipboard")
			}
			return nil
		},
	}
	selectCmd.Flags().StringVar(&lines, "lines", "", "Line range START-END (1-based, inclusive)")
	selectCmd.Flags().StringVar(&names, "chunks", "", "Comma-separated chunk names")
	selectCmd.Flags().BoolVar(&copyOut, "copy", false, "Copy the excerpt to the clipboard")
	selectCmd.Flags().BoolVar(&selectJSON, "json", false, "Output the selection summary as JSON")
	selectCmd.MarkFlagsMutuallyExclusive("lines", "chunks")
	filesCmd.AddCommand(selectCmd)

	// --- preview ---
	var maxLines int

	previewCmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the first lines of a file and its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := e.files()
			m := b.Metadata(args[0], false)
			if m == nil {
				return fmt.Errorf("%w: %s", browser.ErrFileNotAccessible, args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("📄 "+m.RelativePath))
			meta := []string{string(m.Category), m.SizeHuman}
			if m.Encoding != "" {
				meta = append(meta, m.Encoding)
			}
			if m.LineCount > 0 {
				meta = append(meta, fmt.Sprintf("%d lines", m.LineCount))
			}
			fmt.Fprintln(out, dimStyle.Render(strings.Join(meta, " · ")))
			fmt.Fprintln(out, b.Preview(args[0], maxLines))
			return nil
		},
	}
	previewCmd.Flags().IntVarP(&maxLines, "lines", "n", 0, "Number of lines (default: project setting)")
	filesCmd.AddCommand(previewCmd)

	return filesCmd
}

func lineCount(m *browser.FileMetadata) string {
	if m.LineCount == 0 {
		return "-"
	}
	return strconv.Itoa(m.LineCount)
}

func printChunks(w io.Writer, m *browser.FileMetadata, chunks []types.CodeChunk, previewLines int) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("🧩 %s: %d chunk(s)", m.RelativePath, len(chunks))))
	if summary := chunker.Summary(chunks); len(summary) > 0 {
		var parts []string
		for _, k := range types.AllChunkKinds {
			if n := summary[k]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", k, n))
			}
		}
		fmt.Fprintln(w, dimStyle.Render(strings.Join(parts, " ")))
	}
	for _, c := range chunks {
		name := c.Name
		if c.Parent != "" && !strings.Contains(name, ".") {
			name = c.Parent + "." + name
		}
		fmt.Fprintf(w, "  %-10s %-30s lines %d-%d  complexity %d\n", c.Kind, name, c.StartLine, c.EndLine, c.Complexity)
		if c.Signature != "" {
			fmt.Fprintf(w, "             %s\n", dimStyle.Render(c.Signature))
		}
		if previewLines > 0 {
			for _, l := range util.SplitLines(chunker.Preview(c, previewLines)) {
				fmt.Fprintf(w, "             │ %s\n", l)
			}
		}
	}
}

func parseCategories(names []string) ([]types.FileCategory, error) {
	var out []types.FileCategory
	for _, n := range names {
		c, ok := types.ParseCategory(n)
		if !ok {
			return nil, fmt.Errorf("unknown file type %q", n)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseChunkKinds(names []string) ([]types.ChunkKind, error) {
	var out []types.ChunkKind
	for _, n := range names {
		k, ok := types.ParseChunkKind(n)
		if !ok {
			return nil, fmt.Errorf("unknown chunk kind %q", n)
		}
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out, nil
}

// parseLineRange reads "START-END" or a single line number.
func parseLineRange(s string) (int, int, error) {
	startStr, endStr, found := strings.Cut(s, "-")
	if !found {
		endStr = startStr
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(startStr))
	end, err2 := strconv.Atoi(strings.TrimSpace(endStr))
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("%w: %q, want START-END", browser.ErrInvalidLineRange, s)
	}
	return start, end, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
