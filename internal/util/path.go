package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RelativePath returns the slash-separated path of target relative to base.
// If no relative path exists, target is returned unchanged.
func RelativePath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

// FileStem returns the base name of a path without its final extension.
// e.g., "internal/app/models.py" → "models"
func FileStem(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SplitLines splits content into lines without their "\n" terminators.
// A trailing newline does not produce an extra empty line.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// CountLines returns the number of lines in a string.
func CountLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	// If the string doesn't end with a newline, count the last line
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// ExtractLines extracts lines [startLine, endLine] (1-indexed, inclusive) from
// content. Out-of-range bounds are clamped.
func ExtractLines(content string, startLine, endLine int) string {
	lines := SplitLines(content)
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return ""
	}
	return strings.Join(lines[startLine-1:endLine], "\n")
}

// FormatSize renders a byte count with one decimal place and a binary unit,
// e.g. "512.0 B", "1.5 KB", "3.2 MB".
func FormatSize(bytes int64) string {
	size := float64(bytes)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}
