package filter

import (
	"bufio"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rajatsrma/promptcraft/internal/util"
)

// GitIgnore holds the patterns of a project's root .gitignore.
//
// Matching is a simplified subset of git's rules: blank lines and comments
// are skipped, negated patterns ("!x") are recorded but never un-ignore a
// path, and the first matching pattern decides.
type GitIgnore struct {
	root     string
	patterns []string
	negated  []string
}

// LoadGitIgnore reads <root>/.gitignore. A missing file yields an empty
// pattern list.
func LoadGitIgnore(root string) *GitIgnore {
	g := &GitIgnore{root: root}

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[filter] warning: cannot read .gitignore: %v", err)
		}
		return g
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			g.negated = append(g.negated, strings.TrimPrefix(line, "!"))
			continue
		}
		g.patterns = append(g.patterns, line)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[filter] warning: reading .gitignore: %v", err)
	}
	return g
}

// Patterns returns the active (non-negated) patterns in file order.
func (g *GitIgnore) Patterns() []string {
	return g.patterns
}

// Ignored reports whether path is matched by any pattern. Absolute paths are
// made relative to the project root first; paths outside the root are never
// ignored.
func (g *GitIgnore) Ignored(path string) bool {
	if len(g.patterns) == 0 {
		return false
	}
	rel := filepath.ToSlash(path)
	if filepath.IsAbs(path) {
		rel = util.RelativePath(g.root, path)
	}
	if rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}
	for _, pat := range g.patterns {
		if matchPattern(pat, rel) {
			return true
		}
	}
	return false
}

// IgnoredDir reports whether a directory (relative, slash separated) is
// matched by a pattern and can be pruned from a walk.
func (g *GitIgnore) IgnoredDir(rel string) bool {
	return g.Ignored(strings.TrimSuffix(rel, "/") + "/")
}

// matchPattern matches one gitignore pattern against a slash-separated
// relative path. A trailing "/" on rel marks it as a directory.
func matchPattern(pattern, rel string) bool {
	anchored := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	isDir := strings.HasSuffix(rel, "/")
	rel = strings.TrimSuffix(rel, "/")

	if stem, dirOnly := strings.CutSuffix(pattern, "/"); dirOnly {
		// The stem itself matches whether or not rel is a directory.
		if glob(stem, rel) || (isDir && !anchored && glob(stem, filepath.Base(rel))) {
			return true
		}
		// Files at any depth below a matching directory.
		parts := strings.Split(rel, "/")
		for i := 0; i < len(parts)-1; i++ {
			if glob(stem, strings.Join(parts[:i+1], "/")) {
				return true
			}
			if !anchored && !strings.Contains(stem, "/") && glob(stem, parts[i]) {
				return true
			}
		}
		return false
	}

	if glob(pattern, rel) {
		return true
	}
	if !anchored && !strings.Contains(pattern, "/") {
		return glob(pattern, filepath.Base(rel))
	}
	return false
}

func glob(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
