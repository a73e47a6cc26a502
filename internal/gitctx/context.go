package gitctx

import (
	"fmt"
	"strings"
)

// Options selects what Context includes.
type Options struct {
	Commits     int
	IncludeDiff bool
	Staged      bool
}

// DefaultOptions includes five commits and no diff.
func DefaultOptions() Options {
	return Options{Commits: 5}
}

// Context renders branch, working tree status, recent commits and
// optionally the diff as a Markdown section. It returns "" outside a
// repository.
func (r *Repo) Context(opts Options) string {
	if !r.IsRepo() {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Git Context\n")

	if branch := r.CurrentBranch(); branch != "" {
		fmt.Fprintf(&b, "\n**Branch:** %s\n", branch)
	}
	if remote := r.RemoteURL(); remote != "" {
		fmt.Fprintf(&b, "**Remote:** %s\n", remote)
	}

	b.WriteString("\n### Working Tree\n\n")
	b.WriteString(statusMarkdown(r.Status()))

	if opts.Commits > 0 {
		if commits := r.RecentCommits(opts.Commits); len(commits) > 0 {
			b.WriteString("\n### Recent Commits\n\n")
			b.WriteString(commitsMarkdown(commits))
		}
	}

	if opts.IncludeDiff {
		if diff := strings.TrimRight(r.Diff(opts.Staged), "\n"); diff != "" {
			title := "Diff"
			if opts.Staged {
				title = "Staged Diff"
			}
			fmt.Fprintf(&b, "\n### %s\n\n```diff\n%s\n```\n", title, diff)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func statusMarkdown(s Status) string {
	if s.Total() == 0 {
		return "Clean working tree\n"
	}
	var b strings.Builder
	groups := []struct {
		label string
		paths []string
	}{
		{"Modified", s.Modified},
		{"Added", s.Added},
		{"Deleted", s.Deleted},
		{"Renamed", s.Renamed},
		{"Untracked", s.Untracked},
	}
	for _, g := range groups {
		if len(g.paths) > 0 {
			fmt.Fprintf(&b, "- %s (%d): %s\n", g.label, len(g.paths), strings.Join(g.paths, ", "))
		}
	}
	return b.String()
}

func commitsMarkdown(commits []Commit) string {
	var b strings.Builder
	for _, c := range commits {
		fmt.Fprintf(&b, "- `%s` %s (%s, %s)\n", c.Hash, c.Message, c.Author, c.Date)
	}
	return b.String()
}
