// Package gitctx collects repository state by shelling out to git and
// renders it as Markdown for inclusion in a prompt. Every query degrades to
// an empty value outside a repository or when git is unavailable.
package gitctx

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Repo runs git commands in Dir.
type Repo struct {
	Dir string
}

// New returns a Repo for dir. An empty dir means the working directory.
func New(dir string) *Repo {
	return &Repo{Dir: dir}
}

func (r *Repo) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

// IsRepo reports whether Dir is inside a git work tree.
func (r *Repo) IsRepo() bool {
	_, err := r.run("rev-parse", "--git-dir")
	return err == nil
}

// Status groups changed paths by kind.
type Status struct {
	Modified  []string `json:"modified"`
	Added     []string `json:"added"`
	Deleted   []string `json:"deleted"`
	Renamed   []string `json:"renamed"`
	Untracked []string `json:"untracked"`
}

// Total counts every listed path.
func (s Status) Total() int {
	return len(s.Modified) + len(s.Added) + len(s.Deleted) + len(s.Renamed) + len(s.Untracked)
}

// Status parses `git status --porcelain`.
func (r *Repo) Status() Status {
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return Status{}
	}
	return parseStatus(out)
}

// parseStatus reads porcelain v1 lines "XY path". Added wins over
// modified, which wins over deleted, then renamed.
func parseStatus(out string) Status {
	var s Status
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code, path := line[:2], line[3:]
		has := func(c byte) bool { return code[0] == c || code[1] == c }
		switch {
		case code == "??":
			s.Untracked = append(s.Untracked, path)
		case has('A'):
			s.Added = append(s.Added, path)
		case has('M'):
			s.Modified = append(s.Modified, path)
		case has('D'):
			s.Deleted = append(s.Deleted, path)
		case has('R'):
			s.Renamed = append(s.Renamed, path)
		}
	}
	return s
}

// Diff returns the unstaged diff, or the staged one.
func (r *Repo) Diff(staged bool) string {
	args := []string{"diff"}
	if staged {
		args = append(args, "--staged")
	}
	out, err := r.run(args...)
	if err != nil {
		return ""
	}
	return out
}

// Commit is one line of history.
type Commit struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

const shortHashLen = 8

// RecentCommits returns up to n commits, newest first.
func (r *Repo) RecentCommits(n int) []Commit {
	out, err := r.run("log", fmt.Sprintf("--max-count=%d", n), "--pretty=format:%H|%an|%ad|%s", "--date=short")
	if err != nil {
		return nil
	}
	return parseLog(out)
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		hash := parts[0]
		if len(hash) > shortHashLen {
			hash = hash[:shortHashLen]
		}
		commits = append(commits, Commit{Hash: hash, Author: parts[1], Date: parts[2], Message: parts[3]})
	}
	return commits
}

func (r *Repo) trimmed(args ...string) string {
	out, err := r.run(args...)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// CurrentBranch returns the checked-out branch, or "" when detached.
func (r *Repo) CurrentBranch() string {
	return r.trimmed("branch", "--show-current")
}

// Root returns the top-level directory of the work tree.
func (r *Repo) Root() string {
	return r.trimmed("rev-parse", "--show-toplevel")
}

// RemoteURL returns the URL of origin.
func (r *Repo) RemoteURL() string {
	return r.trimmed("remote", "get-url", "origin")
}
