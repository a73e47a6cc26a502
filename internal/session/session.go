// Package session stores prompt-building sessions as JSON files with an
// index for search, favorites, ratings and tags.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rajatsrma/promptcraft/internal/prompt"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrInvalidImport  = errors.New("invalid import file format")
	ErrInvalidSession = errors.New("invalid session data")
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
	StatusDraft     Status = "draft"
)

// AllStatuses lists every status.
var AllStatuses = []Status{StatusActive, StatusCompleted, StatusArchived, StatusDraft}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses {
		if string(st) == strings.ToLower(s) {
			return st, true
		}
	}
	return "", false
}

// Session is a saved prompt plus the metadata used to find it again.
type Session struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	CreatedAt   time.Time    `json:"created_at"`
	LastUsed    time.Time    `json:"last_used"`
	Tags        []string     `json:"tags"`
	Favorite    bool         `json:"favorite"`
	Rating      *int         `json:"success_rating"`
	Status      Status       `json:"status"`
	Description string       `json:"description"`
	ProjectPath string       `json:"project_path"`
	Data        *prompt.Data `json:"data"`
}

// PromptData returns the session's prompt, or an empty one.
func (s *Session) PromptData() prompt.Data {
	if s.Data == nil {
		return prompt.Data{}
	}
	return *s.Data
}

// HasTag reports whether the session carries tag.
func (s *Session) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LastUsedAgo renders LastUsed relative to now, e.g. "3 hours ago".
func (s *Session) LastUsedAgo() string {
	return humanize.Time(s.LastUsed)
}

// RatingString renders the rating as stars, or "-" when unrated.
func (s *Session) RatingString() string {
	if s.Rating == nil {
		return "-"
	}
	return strings.Repeat("★", *s.Rating) + strings.Repeat("☆", 5-*s.Rating)
}

// Timestamps written without a zone are read in local time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalidSession, s)
}

// UnmarshalJSON accepts timestamps with or without a zone and defaults the
// status to active.
func (s *Session) UnmarshalJSON(b []byte) error {
	type plain Session
	aux := struct {
		*plain
		CreatedAt string `json:"created_at"`
		LastUsed  string `json:"last_used"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if s.ID == "" || s.Name == "" {
		return fmt.Errorf("%w: missing id or name", ErrInvalidSession)
	}

	var err error
	if s.CreatedAt, err = parseTime(aux.CreatedAt); err != nil {
		return err
	}
	if s.LastUsed, err = parseTime(aux.LastUsed); err != nil {
		return err
	}

	if s.Status == "" {
		s.Status = StatusActive
	} else if _, ok := ParseStatus(string(s.Status)); !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSession, s.Status)
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return nil
}
