package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rajatsrma/promptcraft/internal/prompt"
	"github.com/rajatsrma/promptcraft/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printSessions(w io.Writer, sessions []*session.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "📁 No saved sessions found. Run 'promptcraft' to create one.")
		return
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("📚 Saved sessions (%d)", len(sessions))))
	for _, s := range sessions {
		fmt.Fprintln(w, sessionLine(s))
	}
}

func sessionLine(s *session.Session) string {
	mark := "  "
	if s.Favorite {
		mark = "⭐"
	}
	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}
	line := fmt.Sprintf("%s %s %s  %s  %s", mark, s.Name,
		dimStyle.Render("["+id+"]"),
		dimStyle.Render("used "+s.LastUsedAgo()),
		s.RatingString())
	if len(s.Tags) > 0 {
		line += "  " + dimStyle.Render("#"+strings.Join(s.Tags, " #"))
	}
	return line
}

func printSessionDetail(w io.Writer, s *session.Session) {
	fmt.Fprintln(w, titleStyle.Render("📄 "+s.Name))
	fmt.Fprintf(w, "ID:          %s\n", s.ID)
	fmt.Fprintf(w, "Status:      %s\n", s.Status)
	fmt.Fprintf(w, "Rating:      %s\n", s.RatingString())
	fmt.Fprintf(w, "Favorite:    %t\n", s.Favorite)
	fmt.Fprintf(w, "Created:     %s\n", humanize.Time(s.CreatedAt))
	fmt.Fprintf(w, "Last used:   %s\n", s.LastUsedAgo())
	if len(s.Tags) > 0 {
		fmt.Fprintf(w, "Tags:        %s\n", strings.Join(s.Tags, ", "))
	}
	if s.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", s.Description)
	}
	data := s.PromptData()
	if data.IsEmpty() {
		fmt.Fprintln(w, "\n(empty prompt)")
		return
	}
	text := prompt.Generate(data)
	fmt.Fprintf(w, "\n%s\n\n%s\n", text, dimStyle.Render(fmt.Sprintf("~%s tokens", humanize.Comma(int64(prompt.EstimateTokens(text))))))
}

// renderMarkdown renders text for the terminal, falling back to the raw
// text when glamour fails.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}
