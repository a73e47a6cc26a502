package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rajatsrma/promptcraft/internal/prompt"
	"github.com/rajatsrma/promptcraft/internal/session"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func newSessionsCmd(e *env) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"s"},
		Short:   "Search and organize saved sessions",
	}

	// withSession resolves args[0] and hands the session to fn.
	withSession := func(fn func(cmd *cobra.Command, mgr *session.Manager, s *session.Session, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			s, err := mgr.Find(args[0])
			if err != nil {
				return err
			}
			return fn(cmd, mgr, s, args[1:])
		}
	}

	// --- search ---
	var tags []string
	var favorite bool
	var status, since, until string
	var minRating, maxRating, limit int
	var jsonOutput bool

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search sessions by text, tags, status, rating and date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := session.Filter{Tags: tags, RatingMin: minRating, RatingMax: maxRating, Limit: limit}
			if len(args) == 1 {
				f.Query = args[0]
			}
			if cmd.Flags().Changed("favorite") {
				f.Favorite = &favorite
			}
			if status != "" {
				st, ok := session.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				f.Status = st
			}
			var err error
			if f.CreatedFrom, err = parseDate(since, false); err != nil {
				return err
			}
			if f.CreatedTo, err = parseDate(until, true); err != nil {
				return err
			}

			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			found := mgr.Search(f)
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), found)
			}
			printSessions(cmd.OutOrStdout(), found)
			return nil
		},
	}
	searchCmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Match any of these tags")
	searchCmd.Flags().BoolVar(&favorite, "favorite", false, "Match favorite (or, with =false, non-favorite) sessions")
	searchCmd.Flags().StringVar(&status, "status", "", "Match status (active, completed, archived, draft)")
	searchCmd.Flags().IntVar(&minRating, "min-rating", 0, "Minimum rating")
	searchCmd.Flags().IntVar(&maxRating, "max-rating", 0, "Maximum rating")
	searchCmd.Flags().StringVar(&since, "since", "", "Created on or after date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&until, "until", "", "Created on or before date (YYYY-MM-DD)")
	searchCmd.Flags().IntVar(&limit, "limit", 0, "Maximum results")
	searchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	sessionsCmd.AddCommand(searchCmd)

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "show <session>",
		Short: "Show a session and its generated prompt",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, _ *session.Manager, s *session.Session, _ []string) error {
			printSessionDetail(cmd.OutOrStdout(), s)
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "favorite <session>",
		Short: "Toggle a session's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, mgr *session.Manager, s *session.Session, _ []string) error {
			fav, err := mgr.ToggleFavorite(s.ID)
			if err != nil {
				return err
			}
			if fav {
				fmt.Fprintf(cmd.OutOrStdout(), "⭐ %q added to favorites\n", s.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "☆ %q removed from favorites\n", s.Name)
			}
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "rate <session> <1-5>",
		Short: "Rate how well a session's prompt worked",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, mgr *session.Manager, s *session.Session, rest []string) error {
			rating, err := strconv.Atoi(rest[0])
			if err != nil {
				return fmt.Errorf("%w: %q", session.ErrInvalidRating, rest[0])
			}
			if err := mgr.Rate(s.ID, rating); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q rated %d/5\n", s.RatingString(), s.Name, rating)
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "status <session> <status>",
		Short: "Set a session's status",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, mgr *session.Manager, s *session.Session, rest []string) error {
			st, ok := session.ParseStatus(rest[0])
			if !ok {
				return fmt.Errorf("unknown status %q", rest[0])
			}
			if err := mgr.SetStatus(s.ID, st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %q is now %s\n", s.Name, st)
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "tag <session> <tag>...",
		Short: "Add tags to a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: withSession(func(cmd *cobra.Command, mgr *session.Manager, s *session.Session, rest []string) error {
			if err := mgr.AddTags(s.ID, rest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🏷️  %q tags: %s\n", s.Name, strings.Join(s.Tags, ", "))
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "untag <session> <tag>...",
		Short: "Remove tags from a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: withSession(func(cmd *cobra.Command, mgr *session.Manager, s *session.Session, rest []string) error {
			if err := mgr.RemoveTags(s.ID, rest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🏷️  %q tags: %s\n", s.Name, strings.Join(s.Tags, ", "))
			return nil
		}),
	})

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "delete <session>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, mgr *session.Manager, s *session.Session, _ []string) error {
			if err := mgr.Delete(s.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted %q\n", s.Name)
			return nil
		}),
	})

	// --- export / import ---
	var output string

	exportCmd := &cobra.Command{
		Use:   "export [session]...",
		Short: "Export sessions (all by default) to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			var ids []string
			for _, ref := range args {
				s, err := mgr.Find(ref)
				if err != nil {
					return err
				}
				ids = append(ids, s.ID)
			}
			path, err := mgr.Export(ids, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📦 Exported to %s\n", path)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: timestamped name)")
	sessionsCmd.AddCommand(exportCmd)

	var overwrite bool

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import sessions from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			n, err := mgr.Import(args[0], overwrite)
			if n > 0 || err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "📥 Imported %d session(s)\n", n)
			}
			return err
		},
	}
	importCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace sessions with the same id")
	sessionsCmd.AddCommand(importCmd)

	// --- cleanup ---
	var days int

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete non-favorite sessions not used recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			n, err := mgr.CleanupOld(days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d session(s) unused for %d days\n", n, days)
			return nil
		},
	}
	cleanupCmd.Flags().IntVar(&days, "days", 30, "Age threshold in days")
	sessionsCmd.AddCommand(cleanupCmd)

	// --- stats ---
	var statsJSON bool

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			st := mgr.Stats()
			out := cmd.OutOrStdout()
			if statsJSON {
				return writeJSON(out, st)
			}
			fmt.Fprintln(out, titleStyle.Render("📊 Session statistics"))
			fmt.Fprintf(out, "Total:      %d\n", st.Total)
			fmt.Fprintf(out, "Favorites:  %d\n", st.Favorites)
			fmt.Fprintf(out, "This week:  %d\n", st.ThisWeek)
			fmt.Fprintf(out, "This month: %d\n", st.ThisMonth)
			if len(st.ByStatus) > 0 {
				fmt.Fprintf(out, "By status:  %s\n", formatCounts(st.ByStatus))
			}
			if len(st.ByRating) > 0 {
				fmt.Fprintf(out, "By rating:  %s\n", formatCounts(st.ByRating))
			}
			if top := st.TopTags(5); len(top) > 0 {
				parts := make([]string, len(top))
				for i, t := range top {
					parts[i] = fmt.Sprintf("%s (%d)", t, st.TagCounts[t])
				}
				fmt.Fprintf(out, "Top tags:   %s\n", strings.Join(parts, ", "))
			}
			return nil
		},
	}
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	sessionsCmd.AddCommand(statsCmd)

	// --- prompt ---
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "prompt <session>",
		Short: "Print a session's prompt with @references expanded",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, _ *session.Manager, s *session.Session, _ []string) error {
			data := s.PromptData()
			if data.IsEmpty() {
				return fmt.Errorf("session %q contains no data", s.Name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt.ExpandReferences(prompt.Generate(data), e.files()))
			return nil
		}),
	})

	return sessionsCmd
}

// parseDate reads a YYYY-MM-DD date in local time. With endOfDay the last
// instant of that day is returned.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
