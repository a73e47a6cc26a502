package main

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rajatsrma/promptcraft/internal/project"
	"github.com/rajatsrma/promptcraft/internal/prompt"
	"github.com/rajatsrma/promptcraft/internal/template"
	"github.com/spf13/cobra"
)

func newTemplatesCmd(e *env) *cobra.Command {
	templatesCmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"t"},
		Short:   "Manage prompt templates",
	}

	var jsonOutput bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in and project templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tpls, err := e.templates().List()
			if err != nil {
				log.Printf("warning: %v", err)
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, tpls)
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("📋 Templates (%d)", len(tpls))))
			for _, t := range tpls {
				origin := "project"
				if t.Builtin {
					origin = "built-in"
				}
				fmt.Fprintf(out, "  %-18s %s %s\n", t.Name, t.Description, dimStyle.Render("("+origin+")"))
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	templatesCmd.AddCommand(listCmd)

	templatesCmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print the prompt a template produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := e.templates().Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("📋 "+t.Name))
			if t.Description != "" {
				fmt.Fprintln(out, dimStyle.Render(t.Description))
			}
			if len(t.Tags) > 0 {
				fmt.Fprintln(out, dimStyle.Render("#"+strings.Join(t.Tags, " #")))
			}
			fmt.Fprintf(out, "\n%s\n", prompt.Generate(template.Apply(*t)))
			return nil
		},
	})

	templatesCmd.AddCommand(&cobra.Command{
		Use:   "use <name>",
		Short: "Start the interactive builder from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := e.templates().Load(args[0])
			if err != nil {
				return err
			}
			if _, err := e.menu(template.Apply(*t)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "👋 Goodbye!")
			return nil
		},
	})

	var fromSession, description string
	var tags []string

	saveCmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a session's persona, task, context and constraints as a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromSession == "" {
				return errors.New("--from is required")
			}
			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			s, err := mgr.Find(fromSession)
			if err != nil {
				return err
			}
			data := s.PromptData()
			t := template.Template{
				Name:        args[0],
				Description: description,
				Persona:     data.Persona,
				Task:        data.Task,
				Context:     data.Context,
				Constraints: data.Constraints,
				Tags:        tags,
			}
			tm := e.templates()
			if err := tm.Save(t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Template %q saved to %s\n", t.Name, tm.UserDir())
			return nil
		},
	}
	saveCmd.Flags().StringVar(&fromSession, "from", "", "Session to copy from")
	saveCmd.Flags().StringVar(&description, "description", "", "Template description")
	saveCmd.Flags().StringSliceVar(&tags, "tag", nil, "Template tags")
	templatesCmd.AddCommand(saveCmd)

	templatesCmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a project template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.templates().Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted template %q\n", args[0])
			return nil
		},
	})

	templatesCmd.AddCommand(&cobra.Command{
		Use:   "suggest",
		Short: "Suggest templates for the detected project type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "💡 Suggested for this %s:\n", project.Describe(e.dir))
			for _, name := range project.SuggestTemplates(e.dir) {
				fmt.Fprintf(out, "  • %s\n", name)
			}
			return nil
		},
	})

	return templatesCmd
}
