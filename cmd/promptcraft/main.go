package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"

	"github.com/joho/godotenv"
	"github.com/rajatsrma/promptcraft/internal/browser"
	"github.com/rajatsrma/promptcraft/internal/config"
	"github.com/rajatsrma/promptcraft/internal/gitctx"
	"github.com/rajatsrma/promptcraft/internal/project"
	"github.com/rajatsrma/promptcraft/internal/prompt"
	"github.com/rajatsrma/promptcraft/internal/session"
	"github.com/rajatsrma/promptcraft/internal/template"
	"github.com/rajatsrma/promptcraft/internal/tui"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	// Global config from ~/.promptcraft/config.yaml only fills unset env vars
	if _, err := config.LoadGlobal(); err != nil {
		log.Printf("warning: config load: %v", err)
	}
	_ = godotenv.Load()

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// env carries the project directory and lazily loaded project state shared
// by every subcommand.
type env struct {
	dir     string
	project *config.ProjectConfig
	found   bool
	browser *browser.Browser
}

func (e *env) projectConfig() (*config.ProjectConfig, bool) {
	if e.project != nil {
		return e.project, e.found
	}
	cfg, ok, err := config.LoadProject(e.dir)
	if err != nil {
		log.Printf("warning: %v", err)
		cfg = config.DefaultProject()
	}
	e.project, e.found = cfg, ok
	return cfg, ok
}

func (e *env) sessions() (*session.Manager, error) {
	return session.Open(filepath.Join(e.dir, session.DefaultDir))
}

func (e *env) templates() *template.Manager {
	return template.NewManager(filepath.Join(e.dir, template.DefaultUserDir))
}

func (e *env) files() *browser.Browser {
	if e.browser == nil {
		cfg, _ := e.projectConfig()
		e.browser = browser.New(e.dir, cfg.BrowserOptions())
	}
	return e.browser
}

// menu runs the interactive builder starting from data.
func (e *env) menu(data prompt.Data) (prompt.Data, error) {
	mgr, err := e.sessions()
	if err != nil {
		return data, err
	}
	return tui.Run(tui.Config{
		Data:      data,
		Sessions:  mgr,
		Templates: e.templates(),
		Browser:   e.files(),
	})
}

// buildRootCmd creates the root cobra command with all subcommands.
func buildRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:   "promptcraft",
		Short: "🛠️  PromptCraft: build structured LLM prompts from your codebase",
		Long: `PromptCraft is an interactive prompt builder. It assembles persona, task,
context, schemas, examples and constraints into a Markdown prompt, expands
@file references into code excerpts chosen by a smart file filter and code
chunker, and keeps reusable sessions and templates per project.`,
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := e.menu(prompt.Data{}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "👋 Goodbye!")
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&e.dir, "dir", "C", ".", "Project directory")

	// --- init command ---
	var framework, database, styleGuide, provider, model string
	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .promptcraft.yml project config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := filepath.Join(e.dir, config.ProjectFile)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", config.ProjectFile)
			}

			cfg := config.DefaultProject()
			cfg.Framework = framework
			if cfg.Framework == "" {
				cfg.Framework = project.PrimaryFramework(e.dir)
			}
			cfg.Database = database
			cfg.StyleGuide = styleGuide
			if provider != "" {
				cfg.LLM.Provider = provider
				cfg.LLM.Model = config.DefaultModelFor(provider)
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			if err := config.SaveProject(e.dir, cfg); err != nil {
				return err
			}

			fmt.Fprintf(out, "✅ Configuration saved to %s\n", config.ProjectFile)
			fmt.Fprintf(out, "   Detected: %s\n", project.Describe(e.dir))
			fmt.Fprintf(out, "   LLM: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
			return nil
		},
	}
	initCmd.Flags().StringVar(&framework, "framework", "", "Project framework (default: detected)")
	initCmd.Flags().StringVar(&database, "database", "", "Database used by the project")
	initCmd.Flags().StringVar(&styleGuide, "style-guide", "", "Style guide to follow")
	initCmd.Flags().StringVar(&provider, "provider", "", "LLM provider (OpenAI or Anthropic)")
	initCmd.Flags().StringVar(&model, "model", "", "LLM model (default: provider default)")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")
	rootCmd.AddCommand(initCmd)

	// --- list command ---
	var listFavorites bool
	var listTag string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			f := session.Filter{}
			if listFavorites {
				f.Favorite = &listFavorites
			}
			if listTag != "" {
				f.Tags = []string{listTag}
			}
			printSessions(cmd.OutOrStdout(), mgr.Search(f))
			return nil
		},
	}
	listCmd.Flags().BoolVar(&listFavorites, "favorites", false, "Only favorite sessions")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Only sessions with this tag")
	rootCmd.AddCommand(listCmd)

	// --- load command ---
	loadCmd := &cobra.Command{
		Use:   "load <session>",
		Short: "Open a saved session in the interactive builder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			s, err := mgr.Find(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📂 Loaded session %q\n", s.Name)

			before := s.PromptData()
			after, err := e.menu(before)
			if err != nil {
				return err
			}
			if !reflect.DeepEqual(before, after) {
				s.Data = &after
				fmt.Fprintf(out, "💾 Session %q updated\n", s.Name)
			}
			if err := mgr.Update(s); err != nil {
				return err
			}
			fmt.Fprintln(out, "👋 Goodbye!")
			return nil
		},
	}
	rootCmd.AddCommand(loadCmd)

	rootCmd.AddCommand(newRunCmd(e))
	rootCmd.AddCommand(newSessionsCmd(e))
	rootCmd.AddCommand(newTemplatesCmd(e))
	rootCmd.AddCommand(newFilesCmd(e))

	// --- detect command ---
	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the project type and suggest templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("🔍 "+project.Describe(e.dir)))
			if found := project.DetectEnhanced(e.dir); len(found) > 0 {
				fmt.Fprintln(out, "Frameworks:")
				for _, f := range found {
					fmt.Fprintf(out, "  • %s\n", f)
				}
			}
			fmt.Fprintln(out, "Suggested templates:")
			for _, t := range project.SuggestTemplates(e.dir) {
				fmt.Fprintf(out, "  • %s\n", t)
			}
			return nil
		},
	}
	rootCmd.AddCommand(detectCmd)

	// --- git command ---
	gitOpts := gitctx.DefaultOptions()

	gitCmd := &cobra.Command{
		Use:   "git",
		Short: "Print the repository context as Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := gitctx.New(e.dir).Context(gitOpts)
			if ctx == "" {
				return errors.New("not a git repository")
			}
			fmt.Fprintln(cmd.OutOrStdout(), ctx)
			return nil
		},
	}
	gitCmd.Flags().IntVarP(&gitOpts.Commits, "commits", "n", gitOpts.Commits, "Number of recent commits")
	gitCmd.Flags().BoolVar(&gitOpts.IncludeDiff, "diff", false, "Include the working tree diff")
	gitCmd.Flags().BoolVar(&gitOpts.Staged, "staged", false, "Use the staged diff (with --diff)")
	rootCmd.AddCommand(gitCmd)

	// --- completion command ---
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for promptcraft.

To load completions:

Bash:
  $ source <(promptcraft completion bash)

Zsh:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc  # once
  $ promptcraft completion zsh > "${fpath[1]}/_promptcraft"
  $ exec zsh

Fish:
  $ promptcraft completion fish | source
  $ promptcraft completion fish > ~/.config/fish/completions/promptcraft.fish

PowerShell:
  PS> promptcraft completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	rootCmd.AddCommand(completionCmd)

	return rootCmd
}
