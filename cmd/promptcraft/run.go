package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rajatsrma/promptcraft/internal/config"
	"github.com/rajatsrma/promptcraft/internal/gitctx"
	"github.com/rajatsrma/promptcraft/internal/llm"
	"github.com/rajatsrma/promptcraft/internal/prompt"
	"github.com/spf13/cobra"
)

// ErrNoConfig is returned by run when the project has not been initialized.
var ErrNoConfig = errors.New("no .promptcraft.yml found, run 'promptcraft init' first")

func newRunCmd(e *env) *cobra.Command {
	var raw, dryRun, withGit bool
	var model string

	cmd := &cobra.Command{
		Use:   "run <session>",
		Short: "Send a saved session's prompt to the configured LLM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, ok := e.projectConfig()
			if !ok {
				return ErrNoConfig
			}

			mgr, err := e.sessions()
			if err != nil {
				return err
			}
			s, err := mgr.Find(args[0])
			if err != nil {
				return err
			}
			data := s.PromptData()
			if data.IsEmpty() {
				return fmt.Errorf("session %q contains no data", s.Name)
			}

			text := prompt.ExpandReferences(prompt.Generate(data), e.files())
			if withGit {
				if ctx := gitctx.New(e.dir).Context(gitctx.DefaultOptions()); ctx != "" {
					text += "\n\n" + ctx
				}
			}
			tokens := humanize.Comma(int64(prompt.EstimateTokens(text)))

			if dryRun {
				fmt.Fprintln(out, text)
				fmt.Fprintln(out, dimStyle.Render("~"+tokens+" tokens"))
				return nil
			}

			client := llm.NewClient()
			client.Model = cfg.LLM.Model
			if model != "" {
				client.Model = model
			}
			if !strings.EqualFold(cfg.LLM.Provider, config.DefaultProvider) {
				fmt.Fprintf(out, "%s\n", dimStyle.Render(fmt.Sprintf("provider %s is served through the OpenAI-compatible endpoint %s", cfg.LLM.Provider, client.BaseURL)))
			}

			fmt.Fprintf(out, "🚀 Running %q with %s (~%s tokens)...\n", s.Name, client.Model, tokens)
			reply, usage, err := client.RunPrompt(text)
			if err != nil {
				if errors.Is(err, llm.ErrNoAPIKey) {
					return fmt.Errorf("%w (set it in the environment, .env or ~/.promptcraft/config.yaml)", err)
				}
				return err
			}

			if raw {
				fmt.Fprintln(out, reply)
			} else {
				fmt.Fprintln(out, renderMarkdown(reply))
			}
			if usage.TotalTokens > 0 {
				fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%s prompt + %s completion tokens",
					humanize.Comma(int64(usage.PromptTokens)), humanize.Comma(int64(usage.CompletionTokens)))))
			}
			return mgr.Update(s)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the reply without Markdown rendering")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the expanded prompt instead of sending it")
	cmd.Flags().BoolVar(&withGit, "git", false, "Append the repository context to the prompt")
	cmd.Flags().StringVar(&model, "model", "", "Override the configured model")
	return cmd
}
