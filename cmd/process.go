package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dt-pm-tools/kbagent/internal/config"
	"github.com/dt-pm-tools/kbagent/internal/ticket"
)

var (
	ticketFile string
	submit     bool
	noSubmit   bool
)

var processCmd = &cobra.Command{
	Use:   "process [issue-key]",
	Short: "Analyse one ticket and print the verdict",
	Long: `Fetches a JIRA issue (or reads one from --file), searches Confluence for related
articles and prints the model's verdict as JSON to stdout.

The verdict is applied to Confluence when confluence.auto_submit is set, or
when --submit is given. --no-submit prints the verdict without writing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, rec, key, err := ticketFromArgs(cmd.Context(), args)
		if err != nil {
			return err
		}
		defer p.Close()

		var override *bool
		switch {
		case submit:
			override = &submit
		case noSubmit:
			off := false
			override = &off
		}

		text, err := p.agent.ProcessTicket(cmd.Context(), rec, key, override)
		if err != nil {
			return fmt.Errorf("processing %s: %w", key, err)
		}
		fmt.Println(text)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [issue-key]",
	Short: "Show the Confluence articles found for one ticket",
	Long:  `Runs only the search step for a JIRA issue (or a ticket read from --file) and prints the matching articles as JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, rec, _, err := ticketFromArgs(cmd.Context(), args)
		if err != nil {
			return err
		}
		defer p.Close()

		if !p.hasWiki {
			return fmt.Errorf("confluence is not configured or unreachable")
		}

		articles := p.agent.SearchForTicket(cmd.Context(), rec)
		out, err := json.MarshalIndent(articles, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding articles: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

// ticketFromArgs builds the pipeline and loads the ticket named by args or
// --file.
func ticketFromArgs(ctx context.Context, args []string) (*pipeline, *ticket.Record, string, error) {
	if len(args) == 0 && ticketFile == "" {
		return nil, nil, "", fmt.Errorf("an issue key or --file is required")
	}

	mode := config.ModeFetch
	if ticketFile != "" {
		mode = config.ModeOffline
	}
	if err := loadConfig(mode); err != nil {
		return nil, nil, "", err
	}

	p, err := buildPipeline(ctx, appConfig, ticketFile == "", false)
	if err != nil {
		return nil, nil, "", err
	}

	var rec *ticket.Record
	if ticketFile != "" {
		data, err := os.ReadFile(ticketFile)
		if err != nil {
			p.Close()
			return nil, nil, "", fmt.Errorf("reading file: %w", err)
		}
		rec, err = ticket.Decode(data)
		if err != nil {
			p.Close()
			return nil, nil, "", fmt.Errorf("parsing %s: %w", ticketFile, err)
		}
	} else {
		key := strings.ToUpper(args[0])
		rec, err = p.jira.FetchFull(ctx, key)
		if err != nil {
			p.Close()
			return nil, nil, "", fmt.Errorf("fetching issue %s: %w", key, err)
		}
	}

	key := rec.Key
	if len(args) == 1 {
		key = strings.ToUpper(args[0])
	}
	return p, rec, key, nil
}

func init() {
	for _, c := range []*cobra.Command{processCmd, searchCmd} {
		c.Flags().StringVarP(&ticketFile, "file", "f", "", "read the ticket from a JSON file instead of JIRA")
		rootCmd.AddCommand(c)
	}
	processCmd.Flags().BoolVar(&submit, "submit", false, "apply the verdict to Confluence")
	processCmd.Flags().BoolVar(&noSubmit, "no-submit", false, "never apply the verdict")
	processCmd.MarkFlagsMutuallyExclusive("submit", "no-submit")
}
