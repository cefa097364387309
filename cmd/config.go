package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dt-pm-tools/kbagent/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure JIRA, Confluence and LLM connection settings",
	Long:  `Interactively set up JIRA, Confluence and LLM credentials. Settings are saved to ~/.kbagent.yaml. Press enter to keep the value shown in brackets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		// Load existing config for defaults
		cfg, _ := config.Load(cfgFile)

		fmt.Println("JIRA")
		cfg.Jira.URL = ask(reader, "  URL (e.g., https://your-org.atlassian.net)", cfg.Jira.URL)
		cfg.Jira.Email = ask(reader, "  Email", cfg.Jira.Email)
		token, err := askSecret("  API Token", cfg.Jira.Token)
		if err != nil {
			return err
		}
		cfg.Jira.Token = token
		cfg.Jira.Project = ask(reader, "  Project key", cfg.Jira.Project)

		fmt.Println("Confluence (leave URL empty to run without a knowledge base)")
		defURL := cfg.Confluence.URL
		if defURL == "" {
			defURL = cfg.Jira.URL
		}
		cfg.Confluence.URL = ask(reader, "  URL", defURL)
		if cfg.Confluence.URL != "" {
			defEmail := cfg.Confluence.Email
			if defEmail == "" {
				defEmail = cfg.Jira.Email
			}
			cfg.Confluence.Email = ask(reader, "  Email", defEmail)
			defToken := cfg.Confluence.Token
			if defToken == "" {
				defToken = cfg.Jira.Token
			}
			token, err := askSecret("  API Token", defToken)
			if err != nil {
				return err
			}
			cfg.Confluence.Token = token
			cfg.Confluence.Space = ask(reader, "  Space key", cfg.Confluence.Space)
			cfg.Confluence.ParentID = ask(reader, "  Parent page ID for drafts (optional)", cfg.Confluence.ParentID)
			cfg.Confluence.AutoSubmit = askBool(reader, "  Apply verdicts automatically", cfg.Confluence.AutoSubmit)
		}

		fmt.Println("LLM")
		cfg.LLM.Provider = strings.ToLower(ask(reader, "  Provider (openai, anthropic, gemini, bedrock)", cfg.LLM.Provider))
		cfg.LLM.Model = ask(reader, "  Model (empty for provider default)", cfg.LLM.Model)
		if cfg.LLM.Provider == config.ProviderBedrock {
			cfg.AWS.Region = ask(reader, "  AWS region", cfg.AWS.Region)
			cfg.AWS.InferenceProfile = ask(reader, "  Inference profile ARN (optional)", cfg.AWS.InferenceProfile)
		} else {
			key, err := askSecret("  API key", cfg.LLM.APIKey)
			if err != nil {
				return err
			}
			cfg.LLM.APIKey = key
			if cfg.LLM.Provider == config.ProviderOpenAI {
				cfg.LLM.BaseURL = ask(reader, "  Base URL (empty for api.openai.com)", cfg.LLM.BaseURL)
			}
		}

		if err := cfg.Validate(config.ModeLive); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}

		if err := config.Save(cfg, path); err != nil {
			return err
		}

		fmt.Printf("Configuration saved to %s\n", path)
		return nil
	},
}

func ask(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	val, _ := reader.ReadString('\n')
	val = strings.TrimSpace(val)
	if val == "" {
		return def
	}
	return val
}

func askBool(reader *bufio.Reader, label string, def bool) bool {
	d := "y/N"
	if def {
		d = "Y/n"
	}
	fmt.Printf("%s [%s]: ", label, d)
	val, _ := reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "y", "yes", "true":
		return true
	case "n", "no", "false":
		return false
	default:
		return def
	}
}

// askSecret reads masked input; an empty answer keeps def.
func askSecret(label, def string) (string, error) {
	if def != "" {
		fmt.Printf("%s (input hidden, enter to keep current): ", label)
	} else {
		fmt.Printf("%s (input hidden): ", label)
	}
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSpace(label), err)
	}
	val := strings.TrimSpace(string(b))
	if val == "" {
		return def, nil
	}
	return val, nil
}

func init() {
	rootCmd.AddCommand(configCmd)
}
