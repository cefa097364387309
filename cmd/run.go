package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dt-pm-tools/kbagent/internal/config"
	"github.com/dt-pm-tools/kbagent/internal/ticket"
)

var (
	runStatic  bool
	runTesting bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process resolved tickets (poll JIRA, or the built-in fixtures with --static)",
	Long: `Runs the agent. In live mode it polls JIRA every runtime.poll_interval seconds
for tickets resolved within runtime.lookback minutes and processes each
(ticket, resolution) pair once. With --static it processes the built-in
fixture tickets once and exits.

--testing disables processed-ticket tracking so the same tickets are
processed on every poll.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		static := cfg.Runtime.Static || runStatic

		mode := config.ModeLive
		if static {
			mode = config.ModeOffline
		}
		if err := loadConfig(mode); err != nil {
			return err
		}
		if cmd.Flags().Changed("testing") {
			appConfig.Runtime.TestingMode = runTesting
		}

		p, err := buildPipeline(cmd.Context(), appConfig, !static, !static)
		if err != nil {
			return err
		}
		defer p.Close()

		if static {
			records, err := ticket.Fixtures()
			if err != nil {
				return fmt.Errorf("loading fixtures: %w", err)
			}
			return p.agent.RunStatic(cmd.Context(), records)
		}
		return p.agent.RunLive(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runStatic, "static", false, "process the built-in fixture tickets once instead of polling JIRA")
	runCmd.Flags().BoolVar(&runTesting, "testing", false, "reprocess tickets on every poll (no dedup)")
	rootCmd.AddCommand(runCmd)
}
