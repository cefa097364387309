package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dt-pm-tools/kbagent/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	appConfig config.Config
	logger    = zap.NewNop()
	logLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	version   = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:     "kbagent",
	Short:   "Turn resolved JIRA tickets into Confluence knowledge-base drafts and updates",
	Long:    `kbagent watches a JIRA project for resolved tickets, asks an LLM whether the resolution deserves a new troubleshooting article or changes to existing Confluence pages, and optionally applies that decision as draft pages or page updates.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logLevel.SetLevel(zapcore.DebugLevel)
		}
		zcfg := zap.NewProductionConfig()
		zcfg.Level = logLevel
		l, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.kbagent.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig loads and validates configuration for mode. Commands that talk
// to any backend call this.
func loadConfig(mode config.Mode) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(mode); err != nil {
		return fmt.Errorf("invalid config: %w\nRun 'kbagent config' to set up credentials", err)
	}
	if !verbose {
		if err := logLevel.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return fmt.Errorf("invalid log.level %q: %w", cfg.Log.Level, err)
		}
	}
	appConfig = cfg
	return nil
}
