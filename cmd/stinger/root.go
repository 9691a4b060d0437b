package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/virtualsteve-star/stinger-sub001/internal/config"
)

const (
	exitSuccess = 0
	exitError   = 1
	// exitBlocked signals that guardrails blocked the content.
	exitBlocked = 2
)

var (
	configFile string
	verbose    bool
	jsonOutput bool

	cfg *config.Config

	// exitCode is the status main exits with after deferred cleanup
	// has run. Command handlers set it instead of calling os.Exit.
	exitCode = exitSuccess
)

var rootCmd = &cobra.Command{
	Use:   "stinger",
	Short: "Stinger - LLM guardrail engine",
	Long: `Stinger runs configurable guardrail pipelines over LLM inputs and
outputs: pattern and keyword filters, model-based judges, streaming
checkpoints, and a full audit trail of every decision.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = os.Getenv("STINGER_CONFIG")
	}
	if path == "" {
		path = "stinger.yaml"
	}

	loader := config.NewLoader(config.NewValidator())
	loaded, err := loader.LoadWithDefaults(path)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default stinger.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON output")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
