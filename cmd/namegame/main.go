package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvandessel/namegame/internal/config"
	"github.com/nvandessel/namegame/internal/logging"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "namegame",
		Short: "Naming game - emergent conventions among language-model agents",
		Long: `namegame runs the naming game: a population of agents, each consulting
a decision source, repeatedly pairs up and proposes a name for a shared
object. Successful pairs keep their name, failed ones may adopt their
partner's. Runs are logged as JSONL (and optionally SQLite) and
summarized into convergence metrics.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.namegame/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newSummarizeCmd(),
		newConfigCmd(),
		newSetupCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "namegame version %s\n", version)
			}
		},
	}
}

// loadConfig reads the --config file (or the default location), applies
// the --log-level override and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		if !logging.ValidLevel(level) {
			return nil, fmt.Errorf("invalid log level: %s (valid: info, debug, trace)", level)
		}
		cfg.Logging.Level = level
	}
	return cfg, nil
}
