package main

import (
	"github.com/nvandessel/namegame/internal/logging"
	"github.com/nvandessel/namegame/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve namegame tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  namegame_run        Run a simulation, return its summary and log path
  namegame_summarize  Summarize a log file, log directory or stored run
  namegame_runs       List stored runs (when output.sqlite is enabled)

Operational logs go to stderr as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "namegame",
				Version:  version,
				Settings: cfg,
				Logger:   logging.NewJSONLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
}
