// Package mcp provides an MCP (Model Context Protocol) server that runs and
// summarizes naming-game simulations.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/namegame/internal/config"
	"github.com/nvandessel/namegame/internal/logging"
	"github.com/nvandessel/namegame/internal/ratelimit"
	"github.com/nvandessel/namegame/internal/store"
)

// Server wraps the MCP SDK server and provides namegame-specific functionality.
type Server struct {
	server       *sdk.Server
	settings     *config.Config
	outDir       string
	store        *store.Store // nil unless SQLite output is enabled
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name     string         // Server name (e.g., "namegame")
	Version  string         // Server version
	Settings *config.Config // Run defaults, provider and output; nil means config.Default()
	Logger   *slog.Logger   // Operator log; nil discards
}

// NewServer creates a new MCP server with namegame tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	outDir, err := filepath.Abs(settings.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var runStore *store.Store
	if settings.Output.SQLite {
		runStore, err = store.Open(settings.DBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
	}

	// Audit entries go to ~/.namegame, never the run log directory.
	var audit *AuditLogger
	if globalDir, err := store.GlobalPath(); err == nil {
		audit = NewAuditLogger(globalDir)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		settings:     settings,
		outDir:       outDir,
		store:        runStore,
		auditLogger:  audit,
		toolLimiters: ratelimit.NewToolLimiters(),
		logger:       logger,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close closes the server and releases resources. It is safe to call more
// than once.
func (s *Server) Close() error {
	var err error
	if s.store != nil {
		err = s.store.Close()
		s.store = nil
	}
	if s.auditLogger != nil {
		if cerr := s.auditLogger.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.auditLogger = nil
	}
	return err
}
