package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/percept/internal/graph"
	"github.com/nvandessel/percept/internal/ratelimit"
)

// Server wraps the MCP SDK server and exposes the perception graph as tools.
type Server struct {
	server       *sdk.Server
	graph        *graph.PerceptionGraph
	root         string
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "percept")
	Version string // Server version
	Root    string // Project root directory
}

// NewServer creates an MCP server over the given perception graph.
// The server takes ownership of the graph: Run and Close release it.
func NewServer(cfg *Config, g *graph.PerceptionGraph) (*Server, error) {
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = cfg.Root
	}

	s := &Server{
		server:       mcpServer,
		graph:        g,
		root:         cfg.Root,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(cfg.Root, homeDir),
	}

	if err := s.registerTools(); err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	if err := s.registerResources(); err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	if s.auditLogger != nil {
		_ = s.auditLogger.Close()
	}
	return s.graph.Close()
}
