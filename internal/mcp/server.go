// Package mcp provides the github-reader MCP server: six read-only GitHub
// repository inspection tools, each dispatched through the interceptor
// pipeline (authorization gate, then usage accounting).
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp).
package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcp-tg/github-reader/internal/config"
	"github.com/mcp-tg/github-reader/internal/github"
	"github.com/mcp-tg/github-reader/internal/logging"
	"github.com/mcp-tg/github-reader/internal/pipeline"
	"github.com/mcp-tg/github-reader/internal/storage"
)

// Server wires the MCP SDK server, the GraphQL client and the interceptor
// chain.
type Server struct {
	mcp      *mcp.Server
	client   *github.Client
	chain    *pipeline.Chain
	registry *ToolRegistry
	metrics  *Metrics
	logger   *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "github-reader").
	Name string

	// Version is the server version (default: "1.0.0").
	Version string

	// Logger for structured logging.
	Logger *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "github-reader",
		Version: "1.0.0",
		Logger:  logging.NewNop(),
	}
}

// NewServer creates the server, assembles the interceptor chain in its
// fixed order (authorization gate first, usage accounting second) and
// registers all tools.
func NewServer(cfg *Config, ghCfg *config.GitHubConfig, store *storage.Store) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if ghCfg == nil {
		return nil, fmt.Errorf("github configuration is required")
	}
	if store == nil {
		return nil, fmt.Errorf("stats store is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	metrics := NewMetrics(cfg.Logger.Underlying())

	// Gate outermost: rejected calls never reach the usage interceptor,
	// so they are neither timed nor counted.
	chain := pipeline.NewChain(
		pipeline.NewAuthInterceptor(ghCfg, cfg.Logger),
		pipeline.NewUsageInterceptor(store, cfg.Logger, metrics),
	)

	s := &Server{
		mcp:      mcpServer,
		client:   github.NewClient(ghCfg, cfg.Logger),
		chain:    chain,
		registry: NewToolRegistry(),
		metrics:  metrics,
		logger:   cfg.Logger,
	}

	s.registerTools()

	return s, nil
}

// Registry exposes the registered tool descriptors.
func (s *Server) Registry() *ToolRegistry {
	return s.registry
}

// Run starts the MCP server on the stdio transport and blocks until the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Handler returns the streamable HTTP handler for serving MCP over HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}
