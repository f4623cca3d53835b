// Github-reader is an MCP server exposing read-only GitHub repository
// inspection tools backed by the GitHub GraphQL API.
//
// Configuration is loaded from an optional YAML file and environment
// variables (GITHUB_TOKEN, SERVER_TRANSPORT, ...). See internal/config.
//
// Usage:
//
//	# Start on stdio (default, for MCP clients)
//	github-reader
//
//	# Start the HTTP transport
//	SERVER_TRANSPORT=http SERVER_PORT=8000 github-reader
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mcp-tg/github-reader/internal/config"
	"github.com/mcp-tg/github-reader/internal/http"
	"github.com/mcp-tg/github-reader/internal/logging"
	"github.com/mcp-tg/github-reader/internal/mcp"
	"github.com/mcp-tg/github-reader/internal/storage"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (default: ~/.config/github-reader/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  github-reader           Start the MCP server\n")
			fmt.Fprintf(os.Stderr, "  github-reader version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("github-reader\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the server and blocks until context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info(ctx, "configuration loaded",
		zap.String("transport", cfg.Server.Transport),
		zap.Bool("github_token_configured", cfg.GitHub.IsConfigured()),
		zap.String("storage_path", cfg.Storage.Path),
	)

	store := storage.NewStore(cfg.Storage.Path)

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "github-reader",
		Version: version,
		Logger:  logger,
	}, &cfg.GitHub, store)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		httpSrv, err := http.NewServer(srv.Handler(), logger.Underlying(), &http.Config{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}
		return httpSrv.Start(ctx)
	default:
		return srv.Run(ctx)
	}
}
