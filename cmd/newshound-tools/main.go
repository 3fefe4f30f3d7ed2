// newshound-tools is the tool host binary: it exposes the built-in news,
// sentiment, and email tools over stdio (default), HTTP, or WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/houndlabs/newshound/internal/auth"
	"github.com/houndlabs/newshound/internal/config"
	"github.com/houndlabs/newshound/internal/models"
	"github.com/houndlabs/newshound/internal/toolserver"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("newshound-tools", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "Path to config file")
	transport := fs.String("transport", "stdio", "Serve over: stdio, http, ws")
	addr := fs.String("addr", ":8520", "Listen address for http/ws")
	showVersion := fs.Bool("version", false, "Show version")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}

	if *showVersion {
		fmt.Printf("newshound-tools v%s (built %s)\n", version, buildTime)
		return 0
	}

	// Logs go to stderr; stdout belongs to the protocol in stdio mode.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.DefaultConfig()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Agent.LogLevel),
	}))

	server, err := buildServer(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Tools.ManifestDir != "" {
		watcher := toolserver.NewManifestWatcher(cfg.Tools.ManifestDir, 5*time.Second, server, logger)
		watcher.Start()
		defer watcher.Stop()
	}

	switch *transport {
	case "stdio":
		if err := server.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
			logger.Error("stdio serve failed", "error", err)
			return 1
		}
		return 0

	case "http", "ws":
		var handler http.Handler
		if *transport == "http" {
			handler = server.Handler()
		} else {
			handler = server.WSHandler()
		}
		if cfg.Tools.JWTSecret != "" {
			handler = auth.Middleware([]byte(cfg.Tools.JWTSecret))(handler)
			logger.Info("JWT authentication enabled")
		}
		return serveHTTP(ctx, *addr, handler, logger)

	default:
		fmt.Fprintf(os.Stderr, "Unknown transport: %s (use stdio, http, or ws)\n", *transport)
		return 1
	}
}

// buildServer registers the built-in tools and applies any manifests.
func buildServer(cfg *config.Config, logger *slog.Logger) (*toolserver.Server, error) {
	server := toolserver.NewServer(logger)

	server.Register(toolserver.NewNewsTool(cfg.Tools.Serper))

	sentimentModel := cfg.Tools.SentimentModel
	if sentimentModel == "" {
		sentimentModel = cfg.Agent.Model
	}
	registry := models.FromConfig(cfg, logger)
	provider, modelID, err := registry.ForModel(sentimentModel)
	if err != nil {
		return nil, fmt.Errorf("sentiment model: %w", err)
	}
	server.Register(toolserver.NewSentimentTool(provider, modelID, cfg.Agent.ReportDir))

	server.Register(toolserver.NewEmailTool(cfg.Tools.SMTP))

	if cfg.Tools.ManifestDir != "" {
		manifests, err := toolserver.LoadManifests(cfg.Tools.ManifestDir, logger)
		if err != nil {
			return nil, fmt.Errorf("load manifests: %w", err)
		}
		server.ApplyManifests(manifests)
	}

	return server, nil
}

// serveHTTP runs an HTTP server until ctx is cancelled.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) int {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("tool host listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return 0
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			return 1
		}
		return 0
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
