// newshound-tui is a terminal UI for asking the news agent questions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/houndlabs/newshound/internal/config"
	"github.com/houndlabs/newshound/internal/engine"
	"github.com/houndlabs/newshound/internal/models"
	"github.com/houndlabs/newshound/internal/report"
	"github.com/houndlabs/newshound/internal/tool"
	"github.com/houndlabs/newshound/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("newshound-tui", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "Path to config file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent, err := setup(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer agent.Close()

	if err := tui.Run(ctx, agent); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// agent wires the engine and tool hosts for interactive use.
type agent struct {
	cfg    *config.Config
	tools  *tool.Registry
	engine *engine.Engine
}

func setup(ctx context.Context, configPath string) (*agent, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no config at %s, run 'newshound init' first", configPath)
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := models.FromConfig(cfg, logger)
	provider, modelID, err := registry.ForModel(cfg.Agent.Model)
	if err != nil {
		return nil, err
	}

	tools := tool.NewRegistry(logger)
	if err := tools.Connect(ctx, cfg.Hosts); err != nil {
		return nil, fmt.Errorf("connect tool hosts: %w", err)
	}

	a := &agent{cfg: cfg, tools: tools}
	a.engine = engine.New(provider, modelID, tools, tools.Catalog(), logger,
		engine.WithSessionFiles(a.sessionFiles),
		engine.WithResolver(engine.NewResolver(cfg.Agent.AnalysisTool, cfg.Agent.EmailTool)),
	)
	return a, nil
}

func (a *agent) sessionFiles(query string) engine.SessionFiles {
	name := report.Filename(query, time.Now(), "报道")
	return engine.SessionFiles{
		ReportName: name,
		ReportPath: filepath.Join(a.cfg.Agent.ReportDir, name),
	}
}

// Answer runs one query through the engine.
func (a *agent) Answer(ctx context.Context, query string) (string, error) {
	res, err := a.engine.Answer(ctx, query)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

func (a *agent) Close() {
	a.tools.Close()
}
