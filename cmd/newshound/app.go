package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/houndlabs/newshound/internal/config"
	"github.com/houndlabs/newshound/internal/engine"
	"github.com/houndlabs/newshound/internal/history"
	"github.com/houndlabs/newshound/internal/journal"
	"github.com/houndlabs/newshound/internal/models"
	"github.com/houndlabs/newshound/internal/report"
	"github.com/houndlabs/newshound/internal/schedule"
	"github.com/houndlabs/newshound/internal/tool"
)

// App holds all the runtime components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Models    *models.Registry
	Tools     *tool.Registry
	Engine    *engine.Engine
	History   *history.Store
	Journal   *journal.Journal
	Scheduler *schedule.Scheduler
}

// setup initializes all application components and connects the tool hosts.
func setup(ctx context.Context, configPath string) (*App, error) {
	app := &App{}

	app.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig(configPath, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app.Config = cfg

	// Recreate logger with config's log level
	app.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Agent.LogLevel),
	}))

	app.Models = models.FromConfig(cfg, app.Logger)
	provider, modelID, err := app.Models.ForModel(cfg.Agent.Model)
	if err != nil {
		return nil, err
	}

	app.Tools = tool.NewRegistry(app.Logger)
	if err := app.Tools.Connect(ctx, cfg.Hosts); err != nil {
		return nil, fmt.Errorf("connect tool hosts: %w", err)
	}

	app.Engine = engine.New(provider, modelID, app.Tools, app.Tools.Catalog(), app.Logger,
		engine.WithSessionFiles(app.sessionFiles),
		engine.WithResolver(engine.NewResolver(cfg.Agent.AnalysisTool, cfg.Agent.EmailTool)),
	)

	store, err := history.Open(filepath.Join(cfg.Agent.DataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	app.History = store

	jnl, err := journal.New(filepath.Join(cfg.Agent.DataDir, "journal"))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	app.Journal = jnl

	app.Scheduler = schedule.NewScheduler(app, app.Logger)
	app.Scheduler.LoadJobs(digestJobs(cfg))

	return app, nil
}

// Close releases host connections and storage.
func (a *App) Close() {
	if a.Tools != nil {
		a.Tools.Close()
	}
	if a.History != nil {
		a.History.Close()
	}
}

// loadConfig loads configuration from file or creates the default.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no config found, creating default", "path", path)
			cfg = config.DefaultConfig()
			if err := cfg.Save(path); err != nil {
				return nil, fmt.Errorf("save default config: %w", err)
			}
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// sessionFiles derives the report filename and path for one query.
func (a *App) sessionFiles(query string) engine.SessionFiles {
	name := report.Filename(query, time.Now(), "报道")
	return engine.SessionFiles{
		ReportName: name,
		ReportPath: filepath.Join(a.Config.Agent.ReportDir, name),
	}
}

// Answer runs one query, journals the execution, persists the answer, and
// writes the answer artifact. It satisfies repl.Answerer.
func (a *App) Answer(ctx context.Context, query string) (string, error) {
	res, err := a.Engine.Answer(ctx, query)
	if err != nil {
		var toolErr *engine.ToolInvocationError
		failedTool := ""
		if errors.As(err, &toolErr) {
			failedTool = toolErr.Tool
		}
		a.journalRecord(query, journal.EventError, failedTool, nil, err)
		return "", err
	}

	a.journalRecord(query, journal.EventPlan, "", res.Plan, nil)
	for _, step := range res.Plan {
		out, ok := res.Outputs[step.Tool]
		if !ok {
			continue
		}
		a.journalRecord(query, journal.EventStep, step.Tool, map[string]int{"outputChars": len(out)}, nil)
	}
	a.journalRecord(query, journal.EventSynthesis, "", map[string]int{"answerChars": len(res.Answer)}, nil)

	tools := make([]string, 0, len(res.Plan))
	for _, step := range res.Plan {
		tools = append(tools, step.Tool)
	}
	if _, err := a.History.Save(ctx, query, res.Answer, tools); err != nil {
		a.Logger.Warn("failed to save answer to history", "error", err)
	}
	a.writeAnswerArtifact(query, res.Answer, tools)

	return res.Answer, nil
}

func (a *App) journalRecord(query string, event journal.EventType, tool string, payload any, evErr error) {
	if err := a.Journal.Record(query, event, tool, payload, evErr); err != nil {
		a.Logger.Warn("journal write failed", "error", err)
	}
}

// writeAnswerArtifact persists the synthesized answer as a markdown
// document next to the reports.
func (a *App) writeAnswerArtifact(query, answer string, tools []string) {
	name := report.Filename(query, time.Now(), "")
	path := filepath.Join(a.Config.Agent.DataDir, "answers", name)
	artifact := report.Artifact{
		Meta: report.Meta{
			Title:   query,
			Query:   query,
			Created: time.Now(),
			Tools:   tools,
		},
		Body: answer,
	}
	if err := report.Write(path, artifact); err != nil {
		a.Logger.Warn("failed to write answer artifact", "path", path, "error", err)
	}
}

// RunQuery satisfies schedule.Executor: a digest is an ordinary query whose
// report path is handed back for mailing.
func (a *App) RunQuery(ctx context.Context, query string) (string, string, error) {
	res, err := a.Engine.Answer(ctx, query)
	if err != nil {
		return "", "", err
	}

	reportPath := ""
	if _, analyzed := res.Outputs[a.Config.Agent.AnalysisTool]; analyzed {
		reportPath = res.Files.ReportPath
	}
	return res.Answer, reportPath, nil
}

// EmailReport satisfies schedule.Executor, sending through the configured
// email tool.
func (a *App) EmailReport(ctx context.Context, to, subject, body, reportPath string) error {
	args := map[string]any{
		"to":      to,
		"subject": subject,
		"body":    body,
	}
	if reportPath != "" {
		args["attachment_path"] = reportPath
	}
	_, err := a.Tools.Call(ctx, a.Config.Agent.EmailTool, args)
	return err
}

// loadConfigOnly reads the config without connecting any hosts, for
// commands that only touch local state.
func loadConfigOnly(path string) (*config.Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := loadConfig(path, logger)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	return history.Open(filepath.Join(cfg.Agent.DataDir, "history.db"))
}

func listHistory(ctx context.Context, store *history.Store, search string, limit int) ([]history.Entry, error) {
	if search != "" {
		return store.Search(ctx, search, limit)
	}
	return store.Recent(ctx, limit)
}

// digestJobs maps configured digests onto scheduler jobs.
func digestJobs(cfg *config.Config) []*schedule.Job {
	if !cfg.Digests.Enabled {
		return nil
	}
	jobs := make([]*schedule.Job, 0, len(cfg.Digests.Jobs))
	for _, d := range cfg.Digests.Jobs {
		jobs = append(jobs, &schedule.Job{
			ID:      d.ID,
			Name:    d.Name,
			Query:   d.Query,
			EmailTo: d.EmailTo,
			Schedule: schedule.ScheduleConfig{
				Kind:       d.Schedule.Kind,
				IntervalMs: d.Schedule.IntervalMs,
				Expr:       d.Schedule.Expr,
				Time:       d.Schedule.Time,
				Timezone:   d.Schedule.Timezone,
			},
			Enabled: d.Enabled,
		})
	}
	return jobs
}
