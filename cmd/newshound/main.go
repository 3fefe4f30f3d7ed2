package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/houndlabs/newshound/internal/config"
	"github.com/houndlabs/newshound/internal/repl"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := config.DefaultPath()
	var subCmd string
	var subCmdIdx int

	// First pass: find config flag
	skipNext := false
	for i := 1; i < len(os.Args); i++ {
		if skipNext {
			skipNext = false
			continue
		}
		arg := os.Args[i]
		if arg == "--config" || arg == "-config" {
			if i+1 < len(os.Args) {
				configPath = os.Args[i+1]
				skipNext = true
			}
		}
	}

	// Second pass: find subcommand (first non-flag arg)
	skipNext = false
	for i := 1; i < len(os.Args); i++ {
		if skipNext {
			skipNext = false
			continue
		}
		arg := os.Args[i]
		if arg == "--config" || arg == "-config" {
			skipNext = true
			continue
		}
		if arg == "--version" || arg == "-version" {
			continue
		}
		if len(arg) > 0 && arg[0] != '-' {
			subCmd = arg
			subCmdIdx = i
			break
		}
	}

	switch subCmd {
	case "init":
		return initCommand(configPath)
	case "version":
		printVersion()
		return 0
	case "ask":
		return askCommand(configPath, os.Args[subCmdIdx+1:])
	case "history":
		return historyCommand(configPath, os.Args[subCmdIdx+1:])
	case "schedule":
		return scheduleCommand(configPath, os.Args[subCmdIdx+1:])
	case "tools":
		return toolsCommand(configPath)
	case "":
		// fall through to the REPL
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subCmd)
		fmt.Fprintln(os.Stderr, "Available commands: init, ask, history, schedule, tools, version")
		return 1
	}

	fs := flag.NewFlagSet("newshound", flag.ExitOnError)
	fs.String("config", configPath, "Path to config file")
	showVersion := fs.Bool("version", false, "Show version")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}
	if *showVersion {
		printVersion()
		return 0
	}

	return replCommand(configPath)
}

func printVersion() {
	fmt.Printf("newshound v%s (built %s)\n", version, buildTime)
	fmt.Println("News agent: plan, search, analyze, report")
}

// initCommand writes a default config and tells the user where it went.
func initCommand(configPath string) int {
	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(os.Stderr, "Config already exists at %s\n", configPath)
		return 1
	}
	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Config created at %s\n", configPath)
	fmt.Println("Set NEWSHOUND_DASHSCOPE_API_KEY (or edit the config) before asking questions.")
	return 0
}

// replCommand is the default: an interactive session with digests running
// in the background when enabled.
func replCommand(configPath string) int {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := setup(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}
	defer app.Close()

	if app.Config.Digests.Enabled {
		app.Scheduler.Start(ctx)
		defer app.Scheduler.Stop()
	}

	r := repl.New(app, os.Stdin, os.Stdout)
	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// askCommand answers a single query and exits.
func askCommand(configPath string, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: newshound ask <query>")
		return 1
	}
	query := args[0]

	ctx, cancel := signalContext()
	defer cancel()

	app, err := setup(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}
	defer app.Close()

	answer, err := app.Answer(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(answer)
	return 0
}

// historyCommand lists or searches past answers.
func historyCommand(configPath string, args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	search := fs.String("search", "", "Full-text search past queries and answers")
	limit := fs.Int("limit", 10, "Maximum entries to show")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfigOnly(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	store, err := openHistory(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	entries, err := listHistory(ctx, store, *search, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Println("No history yet.")
		return 0
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Query)
		fmt.Printf("    %s\n", firstLine(e.Answer))
	}
	return 0
}

// scheduleCommand lists digest jobs or runs one immediately.
func scheduleCommand(configPath string, args []string) int {
	ctx, cancel := signalContext()
	defer cancel()

	if len(args) >= 2 && args[0] == "run" {
		app, err := setup(ctx, configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			return 1
		}
		defer app.Close()

		if err := app.Scheduler.RunJobNow(ctx, args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Digest %s completed.\n", args[1])
		return 0
	}

	cfg, err := loadConfigOnly(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !cfg.Digests.Enabled || len(cfg.Digests.Jobs) == 0 {
		fmt.Println("No digests configured.")
		return 0
	}
	for _, job := range cfg.Digests.Jobs {
		state := "disabled"
		if job.Enabled {
			state = "enabled"
		}
		fmt.Printf("%-20s %-10s %s\n", job.ID, state, job.Query)
	}
	return 0
}

// toolsCommand connects the configured hosts and prints the tool catalog.
func toolsCommand(configPath string) int {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := setup(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}
	defer app.Close()

	catalog := app.Engine.Catalog()
	if len(catalog) == 0 {
		fmt.Println("No tools available.")
		return 0
	}
	for _, td := range catalog {
		fmt.Printf("%-28s %s\n", td.Name, td.Description)
	}
	return 0
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
