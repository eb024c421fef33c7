// Command chronicle simulates demographic change for fictional regions and
// provinces over a multi-thousand-year timeline: logistic growth against
// dynamic carrying capacity, perturbed by human-authored historical events,
// checkpointed for resume and branchable for counterfactuals.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

const version = "1.0.0"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("chronicle", version)
		return
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	defer a.Close()

	switch os.Args[1] {
	case "simulate":
		os.Exit(a.cmdSimulate(os.Args[2:]))
	case "resume":
		os.Exit(a.cmdResume(os.Args[2:]))
	case "branch":
		os.Exit(a.cmdBranch(os.Args[2:]))
	case "runs":
		os.Exit(a.cmdRuns(os.Args[2:]))
	case "entity":
		os.Exit(a.cmdEntity(os.Args[2:]))
	case "event":
		os.Exit(a.cmdEvent(os.Args[2:]))
	case "snapshots":
		os.Exit(a.cmdSnapshots(os.Args[2:]))
	case "serve":
		os.Exit(a.cmdServe(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "chronicle: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'chronicle --help' for usage.")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`chronicle — demographic timeline simulation for fictional worlds

Logistic population growth against event-driven carrying capacity,
checkpointed in chunks, resumable, and branchable for counterfactuals.

Usage:
  chronicle <command> [flags]

Commands:
  simulate region|province <ref>   Run a simulation (--start/--end required)
  resume <run-id> --end N          Continue a paused, failed, or completed run
  branch <run-id> --day N --name S Fork an independent counterfactual timeline
  runs [--status S]                List simulation runs
  entity add|list|show             Manage regions and provinces
  event add|list                   Manage authored historical events
  snapshots <ref>                  Show a snapshot series
  serve [--port N]                 Serve the read-only HTTP API + watch stream

Environment:
  CHRONICLE_DB       SQLite database path (default: chronicle.db)
  CHRONICLE_CONFIG   Settings file path (YAML, optional)

Exit codes:
  0  success
  1  error
  3  run paused (validation policy or cancellation)
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "chronicle: "+format+"\n", args...)
	os.Exit(1)
}
