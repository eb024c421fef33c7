package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func (a *app) cmdResume(args []string) int {
	flags := flag.NewFlagSet("resume", flag.ContinueOnError)
	end := flags.Int64("end", -1, "astro_day to simulate up to (required)")
	seed := flags.Int64("seed", -1, "override seed (default: the run's recorded seed)")
	configPath := flags.String("config", "", "settings file (YAML)")
	pauseOnWarning := flags.Bool("pause-on-warning", false, "pause the run when validation warnings appear")
	servePort := flags.Int("serve", 0, "also serve the HTTP API + watch stream on this port")
	jsonOut := flags.Bool("json", false, "JSON output")

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronicle resume <run-id> --end N [flags]")
		return 1
	}
	runID := args[0]
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}
	if *end < 0 {
		fmt.Fprintln(os.Stderr, "chronicle: resume: --end is required")
		return 1
	}

	prior, err := a.db.GetRun(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: resume: %v\n", err)
		return 1
	}
	entity, err := a.db.GetEntity(prior.EntityID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: resume: %v\n", err)
		return 1
	}

	cfg, err := a.loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: resume: %v\n", err)
		return 1
	}
	// Keeping the recorded seed is what makes a resumed run bit-identical
	// to an uninterrupted one.
	cfg.Seed = prior.Seed
	if *seed >= 0 {
		cfg.Seed = *seed
	}

	eng, err := a.newEngine(*entity, prior.Branch, cfg, *pauseOnWarning, *servePort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: resume: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	run, err := eng.Resume(ctx, runID, *end)
	return a.reportRun(run, err, *jsonOut)
}
