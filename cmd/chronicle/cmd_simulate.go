package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/halcyard/chronicle/internal/api"
	"github.com/halcyard/chronicle/internal/sim"
	"github.com/halcyard/chronicle/internal/temporal"
)

func (a *app) cmdSimulate(args []string) int {
	flags := flag.NewFlagSet("simulate", flag.ContinueOnError)
	start := flags.Int64("start", -1, "starting astro_day (required)")
	end := flags.Int64("end", -1, "ending astro_day (required)")
	seed := flags.Int64("seed", 0, "random seed for reproducibility")
	granularity := flags.String("granularity", "year", "snapshot granularity (year/decade/century)")
	chunkSize := flags.Int64("chunk-size", 0, "chunk size in days (default: 100 years)")
	branch := flags.String("branch", sim.MainBranch, "timeline branch to simulate on")
	configPath := flags.String("config", "", "settings file (YAML)")
	pauseOnWarning := flags.Bool("pause-on-warning", false, "pause the run when validation warnings appear")
	servePort := flags.Int("serve", 0, "also serve the HTTP API + watch stream on this port")
	jsonOut := flags.Bool("json", false, "JSON output")

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: chronicle simulate region|province <ref> --start N --end N [flags]")
		return 1
	}
	kind := sim.EntityKind(args[0])
	if !kind.Valid() {
		fmt.Fprintf(os.Stderr, "chronicle: simulate: unknown entity kind %q (want region or province)\n", args[0])
		return 1
	}
	ref := args[1]
	if err := flags.Parse(args[2:]); err != nil {
		return 1
	}
	if *start < 0 || *end < 0 {
		fmt.Fprintln(os.Stderr, "chronicle: simulate: --start and --end are required")
		return 1
	}

	entity, err := a.resolveEntity(ref, kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: simulate: %v\n", err)
		return 1
	}

	cfg, err := a.loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: simulate: %v\n", err)
		return 1
	}
	cfg.Seed = *seed
	if *chunkSize > 0 {
		cfg.ChunkSizeDays = *chunkSize
	}

	eng, err := a.newEngine(*entity, *branch, cfg, *pauseOnWarning, *servePort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: simulate: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	run, err := eng.Run(ctx, *start, *end, temporal.Granularity(*granularity))
	return a.reportRun(run, err, *jsonOut)
}

// newEngine wires an engine against the shared database, with progress
// printing and the chosen warning policy. A non-zero servePort also
// exposes the HTTP API and pipes progress into the websocket watch stream.
func (a *app) newEngine(entity sim.Entity, branch string, cfg sim.Config, pauseOnWarning bool, servePort int) (*sim.Engine, error) {
	deps := sim.Deps{Snapshots: a.db, Events: a.db, Ledger: a.db}
	eng, err := sim.NewEngine(entity, branch, cfg, deps)
	if err != nil {
		return nil, err
	}

	var hub *api.Hub
	if servePort > 0 {
		hub = api.NewHub()
		srv := &api.Server{DB: a.db, Hub: hub, Port: servePort}
		srv.Start()
	}

	eng.OnProgress = func(p sim.Progress) {
		fmt.Printf("  %s  population %s  capacity %s\n",
			temporal.FormatDay(p.Day),
			humanize.Comma(int64(p.Population)),
			humanize.Comma(int64(p.Capacity)))
		if hub != nil {
			hub.Publish(p)
		}
	}

	if pauseOnWarning {
		eng.OnWarning = func(run *sim.Run, warnings []sim.Warning) bool {
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "  warning: %s\n", w)
			}
			fmt.Fprintln(os.Stderr, "pausing on validation warnings (resume with 'chronicle resume')")
			return false
		}
	}

	return eng, nil
}

// reportRun prints the outcome and maps run status to an exit code:
// 0 completed, 3 paused, 1 anything else.
func (a *app) reportRun(run *sim.Run, err error, jsonOut bool) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: simulation failed: %v\n", err)
		if run != nil {
			fmt.Fprintf(os.Stderr, "  run %s is %s; progress %s\n",
				run.ID, run.Status, temporal.FormatDay(run.ProgressDay))
		}
		return 1
	}
	if jsonOut {
		printJSON(run)
	} else {
		fmt.Printf("run %s %s: entity %d, branch %s, progressed to %s\n",
			run.ID, run.Status, run.EntityID, run.Branch, temporal.FormatDay(run.ProgressDay))
	}
	if run.Status == sim.StatusPaused {
		return 3
	}
	return 0
}
