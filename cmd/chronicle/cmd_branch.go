package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/halcyard/chronicle/internal/sim"
	"github.com/halcyard/chronicle/internal/temporal"
)

func (a *app) cmdBranch(args []string) int {
	flags := flag.NewFlagSet("branch", flag.ContinueOnError)
	day := flags.Int64("day", -1, "astro_day to branch from (required)")
	name := flags.String("name", "", "branch name (required)")
	configPath := flags.String("config", "", "settings file (YAML)")
	jsonOut := flags.Bool("json", false, "JSON output")

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronicle branch <run-id> --day N --name S")
		return 1
	}
	runID := args[0]
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}
	if *day < 0 || *name == "" {
		fmt.Fprintln(os.Stderr, "chronicle: branch: --day and --name are required")
		return 1
	}

	parent, err := a.db.GetRun(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: branch: %v\n", err)
		return 1
	}
	if *day > parent.ProgressDay {
		fmt.Fprintf(os.Stderr, "chronicle: branch: day %d is beyond run progress %d\n", *day, parent.ProgressDay)
		return 1
	}
	entity, err := a.db.GetEntity(parent.EntityID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: branch: %v\n", err)
		return 1
	}

	cfg, err := a.loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: branch: %v\n", err)
		return 1
	}
	cfg.Seed = parent.Seed

	deps := sim.Deps{Snapshots: a.db, Events: a.db, Ledger: a.db}
	eng, err := sim.NewEngine(*entity, parent.Branch, cfg, deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: branch: %v\n", err)
		return 1
	}

	child, err := eng.Branch(*day, *name, parent.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: branch: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(child)
	} else {
		fmt.Printf("branch %q created at %s\n", child.Branch, temporal.FormatDay(child.StartDay))
		fmt.Printf("continue it with: chronicle resume %s --end <day>\n", child.ID)
	}
	return 0
}
