package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/halcyard/chronicle/internal/sim"
	"github.com/halcyard/chronicle/internal/temporal"
)

func (a *app) cmdRuns(args []string) int {
	flags := flag.NewFlagSet("runs", flag.ContinueOnError)
	status := flags.String("status", "", "filter by status (running/completed/paused/failed)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	runs, err := a.db.ListRuns(sim.RunStatus(*status))
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: runs: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(runs)
		return 0
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return 0
	}
	for _, r := range runs {
		fmt.Printf("%s  entity %-4d branch %-12s %-9s  %s → %s (at %s)",
			r.ID, r.EntityID, r.Branch, r.Status,
			temporal.FormatDay(r.StartDay), temporal.FormatDay(r.EndDay),
			temporal.FormatDay(r.ProgressDay))
		if r.Error != "" {
			fmt.Printf("  error: %s", r.Error)
		}
		fmt.Println()
	}
	return 0
}
