package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/halcyard/chronicle/internal/sim"
	"github.com/halcyard/chronicle/internal/temporal"
)

func (a *app) cmdSnapshots(args []string) int {
	flags := flag.NewFlagSet("snapshots", flag.ContinueOnError)
	branch := flags.String("branch", sim.MainBranch, "timeline branch")
	from := flags.Int64("from", 0, "range start astro_day")
	to := flags.Int64("to", 1<<62, "range end astro_day")
	jsonOut := flags.Bool("json", false, "JSON output")

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronicle snapshots <entity-ref> [--branch S] [--from N] [--to N]")
		return 1
	}
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}

	entity, err := a.resolveEntity(args[0], "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: snapshots: %v\n", err)
		return 1
	}
	snaps, err := a.db.ListSnapshots(entity.ID, *branch, *from, *to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: snapshots: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(snaps)
		return 0
	}
	if len(snaps) == 0 {
		fmt.Printf("no snapshots for %s on branch %s\n", entity.Name, *branch)
		return 0
	}
	fmt.Printf("%s (branch %s):\n", entity.Name, *branch)
	for _, snap := range snaps {
		fmt.Printf("  %s  %12s  env %.2f infra %.2f loc %.2f  [%s]\n",
			temporal.FormatDay(snap.Day),
			humanize.Comma(int64(snap.Population.Total)),
			snap.Population.EnvironmentalFactor,
			snap.Population.InfrastructureFactor,
			snap.Population.LocationFactor,
			snap.Type)
	}
	return 0
}
