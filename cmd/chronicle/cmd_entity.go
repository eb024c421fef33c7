package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/halcyard/chronicle/internal/sim"
	"github.com/halcyard/chronicle/internal/temporal"
)

func (a *app) cmdEntity(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronicle entity add|list|show ...")
		return 1
	}
	switch args[0] {
	case "add":
		return a.cmdEntityAdd(args[1:])
	case "list":
		return a.cmdEntityList(args[1:])
	case "show":
		return a.cmdEntityShow(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "chronicle: entity: unknown subcommand %q\n", args[0])
		return 1
	}
}

func (a *app) cmdEntityAdd(args []string) int {
	flags := flag.NewFlagSet("entity add", flag.ContinueOnError)
	kind := flags.String("kind", "region", "entity kind (region/province)")
	parent := flags.String("parent", "", "parent region (provinces only)")
	founded := flags.Int64("founded", -1, "founding astro_day")
	jsonOut := flags.Bool("json", false, "JSON output")

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronicle entity add <name> [--kind region|province] [--parent ref]")
		return 1
	}
	name := args[0]
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}

	e := &sim.Entity{Name: name, Kind: sim.EntityKind(*kind)}
	if *parent != "" {
		p, err := a.resolveEntity(*parent, sim.KindRegion)
		if err != nil {
			fmt.Fprintf(os.Stderr, "chronicle: entity add: %v\n", err)
			return 1
		}
		e.ParentID = &p.ID
	}
	if *founded >= 0 {
		e.FoundedDay = founded
	}

	if err := a.db.CreateEntity(e); err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: entity add: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(e)
	} else {
		fmt.Printf("created %s %q (id %d)\n", e.Kind, e.Name, e.ID)
	}
	return 0
}

func (a *app) cmdEntityList(args []string) int {
	flags := flag.NewFlagSet("entity list", flag.ContinueOnError)
	kind := flags.String("kind", "", "filter by kind (region/province)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	entities, err := a.db.ListEntities(sim.EntityKind(*kind))
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: entity list: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(entities)
		return 0
	}
	if len(entities) == 0 {
		fmt.Println("no entities")
		return 0
	}
	for _, e := range entities {
		fmt.Printf("%-4d %-10s %s", e.ID, e.Kind, e.Name)
		if e.FoundedDay != nil {
			fmt.Printf("  founded %s", temporal.FormatDay(*e.FoundedDay))
		}
		fmt.Println()
	}
	return 0
}

func (a *app) cmdEntityShow(args []string) int {
	flags := flag.NewFlagSet("entity show", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronicle entity show <ref>")
		return 1
	}
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}

	e, err := a.resolveEntity(args[0], "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: entity show: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(e)
		return 0
	}
	fmt.Printf("%s %q (id %d)\n", e.Kind, e.Name, e.ID)
	if e.ParentID != nil {
		fmt.Printf("  parent: %d\n", *e.ParentID)
	}
	if e.FoundedDay != nil {
		fmt.Printf("  founded: %s\n", temporal.FormatDay(*e.FoundedDay))
	}
	if e.DissolvedDay != nil {
		fmt.Printf("  dissolved: %s\n", temporal.FormatDay(*e.DissolvedDay))
	}
	return 0
}
