package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/halcyard/chronicle/internal/sim"
	"github.com/halcyard/chronicle/internal/temporal"
)

func (a *app) cmdEvent(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronicle event add|list ...")
		return 1
	}
	switch args[0] {
	case "add":
		return a.cmdEventAdd(args[1:])
	case "list":
		return a.cmdEventList(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "chronicle: event: unknown subcommand %q\n", args[0])
		return 1
	}
}

// unsetEffect marks an effect flag the author did not pass. NaN never
// collides with a legal effect value.
var unsetEffect = math.NaN()

func (a *app) cmdEventAdd(args []string) int {
	flags := flag.NewFlagSet("event add", flag.ContinueOnError)
	day := flags.Int64("day", -1, "activation astro_day (required)")
	endDay := flags.Int64("end-day", -1, "expiry astro_day (sustained events only)")
	evType := flags.String("type", "", "event type (founding/natural_disaster/cultural/political/economic/migration/military)")
	title := flags.String("title", "", "event title (required)")
	shock := flags.Float64("shock", unsetEffect, "population shock multiplier [0,1]")
	infraDamage := flags.Float64("infra-damage", unsetEffect, "infrastructure damage multiplier [0,1]")
	infraBoost := flags.Float64("infra-boost", unsetEffect, "infrastructure boost (additive)")
	envChange := flags.Float64("env-change", unsetEffect, "environmental change [-0.5,0.5]")
	jsonOut := flags.Bool("json", false, "JSON output")

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronicle event add <entity-ref> --day N --type T --title S [effects]")
		return 1
	}
	ref := args[0]
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}
	if *day < 0 || *title == "" || *evType == "" {
		fmt.Fprintln(os.Stderr, "chronicle: event add: --day, --type and --title are required")
		return 1
	}

	entity, err := a.resolveEntity(ref, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: event add: %v\n", err)
		return 1
	}

	ev := &sim.Event{
		Title:    *title,
		Type:     sim.EventType(*evType),
		EntityID: entity.ID,
		Day:      *day,
	}
	if *endDay >= 0 {
		ev.EndDay = endDay
	}
	if !math.IsNaN(*shock) {
		ev.Effects.ShockMultiplier = shock
	}
	if !math.IsNaN(*infraDamage) {
		ev.Effects.InfrastructureDamage = infraDamage
	}
	if !math.IsNaN(*infraBoost) {
		ev.Effects.InfrastructureBoost = infraBoost
	}
	if !math.IsNaN(*envChange) {
		ev.Effects.EnvironmentalChange = envChange
	}

	if err := a.db.CreateEvent(ev); err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: event add: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(ev)
	} else {
		fmt.Printf("event %d %q recorded for %s at %s\n",
			ev.ID, ev.Title, entity.Name, temporal.FormatDay(ev.Day))
	}
	return 0
}

func (a *app) cmdEventList(args []string) int {
	flags := flag.NewFlagSet("event list", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronicle event list <entity-ref>")
		return 1
	}
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}

	entity, err := a.resolveEntity(args[0], "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: event list: %v\n", err)
		return 1
	}
	events, err := a.db.ListEvents(entity.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronicle: event list: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(events)
		return 0
	}
	if len(events) == 0 {
		fmt.Printf("no events for %s\n", entity.Name)
		return 0
	}
	for _, ev := range events {
		fmt.Printf("%-4d %s  %-16s %s", ev.ID, temporal.FormatDay(ev.Day), ev.Type, ev.Title)
		if ev.Sustained() {
			fmt.Printf("  (until %s)", temporal.FormatDay(*ev.EndDay))
		}
		fmt.Println()
	}
	return 0
}
