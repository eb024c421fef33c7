package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/agnivade/levenshtein"

	"github.com/halcyard/chronicle/internal/persistence"
	"github.com/halcyard/chronicle/internal/sim"
)

const defaultDB = "chronicle.db"

// app holds shared state for all CLI subcommands.
type app struct {
	db *persistence.DB
}

// newApp opens the database.
func newApp() (*app, error) {
	dbPath := envOr("CHRONICLE_DB", defaultDB)
	db, err := persistence.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", dbPath, err)
	}
	return &app{db: db}, nil
}

// Close releases the database connection.
func (a *app) Close() { a.db.Close() }

// loadConfig resolves the simulation settings: flag path first, then the
// CHRONICLE_CONFIG env var, then built-in defaults.
func (a *app) loadConfig(flagPath string) (sim.Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("CHRONICLE_CONFIG")
	}
	if path == "" {
		return sim.DefaultConfig(), nil
	}
	return sim.LoadConfig(path)
}

// resolveEntity accepts a numeric id or an entity name. On a name miss it
// suggests the closest known names by edit distance.
func (a *app) resolveEntity(ref string, kind sim.EntityKind) (*sim.Entity, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		e, err := a.db.GetEntity(id)
		if err != nil {
			return nil, err
		}
		if kind != "" && e.Kind != kind {
			return nil, fmt.Errorf("entity %d is a %s, not a %s", e.ID, e.Kind, kind)
		}
		return e, nil
	}

	e, err := a.db.GetEntityByName(ref)
	if err == nil {
		if kind != "" && e.Kind != kind {
			return nil, fmt.Errorf("entity %q is a %s, not a %s", e.Name, e.Kind, kind)
		}
		return e, nil
	}

	if suggestion := a.suggestEntity(ref, kind); suggestion != "" {
		return nil, fmt.Errorf("entity %q not found (did you mean %q?)", ref, suggestion)
	}
	return nil, err
}

// suggestEntity returns the closest entity name within a forgiving edit
// distance, or "" when nothing is close enough.
func (a *app) suggestEntity(ref string, kind sim.EntityKind) string {
	entities, err := a.db.ListEntities(kind)
	if err != nil {
		return ""
	}
	best := ""
	bestDist := len(ref)/2 + 2
	for _, e := range entities {
		dist := levenshtein.ComputeDistance(ref, e.Name)
		if dist < bestDist {
			bestDist = dist
			best = e.Name
		}
	}
	return best
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
