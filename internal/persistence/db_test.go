package persistence

import (
	"path/filepath"
	"testing"

	"github.com/halcyard/chronicle/internal/sim"
	"github.com/halcyard/chronicle/internal/temporal"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRegion(t *testing.T, db *DB, name string) *sim.Entity {
	t.Helper()
	e := &sim.Entity{Name: name, Kind: sim.KindRegion}
	if err := db.CreateEntity(e); err != nil {
		t.Fatalf("CreateEntity(%q): %v", name, err)
	}
	return e
}

func newTestSnapshot(entityID, day int64, total float64) *sim.Snapshot {
	return &sim.Snapshot{
		EntityID:    entityID,
		Branch:      sim.MainBranch,
		Day:         day,
		Type:        sim.SnapshotSimulation,
		Granularity: temporal.GranularityYear,
		Population: sim.PopulationState{
			Day:                  day,
			Total:                total,
			BySpecies:            map[string]float64{"huum": total},
			EnvironmentalFactor:  1.0,
			InfrastructureFactor: 1.0,
			LocationFactor:       1.0,
		},
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e := newTestRegion(t, db, "Vael")
	db.Close()

	// Reopening migrates idempotently and keeps the data.
	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	got, err := db2.GetEntity(e.ID)
	if err != nil {
		t.Fatalf("GetEntity after reopen: %v", err)
	}
	if got.Name != "Vael" {
		t.Fatalf("name = %q, want Vael", got.Name)
	}
}
