package persistence

import (
	"errors"
	"testing"

	"github.com/halcyard/chronicle/internal/sim"
)

func TestCreateSnapshot_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	snap := newTestSnapshot(e.ID, 365, 12345.5)
	snap.Population.EnvironmentalFactor = 1.1
	snap.Population.InfrastructureFactor = 0.9
	if err := db.CreateSnapshot(snap); err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	got, err := db.SnapshotAt(e.ID, sim.MainBranch, 365)
	if err != nil {
		t.Fatalf("SnapshotAt: %v", err)
	}
	if got == nil {
		t.Fatal("snapshot not found")
	}
	if got.Population.Total != 12345.5 {
		t.Fatalf("total = %g, want 12345.5", got.Population.Total)
	}
	if got.Population.BySpecies["huum"] != 12345.5 {
		t.Fatalf("species breakdown lost: %v", got.Population.BySpecies)
	}
	if got.Population.EnvironmentalFactor != 1.1 || got.Population.InfrastructureFactor != 0.9 {
		t.Fatalf("factors lost: %+v", got.Population)
	}
}

func TestSnapshotAt_Missing(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	got, err := db.SnapshotAt(e.ID, sim.MainBranch, 999)
	if err != nil {
		t.Fatalf("SnapshotAt: %v", err)
	}
	if got != nil {
		t.Fatal("absent snapshot should be (nil, nil)")
	}
}

func TestCreateSnapshot_Duplicate(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	if err := db.CreateSnapshot(newTestSnapshot(e.ID, 365, 1000)); err != nil {
		t.Fatal(err)
	}
	err := db.CreateSnapshot(newTestSnapshot(e.ID, 365, 2000))
	if !errors.Is(err, sim.ErrDuplicateSnapshot) {
		t.Fatalf("got %v, want ErrDuplicateSnapshot", err)
	}

	// The original value survives.
	got, err := db.SnapshotAt(e.ID, sim.MainBranch, 365)
	if err != nil || got == nil {
		t.Fatalf("SnapshotAt: %v", err)
	}
	if got.Population.Total != 1000 {
		t.Fatalf("original snapshot was overwritten: %g", got.Population.Total)
	}
}

func TestCreateSnapshot_BranchesDoNotCollide(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	if err := db.CreateSnapshot(newTestSnapshot(e.ID, 365, 1000)); err != nil {
		t.Fatal(err)
	}
	alt := newTestSnapshot(e.ID, 365, 2000)
	alt.Branch = "no-plague"
	if err := db.CreateSnapshot(alt); err != nil {
		t.Fatalf("same day on another branch should be fine: %v", err)
	}
}

func TestCreateSnapshotBatch_Atomic(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	if err := db.CreateSnapshot(newTestSnapshot(e.ID, 730, 999)); err != nil {
		t.Fatal(err)
	}

	// Batch includes a colliding day: nothing from the batch may land.
	batch := []*sim.Snapshot{
		newTestSnapshot(e.ID, 365, 1000),
		newTestSnapshot(e.ID, 730, 2000),
		newTestSnapshot(e.ID, 1095, 3000),
	}
	err := db.CreateSnapshotBatch(batch)
	if !errors.Is(err, sim.ErrDuplicateSnapshot) {
		t.Fatalf("got %v, want ErrDuplicateSnapshot", err)
	}

	if got, _ := db.SnapshotAt(e.ID, sim.MainBranch, 365); got != nil {
		t.Fatal("failed batch leaked a row at day 365")
	}
	if got, _ := db.SnapshotAt(e.ID, sim.MainBranch, 1095); got != nil {
		t.Fatal("failed batch leaked a row at day 1095")
	}
	got, _ := db.SnapshotAt(e.ID, sim.MainBranch, 730)
	if got == nil || got.Population.Total != 999 {
		t.Fatal("pre-existing snapshot disturbed by failed batch")
	}
}

func TestCreateSnapshotBatch_Success(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	batch := []*sim.Snapshot{
		newTestSnapshot(e.ID, 365, 1000),
		newTestSnapshot(e.ID, 730, 2000),
	}
	if err := db.CreateSnapshotBatch(batch); err != nil {
		t.Fatalf("CreateSnapshotBatch: %v", err)
	}
	snaps, err := db.ListSnapshots(e.ID, sim.MainBranch, 0, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	if snaps[0].Day != 365 || snaps[1].Day != 730 {
		t.Fatalf("snapshots out of order: %d, %d", snaps[0].Day, snaps[1].Day)
	}
}

func TestInterpolated_Linear(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	if err := db.CreateSnapshot(newTestSnapshot(e.ID, 0, 1000)); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateSnapshot(newTestSnapshot(e.ID, 100, 2000)); err != nil {
		t.Fatal(err)
	}

	pop, err := db.Interpolated(e.ID, sim.MainBranch, 50)
	if err != nil {
		t.Fatalf("Interpolated: %v", err)
	}
	if pop == nil {
		t.Fatal("expected interpolated state")
	}
	if pop.Total != 1500 {
		t.Fatalf("total = %g, want 1500", pop.Total)
	}
	if pop.BySpecies["huum"] != 1500 {
		t.Fatalf("species mix not rescaled: %v", pop.BySpecies)
	}
	if pop.Day != 50 {
		t.Fatalf("day = %d, want 50", pop.Day)
	}
}

func TestInterpolated_EdgeCases(t *testing.T) {
	db := newTestDB(t)
	e := newTestRegion(t, db, "Vael")

	// No snapshots at all.
	pop, err := db.Interpolated(e.ID, sim.MainBranch, 50)
	if err != nil {
		t.Fatal(err)
	}
	if pop != nil {
		t.Fatal("no snapshots should yield (nil, nil)")
	}

	if err := db.CreateSnapshot(newTestSnapshot(e.ID, 100, 2000)); err != nil {
		t.Fatal(err)
	}

	// Only a later snapshot: take its values.
	pop, err = db.Interpolated(e.ID, sim.MainBranch, 50)
	if err != nil {
		t.Fatal(err)
	}
	if pop == nil || pop.Total != 2000 {
		t.Fatalf("nearest-after fallback failed: %+v", pop)
	}

	// Beyond the last snapshot: carry the nearest-before values forward.
	pop, err = db.Interpolated(e.ID, sim.MainBranch, 500)
	if err != nil {
		t.Fatal(err)
	}
	if pop == nil || pop.Total != 2000 || pop.Day != 500 {
		t.Fatalf("nearest-before carry-forward failed: %+v", pop)
	}
}
