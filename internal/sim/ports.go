// ports.go defines the collaborator interfaces the simulation core
// consumes. The concrete SQLite implementations live in
// internal/persistence; engine tests inject in-memory fakes.
package sim

// SnapshotReader loads persisted demographic observations.
type SnapshotReader interface {
	// SnapshotAt returns the snapshot at exactly (entity, branch, day),
	// or (nil, nil) when none exists.
	SnapshotAt(entityID int64, branch string, day int64) (*Snapshot, error)

	// Interpolated reconstructs a population state at day from the
	// nearest surrounding snapshots: linear interpolation for population
	// counts, nearest-before for the factor fields and species mix shape.
	// Returns (nil, nil) when the entity has no snapshots at all.
	Interpolated(entityID int64, branch string, day int64) (*PopulationState, error)
}

// SnapshotWriter persists engine-emitted snapshots.
type SnapshotWriter interface {
	// CreateSnapshot appends one snapshot. Writing to an occupied
	// (entity, branch, day) key fails with ErrDuplicateSnapshot — the
	// store is append-only and never silently overwrites.
	CreateSnapshot(snap *Snapshot) error

	// CreateSnapshotBatch writes a chunk's snapshots atomically: either
	// every snapshot lands or none do.
	CreateSnapshotBatch(snaps []*Snapshot) error
}

// SnapshotStore is the combined snapshot collaborator the engine requires.
type SnapshotStore interface {
	SnapshotReader
	SnapshotWriter
}

// EventSource loads authored events. The returned slice must contain every
// event whose activation day or expiry day falls within [startDay, endDay],
// ordered by (day, id). The engine never marks events consumed; re-running
// the same range re-applies them, which determinism requires.
type EventSource interface {
	EventsInRange(entityID int64, startDay, endDay int64) ([]Event, error)
}

// RunLedger is the checkpoint bookkeeping collaborator: pure metadata,
// no business logic.
type RunLedger interface {
	CreateRun(run *Run) error
	UpdateProgress(runID string, progressDay int64) error
	MarkRunning(runID string, endDay int64) error
	MarkCompleted(runID string) error
	MarkPaused(runID string) error
	MarkFailed(runID string, reason string) error
	GetRun(runID string) (*Run, error)
}

// Deps bundles the collaborators an engine needs.
type Deps struct {
	Snapshots SnapshotStore
	Events    EventSource
	Ledger    RunLedger
}
