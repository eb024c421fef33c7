// Package sim implements the incremental, event-aware demographic
// simulation core: logistic population growth with dynamic carrying
// capacity, human-authored event perturbations, chunked checkpointed
// execution, and timeline branching.
//
// The core owns no storage. It consumes snapshot, event, and run-ledger
// collaborators through the interfaces in ports.go; the SQLite
// implementations live in internal/persistence.
package sim

import (
	"time"

	"github.com/halcyard/chronicle/internal/temporal"
)

// EntityKind distinguishes the two simulated entity classes.
type EntityKind string

const (
	KindRegion   EntityKind = "region"
	KindProvince EntityKind = "province"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return k == KindRegion || k == KindProvince
}

// Entity identifies a region or province subject to simulation.
// Entities are immutable here; the data layer owns their lifecycle.
type Entity struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Kind         EntityKind `db:"kind" json:"kind"`
	ParentID     *int64     `db:"parent_id" json:"parent_id,omitempty"`
	FoundedDay   *int64     `db:"founded_day" json:"founded_day,omitempty"`
	DissolvedDay *int64     `db:"dissolved_day" json:"dissolved_day,omitempty"`
}

// SnapshotType classifies how a snapshot's values were obtained.
type SnapshotType string

const (
	SnapshotCensus     SnapshotType = "census"     // human-authored ground truth
	SnapshotSimulation SnapshotType = "simulation" // emitted by the engine
	SnapshotEstimate   SnapshotType = "estimate"   // interpolated or guessed
)

// MainBranch is the default timeline namespace. Branch runs write their
// snapshots under their own name so they never collide with the parent.
const MainBranch = "main"

// Snapshot is a persisted observation of an entity's demographic state at
// one astro-day. Append-only: later snapshots supersede, never overwrite.
type Snapshot struct {
	ID          int64                `json:"id"`
	EntityID    int64                `json:"entity_id"`
	Branch      string               `json:"branch"`
	Day         int64                `json:"day"`
	Type        SnapshotType         `json:"type"`
	Granularity temporal.Granularity `json:"granularity"`
	Population  PopulationState      `json:"population"`
	CreatedAt   time.Time            `json:"created_at"`
}

// EventType enumerates the authored event classifications.
type EventType string

const (
	EventFounding        EventType = "founding"
	EventNaturalDisaster EventType = "natural_disaster"
	EventCultural        EventType = "cultural"
	EventPolitical       EventType = "political"
	EventEconomic        EventType = "economic"
	EventMigration       EventType = "migration"
	EventMilitary        EventType = "military"
)

// Event is a human-authored historical record the engine consumes as a
// perturbation. Events are read-only inputs here; the data layer owns them.
//
// Day is the activation day. A nil EndDay means the event is one-shot:
// every effect applies exactly once at Day. A non-nil EndDay > Day marks a
// sustained event: the shock still applies once at Day (a shock is an
// instantaneous loss), while environmental_change and infrastructure_boost
// are applied at Day and reverted at EndDay. Infrastructure damage is never
// reverted; ruins stay ruined until a boost event rebuilds them.
//
// TODO(worldbuilding): confirm the sustained-revert policy for
// environmental_change against the intended lore semantics.
type Event struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Type     EventType `json:"type"`
	EntityID int64     `json:"entity_id"`
	Day      int64     `json:"day"`
	EndDay   *int64    `json:"end_day,omitempty"`
	Effects  Effects   `json:"effects"`
}

// Sustained reports whether the event is active over a day range rather
// than at a single point.
func (e Event) Sustained() bool {
	return e.EndDay != nil && *e.EndDay > e.Day
}

// RunStatus is the lifecycle state of a simulation run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusPaused    RunStatus = "paused"
	StatusFailed    RunStatus = "failed"
)

// Run is the ledger record for one simulation execution. It carries
// everything needed to audit and resume: seed, bounds, progress, status.
type Run struct {
	ID          string               `json:"id"`
	EntityID    int64                `json:"entity_id"`
	Branch      string               `json:"branch"`
	ParentRunID *string              `json:"parent_run_id,omitempty"`
	StartDay    int64                `json:"start_day"`
	EndDay      int64                `json:"end_day"`
	ProgressDay int64                `json:"progress_day"`
	Seed        int64                `json:"seed"`
	Granularity temporal.Granularity `json:"granularity"`
	Status      RunStatus            `json:"status"`
	Error       string               `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Resumable reports whether the run can be picked up again.
func (r *Run) Resumable() bool {
	return r.Status == StatusPaused || r.Status == StatusFailed || r.Status == StatusCompleted
}

// Progress is a per-chunk notification delivered through Engine.OnProgress.
type Progress struct {
	RunID      string    `json:"run_id"`
	EntityID   int64     `json:"entity_id"`
	Branch     string    `json:"branch"`
	ChunkStart int64     `json:"chunk_start"`
	ChunkEnd   int64     `json:"chunk_end"`
	Day        int64     `json:"day"`
	Population float64   `json:"population"`
	Capacity   float64   `json:"capacity"`
	Warnings   []Warning `json:"warnings,omitempty"`
}
