// The simulation engine drives a full run: chunked day-stepping, event
// application, snapshot emission, validation between chunks, and the
// resume/branch machinery. Execution is single-threaded per run; each run
// owns its state outright, so independent runs (other entities, other
// branches) can proceed concurrently without shared mutable state.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/halcyard/chronicle/internal/temporal"
)

// Factor floor below which chunk validation raises a warning.
const lowFactorThreshold = 0.1

// Engine runs demographic simulations for one entity on one branch.
type Engine struct {
	entity Entity
	branch string
	cfg    Config
	deps   Deps
	drift  *Drift
	rng    *rand.Rand

	// OnWarning is the caller's pause policy: it receives the chunk's
	// validation warnings and returns whether to continue. Nil means log
	// and keep going. The engine itself never blocks on input.
	OnWarning func(run *Run, warnings []Warning) bool

	// OnProgress, if set, is invoked after every committed chunk.
	OnProgress func(p Progress)
}

// NewEngine constructs an engine for an entity. branch may be empty for
// the main timeline.
func NewEngine(entity Entity, branch string, cfg Config, deps Deps) (*Engine, error) {
	if !entity.Kind.Valid() {
		return nil, fmt.Errorf("entity %d: unknown kind %q", entity.ID, entity.Kind)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Snapshots == nil || deps.Events == nil || deps.Ledger == nil {
		return nil, fmt.Errorf("engine for entity %d: missing collaborator", entity.ID)
	}
	if branch == "" {
		branch = MainBranch
	}
	return &Engine{
		entity: entity,
		branch: branch,
		cfg:    cfg,
		deps:   deps,
		drift:  NewDrift(cfg.Seed, cfg.DriftAmplitude),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run simulates [startDay, endDay], emitting snapshots at the given
// granularity. It returns the ledger record; check its Status — a paused
// run (cancellation or the warning policy declining) returns a nil error.
func (e *Engine) Run(ctx context.Context, startDay, endDay int64, gran temporal.Granularity) (*Run, error) {
	if startDay >= endDay {
		return nil, fmt.Errorf("start day %d must be before end day %d", startDay, endDay)
	}
	if !gran.Valid() {
		return nil, fmt.Errorf("unknown granularity %q", gran)
	}

	run := &Run{
		ID:          uuid.NewString(),
		EntityID:    e.entity.ID,
		Branch:      e.branch,
		StartDay:    startDay,
		EndDay:      endDay,
		ProgressDay: startDay,
		Seed:        e.cfg.Seed,
		Granularity: gran,
		Status:      StatusRunning,
	}
	if err := e.deps.Ledger.CreateRun(run); err != nil {
		return nil, &PersistenceError{Op: "create run", EntityID: e.entity.ID, Day: startDay, Err: err}
	}

	pop, err := e.loadInitialState(e.branch, startDay)
	if err != nil {
		e.fail(run, err)
		return run, err
	}

	slog.Info("simulation starting",
		"run", run.ID, "entity", e.entity.Name, "branch", run.Branch,
		"start", temporal.FormatDay(startDay), "end", temporal.FormatDay(endDay),
		"seed", run.Seed, "granularity", gran)

	return e.execute(ctx, run, pop)
}

// Resume continues a paused, failed, or completed run up to toDay. State
// is reloaded from the snapshot at the run's progress day (or interpolated
// near it) — never by replaying from day zero. Given the same seed and
// event set, an interrupted-and-resumed run emits snapshots bit-identical
// to an uninterrupted one.
func (e *Engine) Resume(ctx context.Context, runID string, toDay int64) (*Run, error) {
	run, err := e.deps.Ledger.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if run.EntityID != e.entity.ID {
		return nil, fmt.Errorf("run %s belongs to entity %d, engine is for %d", runID, run.EntityID, e.entity.ID)
	}
	if !run.Resumable() {
		return nil, fmt.Errorf("run %s is %s and cannot be resumed", runID, run.Status)
	}
	if toDay <= run.ProgressDay {
		return nil, fmt.Errorf("run %s already progressed to day %d", runID, run.ProgressDay)
	}

	if err := e.deps.Ledger.MarkRunning(runID, toDay); err != nil {
		return nil, &PersistenceError{Op: "reopen run", EntityID: e.entity.ID, Day: run.ProgressDay, Err: err}
	}
	run.EndDay = toDay
	run.Status = StatusRunning

	pop, err := e.loadInitialState(run.Branch, run.ProgressDay)
	if err != nil {
		e.fail(run, err)
		return run, err
	}

	slog.Info("simulation resuming",
		"run", run.ID, "entity", e.entity.Name, "branch", run.Branch,
		"from", temporal.FormatDay(pop.Day), "to", temporal.FormatDay(toDay))

	return e.execute(ctx, run, pop)
}

// Branch forks the timeline: it copies this branch's state at fromDay into
// a new branch namespace and registers an independent run for it, paused at
// the branch point. Stepping the child never touches the parent's
// snapshots. A non-empty parentRunID links the child back to the run it
// forked from and carries that run's granularity forward. Resume the
// returned run on an engine built for the new branch.
func (e *Engine) Branch(fromDay int64, branchName, parentRunID string) (*Run, error) {
	if branchName == "" || branchName == e.branch {
		return nil, fmt.Errorf("branch name %q invalid (empty or same as current branch)", branchName)
	}

	gran := temporal.GranularityYear
	var parentID *string
	if parentRunID != "" {
		parent, err := e.deps.Ledger.GetRun(parentRunID)
		if err != nil {
			return nil, err
		}
		gran = parent.Granularity
		parentID = &parentRunID
	}

	pop, err := e.loadStateAt(e.branch, fromDay)
	if err != nil {
		return nil, err
	}
	if pop == nil {
		return nil, fmt.Errorf("no snapshot data for entity %d on branch %s at day %d", e.entity.ID, e.branch, fromDay)
	}

	run := &Run{
		ID:          uuid.NewString(),
		EntityID:    e.entity.ID,
		Branch:      branchName,
		ParentRunID: parentID,
		StartDay:    fromDay,
		EndDay:      fromDay,
		ProgressDay: fromDay,
		Seed:        e.cfg.Seed,
		Granularity: gran,
		Status:      StatusPaused,
	}
	if err := e.deps.Ledger.CreateRun(run); err != nil {
		return nil, &PersistenceError{Op: "create branch run", EntityID: e.entity.ID, Day: fromDay, Err: err}
	}

	seed := &Snapshot{
		EntityID:    e.entity.ID,
		Branch:      branchName,
		Day:         fromDay,
		Type:        SnapshotSimulation,
		Granularity: run.Granularity,
		Population:  *pop.Clone(),
	}
	if err := e.deps.Snapshots.CreateSnapshot(seed); err != nil {
		reason := fmt.Sprintf("write branch-point snapshot: %v", err)
		e.deps.Ledger.MarkFailed(run.ID, reason)
		return nil, &PersistenceError{Op: "write branch-point snapshot", EntityID: e.entity.ID, Day: fromDay, Err: err}
	}

	slog.Info("branch created",
		"run", run.ID, "entity", e.entity.Name, "branch", branchName,
		"from", temporal.FormatDay(fromDay), "population", pop.Total)
	return run, nil
}

// execute drives the chunk loop until the end day, a failure, or a pause.
func (e *Engine) execute(ctx context.Context, run *Run, pop *PopulationState) (*Run, error) {
	state := NewEntityState(e.entity, pop)
	interval := run.Granularity.IntervalDays()
	kBase := e.cfg.KBaseFor(e.entity.Kind)

	for chunkStart := pop.Day; chunkStart < run.EndDay; {
		// Cancellation is observed at chunk boundaries only; a cancelled
		// run keeps its last committed chunk and is left resumable.
		select {
		case <-ctx.Done():
			e.pause(run)
			return run, nil
		default:
		}

		chunkEnd := chunkStart + e.cfg.ChunkSizeDays
		if chunkEnd > run.EndDay {
			chunkEnd = run.EndDay
		}

		// The chunk works on a clone; nothing is committed on error, so
		// prior chunks stay valid and resumable.
		working := state.Pop.Clone()
		pending, warnings, err := e.runChunk(run, working, chunkStart, chunkEnd, interval, kBase)
		if err != nil {
			e.fail(run, err)
			return run, fmt.Errorf("entity %d chunk [%d,%d]: %w", e.entity.ID, chunkStart, chunkEnd, err)
		}

		if err := e.deps.Snapshots.CreateSnapshotBatch(pending); err != nil {
			perr := &PersistenceError{Op: "write snapshots", EntityID: e.entity.ID, Day: chunkEnd, Err: err}
			e.fail(run, perr)
			return run, perr
		}
		if err := e.deps.Ledger.UpdateProgress(run.ID, chunkEnd); err != nil {
			perr := &PersistenceError{Op: "update progress", EntityID: e.entity.ID, Day: chunkEnd, Err: err}
			e.fail(run, perr)
			return run, perr
		}

		state.Pop = working
		run.ProgressDay = chunkEnd

		warnings = append(warnings, e.validateChunk(working, kBase)...)
		for _, w := range warnings {
			slog.Warn("validation", "run", run.ID, "entity", e.entity.Name, "warning", w.String())
		}

		slog.Info("chunk complete",
			"run", run.ID, "entity", e.entity.Name,
			"through", temporal.FormatDay(chunkEnd),
			"population", int64(working.Total),
			"capacity", int64(state.Capacity(kBase)),
			"snapshots", len(pending), "warnings", len(warnings))

		if e.OnProgress != nil {
			e.OnProgress(Progress{
				RunID:      run.ID,
				EntityID:   e.entity.ID,
				Branch:     run.Branch,
				ChunkStart: chunkStart,
				ChunkEnd:   chunkEnd,
				Day:        chunkEnd,
				Population: working.Total,
				Capacity:   state.Capacity(kBase),
				Warnings:   warnings,
			})
		}

		if len(warnings) > 0 && e.OnWarning != nil && !e.OnWarning(run, warnings) {
			e.pause(run)
			return run, nil
		}

		chunkStart = chunkEnd
	}

	if err := e.deps.Ledger.MarkCompleted(run.ID); err != nil {
		perr := &PersistenceError{Op: "mark completed", EntityID: e.entity.ID, Day: run.EndDay, Err: err}
		e.fail(run, perr)
		return run, perr
	}
	run.Status = StatusCompleted
	slog.Info("simulation complete", "run", run.ID, "entity", e.entity.Name,
		"through", temporal.FormatDay(run.EndDay))
	return run, nil
}

// runChunk steps (chunkStart, chunkEnd] one day at a time against the
// working state and returns the snapshots to commit. Snapshot days align
// to absolute day numbers (day % interval == 0), not chunk offsets, so a
// resumed run emits at exactly the same days as an uninterrupted one. The
// chunk's end day is always emitted, aligned or not: progress commits at
// chunkEnd, and a resume from there must find exact state, never a
// nearest-before reconstruction.
func (e *Engine) runChunk(run *Run, pop *PopulationState, chunkStart, chunkEnd int64, interval int64, kBase float64) ([]*Snapshot, []Warning, error) {
	events, err := e.deps.Events.EventsInRange(e.entity.ID, chunkStart+1, chunkEnd)
	if err != nil {
		return nil, nil, &PersistenceError{Op: "load events", EntityID: e.entity.ID, Day: chunkStart, Err: err}
	}
	byDay := indexEventsByDay(events)

	state := NewEntityState(e.entity, pop)
	dt := 1 / temporal.DaysPerYear

	var pending []*Snapshot
	var warnings []Warning

	for day := chunkStart + 1; day <= chunkEnd; day++ {
		if e.drift != nil && day%temporal.DaysYear == 0 {
			pop.EnvironmentalFactor = clamp(pop.EnvironmentalFactor+e.drift.Sample(day),
				e.cfg.Bounds.EnvironmentalMin, e.cfg.Bounds.EnvironmentalMax)
		}

		if evs := byDay[day]; len(evs) > 0 {
			warnings = append(warnings, state.ApplyEventEffects(evs, day, e.cfg.Bounds)...)
		}

		if err := state.ApplyStep(e.cfg.GrowthRates, kBase, dt, day); err != nil {
			return nil, warnings, err
		}

		if day%interval == 0 || day == chunkEnd {
			pending = append(pending, &Snapshot{
				EntityID:    e.entity.ID,
				Branch:      run.Branch,
				Day:         day,
				Type:        SnapshotSimulation,
				Granularity: run.Granularity,
				Population:  *pop.Clone(),
			})
		}
	}

	return pending, warnings, nil
}

// indexEventsByDay indexes events by activation day and, for sustained
// events, by expiry day as well, so the per-day loop touches only the
// events that matter.
func indexEventsByDay(events []Event) map[int64][]Event {
	byDay := make(map[int64][]Event)
	for _, ev := range events {
		byDay[ev.Day] = append(byDay[ev.Day], ev)
		if ev.Sustained() {
			byDay[*ev.EndDay] = append(byDay[*ev.EndDay], ev)
		}
	}
	return byDay
}

// validateChunk runs the between-chunk sanity checks. All findings are
// soft: reported, never fatal.
func (e *Engine) validateChunk(pop *PopulationState, kBase float64) []Warning {
	ws := pop.Check()
	if pop.Total > e.cfg.OvershootRatio*kBase {
		ws = append(ws, Warning{Day: pop.Day, Code: WarnCapacityOvershoot,
			Message: fmt.Sprintf("population %.0f above %.1f × base capacity %.0f",
				pop.Total, e.cfg.OvershootRatio, kBase)})
	}
	if pop.EnvironmentalFactor < lowFactorThreshold {
		ws = append(ws, Warning{Day: pop.Day, Code: WarnLowEnvironment,
			Message: fmt.Sprintf("environmental factor %.3f critically low", pop.EnvironmentalFactor)})
	}
	if pop.InfrastructureFactor < lowFactorThreshold {
		ws = append(ws, Warning{Day: pop.Day, Code: WarnLowInfrastructure,
			Message: fmt.Sprintf("infrastructure factor %.3f critically low", pop.InfrastructureFactor)})
	}
	return ws
}

// loadInitialState resolves starting state for a run: exact snapshot,
// else interpolation between neighbors, else zero population with factors
// sampled from the configured ranges.
func (e *Engine) loadInitialState(branch string, day int64) (*PopulationState, error) {
	pop, err := e.loadStateAt(branch, day)
	if err != nil {
		return nil, err
	}
	if pop == nil {
		// No demographic record at all: zero population, seeded factors.
		pop = &PopulationState{
			Day:                  day,
			BySpecies:            map[string]float64{},
			EnvironmentalFactor:  uniform(e.rng, e.cfg.EnvironmentalFactorRange),
			InfrastructureFactor: e.cfg.InfrastructureFactorInitial,
			LocationFactor:       uniform(e.rng, e.cfg.LocationFactorRange),
		}
		slog.Info("no snapshot data, starting from zero population",
			"entity", e.entity.Name, "day", day,
			"environmental", pop.EnvironmentalFactor,
			"location", pop.LocationFactor)
	}
	for species := range pop.BySpecies {
		if _, ok := e.cfg.GrowthRates[species]; !ok {
			slog.Warn("species has no configured growth rate, holding constant",
				"entity", e.entity.Name, "species", species)
		}
	}
	return pop, nil
}

// loadStateAt returns the population state at day from an exact snapshot
// or interpolation, or nil when the entity has no snapshots on the branch.
func (e *Engine) loadStateAt(branch string, day int64) (*PopulationState, error) {
	snap, err := e.deps.Snapshots.SnapshotAt(e.entity.ID, branch, day)
	if err != nil {
		return nil, &PersistenceError{Op: "load snapshot", EntityID: e.entity.ID, Day: day, Err: err}
	}
	if snap != nil {
		pop := snap.Population.Clone()
		pop.Day = day
		return pop, nil
	}
	pop, err := e.deps.Snapshots.Interpolated(e.entity.ID, branch, day)
	if err != nil {
		return nil, &PersistenceError{Op: "interpolate snapshot", EntityID: e.entity.ID, Day: day, Err: err}
	}
	if pop != nil {
		pop.Day = day
	}
	return pop, nil
}

func (e *Engine) pause(run *Run) {
	if err := e.deps.Ledger.MarkPaused(run.ID); err != nil {
		slog.Error("failed to mark run paused", "run", run.ID, "error", err)
	}
	run.Status = StatusPaused
	slog.Info("simulation paused", "run", run.ID, "entity", e.entity.Name,
		"progress", temporal.FormatDay(run.ProgressDay))
}

func (e *Engine) fail(run *Run, cause error) {
	if err := e.deps.Ledger.MarkFailed(run.ID, cause.Error()); err != nil {
		slog.Error("failed to mark run failed", "run", run.ID, "error", err)
	}
	run.Status = StatusFailed
	run.Error = cause.Error()
	slog.Error("simulation failed", "run", run.ID, "entity", e.entity.Name,
		"progress", temporal.FormatDay(run.ProgressDay), "error", cause)
}

func uniform(rng *rand.Rand, r [2]float64) float64 {
	if r[0] == r[1] {
		return r[0]
	}
	return r[0] + rng.Float64()*(r[1]-r[0])
}
