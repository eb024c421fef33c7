// Error kinds for the simulation core.
//
// Parameter and persistence errors are fatal to a run. Effect errors are
// recovered locally (the offending event is skipped with a warning) so one
// malformed authored event cannot block two thousand years of simulation.
package sim

import (
	"errors"
	"fmt"
)

// ErrDuplicateSnapshot is returned by SnapshotWriter implementations when a
// snapshot already exists at the same (entity, branch, day) key. The engine
// never overwrites; a deliberate re-run is the caller's job.
var ErrDuplicateSnapshot = errors.New("snapshot already exists")

// ErrRunNotFound is returned by RunLedger implementations for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// InvalidParameterError reports malformed growth parameters: negative
// capacity factors, non-positive base capacity, and the like.
type InvalidParameterError struct {
	Name  string
	Value float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid growth parameter %s=%g", e.Name, e.Value)
}

// InvalidEffectError reports an event effect payload outside its contract,
// e.g. a shock multiplier above 1.
type InvalidEffectError struct {
	EventID int64
	Field   string
	Value   float64
}

func (e *InvalidEffectError) Error() string {
	return fmt.Sprintf("event %d: effect %s=%g out of range", e.EventID, e.Field, e.Value)
}

// PersistenceError wraps a snapshot or ledger write failure with run context.
// It is fatal to the current chunk; prior chunks remain committed.
type PersistenceError struct {
	Op       string
	EntityID int64
	Day      int64
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed for entity %d at day %d: %v", e.Op, e.EntityID, e.Day, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Warning is a non-fatal validation finding surfaced between chunks.
// Warnings never abort a run by themselves; the caller's policy decides.
type Warning struct {
	Day     int64  `json:"day"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("day %d [%s]: %s", w.Day, w.Code, w.Message)
}

// Warning codes emitted by the engine and resolver.
const (
	WarnNegativePopulation = "negative_population"
	WarnCapacityOvershoot  = "capacity_overshoot"
	WarnLowEnvironment     = "low_environment"
	WarnLowInfrastructure  = "low_infrastructure"
	WarnEventSkipped       = "event_skipped"
)
