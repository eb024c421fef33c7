// Event effect resolution: humans author events with declarative effect
// parameters, the engine applies them. Effects are decoded and validated at
// load time so malformed authored data fails fast, and composition order is
// fixed by (day, event id) so a day with several events is reproducible no
// matter how storage returned them.
package sim

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Effects is the closed set of effect parameters an event may carry.
// Unknown keys in the stored payload are ignored (forward-compatible);
// absent fields are no-ops.
type Effects struct {
	// ShockMultiplier scales the whole population once at the activation
	// day: 0.75 means a 25% loss. Must be within [0, 1].
	ShockMultiplier *float64 `json:"shock_multiplier,omitempty" yaml:"shock_multiplier,omitempty"`

	// InfrastructureDamage multiplies the infrastructure factor, in [0, 1].
	InfrastructureDamage *float64 `json:"infrastructure_damage,omitempty" yaml:"infrastructure_damage,omitempty"`

	// InfrastructureBoost adds to the infrastructure factor (irrigation,
	// technology). Applied at activation; reverted at expiry for sustained
	// events.
	InfrastructureBoost *float64 `json:"infrastructure_boost,omitempty" yaml:"infrastructure_boost,omitempty"`

	// EnvironmentalChange adds to the environmental factor, bounded to
	// [-0.5, +0.5]. Applied at activation; reverted at expiry for
	// sustained events.
	EnvironmentalChange *float64 `json:"environmental_change,omitempty" yaml:"environmental_change,omitempty"`
}

// Empty reports whether the event carries no effect at all.
func (e Effects) Empty() bool {
	return e.ShockMultiplier == nil && e.InfrastructureDamage == nil &&
		e.InfrastructureBoost == nil && e.EnvironmentalChange == nil
}

// maxEnvironmentalChange bounds a single event's environmental delta.
const maxEnvironmentalChange = 0.5

// Validate checks every present parameter against its contract. eventID is
// only used for error context.
func (e Effects) Validate(eventID int64) error {
	if m := e.ShockMultiplier; m != nil && (*m < 0 || *m > 1) {
		return &InvalidEffectError{EventID: eventID, Field: "shock_multiplier", Value: *m}
	}
	if d := e.InfrastructureDamage; d != nil && (*d < 0 || *d > 1) {
		return &InvalidEffectError{EventID: eventID, Field: "infrastructure_damage", Value: *d}
	}
	if c := e.EnvironmentalChange; c != nil && (*c < -maxEnvironmentalChange || *c > maxEnvironmentalChange) {
		return &InvalidEffectError{EventID: eventID, Field: "environmental_change", Value: *c}
	}
	return nil
}

// ParseEffects decodes a stored effects payload. Unknown keys are dropped
// silently; out-of-contract values are rejected so bad authored data is
// caught at load time rather than mid-simulation.
func ParseEffects(raw []byte, eventID int64) (Effects, error) {
	var e Effects
	if len(raw) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return Effects{}, fmt.Errorf("decode effects for event %d: %w", eventID, err)
	}
	if err := e.Validate(eventID); err != nil {
		return Effects{}, err
	}
	return e, nil
}

// EffectBounds limits how far event effects can push the capacity factors.
type EffectBounds struct {
	EnvironmentalMin  float64
	EnvironmentalMax  float64
	InfrastructureMin float64
	InfrastructureMax float64
}

// DefaultEffectBounds matches the authored-data contract: environment in
// [0.1, 2.0], infrastructure in [0, 3.0].
func DefaultEffectBounds() EffectBounds {
	return EffectBounds{
		EnvironmentalMin:  0.1,
		EnvironmentalMax:  2.0,
		InfrastructureMin: 0,
		InfrastructureMax: 3.0,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Resolve applies every event relevant to day against the population state.
//
// Relevant means: activation (event.Day == day) or, for sustained events,
// expiry (event.EndDay == day). Events targeting other entities are never
// selected. Events are re-sorted by (day, id) before application so the
// composed result is independent of storage order. Invalid events are
// skipped with a warning — a single bad record must not abort the run.
func Resolve(events []Event, day int64, entityID int64, st *PopulationState, bounds EffectBounds) []Warning {
	var relevant []Event
	for _, ev := range events {
		if ev.EntityID != entityID {
			continue
		}
		if ev.Day == day || (ev.Sustained() && *ev.EndDay == day) {
			relevant = append(relevant, ev)
		}
	}
	if len(relevant) == 0 {
		return nil
	}

	sort.Slice(relevant, func(i, j int) bool {
		if relevant[i].Day != relevant[j].Day {
			return relevant[i].Day < relevant[j].Day
		}
		return relevant[i].ID < relevant[j].ID
	})

	var warnings []Warning
	for _, ev := range relevant {
		if err := ev.Effects.Validate(ev.ID); err != nil {
			warnings = append(warnings, Warning{
				Day:     day,
				Code:    WarnEventSkipped,
				Message: fmt.Sprintf("skipped %q: %v", ev.Title, err),
			})
			continue
		}
		if ev.Day == day {
			applyActivation(ev, st, bounds)
		}
		if ev.Sustained() && *ev.EndDay == day {
			revertExpiry(ev, st, bounds)
		}
	}
	return warnings
}

// applyActivation applies all effects that fire at the event's start day.
func applyActivation(ev Event, st *PopulationState, bounds EffectBounds) {
	if m := ev.Effects.ShockMultiplier; m != nil {
		for species := range st.BySpecies {
			st.BySpecies[species] *= *m
		}
		st.recomputeTotal()
	}
	if d := ev.Effects.InfrastructureDamage; d != nil {
		st.InfrastructureFactor = clamp(st.InfrastructureFactor**d,
			bounds.InfrastructureMin, bounds.InfrastructureMax)
	}
	if b := ev.Effects.InfrastructureBoost; b != nil {
		st.InfrastructureFactor = clamp(st.InfrastructureFactor+*b,
			bounds.InfrastructureMin, bounds.InfrastructureMax)
	}
	if c := ev.Effects.EnvironmentalChange; c != nil {
		st.EnvironmentalFactor = clamp(st.EnvironmentalFactor+*c,
			bounds.EnvironmentalMin, bounds.EnvironmentalMax)
	}
}

// revertExpiry undoes the additive components of a sustained event at its
// end day. Shocks and damage are permanent: populations regrow and ruins
// get rebuilt through their own dynamics, not by reversal.
func revertExpiry(ev Event, st *PopulationState, bounds EffectBounds) {
	if b := ev.Effects.InfrastructureBoost; b != nil {
		st.InfrastructureFactor = clamp(st.InfrastructureFactor-*b,
			bounds.InfrastructureMin, bounds.InfrastructureMax)
	}
	if c := ev.Effects.EnvironmentalChange; c != nil {
		st.EnvironmentalFactor = clamp(st.EnvironmentalFactor-*c,
			bounds.EnvironmentalMin, bounds.EnvironmentalMax)
	}
}
