package sim

import "math"

// roundTolerance is the allowed drift between the stored total and the sum
// of per-species counts before Check reports an inconsistency.
const roundTolerance = 1e-6

// PopulationState is the mutable demographic state of one entity during a
// run. Populations are tracked as float64 so that daily fractional growth
// accumulates without rounding drift; totals are rounded only for display.
//
// Total is always recomputed as the sum of BySpecies after a mutation,
// never tracked independently.
type PopulationState struct {
	Day                  int64              `json:"day"`
	Total                float64            `json:"total"`
	BySpecies            map[string]float64 `json:"by_species"`
	EnvironmentalFactor  float64            `json:"environmental_factor"`
	InfrastructureFactor float64            `json:"infrastructure_factor"`
	LocationFactor       float64            `json:"location_factor"`
}

// Clone returns a deep copy. The engine clones state at chunk boundaries so
// a failed chunk can be discarded without corrupting committed progress.
func (p *PopulationState) Clone() *PopulationState {
	c := *p
	c.BySpecies = make(map[string]float64, len(p.BySpecies))
	for s, n := range p.BySpecies {
		c.BySpecies[s] = n
	}
	return &c
}

// recomputeTotal re-derives Total from the species breakdown.
func (p *PopulationState) recomputeTotal() {
	var total float64
	for _, n := range p.BySpecies {
		total += n
	}
	p.Total = total
}

// Check verifies the internal invariants: non-negative populations and a
// total consistent with the species breakdown.
func (p *PopulationState) Check() []Warning {
	var ws []Warning
	if p.Total < 0 {
		ws = append(ws, Warning{Day: p.Day, Code: WarnNegativePopulation,
			Message: "total population below zero"})
	}
	var sum float64
	for s, n := range p.BySpecies {
		if n < 0 {
			ws = append(ws, Warning{Day: p.Day, Code: WarnNegativePopulation,
				Message: "species " + s + " below zero"})
		}
		sum += n
	}
	if math.Abs(sum-p.Total) > roundTolerance {
		ws = append(ws, Warning{Day: p.Day, Code: WarnNegativePopulation,
			Message: "species totals out of sync with population total"})
	}
	return ws
}

// EntityState binds one entity to its working population state for the
// duration of a run. Exactly one engine owns an EntityState at a time;
// mutation happens only through ApplyStep and ApplyEventEffects.
type EntityState struct {
	Entity Entity
	Pop    *PopulationState
}

// NewEntityState wraps an initial population state for an entity.
func NewEntityState(entity Entity, pop *PopulationState) *EntityState {
	return &EntityState{Entity: entity, Pop: pop}
}

// ApplyStep advances the population by one growth step of dt years ending
// at day. The effective carrying capacity is recomposed from the current
// factors on every step, so event-driven factor changes take hold
// immediately.
func (s *EntityState) ApplyStep(rates map[string]float64, kBase, dt float64, day int64) error {
	k, err := CarryingCapacity(kBase, s.Pop.EnvironmentalFactor, s.Pop.InfrastructureFactor, s.Pop.LocationFactor)
	if err != nil {
		return err
	}
	s.Pop.BySpecies = StepPopulations(s.Pop.BySpecies, rates, k, dt)
	s.Pop.recomputeTotal()
	s.Pop.Day = day
	return nil
}

// ApplyEventEffects runs the effect resolver against the events relevant
// to day and returns any per-event warnings (invalid events are skipped,
// not fatal).
func (s *EntityState) ApplyEventEffects(events []Event, day int64, bounds EffectBounds) []Warning {
	return Resolve(events, day, s.Entity.ID, s.Pop, bounds)
}

// Capacity returns the current effective carrying capacity, or 0 if the
// parameters are malformed (the step path reports that error properly).
func (s *EntityState) Capacity(kBase float64) float64 {
	k, err := CarryingCapacity(kBase, s.Pop.EnvironmentalFactor, s.Pop.InfrastructureFactor, s.Pop.LocationFactor)
	if err != nil {
		return 0
	}
	return k
}
