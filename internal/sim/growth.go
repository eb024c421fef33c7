// Population dynamics formulas: discrete logistic growth and carrying
// capacity composition. Pure functions, no state, no randomness — every
// guarantee about determinism and resumability rests on that.
package sim

// CarryingCapacity composes the effective capacity
//
//	K_t = K_base × environmental × infrastructure × location
//
// It returns an InvalidParameterError for a non-positive base capacity or
// any negative factor.
func CarryingCapacity(kBase, environmental, infrastructure, location float64) (float64, error) {
	if kBase <= 0 {
		return 0, &InvalidParameterError{Name: "k_base", Value: kBase}
	}
	if environmental < 0 {
		return 0, &InvalidParameterError{Name: "environmental_factor", Value: environmental}
	}
	if infrastructure < 0 {
		return 0, &InvalidParameterError{Name: "infrastructure_factor", Value: infrastructure}
	}
	if location < 0 {
		return 0, &InvalidParameterError{Name: "location_factor", Value: location}
	}
	return kBase * environmental * infrastructure * location, nil
}

// StepGrowth advances a single population by one discrete logistic step:
//
//	N(t+dt) = N + r·N·(1 − N/K)·dt
//
// dt is the step size as a fraction of a year (daily stepping uses
// 1/365.25). Properties: N = K is an equilibrium, N > K contracts, N = 0
// stays 0, K ≤ 0 collapses to 0, and the result never goes negative.
// Negative r models decline and is permitted.
func StepGrowth(n, r, k, dt float64) float64 {
	if k <= 0 {
		return 0
	}
	if n <= 0 {
		return 0
	}
	dN := r * n * (1 - n/k) * dt
	next := n + dN
	if next < 0 {
		return 0
	}
	return next
}

// StepPopulations advances every species against a shared carrying
// capacity. Each species grows with its own rate r_s, but the density term
// uses the combined total so all species compete for the same capacity:
//
//	dN_s = r_s · N_s · (1 − N_total/K) · dt
//
// Species without a configured rate are held constant. The returned map is
// a fresh allocation; inputs are not mutated.
func StepPopulations(populations map[string]float64, rates map[string]float64, k, dt float64) map[string]float64 {
	next := make(map[string]float64, len(populations))

	if k <= 0 {
		for species := range populations {
			next[species] = 0
		}
		return next
	}

	var total float64
	for _, n := range populations {
		total += n
	}

	density := 1 - total/k
	for species, n := range populations {
		r := rates[species]
		if r == 0 || n <= 0 {
			next[species] = n
			if n < 0 {
				next[species] = 0
			}
			continue
		}
		grown := n + r*n*density*dt
		if grown < 0 {
			grown = 0
		}
		next[species] = grown
	}
	return next
}
