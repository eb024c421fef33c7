// Environmental drift: slow, seeded variation of the environmental factor
// over lore time. Simplex noise rather than an RNG stream on purpose — the
// sample is a pure function of (seed, day), so resuming a run mid-timeline
// needs no random-state bookkeeping to stay bit-identical.
package sim

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/halcyard/chronicle/internal/temporal"
)

// driftFrequency stretches the noise so one full feature spans roughly a
// few decades of lore time.
const driftFrequency = 0.05

// Drift samples deterministic environmental variation for a seeded run.
type Drift struct {
	noise     opensimplex.Noise
	amplitude float64
}

// NewDrift creates a drift source. A zero or negative amplitude returns
// nil, which disables drift entirely.
func NewDrift(seed int64, amplitude float64) *Drift {
	if amplitude <= 0 {
		return nil
	}
	return &Drift{
		noise:     opensimplex.NewNormalized(seed),
		amplitude: amplitude,
	}
}

// Sample returns the environmental delta for the given astro-day, in
// [-amplitude, +amplitude]. Safe to call on a nil Drift (always 0).
func (d *Drift) Sample(day int64) float64 {
	if d == nil {
		return 0
	}
	t := float64(day) / temporal.DaysPerYear * driftFrequency
	// NewNormalized yields [0, 1]; recenter to [-1, 1] before scaling.
	return (d.noise.Eval2(t, 0)*2 - 1) * d.amplitude
}
