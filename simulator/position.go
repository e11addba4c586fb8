package simulator

import (
	"math/rand"

	"github.com/kilianp07/bussim/core/model"
)

// startPosition offsets the base coordinates by independent U[0,1) draws so
// that buses start clustered but distinct.
func startPosition(rng *rand.Rand, baseLat, baseLon float64) model.Location {
	return model.Location{
		Latitude:  baseLat + rng.Float64(),
		Longitude: baseLon + rng.Float64(),
	}
}

// move perturbs each axis independently by a uniform draw in [-jitter, jitter].
func move(rng *rand.Rand, loc model.Location, jitter float64) model.Location {
	return model.Location{
		Latitude:  loc.Latitude + uniform(rng, jitter),
		Longitude: loc.Longitude + uniform(rng, jitter),
	}
}

func uniform(rng *rand.Rand, bound float64) float64 {
	if bound == 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * bound
}
