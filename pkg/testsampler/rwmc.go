// Package testsampler provides a reference single-chain sampler: random
// walk Metropolis-Hastings with a tunable, fixed Gaussian proposal step.
// Grounded on original_source/rexfw/samplers/rwmc.py's
// CompatibleRWMCSampler, which wraps csb's RWMCSampler — reimplemented
// here directly since no Go port of csb exists in the pack.
package testsampler

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/simeoncarstens/rexfw/pkg/density"
	"github.com/simeoncarstens/rexfw/pkg/state"
)

// RWMC is a random-walk Metropolis-Hastings sampler over a fixed
// density, proposing x' = x + N(0, stepsize^2) per coordinate.
type RWMC struct {
	Density  density.Density
	Rng      *rand.Rand
	Stepsize float64

	position []float64
	accepted bool
	nMoves   int
}

// NewRWMC constructs an RWMC sampler starting at x0.
func NewRWMC(d density.Density, rng *rand.Rand, stepsize float64, x0 []float64) *RWMC {
	return &RWMC{
		Density:  d,
		Rng:      rng,
		Stepsize: stepsize,
		position: append([]float64(nil), x0...),
	}
}

func (s *RWMC) Sample(ctx context.Context) (state.State, error) {
	current := s.position
	proposed := make([]float64, len(current))
	for i, x := range current {
		proposed[i] = x + distuv.Normal{Mu: 0, Sigma: s.Stepsize, Src: s.Rng}.Rand()
	}

	logRatio := s.Density.LogProb(proposed) - s.Density.LogProb(current)
	accept := logRatio >= 0 || math.Log(s.Rng.Float64()) < logRatio

	if accept {
		s.position = proposed
	}
	s.accepted = accept
	s.nMoves++

	return state.State{Position: append([]float64(nil), s.position...)}, nil
}

func (s *RWMC) LastDrawStats() map[string]state.Stats {
	stepsize := s.Stepsize
	return map[string]state.Stats{
		"x": {
			Accepted: s.accepted,
			Stepsize: &stepsize,
		},
	}
}
