// Package state defines the replica state and swap-trajectory value
// types shared by the message, proposer, density and replica packages.
// It is deliberately dependency-free so that it can sit at the bottom of
// the import graph without creating cycles between message and replica.
package state

// State is a replica's position, plus momentum for momentum-augmented
// proposer variants (nil otherwise).
type State struct {
	Position []float64
	Momentum []float64
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{Position: append([]float64(nil), s.Position...)}
	if s.Momentum != nil {
		out.Momentum = append([]float64(nil), s.Momentum...)
	}
	return out
}

// Trajectory is the result of a proposer run: the state pair it
// interpolated between, plus the accumulated work and heat (§3).
type Trajectory struct {
	Initial State
	Final   State
	Work    float64
	Heat    float64
}

// Stats is a single-chain sampler's report on its most recent draw.
// Accepted and Stepsize are the two universally tracked fields (§4.3);
// Extra carries proposer/sampler-kind-specific additions.
type Stats struct {
	Accepted bool
	Stepsize *float64
	Extra    map[string]float64
}

// StepStats pairs a sampling step with the Stats produced at that step,
// the unit a replica batches locally before shipping to the master on
// SendStatsRequest (§4.8).
type StepStats struct {
	Step  int
	Stats map[string]Stats
}
