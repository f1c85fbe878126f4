// Package sampler defines the contract single-chain samplers must
// satisfy to be hosted inside a replica (§4.3).
package sampler

import (
	"context"

	"github.com/simeoncarstens/rexfw/pkg/state"
)

// Sampler draws successive states from a density, mutating its own
// internal position between calls.
type Sampler interface {
	// Sample draws one new state, mutating the sampler's internal
	// position, and returns it.
	Sample(ctx context.Context) (state.State, error)

	// LastDrawStats returns the stats produced by the most recent
	// Sample call, keyed by sampling variable name.
	LastDrawStats() map[string]state.Stats
}
