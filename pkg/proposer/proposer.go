// Package proposer implements the swap-trajectory generators of §4.5:
// the plain replica-exchange proposer and the RENS family (momentum-
// augmented MD, Langevin, Andersen-thermostatted, and step-wise HMC).
package proposer

import (
	"context"
	"math/rand"

	"github.com/simeoncarstens/rexfw/pkg/density"
	"github.com/simeoncarstens/rexfw/pkg/state"
)

// Context is the view of a replica a Proposer needs: its density and
// current state, plus its private random stream (§5 — one stream per
// replica, seeded by rank).
type Context interface {
	Density() density.Density
	State() state.State
	Rand() *rand.Rand
}

// Proposer produces a swap trajectory for the local replica given the
// partner's buffered state and energy, and the exchange parameters the
// master supplied (§4.5).
type Proposer interface {
	Name() string
	Propose(ctx context.Context, local Context, partnerState state.State, partnerEnergy float64, params Params) (state.Trajectory, error)
}

// Params is the proposer-kind-specific exchange-parameter record
// attached to a ProposeRequest. Every kind must support Reverse, which
// toggles its schedule's direction in place so the master can reuse one
// record for the forward and backward legs of a swap (§3).
type Params interface {
	Reverse()
	ProposerNames() []string
}
