package proposer

import (
	"context"

	"github.com/simeoncarstens/rexfw/pkg/density"
	"github.com/simeoncarstens/rexfw/pkg/state"
)

// REProposer is the classical Metropolis-coupled replica-exchange
// proposer: no switching trajectory, no momentum augmentation. Grounded
// on original_source/rexfw/proposers/re.py.
type REProposer struct{}

func NewRE() *REProposer { return &REProposer{} }

func (p *REProposer) Name() string { return "re" }

func (p *REProposer) Propose(_ context.Context, local Context, partnerState state.State, partnerEnergy float64, _ Params) (state.Trajectory, error) {
	work := density.Energy(local.Density(), partnerState.Position) - partnerEnergy
	return state.Trajectory{
		Initial: partnerState,
		Final:   partnerState,
		Work:    work,
		Heat:    0,
	}, nil
}
