// Package swaplist implements the swap-list generator of §4.7: for a
// given swap step, the list of (replicaA, replicaB, exchange-params)
// triples the master attempts.
package swaplist

import "github.com/simeoncarstens/rexfw/pkg/proposer"

// ExchangeParams pairs the proposer names a ProposeRequest advertises
// with the kind-specific parameter record the replica's chosen proposer
// will consume (§3).
type ExchangeParams struct {
	ProposerNames  []string
	ProposerParams proposer.Params
}

// SwapDescriptor is the unit the master iterates over each swap step.
type SwapDescriptor struct {
	ReplicaA string
	ReplicaB string
	Params   ExchangeParams
}

// Generator produces the swap list for a given step. Implementations may
// be stateful (the standard generator toggles an internal flag each
// call); the master calls Generate from a single control goroutine, so
// no internal synchronization is required.
type Generator interface {
	Generate(step int) []SwapDescriptor
}

// StandardGenerator implements the default alternating nearest-neighbor
// scheme: (1,2),(3,4),... on even invocations, (2,3),(4,5),... on odd
// invocations, with two-replica systems always using the (1,2) pairing.
// Grounded on original_source/rexfw/slgenerators/__init__.py.
type StandardGenerator struct {
	ReplicaNames []string
	ParamsList   []ExchangeParams

	which int
}

// NewStandardGenerator constructs a StandardGenerator over the given
// replica roster and per-slot exchange parameter list. len(paramsList)
// should equal len(replicaNames) since the generator indexes into it the
// same way it indexes into the replica roster.
func NewStandardGenerator(replicaNames []string, paramsList []ExchangeParams) *StandardGenerator {
	return &StandardGenerator{ReplicaNames: replicaNames, ParamsList: paramsList}
}

func (g *StandardGenerator) Generate(step int) []SwapDescriptor {
	if len(g.ReplicaNames) == 2 {
		g.which = 0
	}

	var out []SwapDescriptor
	for i := g.which; i+1 < len(g.ReplicaNames) && i < len(g.ParamsList); i += 2 {
		out = append(out, SwapDescriptor{
			ReplicaA: g.ReplicaNames[i],
			ReplicaB: g.ReplicaNames[i+1],
			Params:   g.ParamsList[i],
		})
	}

	if g.which == 0 {
		g.which = 1
	} else {
		g.which = 0
	}

	return out
}
