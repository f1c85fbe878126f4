package proposer

import "github.com/simeoncarstens/rexfw/pkg/density"

// REParams is the exchange-parameter record for the plain RE proposer.
// Reversing it is a no-op: plain RE has no directional schedule,
// grounded on original_source/rexfw/proposers/params.py's
// REProposerParams.
type REParams struct {
	Names []string
}

func (p *REParams) Reverse()                 {}
func (p *REParams) ProposerNames() []string { return p.Names }

// RENSParams is the shared exchange-parameter record for every RENS
// variant: a parameter schedule plus the proposer names the request
// advertises. Reverse swaps each schedule endpoint pair in place,
// grounded on AbstractRENSProposerParams.reverse().
type RENSParams struct {
	Names    []string
	Schedule density.Schedule
	NSteps   int
}

func (p *RENSParams) Reverse() {
	for name, endpoints := range p.Schedule {
		p.Schedule[name] = [2][]float64{endpoints[1], endpoints[0]}
	}
}

func (p *RENSParams) ProposerNames() []string { return p.Names }

// LMDRENSParams is RENSParams plus Langevin-integrator settings,
// grounded on LMDRENSProposerParams.
type LMDRENSParams struct {
	RENSParams
	Timestep float64
	Gamma    float64
}

// AMDRENSParams is RENSParams plus Andersen-thermostat settings,
// grounded on AMDRENSProposerParams.
type AMDRENSParams struct {
	RENSParams
	Timestep             float64
	CollisionProbability float64
}

// HMCStepRENSParams is RENSParams plus the step-wise HMC RENS settings.
// HMCTrajLength is the number of leapfrog sub-steps per HMC move;
// NHMCIterations is the number of HMC moves run per intermediate step —
// this binding is the one the spec's design notes pin down after the
// original swapped the two (§9).
type HMCStepRENSParams struct {
	RENSParams
	Timestep       float64
	HMCTrajLength  int
	NHMCIterations int
}
