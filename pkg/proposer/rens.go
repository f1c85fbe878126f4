package proposer

import (
	"context"
	"fmt"
	"math"

	"github.com/simeoncarstens/rexfw/pkg/density"
	"github.com/simeoncarstens/rexfw/pkg/state"
	"gonum.org/v1/gonum/floats"
)

// hamiltonian returns E(x) + 1/2 <p,p> under the interpolated density at
// progress step t (§4.5: H = E + 0.5<p,p>, E = -log_prob(position)).
func hamiltonian(interp density.Interpolated, x, p []float64, t int) (float64, error) {
	logProb, err := interp.Evaluate(x, t)
	if err != nil {
		return 0, err
	}
	return -logProb + 0.5*floats.Dot(p, p), nil
}

// augmentMomentum draws a fresh Gaussian momentum vector of matching
// shape, the augmentation every MD/HMC trajectory applies before running
// (§4.5); the plain RE proposer never calls this.
func augmentMomentum(ctx Context, dim int) []float64 {
	p := make([]float64, dim)
	r := ctx.Rand()
	for i := range p {
		p[i] = r.NormFloat64()
	}
	return p
}

func leapfrogStep(interp density.Interpolated, x, p []float64, t int, dt float64) ([]float64, []float64, error) {
	g, err := interp.GradientAt(x, t)
	if err != nil {
		return nil, nil, err
	}
	// half-kick
	pHalf := make([]float64, len(p))
	for i := range p {
		pHalf[i] = p[i] + 0.5*dt*g[i]
	}
	// drift
	xNew := make([]float64, len(x))
	for i := range x {
		xNew[i] = x[i] + dt*pHalf[i]
	}
	gNew, err := interp.GradientAt(xNew, t)
	if err != nil {
		return nil, nil, err
	}
	// half-kick
	pNew := make([]float64, len(p))
	for i := range p {
		pNew[i] = pHalf[i] + 0.5*dt*gNew[i]
	}
	return xNew, pNew, nil
}

// asRENSParams extracts the shared RENSParams fields from whichever
// concrete Params variant the master attached, failing hard rather than
// silently defaulting if the wrong kind arrives for this proposer.
func asRENSParams(p Params) (*RENSParams, error) {
	switch v := p.(type) {
	case *RENSParams:
		return v, nil
	case *LMDRENSParams:
		return &v.RENSParams, nil
	case *AMDRENSParams:
		return &v.RENSParams, nil
	case *HMCStepRENSParams:
		return &v.RENSParams, nil
	default:
		return nil, fmt.Errorf("proposer: %T is not a RENS parameter set", p)
	}
}

func interpolatedFrom(local Context, rp *RENSParams) density.Interpolated {
	return density.Interpolated{Base: local.Density(), Sched: rp.Schedule, NSteps: rp.NSteps}
}

// MicrocanonicalMDProposer runs a symplectic leapfrog integration across
// the interpolated Hamiltonian; no thermostat, so heat is always zero.
// Grounded on MicrocanonicalMDRENSProposer.
type MicrocanonicalMDProposer struct {
	Timestep float64
}

func (p *MicrocanonicalMDProposer) Name() string { return "md-rens" }

func (p *MicrocanonicalMDProposer) Propose(_ context.Context, local Context, partnerState state.State, partnerEnergy float64, params Params) (state.Trajectory, error) {
	rp, err := asRENSParams(params)
	if err != nil {
		return state.Trajectory{}, err
	}
	interp := interpolatedFrom(local, rp)

	x := append([]float64(nil), partnerState.Position...)
	initMomentum := augmentMomentum(local, len(x))
	pMom := append([]float64(nil), initMomentum...)

	for t := 0; t < rp.NSteps; t++ {
		x, pMom, err = leapfrogStep(interp, x, pMom, t, p.Timestep)
		if err != nil {
			return state.Trajectory{}, err
		}
	}

	hFinal, err := hamiltonian(interp, x, pMom, rp.NSteps)
	if err != nil {
		return state.Trajectory{}, err
	}

	// H_remote_initial = -log_prob(partnerState) under the partner's own
	// (uninterpolated, t=0) parameters — i.e. partnerEnergy as reported —
	// plus the kinetic term of the momentum just augmented onto it.
	hRemoteInitial := partnerEnergy + 0.5*floats.Dot(initMomentum, initMomentum)
	work := hFinal - hRemoteInitial

	return state.Trajectory{
		Initial: partnerState,
		Final:   state.State{Position: x, Momentum: pMom},
		Work:    work,
		Heat:    0,
	}, nil
}

// LMDRENSProposer integrates an underdamped Langevin trajectory across
// the interpolated Hamiltonian: each intermediate step applies a
// full-timestep Ornstein-Uhlenbeck momentum update (O) followed by one
// full leapfrog step; heat accumulates from the friction/noise (O) step.
// Grounded on LMDRENSProposer.
type LMDRENSProposer struct{}

func (p *LMDRENSProposer) Name() string { return "lmd-rens" }

func (p *LMDRENSProposer) Propose(_ context.Context, local Context, partnerState state.State, partnerEnergy float64, params Params) (state.Trajectory, error) {
	lp, ok := params.(*LMDRENSParams)
	if !ok {
		return state.Trajectory{}, fmt.Errorf("proposer: lmd-rens requires *LMDRENSParams, got %T", params)
	}
	rp := &lp.RENSParams
	interp := interpolatedFrom(local, rp)

	x := append([]float64(nil), partnerState.Position...)
	pMom := augmentMomentum(local, len(x))
	hInit, err := hamiltonian(interp, x, pMom, 0)
	if err != nil {
		return state.Trajectory{}, err
	}

	heat := 0.0
	c1 := math.Exp(-lp.Gamma * lp.Timestep)
	c2 := math.Sqrt(1 - c1*c1)
	r := local.Rand()

	for t := 0; t < rp.NSteps; t++ {
		// O: Ornstein-Uhlenbeck friction/noise step over one timestep,
		// the source of heat exchanged with the implicit thermostat.
		keBefore := 0.5 * floats.Dot(pMom, pMom)
		for i := range pMom {
			pMom[i] = c1*pMom[i] + c2*r.NormFloat64()
		}
		keAfter := 0.5 * floats.Dot(pMom, pMom)
		heat += keAfter - keBefore

		// One full symplectic leapfrog step (half kick, drift, half
		// kick) under the Hamiltonian at the current intermediate step.
		x, pMom, err = leapfrogStep(interp, x, pMom, t, lp.Timestep)
		if err != nil {
			return state.Trajectory{}, err
		}
	}

	hFinal, err := hamiltonian(interp, x, pMom, rp.NSteps)
	if err != nil {
		return state.Trajectory{}, err
	}
	work := hFinal - hInit - heat

	return state.Trajectory{
		Initial: partnerState,
		Final:   state.State{Position: x, Momentum: pMom},
		Work:    work,
		Heat:    heat,
	}, nil
}

// AMDRENSProposer integrates microcanonical MD with periodic full
// momentum resampling ("collisions"); heat accumulates at each collision
// event as the kinetic-energy jump it causes. Grounded on
// AMDRENSProposer.
type AMDRENSProposer struct{}

func (p *AMDRENSProposer) Name() string { return "amd-rens" }

func (p *AMDRENSProposer) Propose(_ context.Context, local Context, partnerState state.State, partnerEnergy float64, params Params) (state.Trajectory, error) {
	ap, ok := params.(*AMDRENSParams)
	if !ok {
		return state.Trajectory{}, fmt.Errorf("proposer: amd-rens requires *AMDRENSParams, got %T", params)
	}
	rp := &ap.RENSParams
	interp := interpolatedFrom(local, rp)

	x := append([]float64(nil), partnerState.Position...)
	pMom := augmentMomentum(local, len(x))
	hInit, err := hamiltonian(interp, x, pMom, 0)
	if err != nil {
		return state.Trajectory{}, err
	}

	heat := 0.0
	r := local.Rand()

	for t := 0; t < rp.NSteps; t++ {
		if r.Float64() < ap.CollisionProbability {
			keBefore := 0.5 * floats.Dot(pMom, pMom)
			pMom = augmentMomentum(local, len(x))
			keAfter := 0.5 * floats.Dot(pMom, pMom)
			heat += keAfter - keBefore
		}

		x, pMom, err = leapfrogStep(interp, x, pMom, t, ap.Timestep)
		if err != nil {
			return state.Trajectory{}, err
		}
	}

	hFinal, err := hamiltonian(interp, x, pMom, rp.NSteps)
	if err != nil {
		return state.Trajectory{}, err
	}
	work := hFinal - hInit - heat

	return state.Trajectory{
		Initial: partnerState,
		Final:   state.State{Position: x, Momentum: pMom},
		Work:    work,
		Heat:    heat,
	}, nil
}
