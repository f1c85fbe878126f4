package proposer

import (
	"context"
	"fmt"
	"math"

	"github.com/simeoncarstens/rexfw/pkg/state"
)

// HMCStepRENSProposer runs the step-wise non-equilibrium protocol: at
// each of NSteps intermediate steps, a perturbation moves the
// Hamiltonian from step t to t+1 at fixed (x, p) and contributes the
// resulting energy difference to work; a propagation then runs
// NHMCIterations Metropolis-HMC moves of HMCTrajLength leapfrog
// sub-steps under the new Hamiltonian, with rejected moves contributing
// their Hamiltonian mismatch (H_new - H_old) to heat. Grounded on
// AbstractStepRENSProposer / HMCStepRENSProposer.
type HMCStepRENSProposer struct{}

func (p *HMCStepRENSProposer) Name() string { return "hmc-step-rens" }

func (p *HMCStepRENSProposer) Propose(_ context.Context, local Context, partnerState state.State, partnerEnergy float64, params Params) (state.Trajectory, error) {
	hp, ok := params.(*HMCStepRENSParams)
	if !ok {
		return state.Trajectory{}, fmt.Errorf("proposer: hmc-step-rens requires *HMCStepRENSParams, got %T", params)
	}
	rp := &hp.RENSParams
	interp := interpolatedFrom(local, rp)
	r := local.Rand()

	x := append([]float64(nil), partnerState.Position...)
	initMomentum := augmentMomentum(local, len(x))
	pMom := append([]float64(nil), initMomentum...)

	work := 0.0
	heat := 0.0

	for t := 0; t < rp.NSteps; t++ {
		// Perturbation: Hamiltonian swap at fixed (x, p) between the
		// interpolated density at t and at t+1.
		hBefore, err := hamiltonian(interp, x, pMom, t)
		if err != nil {
			return state.Trajectory{}, err
		}
		hAfter, err := hamiltonian(interp, x, pMom, t+1)
		if err != nil {
			return state.Trajectory{}, err
		}
		work += hAfter - hBefore

		// Propagation: NHMCIterations HMC moves of HMCTrajLength
		// leapfrog sub-steps each, under the Hamiltonian at t+1.
		for i := 0; i < hp.NHMCIterations; i++ {
			newX, newP, err := runHMCMove(interp, x, pMom, t+1, hp.Timestep, hp.HMCTrajLength)
			if err != nil {
				return state.Trajectory{}, err
			}

			hOld, err := hamiltonian(interp, x, pMom, t+1)
			if err != nil {
				return state.Trajectory{}, err
			}
			hNew, err := hamiltonian(interp, newX, newP, t+1)
			if err != nil {
				return state.Trajectory{}, err
			}

			accept := hNew <= hOld || r.Float64() < math.Exp(-(hNew-hOld))
			if accept {
				x, pMom = newX, newP
			} else {
				// A rejected HMC move leaves (x, p) unchanged but the
				// attempted move's energy mismatch is heat deposited
				// into the implicit momentum thermostat. Every move is a
				// leapfrog trajectory; runHMCMove returns an error when
				// the density has no gradient.
				heat += hNew - hOld
			}
		}
	}

	return state.Trajectory{
		Initial: partnerState,
		Final:   state.State{Position: x, Momentum: pMom},
		Work:    work,
		Heat:    heat,
	}, nil
}

func runHMCMove(interp interface {
	GradientAt(x []float64, t int) ([]float64, error)
}, x, p []float64, t int, dt float64, nSteps int) ([]float64, []float64, error) {
	newX := append([]float64(nil), x...)
	newP := append([]float64(nil), p...)

	for i := 0; i < nSteps; i++ {
		g, err := interp.GradientAt(newX, t)
		if err != nil {
			return nil, nil, err
		}
		for j := range newP {
			newP[j] += 0.5 * dt * g[j]
		}
		for j := range newX {
			newX[j] += dt * newP[j]
		}
		g, err = interp.GradientAt(newX, t)
		if err != nil {
			return nil, nil, err
		}
		for j := range newP {
			newP[j] += 0.5 * dt * g[j]
		}
	}
	return newX, newP, nil
}
