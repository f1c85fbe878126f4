// Package density defines the probability-density contract samplers and
// proposers evaluate against, and the pure interpolating-density view
// used by the RENS proposer family.
package density

import "fmt"

// Density is the contract every target distribution satisfies (§4.4).
type Density interface {
	// LogProb returns log p(x) up to an additive constant.
	LogProb(x []float64) float64

	// Parameter returns the named parameter's current value.
	Parameter(name string) (value []float64, ok bool)

	// WithParameter returns a copy of the density with name set to
	// value, leaving the receiver untouched. This is the "pure
	// evaluate(x, theta)" construction the design notes prefer over a
	// scoped mutate-then-restore handle: interpolation never shares
	// mutable state, so there is nothing to restore.
	WithParameter(name string, value []float64) (Density, error)
}

// Gradient is implemented by densities that support MD/HMC proposers.
// Proposers type-assert for it rather than requiring it on Density
// universally, since plain RE and RWMH never need it.
type Gradient interface {
	Gradient(x []float64) []float64
}

// Schedule maps a parameter name to its (value at t=0, value at t=1)
// endpoints, the parameter-schedule half of an ExchangeParams (§3).
type Schedule map[string][2][]float64

// Interpolated is a pure view over a base density: Evaluate/GradientAt
// compute the linearly-interpolated parameter vector for progress step t
// out of nSteps, evaluate the base density under it, and return — the
// base density itself is never mutated (§4.5, §9).
type Interpolated struct {
	Base   Density
	Sched  Schedule
	NSteps int
}

func (in Interpolated) paramsAt(t int) (Density, error) {
	l := float64(t) / float64(in.NSteps)
	d := in.Base
	for name, endpoints := range in.Sched {
		theta0, theta1 := endpoints[0], endpoints[1]
		if len(theta0) != len(theta1) {
			return nil, fmt.Errorf("density: schedule for %q has mismatched endpoint lengths %d/%d", name, len(theta0), len(theta1))
		}
		v := make([]float64, len(theta0))
		for i := range v {
			v[i] = (1-l)*theta0[i] + l*theta1[i]
		}
		var err error
		d, err = d.WithParameter(name, v)
		if err != nil {
			return nil, fmt.Errorf("density: interpolating parameter %q: %w", name, err)
		}
	}
	return d, nil
}

// Evaluate returns log p(x) under the interpolated parameters at
// progress step t.
func (in Interpolated) Evaluate(x []float64, t int) (float64, error) {
	d, err := in.paramsAt(t)
	if err != nil {
		return 0, err
	}
	return d.LogProb(x), nil
}

// GradientAt returns the gradient of log p(x) under the interpolated
// parameters at progress step t. Base must implement Gradient.
func (in Interpolated) GradientAt(x []float64, t int) ([]float64, error) {
	d, err := in.paramsAt(t)
	if err != nil {
		return nil, err
	}
	g, ok := d.(Gradient)
	if !ok {
		return nil, fmt.Errorf("density: %T does not implement Gradient", in.Base)
	}
	return g.Gradient(x), nil
}

// Energy computes -log p(position), the universal state->energy mapping
// used throughout the replica and proposer packages (§4.6).
func Energy(d Density, position []float64) float64 {
	return -d.LogProb(position)
}
