package density

import (
	"math"
	"testing"
)

type fixedDensity struct {
	mu    []float64
	sigma []float64
}

func (d fixedDensity) LogProb(x []float64) float64 {
	var lp float64
	for i, xi := range x {
		diff := xi - d.mu[i]
		lp += -0.5 * diff * diff / (d.sigma[i] * d.sigma[i])
	}
	return lp
}

func (d fixedDensity) Parameter(name string) ([]float64, bool) {
	switch name {
	case "mu":
		return d.mu, true
	case "sigma":
		return d.sigma, true
	default:
		return nil, false
	}
}

func (d fixedDensity) WithParameter(name string, value []float64) (Density, error) {
	out := fixedDensity{mu: append([]float64(nil), d.mu...), sigma: append([]float64(nil), d.sigma...)}
	switch name {
	case "mu":
		out.mu = append([]float64(nil), value...)
	case "sigma":
		out.sigma = append([]float64(nil), value...)
	}
	return out, nil
}

// TestInterpolatedDoesNotMutateBase pins down the "pure evaluate(x,
// theta)" contract: evaluating an Interpolated view at any progress
// step must leave the base density's own parameters untouched.
func TestInterpolatedDoesNotMutateBase(t *testing.T) {
	base := fixedDensity{mu: []float64{0}, sigma: []float64{1}}
	interp := Interpolated{
		Base:   base,
		Sched:  Schedule{"mu": [2][]float64{{0}, {5}}},
		NSteps: 10,
	}

	for t2 := 0; t2 <= 10; t2++ {
		if _, err := interp.Evaluate([]float64{1.0}, t2); err != nil {
			t.Fatalf("Evaluate(t=%d): %v", t2, err)
		}
	}

	mu, _ := base.Parameter("mu")
	if mu[0] != 0 {
		t.Errorf("base density mu mutated to %v after interpolated evaluation, want 0", mu[0])
	}
}

func TestInterpolatedEndpoints(t *testing.T) {
	base := fixedDensity{mu: []float64{0}, sigma: []float64{1}}
	interp := Interpolated{
		Base:   base,
		Sched:  Schedule{"mu": [2][]float64{{0}, {10}}},
		NSteps: 4,
	}

	at0, err := interp.paramsAt(0)
	if err != nil {
		t.Fatalf("paramsAt(0): %v", err)
	}
	mu0, _ := at0.Parameter("mu")
	if mu0[0] != 0 {
		t.Errorf("paramsAt(0) mu = %v, want 0", mu0[0])
	}

	at4, err := interp.paramsAt(4)
	if err != nil {
		t.Fatalf("paramsAt(4): %v", err)
	}
	mu4, _ := at4.Parameter("mu")
	if mu4[0] != 10 {
		t.Errorf("paramsAt(nSteps) mu = %v, want 10", mu4[0])
	}

	at2, err := interp.paramsAt(2)
	if err != nil {
		t.Fatalf("paramsAt(2): %v", err)
	}
	mu2, _ := at2.Parameter("mu")
	if math.Abs(mu2[0]-5) > 1e-12 {
		t.Errorf("paramsAt(nSteps/2) mu = %v, want 5", mu2[0])
	}
}

func TestEnergyIsNegativeLogProb(t *testing.T) {
	d := fixedDensity{mu: []float64{0}, sigma: []float64{1}}
	x := []float64{2.0}
	got := Energy(d, x)
	want := -d.LogProb(x)
	if got != want {
		t.Errorf("Energy = %v, want %v", got, want)
	}
}
