package statistics

import (
	"math"
	"testing"

	"github.com/simeoncarstens/rexfw/pkg/state"
)

func TestRunningAverageConstantInput(t *testing.T) {
	avg := NewMCMCAcceptanceRateAverage("replica1", "x")
	for i := 0; i < 50; i++ {
		avg.Update(i, state.Stats{Accepted: true})
	}
	if math.Abs(avg.CurrentValue()-1.0) > 1e-12 {
		t.Errorf("after 50 identical accept updates, average = %v, want 1.0", avg.CurrentValue())
	}

	avg2 := NewMCMCAcceptanceRateAverage("replica1", "x")
	for i := 0; i < 50; i++ {
		avg2.Update(i, state.Stats{Accepted: false})
	}
	if math.Abs(avg2.CurrentValue()) > 1e-12 {
		t.Errorf("after 50 identical reject updates, average = %v, want 0.0", avg2.CurrentValue())
	}
}

func TestRunningAverageConvergesToMean(t *testing.T) {
	avg := &runningAverage{}
	values := []float64{1, 0, 1, 1, 0, 1, 0, 0}
	for _, v := range values {
		avg.record(v)
	}
	want := 0.0
	for _, v := range values {
		want += v
	}
	want /= float64(len(values))
	if math.Abs(avg.value-want) > 1e-12 {
		t.Errorf("running average = %v, want %v", avg.value, want)
	}
}

func TestREAcceptanceRateAverage(t *testing.T) {
	avg := NewREAcceptanceRateAverage("replica1", "replica2")
	outcomes := []bool{true, true, false, true}
	for i, o := range outcomes {
		avg.Update(i, state.Stats{Accepted: o})
	}
	want := 3.0 / 4.0
	if math.Abs(avg.CurrentValue()-want) > 1e-12 {
		t.Errorf("RE acceptance average = %v, want %v", avg.CurrentValue(), want)
	}
}
