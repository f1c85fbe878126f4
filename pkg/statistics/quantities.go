// Package statistics implements the pluggable sampling- and
// swap-statistics engine of §4.9: a flat list of quantities, each
// deciding independently whether a given update applies to it, written
// out through pluggable writers.
package statistics

import "github.com/simeoncarstens/rexfw/pkg/state"

// LoggedQuantity is one tracked value — an acceptance-rate running
// average, a raw stepsize/work/heat sample series — filterable by the
// replica(s) it originates from and the sampling variable it tracks.
type LoggedQuantity interface {
	// Origins is the replica name (MCMC quantities) or the two replica
	// names of a pair (RE quantities) this quantity was computed from.
	Origins() []string

	// Name identifies the quantity class, e.g. "acceptance rate".
	Name() string

	// VariableName is the sampling variable this quantity is scoped to,
	// or "" if it is not variable-scoped (e.g. RE acceptance rate).
	VariableName() string

	// CurrentValue is the most recently computed/appended value.
	CurrentValue() float64

	// Update folds in a new observation for the given step.
	Update(step int, stats state.Stats)
}

// runningAverage implements the incremental update v' = v*n/(n+1) +
// x/(n+1); n'=n+1, with the first contribution initialising directly.
// Embedded by MCMCAcceptanceRateAverage and REAcceptanceRateAverage.
// Grounded on original_source/rexfw/statistics/averages.py's
// AbstractAverage.
type runningAverage struct {
	n     int
	value float64
}

func (a *runningAverage) record(x float64) {
	if a.n == 0 {
		a.value = x
		a.n = 1
		return
	}
	a.value = a.value*float64(a.n)/float64(a.n+1) + x/float64(a.n+1)
	a.n++
}

// MCMCAcceptanceRateAverage tracks one sampling variable's acceptance
// rate for one replica.
type MCMCAcceptanceRateAverage struct {
	runningAverage
	replica  string
	variable string
}

func NewMCMCAcceptanceRateAverage(replica, variable string) *MCMCAcceptanceRateAverage {
	return &MCMCAcceptanceRateAverage{replica: replica, variable: variable}
}

func (q *MCMCAcceptanceRateAverage) Origins() []string    { return []string{q.replica} }
func (q *MCMCAcceptanceRateAverage) Name() string         { return "acceptance rate" }
func (q *MCMCAcceptanceRateAverage) VariableName() string { return q.variable }
func (q *MCMCAcceptanceRateAverage) CurrentValue() float64 { return q.value }
func (q *MCMCAcceptanceRateAverage) Update(step int, stats state.Stats) {
	if stats.Accepted {
		q.record(1)
	} else {
		q.record(0)
	}
}

// MCMCStepsize tracks the most recent step size a sampler reported for
// one variable on one replica. It does not average: the current step
// size, not a running mean of past ones, is what a console/file report
// wants.
type MCMCStepsize struct {
	replica  string
	variable string
	value    float64
	known    bool
}

func NewMCMCStepsize(replica, variable string) *MCMCStepsize {
	return &MCMCStepsize{replica: replica, variable: variable}
}

func (q *MCMCStepsize) Origins() []string    { return []string{q.replica} }
func (q *MCMCStepsize) Name() string         { return "stepsize" }
func (q *MCMCStepsize) VariableName() string { return q.variable }
func (q *MCMCStepsize) CurrentValue() float64 {
	if !q.known {
		return 0
	}
	return q.value
}
func (q *MCMCStepsize) Known() bool { return q.known }
func (q *MCMCStepsize) Update(step int, stats state.Stats) {
	if stats.Stepsize == nil {
		return
	}
	q.value = *stats.Stepsize
	q.known = true
}

// REAcceptanceRateAverage tracks one replica pair's swap acceptance
// rate.
type REAcceptanceRateAverage struct {
	runningAverage
	replicaA, replicaB string
}

func NewREAcceptanceRateAverage(replicaA, replicaB string) *REAcceptanceRateAverage {
	return &REAcceptanceRateAverage{replicaA: replicaA, replicaB: replicaB}
}

func (q *REAcceptanceRateAverage) Origins() []string     { return []string{q.replicaA, q.replicaB} }
func (q *REAcceptanceRateAverage) Name() string          { return "acceptance rate" }
func (q *REAcceptanceRateAverage) VariableName() string  { return "" }
func (q *REAcceptanceRateAverage) CurrentValue() float64 { return q.value }
func (q *REAcceptanceRateAverage) Update(step int, stats state.Stats) {
	if stats.Accepted {
		q.record(1)
	} else {
		q.record(0)
	}
}

// rawSample is a LoggedQuantity that appends rather than averages —
// used for per-swap works and heats (§4.9 "per-pair works/heats").
type rawSample struct {
	name               string
	replicaA, replicaB string
	values             []float64
}

func (q *rawSample) Origins() []string     { return []string{q.replicaA, q.replicaB} }
func (q *rawSample) Name() string          { return q.name }
func (q *rawSample) VariableName() string  { return "" }
func (q *rawSample) CurrentValue() float64 {
	if len(q.values) == 0 {
		return 0
	}
	return q.values[len(q.values)-1]
}
func (q *rawSample) Update(step int, stats state.Stats) {
	if v, ok := stats.Extra["value"]; ok {
		q.values = append(q.values, v)
	}
}
func (q *rawSample) append(v float64) { q.values = append(q.values, v) }
func (q *rawSample) Values() []float64 { return q.values }
