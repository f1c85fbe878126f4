package statistics

import (
	"github.com/simeoncarstens/rexfw/pkg/state"
)

// Writer renders a snapshot of elements for a given step — to the
// console, to a TSV file, to a Prometheus registry.
type Writer interface {
	Write(step int, elements []LoggedQuantity)
}

// Statistics is the per-replica sampling-statistics engine: a flat list
// of quantities (acceptance-rate averages, stepsizes), each matched
// against incoming updates by its own Origins, fed by the master's
// statistics-update phase (§4.8) and flushed by its status phase.
type Statistics struct {
	elements []LoggedQuantity
	writers  []Writer
}

// NewStatistics constructs a Statistics engine over elements, rendered
// by writers on every WriteLast call.
func NewStatistics(elements []LoggedQuantity, writers []Writer) *Statistics {
	return &Statistics{elements: elements, writers: writers}
}

// Select returns the elements for which pred holds, in registration
// order.
func (s *Statistics) Select(pred func(LoggedQuantity) bool) []LoggedQuantity {
	var out []LoggedQuantity
	for _, e := range s.elements {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// Update feeds one replica's batched stats for one step into every
// quantity whose Origins match origins.
func (s *Statistics) Update(origins []string, step int, stats map[string]state.Stats) {
	if len(origins) != 1 {
		return
	}
	replica := origins[0]
	for _, e := range s.elements {
		eo := e.Origins()
		if len(eo) != 1 || eo[0] != replica {
			continue
		}
		v, ok := stats[e.VariableName()]
		if !ok {
			continue
		}
		e.Update(step, v)
	}
}

// WriteLast renders the current value of every quantity through every
// configured writer.
func (s *Statistics) WriteLast(step int) {
	for _, w := range s.writers {
		w.Write(step, s.elements)
	}
}

// REStatistics is the swap-pair statistics engine: one acceptance-rate
// average plus a works and a heats raw-sample series per pair, updated
// directly from the master's executeSwapPair rather than through the
// origins-matching Update path (a swap's outcome is already scoped to
// exactly one pair, so there is nothing to filter).
type REStatistics struct {
	averages map[[2]string]*REAcceptanceRateAverage
	works    map[[2]string]*rawSample
	heats    map[[2]string]*rawSample
	order    [][2]string
	writers  []Writer
}

// NewREStatistics constructs an REStatistics engine tracking the given
// replica pairs.
func NewREStatistics(pairs [][2]string, writers []Writer) *REStatistics {
	s := &REStatistics{
		averages: make(map[[2]string]*REAcceptanceRateAverage, len(pairs)),
		works:    make(map[[2]string]*rawSample, len(pairs)),
		heats:    make(map[[2]string]*rawSample, len(pairs)),
		writers:  writers,
	}
	for _, p := range pairs {
		s.order = append(s.order, p)
		s.averages[p] = NewREAcceptanceRateAverage(p[0], p[1])
		s.works[p] = &rawSample{name: "re_works", replicaA: p[0], replicaB: p[1]}
		s.heats[p] = &rawSample{name: "re_heats", replicaA: p[0], replicaB: p[1]}
	}
	return s
}

// RecordSwap folds in the outcome of one executed swap pair.
func (s *REStatistics) RecordSwap(replicaA, replicaB string, accept bool, workA, heatA, workB, heatB float64) {
	key := [2]string{replicaA, replicaB}
	avg, ok := s.averages[key]
	if !ok {
		avg = NewREAcceptanceRateAverage(replicaA, replicaB)
		s.averages[key] = avg
		s.works[key] = &rawSample{name: "re_works", replicaA: replicaA, replicaB: replicaB}
		s.heats[key] = &rawSample{name: "re_heats", replicaA: replicaA, replicaB: replicaB}
		s.order = append(s.order, key)
	}
	avg.Update(0, state.Stats{Accepted: accept})
	s.works[key].append(workA + workB)
	s.heats[key].append(heatA + heatB)
}

// AcceptanceAverages returns the per-pair acceptance-rate quantities in
// registration order, the shape ConsoleREWriter/FileREWriter consume.
func (s *REStatistics) AcceptanceAverages() []LoggedQuantity {
	out := make([]LoggedQuantity, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, s.averages[p])
	}
	return out
}

// Works returns the per-pair work-sample quantities.
func (s *REStatistics) Works() []LoggedQuantity {
	out := make([]LoggedQuantity, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, s.works[p])
	}
	return out
}

// Heats returns the per-pair heat-sample quantities.
func (s *REStatistics) Heats() []LoggedQuantity {
	out := make([]LoggedQuantity, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, s.heats[p])
	}
	return out
}

// WriteLast renders the current acceptance-rate snapshot through every
// configured writer.
func (s *REStatistics) WriteLast(step int) {
	for _, w := range s.writers {
		w.Write(step, s.AcceptanceAverages())
	}
}
