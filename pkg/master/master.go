// Package master implements the exchange master (§4.8): the per-step
// decision loop that drives replicas through sampling, swap, dump, and
// statistics phases.
package master

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/simeoncarstens/rexfw/pkg/message"
	"github.com/simeoncarstens/rexfw/pkg/rexlog"
	"github.com/simeoncarstens/rexfw/pkg/statistics"
	"github.com/simeoncarstens/rexfw/pkg/swaplist"
	"github.com/simeoncarstens/rexfw/pkg/transport"
)

// Config is the fixed configuration of one master run (§4.8).
type Config struct {
	Name               string
	ReplicaNames       []string
	SwapGenerator      swaplist.Generator
	SamplingStatistics *statistics.Statistics
	SwapStatistics     *statistics.REStatistics
	Transport          transport.Transport
	Log                *rexlog.Logger

	NIterations              int
	SwapInterval             int
	StatusInterval           int
	DumpInterval             int
	Offset                   int
	DumpStep                 int
	StatisticsUpdateInterval int

	Seed int64
}

// ExchangeMaster runs the per-iteration decision loop described in
// §4.8: sample, swap, dump, status, and statistics-update phases, each
// gated by its own interval.
type ExchangeMaster struct {
	cfg  Config
	step int
	rng  *rand.Rand
}

// New constructs an ExchangeMaster from cfg.
func New(cfg Config) *ExchangeMaster {
	return &ExchangeMaster{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// milestone reports whether step s is a positive multiple of interval.
// interval <= 0 disables the phase entirely.
func milestone(s, interval int) bool {
	return interval > 0 && s > 0 && s%interval == 0
}

// Run drives the master's main loop for cfg.NIterations steps. It
// always tells every replica to terminate on return, whether the loop
// finished normally, failed, or ctx was cancelled — mirroring the
// teacher's always-cleanup-on-exit discipline.
func (m *ExchangeMaster) Run(ctx context.Context) (err error) {
	defer func() {
		if tErr := m.TerminateReplicas(context.Background()); tErr != nil && err == nil {
			err = tErr
		}
	}()

	for s := 0; s < m.cfg.NIterations; s++ {
		m.step = s

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var swapped map[string]bool
		if milestone(s, m.cfg.SwapInterval) {
			swapped, err = m.executeSwapPhase(ctx)
			if err != nil {
				return fmt.Errorf("master: swap phase at step %d: %w", s, err)
			}
		}
		if err := m.executeSamplePhase(ctx, swapped); err != nil {
			return fmt.Errorf("master: sample phase at step %d: %w", s, err)
		}

		if milestone(s, m.cfg.DumpInterval) {
			if err := m.executeDumpPhase(ctx, s); err != nil {
				return fmt.Errorf("master: dump phase at step %d: %w", s, err)
			}
		}
		if milestone(s, m.cfg.StatisticsUpdateInterval) {
			if err := m.executeStatisticsUpdatePhase(ctx, s); err != nil {
				return fmt.Errorf("master: statistics update at step %d: %w", s, err)
			}
		}
		if milestone(s, m.cfg.StatusInterval) {
			m.executeStatusPhase(s)
		}
	}
	return nil
}

// executeSamplePhase tells every replica not involved in this step's
// swap phase to draw a sample. Replicas already dispatched a
// ProposeRequest/AcceptBufferedProposalRequest pair this step already
// have a fresh current state and do not also draw a sample.
func (m *ExchangeMaster) executeSamplePhase(ctx context.Context, swapped map[string]bool) error {
	for _, name := range m.cfg.ReplicaNames {
		if swapped[name] {
			continue
		}
		if err := m.sendAndAwaitAck(ctx, name, message.SampleRequest{Sender: m.cfg.Name}); err != nil {
			return err
		}
	}
	return nil
}

// executeSwapPhase runs every pair in this step's swap list to
// completion, sequentially, per the "must not cross phases" rule of
// §4.8.
func (m *ExchangeMaster) executeSwapPhase(ctx context.Context) (map[string]bool, error) {
	pairs := m.cfg.SwapGenerator.Generate(m.step)
	swapped := make(map[string]bool, 2*len(pairs))
	for _, d := range pairs {
		if _, err := m.executeSwapPair(ctx, d); err != nil {
			return nil, err
		}
		swapped[d.ReplicaA] = true
		swapped[d.ReplicaB] = true
	}
	return swapped, nil
}

// executeSwapPair runs the nested 4-state protocol for one pair
// (§4.8): stateRequested, stateProposalInFlight, stateDecided,
// stateCommitting.
func (m *ExchangeMaster) executeSwapPair(ctx context.Context, d swaplist.SwapDescriptor) (accepted bool, err error) {
	// stateRequested
	if err := m.sendAndAwaitAck(ctx, d.ReplicaA, message.SendGetStateAndEnergyRequest{Sender: m.cfg.Name, Partner: d.ReplicaB}); err != nil {
		return false, err
	}
	if err := m.sendAndAwaitAck(ctx, d.ReplicaB, message.SendGetStateAndEnergyRequest{Sender: m.cfg.Name, Partner: d.ReplicaA}); err != nil {
		return false, err
	}

	// stateProposalInFlight
	workA, heatA, err := m.sendProposeAndAwaitWork(ctx, d.ReplicaA, d.ReplicaB, d.Params)
	if err != nil {
		return false, err
	}
	d.Params.ProposerParams.Reverse()
	workB, heatB, err := m.sendProposeAndAwaitWork(ctx, d.ReplicaB, d.ReplicaA, d.Params)
	if err != nil {
		return false, err
	}
	d.Params.ProposerParams.Reverse()

	// stateDecided
	accept := m.acceptanceDecision(workA, workB)

	// stateCommitting
	if err := m.sendAndAwaitAck(ctx, d.ReplicaA, message.AcceptBufferedProposalRequest{Sender: m.cfg.Name, Accept: accept}); err != nil {
		return false, err
	}
	if err := m.sendAndAwaitAck(ctx, d.ReplicaB, message.AcceptBufferedProposalRequest{Sender: m.cfg.Name, Accept: accept}); err != nil {
		return false, err
	}

	if m.cfg.SwapStatistics != nil {
		m.cfg.SwapStatistics.RecordSwap(d.ReplicaA, d.ReplicaB, accept, workA, heatA, workB, heatB)
	}

	return accept, nil
}

// acceptanceDecision implements the §7/§8 tie-break: a NaN work term or
// an equality at the threshold both reject. Heat does not enter the
// decision.
func (m *ExchangeMaster) acceptanceDecision(workA, workB float64) bool {
	if math.IsNaN(workA) || math.IsNaN(workB) {
		return false
	}
	u := m.rng.Float64()
	p := math.Exp(-(workA + workB))
	return p > u
}

// executeDumpPhase tells every replica to persist the window
// [s-dump_interval, s) and clear its sample/energy buffers.
func (m *ExchangeMaster) executeDumpPhase(ctx context.Context, s int) error {
	smin := s - m.cfg.DumpInterval
	if smin < 0 {
		smin = 0
	}
	for _, name := range m.cfg.ReplicaNames {
		req := message.DumpSamplesRequest{
			Sender:   m.cfg.Name,
			SMin:     smin,
			SMax:     s,
			Offset:   m.cfg.Offset,
			DumpStep: m.cfg.DumpStep,
		}
		if err := m.sendAndAwaitAck(ctx, name, req); err != nil {
			return err
		}
	}
	return nil
}

// executeStatisticsUpdatePhase pulls batched sampler stats from every
// replica and feeds them into the sampling statistics engine.
func (m *ExchangeMaster) executeStatisticsUpdatePhase(ctx context.Context, s int) error {
	for _, name := range m.cfg.ReplicaNames {
		resp, err := m.sendAndAwaitPayload(ctx, name, message.SendStatsRequest{Sender: m.cfg.Name})
		if err != nil {
			return err
		}
		batch, ok := resp.(message.SamplerStatsBatch)
		if !ok {
			return fmt.Errorf("master: %s replied to SendStatsRequest with %T", name, resp)
		}
		if m.cfg.SamplingStatistics != nil {
			for _, entry := range batch.Entries {
				m.cfg.SamplingStatistics.Update([]string{name}, entry.Step, entry.Stats)
			}
		}
	}
	return nil
}

// executeStatusPhase flushes every configured writer for the current
// statistics snapshot.
func (m *ExchangeMaster) executeStatusPhase(s int) {
	if m.cfg.SamplingStatistics != nil {
		m.cfg.SamplingStatistics.WriteLast(s)
	}
	if m.cfg.SwapStatistics != nil {
		m.cfg.SwapStatistics.WriteLast(s)
	}
}

// TerminateReplicas sends DieRequest to every replica, best-effort: it
// collects rather than stops at the first failure, since by the time it
// runs the master is already tearing down.
func (m *ExchangeMaster) TerminateReplicas(ctx context.Context) error {
	var firstErr error
	for _, name := range m.cfg.ReplicaNames {
		err := m.cfg.Transport.Send(ctx, name, message.Parcel{
			Sender:   m.cfg.Name,
			Receiver: name,
			Payload:  message.DieRequest{Sender: m.cfg.Name},
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("master: terminate %s: %w", name, err)
		}
	}
	return firstErr
}

// sendAndAwaitAck sends payload to dest and blocks for its
// DoNothingRequest synchronization ack (§4.8's rationale for acks: FIFO
// is only guaranteed per pair, so the master must know dest has
// finished buffering before sending a request that depends on it).
func (m *ExchangeMaster) sendAndAwaitAck(ctx context.Context, dest string, payload message.Payload) error {
	resp, err := m.sendAndAwaitPayload(ctx, dest, payload)
	if err != nil {
		return err
	}
	if _, ok := resp.(message.DoNothingRequest); !ok {
		return fmt.Errorf("master: %s acked with %T, expected DoNothingRequest", dest, resp)
	}
	return nil
}

// sendProposeAndAwaitWork sends a ProposeRequest to dest for the given
// partner and exchange parameters and waits for the (work, heat) reply.
func (m *ExchangeMaster) sendProposeAndAwaitWork(ctx context.Context, dest, partner string, params swaplist.ExchangeParams) (work, heat float64, err error) {
	resp, err := m.sendAndAwaitPayload(ctx, dest, message.ProposeRequest{Sender: m.cfg.Name, Partner: partner, Params: params})
	if err != nil {
		return 0, 0, err
	}
	wh, ok := resp.(message.WorkHeat)
	if !ok {
		return 0, 0, fmt.Errorf("master: %s replied to ProposeRequest with %T", dest, resp)
	}
	return wh.Work, wh.Heat, nil
}

// sendAndAwaitPayload sends payload to dest and blocks for dest's next
// reply addressed back to the master.
func (m *ExchangeMaster) sendAndAwaitPayload(ctx context.Context, dest string, payload message.Payload) (message.Payload, error) {
	if err := m.cfg.Transport.Send(ctx, dest, message.Parcel{Sender: m.cfg.Name, Receiver: dest, Payload: payload}); err != nil {
		return nil, fmt.Errorf("master: send to %s: %w", dest, err)
	}
	parcel, err := m.cfg.Transport.Recv(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("master: recv from %s: %w", dest, err)
	}
	return parcel.Payload, nil
}
