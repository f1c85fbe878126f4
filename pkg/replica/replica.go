// Package replica implements the per-worker agent (§4.6): it owns one
// density, one sampler, and a roster of proposers, and answers requests
// dispatched to it by the master and by its current swap partner.
package replica

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/simeoncarstens/rexfw/pkg/density"
	"github.com/simeoncarstens/rexfw/pkg/message"
	"github.com/simeoncarstens/rexfw/pkg/proposer"
	"github.com/simeoncarstens/rexfw/pkg/rexerr"
	"github.com/simeoncarstens/rexfw/pkg/sampler"
	"github.com/simeoncarstens/rexfw/pkg/state"
)

// Replica is the per-worker agent. A single goroutine drives Dispatch
// for one Replica for the lifetime of a run (§5); the mutex below guards
// against the rare case of a caller reusing a Replica across goroutines
// in tests, not against the normal single-driver operation.
type Replica struct {
	Name      string
	Density   density.Density
	Sampler   sampler.Sampler
	Proposers map[string]proposer.Proposer
	Rng       *rand.Rand

	OutDir string

	mu             sync.Mutex
	bufferedState  state.State
	bufferedEnergy float64
	bufferedTraj   *state.Trajectory
	currentMaster  string
	samples        []state.State
	samplerStats   []state.StepStats
	energyTrace    []float64
	sampleCount    int
}

// New constructs a Replica ready to serve. rng should be seeded
// deterministically from the replica's rank (§5).
func New(name string, d density.Density, s sampler.Sampler, proposers map[string]proposer.Proposer, rng *rand.Rand, outDir string) *Replica {
	return &Replica{
		Name:      name,
		Density:   d,
		Sampler:   s,
		Proposers: proposers,
		Rng:       rng,
		OutDir:    outDir,
	}
}

// proposerContext adapts a Replica into the proposer.Context view: the
// proposer family never sees buffering or dispatch state, only the
// density, the position the sampler last produced, and the RNG stream.
type proposerContext struct {
	d   density.Density
	s   state.State
	rng *rand.Rand
}

func (c proposerContext) Density() density.Density { return c.d }
func (c proposerContext) State() state.State       { return c.s }
func (c proposerContext) Rand() *rand.Rand         { return c.rng }

// Dispatch routes an incoming payload to its handler and reports both
// the reply payload and who it is addressed to. dest is usually from
// (a plain request/reply turn), but two handlers in this protocol
// address a third party instead: SendGetStateAndEnergyRequest's reply
// goes to the partner named in the request, not back to the sender,
// and StoreStateEnergyRequest's reply goes to the master remembered
// from the matching SendGetStateAndEnergyRequest, not back to the
// partner that sent it (§4.6). The returned bool is the "terminate the
// serving loop" sentinel, set only by DieRequest. Any payload type
// outside the closed Payload set is a protocol violation (§7) — this
// can only happen if a new variant is added to pkg/message without a
// matching case here.
func (r *Replica) Dispatch(ctx context.Context, from string, p message.Payload) (resp message.Payload, dest string, terminate bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch req := p.(type) {

	case message.SampleRequest:
		resp, terminate, err = r.handleSample(ctx)
		return resp, from, terminate, err

	case message.SendGetStateAndEnergyRequest:
		resp, terminate, err = r.handleSendGetStateAndEnergy(ctx, from, req)
		return resp, req.Partner, terminate, err

	case message.GetStateAndEnergyRequest:
		resp, terminate, err = r.handleGetStateAndEnergy(ctx, req)
		return resp, from, terminate, err

	case message.StoreStateEnergyRequest:
		resp, terminate, err = r.handleStoreStateEnergy(ctx, req)
		return resp, r.currentMaster, terminate, err

	case message.ProposeRequest:
		resp, terminate, err = r.handlePropose(ctx, req)
		return resp, from, terminate, err

	case message.AcceptBufferedProposalRequest:
		resp, terminate, err = r.handleAcceptBufferedProposal(ctx, req)
		return resp, from, terminate, err

	case message.SendStatsRequest:
		resp, terminate, err = r.handleSendStats(ctx)
		return resp, from, terminate, err

	case message.DumpSamplesRequest:
		resp, terminate, err = r.handleDumpSamples(req)
		return resp, from, terminate, err

	case message.DieRequest:
		return nil, "", true, nil

	default:
		return nil, "", false, fmt.Errorf("%w: replica %s received unrecognised payload %T", rexerr.ErrProtocolViolation, r.Name, req)
	}
}

func (r *Replica) handleSample(ctx context.Context) (message.Payload, bool, error) {
	s, err := r.Sampler.Sample(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("replica %s: sample: %w", r.Name, err)
	}
	r.samples = append(r.samples, s)
	r.energyTrace = append(r.energyTrace, density.Energy(r.Density, s.Position))
	r.samplerStats = append(r.samplerStats, state.StepStats{
		Step:  r.sampleCount,
		Stats: r.Sampler.LastDrawStats(),
	})
	r.sampleCount++
	return message.DoNothingRequest{Sender: r.Name}, false, nil
}

func (r *Replica) handleSendGetStateAndEnergy(ctx context.Context, from string, req message.SendGetStateAndEnergyRequest) (message.Payload, bool, error) {
	r.currentMaster = from
	return message.GetStateAndEnergyRequest{Sender: r.Name}, false, nil
}

func (r *Replica) handleGetStateAndEnergy(ctx context.Context, req message.GetStateAndEnergyRequest) (message.Payload, bool, error) {
	s := r.currentState()
	return message.StoreStateEnergyRequest{
		Sender: r.Name,
		State:  s,
		Energy: density.Energy(r.Density, s.Position),
	}, false, nil
}

func (r *Replica) handleStoreStateEnergy(ctx context.Context, req message.StoreStateEnergyRequest) (message.Payload, bool, error) {
	r.bufferedState = req.State
	r.bufferedEnergy = req.Energy
	return message.DoNothingRequest{Sender: r.Name}, false, nil
}

func (r *Replica) handlePropose(ctx context.Context, req message.ProposeRequest) (message.Payload, bool, error) {
	p, err := r.pickProposer(req.Params.ProposerNames)
	if err != nil {
		return nil, false, err
	}

	pc := proposerContext{d: r.Density, s: r.currentState(), rng: r.Rng}
	traj, err := p.Propose(ctx, pc, r.bufferedState, r.bufferedEnergy, req.Params.ProposerParams)
	if err != nil {
		return nil, false, fmt.Errorf("replica %s: propose against %s: %w", r.Name, req.Partner, err)
	}
	r.bufferedTraj = &traj

	return message.WorkHeat{Sender: r.Name, Work: traj.Work, Heat: traj.Heat}, false, nil
}

func (r *Replica) handleAcceptBufferedProposal(ctx context.Context, req message.AcceptBufferedProposalRequest) (message.Payload, bool, error) {
	cur := r.currentState()
	if req.Accept && r.bufferedTraj != nil {
		cur = r.bufferedTraj.Final
	}
	r.bufferedTraj = nil

	r.samples = append(r.samples, cur)
	r.energyTrace = append(r.energyTrace, density.Energy(r.Density, cur.Position))
	r.sampleCount++

	return message.DoNothingRequest{Sender: r.Name}, false, nil
}

func (r *Replica) handleSendStats(ctx context.Context) (message.Payload, bool, error) {
	entries := r.samplerStats
	r.samplerStats = nil
	return message.SamplerStatsBatch{Sender: r.Name, Entries: entries}, false, nil
}

func (r *Replica) handleDumpSamples(req message.DumpSamplesRequest) (message.Payload, bool, error) {
	if err := r.dumpSamples(req); err != nil {
		return nil, false, err
	}
	return message.DoNothingRequest{Sender: r.Name}, false, nil
}

// pickProposer implements the deterministic tie-break of the design
// notes: the first name in names that is also a key in this replica's
// proposer roster wins, rather than relying on map iteration order.
func (r *Replica) pickProposer(names []string) (proposer.Proposer, error) {
	for _, n := range names {
		if p, ok := r.Proposers[n]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: none of %v owned by replica %s", rexerr.ErrProtocolViolation, names, r.Name)
}

// currentState returns the replica's most recently produced state, or
// the zero state before any sample has been drawn.
func (r *Replica) currentState() state.State {
	if len(r.samples) == 0 {
		return state.State{}
	}
	return r.samples[len(r.samples)-1]
}
