package replica

import (
	"context"
	"math/rand"
	"testing"

	"github.com/simeoncarstens/rexfw/pkg/density"
	"github.com/simeoncarstens/rexfw/pkg/message"
	"github.com/simeoncarstens/rexfw/pkg/proposer"
	"github.com/simeoncarstens/rexfw/pkg/state"
	"github.com/simeoncarstens/rexfw/pkg/swaplist"
	"github.com/simeoncarstens/rexfw/pkg/testdensity"
	"github.com/simeoncarstens/rexfw/pkg/testsampler"
)

func newTestReplica(t *testing.T) *Replica {
	d := testdensity.NewNormal(1, 0, 1)
	rng := rand.New(rand.NewSource(1))
	s := testsampler.NewRWMC(d, rng, 0.5, []float64{0})
	return New("replica1", d, s, map[string]proposer.Proposer{"re": proposer.NewRE()}, rng, t.TempDir())
}

func TestDispatchSampleRequest(t *testing.T) {
	r := newTestReplica(t)
	resp, dest, terminate, err := r.Dispatch(context.Background(), "master", message.SampleRequest{Sender: "master"})
	if err != nil {
		t.Fatalf("Dispatch(SampleRequest): %v", err)
	}
	if terminate {
		t.Fatal("SampleRequest must not terminate the serving loop")
	}
	if _, ok := resp.(message.DoNothingRequest); !ok {
		t.Fatalf("SampleRequest reply = %T, want DoNothingRequest", resp)
	}
	if dest != "master" {
		t.Errorf("SampleRequest reply dest = %q, want %q", dest, "master")
	}
	if len(r.samples) != 1 {
		t.Fatalf("samples length = %d, want 1", len(r.samples))
	}
}

// TestDispatchGetStateAndEnergyRoundtrip drives the full 3-hop exchange
// a real run sends over the wire: master asks a to report state+energy
// to its partner b; a sends the request directly to b (not back to
// master); b replies to a with its state+energy; a acks the master
// that remembered it as current-master, not b who it just heard from
// (§4.6).
func TestDispatchGetStateAndEnergyRoundtrip(t *testing.T) {
	a := newTestReplica(t)
	b := newTestReplica(t)
	a.Name, b.Name = "replica1", "replica2"

	// Seed a's current state so it has something to report.
	if _, _, _, err := a.Dispatch(context.Background(), "master", message.SampleRequest{Sender: "master"}); err != nil {
		t.Fatalf("seeding sample: %v", err)
	}

	resp, dest, _, err := a.Dispatch(context.Background(), "master", message.SendGetStateAndEnergyRequest{Sender: "master", Partner: "replica2"})
	if err != nil {
		t.Fatalf("Dispatch(SendGetStateAndEnergyRequest): %v", err)
	}
	getReq, ok := resp.(message.GetStateAndEnergyRequest)
	if !ok {
		t.Fatalf("SendGetStateAndEnergyRequest reply = %T, want GetStateAndEnergyRequest", resp)
	}
	if dest != "replica2" {
		t.Fatalf("SendGetStateAndEnergyRequest reply dest = %q, want partner %q, not the master that sent it", dest, "replica2")
	}

	resp2, dest2, _, err := b.Dispatch(context.Background(), "replica1", getReq)
	if err != nil {
		t.Fatalf("Dispatch(GetStateAndEnergyRequest): %v", err)
	}
	store, ok := resp2.(message.StoreStateEnergyRequest)
	if !ok {
		t.Fatalf("GetStateAndEnergyRequest reply = %T, want StoreStateEnergyRequest", resp2)
	}
	if dest2 != "replica1" {
		t.Fatalf("GetStateAndEnergyRequest reply dest = %q, want the asking replica %q", dest2, "replica1")
	}

	resp3, dest3, _, err := a.Dispatch(context.Background(), "replica2", store)
	if err != nil {
		t.Fatalf("Dispatch(StoreStateEnergyRequest): %v", err)
	}
	if _, ok := resp3.(message.DoNothingRequest); !ok {
		t.Fatalf("StoreStateEnergyRequest reply = %T, want DoNothingRequest", resp3)
	}
	if dest3 != "master" {
		t.Fatalf("StoreStateEnergyRequest ack dest = %q, want the remembered master %q, not the partner it just heard from", dest3, "master")
	}
	if a.bufferedState.Position == nil {
		t.Fatal("a did not buffer b's state")
	}
}

// TestDispatchHandshakeRoutingAcrossBackToBackPairs pins down S5: a
// replica that plays the requesting side (X) of the state/energy
// handshake for one pair, completes the exchange, and is then reused
// for a second pair against a different partner and a different
// master must route each round's reply independently — the second
// round's routing must not leak into or be corrupted by the first's,
// and vice versa. This is the scenario DoNothingRequest acks and
// current-master tracking exist to make safe when a replica's pairing
// changes from one swap step to the next (§4.8).
func TestDispatchHandshakeRoutingAcrossBackToBackPairs(t *testing.T) {
	x := newTestReplica(t)
	x.Name = "x"

	// Round 1: masterA pairs x with p1.
	resp, dest, _, err := x.Dispatch(context.Background(), "masterA", message.SendGetStateAndEnergyRequest{Sender: "masterA", Partner: "p1"})
	if err != nil {
		t.Fatalf("round 1 SendGetStateAndEnergyRequest: %v", err)
	}
	if dest != "p1" {
		t.Fatalf("round 1 reply dest = %q, want partner %q", dest, "p1")
	}
	getReq1 := resp.(message.GetStateAndEnergyRequest)

	ack, dest, _, err := x.Dispatch(context.Background(), "p1", message.StoreStateEnergyRequest{
		Sender: "p1",
		State:  state.State{Position: []float64{1.0}},
		Energy: 1.5,
	})
	if err != nil {
		t.Fatalf("round 1 StoreStateEnergyRequest: %v", err)
	}
	if dest != "masterA" {
		t.Fatalf("round 1 ack dest = %q, want remembered master %q", dest, "masterA")
	}
	if _, ok := ack.(message.DoNothingRequest); !ok {
		t.Fatalf("round 1 ack = %T, want DoNothingRequest", ack)
	}
	if x.bufferedEnergy != 1.5 {
		t.Fatalf("round 1 buffered energy = %v, want 1.5", x.bufferedEnergy)
	}

	// Round 2: a later step pairs x with p2 under a different master.
	// The handshake must run to completion exactly as round 1 did,
	// with no residue from round 1 affecting its routing or buffers.
	resp, dest, _, err = x.Dispatch(context.Background(), "masterB", message.SendGetStateAndEnergyRequest{Sender: "masterB", Partner: "p2"})
	if err != nil {
		t.Fatalf("round 2 SendGetStateAndEnergyRequest: %v", err)
	}
	if dest != "p2" {
		t.Fatalf("round 2 reply dest = %q, want partner %q", dest, "p2")
	}
	getReq2 := resp.(message.GetStateAndEnergyRequest)
	if getReq1.Sender != getReq2.Sender {
		t.Fatalf("x reported a different sender name across rounds: %q vs %q", getReq1.Sender, getReq2.Sender)
	}

	ack, dest, _, err = x.Dispatch(context.Background(), "p2", message.StoreStateEnergyRequest{
		Sender: "p2",
		State:  state.State{Position: []float64{2.0}},
		Energy: 2.5,
	})
	if err != nil {
		t.Fatalf("round 2 StoreStateEnergyRequest: %v", err)
	}
	if dest != "masterB" {
		t.Fatalf("round 2 ack dest = %q, want remembered master %q, not round 1's %q", dest, "masterB", "masterA")
	}
	if _, ok := ack.(message.DoNothingRequest); !ok {
		t.Fatalf("round 2 ack = %T, want DoNothingRequest", ack)
	}
	if x.bufferedEnergy != 2.5 {
		t.Fatalf("round 2 buffered energy = %v, want 2.5 (round 1's 1.5 must not linger)", x.bufferedEnergy)
	}
}

func TestDispatchProposeAgainstBufferedPartner(t *testing.T) {
	r := newTestReplica(t)
	if _, _, _, err := r.Dispatch(context.Background(), "master", message.SampleRequest{Sender: "master"}); err != nil {
		t.Fatalf("seeding sample: %v", err)
	}
	r.bufferedState = state.State{Position: []float64{3.0}}
	r.bufferedEnergy = 4.5

	resp, _, _, err := r.Dispatch(context.Background(), "master", message.ProposeRequest{
		Sender:  "master",
		Partner: "replica2",
		Params: swaplist.ExchangeParams{
			ProposerNames:  []string{"re"},
			ProposerParams: &proposer.REParams{Names: []string{"re"}},
		},
	})
	if err != nil {
		t.Fatalf("Dispatch(ProposeRequest): %v", err)
	}
	wh, ok := resp.(message.WorkHeat)
	if !ok {
		t.Fatalf("ProposeRequest reply = %T, want WorkHeat", resp)
	}
	want := density.Energy(r.Density, r.bufferedState.Position) - r.bufferedEnergy
	if wh.Work != want {
		t.Errorf("work = %v, want %v", wh.Work, want)
	}
	if r.bufferedTraj == nil {
		t.Error("ProposeRequest should buffer a trajectory for the following AcceptBufferedProposalRequest")
	}
}

func TestDispatchProposeRejectsUnownedProposer(t *testing.T) {
	r := newTestReplica(t)
	r.bufferedState = state.State{Position: []float64{3.0}}

	_, _, _, err := r.Dispatch(context.Background(), "master", message.ProposeRequest{
		Sender:  "master",
		Partner: "replica2",
		Params: swaplist.ExchangeParams{
			ProposerNames:  []string{"hmc"},
			ProposerParams: &proposer.REParams{Names: []string{"hmc"}},
		},
	})
	if err == nil {
		t.Fatal("expected an error when none of the requested proposer names are owned locally")
	}
}

func TestDispatchDieRequestTerminates(t *testing.T) {
	r := newTestReplica(t)
	_, _, terminate, err := r.Dispatch(context.Background(), "master", message.DieRequest{Sender: "master"})
	if err != nil {
		t.Fatalf("Dispatch(DieRequest): %v", err)
	}
	if !terminate {
		t.Fatal("DieRequest must set the terminate sentinel")
	}
}

func TestDispatchAcceptBufferedProposal(t *testing.T) {
	r := newTestReplica(t)
	traj := state.Trajectory{Final: state.State{Position: []float64{9.9}}}
	r.bufferedTraj = &traj

	resp, _, _, err := r.Dispatch(context.Background(), "master", message.AcceptBufferedProposalRequest{Sender: "master", Accept: true})
	if err != nil {
		t.Fatalf("Dispatch(AcceptBufferedProposalRequest): %v", err)
	}
	if _, ok := resp.(message.DoNothingRequest); !ok {
		t.Fatalf("AcceptBufferedProposalRequest reply = %T, want DoNothingRequest", resp)
	}
	if got := r.currentState().Position[0]; got != 9.9 {
		t.Errorf("current state after accept = %v, want 9.9", got)
	}
	if r.bufferedTraj != nil {
		t.Error("bufferedTraj should be cleared after AcceptBufferedProposalRequest")
	}
}
