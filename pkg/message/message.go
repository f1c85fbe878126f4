// Package message defines the closed set of tagged payload records
// exchanged between the master and replicas (§4.2), and the parcel
// envelope the transport moves them in (§3).
package message

import (
	"github.com/simeoncarstens/rexfw/pkg/state"
	"github.com/simeoncarstens/rexfw/pkg/swaplist"
)

// Parcel is the transport-level envelope: {sender, receiver, payload}.
type Parcel struct {
	Sender   string
	Receiver string
	Payload  Payload
}

// Payload is the closed tagged-variant set dispatched by a type switch
// rather than a runtime-mutable string-keyed table (§9): adding a
// payload kind means adding a variant and an isPayload method, never
// mutating a dispatch table.
type Payload interface {
	isPayload()
}

// Master -> Replica

// SampleRequest asks the replica to draw one sample and append it to
// its local log.
type SampleRequest struct {
	Sender string
}

// ProposeRequest asks the replica to run a proposer producing a swap
// trajectory against Partner's buffered state and energy.
type ProposeRequest struct {
	Sender  string
	Partner string
	Params  swaplist.ExchangeParams
}

// AcceptBufferedProposalRequest tells the replica to commit or discard
// its previously buffered proposal.
type AcceptBufferedProposalRequest struct {
	Sender string
	Accept bool
}

// SendGetStateAndEnergyRequest tells the replica to ask Partner for its
// state and energy.
type SendGetStateAndEnergyRequest struct {
	Sender  string
	Partner string
}

// SendStatsRequest asks the replica to flush its accumulated sampler
// stats back to the master.
type SendStatsRequest struct {
	Sender string
}

// DumpSamplesRequest asks the replica to persist samples in window
// [SMin, SMax), subsampled by DumpStep, with filename offset Offset,
// then persist and truncate its energy trace.
type DumpSamplesRequest struct {
	Sender                       string
	SMin, SMax, Offset, DumpStep int
}

// DieRequest tells the replica to terminate its serving loop.
type DieRequest struct {
	Sender string
}

// Replica -> Replica

// GetStateAndEnergyRequest asks the receiving replica to return its
// current state and energy.
type GetStateAndEnergyRequest struct {
	Sender string
}

// StoreStateEnergyRequest carries the sender's state and energy for the
// receiving replica to buffer.
type StoreStateEnergyRequest struct {
	Sender string
	State  state.State
	Energy float64
}

// Replica -> Master

// WorkHeat carries the (work, heat) pair produced by a ProposeRequest.
type WorkHeat struct {
	Sender     string
	Work, Heat float64
}

// SamplerStatsBatch carries the sampler stats a replica accumulated
// since its last SendStatsRequest.
type SamplerStatsBatch struct {
	Sender  string
	Entries []state.StepStats
}

// DoNothingRequest is a synchronization ack: it carries no information
// beyond "the sender has completed a buffering mutation the master's
// next request depends on" (§4.8).
type DoNothingRequest struct {
	Sender string
}

func (SampleRequest) isPayload()                 {}
func (ProposeRequest) isPayload()                {}
func (AcceptBufferedProposalRequest) isPayload() {}
func (SendGetStateAndEnergyRequest) isPayload()  {}
func (SendStatsRequest) isPayload()              {}
func (DumpSamplesRequest) isPayload()            {}
func (DieRequest) isPayload()                    {}
func (GetStateAndEnergyRequest) isPayload()      {}
func (StoreStateEnergyRequest) isPayload()       {}
func (WorkHeat) isPayload()                      {}
func (SamplerStatsBatch) isPayload()             {}
func (DoNothingRequest) isPayload()              {}
