// Package transport implements the point-to-point, name-addressed
// messaging contract of §4.1: FIFO per (sender, receiver) pair, no
// ordering across pairs, a lost peer is fatal.
package transport

import (
	"context"

	"github.com/simeoncarstens/rexfw/pkg/message"
)

// Transport is the contract the master, replicas and serving loop send
// and receive parcels through.
type Transport interface {
	// Send enqueues p to the receiver named dest. It may block until
	// dest is ready to receive (the channel transport has MPI-style
	// rendezvous semantics) but never loses messages.
	Send(ctx context.Context, dest string, p message.Parcel) error

	// Recv receives the next parcel sent by source to this peer, or, when
	// source == "all", the next parcel from any sender addressed to
	// this peer.
	Recv(ctx context.Context, source string) (message.Parcel, error)

	// Close releases the transport's resources. Safe to call once the
	// run has finished or failed.
	Close() error
}

// Wildcard is the "any source" sentinel accepted by Recv.
const Wildcard = "all"
