// Package serving implements the per-replica-process serving loop
// (§4.10): pull the next parcel from any sender, dispatch it to the
// local replica, send whatever reply dispatch produced to the
// destination dispatch names.
package serving

import (
	"context"
	"fmt"

	"github.com/simeoncarstens/rexfw/pkg/message"
	"github.com/simeoncarstens/rexfw/pkg/replica"
	"github.com/simeoncarstens/rexfw/pkg/rexerr"
	"github.com/simeoncarstens/rexfw/pkg/rexlog"
	"github.com/simeoncarstens/rexfw/pkg/transport"
)

// Serve runs r's dispatch loop until a DieRequest terminates it, the
// transport fails, or ctx is cancelled. It is meant to be the single
// goroutine driving r's dispatch for the lifetime of a replica process
// (§5 — at most one in-flight request per replica at any moment).
func Serve(ctx context.Context, t transport.Transport, r *replica.Replica, log *rexlog.Logger) error {
	for {
		parcel, err := t.Recv(ctx, transport.Wildcard)
		if err != nil {
			return fmt.Errorf("serving %s: %w", r.Name, err)
		}
		if parcel.Receiver != r.Name {
			return fmt.Errorf("%w: parcel addressed to %s arrived at %s", rexerr.ErrRoutingFailure, parcel.Receiver, r.Name)
		}

		resp, dest, terminate, err := r.Dispatch(ctx, parcel.Sender, parcel.Payload)
		if err != nil {
			return fmt.Errorf("serving %s: dispatch from %s: %w", r.Name, parcel.Sender, err)
		}

		if resp != nil {
			if err := t.Send(ctx, dest, message.Parcel{Sender: r.Name, Receiver: dest, Payload: resp}); err != nil {
				return fmt.Errorf("serving %s: reply to %s: %w", r.Name, dest, err)
			}
		}

		if log != nil {
			log.Debug("dispatched", "replica", r.Name, "from", parcel.Sender, "payload", fmt.Sprintf("%T", parcel.Payload))
		}

		if terminate {
			return nil
		}
	}
}
