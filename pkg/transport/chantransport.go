package transport

import (
	"context"
	"fmt"
	"reflect"

	"github.com/simeoncarstens/rexfw/pkg/message"
	"github.com/simeoncarstens/rexfw/pkg/rexerr"
)

// Hub is the shared single-process transport backing: one unbuffered
// channel per ordered (sender, receiver) pair. An unbuffered channel
// gives exactly MPI rendezvous-send semantics (Send blocks until Recv is
// ready) and per-pair FIFO ordering comes for free from Go's own
// channel-ordering guarantee.
type Hub struct {
	pairs   map[[2]string]chan message.Parcel
	inbound map[string][]inboundChan
}

type inboundChan struct {
	sender string
	ch     chan message.Parcel
}

// NewHub builds the full set of ordered pair channels for peers. Every
// peer can send to and receive from every other peer.
func NewHub(peers []string) *Hub {
	h := &Hub{
		pairs:   make(map[[2]string]chan message.Parcel),
		inbound: make(map[string][]inboundChan, len(peers)),
	}
	for _, from := range peers {
		for _, to := range peers {
			if from == to {
				continue
			}
			ch := make(chan message.Parcel)
			h.pairs[[2]string{from, to}] = ch
			h.inbound[to] = append(h.inbound[to], inboundChan{sender: from, ch: ch})
		}
	}
	return h
}

// Endpoint binds one peer's name to the hub, giving it the Transport
// interface.
func (h *Hub) Endpoint(name string) *Endpoint {
	return &Endpoint{name: name, hub: h}
}

// Endpoint is a Transport bound to a single logical peer name.
type Endpoint struct {
	name string
	hub  *Hub
}

func (e *Endpoint) Send(ctx context.Context, dest string, p message.Parcel) error {
	ch, ok := e.hub.pairs[[2]string{p.Sender, dest}]
	if !ok {
		return fmt.Errorf("%w: no channel from %s to %s", rexerr.ErrLostPeer, p.Sender, dest)
	}
	select {
	case ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Endpoint) Recv(ctx context.Context, source string) (message.Parcel, error) {
	if source != Wildcard {
		ch, ok := e.hub.pairs[[2]string{source, e.name}]
		if !ok {
			return message.Parcel{}, fmt.Errorf("%w: no channel from %s to %s", rexerr.ErrLostPeer, source, e.name)
		}
		select {
		case p, ok := <-ch:
			if !ok {
				return message.Parcel{}, fmt.Errorf("%w: channel from %s to %s closed", rexerr.ErrLostPeer, source, e.name)
			}
			return p, nil
		case <-ctx.Done():
			return message.Parcel{}, ctx.Err()
		}
	}

	inbound := e.hub.inbound[e.name]
	cases := make([]reflect.SelectCase, 0, len(inbound)+1)
	for _, ib := range inbound {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ib.ch)})
	}
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})

	chosen, recv, recvOK := reflect.Select(cases)
	if chosen == len(cases)-1 {
		return message.Parcel{}, ctx.Err()
	}
	if !recvOK {
		return message.Parcel{}, fmt.Errorf("%w: channel from %s to %s closed", rexerr.ErrLostPeer, inbound[chosen].sender, e.name)
	}
	return recv.Interface().(message.Parcel), nil
}

func (e *Endpoint) Close() error { return nil }
