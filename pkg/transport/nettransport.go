package transport

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"net"
	"reflect"
	"sync"

	"github.com/simeoncarstens/rexfw/pkg/message"
	"github.com/simeoncarstens/rexfw/pkg/proposer"
	"github.com/simeoncarstens/rexfw/pkg/rexerr"
)

func init() {
	gob.Register(message.SampleRequest{})
	gob.Register(message.ProposeRequest{})
	gob.Register(message.AcceptBufferedProposalRequest{})
	gob.Register(message.SendGetStateAndEnergyRequest{})
	gob.Register(message.SendStatsRequest{})
	gob.Register(message.DumpSamplesRequest{})
	gob.Register(message.DieRequest{})
	gob.Register(message.GetStateAndEnergyRequest{})
	gob.Register(message.StoreStateEnergyRequest{})
	gob.Register(message.WorkHeat{})
	gob.Register(message.SamplerStatsBatch{})
	gob.Register(message.DoNothingRequest{})

	// ProposeRequest.Params.ProposerParams is a proposer.Params interface
	// value; gob needs every concrete type that can appear behind it
	// registered too, not just the message structs themselves.
	gob.Register(&proposer.REParams{})
	gob.Register(&proposer.RENSParams{})
	gob.Register(&proposer.LMDRENSParams{})
	gob.Register(&proposer.AMDRENSParams{})
	gob.Register(&proposer.HMCStepRENSParams{})
}

// NetTransport is the genuine multi-process implementation of Transport:
// one persistent gob-over-TCP connection per ordered (sender, receiver)
// pair, opened at construction and held for the run's lifetime — per-pair
// FIFO comes from TCP's own ordering guarantee on a single connection. No
// library in the retrieval pack implements MPI-style rendezvous
// point-to-point messaging by logical name; this is the one deliberate
// standard-library transport (see DESIGN.md).
type NetTransport struct {
	name string

	mu       sync.Mutex
	outConns map[string]*gob.Encoder

	listener net.Listener
	inbound  map[string]chan message.Parcel // keyed by sender name
	inboxMu  sync.RWMutex

	closeOnce sync.Once
	closed    chan struct{}
}

// NewNetTransport starts listening on listenAddr for inbound connections
// and lazily dials peerAddrs on first Send. name is this process's
// logical peer name (e.g. "replica3" or "master0").
func NewNetTransport(name, listenAddr string, peerAddrs map[string]string) (*NetTransport, error) {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("nettransport: listen on %s: %w", listenAddr, err)
	}

	t := &NetTransport{
		name:     name,
		outConns: make(map[string]*gob.Encoder),
		listener: ln,
		inbound:  make(map[string]chan message.Parcel),
		closed:   make(chan struct{}),
	}

	go t.acceptLoop()

	for peer := range peerAddrs {
		t.inboxMu.Lock()
		if _, ok := t.inbound[peer]; !ok {
			t.inbound[peer] = make(chan message.Parcel)
		}
		t.inboxMu.Unlock()
	}

	go t.dialAll(peerAddrs)

	return t, nil
}

func (t *NetTransport) dialAll(peerAddrs map[string]string) {
	for peer, addr := range peerAddrs {
		peer, addr := peer, addr
		go func() {
			conn, err := net.Dial("tcp", addr)
			if err != nil {
				return
			}
			enc := gob.NewEncoder(conn)
			t.mu.Lock()
			t.outConns[peer] = enc
			t.mu.Unlock()
		}()
	}
}

func (t *NetTransport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.closed:
				return
			default:
				return
			}
		}
		go t.readLoop(conn)
	}
}

func (t *NetTransport) readLoop(conn net.Conn) {
	dec := gob.NewDecoder(bufio.NewReader(conn))
	for {
		var p message.Parcel
		if err := dec.Decode(&p); err != nil {
			return
		}
		t.inboxMu.RLock()
		ch, ok := t.inbound[p.Sender]
		t.inboxMu.RUnlock()
		if !ok {
			ch = make(chan message.Parcel)
			t.inboxMu.Lock()
			t.inbound[p.Sender] = ch
			t.inboxMu.Unlock()
		}
		select {
		case ch <- p:
		case <-t.closed:
			return
		}
	}
}

func (t *NetTransport) Send(ctx context.Context, dest string, p message.Parcel) error {
	t.mu.Lock()
	enc, ok := t.outConns[dest]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no connection to %s", rexerr.ErrLostPeer, dest)
	}
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("%w: sending to %s: %v", rexerr.ErrLostPeer, dest, err)
	}
	return nil
}

func (t *NetTransport) Recv(ctx context.Context, source string) (message.Parcel, error) {
	if source != Wildcard {
		t.inboxMu.RLock()
		ch, ok := t.inbound[source]
		t.inboxMu.RUnlock()
		if !ok {
			return message.Parcel{}, fmt.Errorf("%w: no inbound channel from %s", rexerr.ErrLostPeer, source)
		}
		select {
		case p := <-ch:
			return p, nil
		case <-ctx.Done():
			return message.Parcel{}, ctx.Err()
		case <-t.closed:
			return message.Parcel{}, fmt.Errorf("%w: transport closed", rexerr.ErrLostPeer)
		}
	}

	t.inboxMu.RLock()
	senders := make([]string, 0, len(t.inbound))
	chans := make([]chan message.Parcel, 0, len(t.inbound))
	for s, ch := range t.inbound {
		senders = append(senders, s)
		chans = append(chans, ch)
	}
	t.inboxMu.RUnlock()

	cases := make([]reflect.SelectCase, 0, len(chans)+2)
	for _, ch := range chans {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch)})
	}
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(t.closed)})

	chosen, recv, recvOK := reflect.Select(cases)
	switch {
	case chosen == len(cases)-2:
		return message.Parcel{}, ctx.Err()
	case chosen == len(cases)-1:
		return message.Parcel{}, fmt.Errorf("%w: transport closed", rexerr.ErrLostPeer)
	case !recvOK:
		return message.Parcel{}, fmt.Errorf("%w: channel from %s closed", rexerr.ErrLostPeer, senders[chosen])
	default:
		return recv.Interface().(message.Parcel), nil
	}
}

func (t *NetTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return t.listener.Close()
}
