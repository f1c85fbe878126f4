package transport_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/simeoncarstens/rexfw/pkg/message"
	"github.com/simeoncarstens/rexfw/pkg/transport"
)

// TestPerPairFIFOHoldsUnderCrossPairJitter covers the transport-level
// half of S5: the transport contract only promises FIFO ordering within
// one (sender, receiver) pair, never across pairs. This drives two
// senders into the same wildcard-receiving endpoint concurrently, each
// jittering its send timing, and checks that each sender's own sequence
// still arrives in order at the receiver — regardless of how the two
// senders' messages end up interleaved with each other. It deliberately
// stays below replica.Dispatch/serving.Serve, so it does not by itself
// show that a swap decision uses post-buffering state+energy; that is
// covered at the handler level by
// replica.TestDispatchHandshakeRoutingAcrossBackToBackPairs and
// end-to-end by master.TestIdenticalReplicasAlwaysAccept, both of which
// reuse a replica across back-to-back pairs with different partners.
func TestPerPairFIFOHoldsUnderCrossPairJitter(t *testing.T) {
	hub := transport.NewHub([]string{"master", "replica1", "replica2"})
	masterEnd := hub.Endpoint("master")
	replica1End := hub.Endpoint("replica1")
	replica2End := hub.Endpoint("replica2")

	const nMessages = 100
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	send := func(end *transport.Endpoint, name string, rng *rand.Rand) {
		for i := 0; i < nMessages; i++ {
			time.Sleep(time.Duration(rng.Intn(200)) * time.Microsecond)
			err := end.Send(ctx, "master", message.Parcel{
				Sender:   name,
				Receiver: "master",
				Payload:  message.DumpSamplesRequest{Sender: name, SMin: i},
			})
			if err != nil {
				t.Errorf("%s: send %d: %v", name, i, err)
				return
			}
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); send(replica1End, "replica1", rand.New(rand.NewSource(1))) }()
	go func() { defer wg.Done(); send(replica2End, "replica2", rand.New(rand.NewSource(2))) }()

	lastSeen := map[string]int{"replica1": -1, "replica2": -1}
	for received := 0; received < 2*nMessages; received++ {
		parcel, err := masterEnd.Recv(ctx, transport.Wildcard)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		req, ok := parcel.Payload.(message.DumpSamplesRequest)
		if !ok {
			t.Fatalf("payload = %T, want DumpSamplesRequest", parcel.Payload)
		}
		if req.SMin <= lastSeen[parcel.Sender] {
			t.Fatalf("%s: received SMin %d out of order after %d", parcel.Sender, req.SMin, lastSeen[parcel.Sender])
		}
		lastSeen[parcel.Sender] = req.SMin
	}

	wg.Wait()
	for name, last := range lastSeen {
		if last != nMessages-1 {
			t.Errorf("%s: last sequence number seen = %d, want %d", name, last, nMessages-1)
		}
	}
}
