package replica

import (
	"bufio"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/simeoncarstens/rexfw/pkg/message"
)

// newTestReplicaWithOutputDirs mirrors what cmd/rexfw does before
// starting a replica: dumpSamples assumes its samples/ and energies/
// directories already exist (§1/§6), so tests that dump must create
// them the way the launching command would.
func newTestReplicaWithOutputDirs(t *testing.T) *Replica {
	r := newTestReplica(t)
	if err := os.MkdirAll(filepath.Join(r.OutDir, "samples"), 0o755); err != nil {
		t.Fatalf("mkdir samples: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(r.OutDir, "energies"), 0o755); err != nil {
		t.Fatalf("mkdir energies: %v", err)
	}
	return r
}

// TestDumpSamplesWindowAndSubsampling pins down S4: a dump window of 100
// samples subsampled every 3rd (dump_step=3) must produce ceil(100/3)==34
// records, and the filename must reflect SMin/SMax shifted by Offset.
func TestDumpSamplesWindowAndSubsampling(t *testing.T) {
	r := newTestReplicaWithOutputDirs(t)
	for i := 0; i < 100; i++ {
		if _, _, _, err := r.Dispatch(context.Background(), "master", message.SampleRequest{Sender: "master"}); err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
	}

	resp, _, _, err := r.Dispatch(context.Background(), "master", message.DumpSamplesRequest{
		Sender:   "master",
		SMin:     0,
		SMax:     100,
		Offset:   42,
		DumpStep: 3,
	})
	if err != nil {
		t.Fatalf("Dispatch(DumpSamplesRequest): %v", err)
	}
	if _, ok := resp.(message.DoNothingRequest); !ok {
		t.Fatalf("DumpSamplesRequest reply = %T, want DoNothingRequest", resp)
	}

	path := filepath.Join(r.OutDir, "samples", "samples_replica1_42-142.jsonl")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected dump file %s: %v", path, err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scanning %s: %v", path, err)
	}

	want := int(math.Ceil(100.0 / 3.0))
	if lines != want {
		t.Errorf("dump file has %d records, want %d (ceil(100/3))", lines, want)
	}

	if len(r.samples) != 0 {
		t.Errorf("samples buffer should be cleared after dump, has %d entries", len(r.samples))
	}
}

func TestDumpSamplesAppendsAndTruncatesEnergyTrace(t *testing.T) {
	r := newTestReplicaWithOutputDirs(t)
	for i := 0; i < 5; i++ {
		if _, _, _, err := r.Dispatch(context.Background(), "master", message.SampleRequest{Sender: "master"}); err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
	}

	if _, _, _, err := r.Dispatch(context.Background(), "master", message.DumpSamplesRequest{
		Sender: "master", SMin: 0, SMax: 5, Offset: 0, DumpStep: 1,
	}); err != nil {
		t.Fatalf("Dispatch(DumpSamplesRequest): %v", err)
	}
	if len(r.energyTrace) != 0 {
		t.Errorf("energy trace should be cleared after dump, has %d entries", len(r.energyTrace))
	}

	path := filepath.Join(r.OutDir, "energies", "replica1.txt")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected energy trace file %s: %v", path, err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
	}
	if lines != 5 {
		t.Errorf("energy trace has %d lines, want 5", lines)
	}

	// A second dump with a fresh window must append, not overwrite.
	if _, _, _, err := r.Dispatch(context.Background(), "master", message.SampleRequest{Sender: "master"}); err != nil {
		t.Fatalf("sample: %v", err)
	}
	if _, _, _, err := r.Dispatch(context.Background(), "master", message.DumpSamplesRequest{
		Sender: "master", SMin: 5, SMax: 6, Offset: 0, DumpStep: 1,
	}); err != nil {
		t.Fatalf("Dispatch(DumpSamplesRequest): %v", err)
	}

	f2, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen %s: %v", path, err)
	}
	defer f2.Close()
	lines = 0
	sc2 := bufio.NewScanner(f2)
	for sc2.Scan() {
		lines++
	}
	if lines != 6 {
		t.Errorf("energy trace after second dump has %d lines, want 6 (append, not overwrite)", lines)
	}
}
