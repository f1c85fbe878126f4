package replica

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/simeoncarstens/rexfw/pkg/message"
)

// dumpSamples persists samples[::dump_step] to
// {out}/samples/samples_{name}_{s_min+offset}-{s_max+offset}.jsonl and
// appends the energy trace to {out}/energies/{name}.txt, then clears
// both in-memory buffers. JSON Lines / line-per-float text replace the
// original's pickle/npy formats: file formats here are implementation
// chosen (§1/§6), and no pickle-compatible library exists in the pack or
// the wider Go ecosystem worth reaching for. The samples/ and energies/
// directories are assumed to already exist — creating them is the
// launching cmd/rexfw subcommand's job, not this component's (§1/§6).
func (r *Replica) dumpSamples(req message.DumpSamplesRequest) error {
	samplesDir := filepath.Join(r.OutDir, "samples")
	energiesDir := filepath.Join(r.OutDir, "energies")

	name := fmt.Sprintf("samples_%s_%d-%d.jsonl", r.Name, req.SMin+req.Offset, req.SMax+req.Offset)
	if err := r.writeSamples(filepath.Join(samplesDir, name), req.DumpStep); err != nil {
		return err
	}
	r.samples = nil

	if err := r.appendEnergyTrace(filepath.Join(energiesDir, r.Name+".txt")); err != nil {
		return err
	}
	r.energyTrace = nil

	return nil
}

func (r *Replica) writeSamples(path string, dumpStep int) error {
	if dumpStep <= 0 {
		dumpStep = 1
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("replica %s: create %s: %w", r.Name, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < len(r.samples); i += dumpStep {
		if err := enc.Encode(r.samples[i]); err != nil {
			return fmt.Errorf("replica %s: encode sample %d: %w", r.Name, i, err)
		}
	}
	return w.Flush()
}

func (r *Replica) appendEnergyTrace(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("replica %s: open %s: %w", r.Name, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range r.energyTrace {
		if _, err := fmt.Fprintf(w, "%.17g\n", e); err != nil {
			return fmt.Errorf("replica %s: write energy trace: %w", r.Name, err)
		}
	}
	return w.Flush()
}
