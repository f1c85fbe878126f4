package statistics

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// replicaSuffix parses the numeric suffix off a "replicaN" name, the
// sort key every console/file writer below uses. Grounded on
// original_source/rexfw/statistics/writers/__init__.py, which does the
// same via Python slicing (x[len('replica'):]).
func replicaSuffix(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "replica"))
	if err != nil {
		return 0
	}
	return n
}

func sortByReplicaSuffix(elements []LoggedQuantity) []LoggedQuantity {
	out := append([]LoggedQuantity(nil), elements...)
	sort.SliceStable(out, func(i, j int) bool {
		return replicaSuffix(out[i].Origins()[0]) < replicaSuffix(out[j].Origins()[0])
	})
	return out
}

func sortByMinReplicaSuffix(elements []LoggedQuantity) []LoggedQuantity {
	minSuffix := func(q LoggedQuantity) int {
		m := replicaSuffix(q.Origins()[0])
		for _, o := range q.Origins()[1:] {
			if s := replicaSuffix(o); s < m {
				m = s
			}
		}
		return m
	}
	out := append([]LoggedQuantity(nil), elements...)
	sort.SliceStable(out, func(i, j int) bool { return minSuffix(out[i]) < minSuffix(out[j]) })
	return out
}

func groupByVariable(elements []LoggedQuantity) (names []string, groups map[string][]LoggedQuantity) {
	groups = make(map[string][]LoggedQuantity)
	seen := make(map[string]bool)
	for _, e := range elements {
		v := e.VariableName()
		if !seen[v] {
			seen[v] = true
			names = append(names, v)
		}
		groups[v] = append(groups[v], e)
	}
	return names, groups
}

// ConsoleMCMCWriter reproduces StandardConsoleMCMCStatisticsWriter: a
// step banner, then one "<variable>  <quantity name>:" block per
// variable with one formatted value per replica, replicas sorted by
// numeric suffix ascending.
type ConsoleMCMCWriter struct {
	Out *os.File
}

func NewConsoleMCMCWriter() *ConsoleMCMCWriter { return &ConsoleMCMCWriter{Out: os.Stdout} }

func (w *ConsoleMCMCWriter) Write(step int, elements []LoggedQuantity) {
	out := w.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "######### MC step: %d #########\n", step)

	names, groups := groupByVariable(elements)
	for _, name := range names {
		if name == "" {
			continue
		}
		byQuantity := make(map[string][]LoggedQuantity)
		var order []string
		for _, q := range groups[name] {
			if !contains(order, q.Name()) {
				order = append(order, q.Name())
			}
			byQuantity[q.Name()] = append(byQuantity[q.Name()], q)
		}
		for _, qname := range order {
			qs := sortByReplicaSuffix(byQuantity[qname])
			fmt.Fprintf(out, "%-10s %16s: ", name, qname)
			for _, q := range qs {
				fmt.Fprintf(out, "%s ", formatMCMCValue(q))
			}
			fmt.Fprintln(out)
		}
	}
}

func formatMCMCValue(q LoggedQuantity) string {
	switch {
	case strings.Contains(q.Name(), "acceptance rate"):
		return fmt.Sprintf("%.3f  ", q.CurrentValue())
	case strings.Contains(q.Name(), "stepsize"):
		if ss, ok := q.(*MCMCStepsize); ok && !ss.Known() {
			return "n/a"
		}
		return fmt.Sprintf("%.2e", q.CurrentValue())
	default:
		return fmt.Sprintf("%v", q.CurrentValue())
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// ConsoleREWriter reproduces StandardConsoleREStatisticsWriter: no step
// banner, a fixed "%-10s %16s:" header filled with "RE" and
// "acceptance rate" (the same layout as ConsoleMCMCWriter), sorted by the
// minimum replica suffix in each pair.
type ConsoleREWriter struct {
	Out *os.File
}

func NewConsoleREWriter() *ConsoleREWriter { return &ConsoleREWriter{Out: os.Stdout} }

func (w *ConsoleREWriter) Write(step int, elements []LoggedQuantity) {
	out := w.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "%-10s %16s: ", "RE", "acceptance rate")
	for _, q := range sortByMinReplicaSuffix(elements) {
		fmt.Fprintf(out, "%.3f  ", q.CurrentValue())
	}
	fmt.Fprintln(out)
}

// FileMCMCWriter writes one TSV row per status step: "<step>\t<v1>\t…",
// replicas sorted the same way as ConsoleMCMCWriter, opening the file
// in append mode on every call rather than holding the handle open —
// matching the original's open/write/close-per-call discipline so a
// crash mid-run leaves a valid, readable prefix.
type FileMCMCWriter struct {
	Path string
}

func NewFileMCMCWriter(path string) *FileMCMCWriter { return &FileMCMCWriter{Path: path} }

func (w *FileMCMCWriter) Write(step int, elements []LoggedQuantity) {
	f, err := os.OpenFile(w.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	defer bw.Flush()

	fmt.Fprintf(bw, "%d\t", step)
	for _, q := range sortByReplicaSuffix(elements) {
		fmt.Fprintf(bw, "%v\t", q.CurrentValue())
	}
	fmt.Fprintln(bw)
}

// FileREWriter writes one TSV row per status step of pairwise
// acceptance rates, sorted by minimum replica suffix.
type FileREWriter struct {
	Path string
}

func NewFileREWriter(path string) *FileREWriter { return &FileREWriter{Path: path} }

func (w *FileREWriter) Write(step int, elements []LoggedQuantity) {
	f, err := os.OpenFile(w.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	defer bw.Flush()

	fmt.Fprintf(bw, "%d\t", step)
	for _, q := range sortByMinReplicaSuffix(elements) {
		fmt.Fprintf(bw, "%v\t", q.CurrentValue())
	}
	fmt.Fprintln(bw)
}

// WorksHeatsWriter persists one JSON-lines file per pair holding that
// pair's full ordered work (or heat) history — replacing the original's
// per-pair pickle.dump, same format-is-implementation-chosen rationale
// as the replica sample dumps (§4.6).
type WorksHeatsWriter struct {
	OutDir string
	Kind   string // "works" or "heats"
}

func NewWorksWriter(outDir string) *WorksHeatsWriter { return &WorksHeatsWriter{OutDir: outDir, Kind: "works"} }
func NewHeatsWriter(outDir string) *WorksHeatsWriter { return &WorksHeatsWriter{OutDir: outDir, Kind: "heats"} }

func (w *WorksHeatsWriter) Write(step int, elements []LoggedQuantity) {
	for _, q := range elements {
		rs, ok := q.(*rawSample)
		if !ok {
			continue
		}
		path := fmt.Sprintf("%s/%s_%s-%s.jsonl", w.OutDir, w.Kind, rs.replicaA, rs.replicaB)
		f, err := os.Create(path)
		if err != nil {
			continue
		}
		bw := bufio.NewWriter(f)
		for _, v := range rs.Values() {
			fmt.Fprintf(bw, "%.17g\n", v)
		}
		bw.Flush()
		f.Close()
	}
}
