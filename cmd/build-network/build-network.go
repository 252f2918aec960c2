// build-network compiles a text WFSN description (OpenFst's
// plain-text arc-list convention: "src dst ilabel olabel [weight]"
// per transition line, "state [weight]" for a final state, initial
// state taken from the first line's source state) into the compressed
// on-disk network container, the same way cmd/build-lm compiles ARPA
// text into an LM.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/network"
	"github.com/kho/lvcsr/wfstio"
)

func main() {
	var args struct {
		Output string `name:"output" usage:"compressed network file to write"`
	}
	easy.ParseFlagsAndArgs(&args)

	b := network.NewStaticBuilder()
	states := make(map[uint64]network.StateId)
	stateOf := func(id uint64) network.StateId {
		if s, ok := states[id]; ok {
			return s
		}
		s := b.NewState()
		states[id] = s
		return s
	}

	first := true
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		src, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			glog.Fatalf("build-network: bad state id %q: %v", fields[0], err)
		}
		from := stateOf(src)
		if first {
			b.SetInitial(from)
			first = false
		}
		switch len(fields) {
		case 1:
			b.SetFinal(from, label.One)
		case 2:
			w, err := strconv.ParseFloat(fields[1], 32)
			if err != nil {
				glog.Fatalf("build-network: bad final weight %q: %v", fields[1], err)
			}
			b.SetFinal(from, label.Weight(w))
		case 4, 5:
			dst, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				glog.Fatalf("build-network: bad state id %q: %v", fields[1], err)
			}
			to := stateOf(dst)
			ilabel := parseLabel(fields[2])
			olabel := parseLabel(fields[3])
			w := label.Weight(0)
			if len(fields) == 5 {
				f, err := strconv.ParseFloat(fields[4], 32)
				if err != nil {
					glog.Fatalf("build-network: bad arc weight %q: %v", fields[4], err)
				}
				w = label.Weight(f)
			}
			b.AddArc(from, network.Arc{Input: ilabel, Output: olabel, Weight: w, Next: to})
		default:
			glog.Fatalf("build-network: malformed line %q", line)
		}
	}
	if err := in.Err(); err != nil {
		glog.Fatal("build-network: error reading input: ", err)
	}

	static := b.Build()
	compressed := compress(static)

	if err := wfstio.WriteCompressed(args.Output, compressed); err != nil {
		glog.Fatal("build-network: error writing output: ", err)
	}
	fmt.Fprintf(os.Stderr, "build-network: %d states, %d arcs\n", compressed.NumStates(), compressed.NumArcs())
}

func parseLabel(s string) label.Label {
	if s == "eps" || s == "-" {
		return label.Epsilon
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		glog.Fatalf("build-network: bad label %q: %v", s, err)
	}
	return label.Label(v)
}

// compress recompiles a Static network's states through a
// CompressedBuilder, giving build-network's caller the packed,
// mmap-able back-end rather than the adjacency-list one, the same way
// the decoder expects to load networks at recognition time.
func compress(s *network.Static) *network.Compressed {
	cb := network.NewCompressedBuilder()
	n := s.NumStates()
	for i := 0; i < n; i++ {
		cb.NewState()
	}
	st := network.StateId(0)
	for i := 0; i < n; i++ {
		st = network.StateId(i)
		for _, arc := range s.EpsilonSuccessors(st) {
			cb.AddArc(st, arc)
		}
		for _, arc := range s.Successors(st) {
			cb.AddArc(st, arc)
		}
		cb.SetFinal(st, s.FinalWeight(st))
		if g := s.GrammarState(st); g != network.NoState {
			cb.SetGrammarState(st, g)
		}
	}
	cb.SetInitial(s.InitialState())
	return cb.Build()
}
