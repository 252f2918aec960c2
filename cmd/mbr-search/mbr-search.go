// mbr-search runs minimum Bayes risk search (C7) against a posterior
// distribution of recognition hypotheses: either the N-best list
// engine over a flat hypothesis file, or the A* engine searching a
// lattice's word-prefix tree against a reference posterior, the same
// thin-CLI shape as cmd/recognize.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/mbr"
	"github.com/kho/lvcsr/wfstio"
)

func main() {
	var args struct {
		Hypotheses string `name:"hypotheses" usage:"hypothesis file: one 'posterior word...' line each"`
	}
	mode := flag.String("mode", "nbest", "search engine: nbest or astar")
	latticePath := flag.String("lattice", "", "lattice file to search (required for -mode=astar)")
	maxStackSize := flag.Int("max-stack-size", 0, "A* histogram pruning cap per prefix length (0 disables)")
	easy.ParseFlagsAndArgs(&args)

	refs, err := loadHypotheses(args.Hypotheses)
	if err != nil {
		glog.Fatal("mbr-search: error loading hypotheses: ", err)
	}

	var best mbr.Hypothesis
	switch *mode {
	case "nbest":
		best = mbr.NBest(refs)
	case "astar":
		if *latticePath == "" {
			glog.Fatal("mbr-search: -lattice is required for -mode=astar")
		}
		l, backing, err := wfstio.ReadLattice(*latticePath)
		if err != nil {
			glog.Fatal("mbr-search: error loading lattice: ", err)
		}
		defer backing.Close()
		best = mbr.AStar(l, refs, mbr.Options{MaximumStackSize: *maxStackSize})
	default:
		glog.Fatalf("mbr-search: unknown mode %q", *mode)
	}

	if best.Words == nil && best.Posterior == 0 {
		fmt.Fprintln(os.Stderr, "mbr-search: no hypothesis found")
		os.Exit(2)
	}
	words := make([]string, len(best.Words))
	for i, w := range best.Words {
		words[i] = strconv.FormatUint(uint64(w), 10)
	}
	fmt.Println(strings.Join(words, " "))
}

// loadHypotheses reads lines of "posterior word..." where posterior
// is a plain probability in (0, 1], converting it to the log-semiring
// weight mbr.Hypothesis carries.
func loadHypotheses(path string) (hyps []mbr.Hypothesis, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	in := bufio.NewScanner(f)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		p, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("bad posterior %q: %w", fields[0], err)
		}
		words := make([]label.Label, len(fields)-1)
		for i, s := range fields[1:] {
			v, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad word id %q: %w", s, err)
			}
			words[i] = label.Label(v)
		}
		hyps = append(hyps, mbr.Hypothesis{Words: words, Posterior: label.LogWeight(-math.Log(p))})
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	if len(hyps) == 0 {
		return nil, fmt.Errorf("empty hypothesis file")
	}
	return hyps, nil
}
