// recognize runs the beam-search decoder (C5) over a precomputed
// per-frame acoustic score table, against a compressed network and
// state-sequence store, printing the best output-label sequence or,
// with -lattice, writing a lattice file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/kho/lvcsr/acoustic"
	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/network"
	"github.com/kho/lvcsr/search"
	"github.com/kho/lvcsr/statetab"
	"github.com/kho/lvcsr/trace"
	"github.com/kho/lvcsr/wfstio"
)

func main() {
	var args struct {
		Network  string `name:"network" usage:"compressed network file"`
		States   string `name:"states" usage:"state-sequence file"`
		Features string `name:"features" usage:"per-frame acoustic score table (one frame per line, space-separated scores)"`
	}
	beam := flag.Float64("beam", 0, "beam pruning width (0 disables)")
	pruningLimit := flag.Int("pruning-limit", 0, "histogram pruning limit (0 disables)")
	latticeOut := flag.String("lattice", "", "if set, write a lattice file here instead of printing the best path")
	latticeBeam := flag.Float64("lattice-beam", 0, "lattice-beam width used when -lattice is set")
	easy.ParseFlagsAndArgs(&args)

	net, netBacking, err := wfstio.ReadCompressed(args.Network)
	if err != nil {
		glog.Fatal("recognize: error loading network: ", err)
	}
	defer netBacking.Close()

	states, statesBacking, err := statetab.FromBinary(args.States)
	if err != nil {
		glog.Fatal("recognize: error loading state table: ", err)
	}
	defer statesBacking.Close()

	frames, err := loadFeatures(args.Features)
	if err != nil {
		glog.Fatal("recognize: error loading features: ", err)
	}
	scorer := acoustic.NewFixedScorer(frames)
	model := acoustic.NewFixedModel(len(frames[0]), scorer)

	var rec trace.Recorder
	var latRec *trace.Lattice
	if *latticeOut != "" {
		latRec = trace.NewLattice(label.Weight(*latticeBeam))
		rec = latRec
	} else {
		rec = trace.NewFirstBest()
	}

	opts := search.Options{
		Beam:         label.Weight(*beam),
		PruningLimit: *pruningLimit,
	}
	dec := search.NewDecoder(network.OfCompressed(net), states, model, rec, opts)
	for t := 0; t < scorer.NumFrames(); t++ {
		dec.Step(t, scorer.ScorerAt(t))
	}
	final := dec.End()
	if final == trace.NoRef {
		fmt.Fprintln(os.Stderr, "recognize: no hypothesis found")
		os.Exit(2)
	}

	if latRec != nil {
		l := latRec.CreateLattice(final, dec.FinalWeight())
		if err := wfstio.WriteLattice(*latticeOut, l); err != nil {
			glog.Fatal("recognize: error writing lattice: ", err)
		}
		return
	}

	path := rec.CreateBestPath(final, false)
	words := make([]string, len(path))
	for i, e := range path {
		words[i] = strconv.FormatUint(uint64(e.Output), 10)
	}
	fmt.Println(strings.Join(words, " "))
}

func loadFeatures(path string) (frames [][]float32, err error) {
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
		row := make([]float32, len(fields))
		for i, s := range fields {
			v, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("bad score %q: %w", s, err)
			}
			row[i] = float32(v)
		}
		frames = append(frames, row)
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("empty feature file")
	}
	return frames, nil
}
