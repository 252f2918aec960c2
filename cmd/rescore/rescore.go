// rescore replaces one scoring dimension of a lattice file with scores
// from a richer language model (C6) via a push-forward sweep, the
// same thin-CLI shape as cmd/recognize.
package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/lm"
	"github.com/kho/lvcsr/rescore"
	"github.com/kho/lvcsr/wfstio"
)

func main() {
	var args struct {
		Lattice string `name:"lattice" usage:"input lattice file"`
		Model   string `name:"model" usage:"binary LM file"`
		Output  string `name:"output" usage:"rescored lattice file to write"`
	}
	dimFlag := flag.String("dim", "lm", "dimension to replace: am or lm")
	maxHyps := flag.Int("max-hyps", 0, "max hypotheses kept per state (0 disables)")
	pruningThreshold := flag.Float64("pruning-threshold", 0, "pruning threshold (0 disables)")
	modeFlag := flag.String("mode", "single-best", "output shape: single-best, replacement or traceback")
	easy.ParseFlagsAndArgs(&args)

	l, latBacking, err := wfstio.ReadLattice(args.Lattice)
	if err != nil {
		glog.Fatal("rescore: error loading lattice: ", err)
	}
	defer latBacking.Close()

	_, modelI, lmBacking, err := lm.FromBinary(args.Model)
	if err != nil {
		glog.Fatal("rescore: error loading LM: ", err)
	}
	defer lmBacking.Close()

	dim := rescore.DimLM
	if *dimFlag == "am" {
		dim = rescore.DimAM
	}
	mode := rescore.SingleBest
	switch *modeFlag {
	case "replacement":
		mode = rescore.ReplacementApproximation
	case "traceback":
		mode = rescore.TracebackApproximation
	}

	opts := rescore.Options{
		MaxHypotheses:    *maxHyps,
		PruningThreshold: label.Weight(*pruningThreshold),
		Mode:             mode,
	}
	out, err := rescore.Rescore(l, modelI, dim, opts)
	if err != nil {
		glog.Fatal("rescore: ", err)
	}
	if err := wfstio.WriteLattice(args.Output, out); err != nil {
		glog.Fatal("rescore: error writing output: ", err)
	}
}
