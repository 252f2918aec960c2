package main

import (
	"encoding/gob"
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/kho/lvcsr/lm"
)

// build-lm compiles an ARPA back-off language model, read from
// standard input, into the Hashed finite-state representation used
// by the decoder's look-ahead and rescoring stages. The result is
// written to standard output as a gob stream, which lm.FromGob reads
// back.
func main() {
	scale := flag.Float64("lm.scale", 1.5, "scale multiplier for deciding the hash table size")
	easy.ParseFlagsAndArgs(nil)

	model, err := lm.FromARPA(os.Stdin, *scale)
	if err != nil {
		glog.Fatal(err)
	}
	if err := gob.NewEncoder(os.Stdout).Encode(*model); err != nil {
		glog.Fatal(err)
	}
}
