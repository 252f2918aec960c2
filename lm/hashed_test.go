package lm

import (
	"bytes"
	"testing"

	"github.com/kho/lvcsr/label"
	"github.com/kho/word"
)

func TestHashedSimple(t *testing.T) {
	hashedTest(simpleTrigramLM, simpleTrigramSents, t)
}

func TestHashedSparse(t *testing.T) {
	hashedTest(sparseFivegramLM, sparseFivegramSents, t)
}

func TestHashedSparser(t *testing.T) {
	hashedTest(sparserFivegramLM, sparserFivegramSents, t)
}

func TestHashedTrickyBackOff(t *testing.T) {
	hashedTest(trickyBackOffLM, trickyBackOffSents, t)
}

// TestHashedOOVIsLabelZero checks that an out-of-vocabulary query
// comes back as exactly label.Zero, not merely some large cost, so
// that a Hashed model's weight composes with acoustic and network
// costs the same way any other tropical-weight source does.
func TestHashedOOVIsLabelZero(t *testing.T) {
	model := readyBuilder(simpleTrigramLM).DumpHashed(0)
	_, w := model.NextI(model.Start(), word.Id(1<<20))
	if w != label.Zero {
		t.Errorf("expected OOV cost %v; got %v", label.Zero, w)
	}
}

func hashedTest(lm []ngram, sents [][]token, t *testing.T) {
	builder := readyBuilder(lm)

	var buf bytes.Buffer
	buf.WriteString("builder LM:\n")
	builder.Graphviz(&buf)
	model := builder.DumpHashed(0)

	buf.WriteString("model LM:\n")
	Graphviz(model, &buf)
	t.Log(buf.String())

	if err := checkModel(model); err != nil {
		t.Errorf("check model failed with error %v", err)
	}

	sentTest(model, sents, t)
}
