package statetab

import (
	"io/ioutil"
	"os"
	"strings"
	"testing"
)

func TestBuilderInterning(t *testing.T) {
	b := NewBuilder()
	seq1 := []HMMState{{1, 10}, {2, 11}, {3, 12}}
	seq2 := []HMMState{{1, 10}, {2, 11}}

	id1 := b.Add(seq1, true, true)
	id1Again := b.Add(seq1, true, true)
	if id1 != id1Again {
		t.Errorf("expected interning to return the same id; got %d and %d", id1, id1Again)
	}

	id2 := b.Add(seq2, true, false)
	if id2 == id1 {
		t.Errorf("distinct sequences got the same id %d", id1)
	}

	store := b.Build()
	if store.NumSequences() != 2 {
		t.Errorf("expected 2 sequences; got %d", store.NumSequences())
	}
	if store.Len(id1) != 3 {
		t.Errorf("expected sequence 1 to have 3 states; got %d", store.Len(id1))
	}
	if !store.IsInitial(id1) || !store.IsFinal(id1) {
		t.Errorf("sequence 1 should be initial and final")
	}
	if !store.IsInitial(id2) || store.IsFinal(id2) {
		t.Errorf("sequence 2 should be initial but not final")
	}
	for i, want := range seq1 {
		e, tr := store.State(id1, i)
		if e != want.Emission || tr != want.Transition {
			t.Errorf("state %d: expected %+v; got (%d, %d)", i, want, e, tr)
		}
	}
}

func TestDisambiguators(t *testing.T) {
	b := NewBuilder()
	b.Add([]HMMState{{1, 10}}, true, true)
	base := b.AddDisambiguators(3)
	store := b.BuildWithDisambiguatorBase(base)
	if store.NumSequences() != 4 {
		t.Fatalf("expected 4 sequences; got %d", store.NumSequences())
	}
	if store.DisambiguatorBase() != base {
		t.Errorf("expected disambiguator base %d; got %d", base, store.DisambiguatorBase())
	}
	for id := base; int(id) < store.NumSequences(); id++ {
		if !store.IsDisambiguator(id) {
			t.Errorf("id %d should be a disambiguator", id)
		}
		if store.Len(id) != 0 {
			t.Errorf("disambiguator %d should have zero length; got %d", id, store.Len(id))
		}
	}
	if store.IsDisambiguator(0) {
		t.Errorf("id 0 should not be a disambiguator")
	}
}

const htkList = `
A 3 1 0 0 0 1 0 2 0
B 3 1 1 3 1 4 1 5 1
`

func TestFromHTKList(t *testing.T) {
	store, names, err := FromHTKList(strings.NewReader(htkList))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names; got %d", len(names))
	}
	if names[0].Name != "A" || names[1].Name != "B" {
		t.Errorf("unexpected names: %+v", names)
	}
	if store.NumSequences() != 2 {
		t.Errorf("expected 2 sequences; got %d", store.NumSequences())
	}
	if !store.IsInitial(names[0].Id) || store.IsFinal(names[0].Id) {
		t.Errorf("A should be initial but not final")
	}
	if !store.IsInitial(names[1].Id) || !store.IsFinal(names[1].Id) {
		t.Errorf("B should be both initial and final")
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.Add([]HMMState{{1, 10}, {2, 11}, {3, 12}}, true, false)
	b.Add([]HMMState{{4, 13}}, false, true)
	base := b.AddDisambiguators(2)
	store := b.BuildWithDisambiguatorBase(base)

	f, err := ioutil.TempFile("", "statetab.")
	if err != nil {
		t.Fatalf("error creating temp file: %v", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := store.WriteBinary(path); err != nil {
		t.Fatalf("error writing binary: %v", err)
	}

	loaded, backing, err := FromBinary(path)
	if err != nil {
		t.Fatalf("error loading binary: %v", err)
	}
	defer backing.Close()

	if loaded.NumSequences() != store.NumSequences() {
		t.Fatalf("expected %d sequences; got %d", store.NumSequences(), loaded.NumSequences())
	}
	for id := Id(0); int(id) < store.NumSequences(); id++ {
		if loaded.Len(id) != store.Len(id) {
			t.Errorf("sequence %d: length mismatch", id)
		}
		if loaded.IsInitial(id) != store.IsInitial(id) || loaded.IsFinal(id) != store.IsFinal(id) {
			t.Errorf("sequence %d: flag mismatch", id)
		}
		for i := 0; i < store.Len(id); i++ {
			e1, t1 := store.State(id, i)
			e2, t2 := loaded.State(id, i)
			if e1 != e2 || t1 != t2 {
				t.Errorf("sequence %d state %d: expected (%d,%d); got (%d,%d)", id, i, e1, t1, e2, t2)
			}
		}
	}
	if loaded.DisambiguatorBase() != store.DisambiguatorBase() {
		t.Errorf("expected disambiguator base %d; got %d", store.DisambiguatorBase(), loaded.DisambiguatorBase())
	}
}
