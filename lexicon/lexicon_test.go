package lexicon

import "testing"

func TestLemmaAndPronunciation(t *testing.T) {
	l := New()
	cat := l.AddLemma("cat", false)
	sil := l.AddLemma("<sil>", true)

	catPron := l.AddPronunciation(cat, "cat(1)", []string{"K", "AE", "T"})
	phonemes := l.PhonemesOf(catPron)
	if len(phonemes) != 3 {
		t.Fatalf("expected 3 phonemes; got %d", len(phonemes))
	}
	for i, want := range []string{"K", "AE", "T"} {
		if l.Phonemes.StringOf(phonemes[i]) != want {
			t.Errorf("phoneme %d = %q, want %q", i, l.Phonemes.StringOf(phonemes[i]), want)
		}
	}

	prons := l.PronunciationsOf(cat)
	if len(prons) != 1 || prons[0] != catPron {
		t.Fatalf("unexpected pronunciations for cat: %v", prons)
	}

	nonWord := l.NonWordLemmas()
	if len(nonWord) != 1 || nonWord[0] != sil {
		t.Fatalf("expected <sil> to be the only non-word lemma; got %v", nonWord)
	}
}

func TestMultiplePronunciationVariants(t *testing.T) {
	l := New()
	the := l.AddLemma("the", false)
	p1 := l.AddPronunciation(the, "the(1)", []string{"DH", "AH"})
	p2 := l.AddPronunciation(the, "the(2)", []string{"DH", "IY"})

	prons := l.PronunciationsOf(the)
	if len(prons) != 2 || prons[0] != p1 || prons[1] != p2 {
		t.Fatalf("expected both pronunciation variants in insertion order; got %v", prons)
	}
}
