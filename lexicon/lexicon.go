// Package lexicon implements the decoder's external lexicon contract:
// alphabets for phonemes, lemmas, lemma-pronunciations and syntactic
// tokens, pronunciation iteration, symbol lookup and non-word lemma
// identification. Each alphabet is an ordered, constant-time-indexed
// symbol set built on github.com/kho/word's vocabulary type.
package lexicon

import "github.com/kho/word"

// Lexicon holds the four alphabets C1-C8 (and the network builder
// external to this package) read symbols from, plus the mapping from
// lemma to its pronunciation variants and pronunciation to its
// phoneme sequence.
type Lexicon struct {
	Phonemes        *word.Vocab
	Lemmas          *word.Vocab
	Pronunciations  *word.Vocab
	SyntacticTokens *word.Vocab

	pronPhonemes []word.Id   // per pronunciation id, flattened with pronOffsets
	pronOffsets  []int
	lemmaPron    [][]word.Id // per lemma id, its pronunciation variants
	nonWord      []bool      // per lemma id
}

func New() *Lexicon {
	return &Lexicon{
		Phonemes:        word.NewVocab(nil),
		Lemmas:          word.NewVocab(nil),
		Pronunciations:  word.NewVocab(nil),
		SyntacticTokens: word.NewVocab(nil),
		pronOffsets:     []int{0},
	}
}

// AddLemma interns a lemma, recording whether it is a non-word (e.g.
// silence, noise, sentence-boundary) lemma per NonWordLemmas.
func (l *Lexicon) AddLemma(name string, isNonWord bool) word.Id {
	id := l.Lemmas.IdOrAdd(name)
	for int(id) >= len(l.lemmaPron) {
		l.lemmaPron = append(l.lemmaPron, nil)
		l.nonWord = append(l.nonWord, false)
	}
	l.nonWord[id] = l.nonWord[id] || isNonWord
	return id
}

// AddPronunciation interns a new lemma-pronunciation for lemma,
// spelled as the given phoneme symbols, and returns its
// lemma-pronunciation id.
func (l *Lexicon) AddPronunciation(lemma word.Id, name string, phonemes []string) word.Id {
	pronId := l.Pronunciations.IdOrAdd(name)
	for _, ph := range phonemes {
		l.pronPhonemes = append(l.pronPhonemes, l.Phonemes.IdOrAdd(ph))
	}
	l.pronOffsets = append(l.pronOffsets, len(l.pronPhonemes))
	for int(lemma) >= len(l.lemmaPron) {
		l.lemmaPron = append(l.lemmaPron, nil)
		l.nonWord = append(l.nonWord, false)
	}
	l.lemmaPron[lemma] = append(l.lemmaPron[lemma], pronId)
	return pronId
}

// PronunciationsOf returns every lemma-pronunciation variant of lemma.
func (l *Lexicon) PronunciationsOf(lemma word.Id) []word.Id {
	if int(lemma) >= len(l.lemmaPron) {
		return nil
	}
	return l.lemmaPron[lemma]
}

// PhonemesOf returns the phoneme sequence spelling pronunciation pron.
func (l *Lexicon) PhonemesOf(pron word.Id) []word.Id {
	return l.pronPhonemes[l.pronOffsets[pron]:l.pronOffsets[pron+1]]
}

// NonWordLemmas returns every lemma marked non-word by AddLemma (e.g.
// silence, noise and sentence-boundary lemmas that do not contribute
// a word to recognition output).
func (l *Lexicon) NonWordLemmas() []word.Id {
	var ids []word.Id
	for i, nw := range l.nonWord {
		if nw {
			ids = append(ids, word.Id(i))
		}
	}
	return ids
}
