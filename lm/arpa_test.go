package lm

import (
	"bufio"
	"fmt"
	"strings"
	"testing"
)

const simpleTrigramARPA = `
\data\
ngram 1=4
ngram 2=2
ngram 3=2

\1-grams:
` + "-99\t<s>\t-1" + `
-0.01	</s>
-2	a	-1
-4	b	-2

\2-grams:
-1	<s> a	-0.5
-2	a b	-1

\3-grams:
-1.5	<s> a b
-0.001	a b </s>

\end\
`

func TestFromARPA(t *testing.T) {
	model, err := FromARPA(strings.NewReader(simpleTrigramARPA), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sentTest(model, simpleTrigramSents, t)
}

func Test_lineSplit(t *testing.T) {
	for _, i := range []struct {
		Data  string
		Lines []string
	}{
		{"a\nb\n", []string{"a", "b"}},
		{"ab\ncd", []string{"ab", "cd"}},
		{" \tab\ncd \n", []string{"ab", "cd"}},
		{"\nab\n\ncd\n\n", []string{"ab", "cd"}},
		{"", nil},
		{"\n\n\n\n", nil},
	} {
		in := bufio.NewScanner(strings.NewReader(i.Data))
		in.Split(lineSplit)
		var lines []string
		for in.Scan() {
			lines = append(lines, in.Text())
		}
		if err := in.Err(); err != nil {
			t.Errorf("case %q: unexpected error: %v", i.Data, err)
		}
		if len(lines) != len(i.Lines) {
			t.Errorf("case %q: expect %d lines; got %q", i.Data, len(i.Lines), lines)
		} else {
			for j, l := range i.Lines {
				if l != lines[j] {
					t.Errorf("case %q: expect %q as line %d; got %q", i.Data, l, j+1, lines[j])
				}
			}
		}
	}
}

func Test_tokenSplit(t *testing.T) {
	for _, i := range []struct {
		Line   string
		Tokens []string
	}{
		{"a b c", []string{"a", "b", "c"}},
		{"ab cd", []string{"ab", "cd"}},
		{"", nil},
		{"ab \t cd", []string{"ab", "cd"}},
		{"ab cd \t ", []string{"ab", "cd"}},
	} {
		var tokens []string
		for x, xs := tokenSplit([]byte(i.Line)); x != ""; x, xs = tokenSplit(xs) {
			tokens = append(tokens, x)
		}
		if len(i.Tokens) != len(tokens) {
			t.Errorf("case %q: expect %d tokens; got %q", i.Line, len(i.Tokens), tokens)
		} else {
			for j, a := range i.Tokens {
				if a != tokens[j] {
					t.Errorf("case %q: expect %q as token %d; got %q", i.Line, a, j+1, tokens[j])
				}
			}
		}
	}
}

func Test_ngramEntries_setParts(t *testing.T) {
	for _, i := range []struct {
		N      int
		Line   string
		Err    bool
		P, BOW Weight
		Word   string
	}{
		{1, "-1 a -2", false, 1, 2, "a"},
		{1, "-1 ab", false, 1, 0, "ab"},
		{2, "-1 ab cd -2", false, 1, 2, "cd"},
		{1, "-1 -2", false, 1, 0, "-2"},
		{N: 3, Line: "-1 ab cd", Err: true},
		{N: 1, Line: "", Err: true},
		{N: 2, Line: "-1", Err: true},
		{N: 2, Line: "-1 ab cd -4 -5", Err: true},
	} {
		it := newNgramEntries(i.N, nil)
		err := it.setParts([]byte(i.Line))
		if i.Err && err == nil {
			t.Errorf("case %+v: expect error", i)
		}
		if !i.Err && err != nil {
			t.Errorf("case %+v: unexpected error: %v", i, err)
		}
		if err == nil {
			if it.p != i.P {
				t.Errorf("case %+v: p = %g", i, it.p)
			}
			if it.bow != i.BOW {
				t.Errorf("case %+v: bow = %g", i, it.bow)
			}
			if it.word != i.Word {
				t.Errorf("case %+v: word = %q", i, it.word)
			}
		}
	}
}

func ExampleFromARPA() {
	model, _ := FromARPA(strings.NewReader(simpleTrigramARPA), 0)
	p := model.Start()
	p, w := model.NextS(p, "a")
	fmt.Println(w)
	_ = p
	// Output: -1
}
