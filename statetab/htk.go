package statetab

// FromHTKList parses an HTK-style HMM list and builds the minimal
// interned Store, using github.com/kho/stream's line-oriented
// iteratee combinators so the file streams through without buffering
// more than one line.
//
// Each non-blank line describes one allophone (there is no comment
// syntax):
//
//	name numStates initial final e0 t0 e1 t1 ... e(n-1) t(n-1)
//
// where initial/final are "0" or "1" and each (ei, ti) pair is the
// emission and transition-model id of one HMM state. Lines are
// whitespace-delimited; leading/trailing space is ignored; blank
// lines are skipped. name is returned alongside the interned id so
// callers can build a name-to-id lookup.

import (
	"fmt"
	"io"
	"strconv"

	"github.com/kho/stream"
)

// NamedId pairs an allophone name with its interned sequence id.
type NamedId struct {
	Name string
	Id   Id
}

func FromHTKList(in io.Reader) (*Store, []NamedId, error) {
	builder := NewBuilder()
	var names []NamedId
	it := htkList{builder, &names}
	if err := stream.Run(stream.EnumRead(in, lineSplit), it); err != nil {
		return nil, nil, err
	}
	return builder.Build(), names, nil
}

type htkList struct {
	builder *Builder
	names   *[]NamedId
}

func (it htkList) Final() error { return nil }

func (it htkList) Next(line []byte) (stream.Iteratee, bool, error) {
	name, rest, err := parseHTKLine(line)
	if err != nil {
		return nil, false, err
	}
	id := it.builder.Add(rest.states, rest.initial, rest.final)
	*it.names = append(*it.names, NamedId{name, id})
	return it, true, nil
}

type htkEntry struct {
	states         []HMMState
	initial, final bool
}

func parseHTKLine(line []byte) (name string, entry htkEntry, err error) {
	x, xs := tokenSplit(line)
	if x == "" {
		err = stream.ErrExpect("allophone name")
		return
	}
	name = x

	x, xs = tokenSplit(xs)
	n, convErr := strconv.Atoi(x)
	if convErr != nil || n <= 0 {
		err = stream.ErrExpect("positive state count")
		return
	}

	x, xs = tokenSplit(xs)
	entry.initial = x == "1"

	x, xs = tokenSplit(xs)
	entry.final = x == "1"

	entry.states = make([]HMMState, n)
	for i := 0; i < n; i++ {
		var e, t string
		e, xs = tokenSplit(xs)
		t, xs = tokenSplit(xs)
		if e == "" || t == "" {
			err = stream.ErrExpect(fmt.Sprintf("emission/transition pair %d", i))
			return
		}
		ei, convErr := strconv.ParseUint(e, 10, 32)
		if convErr != nil {
			err = convErr
			return
		}
		ti, convErr := strconv.ParseUint(t, 10, 32)
		if convErr != nil {
			err = convErr
			return
		}
		entry.states[i] = HMMState{uint32(ei), uint32(ti)}
	}
	if len(xs) != 0 {
		err = stream.ErrExpect("end of line")
		return
	}
	return
}
