package lm

import (
	"bytes"
	"encoding/gob"
	"errors"
	"github.com/kho/easy"
	"github.com/kho/stream"
	"io"
)

func FromGob(in io.Reader) (*Hashed, error) {
	var m Hashed
	if err := gob.NewDecoder(in).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func FromGobFile(path string) (*Hashed, error) {
	in, err := easy.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return FromGob(in)
}

func FromARPA(in io.Reader, scale float64) (*Hashed, error) {
	builder := NewBuilder(nil, "", "")
	if err := stream.Run(stream.EnumRead(in, lineSplit), arpaTop{builder}); err != nil {
		return nil, err
	}
	return builder.DumpHashed(scale), nil
}

func FromARPAFile(path string, scale float64) (*Hashed, error) {
	in, err := easy.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return FromARPA(in, scale)
}

// FromBinary mmaps path and loads whichever of the two binary model
// kinds it holds, dispatching on the magic prefix shared by
// Hashed.WriteBinary and Sorted.WriteBinary. The returned kind is one
// of ModelHashed or ModelSorted; model is a *Hashed or *Sorted
// accordingly. backing must be closed once model is no longer needed.
func FromBinary(path string) (kind int, model IterableModel, backing *MappedFile, err error) {
	backing, err = OpenMappedFile(path)
	if err != nil {
		return
	}
	switch {
	case bytes.HasPrefix(backing.data, []byte(magicHashed)):
		var m Hashed
		if err = m.unsafeParseBinary(backing.data); err != nil {
			backing.Close()
			backing = nil
			return
		}
		kind, model = ModelHashed, &m
	case bytes.HasPrefix(backing.data, []byte(magicSorted)):
		var m Sorted
		if err = m.UnsafeParseBinary(backing.data); err != nil {
			backing.Close()
			backing = nil
			return
		}
		kind, model = ModelSorted, &m
	default:
		backing.Close()
		backing = nil
		err = errors.New("not a language model binary file")
	}
	return
}
