package wfstio

import (
	"unsafe"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/lattice"
)

const latticeMagic = "#latt.bin1"

type latticeHeader struct {
	Offsets     []uint32
	Final       []label.PairWeight
	IsFinalFlag []bool
	Time        []int
	Initial     lattice.StateId
	NumArcs     int
}

// WriteLattice writes l to path in the lattice binary format: the
// per-state arc slices are flattened into one offset-addressed block,
// the same shape network.Compressed uses for its two arc blocks.
func WriteLattice(path string, l *lattice.Lattice) error {
	offsets := make([]uint32, l.NumStates()+1)
	var flat []lattice.Arc
	for s := 0; s < l.NumStates(); s++ {
		flat = append(flat, l.Arcs[s]...)
		offsets[s+1] = uint32(len(flat))
	}
	h := latticeHeader{
		Offsets:     offsets,
		Final:       l.Final,
		IsFinalFlag: l.IsFinalFlag,
		Time:        l.Time,
		Initial:     l.Initial,
		NumArcs:     len(flat),
	}
	return writeFramed(path, latticeMagic, h, unsafe.Alignof(lattice.Arc{}), rawBytesOf(flat))
}

// ReadLattice mmaps path and reconstructs a Lattice aliasing the
// mapped memory; backing must be closed once the Lattice is no
// longer needed.
func ReadLattice(path string) (l *lattice.Lattice, backing *MappedFile, err error) {
	data, backing, err := mapFile(path)
	if err != nil {
		return nil, nil, err
	}
	var h latticeHeader
	raw, err := parseFramed(data, latticeMagic, &h, unsafe.Alignof(lattice.Arc{}))
	if err != nil {
		backing.Close()
		return nil, nil, err
	}
	flat, err := sliceOf[lattice.Arc](raw, h.NumArcs)
	if err != nil {
		backing.Close()
		return nil, nil, err
	}

	n := len(h.Offsets) - 1
	arcs := make([][]lattice.Arc, n)
	for s := 0; s < n; s++ {
		arcs[s] = flat[h.Offsets[s]:h.Offsets[s+1]]
	}

	l = &lattice.Lattice{
		Arcs:        arcs,
		Final:       h.Final,
		IsFinalFlag: h.IsFinalFlag,
		Time:        h.Time,
		Initial:     h.Initial,
	}
	return l, backing, nil
}
