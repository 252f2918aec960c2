package wfstio

import (
	"unsafe"

	"github.com/kho/lvcsr/label"
	"github.com/kho/lvcsr/network"
)

const networkMagic = "#netw.bin1"

type networkHeader struct {
	NonEpsOffsets []uint32
	EpsOffsets    []uint32
	FinalWeight   []label.Weight
	GrammarState  []network.StateId
	Initial       network.StateId
	NumNonEpsArcs int
	NumEpsArcs    int
}

// WriteCompressed writes c to path in the network binary format: the
// non-epsilon and epsilon arc blocks are concatenated into one raw,
// alignment-padded region following the gob header.
func WriteCompressed(path string, c *network.Compressed) error {
	nonEpsOffsets, nonEpsArcs, epsOffsets, epsArcs, finalWeight, grammarState, initial := c.Parts()
	h := networkHeader{
		NonEpsOffsets: nonEpsOffsets,
		EpsOffsets:    epsOffsets,
		FinalWeight:   finalWeight,
		GrammarState:  grammarState,
		Initial:       initial,
		NumNonEpsArcs: len(nonEpsArcs),
		NumEpsArcs:    len(epsArcs),
	}
	raw := append(append([]byte(nil), rawBytesOf(nonEpsArcs)...), rawBytesOf(epsArcs)...)
	return writeFramed(path, networkMagic, h, unsafe.Alignof(network.Arc{}), raw)
}

// ReadCompressed mmaps path and reconstructs a Compressed aliasing
// the mapped memory; backing must be closed once the Compressed is no
// longer needed.
func ReadCompressed(path string) (c *network.Compressed, backing *MappedFile, err error) {
	data, backing, err := mapFile(path)
	if err != nil {
		return nil, nil, err
	}
	var h networkHeader
	raw, err := parseFramed(data, networkMagic, &h, unsafe.Alignof(network.Arc{}))
	if err != nil {
		backing.Close()
		return nil, nil, err
	}
	nonEpsArcs, err := sliceOf[network.Arc](raw, h.NumNonEpsArcs)
	if err != nil {
		backing.Close()
		return nil, nil, err
	}
	nonEpsBytes := int(unsafe.Sizeof(network.Arc{})) * h.NumNonEpsArcs
	epsArcs, err := sliceOf[network.Arc](raw[nonEpsBytes:], h.NumEpsArcs)
	if err != nil {
		backing.Close()
		return nil, nil, err
	}
	c = network.NewCompressedFromParts(h.NonEpsOffsets, nonEpsArcs, h.EpsOffsets, epsArcs, h.FinalWeight, h.GrammarState, h.Initial)
	return c, backing, nil
}
