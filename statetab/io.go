package statetab

// Binary on-disk format for the state-sequence file: a 10-byte magic,
// a gob-encoded header (offsets, flags, disambiguator base), then the
// flat HMMState array written as raw, alignment-padded bytes and read
// back with an unsafe cast so a large table mmaps in without a copy.

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"reflect"
	"syscall"
	"unsafe"
)

const magic = "#stab.bin1"

type header struct {
	Offsets           []uint32
	Flags             []uint8
	DisambiguatorBase Id
}

func (s *Store) encodeHeader() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	h := header{s.offsets, s.flags, s.disambiguatorBase}
	if err := enc.Encode(h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeHeader(data []byte) (header, error) {
	var h header
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&h); err != nil {
		return header{}, err
	}
	return h, nil
}

// WriteBinary writes the store to path in the state-sequence file
// format.
func (s *Store) WriteBinary(path string) (err error) {
	w, err := os.Create(path)
	if err != nil {
		return
	}
	defer w.Close()
	if _, err = w.Write([]byte(magic)); err != nil {
		return
	}
	h, err := s.encodeHeader()
	if err != nil {
		return
	}
	lenBytes := make([]byte, binary.MaxVarintLen64)
	binary.PutUvarint(lenBytes, uint64(len(h)))
	if _, err = w.Write(lenBytes); err != nil {
		return
	}
	if _, err = w.Write(h); err != nil {
		return
	}
	written, err := w.Seek(0, 1)
	if err != nil {
		return
	}
	align := unsafe.Alignof(HMMState{})
	if _, err = w.Write(make([]byte, align-uintptr(written)%align)); err != nil {
		return
	}
	size := unsafe.Sizeof(HMMState{})
	statesHeader := (*reflect.SliceHeader)(unsafe.Pointer(&s.states))
	var raw []byte
	rawHeader := (*reflect.SliceHeader)(unsafe.Pointer(&raw))
	rawHeader.Data = statesHeader.Data
	rawHeader.Len = int(uintptr(statesHeader.Len) * size)
	rawHeader.Cap = rawHeader.Len
	_, err = w.Write(raw)
	return
}

// unsafeParseBinary parses raw (typically an mmapped file's contents)
// in place: the resulting Store's states slice aliases raw, so raw
// must outlive the Store.
func unsafeParseBinary(raw []byte) (*Store, error) {
	if len(raw) < len(magic) || string(raw[:len(magic)]) != magic {
		return nil, errors.New("not a state-sequence binary file")
	}
	read := uintptr(len(magic))
	headerLen, n := binary.Uvarint(raw[read : read+binary.MaxVarintLen64])
	if n <= 0 {
		return nil, errors.New("error reading header size")
	}
	read += binary.MaxVarintLen64
	h, err := decodeHeader(raw[read : read+uintptr(headerLen)])
	if err != nil {
		return nil, err
	}
	read += uintptr(headerLen)
	align, size := unsafe.Alignof(HMMState{}), unsafe.Sizeof(HMMState{})
	read += align - read%align
	if (uintptr(len(raw))-read)%size != 0 {
		return nil, fmt.Errorf("number of left-over bytes is not a multiple of %d", size)
	}
	entryBytes := raw[read:]
	var states []HMMState
	entryBytesHeader := (*reflect.SliceHeader)(unsafe.Pointer(&entryBytes))
	statesHeader := (*reflect.SliceHeader)(unsafe.Pointer(&states))
	statesHeader.Data = entryBytesHeader.Data
	statesHeader.Len = entryBytesHeader.Len / int(size)
	statesHeader.Cap = statesHeader.Len
	return &Store{
		states:            states,
		offsets:           h.Offsets,
		flags:             h.Flags,
		disambiguatorBase: h.DisambiguatorBase,
	}, nil
}

// MappedFile is an mmapped backing for a Store loaded with
// FromBinary; Close unmaps it.
type MappedFile struct {
	file *os.File
	data []byte
}

func (m *MappedFile) Close() error {
	err1 := syscall.Munmap(m.data)
	err2 := m.file.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// FromBinary mmaps path and parses a Store from it in place. backing
// must be closed once the Store is no longer needed.
func FromBinary(path string) (store *Store, backing *MappedFile, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(stat.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return
	}
	backing = &MappedFile{f, data}
	store, err = unsafeParseBinary(data)
	if err != nil {
		backing.Close()
		backing = nil
		return
	}
	return
}
