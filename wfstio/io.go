// Package wfstio is the binary container format for network and
// lattice files: a 10-byte magic, a gob-encoded header carrying every
// field except the bulk arc array, then the arcs themselves written
// as raw, alignment-padded bytes and read back with an unsafe cast,
// the same mmap-friendly shape as statetab's state-sequence file
// (io.go), generalized here to any fixed-size arc element via a small
// generic helper instead of statetab's HMMState-specific casts.
package wfstio

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

// rawBytesOf returns a byte slice aliasing xs's backing array.
func rawBytesOf[T any](xs []T) []byte {
	if len(xs) == 0 {
		return nil
	}
	size := unsafe.Sizeof(xs[0])
	hdr := (*reflect.SliceHeader)(unsafe.Pointer(&xs))
	var raw []byte
	rawHdr := (*reflect.SliceHeader)(unsafe.Pointer(&raw))
	rawHdr.Data = hdr.Data
	rawHdr.Len = int(uintptr(hdr.Len) * size)
	rawHdr.Cap = rawHdr.Len
	return raw
}

// sliceOf reinterprets the first count*sizeof(T) bytes of raw as a
// []T aliasing raw's backing array.
func sliceOf[T any](raw []byte, count int) ([]T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if count == 0 {
		return nil, nil
	}
	if len(raw) < count*size {
		return nil, fmt.Errorf("wfstio: truncated arc block: need %d bytes, have %d", count*size, len(raw))
	}
	var out []T
	rawHdr := (*reflect.SliceHeader)(unsafe.Pointer(&raw))
	outHdr := (*reflect.SliceHeader)(unsafe.Pointer(&out))
	outHdr.Data = rawHdr.Data
	outHdr.Len = count
	outHdr.Cap = count
	return out, nil
}

// writeFramed writes magic, then header gob-encoded and length
// prefixed, then pads to align, then writes raw.
func writeFramed(path, magic string, header interface{}, align uintptr, raw []byte) (err error) {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err = w.Write([]byte(magic)); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = gob.NewEncoder(&buf).Encode(header); err != nil {
		return err
	}
	lenBytes := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(lenBytes, uint64(buf.Len()))
	if _, err = w.Write(lenBytes[:n]); err != nil {
		return err
	}
	if _, err = w.Write(buf.Bytes()); err != nil {
		return err
	}

	written, err := w.Seek(0, 1)
	if err != nil {
		return err
	}
	if align > 1 {
		if pad := align - uintptr(written)%align; pad != align {
			if _, err = w.Write(make([]byte, pad)); err != nil {
				return err
			}
		}
	}
	_, err = w.Write(raw)
	return err
}

// parseFramed validates magic, decodes the gob header into header,
// and returns the remaining raw bytes.
func parseFramed(data []byte, magic string, header interface{}, align uintptr) (raw []byte, err error) {
	if len(data) < len(magic) || string(data[:len(magic)]) != magic {
		return nil, errors.New("wfstio: not a recognized wfstio binary file")
	}
	read := uintptr(len(magic))
	if uintptr(len(data)) < read+binary.MaxVarintLen64 {
		return nil, errors.New("wfstio: truncated header length")
	}
	headerLen, n := binary.Uvarint(data[read : read+binary.MaxVarintLen64])
	if n <= 0 {
		return nil, errors.New("wfstio: error reading header size")
	}
	read += uintptr(n)
	if uintptr(len(data)) < read+uintptr(headerLen) {
		return nil, errors.New("wfstio: truncated header")
	}
	dec := gob.NewDecoder(bytes.NewReader(data[read : read+uintptr(headerLen)]))
	if err = dec.Decode(header); err != nil {
		return nil, err
	}
	read += uintptr(headerLen)
	if align > 1 {
		if pad := align - read%align; pad != align {
			read += pad
		}
	}
	if read > uintptr(len(data)) {
		return nil, errors.New("wfstio: truncated arc block")
	}
	return data[read:], nil
}

// MappedFile is an mmapped backing for data loaded with mapFile;
// Close unmaps it, the same shape as statetab's MappedFile.
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

func mapFile(path string) (data []byte, backing *MappedFile, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if stat.Size() == 0 {
		f.Close()
		return nil, nil, errors.New("wfstio: empty file")
	}
	data, err = syscall.Mmap(int(f.Fd()), 0, int(stat.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return data, &MappedFile{f, data}, nil
}
