// Copyright © 2023-2026 ChainMap Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package twobit reads and writes genome sequences in the UCSC .2bit
// format: four bases per byte, with N regions and soft-masked (lowercase)
// regions stored as block lists alongside the packed data.
package twobit

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	magic        = 0x1A412743
	magicSwapped = 0x4327411A
)

// seqRecord is the parsed header of one sequence record, cached after the
// first access so repeated subsequence reads skip the block lists.
type seqRecord struct {
	dnaSize    uint32
	nBlocks    *blockSet
	maskBlocks *blockSet
	packedPos  int64 // file offset of the packed DNA
}

// File provides random access to the sequences of a .2bit file.
// Reads are seek-stateful, so a File must not be shared between
// goroutines; open one per worker instead.
type File struct {
	r     io.ReadSeeker
	order binary.ByteOrder

	offsets map[string]uint64
	names   []string
	records map[string]*seqRecord

	fh *os.File

	// NoMask disables soft-mask (lowercase) restoration.
	NoMask bool
}

// Open opens a .2bit file and reads its sequence index.
func Open(file string) (*File, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	f, err := New(fh)
	if err != nil {
		fh.Close()
		return nil, err
	}
	f.fh = fh
	return f, nil
}

// New reads the header and sequence index from an open stream.
// Both byte orders are accepted.
func New(r io.ReadSeeker) (*File, error) {
	f := &File{
		r:       r,
		order:   binary.LittleEndian,
		offsets: make(map[string]uint64, 64),
		records: make(map[string]*seqRecord, 64),
	}

	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, errors.Wrap(err, "reading 2bit magic")
	}
	switch binary.LittleEndian.Uint32(head[:]) {
	case magic:
	case magicSwapped:
		f.order = binary.BigEndian
	default:
		return nil, errors.Errorf("not a 2bit file (magic: %x)", head)
	}

	version, err := f.readUint32()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, errors.Errorf("unsupported 2bit version: %d (only version 1 is supported)", version)
	}

	seqCount, err := f.readUint32()
	if err != nil {
		return nil, err
	}
	if _, err = f.readUint32(); err != nil { // reserved
		return nil, err
	}

	f.names = make([]string, 0, seqCount)
	var nameLen [1]byte
	nameBuf := make([]byte, 255)
	for i := uint32(0); i < seqCount; i++ {
		if _, err = io.ReadFull(r, nameLen[:]); err != nil {
			return nil, errors.Wrap(err, "reading sequence index")
		}
		name := nameBuf[:nameLen[0]]
		if _, err = io.ReadFull(r, name); err != nil {
			return nil, errors.Wrap(err, "reading sequence index")
		}

		var offset uint64
		if err = binary.Read(r, f.order, &offset); err != nil {
			return nil, errors.Wrap(err, "reading sequence index")
		}

		f.offsets[string(name)] = offset
		f.names = append(f.names, string(name))
	}

	return f, nil
}

// Close closes the underlying file, if the File owns one.
func (f *File) Close() error {
	if f.fh != nil {
		return f.fh.Close()
	}
	return nil
}

// SeqNames returns the sequence names in index order.
func (f *File) SeqNames() []string {
	return f.names
}

// SeqLen returns the length of a named sequence.
func (f *File) SeqLen(name string) (uint64, error) {
	rec, err := f.record(name)
	if err != nil {
		return 0, err
	}
	return uint64(rec.dnaSize), nil
}

// Sizes returns the name to length table of all sequences,
// as used by the pre-net coverage filter.
func (f *File) Sizes() (map[string]uint64, error) {
	sizes := make(map[string]uint64, len(f.names))
	for _, name := range f.names {
		size, err := f.SeqLen(name)
		if err != nil {
			return nil, err
		}
		sizes[name] = size
	}
	return sizes, nil
}

// ReadSeq extracts [start, end) of a named sequence, restoring N blocks
// and, unless NoMask is set, lowercasing soft-masked regions. The end is
// clamped to the sequence length. It satisfies the chaining engine's
// SeqReader contract.
func (f *File) ReadSeq(name string, start uint64, end uint64) ([]byte, error) {
	rec, err := f.record(name)
	if err != nil {
		return nil, err
	}

	if end > uint64(rec.dnaSize) {
		end = uint64(rec.dnaSize)
	}
	if start >= end {
		return []byte{}, nil
	}

	firstByte := start / 4
	lastByte := (end - 1) / 4

	if _, err = f.r.Seek(rec.packedPos+int64(firstByte), io.SeekStart); err != nil {
		return nil, err
	}
	packed := make([]byte, lastByte-firstByte+1)
	if _, err = io.ReadFull(f.r, packed); err != nil {
		return nil, errors.Wrapf(err, "reading packed DNA of %s", name)
	}

	seq := make([]byte, 0, end-start)
	for i := start; i < end; i++ {
		b := packed[i/4-firstByte]
		seq = append(seq, bit2base[(b>>(6-2*(i%4)))&3])
	}

	rec.nBlocks.applyHardMask(seq, uint32(start))
	if !f.NoMask {
		rec.maskBlocks.applySoftMask(seq, uint32(start))
	}

	return seq, nil
}

// record parses and caches the header of one sequence record.
func (f *File) record(name string) (*seqRecord, error) {
	if rec, ok := f.records[name]; ok {
		return rec, nil
	}

	offset, ok := f.offsets[name]
	if !ok {
		return nil, errors.Errorf("sequence not found: %s", name)
	}
	if _, err := f.r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}

	rec := &seqRecord{}
	var err error
	if rec.dnaSize, err = f.readUint32(); err != nil {
		return nil, errors.Wrapf(err, "reading record of %s", name)
	}
	if rec.nBlocks, err = f.readBlockSet(); err != nil {
		return nil, errors.Wrapf(err, "reading N blocks of %s", name)
	}
	if rec.maskBlocks, err = f.readBlockSet(); err != nil {
		return nil, errors.Wrapf(err, "reading mask blocks of %s", name)
	}
	if _, err = f.readUint32(); err != nil { // reserved
		return nil, errors.Wrapf(err, "reading record of %s", name)
	}

	if rec.packedPos, err = f.r.Seek(0, io.SeekCurrent); err != nil {
		return nil, err
	}

	f.records[name] = rec
	return rec, nil
}

func (f *File) readBlockSet() (*blockSet, error) {
	count, err := f.readUint32()
	if err != nil {
		return nil, err
	}
	starts := make([]uint32, count)
	if err = binary.Read(f.r, f.order, starts); err != nil {
		return nil, err
	}
	sizes := make([]uint32, count)
	if err = binary.Read(f.r, f.order, sizes); err != nil {
		return nil, err
	}
	return newBlockSet(starts, sizes), nil
}

func (f *File) readUint32() (uint32, error) {
	var v uint32
	err := binary.Read(f.r, f.order, &v)
	return v, err
}
