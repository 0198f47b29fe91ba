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

package twobit

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Sequence is one named sequence to write.
type Sequence struct {
	Name string
	Seq  []byte
}

// Write writes sequences as a version 1 .2bit file (little-endian).
// With softMask, lowercase bases are recorded as mask blocks.
func Write(w io.Writer, seqs []Sequence, softMask bool) error {
	bw := bufio.NewWriter(w)
	order := binary.LittleEndian

	writeU32 := func(v uint32) error { return binary.Write(bw, order, v) }

	if err := writeU32(magic); err != nil {
		return err
	}
	if err := writeU32(1); err != nil { // version
		return err
	}
	if err := writeU32(uint32(len(seqs))); err != nil {
		return err
	}
	if err := writeU32(0); err != nil { // reserved
		return err
	}

	// the index needs record offsets, so pack everything first
	type packedSeq struct {
		packed     []byte
		nBlocks    []Span
		maskBlocks []Span
	}
	packs := make([]packedSeq, len(seqs))

	offset := uint64(16)
	for _, s := range seqs {
		if len(s.Name) > 255 {
			return errors.Errorf("sequence name too long: %s", s.Name)
		}
		offset += 1 + uint64(len(s.Name)) + 8
	}

	for i, s := range seqs {
		packed, nBlocks, maskBlocks := packDNA(s.Seq, softMask)
		packs[i] = packedSeq{packed: packed, nBlocks: nBlocks, maskBlocks: maskBlocks}

		if err := bw.WriteByte(byte(len(s.Name))); err != nil {
			return err
		}
		if _, err := bw.WriteString(s.Name); err != nil {
			return err
		}
		if err := binary.Write(bw, order, offset); err != nil {
			return err
		}

		offset += 4 + // dnaSize
			4 + 8*uint64(len(nBlocks)) +
			4 + 8*uint64(len(maskBlocks)) +
			4 + // reserved
			uint64(len(packed))
	}

	writeSpans := func(spans []Span) error {
		if err := writeU32(uint32(len(spans))); err != nil {
			return err
		}
		for _, span := range spans {
			if err := writeU32(span.Start); err != nil {
				return err
			}
		}
		for _, span := range spans {
			if err := writeU32(span.End - span.Start); err != nil {
				return err
			}
		}
		return nil
	}

	for i, s := range seqs {
		p := &packs[i]
		if err := writeU32(uint32(len(s.Seq))); err != nil {
			return err
		}
		if err := writeSpans(p.nBlocks); err != nil {
			return err
		}
		if err := writeSpans(p.maskBlocks); err != nil {
			return err
		}
		if err := writeU32(0); err != nil { // reserved
			return err
		}
		if _, err := bw.Write(p.packed); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFile writes sequences to a .2bit file on disk.
func WriteFile(file string, seqs []Sequence, softMask bool) error {
	fh, err := os.Create(file)
	if err != nil {
		return err
	}
	if err = Write(fh, seqs, softMask); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
