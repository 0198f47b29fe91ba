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
	"github.com/rdleal/intervalst/interval"
)

// Span is a half-open masked region of a sequence.
type Span struct {
	Start uint32
	End   uint32
}

// blockSet holds the N blocks or mask blocks of one sequence record, with
// an interval tree for overlap queries against requested subsequences.
type blockSet struct {
	spans []Span
	itree *interval.SearchTree[Span, uint32]
}

func newBlockSet(starts []uint32, sizes []uint32) *blockSet {
	cmpFn := func(x, y uint32) int {
		if x < y {
			return -1
		}
		if x > y {
			return 1
		}
		return 0
	}
	s := &blockSet{
		spans: make([]Span, 0, len(starts)),
		itree: interval.NewSearchTree[Span, uint32](cmpFn),
	}
	for i, start := range starts {
		if sizes[i] == 0 {
			continue
		}
		span := Span{Start: start, End: start + sizes[i]}
		s.spans = append(s.spans, span)
		s.itree.Insert(span.Start, span.End, span)
	}
	return s
}

// overlapping returns all blocks intersecting [start, end).
func (s *blockSet) overlapping(start uint32, end uint32) []Span {
	if len(s.spans) == 0 || start >= end {
		return nil
	}
	spans, ok := s.itree.AllIntersections(start, end)
	if !ok {
		return nil
	}
	return spans
}

// applyHardMask overwrites N-block bases with 'N'.
// seq holds the bases of [offset, offset+len(seq)).
func (s *blockSet) applyHardMask(seq []byte, offset uint32) {
	end := offset + uint32(len(seq))
	for _, span := range s.overlapping(offset, end) {
		lo, hi := clampSpan(span, offset, end)
		for i := lo; i < hi; i++ {
			seq[i-offset] = 'N'
		}
	}
}

// applySoftMask lowercases mask-block bases.
func (s *blockSet) applySoftMask(seq []byte, offset uint32) {
	end := offset + uint32(len(seq))
	for _, span := range s.overlapping(offset, end) {
		lo, hi := clampSpan(span, offset, end)
		for i := lo; i < hi; i++ {
			b := seq[i-offset]
			if b >= 'A' && b <= 'Z' {
				seq[i-offset] = b + 32
			}
		}
	}
}

func clampSpan(span Span, start uint32, end uint32) (uint32, uint32) {
	lo, hi := span.Start, span.End
	if lo < start {
		lo = start
	}
	if hi > end {
		hi = end
	}
	return lo, hi
}

// base codes of the packed representation: T=0, C=1, A=2, G=3
var bit2base = [4]byte{'T', 'C', 'A', 'G'}

var base2bit [256]byte

func init() {
	// everything unknown packs as T; N blocks restore it on read
	base2bit['C'], base2bit['c'] = 1, 1
	base2bit['A'], base2bit['a'] = 2, 2
	base2bit['G'], base2bit['g'] = 3, 3
}

// packDNA converts raw DNA into packed 2-bit data plus the N blocks and
// soft-mask (lowercase) blocks. Mask blocks are only collected when
// softMask is true.
func packDNA(dna []byte, softMask bool) (packed []byte, nBlocks []Span, maskBlocks []Span) {
	packed = make([]byte, 0, (len(dna)+3)/4)

	var current byte
	shift := 6

	var inN, inMask bool
	var nStart, maskStart uint32

	for i, c := range dna {
		pos := uint32(i)

		isN := c == 'N' || c == 'n'
		if isN {
			if !inN {
				inN = true
				nStart = pos
			}
		} else if inN {
			inN = false
			nBlocks = append(nBlocks, Span{Start: nStart, End: pos})
		}

		isLower := c >= 'a' && c <= 'z'
		if softMask && isLower {
			if !inMask {
				inMask = true
				maskStart = pos
			}
		} else if inMask {
			inMask = false
			maskBlocks = append(maskBlocks, Span{Start: maskStart, End: pos})
		}

		current |= base2bit[c] << shift
		if shift == 0 {
			packed = append(packed, current)
			current = 0
			shift = 6
		} else {
			shift -= 2
		}
	}

	size := uint32(len(dna))
	if inN {
		nBlocks = append(nBlocks, Span{Start: nStart, End: size})
	}
	if inMask {
		maskBlocks = append(maskBlocks, Span{Start: maskStart, End: size})
	}
	if shift != 6 {
		packed = append(packed, current)
	}

	return packed, nBlocks, maskBlocks
}
