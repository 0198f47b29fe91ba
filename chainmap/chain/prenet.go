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

package chain

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// bitCoverage tracks which bases of a sequence are already covered by
// previously accepted chains. One bit per base.
type bitCoverage struct {
	size uint64
	bits []uint64
}

func newBitCoverage(size uint64) *bitCoverage {
	return &bitCoverage{
		size: size,
		bits: make([]uint64, (size+63)/64),
	}
}

func (c *bitCoverage) setRange(start uint64, length uint64) {
	if length == 0 {
		return
	}
	end := start + length
	if end > c.size {
		end = c.size
	}
	if start > c.size {
		start = c.size
	}
	if start >= end {
		return
	}

	startWord := start / 64
	endWord := (end - 1) / 64
	startBit := start % 64
	endBit := (end - 1) % 64

	if startWord == endWord {
		mask := (^uint64(0) << startBit) & (^uint64(0) >> (63 - endBit))
		c.bits[startWord] |= mask
		return
	}

	c.bits[startWord] |= ^uint64(0) << startBit
	for i := startWord + 1; i < endWord; i++ {
		c.bits[i] = ^uint64(0)
	}
	c.bits[endWord] |= ^uint64(0) >> (63 - endBit)
}

func (c *bitCoverage) isFullySet(start uint64, length uint64) bool {
	if length == 0 {
		return true
	}
	end := start + length
	if end > c.size {
		end = c.size
	}
	if start > c.size {
		start = c.size
	}
	if start >= end {
		return true
	}

	startWord := start / 64
	endWord := (end - 1) / 64
	startBit := start % 64
	endBit := (end - 1) % 64

	if startWord == endWord {
		mask := (^uint64(0) << startBit) & (^uint64(0) >> (63 - endBit))
		return c.bits[startWord]&mask == mask
	}

	mask := ^uint64(0) << startBit
	if c.bits[startWord]&mask != mask {
		return false
	}
	for i := startWord + 1; i < endWord; i++ {
		if c.bits[i] != ^uint64(0) {
			return false
		}
	}
	mask = ^uint64(0) >> (63 - endBit)
	return c.bits[endWord]&mask == mask
}

// PreNetOptions contains all options in pre-net filtering.
type PreNetOptions struct {
	// extra bases marked as covered around each accepted block,
	// to absorb trash chains hugging the edges of real ones
	Pad uint64

	// keep chains whose query is a haplotype/alternate sequence
	KeepHaplotypes bool
}

// PreNetFilter drops chains that have no chance of being netted: chains
// whose every block is already fully covered, on both the target and the
// query, by higher-scoring chains seen before them.
//
// Chains must be fed in descending score order.
type PreNetFilter struct {
	options *PreNetOptions

	target map[string]*bitCoverage
	query  map[string]*bitCoverage

	lastScore float64
	started   bool
}

// NewPreNetFilter creates a filter over the given target and query
// sequence sizes.
func NewPreNetFilter(options *PreNetOptions, targetSizes map[string]uint64, querySizes map[string]uint64) *PreNetFilter {
	f := &PreNetFilter{
		options: options,
		target:  make(map[string]*bitCoverage, len(targetSizes)),
		query:   make(map[string]*bitCoverage, len(querySizes)),
	}
	for name, size := range targetSizes {
		f.target[name] = newBitCoverage(size)
	}
	for name, size := range querySizes {
		f.query[name] = newBitCoverage(size)
	}
	return f
}

// Keep decides whether a chain survives the filter, and if so marks its
// padded blocks as covered. It fails on score-order violations and on
// sequence names missing from the size tables.
func (f *PreNetFilter) Keep(c *Chain) (bool, error) {
	h := &c.Header

	if f.started && h.Score > f.lastScore {
		return false, errors.Errorf("input not sorted by score: %.0f > %.0f", h.Score, f.lastScore)
	}
	f.started = true
	f.lastScore = h.Score

	if !f.options.KeepHaplotypes && IsHaplotype(h.QName) {
		return false, nil
	}

	tChrom, ok := f.target[h.TName]
	if !ok {
		return false, errors.Errorf("target sequence %s not found in sizes", h.TName)
	}
	qChrom, ok := f.query[h.QName]
	if !ok {
		return false, errors.Errorf("query sequence %s not found in sizes", h.QName)
	}

	blocks := c.ToBlocks()

	var anyOpen bool
	for i := range blocks {
		b := &blocks[i]
		if !qChrom.isFullySet(b.QStart, b.QEnd-b.QStart) ||
			!tChrom.isFullySet(b.TStart, b.TEnd-b.TStart) {
			anyOpen = true
			break
		}
	}
	if !anyOpen {
		return false, nil
	}

	pad := f.options.Pad
	for i := range blocks {
		b := &blocks[i]

		qs := b.QStart
		if qs > pad {
			qs -= pad
		} else {
			qs = 0
		}
		qe := b.QEnd + pad
		if qe > qChrom.size {
			qe = qChrom.size
		}
		qChrom.setRange(qs, qe-qs)

		ts := b.TStart
		if ts > pad {
			ts -= pad
		} else {
			ts = 0
		}
		te := b.TEnd + pad
		if te > tChrom.size {
			te = tChrom.size
		}
		tChrom.setRange(ts, te-ts)
	}

	return true, nil
}

// IsHaplotype reports whether a sequence name looks like a haplotype or
// alternate assembly sequence, e.g. chr6_apd_hap1 or chr1_KI270762v1_alt.
func IsHaplotype(name string) bool {
	return strings.Contains(name, "_hap") || strings.Contains(name, "_alt")
}

// ReadSizes reads a two-column "name<TAB>size" file, as produced by
// faSize -detailed or twoBitInfo. Gzipped files are handled transparently.
func ReadSizes(file string) (map[string]uint64, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	sizes := make(map[string]uint64, 64)
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		size, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "size of sequence %s", fields[0])
		}
		sizes[fields[0]] = size
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return sizes, nil
}
