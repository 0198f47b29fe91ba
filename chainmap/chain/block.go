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

// Block is a single chainable alignment block: a pair of half-open
// coordinate intervals on the target and query sequences, with a score.
// The score may be heuristic (e.g. derived from the block length) or
// exact (recomputed from sequence with a substitution matrix).
type Block struct {
	TStart uint64
	TEnd   uint64
	QStart uint64
	QEnd   uint64
	Score  float64
}

// removeExactDuplicates drops adjacent blocks with identical coordinates
// on both axes, compacting the slice in place.
func removeExactDuplicates(blocks []Block) []Block {
	if len(blocks) == 0 {
		return blocks
	}

	w := 0
	for r := 1; r < len(blocks); r++ {
		prev, curr := &blocks[w], &blocks[r]
		if curr.TStart == prev.TStart && curr.QStart == prev.QStart &&
			curr.TEnd == prev.TEnd && curr.QEnd == prev.QEnd {
			continue
		}
		w++
		if w != r {
			blocks[w] = blocks[r]
		}
	}
	return blocks[:w+1]
}

// mergeAbuttingBlocks merges adjacent blocks that abut exactly on both
// axes, summing their scores. The slice is compacted in place.
func mergeAbuttingBlocks(blocks []Block) []Block {
	if len(blocks) < 2 {
		return blocks
	}

	w := 0
	for r := 1; r < len(blocks); r++ {
		prev, curr := &blocks[w], &blocks[r]
		if curr.TStart == prev.TEnd && curr.QStart == prev.QEnd {
			prev.TEnd = curr.TEnd
			prev.QEnd = curr.QEnd
			prev.Score += curr.Score
			continue
		}
		w++
		if w != r {
			blocks[w] = blocks[r]
		}
	}
	return blocks[:w+1]
}
