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
	"math"
	"sort"

	"github.com/shenwei356/bio/seq"
)

// SeqReader provides blocking random access to named sequences.
// Start/end are 0-based half-open coordinates on the forward strand.
type SeqReader interface {
	ReadSeq(name string, start uint64, end uint64) ([]byte, error)
}

// ScoreContext bundles what is needed for exact rescoring and overlap
// trimming: random access to the target and query sequences and a
// substitution matrix. A nil ScoreContext makes the engine keep the
// heuristic block scores and skip trimming refinement.
type ScoreContext struct {
	Target SeqReader
	Query  SeqReader
	Matrix *SubMatrix
}

// ChainingOptions contains all options in chaining.
type ChainingOptions struct {
	GapCalc  *GapCalc
	MinScore float64
}

// Group is one independent chaining unit: all blocks aligning one query
// sequence (on one strand) to one target sequence. Groups share no state
// and may be chained concurrently, each with its own Chainer.
type Group struct {
	TName string
	TSize uint64

	QName   string
	QSize   uint64
	QStrand byte

	Blocks []Block
}

// dpEntry is the per-block dynamic-programming state, discarded after
// chain extraction.
type dpEntry struct {
	bestPred   int
	totalScore float64
	consumed   bool
}

// Chainer assembles alignment blocks into maximal-scoring collinear
// chains. A Chainer holds reusable buffers and must not be shared
// between goroutines.
type Chainer struct {
	options *ChainingOptions

	entries []dpEntry
	order   []int
	buf     []Block
}

// NewChainer creates a new chainer.
func NewChainer(options *ChainingOptions) *Chainer {
	return &Chainer{
		options: options,

		entries: make([]dpEntry, 0, 1024),
		order:   make([]int, 0, 1024),
		buf:     make([]Block, 0, 128),
	}
}

// Chain assembles the blocks of one group into chains.
//
// The steps are: a dynamic-programming pass over a 2-D tree to find each
// block's best predecessor, peeling completed chains in descending score
// order, removing duplicate and merging abutting blocks, then, when sc is
// not nil, trimming overlaps between adjacent blocks and recomputing the
// chain score exactly from sequence. Chains whose final score is not
// positive, or below MinScore, are dropped.
//
// idCounter is shared across groups; it is incremented once per emitted
// chain. The returned chains follow peeling order, not score order.
func (ce *Chainer) Chain(group *Group, sc *ScoreContext, idCounter *uint64) []*Chain {
	blocks := group.Blocks
	n := len(blocks)
	if n == 0 {
		return nil
	}

	entries := ce.entries[:0]
	for i := range blocks {
		entries = append(entries, dpEntry{bestPred: -1, totalScore: blocks[i].Score})
	}
	ce.entries = entries

	tree := NewKdTree(blocks)
	defer RecycleKdTree(tree)

	gc := ce.options.GapCalc

	costFn := func(cand int, target int) (float64, bool) {
		cb, tb := &blocks[cand], &blocks[target]

		// enforce monotonic order: a predecessor never starts after the target
		if cb.TStart > tb.TStart || cb.QStart > tb.QStart {
			return 0, false
		}

		dt := int64(tb.TStart) - int64(cb.TEnd)
		dq := int64(tb.QStart) - int64(cb.QEnd)

		var overlapPenalty float64
		if dt < 0 || dq < 0 {
			// negative distance means the blocks overlap; charge the
			// overlapped bases at the denser block's score density
			var ovT, ovQ int64
			if dt < 0 {
				ovT = -dt
			}
			if dq < 0 {
				ovQ = -dq
			}
			overlapLen := float64(ovT)
			if ovQ > ovT {
				overlapLen = float64(ovQ)
			}

			var candDensity, targetDensity float64
			if cb.TEnd > cb.TStart {
				candDensity = cb.Score / float64(cb.TEnd-cb.TStart)
			}
			if tb.TEnd > tb.TStart {
				targetDensity = tb.Score / float64(tb.TEnd-tb.TStart)
			}

			density := candDensity
			if targetDensity > density {
				density = targetDensity
			}
			overlapPenalty = overlapLen * density
		}

		cost := float64(gc.Calc(int(dq), int(dt)))
		return entries[cand].totalScore + tb.Score - cost - overlapPenalty, true
	}

	lowerBoundFn := func(dq uint64, dt uint64) float64 {
		return float64(gc.Calc(int(dq), int(dt)))
	}

	for i := 0; i < n; i++ {
		score, pred := tree.BestPredecessor(i, entries[i].totalScore, blocks, costFn, lowerBoundFn)
		if score > entries[i].totalScore {
			entries[i].totalScore = score
			entries[i].bestPred = pred
		}
		tree.Update(i, entries[i].totalScore, blocks)
	}

	// peel chains from the highest-scoring endpoints
	order := ce.order[:0]
	for i := 0; i < n; i++ {
		order = append(order, i)
	}
	ce.order = order
	sort.Slice(order, func(i, j int) bool {
		return entries[order[i]].totalScore > entries[order[j]].totalScore
	})

	var chains []*Chain

	for _, root := range order {
		if entries[root].consumed {
			continue
		}

		buf := ce.buf[:0]
		curr := root
		for {
			entries[curr].consumed = true
			buf = append(buf, blocks[curr])

			pred := entries[curr].bestPred
			if pred < 0 || entries[pred].consumed {
				break
			}
			curr = pred
		}
		ce.buf = buf

		// collected backwards; restore coordinate order
		for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
			buf[i], buf[j] = buf[j], buf[i]
		}

		buf = removeExactDuplicates(buf)
		buf = mergeAbuttingBlocks(buf)

		if sc != nil {
			ce.trimOverlaps(buf, sc, group)
		}

		score := ce.scoreChain(buf, sc, group)
		if score <= 0 || score < ce.options.MinScore {
			continue
		}

		header := ChainHeader{
			Score:   score,
			TName:   group.TName,
			TSize:   group.TSize,
			TStrand: '+',
			QName:   group.QName,
			QSize:   group.QSize,
			QStrand: group.QStrand,
			ID:      *idCounter,
		}
		data := DataFromBlocks(&header, buf)
		chains = append(chains, &Chain{Header: header, Data: data})
		*idCounter++
	}

	return chains
}

// trimOverlaps resolves target-axis overlaps between adjacent blocks of a
// chain by cutting at the position that maximizes the exact score of both
// sides. A failed sequence read leaves that boundary untrimmed.
func (ce *Chainer) trimOverlaps(blocks []Block, sc *ScoreContext, group *Group) {
	for i := 0; i < len(blocks)-1; i++ {
		curr, next := &blocks[i], &blocks[i+1]
		if curr.TEnd <= next.TStart {
			continue
		}
		overlap := curr.TEnd - next.TStart

		cut, ok := findCrossover(curr, next, overlap, sc, group)
		if !ok {
			continue
		}

		trimLeft := overlap - cut
		curr.TEnd -= trimLeft
		curr.QEnd -= trimLeft
		next.TStart += cut
		next.QStart += cut
	}
}

// findCrossover scores every cut position 0..=overlap within the
// overlapping window of two adjacent blocks and returns the position
// maximizing (left scores before the cut) + (right scores at/after it).
func findCrossover(left *Block, right *Block, overlap uint64, sc *ScoreContext, group *Group) (uint64, bool) {
	lT, err := sc.Target.ReadSeq(group.TName, left.TEnd-overlap, left.TEnd)
	if err != nil {
		return 0, false
	}
	rT, err := sc.Target.ReadSeq(group.TName, right.TStart, right.TStart+overlap)
	if err != nil {
		return 0, false
	}
	lQ, err := readQuery(sc.Query, group, left.QEnd-overlap, left.QEnd)
	if err != nil {
		return 0, false
	}
	rQ, err := readQuery(sc.Query, group, right.QStart, right.QStart+overlap)
	if err != nil {
		return 0, false
	}
	if uint64(len(lT)) < overlap || uint64(len(rT)) < overlap ||
		uint64(len(lQ)) < overlap || uint64(len(rQ)) < overlap {
		return 0, false
	}

	m := sc.Matrix

	var scoreR float64
	for i := uint64(0); i < overlap; i++ {
		scoreR += float64(m.Score(rT[i], rQ[i]))
	}

	var bestPos uint64
	bestScore := math.Inf(-1)
	currL, currR := 0.0, scoreR
	for i := uint64(0); i <= overlap; i++ {
		if s := currL + currR; s > bestScore {
			bestScore = s
			bestPos = i
		}
		if i < overlap {
			currL += float64(m.Score(lT[i], lQ[i]))
			currR -= float64(m.Score(rT[i], rQ[i]))
		}
	}

	return bestPos, true
}

// scoreChain computes a chain's total score: the sum of block scores minus
// the gap cost of each adjacent pair. With a ScoreContext, block scores
// are recomputed exactly from sequence, falling back to the heuristic
// score for blocks whose sequence cannot be read.
func (ce *Chainer) scoreChain(blocks []Block, sc *ScoreContext, group *Group) float64 {
	gc := ce.options.GapCalc

	var score float64
	for i := range blocks {
		b := &blocks[i]
		blockScore := b.Score
		if sc != nil {
			if exact, ok := sc.BlockScore(b, group); ok {
				blockScore = exact
			}
		}
		score += blockScore

		if i > 0 {
			prev := &blocks[i-1]
			dt := int64(b.TStart) - int64(prev.TEnd)
			dq := int64(b.QStart) - int64(prev.QEnd)
			score -= float64(gc.Calc(int(dq), int(dt)))
		}
	}
	return score
}

// BlockScore reads the target and query subsequences of one block and sums
// the per-position substitution scores. It returns false when either read
// fails, e.g. for out-of-range coordinates.
func (sc *ScoreContext) BlockScore(b *Block, group *Group) (float64, bool) {
	tSeq, err := sc.Target.ReadSeq(group.TName, b.TStart, b.TEnd)
	if err != nil {
		return 0, false
	}
	qSeq, err := readQuery(sc.Query, group, b.QStart, b.QEnd)
	if err != nil {
		return 0, false
	}

	n := len(tSeq)
	if len(qSeq) < n {
		n = len(qSeq)
	}

	var score float64
	for i := 0; i < n; i++ {
		score += float64(sc.Matrix.Score(tSeq[i], qSeq[i]))
	}
	return score, true
}

// readQuery reads a query interval given in the group's strand
// coordinates, reverse-complementing when the strand is '-'.
func readQuery(r SeqReader, group *Group, start uint64, end uint64) ([]byte, error) {
	if group.QStrand != '-' {
		return r.ReadSeq(group.QName, start, end)
	}

	s, err := r.ReadSeq(group.QName, group.QSize-end, group.QSize-start)
	if err != nil {
		return nil, err
	}
	return revComp(s)
}

func revComp(b []byte) ([]byte, error) {
	s, err := seq.NewSeq(seq.DNAredundant, b)
	if err != nil {
		return nil, err
	}
	s.RevComInplace()
	return s.Seq, nil
}
