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
	"sort"
	"sync"
)

// CostFunc computes the total chain score if the candidate block precedes
// the target block. It returns false when the two cannot be chained,
// e.g. when the candidate starts after the target.
type CostFunc func(candidate int, target int) (float64, bool)

// LowerBoundFunc returns a lower bound of the connection cost for a pair
// of blocks that are dq/dt bases apart, used for pruning the search.
type LowerBoundFunc func(dq uint64, dt uint64) float64

// kdNode is one node of the arena. Leaves carry a block index in leaf and
// have lo == hi == -1; internal nodes carry the splitting coordinate of
// their depth's dimension. All nodes aggregate the maxima of their subtree.
type kdNode struct {
	cut  uint64
	lo   int32
	hi   int32
	leaf int32

	maxQ     uint64
	maxT     uint64
	maxScore float64
}

// KdTree is a 2-D tree over alignment blocks, indexed by (QStart, TStart)
// with the splitting dimension alternating at each depth.
//
// Subtree maxima of QEnd, TEnd and the best chain score discovered so far
// allow the best-predecessor search to prune whole subtrees.
// Nodes live in a flat arena and address each other by index.
type KdTree struct {
	nodes   []kdNode
	root    int32
	indices []int32 // scratch for building
}

var poolKdTree = &sync.Pool{New: func() interface{} {
	return &KdTree{
		nodes:   make([]kdNode, 0, 1024),
		indices: make([]int32, 0, 512),
	}
}}

// RecycleKdTree recycles a tree obtained from NewKdTree.
func RecycleKdTree(t *KdTree) {
	poolKdTree.Put(t)
}

// NewKdTree builds a tree over all blocks. Scores are not known at build
// time; all maxScore fields start at zero and are raised via Update.
// Please remember to call RecycleKdTree after use.
func NewKdTree(blocks []Block) *KdTree {
	t := poolKdTree.Get().(*KdTree)
	t.nodes = t.nodes[:0]
	t.indices = t.indices[:0]
	t.root = -1

	if len(blocks) == 0 {
		return t
	}

	for i := range blocks {
		t.indices = append(t.indices, int32(i))
	}
	t.root = t.build(t.indices, blocks, 0)
	return t
}

func (t *KdTree) build(indices []int32, blocks []Block, dim int) int32 {
	if len(indices) == 1 {
		idx := indices[0]
		b := &blocks[idx]
		t.nodes = append(t.nodes, kdNode{
			lo:   -1,
			hi:   -1,
			leaf: idx,
			maxQ: b.QEnd,
			maxT: b.TEnd,
		})
		return int32(len(t.nodes) - 1)
	}

	if dim == 0 {
		sort.Slice(indices, func(i, j int) bool {
			return blocks[indices[i]].QStart < blocks[indices[j]].QStart
		})
	} else {
		sort.Slice(indices, func(i, j int) bool {
			return blocks[indices[i]].TStart < blocks[indices[j]].TStart
		})
	}

	mid := len(indices) >> 1
	var cut uint64
	if dim == 0 {
		cut = blocks[indices[mid]].QStart
	} else {
		cut = blocks[indices[mid]].TStart
	}

	lo := t.build(indices[:mid], blocks, 1-dim)
	hi := t.build(indices[mid:], blocks, 1-dim)

	maxQ := t.nodes[lo].maxQ
	if t.nodes[hi].maxQ > maxQ {
		maxQ = t.nodes[hi].maxQ
	}
	maxT := t.nodes[lo].maxT
	if t.nodes[hi].maxT > maxT {
		maxT = t.nodes[hi].maxT
	}

	t.nodes = append(t.nodes, kdNode{
		cut:  cut,
		lo:   lo,
		hi:   hi,
		leaf: -1,
		maxQ: maxQ,
		maxT: maxT,
	})
	return int32(len(t.nodes) - 1)
}

// Update raises the recorded best chain score of the block at target and
// propagates it into the aggregated maxima of every node on the path,
// so later best-predecessor queries can see this block as a candidate.
func (t *KdTree) Update(target int, score float64, blocks []Block) {
	if t.root < 0 {
		return
	}

	ni := t.root
	dim := 0
	for {
		n := &t.nodes[ni]
		if n.leaf >= 0 {
			if n.leaf == int32(target) && score > n.maxScore {
				n.maxScore = score
			}
			return
		}

		if score > n.maxScore {
			n.maxScore = score
		}

		var coord uint64
		if dim == 0 {
			coord = blocks[target].QStart
		} else {
			coord = blocks[target].TStart
		}

		if coord < n.cut {
			ni = n.lo
		} else {
			ni = n.hi
		}
		dim = 1 - dim
	}
}

// BestPredecessor searches for the chainable block that maximizes
// candidateTotalScore + targetScore - connectionCost, where the connection
// cost comes from costFn. currentScore seeds the running best, so only
// strictly better predecessors are reported. The returned index is -1 when
// no predecessor beats currentScore.
//
// Subtrees are pruned when even a zero-cost connection to the best block
// below them cannot beat the running best, and again when the geometric
// lower bound of the connection cost rules them out.
func (t *KdTree) BestPredecessor(target int, currentScore float64, blocks []Block,
	costFn CostFunc, lowerBoundFn LowerBoundFunc) (float64, int) {

	bestScore := currentScore
	bestPred := -1
	if t.root < 0 {
		return bestScore, bestPred
	}
	return t.bestRecursive(t.root, target, blocks, costFn, lowerBoundFn, 0, bestScore, bestPred)
}

func (t *KdTree) bestRecursive(ni int32, target int, blocks []Block,
	costFn CostFunc, lowerBoundFn LowerBoundFunc, dim int,
	bestScore float64, bestPred int) (float64, int) {

	n := &t.nodes[ni]
	tb := &blocks[target]

	// even with a zero-cost connection, this subtree cannot win
	if n.maxScore+tb.Score < bestScore {
		return bestScore, bestPred
	}

	// geometric lower bound on the connection cost
	var dq, dt uint64
	if tb.QStart > n.maxQ {
		dq = tb.QStart - n.maxQ
	}
	if tb.TStart > n.maxT {
		dt = tb.TStart - n.maxT
	}
	if n.maxScore+tb.Score-lowerBoundFn(dq, dt) < bestScore {
		return bestScore, bestPred
	}

	if n.leaf >= 0 {
		cand := int(n.leaf)
		if score, ok := costFn(cand, target); ok && score > bestScore {
			bestScore = score
			bestPred = cand
		}
		return bestScore, bestPred
	}

	var dimCoord uint64
	if dim == 0 {
		dimCoord = tb.QStart
	} else {
		dimCoord = tb.TStart
	}

	if dimCoord > n.cut {
		// visit the near side first to tighten the bound early
		bestScore, bestPred = t.bestRecursive(n.hi, target, blocks, costFn, lowerBoundFn, 1-dim, bestScore, bestPred)
		bestScore, bestPred = t.bestRecursive(n.lo, target, blocks, costFn, lowerBoundFn, 1-dim, bestScore, bestPred)
	} else {
		// everything in the high child starts at or after the target,
		// so no predecessor can be there
		bestScore, bestPred = t.bestRecursive(n.lo, target, blocks, costFn, lowerBoundFn, 1-dim, bestScore, bestPred)
	}
	return bestScore, bestPred
}
