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

// gapSmallSize is the size of the dense per-length cost tables.
// Gap lengths below this value are answered from a precomputed array,
// longer ones from the sparse control points.
const gapSmallSize = 111

// GapCalc computes the cost of the gap between two chained blocks.
//
// Three tables are maintained: query-only gaps, target-only gaps, and
// simultaneous gaps (cost keyed by the larger of the two lengths).
// Each table is a piecewise-linear function given by sparse control points,
// with a dense precomputed array for small lengths and linear extrapolation
// beyond the last control point.
type GapCalc struct {
	qSmall []int
	tSmall []int
	bSmall []int

	longPos []int
	qLong   []float64
	tLong   []float64
	bLong   []float64

	// parameters for extrapolation beyond the last control point
	lastPos              int
	qLastVal, qLastSlope float64
	tLastVal, tLastSlope float64
	bLastVal, bLastSlope float64
}

// gapPositions are the control-point gap lengths shared by all presets.
var gapPositions = []int{1, 2, 3, 11, 111, 2111, 12111, 32111, 72111, 152111, 252111}

// MediumGapCalc returns the gap calculator tuned for human/mouse distances.
func MediumGapCalc() *GapCalc {
	qGap := []float64{
		325, 360, 400, 450, 600, 1100, 3600, 7600, 15600, 31600, 56600,
	}
	bGap := []float64{
		625, 660, 700, 750, 900, 1400, 4000, 8000, 16000, 32000, 57000,
	}
	// the target table equals the query table
	return NewGapCalc(gapPositions, qGap, qGap, bGap)
}

// LooseGapCalc returns the gap calculator tuned for distant species,
// e.g. chicken/human.
func LooseGapCalc() *GapCalc {
	qGap := []float64{
		350, 425, 450, 600, 900, 2900, 22900, 57900, 117900, 217900, 317900,
	}
	bGap := []float64{
		750, 825, 850, 1000, 1300, 3300, 23300, 58300, 118300, 218300, 318300,
	}
	return NewGapCalc(gapPositions, qGap, qGap, bGap)
}

// AffineGapCalc returns a gap calculator with affine costs,
// cost(len) = open + extend*len for len > 0, applied to all three tables.
func AffineGapCalc(open int, extend int) *GapCalc {
	vals := make([]float64, len(gapPositions))
	for i, p := range gapPositions {
		if p > 0 {
			vals[i] = float64(open + extend*p)
		}
	}
	return NewGapCalc(gapPositions, vals, vals, vals)
}

// NewGapCalc creates a gap calculator from sparse control points.
// pos lists the gap lengths at which costs are given, qVals/tVals/bVals
// the costs of query-only, target-only and simultaneous gaps of these lengths.
func NewGapCalc(pos []int, qVals, tVals, bVals []float64) *GapCalc {
	c := &GapCalc{
		qSmall: make([]int, gapSmallSize),
		tSmall: make([]int, gapSmallSize),
		bSmall: make([]int, gapSmallSize),
	}

	for i := 1; i < gapSmallSize; i++ {
		c.qSmall[i] = int(interpolate(i, pos, qVals))
		c.tSmall[i] = int(interpolate(i, pos, tVals))
		c.bSmall[i] = int(interpolate(i, pos, bVals))
	}

	startLong := 0
	for i, p := range pos {
		if p == gapSmallSize {
			startLong = i
			break
		}
	}

	c.longPos = pos[startLong:]
	c.qLong = qVals[startLong:]
	c.tLong = tVals[startLong:]
	c.bLong = bVals[startLong:]

	n := len(c.longPos)
	dp := float64(c.longPos[n-1] - c.longPos[n-2])
	c.lastPos = c.longPos[n-1]
	c.qLastVal = c.qLong[n-1]
	c.qLastSlope = (c.qLong[n-1] - c.qLong[n-2]) / dp
	c.tLastVal = c.tLong[n-1]
	c.tLastSlope = (c.tLong[n-1] - c.tLong[n-2]) / dp
	c.bLastVal = c.bLong[n-1]
	c.bLastSlope = (c.bLong[n-1] - c.bLong[n-2]) / dp

	return c
}

// interpolate evaluates the piecewise-linear function given by control
// points (s, v) at x, extrapolating with the slope of the last segment.
func interpolate(x int, s []int, v []float64) float64 {
	for i := range s {
		if x == s[i] {
			return v[i]
		}
		if x < s[i] {
			if i == 0 {
				return v[0]
			}
			ds := s[i] - s[i-1]
			dv := v[i] - v[i-1]
			return v[i-1] + dv*float64(x-s[i-1])/float64(ds)
		}
	}
	n := len(s)
	ds := s[n-1] - s[n-2]
	dv := v[n-1] - v[n-2]
	return v[n-2] + dv*float64(x-s[n-2])/float64(ds)
}

// Calc returns the cost of a gap of dq bases in the query and dt bases in
// the target. Negative lengths (overlaps) are clamped to zero.
func (c *GapCalc) Calc(dq int, dt int) int {
	if dq < 0 {
		dq = 0
	}
	if dt < 0 {
		dt = 0
	}

	switch {
	case dt == 0:
		if dq < gapSmallSize {
			return c.qSmall[dq]
		}
		if dq >= c.lastPos {
			return int(c.qLastVal + c.qLastSlope*float64(dq-c.lastPos))
		}
		return int(interpolate(dq, c.longPos, c.qLong))
	case dq == 0:
		if dt < gapSmallSize {
			return c.tSmall[dt]
		}
		if dt >= c.lastPos {
			return int(c.tLastVal + c.tLastSlope*float64(dt-c.lastPos))
		}
		return int(interpolate(dt, c.longPos, c.tLong))
	default:
		// a simultaneous gap costs according to the larger length
		both := dq
		if dt > both {
			both = dt
		}
		if both < gapSmallSize {
			return c.bSmall[both]
		}
		if both >= c.lastPos {
			return int(c.bLastVal + c.bLastSlope*float64(both-c.lastPos))
		}
		return int(interpolate(both, c.longPos, c.bLong))
	}
}
