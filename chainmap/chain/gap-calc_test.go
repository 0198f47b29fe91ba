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

import "testing"

func TestMediumGapCalc(t *testing.T) {
	c := MediumGapCalc()

	if v := c.Calc(0, 0); v != 0 {
		t.Errorf("zero gap should cost nothing, got %d", v)
	}
	if v := c.Calc(1, 0); v != 325 {
		t.Errorf("query gap of 1: expected 325, got %d", v)
	}
	if v := c.Calc(0, 1); v != 325 {
		t.Errorf("target gap of 1: expected 325, got %d", v)
	}
	if v := c.Calc(1, 1); v != 625 {
		t.Errorf("double gap of 1: expected 625, got %d", v)
	}
	if v := c.Calc(11, 0); v != 450 {
		t.Errorf("query gap of 11: expected 450, got %d", v)
	}
	if v := c.Calc(252111, 0); v != 56600 {
		t.Errorf("query gap of 252111: expected 56600, got %d", v)
	}

	// negative lengths are overlaps, clamped to zero
	if v := c.Calc(-10, -5); v != 0 {
		t.Errorf("overlaps should be clamped, got %d", v)
	}
	if v, want := c.Calc(-10, 1), c.Calc(0, 1); v != want {
		t.Errorf("query overlap with target gap: expected %d, got %d", want, v)
	}

	// a double gap is keyed by the larger length
	if v, want := c.Calc(3, 50), c.Calc(50, 50); v != want {
		t.Errorf("double gap keyed by max: expected %d, got %d", want, v)
	}
}

func TestGapCalcMonotonic(t *testing.T) {
	for _, c := range []*GapCalc{MediumGapCalc(), LooseGapCalc()} {
		prevQ, prevT, prevB := 0, 0, 0
		for _, l := range []int{1, 2, 3, 10, 50, 110, 111, 112, 1000, 2111,
			10000, 32111, 100000, 252111, 500000, 1000000} {
			q, tg, b := c.Calc(l, 0), c.Calc(0, l), c.Calc(l, l)
			if q < prevQ || tg < prevT || b < prevB {
				t.Errorf("gap cost decreased at length %d: q %d<%d, t %d<%d, b %d<%d",
					l, q, prevQ, tg, prevT, b, prevB)
			}
			prevQ, prevT, prevB = q, tg, b
		}
	}
}

func TestGapCalcInterpolation(t *testing.T) {
	c := MediumGapCalc()

	// halfway between control points 111 (600) and 2111 (1100)
	if v := c.Calc(1111, 0); v != 850 {
		t.Errorf("interpolated query gap of 1111: expected 850, got %d", v)
	}

	// extrapolation continues the last segment's slope
	v1 := c.Calc(252111, 0)
	v2 := c.Calc(252111+100000, 0)
	v3 := c.Calc(252111+200000, 0)
	if v2-v1 != v3-v2 {
		t.Errorf("extrapolation not linear: %d, %d, %d", v1, v2, v3)
	}
	if v2 <= v1 {
		t.Errorf("extrapolation not increasing: %d then %d", v1, v2)
	}
}

func TestAffineGapCalc(t *testing.T) {
	c := AffineGapCalc(400, 30)

	if v := c.Calc(1, 0); v != 430 {
		t.Errorf("affine gap of 1: expected 430, got %d", v)
	}
	if v := c.Calc(10, 0); v != 700 {
		t.Errorf("affine gap of 10: expected 700, got %d", v)
	}
	if v := c.Calc(0, 1000); v != 400+30*1000 {
		t.Errorf("affine gap of 1000: expected %d, got %d", 400+30*1000, v)
	}
	// the same cost applies on all three tables
	if v, want := c.Calc(200, 500), c.Calc(0, 500); v != want {
		t.Errorf("affine double gap: expected %d, got %d", want, v)
	}
}
