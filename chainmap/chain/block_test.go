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

func TestRemoveExactDuplicates(t *testing.T) {
	blocks := []Block{
		{TStart: 0, TEnd: 50, QStart: 0, QEnd: 50, Score: 100},
		{TStart: 0, TEnd: 50, QStart: 0, QEnd: 50, Score: 100},
		{TStart: 100, TEnd: 150, QStart: 100, QEnd: 150, Score: 100},
		{TStart: 100, TEnd: 150, QStart: 100, QEnd: 150, Score: 100},
		{TStart: 100, TEnd: 150, QStart: 100, QEnd: 150, Score: 100},
		{TStart: 200, TEnd: 250, QStart: 200, QEnd: 250, Score: 100},
	}

	out := removeExactDuplicates(blocks)
	if len(out) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(out))
	}
	if out[0].TStart != 0 || out[1].TStart != 100 || out[2].TStart != 200 {
		t.Errorf("wrong blocks kept: %v", out)
	}
}

func TestRemoveExactDuplicatesNoop(t *testing.T) {
	blocks := []Block{
		{TStart: 0, TEnd: 50, QStart: 0, QEnd: 50},
		{TStart: 0, TEnd: 50, QStart: 10, QEnd: 60}, // same target span, different query
	}
	if out := removeExactDuplicates(blocks); len(out) != 2 {
		t.Errorf("blocks differing on one axis are not duplicates, got %d", len(out))
	}

	var empty []Block
	if out := removeExactDuplicates(empty); len(out) != 0 {
		t.Errorf("empty input: got %d", len(out))
	}
}

func TestMergeAbuttingBlocks(t *testing.T) {
	blocks := []Block{
		{TStart: 0, TEnd: 50, QStart: 0, QEnd: 50, Score: 100},
		{TStart: 50, TEnd: 100, QStart: 50, QEnd: 100, Score: 200},
		{TStart: 100, TEnd: 120, QStart: 100, QEnd: 120, Score: 50},
		// gap on the target axis, cannot merge
		{TStart: 200, TEnd: 250, QStart: 120, QEnd: 170, Score: 100},
		// abuts on the target only
		{TStart: 250, TEnd: 300, QStart: 200, QEnd: 250, Score: 100},
	}

	out := mergeAbuttingBlocks(blocks)
	if len(out) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(out))
	}

	first := out[0]
	if first.TStart != 0 || first.TEnd != 120 || first.QStart != 0 || first.QEnd != 120 {
		t.Errorf("wrong merged span: %+v", first)
	}
	if first.Score != 350 {
		t.Errorf("merged score should be the sum, got %.0f", first.Score)
	}

	// merging again changes nothing
	out2 := mergeAbuttingBlocks(out)
	if len(out2) != 3 {
		t.Errorf("merge not idempotent: got %d blocks", len(out2))
	}
}
