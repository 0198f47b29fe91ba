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
	"os"
	"path/filepath"
	"testing"
)

func TestBitCoverage(t *testing.T) {
	c := newBitCoverage(200)

	if !c.isFullySet(10, 0) {
		t.Error("an empty range is always fully set")
	}
	if c.isFullySet(0, 10) {
		t.Error("nothing is set yet")
	}

	// a range crossing two word boundaries
	c.setRange(60, 80)
	if !c.isFullySet(60, 80) {
		t.Error("the whole set range should be covered")
	}
	if !c.isFullySet(63, 66) || !c.isFullySet(100, 40) {
		t.Error("inner ranges should be covered")
	}
	if c.isFullySet(59, 2) || c.isFullySet(139, 2) {
		t.Error("ranges leaking over the edges should not be covered")
	}

	// within one word
	c.setRange(3, 4)
	if !c.isFullySet(3, 4) || c.isFullySet(2, 4) || c.isFullySet(3, 5) {
		t.Error("wrong single-word coverage")
	}

	// clamping at the sequence end
	c.setRange(190, 100)
	if !c.isFullySet(190, 10) || !c.isFullySet(195, 100) {
		t.Error("ranges should clamp at the sequence size")
	}
}

func prenetChain(score float64, tName, qName string, tStart, qStart, size uint64) *Chain {
	return &Chain{
		Header: ChainHeader{
			Score: score,
			TName: tName, TSize: 1000, TStrand: '+', TStart: tStart, TEnd: tStart + size,
			QName: qName, QSize: 1000, QStrand: '+', QStart: qStart, QEnd: qStart + size,
			ID: 1,
		},
		Data: []ChainData{{Size: size}},
	}
}

func TestPreNetFilter(t *testing.T) {
	sizes := map[string]uint64{"chr1": 1000}
	qSizes := map[string]uint64{"scaf1": 1000, "scaf2": 1000}
	f := NewPreNetFilter(&PreNetOptions{Pad: 1}, sizes, qSizes)

	// the first chain always survives
	keep, err := f.Keep(prenetChain(5000, "chr1", "scaf1", 100, 100, 50))
	if err != nil {
		t.Fatal(err)
	}
	if !keep {
		t.Error("the first chain should be kept")
	}

	// fully covered on both axes, dropped
	keep, err = f.Keep(prenetChain(4000, "chr1", "scaf1", 110, 110, 20))
	if err != nil {
		t.Fatal(err)
	}
	if keep {
		t.Error("a fully covered chain should be dropped")
	}

	// same target region but a different query sequence, kept
	keep, err = f.Keep(prenetChain(3000, "chr1", "scaf2", 110, 110, 20))
	if err != nil {
		t.Fatal(err)
	}
	if !keep {
		t.Error("a chain open on the query axis should be kept")
	}

	// sticking out of the covered region on the target, kept
	keep, err = f.Keep(prenetChain(2000, "chr1", "scaf1", 140, 500, 50))
	if err != nil {
		t.Fatal(err)
	}
	if !keep {
		t.Error("a partially covered chain should be kept")
	}
}

func TestPreNetFilterPad(t *testing.T) {
	sizes := map[string]uint64{"chr1": 1000}
	f := NewPreNetFilter(&PreNetOptions{Pad: 10}, sizes, sizes)

	if _, err := f.Keep(prenetChain(5000, "chr1", "chr1", 100, 100, 50)); err != nil {
		t.Fatal(err)
	}

	// inside the padded halo around the first chain
	keep, err := f.Keep(prenetChain(4000, "chr1", "chr1", 95, 95, 60))
	if err != nil {
		t.Fatal(err)
	}
	if keep {
		t.Error("a chain inside the padded region should be dropped")
	}
}

func TestPreNetFilterOrderAndNames(t *testing.T) {
	sizes := map[string]uint64{"chr1": 1000}
	f := NewPreNetFilter(&PreNetOptions{Pad: 1}, sizes, sizes)

	if _, err := f.Keep(prenetChain(100, "chr1", "chr1", 0, 0, 10)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Keep(prenetChain(200, "chr1", "chr1", 50, 50, 10)); err == nil {
		t.Error("expected an error for ascending scores")
	}

	f = NewPreNetFilter(&PreNetOptions{Pad: 1}, sizes, sizes)
	if _, err := f.Keep(prenetChain(100, "chrX", "chr1", 0, 0, 10)); err == nil {
		t.Error("expected an error for an unknown target sequence")
	}
}

func TestPreNetFilterHaplotypes(t *testing.T) {
	if !IsHaplotype("chr6_apd_hap1") || !IsHaplotype("chr1_KI270762v1_alt") {
		t.Error("haplotype names not recognized")
	}
	if IsHaplotype("chr6") || IsHaplotype("scaffold_12") {
		t.Error("regular names flagged as haplotypes")
	}

	sizes := map[string]uint64{"chr1": 1000, "chr1_x_alt": 1000}
	f := NewPreNetFilter(&PreNetOptions{Pad: 1}, sizes, sizes)
	keep, err := f.Keep(prenetChain(100, "chr1", "chr1_x_alt", 0, 0, 10))
	if err != nil {
		t.Fatal(err)
	}
	if keep {
		t.Error("haplotype queries should be dropped by default")
	}

	f = NewPreNetFilter(&PreNetOptions{Pad: 1, KeepHaplotypes: true}, sizes, sizes)
	keep, err = f.Keep(prenetChain(100, "chr1", "chr1_x_alt", 0, 0, 10))
	if err != nil {
		t.Fatal(err)
	}
	if !keep {
		t.Error("haplotype queries should survive with KeepHaplotypes")
	}
}

func TestReadSizes(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sizes.txt")
	content := "chr1\t248956422\nchr2\t242193529\n\nchrM 16569\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sizes, err := ReadSizes(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(sizes) != 3 {
		t.Fatalf("expected 3 sequences, got %d", len(sizes))
	}
	if sizes["chr1"] != 248956422 || sizes["chrM"] != 16569 {
		t.Errorf("wrong sizes: %v", sizes)
	}
}
