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
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"
)

func writeToMemory(t *testing.T, seqs []Sequence, softMask bool) *File {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, seqs, softMask); err != nil {
		t.Fatal(err)
	}
	f, err := New(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestPackDNA(t *testing.T) {
	// a=10, c=01, G=11, T=00 -> 0x9C; N=00, n=00 -> 0x00
	packed, nBlocks, maskBlocks := packDNA([]byte("acGTNn"), true)

	if !bytes.Equal(packed, []byte{0x9C, 0x00}) {
		t.Errorf("wrong packed bytes: %x", packed)
	}
	if len(nBlocks) != 1 || nBlocks[0] != (Span{Start: 4, End: 6}) {
		t.Errorf("wrong N blocks: %+v", nBlocks)
	}
	if len(maskBlocks) != 2 ||
		maskBlocks[0] != (Span{Start: 0, End: 2}) ||
		maskBlocks[1] != (Span{Start: 5, End: 6}) {
		t.Errorf("wrong mask blocks: %+v", maskBlocks)
	}

	// masking off drops the lowercase blocks
	_, _, maskBlocks = packDNA([]byte("acGTNn"), false)
	if len(maskBlocks) != 0 {
		t.Errorf("expected no mask blocks, got %+v", maskBlocks)
	}
}

func TestRoundTrip(t *testing.T) {
	f := writeToMemory(t, []Sequence{
		{Name: "seq1", Seq: []byte("TCAG")},
		{Name: "seq2", Seq: []byte("aaNggTTTTTTTT")},
	}, true)

	names := f.SeqNames()
	if len(names) != 2 || names[0] != "seq1" || names[1] != "seq2" {
		t.Fatalf("wrong names: %v", names)
	}

	if n, err := f.SeqLen("seq1"); err != nil || n != 4 {
		t.Errorf("wrong length of seq1: %d (%v)", n, err)
	}

	s, err := f.ReadSeq("seq1", 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if string(s) != "TCAG" {
		t.Errorf("expected TCAG, got %s", s)
	}

	s, err = f.ReadSeq("seq2", 0, 13)
	if err != nil {
		t.Fatal(err)
	}
	if string(s) != "aaNggTTTTTTTT" {
		t.Errorf("expected aaNggTTTTTTTT, got %s", s)
	}

	if _, err = f.ReadSeq("nope", 0, 1); err == nil {
		t.Error("expected an error for an unknown sequence")
	}
}

func TestReadSeqRanges(t *testing.T) {
	f := writeToMemory(t, []Sequence{
		{Name: "chr1", Seq: []byte("ACGTNNNNacgtACGT")},
	}, true)

	for _, c := range []struct {
		start, end uint64
		want       string
	}{
		{0, 16, "ACGTNNNNacgtACGT"},
		{2, 6, "GTNN"},
		{7, 10, "Nac"},
		{12, 16, "ACGT"},
		{5, 5, ""},
		// end clamps to the sequence length
		{12, 100, "ACGT"},
	} {
		got, err := f.ReadSeq("chr1", c.start, c.end)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != c.want {
			t.Errorf("ReadSeq(%d, %d): expected %q, got %q", c.start, c.end, c.want, got)
		}
	}
}

func TestNoMask(t *testing.T) {
	f := writeToMemory(t, []Sequence{
		{Name: "chr1", Seq: []byte("acgtACGT")},
	}, true)

	f.NoMask = true
	got, err := f.ReadSeq("chr1", 0, 8)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ACGTACGT" {
		t.Errorf("expected all uppercase with NoMask, got %s", got)
	}
}

func TestSizes(t *testing.T) {
	f := writeToMemory(t, []Sequence{
		{Name: "chr1", Seq: bytes.Repeat([]byte("ACGT"), 25)},
		{Name: "chr2", Seq: []byte("ACG")},
	}, false)

	sizes, err := f.Sizes()
	if err != nil {
		t.Fatal(err)
	}
	if sizes["chr1"] != 100 || sizes["chr2"] != 3 {
		t.Errorf("wrong sizes: %v", sizes)
	}
}

func TestOpenFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.2bit")
	if err := WriteFile(file, []Sequence{{Name: "s", Seq: []byte("GATTACA")}}, false); err != nil {
		t.Fatal(err)
	}

	f, err := Open(file)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := f.ReadSeq("s", 0, 7)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "GATTACA" {
		t.Errorf("expected GATTACA, got %s", got)
	}
}

func TestBadMagicAndVersion(t *testing.T) {
	if _, err := New(bytes.NewReader([]byte("not a 2bit file"))); err == nil {
		t.Error("expected an error for a bad magic")
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(magic))
	binary.Write(&buf, binary.LittleEndian, uint32(2)) // unsupported version
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	if _, err := New(bytes.NewReader(buf.Bytes())); err == nil {
		t.Error("expected an error for an unsupported version")
	}
}
