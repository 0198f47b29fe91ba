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

package psl

import (
	"strings"
	"testing"
)

const testLine = "59\t13\t0\t0\t2\t3\t1\t1\t+\tquery\t100\t10\t90\ttarget\t200\t50\t130\t2\t40,40,\t10,50,\t50,90,"

func TestParse(t *testing.T) {
	r, err := Parse(testLine)
	if err != nil {
		t.Fatal(err)
	}

	if r.Matches != 59 || r.Mismatches != 13 {
		t.Errorf("wrong counts: %d/%d", r.Matches, r.Mismatches)
	}
	if r.Strand != "+" || r.QStrand() != '+' || r.TStrand() != '+' {
		t.Errorf("wrong strand: %s", r.Strand)
	}
	if r.QName != "query" || r.QSize != 100 || r.QStart != 10 || r.QEnd != 90 {
		t.Errorf("wrong query fields: %+v", r)
	}
	if r.TName != "target" || r.TSize != 200 || r.TStart != 50 || r.TEnd != 130 {
		t.Errorf("wrong target fields: %+v", r)
	}
	if r.BlockCount != 2 {
		t.Fatalf("expected 2 blocks, got %d", r.BlockCount)
	}
	if r.BlockSizes[0] != 40 || r.QStarts[1] != 50 || r.TStarts[1] != 90 {
		t.Errorf("wrong block lists: %+v", r)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("59\t13"); err == nil {
		t.Error("expected an error for a truncated line")
	}
	bad := strings.Replace(testLine, "59", "psLayout", 1)
	if _, err := Parse(bad); err == nil {
		t.Error("expected an error for a non-numeric field")
	}
}

func TestParseTruncatesBlockLists(t *testing.T) {
	// block count says 3 but only 2 entries exist in each list
	line := "59\t13\t0\t0\t2\t3\t1\t1\t+\tquery\t100\t10\t90\ttarget\t200\t50\t130\t3\t40,40,\t10,50,\t50,90,"
	r, err := Parse(line)
	if err != nil {
		t.Fatal(err)
	}
	if r.BlockCount != 2 || len(r.BlockSizes) != 2 {
		t.Errorf("block lists not truncated: count=%d sizes=%v", r.BlockCount, r.BlockSizes)
	}
}

func TestRoundTrip(t *testing.T) {
	r, err := Parse(testLine)
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != testLine {
		t.Errorf("round trip changed the line:\n%s\n%s", r.String(), testLine)
	}
}

func TestTranslatedStrand(t *testing.T) {
	line := strings.Replace(testLine, "\t+\t", "\t+-\t", 1)
	r, err := Parse(line)
	if err != nil {
		t.Fatal(err)
	}
	if r.QStrand() != '+' || r.TStrand() != '-' {
		t.Errorf("wrong translated strands: %c %c", r.QStrand(), r.TStrand())
	}
}

func TestReaderSkipsHeaders(t *testing.T) {
	input := `psLayout version 3

match	mis- 	rep. 	N's	Q gap	Q gap	T gap	T gap	strand	Q        	Q   	Q    	Q  	T        	T   	T    	T  	block	blockSizes 	qStarts	 tStarts
     	match	match	   	count	bases	count	bases	      	name     	size	start	end	name     	size	start	end	count
---------------------------------------------------------------------------------------------------------------------------------------------------------------
` + testLine + "\n# trailing comment\n" + testLine + "\n"

	r := NewReaderFrom(strings.NewReader(input))
	var n int
	for {
		rec, err := r.Next()
		if err != nil {
			t.Fatal(err)
		}
		if rec == nil {
			break
		}
		if rec.Matches != 59 {
			t.Errorf("wrong record: %+v", rec)
		}
		n++
	}
	if n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}
}
