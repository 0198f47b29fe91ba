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

// Package psl reads and writes alignments in the UCSC PSL format.
package psl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Record is one PSL alignment, the standard 21 columns.
//
// Coordinates are 0-based half-open. QStart/QEnd and TStart/TEnd always
// refer to the forward strand, while QStarts/TStarts (the per-block start
// lists) are given on the strand named in Strand, per the PSL convention.
type Record struct {
	Matches     uint32
	Mismatches  uint32
	RepMatches  uint32
	NCount      uint32
	QNumInsert  uint32
	QBaseInsert int32
	TNumInsert  uint32
	TBaseInsert int32

	// "+", "-", or two characters for translated alignments ("+-", "-+", ...)
	Strand string

	QName  string
	QSize  uint32
	QStart int32
	QEnd   int32

	TName  string
	TSize  uint32
	TStart int32
	TEnd   int32

	BlockCount uint32
	BlockSizes []uint32
	QStarts    []uint32
	TStarts    []uint32
}

// QStrand returns the query strand character.
func (r *Record) QStrand() byte {
	if len(r.Strand) == 0 {
		return '+'
	}
	return r.Strand[0]
}

// TStrand returns the target strand character.
// Untranslated alignments have an implicit '+' target strand.
func (r *Record) TStrand() byte {
	if len(r.Strand) < 2 {
		return '+'
	}
	return r.Strand[1]
}

// Parse parses one tab-separated PSL line.
//
// When the block count disagrees with the lengths of the block lists, the
// lists are truncated to the shortest and the count adjusted.
func Parse(line string) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 21 {
		return nil, errors.New("invalid PSL line: fewer than 21 columns")
	}

	var r Record
	var err error
	parseU32 := func(s string, name string) uint32 {
		if err != nil {
			return 0
		}
		var v uint64
		if v, err = strconv.ParseUint(s, 10, 32); err != nil {
			err = errors.Wrap(err, name)
		}
		return uint32(v)
	}
	parseI32 := func(s string, name string) int32 {
		if err != nil {
			return 0
		}
		var v int64
		if v, err = strconv.ParseInt(s, 10, 32); err != nil {
			err = errors.Wrap(err, name)
		}
		return int32(v)
	}
	parseList := func(s string, name string) []uint32 {
		if err != nil {
			return nil
		}
		vals := make([]uint32, 0, 8)
		for _, part := range strings.Split(s, ",") {
			if part == "" {
				continue
			}
			var v uint64
			if v, err = strconv.ParseUint(part, 10, 32); err != nil {
				err = errors.Wrap(err, name)
				return nil
			}
			vals = append(vals, uint32(v))
		}
		return vals
	}

	r.Matches = parseU32(fields[0], "matches")
	r.Mismatches = parseU32(fields[1], "mismatches")
	r.RepMatches = parseU32(fields[2], "repMatches")
	r.NCount = parseU32(fields[3], "nCount")
	r.QNumInsert = parseU32(fields[4], "qNumInsert")
	r.QBaseInsert = parseI32(fields[5], "qBaseInsert")
	r.TNumInsert = parseU32(fields[6], "tNumInsert")
	r.TBaseInsert = parseI32(fields[7], "tBaseInsert")
	r.Strand = fields[8]
	r.QName = fields[9]
	r.QSize = parseU32(fields[10], "qSize")
	r.QStart = parseI32(fields[11], "qStart")
	r.QEnd = parseI32(fields[12], "qEnd")
	r.TName = fields[13]
	r.TSize = parseU32(fields[14], "tSize")
	r.TStart = parseI32(fields[15], "tStart")
	r.TEnd = parseI32(fields[16], "tEnd")
	r.BlockCount = parseU32(fields[17], "blockCount")
	r.BlockSizes = parseList(fields[18], "blockSizes")
	r.QStarts = parseList(fields[19], "qStarts")
	r.TStarts = parseList(fields[20], "tStarts")
	if err != nil {
		return nil, err
	}

	n := len(r.BlockSizes)
	if len(r.QStarts) < n {
		n = len(r.QStarts)
	}
	if len(r.TStarts) < n {
		n = len(r.TStarts)
	}
	if int(r.BlockCount) != n {
		r.BlockCount = uint32(n)
		r.BlockSizes = r.BlockSizes[:n]
		r.QStarts = r.QStarts[:n]
		r.TStarts = r.TStarts[:n]
	}

	return &r, nil
}

// WriteTo writes the record as one PSL line.
// The block lists carry trailing commas, as UCSC tools emit them.
func (r *Record) WriteTo(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%d\t%d\t%d\t%s\t%d\t%d\t%d\t%d\t",
		r.Matches, r.Mismatches, r.RepMatches, r.NCount,
		r.QNumInsert, r.QBaseInsert, r.TNumInsert, r.TBaseInsert,
		r.Strand,
		r.QName, r.QSize, r.QStart, r.QEnd,
		r.TName, r.TSize, r.TStart, r.TEnd,
		r.BlockCount)
	if err != nil {
		return err
	}

	var buf strings.Builder
	for _, v := range r.BlockSizes {
		fmt.Fprintf(&buf, "%d,", v)
	}
	buf.WriteByte('\t')
	for _, v := range r.QStarts {
		fmt.Fprintf(&buf, "%d,", v)
	}
	buf.WriteByte('\t')
	for _, v := range r.TStarts {
		fmt.Fprintf(&buf, "%d,", v)
	}
	buf.WriteByte('\n')

	_, err = io.WriteString(w, buf.String())
	return err
}

// String renders the record as a PSL line without the trailing newline.
func (r *Record) String() string {
	var buf strings.Builder
	r.WriteTo(&buf)
	return strings.TrimRight(buf.String(), "\n")
}
