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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ChainHeader carries the aggregate fields of one chain.
// Coordinates are 0-based half-open; for a '-' query strand, QStart/QEnd
// are given on the reverse strand, as in the UCSC chain format.
type ChainHeader struct {
	Score float64

	TName   string
	TSize   uint64
	TStrand byte
	TStart  uint64
	TEnd    uint64

	QName   string
	QSize   uint64
	QStrand byte
	QStart  uint64
	QEnd    uint64

	ID uint64
}

// ChainData is one aligned segment of a chain: the block's target span,
// and the gaps to the next block on the target (DT) and query (DQ) axes.
// Both gaps are zero for the last segment.
type ChainData struct {
	Size uint64
	DT   uint64
	DQ   uint64
}

// Chain is an ordered sequence of collinear blocks, stored as inter-block
// gap statistics rather than absolute coordinates.
type Chain struct {
	Header ChainHeader
	Data   []ChainData
}

// ToBlocks reconstructs absolute block coordinates from the gap statistics,
// starting at the header's start positions.
func (c *Chain) ToBlocks() []Block {
	blocks := make([]Block, 0, len(c.Data))
	t := c.Header.TStart
	q := c.Header.QStart
	for _, d := range c.Data {
		blocks = append(blocks, Block{
			TStart: t,
			TEnd:   t + d.Size,
			QStart: q,
			QEnd:   q + d.Size,
		})
		t += d.Size + d.DT
		q += d.Size + d.DQ
	}
	return blocks
}

// DataFromBlocks converts absolute blocks back to gap statistics and
// updates the header's start/end fields from the first and last block.
// Blocks must be sorted by TStart.
func DataFromBlocks(header *ChainHeader, blocks []Block) []ChainData {
	if len(blocks) == 0 {
		return nil
	}

	header.TStart = blocks[0].TStart
	header.TEnd = blocks[len(blocks)-1].TEnd
	header.QStart = blocks[0].QStart
	header.QEnd = blocks[len(blocks)-1].QEnd

	data := make([]ChainData, 0, len(blocks))
	for i := range blocks {
		curr := &blocks[i]
		var dt, dq uint64
		if i < len(blocks)-1 {
			next := &blocks[i+1]
			dt = next.TStart - curr.TEnd
			dq = next.QStart - curr.QEnd
		}
		data = append(data, ChainData{
			Size: curr.TEnd - curr.TStart,
			DT:   dt,
			DQ:   dq,
		})
	}
	return data
}

// WriteTo writes the chain in UCSC chain format:
// a header line, one line per segment, and a terminating blank line.
func (c *Chain) WriteTo(w io.Writer) error {
	h := &c.Header
	_, err := fmt.Fprintf(w, "chain %.0f %s %d %c %d %d %s %d %c %d %d %d\n",
		h.Score,
		h.TName, h.TSize, h.TStrand, h.TStart, h.TEnd,
		h.QName, h.QSize, h.QStrand, h.QStart, h.QEnd,
		h.ID)
	if err != nil {
		return err
	}

	for i, d := range c.Data {
		if i == len(c.Data)-1 {
			_, err = fmt.Fprintf(w, "%d\n", d.Size)
		} else {
			_, err = fmt.Fprintf(w, "%d\t%d\t%d\n", d.Size, d.DT, d.DQ)
		}
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}

// ReadChains parses a stream of UCSC chain records.
func ReadChains(r io.Reader) ([]*Chain, error) {
	chains := make([]*Chain, 0, 64)
	var curr *Chain

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			curr = nil
			continue
		}

		if strings.HasPrefix(line, "chain") {
			fields := strings.Fields(line)
			if len(fields) < 13 {
				return nil, errors.Errorf("invalid chain header: %s", line)
			}

			h := ChainHeader{TName: fields[2], QName: fields[7]}
			var err error
			if h.Score, err = strconv.ParseFloat(fields[1], 64); err != nil {
				return nil, errors.Wrap(err, "chain score")
			}
			if h.TSize, err = strconv.ParseUint(fields[3], 10, 64); err != nil {
				return nil, errors.Wrap(err, "target size")
			}
			h.TStrand = fields[4][0]
			if h.TStart, err = strconv.ParseUint(fields[5], 10, 64); err != nil {
				return nil, errors.Wrap(err, "target start")
			}
			if h.TEnd, err = strconv.ParseUint(fields[6], 10, 64); err != nil {
				return nil, errors.Wrap(err, "target end")
			}
			if h.QSize, err = strconv.ParseUint(fields[8], 10, 64); err != nil {
				return nil, errors.Wrap(err, "query size")
			}
			h.QStrand = fields[9][0]
			if h.QStart, err = strconv.ParseUint(fields[10], 10, 64); err != nil {
				return nil, errors.Wrap(err, "query start")
			}
			if h.QEnd, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
				return nil, errors.Wrap(err, "query end")
			}
			if h.ID, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
				return nil, errors.Wrap(err, "chain id")
			}

			curr = &Chain{Header: h, Data: make([]ChainData, 0, 8)}
			chains = append(chains, curr)
			continue
		}

		if curr == nil {
			continue
		}

		fields := strings.Fields(line)
		var d ChainData
		var err error
		if d.Size, err = strconv.ParseUint(fields[0], 10, 64); err != nil {
			return nil, errors.Wrap(err, "segment size")
		}
		if len(fields) >= 3 {
			if d.DT, err = strconv.ParseUint(fields[1], 10, 64); err != nil {
				return nil, errors.Wrap(err, "segment dt")
			}
			if d.DQ, err = strconv.ParseUint(fields[2], 10, 64); err != nil {
				return nil, errors.Wrap(err, "segment dq")
			}
		}
		curr.Data = append(curr.Data, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return chains, nil
}

// Chains sorts a chain list by descending score.
type Chains []*Chain

func (cs Chains) Len() int { return len(cs) }
func (cs Chains) Less(i, j int) bool {
	return cs[i].Header.Score > cs[j].Header.Score
}
func (cs Chains) Swap(i, j int) { cs[i], cs[j] = cs[j], cs[i] }
