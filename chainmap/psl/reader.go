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
	"bufio"
	"io"
	"strings"

	"github.com/shenwei356/xopen"
)

// Reader streams PSL records from a file or io.Reader, skipping empty
// lines, '#' comments and the psLayout header block. Unparsable lines are
// skipped too, so files with stray headers read cleanly.
type Reader struct {
	scanner *bufio.Scanner
	fh      *xopen.Reader
}

// NewReader creates a reader for a PSL file, "-" for stdin.
// Gzipped files are handled transparently.
func NewReader(file string) (*Reader, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	r := NewReaderFrom(fh)
	r.fh = fh
	return r, nil
}

// NewReaderFrom creates a reader over an open stream.
func NewReaderFrom(rd io.Reader) *Reader {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	return &Reader{scanner: scanner}
}

// Next returns the next record, or nil at the end of the stream.
func (r *Reader) Next() (*Record, error) {
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := Parse(line)
		if err != nil {
			// psLayout headers and separator lines land here
			continue
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// Close closes the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.fh != nil {
		return r.fh.Close()
	}
	return nil
}
