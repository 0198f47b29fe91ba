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
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"
)

// SubMatrix is a DNA substitution matrix for rescoring alignment blocks
// against real sequence.
//
// Scores are stored for all pairs of bytes (256x256), case-insensitively,
// though typically only ACGTN are used. Gap open and extend penalties
// accompany the matrix.
type SubMatrix struct {
	scores []int // 256*256

	GapOpen   int
	GapExtend int
}

// Score returns the substitution score of target base t against query base q.
func (m *SubMatrix) Score(t byte, q byte) int {
	return m.scores[int(t)<<8|int(q)]
}

func (m *SubMatrix) set(t byte, q byte, score int) {
	tu, qu := toUpper(t), toUpper(q)
	tl, ql := toLower(t), toLower(q)
	m.scores[int(tu)<<8|int(qu)] = score
	m.scores[int(tl)<<8|int(ql)] = score
	m.scores[int(tu)<<8|int(ql)] = score
	m.scores[int(tl)<<8|int(qu)] = score
}

func (m *SubMatrix) setN(score int) {
	for i := 0; i < 256; i++ {
		m.scores[int('N')<<8|i] = score
		m.scores[i<<8|int('N')] = score
		m.scores[int('n')<<8|i] = score
		m.scores[i<<8|int('n')] = score
	}
}

func toUpper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}

func toLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}

// DefaultSubMatrix returns a simple identity matrix:
// +100 for matches, -100 for mismatches and anything involving N.
func DefaultSubMatrix() *SubMatrix {
	m := &SubMatrix{
		scores:    make([]int, 256*256),
		GapOpen:   400,
		GapExtend: 30,
	}
	bases := []byte("ACGT")
	for _, b1 := range bases {
		for _, b2 := range bases {
			if b1 == b2 {
				m.set(b1, b2, 100)
			} else {
				m.set(b1, b2, -100)
			}
		}
	}
	m.setN(-100)
	return m
}

// HoxD55SubMatrix returns the HoxD55 matrix (the LASTZ default).
func HoxD55SubMatrix() *SubMatrix {
	m := &SubMatrix{
		scores:    make([]int, 256*256),
		GapOpen:   400,
		GapExtend: 30,
	}
	bases := []byte("ACGT")
	scores := [4][4]int{
		{91, -114, -31, -123},
		{-114, 100, -125, -31},
		{-31, -125, 100, -114},
		{-123, -31, -114, 91},
	}
	for i, b1 := range bases {
		for j, b2 := range bases {
			m.set(b1, b2, scores[i][j])
		}
	}
	m.setN(-100)
	return m
}

// SubMatrixFromName returns a preset matrix by name,
// falling back to loading the name as a file path.
func SubMatrixFromName(name string) (*SubMatrix, error) {
	switch strings.ToLower(name) {
	case "hoxd55":
		return HoxD55SubMatrix(), nil
	}
	return SubMatrixFromFile(name)
}

// SubMatrixFromFile loads a substitution matrix from a BLAST/LASTZ-style
// plain-text file: an optional header line of base letters, rows of scores,
// '#' comments, and optional "O=..." / "E=..." gap cost overrides.
// Gzipped files are handled transparently.
func SubMatrixFromFile(file string) (*SubMatrix, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	m := &SubMatrix{
		scores:    make([]int, 256*256),
		GapOpen:   400,
		GapExtend: 30,
	}

	chars := []byte("ACGT")
	var rowsRead int

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// gap cost parameter lines, e.g. "O = 400, E = 30" or "O=400"
		if strings.Contains(line, "=") &&
			(strings.Contains(line, "O") || strings.Contains(line, "E")) {
			parts := strings.FieldsFunc(line, func(r rune) bool {
				return r == ',' || r == ' ' || r == '='
			})
			for i := 0; i < len(parts)-1; i++ {
				v, err := strconv.Atoi(parts[i+1])
				if err != nil {
					continue
				}
				switch parts[i] {
				case "O":
					m.GapOpen = v
				case "E":
					m.GapExtend = v
				}
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		// header line of single base letters
		if rowsRead == 0 && isBaseHeader(fields) {
			chars = chars[:0]
			for _, f := range fields {
				chars = append(chars, f[0])
			}
			continue
		}

		if rowsRead >= len(chars) {
			continue
		}

		rowChar := chars[rowsRead]
		// rows may start with the row letter
		valStart := 0
		if len(fields) > len(chars) {
			if fields[0][0] != rowChar {
				continue
			}
			valStart = 1
		}

		var rowOK bool
		for j := 0; j < len(chars) && j+valStart < len(fields); j++ {
			v, err := strconv.Atoi(fields[j+valStart])
			if err != nil {
				continue
			}
			m.set(rowChar, chars[j], v)
			rowOK = true
		}
		if rowOK {
			rowsRead++
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}

	return m, nil
}

func isBaseHeader(fields []string) bool {
	for _, f := range fields {
		if len(f) != 1 || !strings.Contains("ACGTN", f) {
			return false
		}
	}
	return true
}
