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
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// GapProfile is a user-supplied gap cost table in TOML, an alternative to
// the built-in medium/loose presets:
//
//	positions = [1, 2, 3, 11, 111, 2111]
//	q_gap = [325, 360, 400, 450, 600, 1100]
//	t_gap = [325, 360, 400, 450, 600, 1100]
//	b_gap = [625, 660, 700, 750, 900, 1400]
type GapProfile struct {
	Positions []int     `toml:"positions"`
	QGap      []float64 `toml:"q_gap"`
	TGap      []float64 `toml:"t_gap"`
	BGap      []float64 `toml:"b_gap"`
}

// GapCalc builds a gap calculator from the profile.
func (p *GapProfile) GapCalc() (*GapCalc, error) {
	n := len(p.Positions)
	if n < 2 {
		return nil, errors.New("gap profile needs at least two positions")
	}
	if len(p.QGap) != n || len(p.TGap) != n || len(p.BGap) != n {
		return nil, errors.Errorf("gap profile: positions (%d), q_gap (%d), t_gap (%d) and b_gap (%d) must have the same length",
			n, len(p.QGap), len(p.TGap), len(p.BGap))
	}
	for i := 1; i < n; i++ {
		if p.Positions[i] <= p.Positions[i-1] {
			return nil, errors.New("gap profile: positions must be strictly increasing")
		}
	}
	if p.Positions[0] < 1 {
		return nil, errors.New("gap profile: positions must start at 1 or later")
	}
	if p.Positions[n-1] < gapSmallSize {
		return nil, errors.Errorf("gap profile: the last position must be at least %d", gapSmallSize)
	}
	return NewGapCalc(p.Positions, p.QGap, p.TGap, p.BGap), nil
}

// GapProfileFromReader decodes a TOML gap profile.
func GapProfileFromReader(r io.Reader) (*GapProfile, error) {
	var p GapProfile
	if err := toml.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decoding gap profile")
	}
	return &p, nil
}

// GapCalcFromFile loads a TOML gap profile file and builds a calculator.
func GapCalcFromFile(file string) (*GapCalc, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	p, err := GapProfileFromReader(fh)
	if err != nil {
		return nil, err
	}
	return p.GapCalc()
}
