/*
Copyright © 2020 the lumos authors.
This file is part of lumos.

lumos is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

lumos is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with lumos.  If not, see <http://www.gnu.org/licenses/>.
*/

package lumos

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // register PNG masks
	"os"

	_ "github.com/spakin/netpbm" // register PPM masks
)

// Masks holds the four boundary-condition grids read from an input
// image. Each grid is indexed x+y*Width, with y=0 the southern row.
type Masks struct {
	Width, Height int
	Start         []bool
	Attractor     []bool
	Repulsor      []bool
	Terminator    []bool
}

// NewMasks creates empty w×h masks.
func NewMasks(w, h int) Masks {
	return Masks{
		Width:      w,
		Height:     h,
		Start:      make([]bool, w*h),
		Attractor:  make([]bool, w*h),
		Repulsor:   make([]bool, w*h),
		Terminator: make([]bool, w*h),
	}
}

func (m Masks) validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrMaskSize, m.Width, m.Height)
	}
	n := m.Width * m.Height
	for name, g := range map[string][]bool{
		"start": m.Start, "attractor": m.Attractor,
		"repulsor": m.Repulsor, "terminator": m.Terminator,
	} {
		if len(g) != n {
			return fmt.Errorf("%w: %s mask has %d cells, want %d", ErrMaskSize, name, len(g), n)
		}
	}
	return nil
}

// MasksFromImage classifies the pixels of img. Pure white marks a
// terminator. Otherwise a saturated red channel marks a start cell, a
// saturated green channel a repulsor and a saturated blue channel an
// attractor. The top row of the image is the northern edge.
func MasksFromImage(img image.Image) Masks {
	b := img.Bounds()
	m := NewMasks(b.Dx(), b.Dy())
	for py := b.Min.Y; py < b.Max.Y; py++ {
		y := b.Max.Y - 1 - py
		for px := b.Min.X; px < b.Max.X; px++ {
			c := color.NRGBAModel.Convert(img.At(px, py)).(color.NRGBA)
			i := (px - b.Min.X) + y*m.Width
			if c.R == 255 && c.G == 255 && c.B == 255 {
				m.Terminator[i] = true
				continue
			}
			m.Start[i] = c.R == 255
			m.Repulsor[i] = c.G == 255
			m.Attractor[i] = c.B == 255
		}
	}
	return m
}

// ReadMaskImage reads a PNG or netpbm (PPM, PGM, PBM, PAM) mask image
// from path.
func ReadMaskImage(path string) (Masks, error) {
	f, err := os.Open(path)
	if err != nil {
		return Masks{}, fmt.Errorf("lumos: opening mask image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return Masks{}, fmt.Errorf("lumos: decoding mask image %s: %w", path, err)
	}
	return MasksFromImage(img), nil
}
