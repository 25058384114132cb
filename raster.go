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
	"fmt"

	"github.com/ctessum/sparse"
)

// Rasterize draws every segment into a (YRes*scale)×(XRes*scale)
// array, keeping the brightest intensity at each pixel. Array row 0 is
// the southern edge of the domain.
func (g *Graph) Rasterize(scale int) (*sparse.DenseArray, error) {
	if scale < 1 {
		return nil, fmt.Errorf("lumos: invalid raster scale %d", scale)
	}
	r := sparse.ZerosDense(g.YRes*scale, g.XRes*scale)
	for _, s := range g.Edges() {
		bx, by := g.cellXY(s.From)
		ex, ey := g.cellXY(s.To)
		bx, by, ex, ey = bx*scale, by*scale, ex*scale, ey*scale
		if ex < bx {
			bx, by, ex, ey = ex, ey, bx, by
		}
		drawLine(r, bx, by, ex, ey, s.Intensity)
	}
	return r, nil
}

// drawLine rasterizes a horizontal, vertical or diagonal line with
// bx <= ex. Horizontal and vertical lines exclude their far end.
func drawLine(r *sparse.DenseArray, bx, by, ex, ey int, intensity float64) {
	switch {
	case by == ey:
		for x := bx; x < ex; x++ {
			plot(r, x, ey, intensity)
		}
	case bx == ex:
		lo, hi := by, ey
		if lo > hi {
			lo, hi = hi, lo
		}
		for y := lo; y < hi; y++ {
			plot(r, bx, y, intensity)
		}
	default:
		slope := 1
		if by > ey {
			slope = -1
		}
		for i := 0; i <= ex-bx; i++ {
			plot(r, bx+i, by+i*slope, intensity)
		}
	}
}

func plot(r *sparse.DenseArray, x, y int, intensity float64) {
	if y < 0 || y >= r.Shape[0] || x < 0 || x >= r.Shape[1] {
		return
	}
	if intensity > r.Get(y, x) {
		r.Set(intensity, y, x)
	}
}

// Crop returns the lower-left w×h corner of a raster.
func Crop(r *sparse.DenseArray, w, h int) *sparse.DenseArray {
	w = min(w, r.Shape[1])
	h = min(h, r.Shape[0])
	out := sparse.ZerosDense(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(r.Get(y, x), y, x)
		}
	}
	return out
}
