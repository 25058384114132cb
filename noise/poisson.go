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

// Package noise generates blue-noise point sets used to scatter weak
// attractors through the growth domain.
package noise

import (
	"math"
	"math/rand/v2"

	"github.com/ctessum/geom"
)

// DefaultAttempts is the number of candidate points tried around each
// active point before it is retired.
const DefaultAttempts = 30

// PoissonDisk samples points over the unit square so that no two
// points are closer than the requested separation, and the square is
// filled until no more points fit near existing ones.
type PoissonDisk struct {
	Attempts int

	rng    *rand.Rand
	points []geom.Point
}

// NewPoissonDisk returns a sampler drawing from rng.
func NewPoissonDisk(rng *rand.Rand) *PoissonDisk {
	return &PoissonDisk{Attempts: DefaultAttempts, rng: rng}
}

// Points returns the most recently generated points.
func (p *PoissonDisk) Points() []geom.Point { return p.points }

// Generate replaces the point set with a new maximal sample whose
// points are at least minSep apart.
func (p *PoissonDisk) Generate(minSep float64) []geom.Point {
	p.points = p.points[:0]
	if minSep <= 0 || math.IsNaN(minSep) {
		return nil
	}
	size := minSep / math.Sqrt2
	n := int(math.Ceil(1 / size))
	grid := make([]int, n*n)
	for i := range grid {
		grid[i] = -1
	}
	cellOf := func(pt geom.Point) (int, int) {
		return min(int(pt.X/size), n-1), min(int(pt.Y/size), n-1)
	}
	fits := func(pt geom.Point) bool {
		if pt.X < 0 || pt.X >= 1 || pt.Y < 0 || pt.Y >= 1 {
			return false
		}
		gx, gy := cellOf(pt)
		for y := max(gy-2, 0); y <= min(gy+2, n-1); y++ {
			for x := max(gx-2, 0); x <= min(gx+2, n-1); x++ {
				k := grid[x+y*n]
				if k < 0 {
					continue
				}
				q := p.points[k]
				if math.Hypot(q.X-pt.X, q.Y-pt.Y) < minSep {
					return false
				}
			}
		}
		return true
	}
	add := func(pt geom.Point) {
		gx, gy := cellOf(pt)
		grid[gx+gy*n] = len(p.points)
		p.points = append(p.points, pt)
	}

	add(geom.Point{X: p.rng.Float64(), Y: p.rng.Float64()})
	active := []int{0}
	for len(active) > 0 {
		a := p.rng.IntN(len(active))
		center := p.points[active[a]]
		found := false
		for i := 0; i < p.Attempts; i++ {
			theta := 2 * math.Pi * p.rng.Float64()
			r := minSep * (1 + p.rng.Float64())
			pt := geom.Point{X: center.X + r*math.Cos(theta), Y: center.Y + r*math.Sin(theta)}
			if fits(pt) {
				active = append(active, len(p.points))
				add(pt)
				found = true
				break
			}
		}
		if !found {
			active[a] = active[len(active)-1]
			active = active[:len(active)-1]
		}
	}
	return p.points
}

// Rasterize marks the cells of a res×res grid over the unit square
// that contain at least one of pts. Cell (i, j) is at index i+j*res.
func Rasterize(pts []geom.Point, res int) []bool {
	out := make([]bool, res*res)
	for _, pt := range pts {
		i := int(pt.X * float64(res))
		j := int(pt.Y * float64(res))
		if i < 0 || i >= res || j < 0 || j >= res {
			continue
		}
		out[i+j*res] = true
	}
	return out
}
