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
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultDigits is the default number of digits of residual precision.
const DefaultDigits = 8

// Solver is a conjugate gradient solver for the potential field over
// a set of mesh leaves. Its scratch vectors are kept between calls.
type Solver struct {
	iterations int
	digits     int

	// dx holds the cell size at each depth.
	dx []float64

	direction, residual, q []float64
}

// NewSolver creates a solver for meshes no deeper than maxDepth.
func NewSolver(maxDepth, iterations, digits int) *Solver {
	if digits <= 0 {
		digits = DefaultDigits
	}
	dx := make([]float64, maxDepth+1)
	dx[0] = 1
	for d := 1; d <= maxDepth; d++ {
		dx[d] = dx[d-1] * 0.5
	}
	return &Solver{iterations: iterations, digits: digits, dx: dx}
}

// Iterations returns the current iteration cap.
func (s *Solver) Iterations() int { return s.iterations }

// SetIterations sets the iteration cap.
func (s *Solver) SetIterations(n int) { s.iterations = n }

// reallocate grows the scratch vectors to hold at least n values.
// They are sized at twice n, padded to a multiple of four.
func (s *Solver) reallocate(n int) {
	if len(s.direction) >= n {
		return
	}
	size := 2 * n
	if size%4 != 0 {
		size += 4 - size%4
	}
	s.direction = make([]float64, size)
	s.residual = make([]float64, size)
	s.q = make([]float64, size)
}

// Solve computes the potential of the given cells, which must include
// every non-boundary neighbor of each cell, and writes it back to the
// mesh. Neighbor slots must be current. It returns the number of
// iterations used.
func (s *Solver) Solve(m *Mesh, cells []int) (int, error) {
	s.stencils(m, cells)

	n := len(cells)
	s.reallocate(n)
	for k, i := range cells {
		m.Cells[i].Index = k
	}
	d, r, q := s.direction[:n], s.residual[:n], s.q[:n]

	s.calcResidual(m, cells, r)
	copy(d, r)
	deltaNew := floats.Dot(r, r)

	eps := math.Pow(10, -float64(s.digits))
	maxR := 2 * eps
	i := 0
	for i < s.iterations && maxR > eps {
		for k, ci := range cells {
			c := &m.Cells[ci]
			var sum float64
			for slot := 0; slot < 8; slot++ {
				if c.Stencil[slot] == 0 {
					continue
				}
				sum += d[m.Cells[c.Neighbors[slot]].Index] * c.Stencil[slot]
			}
			q[k] = -sum + d[k]*c.Stencil[8]
		}

		alpha := floats.Dot(d, q)
		if math.Abs(alpha) > 0 {
			alpha = deltaNew / alpha
		}
		for k, ci := range cells {
			m.Cells[ci].Potential += alpha * d[k]
		}

		floats.AddScaled(r, -alpha, q)
		// The convergence test uses the largest signed residual.
		maxR = 0
		for _, v := range r {
			if v > maxR {
				maxR = v
			}
		}

		deltaOld := deltaNew
		deltaNew = floats.Dot(r, r)
		var beta float64
		if deltaOld != 0 {
			beta = deltaNew / deltaOld
		}
		floats.AddScaledTo(d, r, beta, d)
		i++
	}
	if math.IsNaN(deltaNew) || math.IsInf(deltaNew, 0) {
		return i, fmt.Errorf("lumos: potential solve diverged after %d iterations", i)
	}
	for k, ci := range cells {
		m.Cells[ci].Residual = r[k]
	}
	return i, nil
}

// calcResidual stores b - Ax for the current potentials in r and
// returns the largest residual magnitude.
func (s *Solver) calcResidual(m *Mesh, cells []int, r []float64) float64 {
	var maxResidual float64
	for k, ci := range cells {
		c := &m.Cells[ci]
		var sum float64
		for slot := 0; slot < 8; slot++ {
			if nb := c.Neighbors[slot]; nb != None {
				sum += m.Cells[nb].Potential * c.Stencil[slot]
			}
		}
		r[k] = c.B - (-sum + c.Potential*c.Stencil[8])
		maxResidual = math.Max(maxResidual, math.Abs(r[k]))
	}
	return maxResidual
}

// stencils computes the face coefficients, diagonal and right hand
// side of each cell from its neighbor slots. Boundary neighbors are
// folded into the right hand side.
func (s *Solver) stencils(m *Mesh, cells []int) {
	for _, ci := range cells {
		c := &m.Cells[ci]
		invDx := 1 / s.dx[c.Depth]
		var diag, b float64

		face := func(slot int, w float64) {
			nb := &m.Cells[c.Neighbors[slot]]
			if nb.Boundary {
				b += nb.Potential * w
			} else {
				c.Stencil[slot] = w
			}
		}

		for slot := 0; slot < 8; slot += 2 {
			c.Stencil[slot] = 0
			c.Stencil[slot+1] = 0
			switch {
			case c.Neighbors[slot+1] != None:
				diag += 2 * invDx
				face(slot, invDx)
				face(slot+1, invDx)
			case m.Cells[c.Neighbors[slot]].Depth == c.Depth:
				diag += invDx
				face(slot, invDx)
			default:
				diag += 0.5 * invDx
				face(slot, 0.5*invDx)
			}
		}
		c.Stencil[8] = diag
		c.B = b
	}
}
