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

	"github.com/ctessum/geom"

	"github.com/spatialmodel/lumos/noise"
)

// BootstrapIterations is the iteration cap used for the first solve
// after a mesh is created.
const BootstrapIterations = 10000

// NoiseSampler generates the point set used to scatter weak attractors
// through otherwise empty parts of the domain.
type NoiseSampler interface {
	// Generate creates points over the unit square that are at least
	// approximately minSep apart.
	Generate(minSep float64) []geom.Point
}

// Mesh is a 2:1 balanced quadtree over the unit square. Cells are
// stored in an arena and refer to each other by index.
type Mesh struct {
	Cells []Cell
	Root  int

	MaxDepth int
	MaxRes   int

	// Noise is the rasterized noise grid, MaxRes×MaxRes, or nil.
	Noise []bool

	// Smallest holds every leaf created at maximum depth by Insert,
	// in creation order.
	Smallest []int

	// Iterations is the solver iteration cap after the first solve.
	Iterations   int
	Bootstrapped bool

	solver *Solver
}

// NewMesh creates a mesh able to resolve an xRes×yRes grid. The
// resolution is rounded up to the next power of two. If sampler is not
// nil, it is sampled once to place attractors in new leaves.
func NewMesh(xRes, yRes, iterations, digits int, sampler NoiseSampler) (*Mesh, error) {
	if xRes <= 0 || yRes <= 0 {
		return nil, fmt.Errorf("lumos: invalid mesh resolution %dx%d", xRes, yRes)
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("lumos: invalid solver iteration cap %d", iterations)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(max(xRes, yRes)))))
	m := &Mesh{
		MaxDepth:   maxDepth,
		MaxRes:     1 << uint(maxDepth),
		Iterations: iterations,
	}
	// Ghost cells, one per depth, pad the domain edge.
	for d := 0; d <= maxDepth; d++ {
		g := newCell(0, 0, 0, 0, None, d)
		g.Boundary = true
		g.Ghost = true
		m.Cells = append(m.Cells, g)
	}
	m.Root = len(m.Cells)
	m.Cells = append(m.Cells, newCell(1, 1, 0, 0, None, 0))
	m.Refine(m.Root)

	if sampler != nil {
		pts := sampler.Generate(2.5 / float64(m.MaxRes))
		m.Noise = noise.Rasterize(pts, m.MaxRes)
	}
	m.solver = NewSolver(maxDepth, iterations, digits)
	return m, nil
}

// Cell returns the cell at index i.
func (m *Mesh) Cell(i int) *Cell { return &m.Cells[i] }

// Refine divides cell i into four children that inherit its potential.
// It does nothing if the cell already has children.
func (m *Mesh) Refine(i int) {
	if !m.Cells[i].IsLeaf() {
		return
	}
	c := m.Cells[i]
	n, e, s, w := c.Bounds[north], c.Bounds[east], c.Bounds[south], c.Bounds[west]
	cx, cy := c.Center[0], c.Center[1]
	first := len(m.Cells)
	m.Cells = append(m.Cells,
		newCell(n, cx, cy, w, i, c.Depth+1),
		newCell(n, e, cy, cx, i, c.Depth+1),
		newCell(cy, e, s, cx, i, c.Depth+1),
		newCell(cy, cx, s, w, i, c.Depth+1),
	)
	for k := 0; k < 4; k++ {
		m.Cells[first+k].Potential = c.Potential
		m.Cells[i].Children[k] = first + k
	}
}

// Insert creates a leaf at maximum depth holding the point (x, y) and
// brings its orthogonal and diagonal neighbors to maximum depth. It
// returns the index of the new leaf.
func (m *Mesh) Insert(x, y float64) int {
	cur := m.Root
	existed := true
	for d := 0; d < m.MaxDepth; d++ {
		q := quadrant(&m.Cells[cur], x, y)
		if m.Cells[cur].IsLeaf() {
			existed = false
			m.Refine(cur)
		}
		cur = m.Cells[cur].Children[q]
	}
	if !existed {
		m.recordSmallest(m.Cells[cur].Parent)
	}

	var orth [4]int
	for _, dir := range []direction{dirNorth, dirSouth, dirWest, dirEast} {
		n := m.neighbor(cur, dir)
		if n != None && m.Cells[n].Depth != m.MaxDepth {
			for m.Cells[n].Depth != m.MaxDepth {
				m.Refine(n)
				n = m.neighbor(cur, dir)
			}
			m.recordSmallest(m.Cells[n].Parent)
		}
		orth[dir] = n
	}

	if n := orth[dirNorth]; n != None {
		m.deepen(m.neighbor(n, dirWest), SE)
		m.deepen(m.neighbor(n, dirEast), SW)
	}
	if s := orth[dirSouth]; s != None {
		m.deepen(m.neighbor(s, dirWest), NE)
		m.deepen(m.neighbor(s, dirEast), NW)
	}
	return cur
}

// InsertPixel inserts the center of grid cell (i, j) of the
// MaxRes×MaxRes grid.
func (m *Mesh) InsertPixel(i, j int) int {
	r := float64(m.MaxRes)
	return m.Insert((float64(i)+0.5)/r, (float64(j)+0.5)/r)
}

// deepen refines a diagonal neighbor down to maximum depth, following
// the child at position toward the inserted cell.
func (m *Mesh) deepen(i, toward int) {
	if i == None || m.Cells[i].Depth == m.MaxDepth {
		return
	}
	for m.Cells[i].Depth != m.MaxDepth {
		m.Refine(i)
		i = m.Cells[i].Children[toward]
	}
	m.recordSmallest(m.Cells[i].Parent)
}

func (m *Mesh) recordSmallest(parent int) {
	for _, c := range m.Cells[parent].Children {
		m.Smallest = append(m.Smallest, c)
		m.setNoise(c)
	}
}

// setNoise turns an empty cell that lands on a noise point into a
// weak attractor.
func (m *Mesh) setNoise(i int) {
	c := &m.Cells[i]
	if c.State != Empty || m.Noise == nil {
		return
	}
	x := int(c.Center[0] * float64(m.MaxRes))
	y := int(c.Center[1] * float64(m.MaxRes))
	if m.Noise[x+y*m.MaxRes] {
		c.Boundary = true
		c.State = Attractor
		c.Potential = 0.5
		c.Candidate = true
	}
}

// Leaf returns the leaf holding the point (x, y) without refining.
func (m *Mesh) Leaf(x, y float64) int {
	cur := m.Root
	for !m.Cells[cur].IsLeaf() {
		cur = m.Cells[cur].Children[quadrant(&m.Cells[cur], x, y)]
	}
	return cur
}

// Leaves returns every leaf in depth-first child order.
func (m *Mesh) Leaves() []int {
	return m.collect(m.Root, nil, func(*Cell) bool { return true })
}

// EmptyLeaves returns the leaves that do not hold a fixed potential.
func (m *Mesh) EmptyLeaves() []int {
	return m.collect(m.Root, nil, func(c *Cell) bool { return !c.Boundary })
}

func (m *Mesh) collect(i int, out []int, keep func(*Cell) bool) []int {
	c := &m.Cells[i]
	if c.IsLeaf() {
		if keep(c) {
			out = append(out, i)
		}
		return out
	}
	for _, ch := range c.Children {
		out = m.collect(ch, out, keep)
	}
	return out
}

// Balance refines leaves until no two leaves sharing a face differ in
// depth by more than one.
func (m *Mesh) Balance() {
	work := m.Leaves()
	for k := 0; k < len(work); k++ {
		cur := work[k]
		for _, dir := range []direction{dirNorth, dirSouth, dirWest, dirEast} {
			n := m.neighbor(cur, dir)
			for n != None && m.Cells[n].Depth < m.Cells[cur].Depth-1 {
				m.Refine(n)
				ch := m.Cells[n].Children
				work = append(work, ch[:]...)
				n = m.neighbor(cur, dir)
			}
		}
	}
}

// Solve rebuilds the neighbor lists and solves for the potential in
// every empty leaf. The first call runs with BootstrapIterations as
// the iteration cap. It returns the number of iterations used.
func (m *Mesh) Solve() (int, error) {
	m.BuildNeighbors()
	empty := m.EmptyLeaves()
	if !m.Bootstrapped {
		m.solver.SetIterations(BootstrapIterations)
		m.Bootstrapped = true
	} else {
		m.solver.SetIterations(m.Iterations)
	}
	return m.solver.Solve(m, empty)
}

// GridIndex returns the flattened MaxRes×MaxRes grid index of the
// center of cell i.
func (m *Mesh) GridIndex(i int) int {
	r := float64(m.MaxRes)
	c := &m.Cells[i]
	return int(c.Center[0]*r) + int(c.Center[1]*r)*m.MaxRes
}
