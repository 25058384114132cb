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

	"github.com/ctessum/geom"
)

// State is the role a cell plays in the growth.
type State uint8

// Cell states.
const (
	Empty State = iota
	Filled
	Terminator
	Repulsor
	Attractor
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Filled:
		return "filled"
	case Terminator:
		return "terminator"
	case Repulsor:
		return "repulsor"
	case Attractor:
		return "attractor"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// None marks an absent cell reference.
const None = -1

// Child positions within a parent, in winding order.
const (
	NW = iota
	NE
	SE
	SW
)

// Bounds indices.
const (
	north = iota
	east
	south
	west
)

// Neighbor slots. Each direction has two slots; the second is only
// used when the neighbor across that face is finer than the cell.
const (
	SlotNorth = 0
	SlotEast  = 2
	SlotSouth = 4
	SlotWest  = 6
)

// Cell is a node of the quadtree. References to other cells are
// indices into the owning Mesh's arena.
type Cell struct {
	Bounds [4]float64 // north, east, south, west
	Center [2]float64
	Depth  int

	Parent    int
	Children  [4]int
	Neighbors [8]int

	// Stencil holds the face coefficients for each neighbor slot;
	// element 8 is the diagonal.
	Stencil   [9]float64
	Potential float64
	B         float64
	Residual  float64
	Index     int // dense solver index

	Boundary  bool // Does this cell hold a fixed potential?
	Candidate bool // Has this cell been queued for growth?
	State     State

	// Ghost cells pad the domain edge during a neighbor build.
	Ghost bool
}

func newCell(n, e, s, w float64, parent, depth int) Cell {
	return Cell{
		Bounds:    [4]float64{n, e, s, w},
		Center:    [2]float64{(e + w) * 0.5, (n + s) * 0.5},
		Depth:     depth,
		Parent:    parent,
		Children:  [4]int{None, None, None, None},
		Neighbors: [8]int{None, None, None, None, None, None, None, None},
		Index:     None,
	}
}

// IsLeaf reports whether the cell has no children.
func (c *Cell) IsLeaf() bool { return c.Children[0] == None }

// Polygon returns the outline of the cell.
func (c *Cell) Polygon() geom.Polygon {
	n, e, s, w := c.Bounds[north], c.Bounds[east], c.Bounds[south], c.Bounds[west]
	return geom.Polygon{{
		{X: w, Y: s},
		{X: e, Y: s},
		{X: e, Y: n},
		{X: w, Y: n},
		{X: w, Y: s},
	}}
}

// quadrant returns the child position of the point (x, y) relative
// to a cell center. Points on a dividing line fall to the west and,
// west of center, to the north.
func quadrant(c *Cell, x, y float64) int {
	dx := x - c.Center[0]
	dy := y - c.Center[1]
	if dx > 0 {
		if dy < 0 {
			return SE
		}
		return NE
	}
	if dy < 0 {
		return SW
	}
	return NW
}
