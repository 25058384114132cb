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

type direction int

const (
	dirNorth direction = iota
	dirEast
	dirSouth
	dirWest
)

// across gives the child position reached by crossing a face in each
// direction from each child position.
var across = [4][4]int{
	dirNorth: {NW: SW, NE: SE, SE: NE, SW: NW},
	dirSouth: {NW: SW, NE: SE, SE: NE, SW: NW},
	dirEast:  {NW: NE, NE: NW, SE: SW, SW: SE},
	dirWest:  {NW: NE, NE: NW, SE: SW, SW: SE},
}

// inside reports whether crossing the face stays within the parent.
var inside = [4][4]bool{
	dirNorth: {SE: true, SW: true},
	dirSouth: {NW: true, NE: true},
	dirEast:  {NW: true, SW: true},
	dirWest:  {NE: true, SE: true},
}

// faceChildren gives, for a finer neighbor in each direction, the two
// children that touch the shared face, in slot order.
var faceChildren = [4][2]int{
	dirNorth: {SW, SE},
	dirEast:  {NW, SW},
	dirSouth: {NE, NW},
	dirWest:  {SE, NE},
}

// position returns the child position of cell i within its parent.
func (m *Mesh) position(i int) int {
	p := m.Cells[i].Parent
	for k, c := range m.Cells[p].Children {
		if c == i {
			return k
		}
	}
	panic("lumos: cell is not a child of its parent")
}

// neighbor returns the cell across the given face of cell i: a cell
// of the same depth, or a coarser leaf. It returns None at the edge
// of the domain.
func (m *Mesh) neighbor(i int, dir direction) int {
	p := m.Cells[i].Parent
	if p == None {
		return None
	}
	pos := m.position(i)
	to := across[dir][pos]
	if inside[dir][pos] {
		return m.Cells[p].Children[to]
	}
	mu := m.neighbor(p, dir)
	if mu == None || m.Cells[mu].IsLeaf() {
		return mu
	}
	return m.Cells[mu].Children[to]
}

// North returns the northern neighbor of cell i, or None.
func (m *Mesh) North(i int) int { return m.neighbor(i, dirNorth) }

// South returns the southern neighbor of cell i, or None.
func (m *Mesh) South(i int) int { return m.neighbor(i, dirSouth) }

// East returns the eastern neighbor of cell i, or None.
func (m *Mesh) East(i int) int { return m.neighbor(i, dirEast) }

// West returns the western neighbor of cell i, or None.
func (m *Mesh) West(i int) int { return m.neighbor(i, dirWest) }

// ghost returns the ghost cell for the given depth.
func (m *Mesh) ghost(depth int) int { return depth }

// BuildNeighbors balances the mesh and fills the neighbor slots of
// every leaf. A face with a same-depth or coarser neighbor fills one
// slot; a face with a finer neighbor fills both. Faces on the domain
// edge get a ghost cell.
func (m *Mesh) BuildNeighbors() {
	m.Balance()
	for _, i := range m.Leaves() {
		for _, dir := range []direction{dirNorth, dirEast, dirSouth, dirWest} {
			slot := 2 * int(dir)
			n := m.neighbor(i, dir)
			c := &m.Cells[i]
			switch {
			case n == None:
				c.Neighbors[slot] = m.ghost(c.Depth)
				c.Neighbors[slot+1] = None
			case m.Cells[n].IsLeaf():
				c.Neighbors[slot] = n
				c.Neighbors[slot+1] = None
			default:
				fc := faceChildren[dir]
				c.Neighbors[slot] = m.Cells[n].Children[fc[0]]
				c.Neighbors[slot+1] = m.Cells[n].Children[fc[1]]
			}
		}
	}
}
