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
	"errors"
	"fmt"
	"math"
)

// Brightness constants.
const (
	SecondaryIntensity = 0.3
	LeaderIntensity    = 0.75
)

// ErrUnknownNode is returned when a grid index has no node in the graph.
var ErrUnknownNode = errors.New("lumos: grid index not in connectivity graph")

// Node is one accepted growth cell.
type Node struct {
	Index     int   // flattened grid index of the cell
	Parent    int   // position of the parent node, or None
	Children  []int // positions of the child nodes
	Leader    bool
	Secondary bool
	Depth     int // distance from the branch point
	Intensity float64
}

// Graph records which filled cell each new cell grew from.
type Graph struct {
	Nodes  []Node
	Root   int
	Lookup map[int]int // grid index to node position

	XRes, YRes              int
	Dx, Dy                  float64
	BottomHit               int // grid index of the terminal cell, or -1
	InputWidth, InputHeight int
}

// NewGraph creates an empty graph over an xRes×yRes grid.
func NewGraph(xRes, yRes int) *Graph {
	g := &Graph{
		Root:      None,
		Lookup:    make(map[int]int),
		XRes:      xRes,
		YRes:      yRes,
		Dx:        1 / float64(xRes),
		Dy:        1 / float64(yRes),
		BottomHit: -1,
	}
	if g.Dx < g.Dy {
		g.Dy = g.Dx
	} else {
		g.Dx = g.Dy
	}
	return g
}

// Segments returns the number of parent-child links.
func (g *Graph) Segments() int {
	if len(g.Nodes) == 0 {
		return 0
	}
	return len(g.Nodes) - 1
}

// Node returns the node for a grid index.
func (g *Graph) Node(index int) (*Node, bool) {
	p, ok := g.Lookup[index]
	if !ok {
		return nil, false
	}
	return &g.Nodes[p], true
}

func (g *Graph) newNode(index, parent int) int {
	p := len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{Index: index, Parent: parent, Secondary: true})
	g.Lookup[index] = p
	if parent != None {
		g.Nodes[parent].Children = append(g.Nodes[parent].Children, p)
	}
	return p
}

// AddSegment records that the cell at grid index child grew from the
// cell at grid index parent. The first segment creates the root from
// parent. A parent seen for the first time after that, such as a
// second seed cell, is linked under the root.
func (g *Graph) AddSegment(child, parent int) error {
	if _, ok := g.Lookup[child]; ok {
		return fmt.Errorf("lumos: adding segment %d->%d: child already in graph", parent, child)
	}
	if g.Root == None {
		g.Root = g.newNode(parent, None)
	}
	p, ok := g.Lookup[parent]
	if !ok {
		p = g.newNode(parent, g.Root)
	}
	g.newNode(child, p)
	return nil
}

// BuildLeader marks the path from the terminal cell to the root as the
// leader, labels every side branch with its distance from the branch
// point, and computes the intensity of every node.
func (g *Graph) BuildLeader(terminal int) error {
	child, ok := g.Lookup[terminal]
	if !ok {
		return fmt.Errorf("lumos: building leader from %d: %w", terminal, ErrUnknownNode)
	}
	g.BottomHit = terminal
	for child != None {
		n := &g.Nodes[child]
		n.Leader = true
		n.Secondary = false
		for _, c := range n.Children {
			if !g.Nodes[c].Leader {
				g.buildBranch(c, 1)
			}
		}
		child = n.Parent
	}
	g.BuildIntensity()
	return nil
}

func (g *Graph) buildBranch(p, depth int) {
	n := &g.Nodes[p]
	n.Depth = depth
	n.Leader = false
	for _, c := range n.Children {
		if !g.Nodes[c].Leader {
			g.buildBranch(c, depth+1)
		}
	}
}

// BuildIntensity assigns a brightness to every non-root node. Leader
// nodes get LeaderIntensity. A branch node fades with its distance
// from the branch point, more slowly when the deepest node below it
// is further away.
func (g *Graph) BuildIntensity() {
	if g.Root == None {
		return
	}
	deepest := make([]int, len(g.Nodes))
	g.deepest(g.Root, deepest)
	g.intensity(g.Root, deepest)
}

// deepest stores the greatest depth found in the subtree of each node.
func (g *Graph) deepest(p int, out []int) int {
	d := g.Nodes[p].Depth
	for _, c := range g.Nodes[p].Children {
		if cd := g.deepest(c, out); cd > d {
			d = cd
		}
	}
	out[p] = d
	return d
}

func (g *Graph) intensity(p int, deepest []int) {
	for _, c := range g.Nodes[p].Children {
		n := &g.Nodes[c]
		if n.Leader {
			n.Intensity = LeaderIntensity
		} else {
			n.Intensity = branchIntensity(n.Depth, deepest[c])
		}
		g.intensity(c, deepest)
	}
}

func branchIntensity(depth, maxDepth int) float64 {
	if depth == 0 {
		return 0.5
	}
	md := float64(maxDepth)
	stdDev := -(md * md) / (2 * math.Log(SecondaryIntensity))
	d := float64(depth)
	return 0.5 * math.Exp(-(d*d)/(2*stdDev))
}

// Segment is a drawable link between two grid cells.
type Segment struct {
	From, To  int // grid indices
	Intensity float64
	Leader    bool
}

// Edges returns every segment in depth-first pre-order.
func (g *Graph) Edges() []Segment {
	if g.Root == None {
		return nil
	}
	out := make([]Segment, 0, g.Segments())
	var walk func(p int)
	walk = func(p int) {
		for _, c := range g.Nodes[p].Children {
			n := &g.Nodes[c]
			out = append(out, Segment{
				From:      g.Nodes[p].Index,
				To:        n.Index,
				Intensity: n.Intensity,
				Leader:    n.Leader,
			})
			walk(c)
		}
	}
	walk(g.Root)
	return out
}

// LeaderPath returns the grid indices of the leader from the terminal
// cell to the root, or nil if no terminal has been reached.
func (g *Graph) LeaderPath() []int {
	p, ok := g.Lookup[g.BottomHit]
	if g.BottomHit == -1 || !ok {
		return nil
	}
	var path []int
	for ; p != None; p = g.Nodes[p].Parent {
		path = append(path, g.Nodes[p].Index)
	}
	return path
}

// cellXY converts a grid index to grid coordinates.
func (g *Graph) cellXY(index int) (x, y int) {
	return index % g.XRes, index / g.XRes
}
