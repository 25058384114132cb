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
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/kr/pretty"
)

// chainGraph builds 0 -> 1 -> {2, 3}, 3 -> 4 on a 4×4 grid.
func chainGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph(4, 4)
	for _, s := range [][2]int{{1, 0}, {2, 1}, {3, 1}, {4, 3}} {
		if err := g.AddSegment(s[0], s[1]); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestAddSegment(t *testing.T) {
	g := chainGraph(t)
	if g.Segments() != 4 {
		t.Errorf("%d segments, want 4", g.Segments())
	}
	if root := g.Nodes[g.Root]; root.Index != 0 || root.Parent != None {
		t.Errorf("root %+v", root)
	}
	n, ok := g.Node(3)
	if !ok {
		t.Fatal("node 3 missing")
	}
	if p := g.Nodes[n.Parent].Index; p != 1 {
		t.Errorf("node 3 has parent %d, want 1", p)
	}
	for _, nd := range g.Nodes {
		if !nd.Secondary {
			t.Errorf("node %d is not secondary before a leader is built", nd.Index)
		}
	}
	if err := g.AddSegment(2, 4); err == nil {
		t.Error("re-adding a child should fail")
	}
	if _, ok := g.Node(12); ok {
		t.Error("unexpected node 12")
	}

	// A second seed is linked under the root.
	if err := g.AddSegment(9, 8); err != nil {
		t.Fatal(err)
	}
	seed, _ := g.Node(8)
	if seed.Parent != g.Root {
		t.Errorf("second seed parent %d, want the root", seed.Parent)
	}
}

func TestBuildLeader(t *testing.T) {
	g := chainGraph(t)
	if err := g.BuildLeader(4); err != nil {
		t.Fatal(err)
	}
	if got, want := g.LeaderPath(), []int{4, 3, 1, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("leader path %v, want %v", got, want)
	}
	branch, _ := g.Node(2)
	if branch.Leader || !branch.Secondary || branch.Depth != 1 {
		t.Errorf("branch node %+v", branch)
	}
	if different(branch.Intensity, 0.15, 1e-12) {
		t.Errorf("branch intensity %g, want 0.15", branch.Intensity)
	}
	for _, idx := range []int{1, 3, 4} {
		n, _ := g.Node(idx)
		if n.Intensity != LeaderIntensity {
			t.Errorf("leader node %d intensity %g", idx, n.Intensity)
		}
	}

	want := []Segment{
		{From: 0, To: 1, Intensity: LeaderIntensity, Leader: true},
		{From: 1, To: 2, Intensity: branch.Intensity},
		{From: 1, To: 3, Intensity: LeaderIntensity, Leader: true},
		{From: 3, To: 4, Intensity: LeaderIntensity, Leader: true},
	}
	if got := g.Edges(); !reflect.DeepEqual(got, want) {
		t.Errorf("edges: %v", pretty.Diff(got, want))
	}

	if err := g.BuildLeader(11); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("unknown terminal gave %v", err)
	}
}

func TestBranchIntensity(t *testing.T) {
	for _, test := range []struct {
		depth, maxDepth int
		want            float64
	}{
		{0, 0, 0.5},
		{0, 7, 0.5},
		{1, 1, 0.15},
		{4, 4, 0.15},
		{2, 4, 0.5 * math.Pow(SecondaryIntensity, 0.25)},
	} {
		got := branchIntensity(test.depth, test.maxDepth)
		if different(got, test.want, 1e-12) {
			t.Errorf("branchIntensity(%d, %d) = %g, want %g", test.depth, test.maxDepth, got, test.want)
		}
	}
}

func TestGraphNoLeader(t *testing.T) {
	g := chainGraph(t)
	if p := g.LeaderPath(); p != nil {
		t.Errorf("leader path %v before any hit", p)
	}
	g.BuildIntensity()
	for _, s := range g.Edges() {
		if s.Intensity != 0.5 {
			t.Errorf("segment %d->%d intensity %g, want 0.5", s.From, s.To, s.Intensity)
		}
	}
	if NewGraph(4, 4).Edges() != nil {
		t.Error("empty graph has edges")
	}
}

func TestGraphReadWrite(t *testing.T) {
	g := chainGraph(t)
	if err := g.BuildLeader(4); err != nil {
		t.Fatal(err)
	}
	g.InputWidth, g.InputHeight = 3, 4

	var buf bytes.Buffer
	if err := g.Write(&buf); err != nil {
		t.Fatal(err)
	}
	// Header, then five nodes with four child links between them.
	if want := 32 + 5*18 + 4*4; buf.Len() != want {
		t.Errorf("wrote %d bytes, want %d", buf.Len(), want)
	}
	g2, err := ReadGraph(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g.Edges(), g2.Edges()) {
		t.Errorf("edges differ: %v", pretty.Diff(g.Edges(), g2.Edges()))
	}
	if !reflect.DeepEqual(g.LeaderPath(), g2.LeaderPath()) {
		t.Errorf("leader %v, want %v", g2.LeaderPath(), g.LeaderPath())
	}
	if g2.XRes != 4 || g2.YRes != 4 || g2.Dx != 0.25 || g2.InputWidth != 3 || g2.InputHeight != 4 {
		t.Errorf("header fields not restored: %+v", g2)
	}
}

// countWriter counts calls to Write and fails after fail bytes when
// fail is positive.
type countWriter struct {
	calls, n, fail int
}

func (w *countWriter) Write(p []byte) (int, error) {
	w.calls++
	w.n += len(p)
	if w.fail > 0 && w.n > w.fail {
		return 0, errors.New("disk full")
	}
	return len(p), nil
}

func TestGraphWriteBuffered(t *testing.T) {
	g := chainGraph(t)
	w := new(countWriter)
	if err := g.Write(w); err != nil {
		t.Fatal(err)
	}
	if w.calls != 1 || w.n != 32+5*18+4*4 {
		t.Errorf("%d bytes in %d writes, want one flushed write of %d", w.n, w.calls, 32+5*18+4*4)
	}
	if err := g.Write(&countWriter{fail: 10}); err == nil {
		t.Error("write error was not returned")
	}
}

func TestGraphReadWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGraph(8, 8).Write(&buf); err != nil {
		t.Fatal(err)
	}
	g, err := ReadGraph(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if g.Root != None || len(g.Nodes) != 0 || g.BottomHit != -1 {
		t.Errorf("empty graph read back as %+v", g)
	}
}

func TestReadGraphMalformed(t *testing.T) {
	var buf bytes.Buffer
	if err := chainGraph(t).Write(&buf); err != nil {
		t.Fatal(err)
	}
	full := buf.Bytes()
	for _, n := range []int{0, 10, 40, len(full) - 2} {
		if _, err := ReadGraph(bytes.NewReader(full[:n])); !errors.Is(err, ErrMalformed) {
			t.Errorf("%d of %d bytes: got error %v", n, len(full), err)
		}
	}
}
