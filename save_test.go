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
	"reflect"
	"testing"

	"github.com/kr/pretty"
)

func TestSaveLoadEngine(t *testing.T) {
	const res = 16
	e := newTestEngine(t, res, true, stripMasks(res))
	for k := 0; k < 12; k++ {
		if _, err := e.AddParticle(); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := e.Save(&buf); err != nil {
		t.Fatal(err)
	}
	e2, err := LoadEngine(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e2.Steps() != e.Steps() || e2.Hit() != e.Hit() {
		t.Errorf("loaded engine at step %d (hit %v), want %d (hit %v)", e2.Steps(), e2.Hit(), e.Steps(), e.Hit())
	}
	if !reflect.DeepEqual(e.Candidates(), e2.Candidates()) {
		t.Errorf("frontier differs: %v", pretty.Diff(e.Candidates(), e2.Candidates()))
	}
	cfg, cfg2 := e.Config(), e2.Config()
	cfg.Logger, cfg2.Logger = nil, nil
	if cfg != cfg2 {
		t.Errorf("config %+v, want %+v", cfg2, cfg)
	}

	// Both copies continue identically.
	growToGround(t, e, res*res)
	growToGround(t, e2, res*res)
	if e.Steps() != e2.Steps() {
		t.Errorf("original finished in %d steps, loaded copy in %d", e.Steps(), e2.Steps())
	}
	if !reflect.DeepEqual(e.Graph.Edges(), e2.Graph.Edges()) {
		t.Errorf("graphs differ: %v", pretty.Diff(e.Graph.Edges(), e2.Graph.Edges()))
	}
}

func TestLoadEngineMalformed(t *testing.T) {
	if _, err := LoadEngine(bytes.NewReader([]byte("not an engine")), nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("got error %v", err)
	}
}

func TestGrownGraphReadWrite(t *testing.T) {
	const res = 16
	e := newTestEngine(t, res, true, stripMasks(res))
	growToGround(t, e, res*res)
	g := e.Graph

	var branches int
	for _, s := range g.Edges() {
		if !s.Leader {
			branches++
		}
	}
	if branches == 0 {
		t.Fatal("grown graph has no side branches")
	}

	var buf bytes.Buffer
	if err := g.Write(&buf); err != nil {
		t.Fatal(err)
	}
	g2, err := ReadGraph(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if g2.BottomHit != g.BottomHit || g2.BottomHit == -1 {
		t.Errorf("terminal %d, want %d", g2.BottomHit, g.BottomHit)
	}
	if g2.Segments() != g.Segments() {
		t.Errorf("%d segments, want %d", g2.Segments(), g.Segments())
	}
	if !reflect.DeepEqual(g.Edges(), g2.Edges()) {
		t.Errorf("edges differ: %v", pretty.Diff(g.Edges(), g2.Edges()))
	}
	if !reflect.DeepEqual(g.LeaderPath(), g2.LeaderPath()) {
		t.Errorf("leader %v, want %v", g2.LeaderPath(), g.LeaderPath())
	}
	for _, n := range g.Nodes {
		n2, ok := g2.Node(n.Index)
		if !ok {
			t.Errorf("node %d missing", n.Index)
			continue
		}
		if n2.Leader != n.Leader || n2.Secondary != n.Secondary || n2.Depth != n.Depth || n2.Intensity != n.Intensity {
			t.Errorf("node %d: leader %v secondary %v depth %d intensity %g, want %v %v %d %g",
				n.Index, n2.Leader, n2.Secondary, n2.Depth, n2.Intensity,
				n.Leader, n.Secondary, n.Depth, n.Intensity)
		}
	}
}
