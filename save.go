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
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

// ErrMalformed is returned when a saved graph or engine cannot be read.
var ErrMalformed = errors.New("lumos: malformed input")

// lightningHeader starts a .lightning file.
type lightningHeader struct {
	Segments    int32
	XRes, YRes  int32
	Dx, Dy      float32
	BottomHit   int32
	InputWidth  int32
	InputHeight int32
}

// nodeRecord precedes the child grid indices of each node.
type nodeRecord struct {
	Index       int32
	Parent      int32
	Leader      uint8
	Secondary   uint8
	Depth       int32
	NumChildren int32
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Write writes the graph to w in the little-endian .lightning format:
// a header followed by one record per node, with every node written
// after its children.
func (g *Graph) Write(w io.Writer) error {
	h := lightningHeader{
		Segments:    int32(len(g.Nodes) - 1),
		XRes:        int32(g.XRes),
		YRes:        int32(g.YRes),
		Dx:          float32(g.Dx),
		Dy:          float32(g.Dy),
		BottomHit:   int32(g.BottomHit),
		InputWidth:  int32(g.InputWidth),
		InputHeight: int32(g.InputHeight),
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("lumos: writing graph header: %v", err)
	}
	if g.Root != None {
		if err := g.writeNode(bw, g.Root); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("lumos: writing graph: %v", err)
	}
	return nil
}

func (g *Graph) writeNode(w io.Writer, p int) error {
	n := &g.Nodes[p]
	for _, c := range n.Children {
		if err := g.writeNode(w, c); err != nil {
			return err
		}
	}
	parent := int32(-1)
	if n.Parent != None {
		parent = int32(g.Nodes[n.Parent].Index)
	}
	rec := nodeRecord{
		Index:       int32(n.Index),
		Parent:      parent,
		Leader:      boolByte(n.Leader),
		Secondary:   boolByte(n.Secondary),
		Depth:       int32(n.Depth),
		NumChildren: int32(len(n.Children)),
	}
	if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
		return fmt.Errorf("lumos: writing node %d: %v", n.Index, err)
	}
	children := make([]int32, len(n.Children))
	for k, c := range n.Children {
		children[k] = int32(g.Nodes[c].Index)
	}
	if err := binary.Write(w, binary.LittleEndian, children); err != nil {
		return fmt.Errorf("lumos: writing node %d: %v", n.Index, err)
	}
	return nil
}

// ReadGraph reads a graph written by Write. If the file records a
// terminal cell the leader is rebuilt.
func ReadGraph(r io.Reader) (*Graph, error) {
	var h lightningHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading graph header: %v", ErrMalformed, err)
	}
	if h.XRes <= 0 || h.YRes <= 0 || h.Segments < -1 {
		return nil, fmt.Errorf("%w: graph header %+v", ErrMalformed, h)
	}
	g := &Graph{
		Root:        None,
		Lookup:      make(map[int]int),
		XRes:        int(h.XRes),
		YRes:        int(h.YRes),
		Dx:          float64(h.Dx),
		Dy:          float64(h.Dy),
		BottomHit:   int(h.BottomHit),
		InputWidth:  int(h.InputWidth),
		InputHeight: int(h.InputHeight),
	}
	for k := int32(0); k <= h.Segments; k++ {
		var rec nodeRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: reading node %d of %d: %v", ErrMalformed, k, h.Segments+1, err)
		}
		if rec.NumChildren < 0 || rec.NumChildren > h.Segments {
			return nil, fmt.Errorf("%w: node %d has %d children", ErrMalformed, rec.Index, rec.NumChildren)
		}
		children := make([]int32, rec.NumChildren)
		if err := binary.Read(r, binary.LittleEndian, children); err != nil {
			return nil, fmt.Errorf("%w: reading children of node %d: %v", ErrMalformed, rec.Index, err)
		}
		if _, ok := g.Lookup[int(rec.Index)]; ok {
			return nil, fmt.Errorf("%w: node %d appears twice", ErrMalformed, rec.Index)
		}
		p := len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{
			Index:     int(rec.Index),
			Parent:    None,
			Leader:    rec.Leader != 0,
			Secondary: rec.Secondary != 0,
			Depth:     int(rec.Depth),
		})
		for _, ci := range children {
			c, ok := g.Lookup[int(ci)]
			if !ok || g.Nodes[c].Parent != None || c == g.Root {
				return nil, fmt.Errorf("%w: node %d has unknown or shared child %d", ErrMalformed, rec.Index, ci)
			}
			g.Nodes[c].Parent = p
			g.Nodes[p].Children = append(g.Nodes[p].Children, c)
		}
		g.Lookup[int(rec.Index)] = p
		if rec.Parent == -1 {
			if g.Root != None {
				return nil, fmt.Errorf("%w: more than one root", ErrMalformed)
			}
			g.Root = p
		}
	}
	if len(g.Nodes) > 0 {
		if g.Root == None {
			return nil, fmt.Errorf("%w: no root node", ErrMalformed)
		}
		for p := range g.Nodes {
			if p != g.Root && g.Nodes[p].Parent == None {
				return nil, fmt.Errorf("%w: node %d is not connected to the root", ErrMalformed, g.Nodes[p].Index)
			}
		}
	}
	if g.BottomHit != -1 {
		if err := g.BuildLeader(g.BottomHit); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return g, nil
}

// engineSnapshot is the gob form of an Engine.
type engineSnapshot struct {
	XRes, YRes     int
	Iterations     int
	Digits         int
	Skips          int
	Seed           uint64
	DisableNoise   bool
	Mesh           *Mesh
	Graph          *Graph
	Candidates     []int
	SkipCounter    int
	Steps          int
	Hit            bool
	LastIterations int
	RNG            []byte
}

// Save writes the complete state of the engine to w so that LoadEngine
// can resume the growth where it left off.
func (e *Engine) Save(w io.Writer) error {
	rng, err := e.pcg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("lumos: saving engine: %v", err)
	}
	s := engineSnapshot{
		XRes:           e.cfg.XRes,
		YRes:           e.cfg.YRes,
		Iterations:     e.cfg.Iterations,
		Digits:         e.cfg.Digits,
		Skips:          e.cfg.Skips,
		Seed:           e.cfg.Seed,
		DisableNoise:   e.cfg.DisableNoise,
		Mesh:           e.Mesh,
		Graph:          e.Graph,
		Candidates:     e.candidates,
		SkipCounter:    e.skipCounter,
		Steps:          e.steps,
		Hit:            e.hit,
		LastIterations: e.lastIterations,
		RNG:            rng,
	}
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("lumos: saving engine: %v", err)
	}
	return nil
}

// LoadEngine reads an engine written by Save. log may be nil.
func LoadEngine(r io.Reader, log logrus.FieldLogger) (*Engine, error) {
	var s engineSnapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: loading engine: %v", ErrMalformed, err)
	}
	if s.Mesh == nil || s.Graph == nil || len(s.Mesh.Cells) == 0 {
		return nil, fmt.Errorf("%w: loading engine: incomplete snapshot", ErrMalformed)
	}
	cfg := EngineConfig{
		XRes:         s.XRes,
		YRes:         s.YRes,
		Iterations:   s.Iterations,
		Digits:       s.Digits,
		Skips:        s.Skips,
		Seed:         s.Seed,
		DisableNoise: s.DisableNoise,
		Logger:       log,
	}.withDefaults()

	e := &Engine{
		Mesh:           s.Mesh,
		Graph:          s.Graph,
		cfg:            cfg,
		log:            cfg.Logger,
		candidates:     s.Candidates,
		skipCounter:    s.SkipCounter,
		steps:          s.Steps,
		hit:            s.Hit,
		lastIterations: s.LastIterations,
		pcg:            new(rand.PCG),
	}
	if err := e.pcg.UnmarshalBinary(s.RNG); err != nil {
		return nil, fmt.Errorf("%w: loading engine: %v", ErrMalformed, err)
	}
	e.rng = rand.New(e.pcg)
	if e.Graph.Lookup == nil {
		e.Graph.Lookup = make(map[int]int)
	}
	e.Mesh.solver = NewSolver(e.Mesh.MaxDepth, e.Mesh.Iterations, cfg.Digits)
	return e, nil
}
