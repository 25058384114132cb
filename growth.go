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
	"io"
	"math/rand/v2"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/spatialmodel/lumos/noise"
)

// Engine defaults.
const (
	DefaultIterations = 10
	DefaultSkips      = 10
	DefaultSeed       = 123456
)

// Errors returned while reading boundary conditions or growing.
var (
	ErrNoStart      = errors.New("lumos: the discharge does not start anywhere")
	ErrNoTerminator = errors.New("lumos: the discharge does not end anywhere")
	ErrMaskSize     = errors.New("lumos: invalid mask size")
	ErrUnreachable  = errors.New("lumos: no cells left to add; is the terminator reachable?")
)

// EngineConfig holds the settings for a growth.
type EngineConfig struct {
	// XRes and YRes give the grid resolution. They are rounded up to
	// a common power of two.
	XRes, YRes int

	// Iterations is the solver iteration cap after the first solve.
	Iterations int

	// Digits is the residual precision of the solver.
	Digits int

	// Skips is the number of growth steps per potential solve.
	Skips int

	// Seed seeds the generator used for the noise and for sampling.
	// Zero selects DefaultSeed.
	Seed uint64

	// DisableNoise turns off the scattered weak attractors.
	DisableNoise bool

	// Logger receives progress messages. It may be nil.
	Logger logrus.FieldLogger
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Iterations <= 0 {
		c.Iterations = DefaultIterations
	}
	if c.Digits <= 0 {
		c.Digits = DefaultDigits
	}
	if c.Skips <= 0 {
		c.Skips = DefaultSkips
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}
	return c
}

// Engine grows a discharge over a Mesh with the dielectric breakdown
// model and records the growth in a Graph.
type Engine struct {
	Mesh  *Mesh
	Graph *Graph

	cfg EngineConfig
	log logrus.FieldLogger

	candidates []int
	weights    []float64

	skipCounter    int
	steps          int
	hit            bool
	lastIterations int
	solved         bool

	pcg *rand.PCG
	rng *rand.Rand
}

// NewEngine creates an engine with an empty mesh and graph.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	cfg = cfg.withDefaults()
	e := &Engine{cfg: cfg, log: cfg.Logger}
	e.pcg = rand.NewPCG(cfg.Seed, cfg.Seed)
	e.rng = rand.New(e.pcg)

	var sampler NoiseSampler
	if !cfg.DisableNoise {
		sampler = noise.NewPoissonDisk(e.rng)
	}
	m, err := NewMesh(cfg.XRes, cfg.YRes, cfg.Iterations, cfg.Digits, sampler)
	if err != nil {
		return nil, err
	}
	e.Mesh = m
	e.Graph = NewGraph(m.MaxRes, m.MaxRes)
	return e, nil
}

// Config returns the settings in use, with defaults filled in.
func (e *Engine) Config() EngineConfig { return e.cfg }

// Candidates returns the current growth frontier.
func (e *Engine) Candidates() []int { return e.candidates }

// Steps returns the number of accepted growth steps.
func (e *Engine) Steps() int { return e.steps }

// Hit reports whether the growth has reached a terminator.
func (e *Engine) Hit() bool { return e.hit }

// ReadBoundaryConditions inserts the cells marked in the masks. Mask
// pixel (x, y) maps to grid cell (x, y) of the mesh, so the masks may
// not be larger than the mesh resolution. Start cells are filled and
// seed the growth frontier; attractor and terminator cells are held at
// potential 1; only the outer edge of each repulsor region is held at
// potential 0.
func (e *Engine) ReadBoundaryConditions(m Masks) error {
	if err := m.validate(); err != nil {
		return err
	}
	if m.Width > e.Mesh.MaxRes || m.Height > e.Mesh.MaxRes {
		return fmt.Errorf("%w: %dx%d masks exceed mesh resolution %d",
			ErrMaskSize, m.Width, m.Height, e.Mesh.MaxRes)
	}
	e.Graph.InputWidth = m.Width
	e.Graph.InputHeight = m.Height

	var startFound, terminatorFound bool
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := x + y*m.Width
			if m.Start[i] {
				c := e.Mesh.InsertPixel(x, y)
				e.fix(c, Filled, 0)
				e.checkForCandidates(c)
				startFound = true
			}
			if m.Attractor[i] {
				e.fix(e.Mesh.InsertPixel(x, y), Attractor, 1)
			}
			if m.Repulsor[i] && repulsorEdge(m, x, y) {
				e.fix(e.Mesh.InsertPixel(x, y), Repulsor, 0)
			}
			if m.Terminator[i] {
				e.fix(e.Mesh.InsertPixel(x, y), Terminator, 1)
				terminatorFound = true
			}
		}
	}
	if !startFound {
		return ErrNoStart
	}
	if !terminatorFound {
		return ErrNoTerminator
	}
	e.log.WithFields(logrus.Fields{
		"width":      m.Width,
		"height":     m.Height,
		"resolution": e.Mesh.MaxRes,
		"candidates": len(e.candidates),
	}).Info("read boundary conditions")
	return nil
}

// fix holds cell i at a potential.
func (e *Engine) fix(i int, s State, potential float64) {
	c := e.Mesh.Cell(i)
	c.Boundary = true
	c.Potential = potential
	c.State = s
	c.Candidate = true
}

// repulsorEdge reports whether any in-bounds 8-neighbor of repulsor
// pixel (x, y) is unset.
func repulsorEdge(m Masks, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx >= m.Width || ny >= m.Height {
				continue
			}
			if !m.Repulsor[nx+ny*m.Width] {
				return true
			}
		}
	}
	return false
}

// checkForCandidates adds the unqueued neighbors of filled cell i to
// the frontier.
func (e *Engine) checkForCandidates(i int) {
	m := e.Mesh
	enqueue := func(n int) {
		if n == None || m.Cells[n].Candidate {
			return
		}
		e.candidates = append(e.candidates, n)
		m.Cells[n].Candidate = true
	}
	if n := m.North(i); n != None && m.Cells[n].Depth == m.MaxDepth {
		enqueue(n)
		enqueue(m.East(n))
		enqueue(m.West(n))
	}
	enqueue(m.East(i))
	if s := m.South(i); s != None {
		enqueue(s)
		enqueue(m.East(s))
		enqueue(m.West(s))
	}
	enqueue(m.West(i))
}

// ring returns the 8-neighborhood of cell i in search order: north,
// its east and west, east, south, its east and west, then west.
// Missing neighbors are None.
func (e *Engine) ring(i int) [8]int {
	m := e.Mesh
	out := [8]int{None, None, None, None, None, None, None, None}
	if n := m.North(i); n != None {
		out[0], out[1], out[2] = n, m.East(n), m.West(n)
	}
	out[3] = m.East(i)
	if s := m.South(i); s != None {
		out[4], out[5], out[6] = s, m.East(s), m.West(s)
	}
	out[7] = m.West(i)
	return out
}

// growthParent returns the filled neighbor cell i grew from. When
// several neighbors are filled the last one in search order wins.
func (e *Engine) growthParent(i int) int {
	parent := None
	for _, n := range e.ring(i) {
		if n != None && e.Mesh.Cells[n].State == Filled {
			parent = n
		}
	}
	return parent
}

// sampleIndex walks the cumulative weights until they reach u times
// the total, never passing the last index.
func sampleIndex(weights []float64, total, u float64) int {
	inv := 1 / total
	k := 0
	seen := weights[0] * inv
	for seen < u && k < len(weights)-1 {
		k++
		seen += weights[k] * inv
	}
	return k
}

// AddParticle performs one growth step: it re-solves the potential
// every Skips steps, picks a frontier cell with probability
// proportional to its potential, fills it, and links it to the filled
// neighbor it grew from. It returns false when the frontier is empty.
func (e *Engine) AddParticle() (bool, error) {
	e.solved = false
	if e.skipCounter == 0 {
		it, err := e.Mesh.Solve()
		if err != nil {
			return false, err
		}
		e.lastIterations = it
		e.solved = true
	}
	e.skipCounter++
	if e.skipCounter == e.cfg.Skips {
		e.skipCounter = 0
	}

	n := len(e.candidates)
	if n == 0 {
		return false, nil
	}
	e.weights = e.weights[:0]
	for _, c := range e.candidates {
		if cell := e.Mesh.Cell(c); cell.Candidate {
			e.weights = append(e.weights, cell.Potential)
		} else {
			e.weights = append(e.weights, 0)
		}
	}
	total := floats.Sum(e.weights)

	var k int
	if total < 1e-8 {
		k = min(int(float64(n)*e.rng.Float64()), n-1)
	} else {
		k = sampleIndex(e.weights, total, e.rng.Float64())
	}
	added := e.candidates[k]
	e.candidates = slices.Delete(e.candidates, k, k+1)

	c := e.Mesh.Cell(added)
	c.Boundary = true
	c.Potential = 0
	c.State = Filled
	x, y := c.Center[0], c.Center[1]

	parent := e.growthParent(added)
	if parent == None {
		return false, fmt.Errorf("lumos: accepted cell %d has no filled neighbor", e.Mesh.GridIndex(added))
	}
	e.Mesh.Insert(x, y)
	e.checkForCandidates(added)
	if err := e.Graph.AddSegment(e.Mesh.GridIndex(added), e.Mesh.GridIndex(parent)); err != nil {
		return false, err
	}
	e.steps++
	if _, err := e.HitGround(added); err != nil {
		return false, err
	}
	return true, nil
}

// HitGround reports whether the growth has reached a terminator,
// checking the neighbors of cell i if it has not yet. On the first
// contact the leader is built from cell i.
func (e *Engine) HitGround(i int) (bool, error) {
	if e.hit {
		return true, nil
	}
	if i == None {
		return false, nil
	}
	for _, n := range e.ring(i) {
		if n != None && e.Mesh.Cells[n].State == Terminator {
			e.hit = true
			break
		}
	}
	if !e.hit {
		return false, nil
	}
	idx := e.Mesh.GridIndex(i)
	if err := e.Graph.BuildLeader(idx); err != nil {
		return true, err
	}
	e.log.WithFields(logrus.Fields{
		"step":     e.steps,
		"terminal": idx,
		"leader":   len(e.Graph.LeaderPath()),
	}).Info("terminator reached")
	return true, nil
}

// StepStats summarizes the state after a growth step.
type StepStats struct {
	Step             int  `csv:"step"`
	Candidates       int  `csv:"candidates"`
	Solved           bool `csv:"solved"`
	SolverIterations int  `csv:"solver_iterations"`
	Cells            int  `csv:"cells"`
	Hit              bool `csv:"hit"`
}

// Stats returns the statistics for the most recent step.
func (e *Engine) Stats() StepStats {
	return StepStats{
		Step:             e.steps,
		Candidates:       len(e.candidates),
		Solved:           e.solved,
		SolverIterations: e.lastIterations,
		Cells:            len(e.Mesh.Cells),
		Hit:              e.hit,
	}
}
