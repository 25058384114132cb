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
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// solveConverged solves repeatedly until every residual is negligible.
func solveConverged(t *testing.T, m *Mesh) {
	t.Helper()
	for k := 0; k < 200; k++ {
		if _, err := m.Solve(); err != nil {
			t.Fatal(err)
		}
		var maxR float64
		for _, i := range m.EmptyLeaves() {
			maxR = math.Max(maxR, math.Abs(m.Cells[i].Residual))
		}
		if maxR < 1e-9 {
			return
		}
	}
	t.Fatal("potential did not converge")
}

// uniformMesh returns a mesh refined everywhere to maximum depth.
func uniformMesh(t *testing.T, res int) *Mesh {
	t.Helper()
	m, err := NewMesh(res, res, 10, 12, nil)
	if err != nil {
		t.Fatal(err)
	}
	for d := 1; d < m.MaxDepth; d++ {
		for _, i := range m.Leaves() {
			m.Refine(i)
		}
	}
	return m
}

func TestSolveLinear(t *testing.T) {
	// A linear potential is harmonic, so holding the outer ring at x
	// must give x everywhere inside.
	const res = 8
	m := uniformMesh(t, res)
	for _, i := range m.Leaves() {
		c := m.Cell(i)
		x, y := int(c.Center[0]*res), int(c.Center[1]*res)
		if x == 0 || y == 0 || x == res-1 || y == res-1 {
			c.Boundary = true
			c.Potential = c.Center[0]
		}
	}
	solveConverged(t, m)
	empty := m.EmptyLeaves()
	if len(empty) != (res-2)*(res-2) {
		t.Fatalf("%d cells solved, want %d", len(empty), (res-2)*(res-2))
	}
	for _, i := range empty {
		c := m.Cell(i)
		if math.Abs(c.Potential-c.Center[0]) > 1e-8 {
			t.Errorf("cell at %v: potential %g, want %g", c.Center, c.Potential, c.Center[0])
		}
	}
}

// checkStop checks that a solve that used it iterations either hit
// the cap or left no residual above the tolerance.
func checkStop(t *testing.T, m *Mesh, it, limit int) {
	t.Helper()
	if it < 1 || it > limit {
		t.Errorf("solve used %d iterations, want 1 to %d", it, limit)
	}
	if it == limit {
		return
	}
	eps := math.Pow(10, -float64(m.solver.digits))
	for _, i := range m.EmptyLeaves() {
		if r := m.Cells[i].Residual; r > eps {
			t.Errorf("solve stopped after %d of %d iterations with residual %g", it, limit, r)
			return
		}
	}
}

func TestSolveFirstCallBootstraps(t *testing.T) {
	const res = 16
	m := uniformMesh(t, res)
	m.Iterations = 3
	for _, i := range m.Leaves() {
		c := m.Cell(i)
		x, y := int(c.Center[0]*res), int(c.Center[1]*res)
		if x == 0 || y == 0 || x == res-1 || y == res-1 {
			c.Boundary = true
			c.Potential = 1
		}
	}

	it, err := m.Solve()
	if err != nil {
		t.Fatal(err)
	}
	if !m.Bootstrapped {
		t.Error("first solve did not mark the mesh as bootstrapped")
	}
	if got := m.solver.Iterations(); got != BootstrapIterations {
		t.Errorf("first solve ran with cap %d, want %d", got, BootstrapIterations)
	}
	checkStop(t, m, it, BootstrapIterations)

	for k := 0; k < 3; k++ {
		it, err := m.Solve()
		if err != nil {
			t.Fatal(err)
		}
		if got := m.solver.Iterations(); got != m.Iterations {
			t.Errorf("iteration cap after bootstrap is %d, want %d", got, m.Iterations)
		}
		checkStop(t, m, it, m.Iterations)
	}
}

func TestSolveAlreadySolved(t *testing.T) {
	// Zero potential everywhere is already the solution, so one
	// iteration is enough.
	m := uniformMesh(t, 8)
	m.Cell(m.Leaf(0.3, 0.3)).Boundary = true
	for k := 0; k < 2; k++ {
		it, err := m.Solve()
		if err != nil {
			t.Fatal(err)
		}
		if it != 1 {
			t.Errorf("solve %d used %d iterations, want 1", k, it)
		}
	}
	for _, i := range m.EmptyLeaves() {
		if c := m.Cell(i); c.Potential != 0 || c.Residual != 0 {
			t.Errorf("cell %d: potential %g residual %g", i, c.Potential, c.Residual)
		}
	}
}

func TestSolveAdaptive(t *testing.T) {
	// Compare the solution on an adaptive mesh with a dense solve of
	// the same linear system.
	m, err := NewMesh(16, 16, 10, 12, nil)
	if err != nil {
		t.Fatal(err)
	}
	low := m.Insert(0.2, 0.8)
	m.Cell(low).Boundary = true
	m.Cell(low).State = Filled
	high := m.Insert(0.7, 0.1)
	m.Cell(high).Boundary = true
	m.Cell(high).State = Terminator
	m.Cell(high).Potential = 1

	solveConverged(t, m)
	checkBalance(t, m)

	empty := m.EmptyLeaves()
	n := len(empty)
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for k, i := range empty {
		c := m.Cell(i)
		a.Set(k, k, c.Stencil[8])
		for slot := 0; slot < 8; slot++ {
			if c.Stencil[slot] == 0 {
				continue
			}
			j := m.Cells[c.Neighbors[slot]].Index
			a.Set(k, j, a.At(k, j)-c.Stencil[slot])
		}
		b.SetVec(k, c.B)
	}
	if !mat.EqualApprox(a, a.T(), 1e-12) {
		t.Error("stencil matrix is not symmetric")
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		t.Fatal(err)
	}
	for k, i := range empty {
		if got, want := m.Cells[i].Potential, x.AtVec(k); math.Abs(got-want) > 1e-7 {
			t.Errorf("cell %d: potential %g, dense solve %g", i, got, want)
		}
		if p := m.Cells[i].Potential; p < -1e-9 || p > 1+1e-9 {
			t.Errorf("cell %d: potential %g outside [0, 1]", i, p)
		}
	}
}

func TestSolverReallocate(t *testing.T) {
	s := NewSolver(3, 10, 0)
	if s.digits != DefaultDigits {
		t.Errorf("digits %d, want %d", s.digits, DefaultDigits)
	}
	s.reallocate(5)
	if len(s.direction) != 12 {
		t.Errorf("scratch length %d, want 12", len(s.direction))
	}
	s.reallocate(3)
	if len(s.direction) != 12 {
		t.Errorf("scratch shrank to %d", len(s.direction))
	}
	s.reallocate(13)
	if len(s.residual) != 28 || len(s.q) != 28 {
		t.Errorf("scratch lengths %d and %d, want 28", len(s.residual), len(s.q))
	}
}
