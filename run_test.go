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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
)

func TestSimulation(t *testing.T) {
	const res = 16
	dir := t.TempDir()
	var trace bytes.Buffer
	s := &Simulation{
		InitFuncs: []StepManipulator{
			CreateEngine(EngineConfig{XRes: res, YRes: res, DisableNoise: true}),
			ReadMasks(stripMasks(res)),
		},
		RunFuncs: []StepManipulator{
			Grow(),
			Trace(&trace),
			MaxSteps(5),
		},
		CleanupFuncs: []StepManipulator{
			WriteLightning(filepath.Join(dir, "out.lightning")),
			Checkpoint(filepath.Join(dir, "out.checkpoint")),
		},
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if err := s.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if s.Steps() != 5 || s.Stats.Step != 5 {
		t.Errorf("stopped at step %d (stats %d), want 5", s.Steps(), s.Stats.Step)
	}

	var stats []StepStats
	if err := gocsv.Unmarshal(strings.NewReader(trace.String()), &stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 5 {
		t.Fatalf("%d trace rows, want 5", len(stats))
	}
	for k, st := range stats {
		if st.Step != k+1 {
			t.Errorf("row %d has step %d", k, st.Step)
		}
	}
	if !stats[0].Solved || stats[1].Solved {
		t.Errorf("solve flags %v, %v", stats[0].Solved, stats[1].Solved)
	}

	f, err := os.Open(filepath.Join(dir, "out.lightning"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	g, err := ReadGraph(f)
	if err != nil {
		t.Fatal(err)
	}
	if g.Segments() != 5 {
		t.Errorf("saved graph has %d segments, want 5", g.Segments())
	}

	// Resume from the checkpoint and grow to the ground.
	cp, err := os.Open(filepath.Join(dir, "out.checkpoint"))
	if err != nil {
		t.Fatal(err)
	}
	defer cp.Close()
	s2 := &Simulation{
		InitFuncs: []StepManipulator{ResumeEngine(cp, nil)},
		RunFuncs:  []StepManipulator{Grow(), MaxSteps(res * res)},
	}
	if err := s2.Init(); err != nil {
		t.Fatal(err)
	}
	if s2.Steps() != 5 {
		t.Errorf("resumed at step %d, want 5", s2.Steps())
	}
	if err := s2.Run(); err != nil {
		t.Fatal(err)
	}
	if !s2.Hit() {
		t.Error("resumed growth did not reach the terminator")
	}
}

func TestSimulationUnreachable(t *testing.T) {
	const res = 8
	m := NewMasks(res, res)
	m.Start[0] = true
	m.Terminator[res*res-1] = true
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if x == 2 || y == 2 {
				m.Repulsor[x+y*res] = true
			}
		}
	}
	s := &Simulation{
		InitFuncs: []StepManipulator{
			CreateEngine(EngineConfig{XRes: res, YRes: res, DisableNoise: true}),
			ReadMasks(m),
		},
		RunFuncs: []StepManipulator{Grow()},
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); !errors.Is(err, ErrUnreachable) {
		t.Errorf("got error %v, want ErrUnreachable", err)
	}
	if !s.Done || s.Steps() != 3 {
		t.Errorf("done %v after %d steps, want 3", s.Done, s.Steps())
	}
}

func TestSimulationNoEngine(t *testing.T) {
	if err := (&Simulation{}).Init(); err == nil {
		t.Error("Init without an engine should fail")
	}
}
