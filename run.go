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
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
)

// StepManipulator is a function that operates on a growing simulation.
type StepManipulator func(s *Simulation) error

// Simulation drives an Engine through a series of StepManipulators.
type Simulation struct {
	*Engine

	// InitFuncs are run once by Init, in order. One of them must set
	// Engine.
	InitFuncs []StepManipulator

	// RunFuncs are run in order by Run, repeatedly, until Done is set.
	RunFuncs []StepManipulator

	// CleanupFuncs are run once by Cleanup, in order.
	CleanupFuncs []StepManipulator

	// Done is set when the growth is finished.
	Done bool

	// Stats holds the statistics of the most recent growth step.
	Stats StepStats
}

// Init runs the InitFuncs.
func (s *Simulation) Init() error {
	for _, f := range s.InitFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	if s.Engine == nil {
		return fmt.Errorf("lumos: simulation initialized without an engine")
	}
	return nil
}

// Run runs the RunFuncs until the simulation is Done.
func (s *Simulation) Run() error {
	for !s.Done {
		for _, f := range s.RunFuncs {
			if err := f(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup runs the CleanupFuncs.
func (s *Simulation) Cleanup() error {
	for _, f := range s.CleanupFuncs {
		if err := f(s); err != nil {
			return err
		}
	}
	return nil
}

// CreateEngine returns a function that creates a new engine.
func CreateEngine(cfg EngineConfig) StepManipulator {
	return func(s *Simulation) error {
		e, err := NewEngine(cfg)
		if err != nil {
			return err
		}
		s.Engine = e
		return nil
	}
}

// ResumeEngine returns a function that loads a saved engine.
func ResumeEngine(r io.Reader, log logrus.FieldLogger) StepManipulator {
	return func(s *Simulation) error {
		e, err := LoadEngine(r, log)
		if err != nil {
			return err
		}
		s.Engine = e
		s.Done = e.Hit()
		s.Stats = e.Stats()
		return nil
	}
}

// ReadMasks returns a function that inserts the boundary conditions
// held in m.
func ReadMasks(m Masks) StepManipulator {
	return func(s *Simulation) error {
		return s.ReadBoundaryConditions(m)
	}
}

// Grow returns a function that adds one particle to the discharge and
// sets Done once a terminator has been reached. It returns
// ErrUnreachable if the frontier runs out first.
func Grow() StepManipulator {
	return func(s *Simulation) error {
		added, err := s.AddParticle()
		if err != nil {
			return err
		}
		s.Stats = s.Engine.Stats()
		if !added {
			s.Done = true
			return fmt.Errorf("%w (after %d steps)", ErrUnreachable, s.Steps())
		}
		if s.Hit() {
			s.Done = true
		}
		return nil
	}
}

// MaxSteps returns a function that sets Done once n particles have
// been added. n <= 0 means no limit.
func MaxSteps(n int) StepManipulator {
	return func(s *Simulation) error {
		if n > 0 && s.Steps() >= n {
			s.Done = true
		}
		return nil
	}
}

// Log returns a function that reports progress to log every `every`
// steps and when the growth finishes.
func Log(log logrus.FieldLogger, every int) StepManipulator {
	startTime := time.Now()
	stepTime := time.Now()
	return func(s *Simulation) error {
		st := s.Stats
		if !s.Done && (every <= 0 || st.Step%every != 0) {
			return nil
		}
		log.WithFields(logrus.Fields{
			"step":       st.Step,
			"candidates": st.Candidates,
			"iterations": st.SolverIterations,
			"cells":      st.Cells,
			"hit":        st.Hit,
			"walltime":   time.Since(startTime).Round(time.Millisecond),
			"Δwalltime":  time.Since(stepTime).Round(time.Millisecond),
		}).Info("growing")
		stepTime = time.Now()
		return nil
	}
}

// Trace returns a function that writes the statistics of every step
// to w as CSV.
func Trace(w io.Writer) StepManipulator {
	headerDone := false
	return func(s *Simulation) error {
		records := []StepStats{s.Stats}
		if !headerDone {
			if err := gocsv.Marshal(records, w); err != nil {
				return fmt.Errorf("lumos: writing trace: %v", err)
			}
			headerDone = true
			return nil
		}
		if err := gocsv.MarshalWithoutHeaders(records, w); err != nil {
			return fmt.Errorf("lumos: writing trace: %v", err)
		}
		return nil
	}
}

// WriteLightning returns a function that writes the connectivity graph
// to a .lightning file.
func WriteLightning(path string) StepManipulator {
	return func(s *Simulation) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("lumos: writing graph: %v", err)
		}
		if err := s.Graph.Write(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

// Checkpoint returns a function that saves the engine to path.
func Checkpoint(path string) StepManipulator {
	return func(s *Simulation) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("lumos: writing checkpoint: %v", err)
		}
		if err := s.Save(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}
