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

package lumosutil

import (
	"fmt"
	"image/color"

	"github.com/spatialmodel/lumos"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotTrace plots the solver iterations of every step that solved for
// the potential, and the frontier size of every step, to an image
// file. The format follows the file extension.
func PlotTrace(path string, stats []lumos.StepStats) error {
	p := plot.New()
	p.Title.Text = "Growth trace"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Count"
	p.Legend.Top = true

	var solves, frontier plotter.XYs
	for _, s := range stats {
		frontier = append(frontier, plotter.XY{X: float64(s.Step), Y: float64(s.Candidates)})
		if s.Solved {
			solves = append(solves, plotter.XY{X: float64(s.Step), Y: float64(s.SolverIterations)})
		}
	}
	for _, series := range []struct {
		name  string
		xys   plotter.XYs
		color color.Color
	}{
		{"solver iterations", solves, color.RGBA{R: 200, A: 255}},
		{"frontier size", frontier, color.RGBA{B: 200, A: 255}},
	} {
		if len(series.xys) == 0 {
			continue
		}
		l, err := plotter.NewLine(series.xys)
		if err != nil {
			return fmt.Errorf("lumos: plotting trace: %v", err)
		}
		l.Color = series.color
		p.Add(l)
		p.Legend.Add(series.name, l)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("lumos: saving trace plot: %v", err)
	}
	return nil
}
