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
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/sparse"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/lumos"
	"github.com/spatialmodel/lumos/internal/hash"
	"github.com/spf13/cobra"
)

// newLogger returns a logger writing to the error stream of cmd.
func newLogger(cmd *cobra.Command) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(cmd.ErrOrStderr())
	return l
}

// Summary describes a finished growth.
type Summary struct {
	RunID        string
	Input        string
	Seed         uint64
	Resolution   int
	Steps        int
	Hit          bool
	Terminal     int
	Segments     int
	LeaderLength int
	Fingerprint  string
	Elapsed      string
	Outputs      []string
}

// Fingerprint returns a digest of the shape and shading of a graph.
func Fingerprint(g *lumos.Graph) string {
	return hash.Fingerprint(g.Edges(), g.LeaderPath())
}

// Grow grows a discharge as configured by rc and writes the requested
// outputs. If the frontier runs out before a terminator is reached the
// outputs are still written and lumos.ErrUnreachable is returned.
func Grow(log logrus.FieldLogger, rc *RunConfig) (*Summary, error) {
	startTime := time.Now()
	runID := uuid.New().String()
	log = log.WithField("run", runID)

	s := new(lumos.Simulation)
	if rc.Resume != "" {
		f, err := os.Open(rc.Resume)
		if err != nil {
			return nil, fmt.Errorf("lumos: opening checkpoint: %v", err)
		}
		defer f.Close()
		s.InitFuncs = []lumos.StepManipulator{lumos.ResumeEngine(f, log)}
	} else {
		masks, err := lumos.ReadMaskImage(rc.Input)
		if err != nil {
			return nil, err
		}
		cfg := rc.Engine
		cfg.XRes, cfg.YRes = masks.Width, masks.Height
		cfg.Logger = log
		s.InitFuncs = []lumos.StepManipulator{
			lumos.CreateEngine(cfg),
			lumos.ReadMasks(masks),
		}
	}

	var stats []lumos.StepStats
	s.RunFuncs = []lumos.StepManipulator{
		lumos.Grow(),
		lumos.MaxSteps(rc.MaxSteps),
		lumos.Log(log, rc.LogEvery),
	}
	if rc.Outputs[outTrace] {
		f, err := os.Create(rc.path(sufTraceCSV))
		if err != nil {
			return nil, fmt.Errorf("lumos: creating trace file: %v", err)
		}
		defer f.Close()
		s.RunFuncs = append(s.RunFuncs, lumos.Trace(f), func(s *lumos.Simulation) error {
			stats = append(stats, s.Stats)
			return nil
		})
	}
	if rc.Outputs[outLightning] {
		s.CleanupFuncs = append(s.CleanupFuncs, lumos.WriteLightning(rc.path(sufLightning)))
	}
	if rc.Outputs[outCheckpoint] {
		s.CleanupFuncs = append(s.CleanupFuncs, lumos.Checkpoint(rc.path(sufCheckpoint)))
	}

	if err := s.Init(); err != nil {
		return nil, err
	}
	runErr := s.Run()
	if runErr != nil && !errors.Is(runErr, lumos.ErrUnreachable) {
		return nil, runErr
	}
	if runErr != nil {
		log.WithError(runErr).Warn("growth stopped before reaching a terminator")
	}
	if err := s.Cleanup(); err != nil {
		return nil, err
	}

	g := s.Graph
	if !s.Hit() {
		g.BuildIntensity()
	}
	if err := writeRasters(log, rc, g); err != nil {
		return nil, err
	}
	if rc.Outputs[outShapefile] {
		if err := lumos.WriteMeshShapefile(rc.path(sufMesh), s.Mesh); err != nil {
			return nil, err
		}
		if err := lumos.WriteSegmentShapefile(rc.path(sufSegments), g); err != nil {
			return nil, err
		}
	}
	if err := writeGraph(context.Background(), rc, g); err != nil {
		return nil, err
	}
	if rc.Outputs[outTrace] && len(stats) > 0 {
		if err := PlotTrace(rc.path(sufTracePlot), stats); err != nil {
			return nil, err
		}
	}

	sum := &Summary{
		RunID:        runID,
		Input:        rc.Input,
		Seed:         s.Config().Seed,
		Resolution:   s.Mesh.MaxRes,
		Steps:        s.Steps(),
		Hit:          s.Hit(),
		Terminal:     g.BottomHit,
		Segments:     g.Segments(),
		LeaderLength: len(g.LeaderPath()),
		Fingerprint:  Fingerprint(g),
		Elapsed:      time.Since(startTime).Round(time.Millisecond).String(),
	}
	for _, o := range growOutputs {
		if rc.Outputs[o] {
			sum.Outputs = append(sum.Outputs, o)
		}
	}
	if rc.Outputs[outSummary] {
		if err := writeSummary(rc.path(sufSummary), sum); err != nil {
			return nil, err
		}
	}
	log.WithFields(logrus.Fields{
		"steps":       sum.Steps,
		"hit":         sum.Hit,
		"fingerprint": sum.Fingerprint,
		"elapsed":     sum.Elapsed,
	}).Info("growth finished")
	return sum, runErr
}

// Render writes raster and shapefile outputs for a saved discharge.
func Render(log logrus.FieldLogger, rc *RunConfig) error {
	g, err := readGraph(rc.Input)
	if err != nil {
		return err
	}
	if err := writeRasters(log, rc, g); err != nil {
		return err
	}
	if rc.Outputs[outShapefile] {
		return lumos.WriteSegmentShapefile(rc.path(sufSegments), g)
	}
	return nil
}

// Graph writes the connectivity graph of a saved discharge. DOT is
// written when no graph output is requested.
func Graph(ctx context.Context, log logrus.FieldLogger, rc *RunConfig) error {
	g, err := readGraph(rc.Input)
	if err != nil {
		return err
	}
	if len(rc.Outputs) == 0 {
		rc.Outputs = map[string]bool{outDOT: true}
	}
	log.WithField("nodes", len(g.Nodes)).Info("writing connectivity graph")
	return writeGraph(ctx, rc, g)
}

func readGraph(path string) (*lumos.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lumos: opening graph: %v", err)
	}
	defer f.Close()
	g, err := lumos.ReadGraph(f)
	if err != nil {
		return nil, err
	}
	if g.BottomHit == -1 {
		g.BuildIntensity()
	}
	return g, nil
}

// raster draws the graph at the configured scale, cropped to the input
// image when its size is known.
func raster(rc *RunConfig, g *lumos.Graph) (*sparse.DenseArray, error) {
	r, err := g.Rasterize(rc.Scale)
	if err != nil {
		return nil, err
	}
	if g.InputWidth > 0 && g.InputHeight > 0 {
		r = lumos.Crop(r, g.InputWidth*rc.Scale, g.InputHeight*rc.Scale)
	}
	return r, nil
}

func writeRasters(log logrus.FieldLogger, rc *RunConfig, g *lumos.Graph) error {
	if !rc.Outputs[outPNG] && !rc.Outputs[outNetCDF] {
		return nil
	}
	r, err := raster(rc, g)
	if err != nil {
		return err
	}
	if rc.Outputs[outPNG] {
		if err := lumos.WriteIntensityPNG(rc.path(sufPNG), r); err != nil {
			return err
		}
	}
	if rc.Outputs[outNetCDF] {
		if err := lumos.WriteIntensityNetCDF(rc.path(sufNetCDF), r); err != nil {
			return err
		}
	}
	log.WithFields(logrus.Fields{
		"width":  r.Shape[1],
		"height": r.Shape[0],
	}).Info("rendered intensity raster")
	return nil
}

func writeGraph(ctx context.Context, rc *RunConfig, g *lumos.Graph) error {
	if !rc.Outputs[outDOT] && !rc.Outputs[outSVG] {
		return nil
	}
	dot := g.DOT()
	if rc.Outputs[outDOT] {
		if err := os.WriteFile(rc.path(sufDOT), []byte(dot), 0644); err != nil {
			return fmt.Errorf("lumos: writing DOT file: %v", err)
		}
	}
	if rc.Outputs[outSVG] {
		svg, err := lumos.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		if err := os.WriteFile(rc.path(sufSVG), svg, 0644); err != nil {
			return fmt.Errorf("lumos: writing SVG file: %v", err)
		}
	}
	return nil
}

func writeSummary(path string, s *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lumos: creating summary: %v", err)
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("lumos: writing summary: %v", err)
	}
	return f.Close()
}
