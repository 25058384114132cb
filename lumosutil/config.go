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
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/lumos"
	"github.com/spf13/cast"
)

// Output names.
const (
	outLightning  = "lightning"
	outPNG        = "png"
	outNetCDF     = "netcdf"
	outShapefile  = "shp"
	outTrace      = "trace"
	outSummary    = "summary"
	outDOT        = "dot"
	outSVG        = "svg"
	outCheckpoint = "checkpoint"
)

// Output file suffixes, appended to the input name without its
// extension.
const (
	sufLightning  = ".lightning"
	sufPNG        = "_intensity.png"
	sufNetCDF     = "_intensity.nc"
	sufMesh       = "_mesh.shp"
	sufSegments   = "_segments.shp"
	sufTraceCSV   = "_trace.csv"
	sufTracePlot  = "_trace.png"
	sufSummary    = ".toml"
	sufDOT        = ".dot"
	sufSVG        = ".svg"
	sufCheckpoint = ".checkpoint"
)

// outputSuffixes lists the files each output writes.
var outputSuffixes = map[string][]string{
	outLightning:  {sufLightning},
	outPNG:        {sufPNG},
	outNetCDF:     {sufNetCDF},
	outShapefile:  {sufMesh, sufSegments},
	outTrace:      {sufTraceCSV, sufTracePlot},
	outSummary:    {sufSummary},
	outDOT:        {sufDOT},
	outSVG:        {sufSVG},
	outCheckpoint: {sufCheckpoint},
}

var (
	growOutputs   = []string{outLightning, outPNG, outNetCDF, outShapefile, outTrace, outSummary, outDOT, outSVG, outCheckpoint}
	renderOutputs = []string{outPNG, outNetCDF, outShapefile}
	graphOutputs  = []string{outDOT, outSVG}
)

// RunConfig holds the settings shared by the commands.
type RunConfig struct {
	// Input is the mask image or .lightning file.
	Input string

	// OutputDir is the directory outputs are written to.
	OutputDir string

	// Outputs is the set of outputs to write.
	Outputs map[string]bool

	// Scale is the number of raster pixels per grid cell.
	Scale int

	// The remaining fields are only used by grow.
	Engine   lumos.EngineConfig
	MaxSteps int
	LogEvery int
	Resume   string
}

// path returns the output path for a suffix, named after the input.
func (rc *RunConfig) path(suffix string) string {
	base := strings.TrimSuffix(filepath.Base(rc.Input), filepath.Ext(rc.Input))
	return filepath.Join(rc.OutputDir, base+suffix)
}

// OutputConfig reads the settings for a command that can write the
// given outputs. Known outputs the command cannot write are skipped.
func OutputConfig(cfg *viper.Viper, allowed []string) (*RunConfig, error) {
	input, err := checkInput(cfg.GetString("Input"))
	if err != nil {
		return nil, err
	}
	outDir, err := checkOutputDir(cfg.GetString("OutputDir"))
	if err != nil {
		return nil, err
	}
	outputs, err := checkOutputs(cfg.GetStringSlice("Outputs"), allowed)
	if err != nil {
		return nil, err
	}
	scale, err := cast.ToIntE(cfg.Get("Scale"))
	if err != nil {
		return nil, fmt.Errorf("lumos: invalid Scale: %v", err)
	}
	if scale < 1 {
		return nil, fmt.Errorf("lumos: Scale must be at least 1 but is %d", scale)
	}
	rc := &RunConfig{
		Input:     input,
		OutputDir: outDir,
		Outputs:   outputs,
		Scale:     scale,
	}
	if err := checkClobber(rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// GrowConfig reads the settings for the grow command.
func GrowConfig(cfg *viper.Viper) (*RunConfig, error) {
	rc, err := OutputConfig(cfg, growOutputs)
	if err != nil {
		return nil, err
	}
	ints := make(map[string]int)
	for _, name := range []string{"Iterations", "Digits", "Skips", "MaxSteps", "LogEvery"} {
		v, err := cast.ToIntE(cfg.Get(name))
		if err != nil {
			return nil, fmt.Errorf("lumos: invalid %s: %v", name, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("lumos: %s must not be negative but is %d", name, v)
		}
		ints[name] = v
	}
	seed, err := cast.ToUint64E(cfg.Get("Seed"))
	if err != nil {
		return nil, fmt.Errorf("lumos: invalid Seed: %v", err)
	}
	rc.Engine = lumos.EngineConfig{
		Iterations:   ints["Iterations"],
		Digits:       ints["Digits"],
		Skips:        ints["Skips"],
		Seed:         seed,
		DisableNoise: cast.ToBool(cfg.Get("NoNoise")),
	}
	rc.MaxSteps = ints["MaxSteps"]
	rc.LogEvery = ints["LogEvery"]
	if r := cfg.GetString("Resume"); r != "" {
		rc.Resume, err = checkInput(r)
		if err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// checkInput makes sure that the input file is specified and exists,
// and expands any environment variables.
func checkInput(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("lumos: you need to specify an input file (for example: --Input=clouds.ppm)")
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(f); err != nil {
		return f, fmt.Errorf("lumos: the input file doesn't exist: %v", err)
	}
	return f, nil
}

// checkOutputDir expands environment variables in the output directory
// and makes sure that it exists.
func checkOutputDir(d string) (string, error) {
	d = os.ExpandEnv(d)
	if d == "" {
		d = "."
	}
	info, err := os.Stat(d)
	if err != nil {
		return d, fmt.Errorf("lumos: the OutputDir directory doesn't exist: %v", err)
	}
	if !info.IsDir() {
		return d, fmt.Errorf("lumos: OutputDir %s is not a directory", d)
	}
	return d, nil
}

// checkOutputs returns the requested outputs that are in allowed. An
// output name that no command knows is an error.
func checkOutputs(requested, allowed []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, o := range requested {
		o = strings.ToLower(strings.TrimSpace(o))
		if o == "" {
			continue
		}
		if !contains(growOutputs, o) {
			return nil, fmt.Errorf("lumos: unknown output %q; choices are %s", o, strings.Join(growOutputs, ", "))
		}
		if contains(allowed, o) {
			out[o] = true
		}
	}
	return out, nil
}

// checkClobber makes sure that no requested output would be written
// over the input file.
func checkClobber(rc *RunConfig) error {
	in, err := os.Stat(rc.Input)
	if err != nil {
		return fmt.Errorf("lumos: the input file doesn't exist: %v", err)
	}
	for _, o := range growOutputs {
		if !rc.Outputs[o] {
			continue
		}
		for _, suffix := range outputSuffixes[o] {
			out, err := os.Stat(rc.path(suffix))
			if err != nil {
				continue // not written yet
			}
			if os.SameFile(in, out) {
				return fmt.Errorf("lumos: output %s would overwrite the input file %s", o, rc.Input)
			}
		}
	}
	return nil
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
