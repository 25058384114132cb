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

	"github.com/lnashier/viper"
	"github.com/spatialmodel/lumos"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to lumos.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Input",
			usage: `
              Input is the path to the input file. For grow it is a PNG or
              PPM mask image: red pixels start the discharge, white pixels
              end it, blue pixels attract it and green pixels repel it. For
              render and graph it is a .lightning file. It can contain
              environment variables.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory the output files are written to.
              It can contain environment variables.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Outputs",
			usage: `
              Outputs lists the files to write. Choices are lightning, png,
              netcdf, shp, trace, summary, dot, svg and checkpoint. Not
              every command can write every output.`,
			defaultVal: []string{"lightning", "png", "summary"},
			flagsets:   []*pflag.FlagSet{growCmd.Flags(), renderCmd.Flags(), graphCmd.Flags()},
		},
		{
			name: "Scale",
			usage: `
              Scale is the number of output pixels per grid cell in raster
              outputs.`,
			defaultVal: 5,
			flagsets:   []*pflag.FlagSet{growCmd.Flags(), renderCmd.Flags()},
		},
		{
			name: "Iterations",
			usage: `
              Iterations is the maximum number of conjugate gradient
              iterations per potential solve, after the first solve.`,
			defaultVal: lumos.DefaultIterations,
			flagsets:   []*pflag.FlagSet{growCmd.Flags()},
		},
		{
			name: "Digits",
			usage: `
              Digits is the number of digits of residual precision the
              potential solver aims for.`,
			defaultVal: lumos.DefaultDigits,
			flagsets:   []*pflag.FlagSet{growCmd.Flags()},
		},
		{
			name: "Skips",
			usage: `
              Skips is the number of growth steps taken between potential
              solves.`,
			defaultVal: lumos.DefaultSkips,
			flagsets:   []*pflag.FlagSet{growCmd.Flags()},
		},
		{
			name: "Seed",
			usage: `
              Seed seeds the random number generator. Runs with the same
              seed and input give the same discharge.`,
			defaultVal: lumos.DefaultSeed,
			flagsets:   []*pflag.FlagSet{growCmd.Flags()},
		},
		{
			name: "NoNoise",
			usage: `
              NoNoise turns off the scattered weak attractors that make
              the discharge branch more.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{growCmd.Flags()},
		},
		{
			name: "MaxSteps",
			usage: `
              MaxSteps stops the growth after this many steps even if no
              terminator has been reached. Zero means no limit.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{growCmd.Flags()},
		},
		{
			name: "LogEvery",
			usage: `
              LogEvery is the number of growth steps between progress
              messages.`,
			defaultVal: 200,
			flagsets:   []*pflag.FlagSet{growCmd.Flags()},
		},
		{
			name: "Resume",
			usage: `
              Resume is the path to a checkpoint file to continue growing
              from. When it is set, Input is only used to name the outputs.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{growCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("LUMOS")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			default:
				panic(fmt.Sprintf("invalid argument type %T", v))
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(growCmd)
	Root.AddCommand(renderCmd)
	Root.AddCommand(graphCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("lumos: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "lumos",
	Short: "A lightning generator.",
	Long: `lumos grows lightning with the dielectric breakdown model on an adaptive
quadtree. Use the subcommands specified below to grow a discharge from a mask
image and to render saved discharges.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'LUMOS_var' where 'var' is the
name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of lumos.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("lumos v%s\n", lumos.Version)
	},
	DisableAutoGenTag: true,
}

// growCmd grows a discharge from a mask image.
var growCmd = &cobra.Command{
	Use:   "grow",
	Short: "Grow a discharge from a mask image.",
	Long: `grow reads the boundary conditions from a mask image, grows a discharge
until it reaches a terminator and writes the requested outputs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := GrowConfig(Cfg)
		if err != nil {
			return err
		}
		_, err = Grow(newLogger(cmd), rc)
		return err
	},
	DisableAutoGenTag: true,
}

// renderCmd rasterizes a saved discharge.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a saved discharge.",
	Long: `render reads a .lightning file and writes the requested raster and
shapefile outputs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := OutputConfig(Cfg, renderOutputs)
		if err != nil {
			return err
		}
		return Render(newLogger(cmd), rc)
	},
	DisableAutoGenTag: true,
}

// graphCmd exports the connectivity graph of a saved discharge.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the connectivity graph of a saved discharge.",
	Long: `graph reads a .lightning file and writes its connectivity graph in
Graphviz DOT format, and optionally as an SVG drawing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := OutputConfig(Cfg, graphOutputs)
		if err != nil {
			return err
		}
		return Graph(cmd.Context(), newLogger(cmd), rc)
	},
	DisableAutoGenTag: true,
}
