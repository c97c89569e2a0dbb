/*
Copyright © 2025 the cup authors.
This file is part of cup.

cup is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cup is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cup.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package cuputil provides the command-line interface of the cup
// radiative-transfer model.
package cuputil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chengcli/cup"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to cup.
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
			name: "ScenarioFile",
			usage: `
              ScenarioFile is the path to the TOML scenario declaring the
              species, bands, absorbers, and solvers of a run, the column
              files to process, and the output directory. The path can
              include environment variables.`,
			shorthand:  "s",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ColumnFiles",
			usage: `
              ColumnFiles are the paths to the NetCDF column files to
              process. When set, they replace the ColumnFiles list of the
              scenario. The paths can include environment variables.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory the flux output files are written
              to. When set, it replaces the OutputDir of the scenario. The
              path can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the
              logfile will be saved in the output directory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "NumWorkers",
			usage: `
              NumWorkers is the number of columns processed concurrently
              by the run command. Zero or less selects one worker per
              processor.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "FluxFile",
			usage: `
              FluxFile is the path to a flux output file written by the
              run command. The path can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile is the path the rendered profile image is saved to.
              The image format is taken from the file extension. If
              PlotFile is left blank, the image is saved next to FluxFile
              with a .png extension.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "PlotBand",
			usage: `
              PlotBand selects the band whose fluxes are plotted, as the
              band is named in the flux file variables. If PlotBand is
              left blank, the broadband totals are plotted.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CUP")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(plotCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("cup: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "cup",
	Short: "A column radiative-transfer model.",
	Long: `cup computes spectral optical properties, radiative fluxes, heating
rates, and radiances for atmospheric columns. Use the subcommands
specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and
default settings. Configuration can be changed by using a configuration
file (and providing the path to the file using the --config flag), by
using command-line arguments, or by setting environment variables in the
format 'CUP_var' where 'var' is the name of the variable to be set. Many
configuration variables are additionally allowed to contain environment
variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of cup.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("cup v%s\n", cup.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute radiative fluxes for atmospheric columns.",
	Long: `run loads the scenario given by the ScenarioFile configuration
variable, computes spectral properties, fluxes, heating rates, and
radiances for every column file of the scenario, and writes one flux
file per column into the output directory. Columns are processed
concurrently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := LoadScenario(Cfg.GetString("ScenarioFile"))
		if err != nil {
			return err
		}
		if files := expandStringSlice(Cfg.GetStringSlice("ColumnFiles")); len(files) > 0 {
			s.ColumnFiles = files
		}
		if dir := os.ExpandEnv(Cfg.GetString("OutputDir")); dir != "" {
			s.OutputDir = dir
		}
		if s.OutputDir, err = checkOutputDir(s.OutputDir); err != nil {
			return err
		}
		return Run(cmd,
			checkLogFile(os.ExpandEnv(Cfg.GetString("LogFile")), s.OutputDir),
			Cfg.GetInt("NumWorkers"), s)
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot a computed flux profile.",
	Long: `plot reads a flux file written by the run command and renders the
upward and downward flux profiles against height. The PlotBand
configuration variable selects a single band; by default the broadband
totals are plotted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fluxFile := os.ExpandEnv(Cfg.GetString("FluxFile"))
		if fluxFile == "" {
			return fmt.Errorf(`cup: you need to specify a flux file configuration variable (for example: FluxFile="column_flux.ncf")`)
		}
		plotFile := os.ExpandEnv(Cfg.GetString("PlotFile"))
		if plotFile == "" {
			plotFile = strings.TrimSuffix(fluxFile, filepath.Ext(fluxFile)) + ".png"
		}
		return Plot(fluxFile, plotFile, Cfg.GetString("PlotBand"))
	},
	DisableAutoGenTag: true,
}
