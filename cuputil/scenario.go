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

package cuputil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chengcli/cup"
)

// A Scenario declares one complete cup run: the radiation
// configuration, the column files to process, and where the output
// goes.
type Scenario struct {
	Radiation   cup.RadiationConfig `desc:"Radiation configuration of the run: species, layers, and bands."`
	ColumnFiles []string            `desc:"Paths of the NetCDF column files to process. The paths can include environment variables."`
	OutputDir   string              `desc:"Directory the flux output files are written to. The path can include environment variables."`
}

// LoadScenario reads a run scenario from the TOML file at filename,
// expands the environment variables in the paths it holds, and
// validates the radiation configuration.
func LoadScenario(filename string) (*Scenario, error) {
	if filename == "" {
		return nil, fmt.Errorf(`cup: you need to specify a scenario file configuration variable (for example: ScenarioFile="scenario.toml")`)
	}
	b, err := os.ReadFile(os.ExpandEnv(filename))
	if err != nil {
		return nil, fmt.Errorf("cup: problem reading scenario file: %v", err)
	}
	s := new(Scenario)
	if _, err := toml.Decode(string(b), s); err != nil {
		return nil, fmt.Errorf("cup: problem parsing scenario file %s: %v", filename, err)
	}
	s.ColumnFiles = expandStringSlice(s.ColumnFiles)
	s.OutputDir = os.ExpandEnv(s.OutputDir)
	for i := range s.Radiation.Bands {
		for j := range s.Radiation.Bands[i].Absorbers {
			a := &s.Radiation.Bands[i].Absorbers[j]
			a.DataFile = os.ExpandEnv(a.DataFile)
		}
	}
	if err := s.Radiation.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputDir makes sure that the output directory is specified and
// exists, and expands any environment variables.
func checkOutputDir(d string) (string, error) {
	if d == "" {
		return "", fmt.Errorf(`cup: you need to specify an output directory configuration variable (for example: OutputDir="output")`)
	}
	d = os.ExpandEnv(d)
	if _, err := os.Stat(d); err != nil {
		return d, fmt.Errorf("cup: the OutputDir directory doesn't exist: %v", err)
	}
	return d, nil
}

// checkLogFile fills in a default value for the log file path if one
// isn't specified.
func checkLogFile(logFile, outputDir string) string {
	if logFile == "" {
		logFile = filepath.Join(outputDir, "cup.log")
	}
	return logFile
}
