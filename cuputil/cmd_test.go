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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/chengcli/cup"
)

func TestVersionCmd(t *testing.T) {
	var b bytes.Buffer
	Root.SetOut(&b)
	defer Root.SetOut(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	want := "cup v" + cup.Version + "\n"
	if b.String() != want {
		t.Errorf("version output %q; want %q", b.String(), want)
	}
}

// TestRunCmd drives the run and plot commands over the example
// scenario, checking the fluxes the run writes against the two-stream
// boundary conditions: the downward flux at the top of the atmosphere
// is the incoming beam, and the upward flux at the surface is the
// reflected fraction of the downward flux there.
func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	colDir := filepath.Join(dir, "columns")
	outDir := filepath.Join(dir, "output")
	for _, d := range []string{colDir, outDir} {
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	os.Setenv("CUP_COLUMN_DIR", colDir)
	os.Setenv("CUP_OUTPUT_DIR", outDir)
	colFile := filepath.Join(colDir, "testcolumn.ncf")
	if err := cup.WriteColumn(colFile, cup.ColumnTestData(4), cup.SpeciesTestData()); err != nil {
		t.Fatal(err)
	}

	Cfg.Set("ScenarioFile", "../cmd/cup/scenarioExample.toml")
	Cfg.Set("NumWorkers", 1)
	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	fluxFile := filepath.Join(outDir, FluxFileName(colFile))
	z := readFluxVar(t, fluxFile, "z")
	dn := readFluxVar(t, fluxFile, "flxdn")
	up := readFluxVar(t, fluxFile, "flxup")
	if len(z) != 5 || z[4] != 4000 {
		t.Fatalf("flux file levels = %v; want 0 to 4000 m", z)
	}
	if different(dn[4], 100, testTolerance) {
		t.Errorf("top-of-atmosphere downward flux = %g W/m2; want 100", dn[4])
	}
	if different(up[0], 0.3*dn[0], testTolerance) {
		t.Errorf("surface upward flux = %g W/m2; want %g", up[0], 0.3*dn[0])
	}
	if _, err := os.Stat(filepath.Join(outDir, "cup.log")); err != nil {
		t.Errorf("run did not write the default log file: %v", err)
	}

	// Render a profile from the file the run produced.
	plotFile := filepath.Join(dir, "profile.png")
	Cfg.Set("FluxFile", fluxFile)
	Cfg.Set("PlotFile", plotFile)
	Cfg.Set("PlotBand", "thermal")
	Root.SetArgs([]string{"plot"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(plotFile)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() == 0 {
		t.Error("plot file is empty")
	}
}
