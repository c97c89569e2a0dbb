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

package cup

import (
	"strings"
	"testing"
)

// Validate must fill in the documented defaults without disturbing
// values the configuration sets.
func TestValidateDefaults(t *testing.T) {
	cfg := RadiationTestConfig("twostream", 4)
	cfg.Bands[0].NumMoments = 0
	cfg.Bands[0].Absorbers[0].Name = ""
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.SpecificHeat != 1004 {
		t.Errorf("SpecificHeat defaults to %g, want 1004", cfg.SpecificHeat)
	}
	if cfg.Bands[0].GridKind != "regular" {
		t.Errorf("GridKind defaults to %q, want regular", cfg.Bands[0].GridKind)
	}
	if cfg.Bands[0].NumMoments != 4 {
		t.Errorf("NumMoments defaults to %d, want 4", cfg.Bands[0].NumMoments)
	}
	if cfg.Bands[0].Absorbers[0].Name != "gray" {
		t.Errorf("absorber name defaults to %q, want the kind", cfg.Bands[0].Absorbers[0].Name)
	}

	cfg = RadiationTestConfig("twostream", 4)
	cfg.SpecificHeat = 14304 // hydrogen air
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.SpecificHeat != 14304 {
		t.Errorf("SpecificHeat is %g after validation, want 14304", cfg.SpecificHeat)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *RadiationConfig)
		want   string
	}{
		{"no species", func(c *RadiationConfig) { c.Species = nil }, "Species"},
		{"no layers", func(c *RadiationConfig) { c.NumLayers = 0 }, "NumLayers"},
		{"bad specific heat", func(c *RadiationConfig) { c.SpecificHeat = -1 }, "SpecificHeat"},
		{"no bands", func(c *RadiationConfig) { c.Bands = nil }, "Bands"},
		{"unnamed band", func(c *RadiationConfig) { c.Bands[0].Name = "" }, "Name"},
		{"duplicate band", func(c *RadiationConfig) { c.Bands = append(c.Bands, c.Bands[0]) }, "duplicate band name"},
		{"no bins", func(c *RadiationConfig) { c.Bands[0].NumBins = 0 }, "NumBins"},
		{"empty band range", func(c *RadiationConfig) { c.Bands[0].WaveMax = c.Bands[0].WaveMin }, "WaveMax"},
		{"bad grid kind", func(c *RadiationConfig) { c.Bands[0].GridKind = "spline" }, "GridKind"},
		{"custom without weights", func(c *RadiationConfig) { c.Bands[0].GridKind = "custom" }, "BinWeights"},
		{"custom edge count", func(c *RadiationConfig) {
			c.Bands[0].GridKind = "custom"
			c.Bands[0].BinWeights = []float64{1, 1}
			c.Bands[0].BinEdges = []float64{600, 1400}
		}, "BinEdges"},
		{"bad moments", func(c *RadiationConfig) { c.Bands[0].NumMoments = -1 }, "NumMoments"},
		{"no solver", func(c *RadiationConfig) { c.Bands[0].Solver.Kind = "" }, "Solver.Kind"},
		{"negative beam", func(c *RadiationConfig) { c.Bands[0].BeamFlux = -5 }, "BeamFlux"},
		{"no zenith", func(c *RadiationConfig) { c.Bands[0].CosZenith = 0 }, "CosZenith"},
		{"bad zenith", func(c *RadiationConfig) { c.Bands[0].CosZenith = 1.5 }, "CosZenith"},
		{"bad albedo", func(c *RadiationConfig) { c.Bands[0].SurfaceAlbedo = 1.5 }, "SurfaceAlbedo"},
		{"negative emission", func(c *RadiationConfig) { c.Bands[0].SurfaceEmission = -1 }, "SurfaceEmission"},
		{"bad ray", func(c *RadiationConfig) { c.Bands[0].Rays[0].Mu = 0 }, "Rays[0].Mu"},
		{"kindless absorber", func(c *RadiationConfig) { c.Bands[0].Absorbers[0].Kind = "" }, "Absorbers[0].Kind"},
	}
	for _, c := range cases {
		cfg := RadiationTestConfig("twostream", 4)
		c.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected an error", c.name)
			continue
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: error %q does not mention %q", c.name, err, c.want)
		}
	}
}
