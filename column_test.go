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
	"math"
	"testing"
)

func TestNewSpecies(t *testing.T) {
	sp, err := NewSpecies([]string{"air", "h2o"}, []float64{28.964, 18.016})
	if err != nil {
		t.Fatal(err)
	}
	if sp.Len() != 2 {
		t.Fatalf("species table has %d entries, want 2", sp.Len())
	}
	i, err := sp.Index("h2o")
	if err != nil {
		t.Fatal(err)
	}
	if i != 1 {
		t.Errorf("h2o has index %d, want 1", i)
	}
	if _, err := sp.Index("co2"); err == nil {
		t.Error("expected an error for an unknown species")
	}

	cases := []struct {
		name      string
		names     []string
		molarMass []float64
	}{
		{"empty", nil, nil},
		{"length mismatch", []string{"air"}, []float64{28.964, 18.016}},
		{"duplicate", []string{"air", "air"}, []float64{28.964, 28.964}},
		{"zero mass", []string{"air"}, []float64{0}},
		{"NaN mass", []string{"air"}, []float64{math.NaN()}},
	}
	for _, c := range cases {
		if _, err := NewSpecies(c.names, c.molarMass); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestCompositionKind(t *testing.T) {
	if MoleFraction.String() != "mole fraction" {
		t.Errorf("MoleFraction prints as %q", MoleFraction.String())
	}
	if MassMixingRatio.String() != "mass mixing ratio" {
		t.Errorf("MassMixingRatio prints as %q", MassMixingRatio.String())
	}
	for s, want := range map[string]CompositionKind{
		"mole fraction":     MoleFraction,
		"mole_fraction":     MoleFraction,
		"mass mixing ratio": MassMixingRatio,
		"mass_mixing_ratio": MassMixingRatio,
	} {
		kind, err := ParseCompositionKind(s)
		if err != nil {
			t.Error(err)
		}
		if kind != want {
			t.Errorf("%q parses to %v, want %v", s, kind, want)
		}
	}
	if _, err := ParseCompositionKind("volume mixing ratio"); err == nil {
		t.Error("expected an error for an unknown composition kind")
	}
}

// Test whether the two composition kinds describe the same air: the
// state converted to mass mixing ratios must reproduce the original
// mole fractions, densities, and mean molar mass.
func TestStateComposition(t *testing.T) {
	const testTolerance = 1.e-12

	sp := SpeciesTestData()
	mole := &AtmosphericState{T: 250, P: 1.e5, X: []float64{0.9, 0.1}, Kind: MoleFraction}
	mbar := 0.9*28.964 + 0.1*18.016
	if m := mole.MeanMolarMass(sp); different(m, mbar, testTolerance) {
		t.Errorf("mean molar mass is %g g/mol, want %g", m, mbar)
	}

	q := []float64{mole.MassMixingRatio(sp, 0), mole.MassMixingRatio(sp, 1)}
	if different(q[0]+q[1], 1, testTolerance) {
		t.Errorf("mass mixing ratios sum to %g, want 1", q[0]+q[1])
	}
	mass := &AtmosphericState{T: 250, P: 1.e5, X: q, Kind: MassMixingRatio}
	if x := mass.MoleFraction(sp, 0); different(x, 0.9, testTolerance) {
		t.Errorf("air mole fraction converts back to %g, want 0.9", x)
	}
	if x := mass.MoleFraction(sp, 1); different(x, 0.1, testTolerance) {
		t.Errorf("h2o mole fraction converts back to %g, want 0.1", x)
	}
	if m := mass.MeanMolarMass(sp); different(m, mbar, testTolerance) {
		t.Errorf("mean molar mass from mixing ratios is %g g/mol, want %g", m, mbar)
	}

	wantN := 0.1 * 1.e5 / (kBoltzmann * 250)
	if n := mole.NumberDensity(sp, 1); different(n, wantN, testTolerance) {
		t.Errorf("h2o number density is %g 1/m3, want %g", n, wantN)
	}
	for i := 0; i < sp.Len(); i++ {
		if different(mass.NumberDensity(sp, i), mole.NumberDensity(sp, i), testTolerance) {
			t.Errorf("species %d number density differs between composition kinds", i)
		}
	}

	wantRho := 1.e5 * mbar * 1.e-3 / (rGas * 250)
	if rho := mole.Density(sp); different(rho, wantRho, testTolerance) {
		t.Errorf("density is %g kg/m3, want %g", rho, wantRho)
	}
	if different(mass.Density(sp), mole.Density(sp), testTolerance) {
		t.Error("density differs between composition kinds")
	}

	// A state with nothing in it converts to nothing.
	empty := &AtmosphericState{T: 250, P: 1.e5, X: []float64{0, 0}, Kind: MassMixingRatio}
	if x := empty.MoleFraction(sp, 0); x != 0 {
		t.Errorf("empty state has mole fraction %g, want 0", x)
	}
	if m := empty.MeanMolarMass(sp); m != 0 {
		t.Errorf("empty state has mean molar mass %g, want 0", m)
	}
}

func TestColumnCheck(t *testing.T) {
	sp := SpeciesTestData()
	if err := ColumnTestData(3).Check(sp); err != nil {
		t.Error(err)
	}

	cases := []struct {
		name   string
		mutate func(c *Column)
	}{
		{"no layers", func(c *Column) { c.States = nil; c.Dz = nil }},
		{"thickness count", func(c *Column) { c.Dz = c.Dz[:2] }},
		{"bad temperature", func(c *Column) { c.States[1].T = 0 }},
		{"NaN pressure", func(c *Column) { c.States[0].P = math.NaN() }},
		{"bad thickness", func(c *Column) { c.Dz[2] = -1 }},
		{"constituent count", func(c *Column) { c.States[1].X = []float64{1} }},
		{"negative amount", func(c *Column) { c.States[0].X[1] = -0.1 }},
	}
	for _, c := range cases {
		col := ColumnTestData(3)
		c.mutate(col)
		if err := col.Check(sp); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestLevelHeights(t *testing.T) {
	col := &Column{Dz: []float64{1000, 500, 250}}
	want := []float64{0, 1000, 1500, 1750}
	z := col.LevelHeights()
	if len(z) != len(want) {
		t.Fatalf("column has %d levels, want %d", len(z), len(want))
	}
	for i := range want {
		if z[i] != want[i] {
			t.Errorf("level %d is at %g m, want %g", i, z[i], want[i])
		}
	}
}

func TestLayerRange(t *testing.T) {
	if r := FullColumn(5); r.Begin != 0 || r.End != 5 {
		t.Errorf("full column range is [%d,%d), want [0,5)", r.Begin, r.End)
	}
	if n := (LayerRange{Begin: 1, End: 3}).Len(); n != 2 {
		t.Errorf("range [1,3) has %d layers, want 2", n)
	}
	for _, r := range []LayerRange{{0, 5}, {4, 5}, {0, 1}} {
		if err := r.Check(5); err != nil {
			t.Error(err)
		}
	}
	for _, r := range []LayerRange{{-1, 2}, {0, 6}, {2, 2}, {3, 2}, {}} {
		if err := r.Check(5); err == nil {
			t.Errorf("range [%d,%d): expected an error", r.Begin, r.End)
		}
	}
}
