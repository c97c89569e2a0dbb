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
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// GrayAbsorber is a spectrally uniform absorber with a
// Henyey-Greenstein phase function. It is registered as kind "gray"
// with parameters attenuation [m**-1], ssa, and asymmetry, and is
// meant for analytic studies and tests where the optical properties
// must be known exactly.
type GrayAbsorber struct {
	ZeroAbsorber
	Atten float64 // attenuation coefficient [m**-1]
	SSA   float64 // single-scattering albedo
	Asym  float64 // Henyey-Greenstein asymmetry parameter
}

func init() {
	RegisterAbsorber("gray", func(cfg AbsorberConfig, sp *Species, grid *SpectralGrid) (Absorber, error) {
		g := cfg.Params["asymmetry"]
		if math.Abs(g) >= 1 {
			return nil, fmt.Errorf("asymmetry parameter %g must be in (-1,1)", g)
		}
		w := cfg.Params["ssa"]
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("single-scattering albedo %g must be in [0,1]", w)
		}
		k := cfg.Params["attenuation"]
		if k < 0 {
			return nil, fmt.Errorf("attenuation %g 1/m must not be negative", k)
		}
		return &GrayAbsorber{Atten: k, SSA: w, Asym: g}, nil
	})
}

// Name returns "gray".
func (a *GrayAbsorber) Name() string { return "gray" }

// Attenuation returns the constant attenuation coefficient [m**-1].
func (a *GrayAbsorber) Attenuation(SpectralBin, *AtmosphericState) float64 { return a.Atten }

// SingleScatteringAlbedo returns the constant albedo.
func (a *GrayAbsorber) SingleScatteringAlbedo(SpectralBin, *AtmosphericState) float64 { return a.SSA }

// PhaseMoments fills pm with the Henyey-Greenstein moments g**l.
func (a *GrayAbsorber) PhaseMoments(pm []float64, _ SpectralBin, _ *AtmosphericState) {
	m := 1.
	for l := range pm {
		pm[l] = m
		m *= a.Asym
	}
}

// ColumnTestData returns an nlayer isothermal test column: 250 K,
// 10**5 Pa, 1 km layers, and a two-constituent composition of ten
// percent water vapor in air by moles.
func ColumnTestData(nlayer int) *Column {
	col := &Column{
		Name:   "testcolumn",
		States: make([]AtmosphericState, nlayer),
		Dz:     make([]float64, nlayer),
	}
	for i := range col.States {
		col.States[i] = AtmosphericState{
			T:    250,
			P:    1.e5,
			X:    []float64{0.9, 0.1},
			Kind: MoleFraction,
		}
		col.Dz[i] = 1000
	}
	return col
}

// SpeciesTestData returns the species table matching ColumnTestData.
func SpeciesTestData() *Species {
	sp, err := NewSpecies([]string{"air", "h2o"}, []float64{28.964, 18.016})
	if err != nil {
		panic(err)
	}
	return sp
}

// RadiationTestConfig returns a one-band configuration matching
// ColumnTestData(nlayer): a gray absorber with attenuation 2e-4 1/m,
// albedo 0.3, and asymmetry 0.1 under an overhead beam of 100 W/m2,
// solved by the named solver kind.
func RadiationTestConfig(solverKind string, nlayer int) RadiationConfig {
	return RadiationConfig{
		Species: []SpeciesConfig{
			{Name: "air", MolarMass: 28.964},
			{Name: "h2o", MolarMass: 18.016},
		},
		NumLayers: nlayer,
		Bands: []BandConfig{{
			Name:       "testband",
			WaveMin:    600,
			WaveMax:    1400,
			NumBins:    4,
			NumMoments: 2,
			Absorbers: []AbsorberConfig{{
				Name: "gray",
				Kind: "gray",
				Params: map[string]float64{
					"attenuation": 2.e-4,
					"ssa":         0.3,
					"asymmetry":   0.1,
				},
			}},
			Solver:    SolverConfig{Kind: solverKind},
			BeamFlux:  100,
			CosZenith: 1,
			Rays:      []RayConfig{{Mu: 1}, {Mu: 0.5}},
		}},
	}
}

// Test opacity-table values; every payload entry is constant so
// interpolation returns them exactly at any coordinate inside the
// domain.
const (
	TestTableKabs  = 4.e-28 // absorption cross-section [m**2]
	TestTableKscat = 1.e-28 // scattering cross-section [m**2]
	TestTableSSA   = TestTableKscat / (TestTableKabs + TestTableKscat)
	TestTableAsym  = 0.5 // first-order phase moment
)

// WriteTestOpacityFile writes a small gas opacity table in the given
// format to filename. The wavenumber axis spans 400 to 1600 cm-1, the
// pressure axis 10**3 to 10**7 Pa with a 250 K reference temperature,
// and the temperature-deviation axis -50 to 50 K; all payload entries
// are the TestTable constants, with phase moments {1, TestTableAsym,
// TestTableAsym**2}.
func WriteTestOpacityFile(filename, format string) error {
	wave := []float64{400, 800, 1200, 1600}
	press := []float64{1.e3, 1.e5, 1.e7}
	tempdiff := []float64{-50, 0, 50}
	nw, np, nt := len(wave), len(press), len(tempdiff)

	h := cdf.NewHeader(
		[]string{"wavenumber", "pressure", "tempdiff", "moment"},
		[]int{nw, np, nt, 3})
	h.AddAttribute("", "format", format)
	h.AddAttribute("", "species", "h2o")
	addVar := func(name string, dims []string, units string) {
		h.AddVariable(name, dims, []float32{0})
		h.AddAttribute(name, "units", units)
	}
	addVar("wavenumber", []string{"wavenumber"}, "cm**-1")
	addVar("pressure", []string{"pressure"}, "Pa")
	addVar("tempdiff", []string{"tempdiff"}, "K")
	addVar("temp_ref", []string{"pressure"}, "K")
	payload := []string{"wavenumber", "pressure", "tempdiff"}
	switch format {
	case FormatXsecSplit:
		addVar("kabs", payload, "m**2")
		addVar("kscat", payload, "m**2")
	case FormatXsecTotal:
		addVar("ktot", payload, "m**2")
		addVar("ssalb", payload, "1")
	default:
		return fmt.Errorf("cup: unknown test opacity format %q", format)
	}
	addVar("pmom", []string{"wavenumber", "pressure", "tempdiff", "moment"}, "1")
	h.Define()

	ff, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return err
	}

	constArray := func(v float64, dims ...int) *sparse.DenseArray {
		d := sparse.ZerosDense(dims...)
		for i := range d.Elements {
			d.Elements[i] = v
		}
		return d
	}
	write := func(name string, data *sparse.DenseArray) {
		if err != nil {
			return
		}
		err = WriteNCF(f, name, data)
	}
	write("wavenumber", denseFromVector(wave))
	write("pressure", denseFromVector(press))
	write("tempdiff", denseFromVector(tempdiff))
	write("temp_ref", constArray(250, np))
	switch format {
	case FormatXsecSplit:
		write("kabs", constArray(TestTableKabs, nw, np, nt))
		write("kscat", constArray(TestTableKscat, nw, np, nt))
	case FormatXsecTotal:
		write("ktot", constArray(TestTableKabs+TestTableKscat, nw, np, nt))
		write("ssalb", constArray(TestTableSSA, nw, np, nt))
	}
	pm := sparse.ZerosDense(nw, np, nt, 3)
	for i := 0; i < nw*np*nt; i++ {
		pm.Elements[i*3] = 1
		pm.Elements[i*3+1] = TestTableAsym
		pm.Elements[i*3+2] = TestTableAsym * TestTableAsym
	}
	write("pmom", pm)
	return err
}
