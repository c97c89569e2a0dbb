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
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// ColumnDataVersion is the schema version of column input files. Files
// carrying a different global data_version attribute are rejected.
const ColumnDataVersion = "1"

// wattPerMeter2 is the dimension signature of a flux density
// [kg s**-3].
var wattPerMeter2 = unit.Dimensions{unit.MassDim: 1, unit.TimeDim: -3}

// unitsBySymbol maps the units attribute strings allowed in cup files
// to their dimension signatures.
var unitsBySymbol = map[string]unit.Dimensions{
	"K":           unit.Kelvin,
	"Pa":          unit.Pascal,
	"m":           unit.Meter,
	"W m**-2":     wattPerMeter2,
	"mol mol**-1": unit.Dimless,
	"kg kg**-1":   unit.Dimless,
	"1":           unit.Dimless,
}

// checkNCFUnits verifies that the units attribute of varName carries
// the expected dimensions.
func checkNCFUnits(f *cdf.File, varName string, want unit.Dimensions) error {
	sym, ok := NCFAttrString(f, varName, "units")
	if !ok {
		return fmt.Errorf("cup: variable %s has no units attribute", varName)
	}
	have, ok := unitsBySymbol[sym]
	if !ok {
		return fmt.Errorf("cup: variable %s has unrecognized units %q", varName, sym)
	}
	if !have.Matches(want) {
		return fmt.Errorf("cup: variable %s has units %q but dimensions %v are required",
			varName, sym, want)
	}
	return nil
}

// LoadColumn reads one atmospheric column from a NetCDF file.
//
// The file must carry a layer dimension; rank-1 variables temperature
// [K], pressure [Pa], and dz [m] over it; one rank-1 variable per
// configured species holding mole fractions or mass mixing ratios; and
// global attributes data_version and composition. Layers are ordered
// bottom-up. The units attribute of every variable is checked against
// the dimensions cup requires.
func LoadColumn(filename string, sp *Species) (*Column, error) {
	ff, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cup: opening column file: %w", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("cup: column file %s: %w", filename, err)
	}

	version, _ := NCFAttrString(f, "", "data_version")
	if version != ColumnDataVersion {
		return nil, fmt.Errorf("cup: column file %s has data version %q but version %q is required; "+
			"regenerate the file with a matching toolchain", filename, version, ColumnDataVersion)
	}
	kindAttr, ok := NCFAttrString(f, "", "composition")
	if !ok {
		return nil, fmt.Errorf("cup: column file %s has no global composition attribute", filename)
	}
	kind, err := ParseCompositionKind(kindAttr)
	if err != nil {
		return nil, fmt.Errorf("cup: column file %s: %w", filename, err)
	}

	col := new(Column)
	if col.Name, ok = NCFAttrString(f, "", "name"); !ok {
		col.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	read := func(name string, want unit.Dimensions) []float64 {
		if err != nil {
			return nil
		}
		if err = checkNCFUnits(f, name, want); err != nil {
			return nil
		}
		var v []float64
		if v, err = ReadNCFVector(f, name); err != nil {
			return nil
		}
		return v
	}
	temp := read("temperature", unit.Kelvin)
	press := read("pressure", unit.Pascal)
	dz := read("dz", unit.Meter)
	xs := make([][]float64, sp.Len())
	for i, name := range sp.Names {
		xs[i] = read(name, unit.Dimless)
	}
	if err != nil {
		return nil, fmt.Errorf("cup: column file %s: %w", filename, err)
	}

	n := len(temp)
	if len(press) != n || len(dz) != n {
		return nil, fmt.Errorf("cup: column file %s: temperature, pressure, and dz have lengths %d, %d, and %d but must match",
			filename, n, len(press), len(dz))
	}
	col.States = make([]AtmosphericState, n)
	col.Dz = dz
	for i := 0; i < n; i++ {
		x := make([]float64, sp.Len())
		for j := range xs {
			if len(xs[j]) != n {
				return nil, fmt.Errorf("cup: column file %s: species %s has %d layers but the column has %d",
					filename, sp.Names[j], len(xs[j]), n)
			}
			x[j] = xs[j][i]
		}
		col.States[i] = AtmosphericState{T: temp[i], P: press[i], X: x, Kind: kind}
	}
	if err := col.Check(sp); err != nil {
		return nil, err
	}
	return col, nil
}

// WriteColumn writes col to a NetCDF file in the layout LoadColumn
// reads.
func WriteColumn(filename string, col *Column, sp *Species) error {
	if err := col.Check(sp); err != nil {
		return err
	}
	n := col.NLayers()
	h := cdf.NewHeader([]string{"layer"}, []int{n})
	h.AddAttribute("", "data_version", ColumnDataVersion)
	h.AddAttribute("", "composition", col.States[0].Kind.String())
	h.AddAttribute("", "name", col.Name)
	addVar := func(name, desc, units string) {
		h.AddVariable(name, []string{"layer"}, []float32{0})
		h.AddAttribute(name, "description", desc)
		h.AddAttribute(name, "units", units)
	}
	addVar("temperature", "Layer air temperature", "K")
	addVar("pressure", "Layer air pressure", "Pa")
	addVar("dz", "Layer geometric thickness", "m")
	xunits := "mol mol**-1"
	if col.States[0].Kind == MassMixingRatio {
		xunits = "kg kg**-1"
	}
	for _, name := range sp.Names {
		addVar(name, "Constituent amount", xunits)
	}
	h.Define()

	ff, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cup: creating column file: %w", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("cup: column file %s: %w", filename, err)
	}

	put := func(name string, get func(i int) float64) {
		if err != nil {
			return
		}
		d := sparse.ZerosDense(n)
		for i := range d.Elements {
			d.Elements[i] = get(i)
		}
		err = WriteNCF(f, name, d)
	}
	put("temperature", func(i int) float64 { return col.States[i].T })
	put("pressure", func(i int) float64 { return col.States[i].P })
	put("dz", func(i int) float64 { return col.Dz[i] })
	for j, name := range sp.Names {
		j := j
		put(name, func(i int) float64 { return col.States[i].X[j] })
	}
	if err != nil {
		return fmt.Errorf("cup: column file %s: %w", filename, err)
	}
	return nil
}

// WriteFluxes writes the results of the most recent column processed
// by r to a NetCDF file: broadband upward and downward fluxes and the
// heating rate, plus per-band fluxes, band optical properties, and
// radiances where rays are configured.
func WriteFluxes(filename string, r *Radiation) error {
	col := r.Column()
	if col == nil {
		return fmt.Errorf("cup: flux output requested before any column was processed")
	}
	heat, err := r.HeatingRate(nil)
	if err != nil {
		return err
	}

	dims := []string{"level", "layer"}
	lengths := []int{r.NLevels(), r.NLayers()}
	for _, b := range r.Bands {
		if nray := len(b.Radiance()); nray > 0 {
			dims = append(dims, "ray_"+sanitizeName(b.Name()))
			lengths = append(lengths, nray)
		}
	}
	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "data_version", ColumnDataVersion)
	h.AddAttribute("", "column", col.Name)
	addVar := func(name string, varDims []string, desc, units string) {
		h.AddVariable(name, varDims, []float32{0})
		h.AddAttribute(name, "description", desc)
		h.AddAttribute(name, "units", units)
	}
	addVar("z", []string{"level"}, "Level height above the surface", "m")
	addVar("flxup", []string{"level"}, "Broadband upward flux", "W m**-2")
	addVar("flxdn", []string{"level"}, "Broadband downward flux", "W m**-2")
	addVar("heating_rate", []string{"layer"}, "Broadband radiative heating rate", "K s**-1")
	for _, b := range r.Bands {
		bn := sanitizeName(b.Name())
		addVar("flxup_"+bn, []string{"level"}, "Band upward flux", "W m**-2")
		addVar("flxdn_"+bn, []string{"level"}, "Band downward flux", "W m**-2")
		addVar("tau_"+bn, []string{"layer"}, "Band optical depth", "1")
		addVar("ssa_"+bn, []string{"layer"}, "Band single-scattering albedo", "1")
		if len(b.Radiance()) > 0 {
			addVar("radiance_"+bn, []string{"ray_" + bn}, "Top-of-atmosphere radiance", "W m**-2 sr**-1")
		}
	}
	h.Define()

	ff, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cup: creating flux file: %w", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("cup: flux file %s: %w", filename, err)
	}

	put := func(name string, v []float64) {
		if err != nil {
			return
		}
		err = WriteNCF(f, name, denseFromVector(v))
	}
	put("z", col.LevelHeights())
	put("flxup", r.TotalFluxUp(nil))
	put("flxdn", r.TotalFluxDown(nil))
	put("heating_rate", heat)
	for _, b := range r.Bands {
		bn := sanitizeName(b.Name())
		put("flxup_"+bn, b.FluxUp())
		put("flxdn_"+bn, b.FluxDown())
		put("tau_"+bn, b.OpticalDepth().Elements)
		put("ssa_"+bn, b.SingleScatteringAlbedo().Elements)
		if len(b.Radiance()) > 0 {
			put("radiance_"+bn, b.Radiance())
		}
	}
	if err != nil {
		return fmt.Errorf("cup: flux file %s: %w", filename, err)
	}
	return nil
}

// sanitizeName turns a band name into a NetCDF variable name
// fragment.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}
