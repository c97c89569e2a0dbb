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

// Opacity table formats, stored in the global "format" attribute of a
// table file.
const (
	// FormatXsecSplit means the file holds separate absorption and
	// scattering cross-sections (variables kabs and kscat).
	FormatXsecSplit = "xsec-split"
	// FormatXsecTotal means the file holds the total extinction
	// cross-section and the single-scattering albedo (variables ktot
	// and ssalb).
	FormatXsecTotal = "xsec-total"
)

// An OpacityTable holds the lookup tables of one table-driven gas
// absorber, normalized from either file format into a total extinction
// cross-section plus a single-scattering albedo. The interpolation
// axes are wavenumber [cm**-1], log-pressure [ln Pa], and the
// temperature deviation [K] from the pressure-dependent reference
// profile. An OpacityTable is immutable after loading and safe for
// concurrent use.
type OpacityTable struct {
	// Species is the species name recorded in the file, if any.
	Species string
	// Format is the file format the table was normalized from.
	Format string

	// Ext is the total extinction cross-section [m**2 per molecule].
	Ext *Table
	// SSA is the single-scattering albedo, or nil for a pure
	// absorber.
	SSA *Table
	// Moments holds one table per Legendre order starting at order 1;
	// order zero is identically one and is validated away at load
	// time. Empty means the isotropic phase function.
	Moments []*Table
	// TRef is the reference temperature [K] as a function of
	// log-pressure; the tempdiff axis of the other tables is measured
	// from it.
	TRef *Table
}

// LoadOpacityTable reads a gas opacity table from a NetCDF file.
//
// The file must carry dimensions and coordinate variables wavenumber
// [cm**-1], pressure [Pa], and tempdiff [K], a reference-temperature
// variable temp_ref(pressure) [K], and a global "format" attribute
// selecting the payload layout: FormatXsecSplit files hold
// kabs(wavenumber,pressure,tempdiff) and kscat(...) [m**2 per
// molecule], FormatXsecTotal files hold ktot(...) [m**2 per molecule]
// and ssalb(...). Either layout may add
// pmom(wavenumber,pressure,tempdiff,moment) with the Legendre moments
// of the phase function starting at order zero.
func LoadOpacityTable(filename string) (*OpacityTable, error) {
	ff, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cup: opening opacity table: %w", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
	}
	o := new(OpacityTable)
	o.Species, _ = NCFAttrString(f, "", "species")
	o.Format, _ = NCFAttrString(f, "", "format")

	wave, err := ReadNCFVector(f, "wavenumber")
	if err != nil {
		return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
	}
	press, err := ReadNCFVector(f, "pressure")
	if err != nil {
		return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
	}
	tempdiff, err := ReadNCFVector(f, "tempdiff")
	if err != nil {
		return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
	}
	tref, err := ReadNCFVector(f, "temp_ref")
	if err != nil {
		return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
	}
	if len(tref) != len(press) {
		return nil, fmt.Errorf("cup: opacity table %s: temp_ref has %d values but the pressure axis has %d",
			filename, len(tref), len(press))
	}
	logp := make([]float64, len(press))
	for i, p := range press {
		if p <= 0 {
			return nil, fmt.Errorf("cup: opacity table %s: pressure coordinate %d is %g Pa; pressures must be positive",
				filename, i, p)
		}
		logp[i] = math.Log(p)
	}
	axes := []Axis{
		{Name: "wavenumber", Coords: wave},
		{Name: "log-pressure", Coords: logp},
		{Name: "tempdiff", Coords: tempdiff},
	}
	if o.TRef, err = NewTable("temp_ref", []Axis{{Name: "log-pressure", Coords: logp}},
		denseFromVector(tref)); err != nil {
		return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
	}

	switch o.Format {
	case FormatXsecSplit:
		kabs, err := readPayload(f, filename, "kabs", axes)
		if err != nil {
			return nil, err
		}
		kscat, err := readPayload(f, filename, "kscat", axes)
		if err != nil {
			return nil, err
		}
		ext := kabs.Copy()
		ext.AddDense(kscat)
		ssa := sparse.ZerosDense(ext.Shape...)
		for i, e := range ext.Elements {
			if e > 0 {
				ssa.Elements[i] = kscat.Elements[i] / e
			}
		}
		if o.Ext, err = NewTable("extinction", axes, ext); err != nil {
			return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
		}
		if o.SSA, err = NewTable("ssa", axes, ssa); err != nil {
			return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
		}
	case FormatXsecTotal:
		ktot, err := readPayload(f, filename, "ktot", axes)
		if err != nil {
			return nil, err
		}
		ssalb, err := readPayload(f, filename, "ssalb", axes)
		if err != nil {
			return nil, err
		}
		for i, w := range ssalb.Elements {
			if w < 0 || w > 1 {
				return nil, fmt.Errorf("cup: opacity table %s: ssalb element %d is %g; albedos must be in [0,1]",
					filename, i, w)
			}
		}
		if o.Ext, err = NewTable("extinction", axes, ktot); err != nil {
			return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
		}
		if o.SSA, err = NewTable("ssa", axes, ssalb); err != nil {
			return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
		}
	case "":
		return nil, fmt.Errorf("cup: opacity table %s has no global format attribute; valid formats are %q and %q",
			filename, FormatXsecSplit, FormatXsecTotal)
	default:
		return nil, fmt.Errorf("cup: opacity table %s has unknown format %q; valid formats are %q and %q",
			filename, o.Format, FormatXsecSplit, FormatXsecTotal)
	}

	if err := o.loadMoments(f, filename, axes); err != nil {
		return nil, err
	}
	return o, nil
}

// readPayload reads one cross-section variable and checks it against
// the interpolation axes.
func readPayload(f *cdf.File, filename, name string, axes []Axis) (*sparse.DenseArray, error) {
	data, err := ReadNCF(f, name)
	if err != nil {
		return nil, fmt.Errorf("cup: opacity table %s: %w", filename, err)
	}
	if len(data.Shape) != len(axes) {
		return nil, fmt.Errorf("cup: opacity table %s: variable %s has %d dimensions but %d axes are expected",
			filename, name, len(data.Shape), len(axes))
	}
	for d, ax := range axes {
		if data.Shape[d] != len(ax.Coords) {
			return nil, fmt.Errorf("cup: opacity table %s: variable %s dimension %d has length %d but axis %s has %d coordinates",
				filename, name, d, data.Shape[d], ax.Name, len(ax.Coords))
		}
	}
	for i, v := range data.Elements {
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("cup: opacity table %s: variable %s element %d is %g; cross-sections must not be negative",
				filename, name, i, v)
		}
	}
	return data, nil
}

// loadMoments reads the optional pmom variable, validates the zeroth
// moments, and splits the higher orders into per-order tables.
func (o *OpacityTable) loadMoments(f *cdf.File, filename string, axes []Axis) error {
	if len(f.Header.Lengths("pmom")) == 0 {
		return nil
	}
	pm, err := ReadNCF(f, "pmom")
	if err != nil {
		return fmt.Errorf("cup: opacity table %s: %w", filename, err)
	}
	if len(pm.Shape) != 4 {
		return fmt.Errorf("cup: opacity table %s: pmom has %d dimensions but must have 4", filename, len(pm.Shape))
	}
	for d, ax := range axes {
		if pm.Shape[d] != len(ax.Coords) {
			return fmt.Errorf("cup: opacity table %s: pmom dimension %d has length %d but axis %s has %d coordinates",
				filename, d, pm.Shape[d], ax.Name, len(ax.Coords))
		}
	}
	nmom1 := pm.Shape[3]
	npoint := len(pm.Elements) / nmom1
	for i := 0; i < npoint; i++ {
		if p0 := pm.Elements[i*nmom1]; math.Abs(p0-1) > 1e-6 {
			return fmt.Errorf("cup: opacity table %s: pmom entry %d has zeroth moment %g; it must be 1",
				filename, i, p0)
		}
	}
	o.Moments = make([]*Table, nmom1-1)
	for l := 1; l < nmom1; l++ {
		data := sparse.ZerosDense(pm.Shape[0], pm.Shape[1], pm.Shape[2])
		for i := 0; i < npoint; i++ {
			data.Elements[i] = pm.Elements[i*nmom1+l]
		}
		if o.Moments[l-1], err = NewTable(fmt.Sprintf("pmom%d", l), axes, data); err != nil {
			return fmt.Errorf("cup: opacity table %s: %w", filename, err)
		}
	}
	return nil
}

// CrossSection interpolates the total extinction cross-section [m**2
// per molecule] at wavenumber wave [cm**-1], pressure p [Pa], and
// temperature t [K]. Out-of-domain coordinates clamp to the table
// edges.
func (o *OpacityTable) CrossSection(wave, p, t float64) float64 {
	lp := math.Log(p)
	return o.Ext.Value(wave, lp, t-o.TRef.Value(lp))
}

// SingleScatteringAlbedo interpolates the single-scattering albedo at
// the same coordinates as CrossSection, or returns 0 when the table
// has no scattering payload.
func (o *OpacityTable) SingleScatteringAlbedo(wave, p, t float64) float64 {
	if o.SSA == nil {
		return 0
	}
	lp := math.Log(p)
	return o.SSA.Value(wave, lp, t-o.TRef.Value(lp))
}

// PhaseMoments fills pm with Legendre moments at the given
// coordinates: pm[0] is one, orders beyond the table's highest are
// zero.
func (o *OpacityTable) PhaseMoments(pm []float64, wave, p, t float64) {
	IdentityMoments(pm)
	if len(o.Moments) == 0 {
		return
	}
	lp := math.Log(p)
	dt := t - o.TRef.Value(lp)
	for l := 1; l < len(pm) && l <= len(o.Moments); l++ {
		pm[l] = o.Moments[l-1].Value(wave, lp, dt)
	}
}

// CheckCoverage verifies that every bin evaluation coordinate of grid
// falls inside the table's wavenumber domain, probing with checked
// lookups at the middle of the pressure and temperature axes.
func (o *OpacityTable) CheckCoverage(grid *SpectralGrid) error {
	lp := o.Ext.Axes[1]
	dt := o.Ext.Axes[2]
	midp := lp.Coords[len(lp.Coords)/2]
	midt := dt.Coords[len(dt.Coords)/2]
	for _, bin := range grid.Bins {
		if _, err := o.Ext.ValueChecked(bin.Center, midp, midt); err != nil {
			return fmt.Errorf("cup: spectral bin at %g cm-1 is outside the opacity table: %w", bin.Center, err)
		}
	}
	return nil
}

func denseFromVector(v []float64) *sparse.DenseArray {
	d := sparse.ZerosDense(len(v))
	copy(d.Elements, v)
	return d
}

// ReadNCF reads the whole variable varName from a NetCDF file into a
// dense array, converting from the variable's on-disk type.
func ReadNCF(f *cdf.File, varName string) (*sparse.DenseArray, error) {
	dims := f.Header.Lengths(varName)
	if len(dims) == 0 {
		return nil, fmt.Errorf("cup: reading netcdf: variable %s not in file", varName)
	}
	data := sparse.ZerosDense(dims...)
	r := f.Reader(varName, nil, nil)
	buf := r.Zero(len(data.Elements))
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("cup: reading netcdf variable %s: %w", varName, err)
	}
	switch b := buf.(type) {
	case []float32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []float64:
		copy(data.Elements, b)
	case []int32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("cup: reading netcdf variable %s: unsupported type %T", varName, buf)
	}
	return data, nil
}

// ReadNCFVector reads a rank-1 variable.
func ReadNCFVector(f *cdf.File, varName string) ([]float64, error) {
	d, err := ReadNCF(f, varName)
	if err != nil {
		return nil, err
	}
	if len(d.Shape) != 1 {
		return nil, fmt.Errorf("cup: reading netcdf: variable %s has %d dimensions but must have 1",
			varName, len(d.Shape))
	}
	return d.Elements, nil
}

// NCFAttrString returns the string attribute attr of variable varName
// ("" for a global attribute) and whether it was present.
func NCFAttrString(f *cdf.File, varName, attr string) (string, bool) {
	switch v := f.Header.GetAttribute(varName, attr).(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

// WriteNCF writes a dense array into the NetCDF variable varName,
// which must have been declared with matching dimensions. The data are
// stored as 32-bit floats.
func WriteNCF(f *cdf.File, varName string, data *sparse.DenseArray) error {
	end := f.Header.Lengths(varName)
	if len(end) == 0 {
		return fmt.Errorf("cup: writing netcdf: variable %s not in file", varName)
	}
	n := 1
	for _, d := range end {
		n *= d
	}
	if n != len(data.Elements) {
		return fmt.Errorf("cup: writing netcdf variable %s: file dimensions %v do not match data shape %v",
			varName, end, data.Shape)
	}
	data32 := make([]float32, len(data.Elements))
	for i, v := range data.Elements {
		data32[i] = float32(v)
	}
	start := make([]int, len(end))
	w := f.Writer(varName, start, end)
	if _, err := w.Write(data32); err != nil {
		return fmt.Errorf("cup: writing netcdf variable %s: %w", varName, err)
	}
	return nil
}
