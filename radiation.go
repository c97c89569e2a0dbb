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

	"gonum.org/v1/gonum/floats"
)

// Radiation is the top-level container of a run: it owns the radiation
// bands and the contiguous storage their flux and radiance outputs
// live in. Each band writes to its own slice of that storage, so after
// the per-band calls complete the container can form broadband totals
// without copying.
//
// A Radiation processes one column at a time and must not be used from
// more than one goroutine; Clone creates independent workers that
// share the immutable absorber tables.
type Radiation struct {
	// Bands are the radiation bands in configuration order.
	Bands []*RadiationBand
	// Species is the constituent table shared by all columns of the
	// run.
	Species *Species

	cfg    RadiationConfig
	nlayer int
	nlevel int

	// flxup and flxdn are the shared output arenas, nlevel values per
	// band; toa holds the radiance outputs of all bands back to back.
	flxup []float64
	flxdn []float64
	toa   []float64

	// column is the column most recently processed.
	column *Column
}

// NewRadiation creates a Radiation run from its configuration,
// validating the configuration, loading every absorber, and allocating
// the shared output storage once.
func NewRadiation(cfg RadiationConfig) (*Radiation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sp, err := cfg.speciesTable()
	if err != nil {
		return nil, err
	}
	r := &Radiation{
		Bands:   make([]*RadiationBand, len(cfg.Bands)),
		Species: sp,
		cfg:     cfg,
		nlayer:  cfg.NumLayers,
		nlevel:  cfg.NumLayers + 1,
	}
	for i, bcfg := range cfg.Bands {
		if r.Bands[i], err = NewRadiationBand(bcfg, sp, r.nlayer); err != nil {
			return nil, err
		}
	}
	r.attachArenas()
	return r, nil
}

// attachArenas allocates the shared output storage and hands each band
// its views.
func (r *Radiation) attachArenas() {
	nray := 0
	for _, b := range r.Bands {
		nray += len(b.prof.Rays)
	}
	r.flxup = make([]float64, len(r.Bands)*r.nlevel)
	r.flxdn = make([]float64, len(r.Bands)*r.nlevel)
	r.toa = make([]float64, nray)
	off := 0
	for i, b := range r.Bands {
		lo, hi := i*r.nlevel, (i+1)*r.nlevel
		b.attachBuffers(r.flxup[lo:hi], r.flxdn[lo:hi], r.toa[off:off+len(b.prof.Rays)])
		off += len(b.prof.Rays)
	}
}

// Clone creates an independent Radiation for use on another goroutine.
// The clone shares the species table, the spectral grids, and the
// absorbers (including their immutable lookup tables) but has its own
// solvers, working arrays, and output storage.
func (r *Radiation) Clone() (*Radiation, error) {
	c := &Radiation{
		Bands:   make([]*RadiationBand, len(r.Bands)),
		Species: r.Species,
		cfg:     r.cfg,
		nlayer:  r.nlayer,
		nlevel:  r.nlevel,
	}
	var err error
	for i, b := range r.Bands {
		if c.Bands[i], err = b.clone(); err != nil {
			return nil, err
		}
	}
	c.attachArenas()
	return c, nil
}

// NLayers returns the number of layers every column of the run must
// have.
func (r *Radiation) NLayers() int { return r.nlayer }

// NLevels returns NLayers()+1.
func (r *Radiation) NLevels() int { return r.nlevel }

// Band returns the band with the given name, or nil if there is none.
func (r *Radiation) Band(name string) *RadiationBand {
	for _, b := range r.Bands {
		if b.cfg.Name == name {
			return b
		}
	}
	return nil
}

// setColumn validates col against the run configuration and records it
// as the current column.
func (r *Radiation) setColumn(col *Column) error {
	if err := col.Check(r.Species); err != nil {
		return err
	}
	if col.NLayers() != r.nlayer {
		return fmt.Errorf("cup: column %q has %d layers but the run is configured for %d",
			col.Name, col.NLayers(), r.nlayer)
	}
	r.column = col
	return nil
}

// CalFlux computes the upward and downward fluxes of every band for
// col over the layer range rng, visiting the bands in configuration
// order. Each band recomputes its spectral properties for the column
// and then solves; the first failure stops the loop, leaving the
// failed band's view zeroed and later bands' views untouched.
func (r *Radiation) CalFlux(col *Column, rng LayerRange) error {
	if err := r.setColumn(col); err != nil {
		return err
	}
	for _, b := range r.Bands {
		if err := b.SetSpectralProperties(col); err != nil {
			return err
		}
		if err := b.CalBandFlux(rng); err != nil {
			return err
		}
	}
	return nil
}

// CalRadiance computes the top-of-atmosphere radiances of col for
// every band that has rays configured, visiting the bands in
// configuration order.
func (r *Radiation) CalRadiance(col *Column) error {
	if err := r.setColumn(col); err != nil {
		return err
	}
	rng := FullColumn(r.nlayer)
	for _, b := range r.Bands {
		if len(b.btoa) == 0 {
			continue
		}
		if err := b.SetSpectralProperties(col); err != nil {
			return err
		}
		if err := b.CalBandRadiance(rng); err != nil {
			return err
		}
	}
	return nil
}

// Run processes one column end to end: spectral properties, fluxes
// over the full column, and radiances for every band that requests
// them. The properties of each band are computed once and reused for
// both solves.
func (r *Radiation) Run(col *Column) error {
	if err := r.setColumn(col); err != nil {
		return err
	}
	rng := FullColumn(r.nlayer)
	for _, b := range r.Bands {
		if err := b.SetSpectralProperties(col); err != nil {
			return err
		}
		if err := b.CalBandFlux(rng); err != nil {
			return err
		}
		if len(b.btoa) == 0 {
			continue
		}
		if err := b.CalBandRadiance(rng); err != nil {
			return err
		}
	}
	return nil
}

// TotalFluxUp sums the upward fluxes of all bands into dst, one value
// per level. dst is allocated if nil and must otherwise have length
// NLevels.
func (r *Radiation) TotalFluxUp(dst []float64) []float64 {
	return r.total(dst, r.flxup)
}

// TotalFluxDown sums the downward fluxes of all bands into dst, one
// value per level. dst is allocated if nil and must otherwise have
// length NLevels.
func (r *Radiation) TotalFluxDown(dst []float64) []float64 {
	return r.total(dst, r.flxdn)
}

func (r *Radiation) total(dst, arena []float64) []float64 {
	if dst == nil {
		dst = make([]float64, r.nlevel)
	}
	zero(dst)
	for i := range r.Bands {
		floats.Add(dst, arena[i*r.nlevel:(i+1)*r.nlevel])
	}
	return dst
}

// HeatingRate computes the broadband radiative heating rate of every
// layer [K s**-1] from the net flux divergence across its boundaries
// and the layer's density and specific heat. dst is allocated if nil
// and must otherwise have length NLayers. CalFlux must have run for
// the current column first.
func (r *Radiation) HeatingRate(dst []float64) ([]float64, error) {
	if r.column == nil {
		return nil, fmt.Errorf("cup: heating rate requested before any column was processed")
	}
	if dst == nil {
		dst = make([]float64, r.nlayer)
	}
	up := r.TotalFluxUp(nil)
	dn := r.TotalFluxDown(nil)
	for i := 0; i < r.nlayer; i++ {
		rho := r.column.States[i].Density(r.Species)
		if rho <= 0 {
			return nil, fmt.Errorf("cup: column %q layer %d has non-positive density %g kg/m3",
				r.column.Name, i, rho)
		}
		net0 := dn[i] - up[i]     // downward-positive net flux at the layer bottom
		net1 := dn[i+1] - up[i+1] // and at the layer top
		dst[i] = (net1 - net0) / (rho * r.cfg.SpecificHeat * r.column.Dz[i])
	}
	return dst, nil
}

// Column returns the column most recently processed, or nil.
func (r *Radiation) Column() *Column { return r.column }

// Config returns a copy of the validated run configuration.
func (r *Radiation) Config() RadiationConfig { return r.cfg }
