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

// Package cia implements collision-induced absorption between a pair
// of gases. The binary absorption coefficient is interpolated from a
// NetCDF table over wavenumber and temperature and scaled by the
// product of the two collision partners' densities in amagats. It
// registers itself with the absorber registry as kind "cia".
//
// The table file must carry dimensions and coordinate variables
// wavenumber [cm**-1] and temperature [K] and the payload
// kcia(wavenumber,temperature) [cm**-1 amagat**-2].
package cia

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"

	"github.com/chengcli/cup"
)

// loschmidt is the reference number density of one amagat [m**-3].
const loschmidt = 2.6867811e25

func init() {
	cup.RegisterAbsorber("cia", New)
}

// A Pair is the collision-induced absorption of one gas pair. It is a
// pure absorber: the single-scattering albedo is zero and the phase
// function isotropic.
type Pair struct {
	cup.ZeroAbsorber

	name   string
	i1, i2 int
	sp     *cup.Species
	table  *cup.Table
}

// New creates a Pair from its configuration. The configuration must
// name exactly two species (the same name twice for self-induced
// absorption) and a table file covering the band's spectral grid.
func New(cfg cup.AbsorberConfig, sp *cup.Species, grid *cup.SpectralGrid) (cup.Absorber, error) {
	if len(cfg.Species) != 2 {
		return nil, fmt.Errorf("cia: %d species are configured but a collision pair is required", len(cfg.Species))
	}
	i1, err := sp.Index(cfg.Species[0])
	if err != nil {
		return nil, err
	}
	i2, err := sp.Index(cfg.Species[1])
	if err != nil {
		return nil, err
	}
	if cfg.DataFile == "" {
		return nil, fmt.Errorf("cia: no table file is configured for pair %s-%s", cfg.Species[0], cfg.Species[1])
	}
	table, err := loadTable(cfg.DataFile)
	if err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Species[0] + "-" + cfg.Species[1]
	}
	midt := table.Axes[1].Coords[len(table.Axes[1].Coords)/2]
	for _, bin := range grid.Bins {
		if _, err := table.ValueChecked(bin.Center, midt); err != nil {
			return nil, fmt.Errorf("cia: spectral bin at %g cm-1 is outside table %s: %w",
				bin.Center, cfg.DataFile, err)
		}
	}
	return &Pair{name: name, i1: i1, i2: i2, sp: sp, table: table}, nil
}

func loadTable(filename string) (*cup.Table, error) {
	ff, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cia: opening table: %w", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("cia: table %s: %w", filename, err)
	}
	wave, err := cup.ReadNCFVector(f, "wavenumber")
	if err != nil {
		return nil, fmt.Errorf("cia: table %s: %w", filename, err)
	}
	temp, err := cup.ReadNCFVector(f, "temperature")
	if err != nil {
		return nil, fmt.Errorf("cia: table %s: %w", filename, err)
	}
	kcia, err := cup.ReadNCF(f, "kcia")
	if err != nil {
		return nil, fmt.Errorf("cia: table %s: %w", filename, err)
	}
	for i, v := range kcia.Elements {
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("cia: table %s: kcia element %d is %g; absorption must not be negative",
				filename, i, v)
		}
	}
	table, err := cup.NewTable("kcia", []cup.Axis{
		{Name: "wavenumber", Coords: wave},
		{Name: "temperature", Coords: temp},
	}, kcia)
	if err != nil {
		return nil, fmt.Errorf("cia: table %s: %w", filename, err)
	}
	return table, nil
}

// Name returns the configured absorber name.
func (p *Pair) Name() string { return p.name }

// Attenuation returns the collision-induced absorption coefficient
// [m**-1]: the tabulated binary coefficient [cm**-1 amagat**-2] scaled
// by the partner densities in amagats and converted to per-meter.
func (p *Pair) Attenuation(bin cup.SpectralBin, s *cup.AtmosphericState) float64 {
	amg1 := s.NumberDensity(p.sp, p.i1) / loschmidt
	amg2 := s.NumberDensity(p.sp, p.i2) / loschmidt
	return p.table.Value(bin.Center, s.T) * amg1 * amg2 * 100
}

// Table returns the absorber's lookup table, whose clamp counter
// diagnoses lookups outside the tabulated domain.
func (p *Pair) Table() *cup.Table { return p.table }
