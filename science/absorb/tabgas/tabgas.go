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

// Package tabgas implements a table-driven gas absorber: molecular
// extinction cross-sections, single-scattering albedos, and phase
// moments interpolated from a precomputed NetCDF opacity table and
// scaled by the gas number density. It registers itself with the
// absorber registry as kind "tabgas".
package tabgas

import (
	"fmt"

	"github.com/chengcli/cup"
)

func init() {
	cup.RegisterAbsorber("tabgas", New)
}

// A Gas is one table-driven gas absorber.
type Gas struct {
	name    string
	species int
	sp      *cup.Species
	table   *cup.OpacityTable
}

// New creates a Gas from its configuration. The configuration must
// name exactly one species and an opacity table file; the table's
// wavenumber domain must cover the band's spectral grid.
func New(cfg cup.AbsorberConfig, sp *cup.Species, grid *cup.SpectralGrid) (cup.Absorber, error) {
	if len(cfg.Species) != 1 {
		return nil, fmt.Errorf("tabgas: %d species are configured but exactly one is required", len(cfg.Species))
	}
	idx, err := sp.Index(cfg.Species[0])
	if err != nil {
		return nil, err
	}
	if cfg.DataFile == "" {
		return nil, fmt.Errorf("tabgas: no opacity table file is configured for species %s", cfg.Species[0])
	}
	table, err := cup.LoadOpacityTable(cfg.DataFile)
	if err != nil {
		return nil, err
	}
	if table.Species != "" && table.Species != cfg.Species[0] {
		return nil, fmt.Errorf("tabgas: opacity table %s is for species %q but species %q is configured",
			cfg.DataFile, table.Species, cfg.Species[0])
	}
	if err := table.CheckCoverage(grid); err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Species[0]
	}
	return &Gas{name: name, species: idx, sp: sp, table: table}, nil
}

// Name returns the configured absorber name.
func (g *Gas) Name() string { return g.name }

// Attenuation returns the extinction cross-section interpolated at the
// bin coordinate and layer state, scaled by the gas number density
// [m**-1].
func (g *Gas) Attenuation(bin cup.SpectralBin, s *cup.AtmosphericState) float64 {
	return g.table.CrossSection(bin.Center, s.P, s.T) * s.NumberDensity(g.sp, g.species)
}

// SingleScatteringAlbedo returns the interpolated single-scattering
// albedo.
func (g *Gas) SingleScatteringAlbedo(bin cup.SpectralBin, s *cup.AtmosphericState) float64 {
	return g.table.SingleScatteringAlbedo(bin.Center, s.P, s.T)
}

// PhaseMoments fills pm with the interpolated phase moments; orders
// beyond the table's highest are zero.
func (g *Gas) PhaseMoments(pm []float64, bin cup.SpectralBin, s *cup.AtmosphericState) {
	g.table.PhaseMoments(pm, bin.Center, s.P, s.T)
}

// Table returns the absorber's opacity table, whose clamp counter
// diagnoses lookups outside the tabulated domain.
func (g *Gas) Table() *cup.OpacityTable { return g.table }
