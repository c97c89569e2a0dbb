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

// Package hgcloud implements a parametric cloud or aerosol absorber: a
// constant mass extinction coefficient applied to one condensate
// species with a Henyey-Greenstein phase function. It registers itself
// with the absorber registry as kind "hgcloud".
package hgcloud

import (
	"fmt"
	"math"

	"github.com/chengcli/cup"
)

func init() {
	cup.RegisterAbsorber("hgcloud", New)
}

// A Cloud is one parametric condensate absorber.
type Cloud struct {
	name    string
	species int
	sp      *cup.Species

	kappa float64 // mass extinction coefficient [m**2 kg**-1]
	ssa   float64 // single-scattering albedo
	asym  float64 // Henyey-Greenstein asymmetry parameter
}

// New creates a Cloud from its configuration. The configuration must
// name exactly one condensate species and the parameters kappa
// [m**2/kg], ssa, and asymmetry.
func New(cfg cup.AbsorberConfig, sp *cup.Species, _ *cup.SpectralGrid) (cup.Absorber, error) {
	if len(cfg.Species) != 1 {
		return nil, fmt.Errorf("hgcloud: %d species are configured but exactly one is required", len(cfg.Species))
	}
	idx, err := sp.Index(cfg.Species[0])
	if err != nil {
		return nil, err
	}
	kappa, ok := cfg.Params["kappa"]
	if !ok || kappa < 0 {
		return nil, fmt.Errorf("hgcloud: parameter kappa is %g m2/kg but must be configured and non-negative", kappa)
	}
	ssa := cfg.Params["ssa"]
	if ssa < 0 || ssa > 1 {
		return nil, fmt.Errorf("hgcloud: parameter ssa is %g but must be in [0,1]", ssa)
	}
	asym := cfg.Params["asymmetry"]
	if math.Abs(asym) >= 1 {
		return nil, fmt.Errorf("hgcloud: parameter asymmetry is %g but must be in (-1,1)", asym)
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Species[0]
	}
	return &Cloud{name: name, species: idx, sp: sp, kappa: kappa, ssa: ssa, asym: asym}, nil
}

// Name returns the configured absorber name.
func (c *Cloud) Name() string { return c.name }

// Attenuation returns the extinction coefficient [m**-1]: the mass
// extinction coefficient times the condensate mass density, which is
// the mixing ratio times the layer air density.
func (c *Cloud) Attenuation(_ cup.SpectralBin, s *cup.AtmosphericState) float64 {
	return c.kappa * s.MassMixingRatio(c.sp, c.species) * s.Density(c.sp)
}

// SingleScatteringAlbedo returns the configured albedo.
func (c *Cloud) SingleScatteringAlbedo(cup.SpectralBin, *cup.AtmosphericState) float64 {
	return c.ssa
}

// PhaseMoments fills pm with the Henyey-Greenstein moments g**l.
func (c *Cloud) PhaseMoments(pm []float64, _ cup.SpectralBin, _ *cup.AtmosphericState) {
	m := 1.
	for l := range pm {
		pm[l] = m
		m *= c.asym
	}
}
