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

// Package beerlam implements a direct-beam radiative-transfer solver
// that attenuates the collimated beam by Beer-Lambert extinction, with
// no multiple scattering.
package beerlam

import (
	"fmt"
	"math"

	"github.com/chengcli/cup"
)

const solverName = "beerlam"

func init() {
	cup.RegisterSolver(solverName, New)
}

// New creates a direct-beam solver. It is registered under the kind
// "beerlam" and takes no parameters beyond the kind.
func New(cfg cup.SolverConfig) (cup.Solver, error) {
	return new(Solver), nil
}

// A Solver attenuates the collimated beam through the column and
// reflects it off the surface, treating all extinction as absorption:
// the single-scattering albedo and the phase moments of the profile
// are ignored. The downward flux at a level is the beam transmitted
// through the layers above it, and the upward flux is the reflected
// plus emitted surface flux transmitted through the layers below,
// along the same slant path. The solution is exact for a
// non-scattering atmosphere and a useful baseline otherwise.
type Solver struct {
	prof *cup.OpticalProfile

	// ctau[L] is the optical depth between level L and the top of the
	// column, so ctau has one element per level and ctau[nlayer] == 0.
	ctau []float64
}

// Name returns "beerlam".
func (s *Solver) Name() string { return solverName }

// Prepare ingests the optical profile, keeping a reference to it and
// accumulating the per-level optical depths the flux expressions need.
func (s *Solver) Prepare(p *cup.OpticalProfile) error {
	s.prof = nil
	if p.Tau == nil || len(p.Tau.Shape) != 1 {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: "the profile's optical depth must be a one-dimensional layer array"}
	}
	n := p.Tau.Shape[0]
	if n < 1 {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: "the profile has no layers"}
	}
	if p.BeamFlux < 0 {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
			Detail: fmt.Sprintf("beam flux %g W/m2 is negative", p.BeamFlux)}
	}
	if p.BeamFlux > 0 && (p.Mu0 <= 0 || p.Mu0 > 1) {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
			Detail: fmt.Sprintf("beam zenith cosine %g is outside (0,1]", p.Mu0)}
	}
	if p.SurfaceAlbedo < 0 || p.SurfaceAlbedo > 1 {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
			Detail: fmt.Sprintf("surface albedo %g is outside [0,1]", p.SurfaceAlbedo)}
	}
	if cap(s.ctau) < n+1 {
		s.ctau = make([]float64, n+1)
	}
	s.ctau = s.ctau[:n+1]
	s.ctau[n] = 0
	for i := n - 1; i >= 0; i-- {
		t := p.Tau.Elements[i]
		if t < 0 || math.IsNaN(t) {
			return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
				Detail: fmt.Sprintf("optical depth %g in layer %d", t, i)}
		}
		s.ctau[i] = s.ctau[i+1] + t
	}
	s.prof = p
	return nil
}

// Compute writes the fluxes or radiances of the prepared column for
// the levels of rng. The boundary conditions stay at the true column
// boundaries: the beam always enters at the top of the atmosphere and
// reflects off the surface, and rng only selects the levels reported.
func (s *Solver) Compute(out *cup.SolverOutput, rng cup.LayerRange) error {
	if s.prof == nil {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverNotPrepared,
			Detail: "Compute called before Prepare"}
	}
	p := s.prof
	n := p.Tau.Shape[0]
	if err := rng.Check(n); err != nil {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: err.Error()}
	}
	nlev := rng.Len() + 1
	if out.FluxUp != nil && len(out.FluxUp) != nlev {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: fmt.Sprintf("upward-flux view has %d levels but the range needs %d", len(out.FluxUp), nlev)}
	}
	if out.FluxDown != nil && len(out.FluxDown) != nlev {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: fmt.Sprintf("downward-flux view has %d levels but the range needs %d", len(out.FluxDown), nlev)}
	}
	if out.Radiance != nil && len(out.Radiance) != len(p.Rays) {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: fmt.Sprintf("radiance view has %d elements but the profile has %d rays", len(out.Radiance), len(p.Rays))}
	}

	// Upwelling flux leaving the surface [W m**-2], attenuated on the
	// way up along the beam's slant path, or the vertical when there
	// is no beam.
	srf := p.SurfaceAlbedo*s.beamFlux(0) + p.SurfaceEmission
	upMu := p.Mu0
	if p.BeamFlux == 0 {
		upMu = 1
	}

	for lev := rng.Begin; lev <= rng.End; lev++ {
		if out.FluxDown != nil {
			out.FluxDown[lev-rng.Begin] = s.beamFlux(lev)
		}
		if out.FluxUp != nil {
			out.FluxUp[lev-rng.Begin] = srf * math.Exp(-(s.ctau[0]-s.ctau[lev])/upMu)
		}
	}
	if out.Radiance != nil {
		// A Lambertian surface radiates srf/pi into every direction;
		// each ray sees it through the slant path below the top of the
		// range.
		tau := s.ctau[0] - s.ctau[rng.End]
		for i, ray := range p.Rays {
			if ray.Mu <= 0 || ray.Mu > 1 {
				return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
					Detail: fmt.Sprintf("ray %d zenith cosine %g is outside (0,1]", i, ray.Mu)}
			}
			out.Radiance[i] = srf / math.Pi * math.Exp(-tau/ray.Mu)
		}
	}
	return nil
}

// beamFlux returns the downward beam flux through level lev [W m**-2].
func (s *Solver) beamFlux(lev int) float64 {
	p := s.prof
	if p.BeamFlux == 0 {
		return 0
	}
	return p.Mu0 * p.BeamFlux * math.Exp(-s.ctau[lev]/p.Mu0)
}
