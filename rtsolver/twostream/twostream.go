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

// Package twostream implements a hemispheric-mean two-stream
// radiative-transfer solver with a collimated beam source. Each layer
// is reduced to a diffuse reflectance, a diffuse transmittance, and
// two beam source terms, and the coupled layer equations are solved as
// one linear system over the diffuse fluxes at every level.
package twostream

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/chengcli/cup"
)

const solverName = "twostream"

// maxSSA caps the single-scattering albedo below one so the two-stream
// eigenvalue stays positive in conservative layers.
const maxSSA = 1 - 1e-9

func init() {
	cup.RegisterSolver(solverName, New)
}

// New creates a two-stream solver. It is registered under the kind
// "twostream" and takes no parameters beyond the kind.
func New(cfg cup.SolverConfig) (cup.Solver, error) {
	return new(Solver), nil
}

// A Solver computes multiple-scattering fluxes with the
// hemispheric-mean two-stream approximation. Prepare reduces every
// layer of the profile to its diffuse reflectance and transmittance
// plus the diffuse fluxes its scattering of the direct beam injects,
// couples the layers and the surface into one linear system over the
// level fluxes, and solves it; Compute reports the stored solution
// for the requested levels. Radiances are diagnosed from the upward
// flux at the top of the requested range assuming isotropic upwelling,
// so they do not depend on the ray direction.
type Solver struct {
	nlayer int
	nray   int

	fdir []float64 // direct beam flux through each level [W m**-2]
	fdn  []float64 // diffuse downward flux at each level [W m**-2]
	fup  []float64 // upward flux at each level [W m**-2]
}

// Name returns "twostream".
func (s *Solver) Name() string { return solverName }

// Prepare ingests the optical profile of one column and solves the
// two-stream system for it. The profile is not referenced afterwards.
func (s *Solver) Prepare(p *cup.OpticalProfile) error {
	s.nlayer = 0
	if p.Tau == nil || len(p.Tau.Shape) != 1 {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: "the profile's optical depth must be a one-dimensional layer array"}
	}
	n := p.Tau.Shape[0]
	if n < 1 {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: "the profile has no layers"}
	}
	if p.SSA == nil || len(p.SSA.Shape) != 1 || p.SSA.Shape[0] != n {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: "the profile's single-scattering albedo does not match its optical depth"}
	}
	if p.Pmom != nil && (len(p.Pmom.Shape) != 2 || p.Pmom.Shape[0] != n) {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: "the profile's phase moments do not match its optical depth"}
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
	if p.SurfaceEmission < 0 {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
			Detail: fmt.Sprintf("surface emission %g W/m2 is negative", p.SurfaceEmission)}
	}

	// Direct beam flux through every level, from the cumulative
	// optical depth above it.
	fdir := make([]float64, n+1)
	if p.BeamFlux > 0 {
		ctau := 0.
		fdir[n] = p.Mu0 * p.BeamFlux
		for i := n - 1; i >= 0; i-- {
			ctau += p.Tau.Elements[i]
			fdir[i] = p.Mu0 * p.BeamFlux * math.Exp(-ctau/p.Mu0)
		}
	}

	// One pair of interaction equations per layer plus the two
	// boundary conditions, over the unknowns x[2l] (diffuse downward
	// flux at level l) and x[2l+1] (upward flux at level l).
	dim := 2 * (n + 1)
	A := mat.NewDense(dim, dim, nil)
	b := mat.NewVecDense(dim, nil)

	A.Set(0, 0, -p.SurfaceAlbedo)
	A.Set(0, 1, 1)
	b.SetVec(0, p.SurfaceAlbedo*fdir[0]+p.SurfaceEmission)

	for i := 0; i < n; i++ {
		tau := p.Tau.Elements[i]
		if tau < 0 || math.IsNaN(tau) {
			return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
				Detail: fmt.Sprintf("optical depth %g in layer %d", tau, i)}
		}
		w := p.SSA.Elements[i]
		if w < 0 || w > 1 || math.IsNaN(w) {
			return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
				Detail: fmt.Sprintf("single-scattering albedo %g in layer %d", w, i)}
		}
		g := 0.
		if p.Pmom != nil && p.Pmom.Shape[1] > 1 {
			g = p.Pmom.Get(i, 1)
		}
		if g < -1 || g > 1 || math.IsNaN(g) {
			return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
				Detail: fmt.Sprintf("asymmetry parameter %g in layer %d", g, i)}
		}
		refl, trans, sup, sdn := layerOps(tau, math.Min(w, maxSSA), g, p.Mu0, fdir[i+1]/math.Max(p.Mu0, 1e-300))

		r := 2*i + 1
		A.Set(r, 2*i, 1)
		A.Set(r, 2*i+1, -refl)
		A.Set(r, 2*i+2, -trans)
		b.SetVec(r, sdn)

		r = 2*i + 2
		A.Set(r, 2*i+1, -trans)
		A.Set(r, 2*i+2, -refl)
		A.Set(r, 2*i+3, 1)
		b.SetVec(r, sup)
	}

	A.Set(dim-1, dim-2, 1) // no diffuse flux enters the top

	var x mat.VecDense
	if err := x.SolveVec(A, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return &cup.SolverError{Solver: solverName, Code: cup.SolverNonPhysical,
				Detail: fmt.Sprintf("the two-stream system is singular: %v", err)}
		}
	}

	s.fdn = make([]float64, n+1)
	s.fup = make([]float64, n+1)
	for l := 0; l <= n; l++ {
		s.fdn[l] = x.AtVec(2 * l)
		s.fup[l] = x.AtVec(2*l + 1)
	}
	s.fdir = fdir
	s.nray = len(p.Rays)
	s.nlayer = n
	return nil
}

// Compute writes the stored fluxes or radiances for the levels of rng.
// The system was solved over the whole column in Prepare, so rng only
// selects the levels reported.
func (s *Solver) Compute(out *cup.SolverOutput, rng cup.LayerRange) error {
	if s.nlayer == 0 {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverNotPrepared,
			Detail: "Compute called before Prepare"}
	}
	if err := rng.Check(s.nlayer); err != nil {
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
	if out.Radiance != nil && len(out.Radiance) != s.nray {
		return &cup.SolverError{Solver: solverName, Code: cup.SolverBadDimension,
			Detail: fmt.Sprintf("radiance view has %d elements but the profile has %d rays", len(out.Radiance), s.nray)}
	}
	for lev := rng.Begin; lev <= rng.End; lev++ {
		if out.FluxDown != nil {
			out.FluxDown[lev-rng.Begin] = s.fdn[lev] + s.fdir[lev]
		}
		if out.FluxUp != nil {
			out.FluxUp[lev-rng.Begin] = s.fup[lev]
		}
	}
	if out.Radiance != nil {
		rad := s.fup[rng.End] / math.Pi
		for i := range out.Radiance {
			out.Radiance[i] = rad
		}
	}
	return nil
}

// layerOps reduces one layer to its hemispheric-mean two-stream
// operators: the diffuse reflectance refl and transmittance trans, and
// the diffuse fluxes sup and sdn [W m**-2] leaving the layer top and
// bottom from scattering of the direct beam, ftop being the beam flux
// normal to the beam at the layer top.
func layerOps(tau, w, g, mu0, ftop float64) (refl, trans, sup, sdn float64) {
	gam1 := 2 - w*(1+g)
	gam2 := w * (1 - g)
	lam := math.Sqrt(gam1*gam1 - gam2*gam2)
	gam := gam2 / (gam1 + lam)
	u := math.Exp(-lam * tau)

	denom := 1 - gam*gam*u*u
	refl = gam * (1 - u*u) / denom
	trans = u * (1 - gam*gam) / denom

	if w == 0 || ftop == 0 || mu0 <= 0 {
		return refl, trans, 0, 0
	}

	// Particular solution for the beam source, proportional to
	// exp(-tau'/mu0) inside the layer. A beam grazing the two-stream
	// eigenvalue makes it resonant, so nudge the beam off it.
	u0 := 1 / mu0
	for math.Abs(u0*u0-lam*lam) < 1e-6*u0*u0 {
		u0 *= 1 + 1e-3
	}
	gam3 := (2 - 3*g*mu0) / 4
	gam4 := 1 - gam3
	splus := gam3 * w * ftop
	sminus := gam4 * w * ftop
	d := u0*u0 - lam*lam
	etaUp := (-splus*(gam1-u0) - gam2*sminus) / d
	etaDn := (-(gam1+u0)*sminus - gam2*splus) / d

	// Coefficients of the homogeneous solution that zero the incoming
	// diffuse fluxes of the isolated layer.
	emu := math.Exp(-tau * u0)
	det := gam*gam*u*u - 1
	k1 := (etaUp*emu - gam*u*etaDn) / det
	k2 := (etaDn - gam*u*etaUp*emu) / det

	sup = k1*u + k2*gam + etaUp
	sdn = k1*gam + k2*u + etaDn*emu
	return refl, trans, sup, sdn
}
