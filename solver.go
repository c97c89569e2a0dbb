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
	"sort"

	"github.com/ctessum/sparse"
)

// A Ray is one outgoing direction at the top of the atmosphere for
// which a radiance is requested.
type Ray struct {
	Mu  float64 // cosine of the zenith angle, in (0,1]
	Phi float64 // azimuth angle [radians]
}

// An OpticalProfile is the band-aggregated optical state of one column
// handed to a Solver, together with the boundary conditions of the
// run. Layer arrays are ordered bottom-up.
type OpticalProfile struct {
	// Name identifies the column and band in solver errors.
	Name string

	// Tau holds the per-layer optical depth, shape [nlayer].
	Tau *sparse.DenseArray
	// SSA holds the per-layer single-scattering albedo, shape
	// [nlayer].
	SSA *sparse.DenseArray
	// Pmom holds the per-layer phase-function Legendre moments, shape
	// [nlayer, nmom+1] with Pmom[i,0] == 1 for every layer.
	Pmom *sparse.DenseArray

	Mu0             float64 // cosine of the beam zenith angle, in (0,1]
	BeamFlux        float64 // beam flux normal to the beam [W m**-2]
	SurfaceAlbedo   float64 // Lambertian surface reflectance, in [0,1]
	SurfaceEmission float64 // upward flux emitted by the surface [W m**-2]

	// Rays lists the outgoing directions for radiance output.
	Rays []Ray
}

// NLayers returns the number of layers in the profile.
func (p *OpticalProfile) NLayers() int { return p.Tau.Shape[0] }

// A SolverOutput holds the destination views a Solver writes into.
// A nil member means the caller does not want that quantity and the
// solver must leave it alone. The flux slices span the levels of the
// requested layer range plus one; Radiance has one element per
// requested ray.
type SolverOutput struct {
	FluxUp   []float64 // upward flux per level [W m**-2]
	FluxDown []float64 // downward flux per level [W m**-2]
	Radiance []float64 // top-of-range radiance per ray [W m**-2 sr**-1]
}

// A Solver turns the optical profile of one column into fluxes and
// radiances. Implementations are used in two phases: Prepare ingests
// the profile, and Compute writes results for a layer range into the
// caller's output views. A Solver instance carries prepared state and
// must not be shared between goroutines; RadiationBand creates one
// instance per band.
type Solver interface {
	// Name identifies the solver in logs and errors.
	Name() string

	// Prepare ingests the optical profile of one column. It must be
	// called before Compute and may be called again to move the
	// solver to a new column.
	Prepare(p *OpticalProfile) error

	// Compute solves over the layer range rng of the prepared profile
	// and writes the requested quantities into out. Flux views span
	// levels rng.Begin..rng.End inclusive, so their length is
	// rng.Len()+1.
	Compute(out *SolverOutput, rng LayerRange) error
}

// A SolverErrorCode classifies solver failures.
type SolverErrorCode int

const (
	// SolverBadDimension means an output view or the layer range does
	// not match the prepared profile.
	SolverBadDimension SolverErrorCode = iota
	// SolverNonPhysical means the profile holds values the solver
	// cannot handle, such as a negative optical depth.
	SolverNonPhysical
	// SolverNotPrepared means Compute was called before Prepare.
	SolverNotPrepared
)

func (c SolverErrorCode) String() string {
	switch c {
	case SolverBadDimension:
		return "bad dimension"
	case SolverNonPhysical:
		return "non-physical input"
	case SolverNotPrepared:
		return "not prepared"
	}
	return fmt.Sprintf("SolverErrorCode(%d)", int(c))
}

// A SolverError reports a failure inside a Solver. Callers can
// recover the failure class with errors.As.
type SolverError struct {
	Solver string // the solver's Name
	Code   SolverErrorCode
	Detail string
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("cup: solver %s: %s: %s", e.Solver, e.Code, e.Detail)
}

// A SolverFactory creates a Solver from its configuration.
type SolverFactory func(cfg SolverConfig) (Solver, error)

var solverFactories = make(map[string]SolverFactory)

// RegisterSolver makes a solver kind available to NewSolver. It is
// meant to be called from the init functions of solver adapter
// packages and panics on a duplicate kind.
func RegisterSolver(kind string, f SolverFactory) {
	if _, ok := solverFactories[kind]; ok {
		panic(fmt.Sprintf("cup: solver kind %q is already registered", kind))
	}
	solverFactories[kind] = f
}

// NewSolver creates a solver of the configured kind using the
// registered factory.
func NewSolver(cfg SolverConfig) (Solver, error) {
	f, ok := solverFactories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("cup: unknown solver kind %q; the registered kinds are %v",
			cfg.Kind, registeredSolvers())
	}
	s, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("cup: creating %q solver: %w", cfg.Kind, err)
	}
	return s, nil
}

func registeredSolvers() []string {
	kinds := make([]string, 0, len(solverFactories))
	for k := range solverFactories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
