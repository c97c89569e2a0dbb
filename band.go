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

	"github.com/ctessum/sparse"
)

// A RadiationBand covers one spectral band: it owns the band's
// spectral grid, absorbers, and solver, computes the per-bin optical
// properties of a column, aggregates them into band properties, and
// drives the solver to fill the band's slice of the shared output
// buffers. A band holds per-column state and must not be used from
// more than one goroutine; use Radiation.Clone for column parallelism.
type RadiationBand struct {
	// Grid is the spectral grid of the band.
	Grid *SpectralGrid
	// Absorbers are the optically active constituents of the band.
	// They are shared between clones and safe for concurrent use.
	Absorbers []Absorber
	// Solver computes fluxes and radiances from the band-aggregated
	// optical properties.
	Solver Solver

	cfg    BandConfig
	nlayer int
	nmom   int // highest retained Legendre order

	// Per-bin optical properties of the current column.
	tau  *sparse.DenseArray // [nbin, nlayer] optical depth
	ssa  *sparse.DenseArray // [nbin, nlayer] single-scattering albedo
	pmom *sparse.DenseArray // [nbin, nlayer, nmom+1] phase moments

	// Band aggregates of the current column.
	btau  *sparse.DenseArray // [nlayer]
	bssa  *sparse.DenseArray // [nlayer]
	bpmom *sparse.DenseArray // [nlayer, nmom+1]

	// Views into the Radiation container's shared output arenas.
	bflxup []float64 // [nlevel] upward flux [W m**-2]
	bflxdn []float64 // [nlevel] downward flux [W m**-2]
	btoa   []float64 // [len(cfg.Rays)] radiance [W m**-2 sr**-1]

	prof        OpticalProfile
	pmbuf       []float64
	needPrepare bool
}

// NewRadiationBand creates one band from its configuration. sp is the
// species table of the run and nlayer the number of layers every
// column will have. The returned band has no output buffers attached;
// bands are normally created through NewRadiation, which attaches
// slices of its shared arenas.
func NewRadiationBand(cfg BandConfig, sp *Species, nlayer int) (*RadiationBand, error) {
	grid, err := newGrid(&cfg)
	if err != nil {
		return nil, err
	}
	absorbers := make([]Absorber, len(cfg.Absorbers))
	for i, acfg := range cfg.Absorbers {
		if absorbers[i], err = NewAbsorber(acfg, sp, grid); err != nil {
			return nil, fmt.Errorf("cup: band %q: %w", cfg.Name, err)
		}
	}
	return newRadiationBand(cfg, grid, absorbers, nlayer)
}

// newRadiationBand finishes construction from an already-built grid
// and absorber set, so Clone can share both.
func newRadiationBand(cfg BandConfig, grid *SpectralGrid, absorbers []Absorber, nlayer int) (*RadiationBand, error) {
	solver, err := NewSolver(cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("cup: band %q: %w", cfg.Name, err)
	}
	nbin := grid.Len()
	nmom1 := cfg.NumMoments + 1
	b := &RadiationBand{
		Grid:      grid,
		Absorbers: absorbers,
		Solver:    solver,
		cfg:       cfg,
		nlayer:    nlayer,
		nmom:      cfg.NumMoments,
		tau:       sparse.ZerosDense(nbin, nlayer),
		ssa:       sparse.ZerosDense(nbin, nlayer),
		pmom:      sparse.ZerosDense(nbin, nlayer, nmom1),
		btau:      sparse.ZerosDense(nlayer),
		bssa:      sparse.ZerosDense(nlayer),
		bpmom:     sparse.ZerosDense(nlayer, nmom1),
		pmbuf:     make([]float64, nmom1),
	}
	b.prof = OpticalProfile{
		Tau:             b.btau,
		SSA:             b.bssa,
		Pmom:            b.bpmom,
		Mu0:             cfg.CosZenith,
		BeamFlux:        cfg.BeamFlux,
		SurfaceAlbedo:   cfg.SurfaceAlbedo,
		SurfaceEmission: cfg.SurfaceEmission,
		Rays:            make([]Ray, len(cfg.Rays)),
	}
	for i, r := range cfg.Rays {
		b.prof.Rays[i] = Ray{Mu: r.Mu, Phi: r.Phi}
	}
	return b, nil
}

func newGrid(cfg *BandConfig) (*SpectralGrid, error) {
	switch cfg.GridKind {
	case "", "regular":
		return NewRegularGrid(cfg.WaveMin, cfg.WaveMax, cfg.NumBins)
	case "gauss-legendre":
		return NewGaussLegendreGrid(cfg.WaveMin, cfg.WaveMax, cfg.NumBins)
	case "custom":
		return NewCustomGrid(cfg.BinEdges, cfg.BinWeights)
	}
	return nil, fmt.Errorf("cup: band %q: unknown grid kind %q", cfg.Name, cfg.GridKind)
}

// attachBuffers points the band's output views at slices of the
// container's shared arenas.
func (b *RadiationBand) attachBuffers(flxup, flxdn, toa []float64) {
	b.bflxup = flxup
	b.bflxdn = flxdn
	b.btoa = toa
}

// clone creates an independent copy of the band for use on another
// goroutine. The grid and the absorbers are shared; the solver and all
// mutable arrays are fresh.
func (b *RadiationBand) clone() (*RadiationBand, error) {
	return newRadiationBand(b.cfg, b.Grid, b.Absorbers, b.nlayer)
}

// Name returns the configured band name.
func (b *RadiationBand) Name() string { return b.cfg.Name }

// NumMoments returns the highest Legendre order the band retains.
func (b *RadiationBand) NumMoments() int { return b.nmom }

// FluxUp returns the band's upward-flux view, one value per level,
// bottom-up. The slice aliases the container's shared arena.
func (b *RadiationBand) FluxUp() []float64 { return b.bflxup }

// FluxDown returns the band's downward-flux view, one value per level,
// bottom-up. The slice aliases the container's shared arena.
func (b *RadiationBand) FluxDown() []float64 { return b.bflxdn }

// Radiance returns the band's top-of-atmosphere radiance view, one
// value per configured ray. The slice aliases the container's shared
// arena.
func (b *RadiationBand) Radiance() []float64 { return b.btoa }

// BinOpticalDepth returns the per-bin optical depths of the current
// column, shape [nbin, nlayer].
func (b *RadiationBand) BinOpticalDepth() *sparse.DenseArray { return b.tau }

// BinSingleScatteringAlbedo returns the per-bin single-scattering
// albedos of the current column, shape [nbin, nlayer].
func (b *RadiationBand) BinSingleScatteringAlbedo() *sparse.DenseArray { return b.ssa }

// BinPhaseMoments returns the per-bin phase moments of the current
// column, shape [nbin, nlayer, nmom+1].
func (b *RadiationBand) BinPhaseMoments() *sparse.DenseArray { return b.pmom }

// OpticalDepth returns the band-aggregated optical depths, shape
// [nlayer].
func (b *RadiationBand) OpticalDepth() *sparse.DenseArray { return b.btau }

// SingleScatteringAlbedo returns the band-aggregated single-scattering
// albedos, shape [nlayer].
func (b *RadiationBand) SingleScatteringAlbedo() *sparse.DenseArray { return b.bssa }

// PhaseMoments returns the band-aggregated phase moments, shape
// [nlayer, nmom+1].
func (b *RadiationBand) PhaseMoments() *sparse.DenseArray { return b.bpmom }

// SetSpectralProperties computes the optical properties of col for
// every spectral bin of the band and aggregates them into the band
// properties handed to the solver.
//
// For each bin and layer the absorber contributions accumulate as
// optical depth: the attenuation coefficients times the layer
// thickness sum into tau, the scattering parts sum into tau*ssa, and
// the phase moments accumulate weighted by each absorber's scattering
// contribution. After accumulation the moments are normalized by the
// total scattering and the albedo by the total extinction, so a layer
// with no extinction ends with zero albedo and the isotropic phase
// function.
func (b *RadiationBand) SetSpectralProperties(col *Column) error {
	if col.NLayers() != b.nlayer {
		return fmt.Errorf("cup: band %q: column %q has %d layers but the band was built for %d",
			b.cfg.Name, col.Name, col.NLayers(), b.nlayer)
	}
	nbin := b.Grid.Len()
	nmom1 := b.nmom + 1
	zero(b.tau.Elements)
	zero(b.ssa.Elements)
	zero(b.pmom.Elements)

	for m := 0; m < nbin; m++ {
		bin := b.Grid.Bins[m]
		for i := 0; i < b.nlayer; i++ {
			s := &col.States[i]
			ti := m*b.nlayer + i
			pi := ti * nmom1
			for _, a := range b.Absorbers {
				k := a.Attenuation(bin, s)
				if k < 0 || math.IsNaN(k) {
					return fmt.Errorf("cup: band %q: absorber %q returned attenuation %g 1/m in bin [%g,%g) layer %d",
						b.cfg.Name, a.Name(), k, bin.Wave1, bin.Wave2, i)
				}
				if k == 0 {
					continue
				}
				w := a.SingleScatteringAlbedo(bin, s)
				if w < 0 || w > 1 || math.IsNaN(w) {
					return fmt.Errorf("cup: band %q: absorber %q returned single-scattering albedo %g in bin [%g,%g) layer %d",
						b.cfg.Name, a.Name(), w, bin.Wave1, bin.Wave2, i)
				}
				dtau := k * col.Dz[i]
				b.tau.Elements[ti] += dtau
				if w == 0 {
					continue
				}
				a.PhaseMoments(b.pmbuf, bin, s)
				if math.Abs(b.pmbuf[0]-1) > 1e-9 {
					return fmt.Errorf("cup: band %q: absorber %q returned zeroth phase moment %g in bin [%g,%g) layer %d; it must be 1",
						b.cfg.Name, a.Name(), b.pmbuf[0], bin.Wave1, bin.Wave2, i)
				}
				dsca := w * dtau
				b.ssa.Elements[ti] += dsca
				for p := 0; p < nmom1; p++ {
					b.pmom.Elements[pi+p] += b.pmbuf[p] * dsca
				}
			}
			b.normalizeBin(ti, pi, nmom1)
		}
	}
	b.aggregate(col)
	b.prof.Name = b.cfg.Name + "/" + col.Name
	b.needPrepare = true
	return nil
}

// normalizeBin turns the accumulators of one (bin,layer) pair into
// optical depth, albedo, and unit-normalized moments.
func (b *RadiationBand) normalizeBin(ti, pi, nmom1 int) {
	sca := b.ssa.Elements[ti]
	if sca > 0 {
		for p := 0; p < nmom1; p++ {
			b.pmom.Elements[pi+p] /= sca
		}
	} else {
		IdentityMoments(b.pmom.Elements[pi : pi+nmom1])
	}
	if t := b.tau.Elements[ti]; t > 0 {
		b.ssa.Elements[ti] = sca / t
	} else {
		b.ssa.Elements[ti] = 0
	}
}

// aggregate combines the per-bin properties into band properties using
// the grid weights. Optical depth combines as the weighted mean;
// albedo is weighted additionally by optical depth and the moments by
// the scattering optical depth, so optically thick bins dominate the
// band's scattering behavior.
func (b *RadiationBand) aggregate(col *Column) {
	nbin := b.Grid.Len()
	nmom1 := b.nmom + 1
	zero(b.btau.Elements)
	zero(b.bssa.Elements)
	zero(b.bpmom.Elements)
	for m := 0; m < nbin; m++ {
		wgt := b.Grid.Weights[m]
		for i := 0; i < b.nlayer; i++ {
			ti := m*b.nlayer + i
			wt := wgt * b.tau.Elements[ti]
			ws := wt * b.ssa.Elements[ti]
			b.btau.Elements[i] += wt
			b.bssa.Elements[i] += ws
			pi := ti * nmom1
			bi := i * nmom1
			for p := 0; p < nmom1; p++ {
				b.bpmom.Elements[bi+p] += ws * b.pmom.Elements[pi+p]
			}
		}
	}
	for i := 0; i < b.nlayer; i++ {
		bi := i * nmom1
		if sca := b.bssa.Elements[i]; sca > 0 {
			for p := 0; p < nmom1; p++ {
				b.bpmom.Elements[bi+p] /= sca
			}
		} else {
			IdentityMoments(b.bpmom.Elements[bi : bi+nmom1])
		}
		if t := b.btau.Elements[i]; t > 0 {
			b.bssa.Elements[i] /= t
		} else {
			b.bssa.Elements[i] = 0
		}
	}
}

func (b *RadiationBand) ensurePrepared() error {
	if !b.needPrepare {
		return nil
	}
	if err := b.Solver.Prepare(&b.prof); err != nil {
		return fmt.Errorf("cup: band %q: %w", b.cfg.Name, err)
	}
	b.needPrepare = false
	return nil
}

// CalBandFlux solves for the band's upward and downward fluxes over
// the layer range rng, writing levels rng.Begin through rng.End of the
// band's flux views and leaving all other levels untouched. The
// touched levels are zeroed before the solver runs.
// SetSpectralProperties must have been called for the column first.
func (b *RadiationBand) CalBandFlux(rng LayerRange) error {
	if err := rng.Check(b.nlayer); err != nil {
		return fmt.Errorf("cup: band %q: %w", b.cfg.Name, err)
	}
	up := b.bflxup[rng.Begin : rng.End+1]
	dn := b.bflxdn[rng.Begin : rng.End+1]
	zero(up)
	zero(dn)
	if err := b.ensurePrepared(); err != nil {
		return err
	}
	if err := b.Solver.Compute(&SolverOutput{FluxUp: up, FluxDown: dn}, rng); err != nil {
		return fmt.Errorf("cup: band %q: %w", b.cfg.Name, err)
	}
	return nil
}

// CalBandRadiance solves for the band's top-of-range radiance along
// every configured ray over the layer range rng. The radiance view is
// zeroed before the solver runs.
func (b *RadiationBand) CalBandRadiance(rng LayerRange) error {
	if len(b.btoa) == 0 {
		return fmt.Errorf("cup: band %q has no rays configured for radiance output", b.cfg.Name)
	}
	if err := rng.Check(b.nlayer); err != nil {
		return fmt.Errorf("cup: band %q: %w", b.cfg.Name, err)
	}
	zero(b.btoa)
	if err := b.ensurePrepared(); err != nil {
		return err
	}
	if err := b.Solver.Compute(&SolverOutput{Radiance: b.btoa}, rng); err != nil {
		return fmt.Errorf("cup: band %q: %w", b.cfg.Name, err)
	}
	return nil
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
