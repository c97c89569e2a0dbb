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
	"errors"
	"math"
	"strings"
	"testing"
)

// stubSolver records how a band drives it and writes level-labeled
// values, so the plumbing between bands, solvers, and the shared
// output arenas can be checked without radiative transfer.
type stubSolver struct {
	prof     *OpticalProfile
	prepared int
	fail     bool
}

func init() {
	RegisterSolver("stub", func(SolverConfig) (Solver, error) {
		return new(stubSolver), nil
	})
}

func (s *stubSolver) Name() string { return "stub" }

func (s *stubSolver) Prepare(p *OpticalProfile) error {
	s.prof = p
	s.prepared++
	return nil
}

// Compute writes 1+level into the upward flux, 10+2*level into the
// downward flux, and 100+ray into the radiance.
func (s *stubSolver) Compute(out *SolverOutput, rng LayerRange) error {
	if s.fail {
		return &SolverError{Solver: "stub", Code: SolverNonPhysical, Detail: "forced failure"}
	}
	if out.FluxUp != nil {
		for j := range out.FluxUp {
			out.FluxUp[j] = 1 + float64(rng.Begin+j)
		}
	}
	if out.FluxDown != nil {
		for j := range out.FluxDown {
			out.FluxDown[j] = 10 + 2*float64(rng.Begin+j)
		}
	}
	if out.Radiance != nil {
		for j := range out.Radiance {
			out.Radiance[j] = 100 + float64(j)
		}
	}
	return nil
}

// fakeAbsorber returns fixed optical properties so the accumulation
// and validation paths of SetSpectralProperties can be driven
// directly.
type fakeAbsorber struct {
	k, w, p0, p1 float64
}

func (fakeAbsorber) Name() string { return "fake" }

func (a fakeAbsorber) Attenuation(SpectralBin, *AtmosphericState) float64 { return a.k }

func (a fakeAbsorber) SingleScatteringAlbedo(SpectralBin, *AtmosphericState) float64 { return a.w }

func (a fakeAbsorber) PhaseMoments(pm []float64, _ SpectralBin, _ *AtmosphericState) {
	IdentityMoments(pm)
	if len(pm) > 0 {
		pm[0] = a.p0
	}
	if len(pm) > 1 {
		pm[1] = a.p1
	}
}

// testBand builds the one-band test setup backed by the stub solver,
// with output buffers attached.
func testBand(t *testing.T, nlayer int) *RadiationBand {
	t.Helper()
	r, err := NewRadiation(RadiationTestConfig("stub", nlayer))
	if err != nil {
		t.Fatal(err)
	}
	return r.Bands[0]
}

func TestSetSpectralProperties(t *testing.T) {
	const testTolerance = 1.e-12

	b := testBand(t, 4)
	if b.Name() != "testband" {
		t.Errorf("band name is %q, want testband", b.Name())
	}
	if b.NumMoments() != 2 {
		t.Errorf("band keeps %d moments, want 2", b.NumMoments())
	}
	col := ColumnTestData(4)
	if err := b.SetSpectralProperties(col); err != nil {
		t.Fatal(err)
	}

	// The gray test absorber attenuates 2e-4 1/m over 1 km layers, in
	// every bin alike.
	wantPm := []float64{1, 0.1, 0.01}
	for m := 0; m < b.Grid.Len(); m++ {
		for i := 0; i < 4; i++ {
			if tau := b.BinOpticalDepth().Get(m, i); different(tau, 0.2, testTolerance) {
				t.Errorf("bin %d layer %d: optical depth is %g, want 0.2", m, i, tau)
			}
			if w := b.BinSingleScatteringAlbedo().Get(m, i); different(w, 0.3, testTolerance) {
				t.Errorf("bin %d layer %d: single-scattering albedo is %g, want 0.3", m, i, w)
			}
			for l, want := range wantPm {
				if pm := b.BinPhaseMoments().Get(m, i, l); different(pm, want, testTolerance) {
					t.Errorf("bin %d layer %d: phase moment %d is %g, want %g", m, i, l, pm, want)
				}
			}
		}
	}
	// With identical bins the band aggregates equal the bin values.
	for i := 0; i < 4; i++ {
		if tau := b.OpticalDepth().Get(i); different(tau, 0.2, testTolerance) {
			t.Errorf("layer %d: band optical depth is %g, want 0.2", i, tau)
		}
		if w := b.SingleScatteringAlbedo().Get(i); different(w, 0.3, testTolerance) {
			t.Errorf("layer %d: band single-scattering albedo is %g, want 0.3", i, w)
		}
		for l, want := range wantPm {
			if pm := b.PhaseMoments().Get(i, l); different(pm, want, testTolerance) {
				t.Errorf("layer %d: band phase moment %d is %g, want %g", i, l, pm, want)
			}
		}
	}

	// The profile handed to the solver carries the boundary conditions
	// and names the band and column.
	if b.prof.Name != "testband/testcolumn" {
		t.Errorf("profile name is %q, want testband/testcolumn", b.prof.Name)
	}
	if b.prof.Mu0 != 1 || b.prof.BeamFlux != 100 {
		t.Errorf("profile beam is %g W/m2 at mu0=%g, want 100 at 1", b.prof.BeamFlux, b.prof.Mu0)
	}
	if len(b.prof.Rays) != 2 {
		t.Errorf("profile has %d rays, want 2", len(b.prof.Rays))
	}
}

// Absorber contributions add as optical depth; the albedo and the
// moments weight each contribution by its scattering share.
func TestAbsorberAccumulation(t *testing.T) {
	const testTolerance = 1.e-12

	cfg := BandConfig{Name: "mix", WaveMin: 600, WaveMax: 1400, NumBins: 2,
		NumMoments: 2, Solver: SolverConfig{Kind: "stub"}}
	b, err := NewRadiationBand(cfg, SpeciesTestData(), 1)
	if err != nil {
		t.Fatal(err)
	}
	// A pure absorber, a weak scatterer, and a strong scatterer.
	b.Absorbers = []Absorber{
		fakeAbsorber{k: 1.e-4, p0: 1},
		fakeAbsorber{k: 1.e-4, w: 0.4, p0: 1, p1: 0.1},
		fakeAbsorber{k: 2.e-4, w: 0.7, p0: 1, p1: 0.4},
	}
	if err := b.SetSpectralProperties(ColumnTestData(1)); err != nil {
		t.Fatal(err)
	}
	// tau = (1+1+2)e-4 * 1000 m; sca = 0.1*0.4 + 0.2*0.7 = 0.18.
	wantTau, wantSSA, wantPm1 := 0.4, 0.45, 1./3.
	for m := 0; m < 2; m++ {
		if tau := b.BinOpticalDepth().Get(m, 0); different(tau, wantTau, testTolerance) {
			t.Errorf("bin %d optical depth is %g, want %g", m, tau, wantTau)
		}
		if w := b.BinSingleScatteringAlbedo().Get(m, 0); different(w, wantSSA, testTolerance) {
			t.Errorf("bin %d single-scattering albedo is %g, want %g", m, w, wantSSA)
		}
		if pm := b.BinPhaseMoments().Get(m, 0, 0); different(pm, 1, testTolerance) {
			t.Errorf("bin %d zeroth moment is %g, want 1", m, pm)
		}
		if pm := b.BinPhaseMoments().Get(m, 0, 1); different(pm, wantPm1, testTolerance) {
			t.Errorf("bin %d first moment is %g, want %g", m, pm, wantPm1)
		}
	}
}

// A column with no extinction ends with zero optical depth, zero
// albedo, and the isotropic phase function everywhere.
func TestTransparentColumn(t *testing.T) {
	cfg := BandConfig{Name: "clear", WaveMin: 600, WaveMax: 1400, NumBins: 2,
		NumMoments: 2, Solver: SolverConfig{Kind: "stub"}}
	b, err := NewRadiationBand(cfg, SpeciesTestData(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetSpectralProperties(ColumnTestData(2)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if tau := b.OpticalDepth().Get(i); tau != 0 {
			t.Errorf("layer %d: optical depth is %g, want 0", i, tau)
		}
		if w := b.SingleScatteringAlbedo().Get(i); w != 0 {
			t.Errorf("layer %d: single-scattering albedo is %g, want 0", i, w)
		}
		if pm := b.PhaseMoments().Get(i, 0); pm != 1 {
			t.Errorf("layer %d: zeroth moment is %g, want 1", i, pm)
		}
		if pm := b.PhaseMoments().Get(i, 1); pm != 0 {
			t.Errorf("layer %d: first moment is %g, want 0", i, pm)
		}
	}
}

// Aggregation combines bins by the grid weights: optical depth as the
// weighted mean, albedo weighted by optical depth, and moments by the
// scattering optical depth.
func TestBandAggregation(t *testing.T) {
	const testTolerance = 1.e-12

	cfg := BandConfig{Name: "agg", GridKind: "custom",
		BinEdges: []float64{600, 1000, 1400}, BinWeights: []float64{0.75, 0.25},
		NumMoments: 2, Solver: SolverConfig{Kind: "stub"}}
	b, err := NewRadiationBand(cfg, SpeciesTestData(), 2)
	if err != nil {
		t.Fatal(err)
	}
	b.Absorbers = []Absorber{perBinAbsorber{}}
	if err := b.SetSpectralProperties(ColumnTestData(2)); err != nil {
		t.Fatal(err)
	}
	// Bin values: tau {0.1, 0.3}, ssa {0.2, 0.6}, first moment
	// {0.1, 0.5} with weights {0.75, 0.25}.
	wantTau := 0.75*0.1 + 0.25*0.3
	wantSSA := (0.75*0.1*0.2 + 0.25*0.3*0.6) / wantTau
	wantPm1 := (0.75*0.1*0.2*0.1 + 0.25*0.3*0.6*0.5) / (0.75*0.1*0.2 + 0.25*0.3*0.6)
	for i := 0; i < 2; i++ {
		if tau := b.OpticalDepth().Get(i); different(tau, wantTau, testTolerance) {
			t.Errorf("layer %d: band optical depth is %g, want %g", i, tau, wantTau)
		}
		if w := b.SingleScatteringAlbedo().Get(i); different(w, wantSSA, testTolerance) {
			t.Errorf("layer %d: band single-scattering albedo is %g, want %g", i, w, wantSSA)
		}
		if pm := b.PhaseMoments().Get(i, 0); different(pm, 1, testTolerance) {
			t.Errorf("layer %d: band zeroth moment is %g, want 1", i, pm)
		}
		if pm := b.PhaseMoments().Get(i, 1); different(pm, wantPm1, testTolerance) {
			t.Errorf("layer %d: band first moment is %g, want %g", i, pm, wantPm1)
		}
	}
}

// perBinAbsorber returns different properties below and above 1000
// cm-1 so the aggregation weighting is visible in the band values.
type perBinAbsorber struct{}

func (perBinAbsorber) Name() string { return "perbin" }

func (perBinAbsorber) Attenuation(bin SpectralBin, _ *AtmosphericState) float64 {
	if bin.Center < 1000 {
		return 1.e-4
	}
	return 3.e-4
}

func (perBinAbsorber) SingleScatteringAlbedo(bin SpectralBin, _ *AtmosphericState) float64 {
	if bin.Center < 1000 {
		return 0.2
	}
	return 0.6
}

func (perBinAbsorber) PhaseMoments(pm []float64, bin SpectralBin, _ *AtmosphericState) {
	IdentityMoments(pm)
	if len(pm) > 1 {
		if bin.Center < 1000 {
			pm[1] = 0.1
		} else {
			pm[1] = 0.5
		}
	}
}

func TestSetSpectralPropertiesErrors(t *testing.T) {
	cases := []struct {
		name     string
		absorber Absorber
		want     string
	}{
		{"negative attenuation", fakeAbsorber{k: -1, p0: 1}, "attenuation"},
		{"NaN attenuation", fakeAbsorber{k: math.NaN(), p0: 1}, "attenuation"},
		{"bad albedo", fakeAbsorber{k: 1.e-4, w: 1.5, p0: 1}, "single-scattering albedo"},
		{"NaN albedo", fakeAbsorber{k: 1.e-4, w: math.NaN(), p0: 1}, "single-scattering albedo"},
		{"bad zeroth moment", fakeAbsorber{k: 1.e-4, w: 0.5, p0: 0.9}, "zeroth phase moment"},
	}
	for _, c := range cases {
		b := testBand(t, 2)
		b.Absorbers = []Absorber{c.absorber}
		err := b.SetSpectralProperties(ColumnTestData(2))
		if err == nil {
			t.Errorf("%s: expected an error", c.name)
			continue
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: error %q does not mention %q", c.name, err, c.want)
		}
	}

	b := testBand(t, 4)
	err := b.SetSpectralProperties(ColumnTestData(3))
	if err == nil || !strings.Contains(err.Error(), "but the band was built for 4") {
		t.Errorf("layer mismatch returned %v", err)
	}
}

func TestCalBandFlux(t *testing.T) {
	b := testBand(t, 4)
	col := ColumnTestData(4)
	if err := b.SetSpectralProperties(col); err != nil {
		t.Fatal(err)
	}
	if err := b.CalBandFlux(FullColumn(4)); err != nil {
		t.Fatal(err)
	}
	for lev := 0; lev <= 4; lev++ {
		if up := b.FluxUp()[lev]; up != 1+float64(lev) {
			t.Errorf("level %d: upward flux is %g, want %g", lev, up, 1+float64(lev))
		}
		if dn := b.FluxDown()[lev]; dn != 10+2*float64(lev) {
			t.Errorf("level %d: downward flux is %g, want %g", lev, dn, 10+2*float64(lev))
		}
	}

	// A sub-range solve rewrites only the levels it spans.
	for lev := range b.FluxUp() {
		b.FluxUp()[lev] = 99
		b.FluxDown()[lev] = 99
	}
	if err := b.CalBandFlux(LayerRange{Begin: 1, End: 3}); err != nil {
		t.Fatal(err)
	}
	for lev := 0; lev <= 4; lev++ {
		wantUp, wantDn := 1+float64(lev), 10+2*float64(lev)
		if lev == 0 || lev == 4 {
			wantUp, wantDn = 99, 99
		}
		if b.FluxUp()[lev] != wantUp || b.FluxDown()[lev] != wantDn {
			t.Errorf("level %d: fluxes are %g/%g, want %g/%g",
				lev, b.FluxUp()[lev], b.FluxDown()[lev], wantUp, wantDn)
		}
	}

	// The profile was prepared once and reused across solves.
	if n := b.Solver.(*stubSolver).prepared; n != 1 {
		t.Errorf("solver was prepared %d times, want 1", n)
	}
}

func TestCalBandFluxErrors(t *testing.T) {
	b := testBand(t, 4)
	if err := b.SetSpectralProperties(ColumnTestData(4)); err != nil {
		t.Fatal(err)
	}
	for _, rng := range []LayerRange{{}, {Begin: 0, End: 9}, {Begin: 3, End: 2}} {
		if err := b.CalBandFlux(rng); err == nil {
			t.Errorf("range [%d,%d): expected an error", rng.Begin, rng.End)
		}
	}

	// A solver failure leaves the spanned levels zeroed and the rest
	// alone.
	for lev := range b.FluxUp() {
		b.FluxUp()[lev] = 99
		b.FluxDown()[lev] = 99
	}
	b.Solver.(*stubSolver).fail = true
	err := b.CalBandFlux(LayerRange{Begin: 1, End: 3})
	var serr *SolverError
	if !errors.As(err, &serr) || serr.Code != SolverNonPhysical {
		t.Fatalf("forced failure returned %v", err)
	}
	for lev := 0; lev <= 4; lev++ {
		want := 0.
		if lev == 0 || lev == 4 {
			want = 99
		}
		if b.FluxUp()[lev] != want || b.FluxDown()[lev] != want {
			t.Errorf("level %d: fluxes are %g/%g after a failure, want %g",
				lev, b.FluxUp()[lev], b.FluxDown()[lev], want)
		}
	}
}

func TestCalBandRadiance(t *testing.T) {
	b := testBand(t, 4)
	if err := b.SetSpectralProperties(ColumnTestData(4)); err != nil {
		t.Fatal(err)
	}
	if err := b.CalBandFlux(FullColumn(4)); err != nil {
		t.Fatal(err)
	}
	if err := b.CalBandRadiance(FullColumn(4)); err != nil {
		t.Fatal(err)
	}
	if rad := b.Radiance(); rad[0] != 100 || rad[1] != 101 {
		t.Errorf("radiances are %v, want [100 101]", rad)
	}
	if n := b.Solver.(*stubSolver).prepared; n != 1 {
		t.Errorf("solver was prepared %d times for one column, want 1", n)
	}

	// A new column invalidates the prepared profile.
	if err := b.SetSpectralProperties(ColumnTestData(4)); err != nil {
		t.Fatal(err)
	}
	if err := b.CalBandRadiance(FullColumn(4)); err != nil {
		t.Fatal(err)
	}
	if n := b.Solver.(*stubSolver).prepared; n != 2 {
		t.Errorf("solver was prepared %d times for two columns, want 2", n)
	}
}

func TestCalBandRadianceNoRays(t *testing.T) {
	cfg := RadiationTestConfig("stub", 2)
	cfg.Bands[0].Rays = nil
	r, err := NewRadiation(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b := r.Bands[0]
	if err := b.SetSpectralProperties(ColumnTestData(2)); err != nil {
		t.Fatal(err)
	}
	err = b.CalBandRadiance(FullColumn(2))
	if err == nil || !strings.Contains(err.Error(), "no rays configured") {
		t.Errorf("band without rays returned %v", err)
	}
}

func TestNewRadiationBandErrors(t *testing.T) {
	sp := SpeciesTestData()
	cases := []struct {
		name string
		cfg  BandConfig
		want string
	}{
		{"unknown solver", BandConfig{Name: "b", WaveMin: 600, WaveMax: 1400, NumBins: 2,
			NumMoments: 2, Solver: SolverConfig{Kind: "discreet"}}, "unknown solver kind"},
		{"unknown absorber", BandConfig{Name: "b", WaveMin: 600, WaveMax: 1400, NumBins: 2,
			NumMoments: 2, Solver: SolverConfig{Kind: "stub"},
			Absorbers: []AbsorberConfig{{Name: "x", Kind: "continuum"}}}, "unknown absorber kind"},
		{"bad grid", BandConfig{Name: "b", WaveMin: 600, WaveMax: 1400, NumBins: 0,
			NumMoments: 2, Solver: SolverConfig{Kind: "stub"}}, "at least one bin"},
		{"unknown grid kind", BandConfig{Name: "b", GridKind: "spline", NumBins: 2,
			NumMoments: 2, Solver: SolverConfig{Kind: "stub"}}, "unknown grid kind"},
	}
	for _, c := range cases {
		_, err := NewRadiationBand(c.cfg, sp, 2)
		if err == nil {
			t.Errorf("%s: expected an error", c.name)
			continue
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: error %q does not mention %q", c.name, err, c.want)
		}
	}
}
