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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"
)

// A SpectralBin is one spectral sub-interval [Wave1,Wave2) of a band.
// Center is the coordinate at which absorbers evaluate their optical
// properties for this bin; it is the interval midpoint for regular
// grids and the quadrature node for Gauss-Legendre grids. Wavenumbers
// are in cm**-1.
type SpectralBin struct {
	Wave1  float64 // lower edge [cm**-1]
	Wave2  float64 // upper edge [cm**-1]
	Center float64 // evaluation coordinate [cm**-1]
}

// GridKind labels how a SpectralGrid derived its bins and weights, and
// therefore how per-bin quantities combine into a band quantity.
type GridKind int

const (
	// GridRegular divides the band into equal-width bins; bin weights
	// are proportional to bin width, so the band aggregate is the
	// spectral mean of the per-bin values.
	GridRegular GridKind = iota
	// GridGaussLegendre places bins at Gauss-Legendre quadrature nodes
	// mapped into the band; bin weights are the quadrature weights, so
	// the band aggregate is the quadrature estimate of the spectral
	// mean.
	GridGaussLegendre
	// GridCustom uses caller-supplied bin edges and weights.
	GridCustom
)

func (k GridKind) String() string {
	switch k {
	case GridRegular:
		return "regular"
	case GridGaussLegendre:
		return "gauss-legendre"
	case GridCustom:
		return "custom"
	}
	return fmt.Sprintf("GridKind(%d)", int(k))
}

// A SpectralGrid holds the spectral bins of one radiation band together
// with the combination weights that turn per-bin optical properties
// into a band property. The weights always sum to one, so a band
// aggregate is a weighted mean and keeps the physical units of the
// per-bin quantity.
type SpectralGrid struct {
	Kind GridKind
	Bins []SpectralBin
	// Weights holds one normalized combination weight per bin.
	Weights []float64
}

// NewRegularGrid creates a grid of n equal-width bins spanning
// [waveMin,waveMax). Bin weights are each 1/n.
func NewRegularGrid(waveMin, waveMax float64, n int) (*SpectralGrid, error) {
	if err := checkWaveRange(waveMin, waveMax, n); err != nil {
		return nil, err
	}
	g := &SpectralGrid{
		Kind:    GridRegular,
		Bins:    make([]SpectralBin, n),
		Weights: make([]float64, n),
	}
	dw := (waveMax - waveMin) / float64(n)
	for i := range g.Bins {
		w1 := waveMin + float64(i)*dw
		g.Bins[i] = SpectralBin{Wave1: w1, Wave2: w1 + dw, Center: w1 + 0.5*dw}
		g.Weights[i] = 1 / float64(n)
	}
	// The last upper edge is computed exactly so the bins cover the
	// band without a floating-point gap.
	g.Bins[n-1].Wave2 = waveMax
	return g, nil
}

// NewGaussLegendreGrid creates a grid of n bins whose evaluation
// coordinates are the n-point Gauss-Legendre quadrature nodes mapped
// into [waveMin,waveMax) and whose weights are the matching quadrature
// weights normalized by the band width. Bin edges are placed midway
// between consecutive nodes so the bins remain disjoint and cover the
// band.
func NewGaussLegendreGrid(waveMin, waveMax float64, n int) (*SpectralGrid, error) {
	if err := checkWaveRange(waveMin, waveMax, n); err != nil {
		return nil, err
	}
	x := make([]float64, n)
	w := make([]float64, n)
	quad.Legendre{}.FixedLocations(x, w, waveMin, waveMax)
	g := &SpectralGrid{
		Kind:    GridGaussLegendre,
		Bins:    make([]SpectralBin, n),
		Weights: w,
	}
	floats.Scale(1/(waveMax-waveMin), g.Weights)
	for i := range g.Bins {
		w1 := waveMin
		if i > 0 {
			w1 = 0.5 * (x[i-1] + x[i])
		}
		w2 := waveMax
		if i < n-1 {
			w2 = 0.5 * (x[i] + x[i+1])
		}
		g.Bins[i] = SpectralBin{Wave1: w1, Wave2: w2, Center: x[i]}
	}
	return g, nil
}

// NewCustomGrid creates a grid from caller-supplied bin edges and
// weights. edges must hold len(weights)+1 strictly increasing values;
// bin i spans [edges[i],edges[i+1]) and evaluates at the interval
// midpoint. The weights are normalized to sum to one.
func NewCustomGrid(edges, weights []float64) (*SpectralGrid, error) {
	n := len(weights)
	if n == 0 {
		return nil, fmt.Errorf("cup: custom spectral grid needs at least one bin")
	}
	if len(edges) != n+1 {
		return nil, fmt.Errorf("cup: custom spectral grid needs %d bin edges for %d weights but has %d",
			n+1, n, len(edges))
	}
	g := &SpectralGrid{
		Kind:    GridCustom,
		Bins:    make([]SpectralBin, n),
		Weights: make([]float64, n),
	}
	var sum float64
	for i := 0; i < n; i++ {
		if edges[i+1] <= edges[i] {
			return nil, fmt.Errorf("cup: custom spectral grid edges must increase: edge %d (%g) >= edge %d (%g)",
				i, edges[i], i+1, edges[i+1])
		}
		if weights[i] <= 0 || math.IsNaN(weights[i]) {
			return nil, fmt.Errorf("cup: custom spectral grid weight %d is %g; weights must be positive",
				i, weights[i])
		}
		g.Bins[i] = SpectralBin{
			Wave1:  edges[i],
			Wave2:  edges[i+1],
			Center: 0.5 * (edges[i] + edges[i+1]),
		}
		g.Weights[i] = weights[i]
		sum += weights[i]
	}
	floats.Scale(1/sum, g.Weights)
	return g, nil
}

// Len returns the number of spectral bins in the grid.
func (g *SpectralGrid) Len() int { return len(g.Bins) }

// WaveMin returns the lower edge of the grid's spectral range [cm**-1].
func (g *SpectralGrid) WaveMin() float64 { return g.Bins[0].Wave1 }

// WaveMax returns the upper edge of the grid's spectral range [cm**-1].
func (g *SpectralGrid) WaveMax() float64 { return g.Bins[len(g.Bins)-1].Wave2 }

func checkWaveRange(waveMin, waveMax float64, n int) error {
	if n < 1 {
		return fmt.Errorf("cup: spectral grid needs at least one bin but has %d", n)
	}
	if math.IsNaN(waveMin) || math.IsNaN(waveMax) || waveMax <= waveMin {
		return fmt.Errorf("cup: invalid spectral range [%g,%g); the upper edge must exceed the lower edge",
			waveMin, waveMax)
	}
	return nil
}
