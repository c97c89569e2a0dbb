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
)

// An Absorber computes the optical properties contributed by one
// atmospheric constituent (a gas, a collision pair, a cloud, or an
// aerosol). Implementations must be safe for concurrent use: the
// methods are called from per-column goroutines with shared underlying
// lookup tables.
type Absorber interface {
	// Name identifies the absorber in logs, errors, and output
	// metadata.
	Name() string

	// Attenuation returns the extinction coefficient [m**-1]
	// contributed by this absorber in spectral bin bin for the layer
	// state s.
	Attenuation(bin SpectralBin, s *AtmosphericState) float64

	// SingleScatteringAlbedo returns the fraction of the extinction
	// that is scattering, in [0,1].
	SingleScatteringAlbedo(bin SpectralBin, s *AtmosphericState) float64

	// PhaseMoments fills pm with the Legendre moments 0..len(pm)-1 of
	// the absorber's scattering phase function. pm[0] must be 1 so the
	// phase function integrates to 2 over cosine scattering angle.
	PhaseMoments(pm []float64, bin SpectralBin, s *AtmosphericState)
}

// IdentityMoments fills pm with the moments of the isotropic phase
// function: moment zero is one and all higher moments are zero.
func IdentityMoments(pm []float64) {
	if len(pm) == 0 {
		return
	}
	pm[0] = 1
	for i := 1; i < len(pm); i++ {
		pm[i] = 0
	}
}

// ZeroAbsorber is the optically inert absorber: zero attenuation, zero
// single-scattering albedo, and the isotropic phase function. It is
// meant to be embedded by concrete absorbers that only override the
// quantities they contribute, so a pure absorber gets scattering
// methods for free.
type ZeroAbsorber struct{}

// Name returns "zero".
func (ZeroAbsorber) Name() string { return "zero" }

// Attenuation returns 0.
func (ZeroAbsorber) Attenuation(SpectralBin, *AtmosphericState) float64 { return 0 }

// SingleScatteringAlbedo returns 0.
func (ZeroAbsorber) SingleScatteringAlbedo(SpectralBin, *AtmosphericState) float64 { return 0 }

// PhaseMoments fills pm with the isotropic moments.
func (ZeroAbsorber) PhaseMoments(pm []float64, _ SpectralBin, _ *AtmosphericState) {
	IdentityMoments(pm)
}

// An AbsorberFactory creates an Absorber from its configuration. sp is
// the species table of the run and grid is the spectral grid of the
// band the absorber will serve, so factories can resolve species names
// and validate spectral coverage at construction time.
type AbsorberFactory func(cfg AbsorberConfig, sp *Species, grid *SpectralGrid) (Absorber, error)

var absorberFactories = make(map[string]AbsorberFactory)

// RegisterAbsorber makes an absorber kind available to NewAbsorber.
// It is meant to be called from the init functions of concrete
// absorber packages and panics on a duplicate kind.
func RegisterAbsorber(kind string, f AbsorberFactory) {
	if _, ok := absorberFactories[kind]; ok {
		panic(fmt.Sprintf("cup: absorber kind %q is already registered", kind))
	}
	absorberFactories[kind] = f
}

// NewAbsorber creates an absorber of the configured kind using the
// registered factory.
func NewAbsorber(cfg AbsorberConfig, sp *Species, grid *SpectralGrid) (Absorber, error) {
	f, ok := absorberFactories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("cup: unknown absorber kind %q; the registered kinds are %v",
			cfg.Kind, registeredAbsorbers())
	}
	a, err := f(cfg, sp, grid)
	if err != nil {
		return nil, fmt.Errorf("cup: creating %q absorber %q: %w", cfg.Kind, cfg.Name, err)
	}
	return a, nil
}

func registeredAbsorbers() []string {
	kinds := make([]string, 0, len(absorberFactories))
	for k := range absorberFactories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
