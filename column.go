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
)

// Physical constants in SI units.
const (
	kBoltzmann = 1.380649e-23 // Boltzmann constant [J K**-1]
	rGas       = 8.314462618  // universal gas constant [J mol**-1 K**-1]
	loschmidt  = 2.6867811e25 // Loschmidt number [m**-3] at 273.15 K, 101325 Pa
)

// CompositionKind declares how the constituent amounts in an
// AtmosphericState are expressed.
type CompositionKind int

const (
	// MoleFraction means X holds dimensionless mole fractions.
	MoleFraction CompositionKind = iota
	// MassMixingRatio means X holds dimensionless kg-per-kg-of-air
	// mixing ratios.
	MassMixingRatio
)

func (k CompositionKind) String() string {
	switch k {
	case MoleFraction:
		return "mole fraction"
	case MassMixingRatio:
		return "mass mixing ratio"
	}
	return fmt.Sprintf("CompositionKind(%d)", int(k))
}

// ParseCompositionKind converts the string form used in column files
// and configuration to a CompositionKind.
func ParseCompositionKind(s string) (CompositionKind, error) {
	switch s {
	case "mole fraction", "mole_fraction":
		return MoleFraction, nil
	case "mass mixing ratio", "mass_mixing_ratio":
		return MassMixingRatio, nil
	}
	return 0, fmt.Errorf("cup: unknown composition kind %q; valid kinds are "+
		"\"mole fraction\" and \"mass mixing ratio\"", s)
}

// Species describes the atmospheric constituents that a Radiation run
// knows about. The order of Names fixes the meaning of the composition
// vector in every AtmosphericState.
type Species struct {
	Names []string
	// MolarMass holds one molar mass per name [g mol**-1].
	MolarMass []float64

	index map[string]int
}

// NewSpecies creates a species table from parallel name and molar-mass
// slices. Names must be unique and molar masses positive.
func NewSpecies(names []string, molarMass []float64) (*Species, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("cup: a species table needs at least one species")
	}
	if len(names) != len(molarMass) {
		return nil, fmt.Errorf("cup: species table has %d names but %d molar masses",
			len(names), len(molarMass))
	}
	s := &Species{
		Names:     names,
		MolarMass: molarMass,
		index:     make(map[string]int, len(names)),
	}
	for i, n := range names {
		if _, ok := s.index[n]; ok {
			return nil, fmt.Errorf("cup: duplicate species %q", n)
		}
		if molarMass[i] <= 0 || math.IsNaN(molarMass[i]) {
			return nil, fmt.Errorf("cup: species %q has invalid molar mass %g g/mol",
				n, molarMass[i])
		}
		s.index[n] = i
	}
	return s, nil
}

// Len returns the number of species in the table.
func (s *Species) Len() int { return len(s.Names) }

// Index returns the composition-vector index of the named species.
func (s *Species) Index(name string) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return 0, fmt.Errorf("cup: unknown species %q; the configured species are %v",
			name, s.Names)
	}
	return i, nil
}

// An AtmosphericState is the thermodynamic and compositional state of
// one atmospheric layer.
type AtmosphericState struct {
	T float64 // temperature [K]
	P float64 // pressure [Pa]
	// X holds one constituent amount per configured species, in the
	// units declared by Kind.
	X    []float64
	Kind CompositionKind
}

// MoleFraction returns the mole fraction of species index i,
// converting from the stored composition kind if necessary.
func (a *AtmosphericState) MoleFraction(sp *Species, i int) float64 {
	switch a.Kind {
	case MoleFraction:
		return a.X[i]
	case MassMixingRatio:
		// x_i = (q_i/M_i) / sum_j(q_j/M_j)
		var sum float64
		for j, q := range a.X {
			sum += q / sp.MolarMass[j]
		}
		if sum == 0 {
			return 0
		}
		return a.X[i] / sp.MolarMass[i] / sum
	}
	return 0
}

// NumberDensity returns the number density of species index i
// [m**-3], derived from the ideal gas law.
func (a *AtmosphericState) NumberDensity(sp *Species, i int) float64 {
	return a.MoleFraction(sp, i) * a.P / (kBoltzmann * a.T)
}

// MeanMolarMass returns the mole-fraction-weighted mean molar mass of
// the layer [g mol**-1].
func (a *AtmosphericState) MeanMolarMass(sp *Species) float64 {
	switch a.Kind {
	case MoleFraction:
		var m float64
		for i, x := range a.X {
			m += x * sp.MolarMass[i]
		}
		return m
	case MassMixingRatio:
		// 1/M = sum_i(q_i/M_i)
		var inv float64
		for i, q := range a.X {
			inv += q / sp.MolarMass[i]
		}
		if inv == 0 {
			return 0
		}
		return 1 / inv
	}
	return 0
}

// Density returns the mass density of the layer [kg m**-3], derived
// from the ideal gas law and the mean molar mass.
func (a *AtmosphericState) Density(sp *Species) float64 {
	return a.P * a.MeanMolarMass(sp) * 1.e-3 / (rGas * a.T)
}

// MassMixingRatio returns the mass mixing ratio of species index i,
// converting from the stored composition kind if necessary.
func (a *AtmosphericState) MassMixingRatio(sp *Species, i int) float64 {
	switch a.Kind {
	case MassMixingRatio:
		return a.X[i]
	case MoleFraction:
		m := a.MeanMolarMass(sp)
		if m == 0 {
			return 0
		}
		return a.X[i] * sp.MolarMass[i] / m
	}
	return 0
}

// A Column is one vertical atmospheric column, ordered bottom-up:
// layer 0 is adjacent to the surface and layer len(States)-1 is the
// top of the model atmosphere. A column of n layers has n+1 levels;
// level i is the lower boundary of layer i and level n is the top.
type Column struct {
	// States holds the per-layer atmospheric states, bottom-up.
	States []AtmosphericState
	// Dz holds the geometric thickness of each layer [m].
	Dz []float64
	// Name identifies the column in logs and output files.
	Name string
}

// NLayers returns the number of layers in the column.
func (c *Column) NLayers() int { return len(c.States) }

// NLevels returns the number of layer interfaces, always NLayers()+1.
func (c *Column) NLevels() int { return len(c.States) + 1 }

// Check validates the column against the species table: every layer
// must carry positive temperature, pressure, and thickness and a
// composition vector of the configured length.
func (c *Column) Check(sp *Species) error {
	if len(c.States) == 0 {
		return fmt.Errorf("cup: column %q has no layers", c.Name)
	}
	if len(c.Dz) != len(c.States) {
		return fmt.Errorf("cup: column %q has %d layers but %d thicknesses",
			c.Name, len(c.States), len(c.Dz))
	}
	for i, s := range c.States {
		if s.T <= 0 || math.IsNaN(s.T) {
			return fmt.Errorf("cup: column %q layer %d has invalid temperature %g K", c.Name, i, s.T)
		}
		if s.P <= 0 || math.IsNaN(s.P) {
			return fmt.Errorf("cup: column %q layer %d has invalid pressure %g Pa", c.Name, i, s.P)
		}
		if c.Dz[i] <= 0 || math.IsNaN(c.Dz[i]) {
			return fmt.Errorf("cup: column %q layer %d has invalid thickness %g m", c.Name, i, c.Dz[i])
		}
		if len(s.X) != sp.Len() {
			return fmt.Errorf("cup: column %q layer %d has %d constituents but %d species are configured",
				c.Name, i, len(s.X), sp.Len())
		}
		for j, x := range s.X {
			if x < 0 || math.IsNaN(x) {
				return fmt.Errorf("cup: column %q layer %d species %q has invalid amount %g",
					c.Name, i, sp.Names[j], x)
			}
		}
	}
	return nil
}

// LevelHeights returns the n+1 level heights [m] above the surface,
// accumulated bottom-up from the layer thicknesses.
func (c *Column) LevelHeights() []float64 {
	z := make([]float64, len(c.Dz)+1)
	for i, dz := range c.Dz {
		z[i+1] = z[i] + dz
	}
	return z
}

// A LayerRange is a half-open interval [Begin,End) of layer indices,
// counted bottom-up. The zero value selects no layers.
type LayerRange struct {
	Begin int
	End   int
}

// FullColumn returns the range covering all n layers.
func FullColumn(n int) LayerRange { return LayerRange{Begin: 0, End: n} }

// Len returns the number of layers in the range.
func (r LayerRange) Len() int { return r.End - r.Begin }

// Check validates the range against a column of n layers.
func (r LayerRange) Check(n int) error {
	if r.Begin < 0 || r.End > n || r.Begin >= r.End {
		return fmt.Errorf("cup: layer range [%d,%d) is not within a column of %d layers",
			r.Begin, r.End, n)
	}
	return nil
}
