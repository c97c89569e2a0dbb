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
)

// defaultSpecificHeat is the isobaric specific heat of dry terrestrial
// air [J kg**-1 K**-1], used when a scenario does not set one.
const defaultSpecificHeat = 1004.

// A SpeciesConfig declares one atmospheric constituent of a run.
type SpeciesConfig struct {
	Name      string  `desc:"Species name used in column files and absorber configuration."`
	MolarMass float64 `desc:"Molar mass of the species." units:"g mol**-1"`
}

// A RayConfig declares one outgoing direction for radiance output.
type RayConfig struct {
	Mu  float64 `desc:"Cosine of the outgoing zenith angle, in (0,1]." units:"dimensionless"`
	Phi float64 `desc:"Azimuth of the outgoing direction." units:"radians"`
}

// An AbsorberConfig declares one absorber attached to a band.
type AbsorberConfig struct {
	Name     string             `desc:"Instance name of the absorber, for example the gas it models."`
	Kind     string             `desc:"Registered absorber kind, for example tabgas, cia, or hgcloud."`
	Species  []string           `desc:"Names of the species the absorber consumes, in the order its kind expects."`
	DataFile string             `desc:"Path of the NetCDF opacity table for table-driven kinds."`
	Params   map[string]float64 `desc:"Kind-specific numeric parameters."`
}

// A SolverConfig declares the radiative-transfer solver of a band.
type SolverConfig struct {
	Kind string `desc:"Registered solver kind, for example beerlam or twostream."`
}

// A BandConfig declares one radiation band.
type BandConfig struct {
	Name            string           `desc:"Band name used in logs and output variables."`
	WaveMin         float64          `desc:"Lower edge of the band." units:"cm**-1"`
	WaveMax         float64          `desc:"Upper edge of the band." units:"cm**-1"`
	NumBins         int              `desc:"Number of spectral bins in the band."`
	GridKind        string           `desc:"Spectral grid kind: regular, gauss-legendre, or custom."`
	BinEdges        []float64        `desc:"Bin edges for custom grids; NumBins+1 increasing values." units:"cm**-1"`
	BinWeights      []float64        `desc:"Bin combination weights for custom grids; normalized internally."`
	NumMoments      int              `desc:"Highest Legendre order of the phase function retained by the band."`
	Absorbers       []AbsorberConfig `desc:"Absorbers contributing to the band."`
	Solver          SolverConfig     `desc:"Radiative-transfer solver of the band."`
	BeamFlux        float64          `desc:"Collimated beam flux normal to the beam at the top of the atmosphere." units:"W m**-2"`
	CosZenith       float64          `desc:"Cosine of the beam zenith angle, in (0,1]; required when BeamFlux is positive." units:"dimensionless"`
	SurfaceAlbedo   float64          `desc:"Lambertian surface reflectance, in [0,1]." units:"dimensionless"`
	SurfaceEmission float64          `desc:"Upward flux emitted by the surface." units:"W m**-2"`
	Rays            []RayConfig      `desc:"Outgoing directions for radiance output."`
}

// A RadiationConfig declares a complete Radiation run: the species the
// columns carry, the column geometry, and the bands to compute.
type RadiationConfig struct {
	Species      []SpeciesConfig `desc:"Atmospheric constituents carried by the input columns."`
	NumLayers    int             `desc:"Number of layers in every input column."`
	SpecificHeat float64         `desc:"Isobaric specific heat used for heating rates; zero selects the dry-air default." units:"J kg**-1 K**-1"`
	Bands        []BandConfig    `desc:"Radiation bands to compute."`
}

// Validate checks the configuration for internal consistency, filling
// in documented defaults, and reports the first problem found with the
// offending field named.
func (c *RadiationConfig) Validate() error {
	if len(c.Species) == 0 {
		return fmt.Errorf("cup: configuration variable Species must list at least one species")
	}
	if c.NumLayers < 1 {
		return fmt.Errorf("cup: configuration variable NumLayers is %d but must be at least 1", c.NumLayers)
	}
	if c.SpecificHeat == 0 {
		c.SpecificHeat = defaultSpecificHeat
	}
	if c.SpecificHeat < 0 {
		return fmt.Errorf("cup: configuration variable SpecificHeat is %g J/(kg K) but must be positive", c.SpecificHeat)
	}
	if len(c.Bands) == 0 {
		return fmt.Errorf("cup: configuration variable Bands must list at least one band")
	}
	names := make(map[string]bool, len(c.Bands))
	for i := range c.Bands {
		b := &c.Bands[i]
		if b.Name == "" {
			return fmt.Errorf("cup: configuration variable Bands[%d].Name must not be empty", i)
		}
		if names[b.Name] {
			return fmt.Errorf("cup: configuration variable Bands has duplicate band name %q", b.Name)
		}
		names[b.Name] = true
		if err := b.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (b *BandConfig) validate() error {
	if b.GridKind == "" {
		b.GridKind = "regular"
	}
	switch b.GridKind {
	case "regular", "gauss-legendre":
		if b.NumBins < 1 {
			return fmt.Errorf("cup: band %q: configuration variable NumBins is %d but must be at least 1",
				b.Name, b.NumBins)
		}
		if b.WaveMax <= b.WaveMin {
			return fmt.Errorf("cup: band %q: configuration variable WaveMax (%g) must exceed WaveMin (%g)",
				b.Name, b.WaveMax, b.WaveMin)
		}
	case "custom":
		if len(b.BinWeights) == 0 {
			return fmt.Errorf("cup: band %q: configuration variable BinWeights must not be empty for a custom grid",
				b.Name)
		}
		if len(b.BinEdges) != len(b.BinWeights)+1 {
			return fmt.Errorf("cup: band %q: configuration variable BinEdges must hold %d values for %d weights but holds %d",
				b.Name, len(b.BinWeights)+1, len(b.BinWeights), len(b.BinEdges))
		}
	default:
		return fmt.Errorf("cup: band %q: configuration variable GridKind is %q; valid kinds are regular, gauss-legendre, and custom",
			b.Name, b.GridKind)
	}
	if b.NumMoments == 0 {
		b.NumMoments = 4
	}
	if b.NumMoments < 1 {
		return fmt.Errorf("cup: band %q: configuration variable NumMoments is %d but must be at least 1",
			b.Name, b.NumMoments)
	}
	if b.Solver.Kind == "" {
		return fmt.Errorf("cup: band %q: configuration variable Solver.Kind must not be empty", b.Name)
	}
	if b.BeamFlux < 0 {
		return fmt.Errorf("cup: band %q: configuration variable BeamFlux is %g W/m2 but must not be negative",
			b.Name, b.BeamFlux)
	}
	if b.BeamFlux > 0 && (b.CosZenith <= 0 || b.CosZenith > 1) {
		return fmt.Errorf("cup: band %q: configuration variable CosZenith is %g but must be in (0,1] when BeamFlux is positive",
			b.Name, b.CosZenith)
	}
	if b.SurfaceAlbedo < 0 || b.SurfaceAlbedo > 1 {
		return fmt.Errorf("cup: band %q: configuration variable SurfaceAlbedo is %g but must be in [0,1]",
			b.Name, b.SurfaceAlbedo)
	}
	if b.SurfaceEmission < 0 {
		return fmt.Errorf("cup: band %q: configuration variable SurfaceEmission is %g W/m2 but must not be negative",
			b.Name, b.SurfaceEmission)
	}
	for j, r := range b.Rays {
		if r.Mu <= 0 || r.Mu > 1 {
			return fmt.Errorf("cup: band %q: configuration variable Rays[%d].Mu is %g but must be in (0,1]",
				b.Name, j, r.Mu)
		}
	}
	for j := range b.Absorbers {
		a := &b.Absorbers[j]
		if a.Kind == "" {
			return fmt.Errorf("cup: band %q: configuration variable Absorbers[%d].Kind must not be empty",
				b.Name, j)
		}
		if a.Name == "" {
			a.Name = a.Kind
		}
	}
	return nil
}

// speciesTable builds the species table declared by the
// configuration.
func (c *RadiationConfig) speciesTable() (*Species, error) {
	names := make([]string, len(c.Species))
	mm := make([]float64, len(c.Species))
	for i, s := range c.Species {
		names[i] = s.Name
		mm[i] = s.MolarMass
	}
	return NewSpecies(names, mm)
}
