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

// Package cup implements a column radiative-transfer optical-property
// engine for planetary atmospheres. Given a vertical column of
// atmospheric states, it computes per-spectral-bin and per-band optical
// properties (extinction, single-scattering albedo, phase-function
// moments), aggregates them under the normalization laws governing phase
// functions, and drives a one-dimensional radiative-transfer solver to
// produce fluxes and radiances.
//
// The engine is organized around four components: SpectralGrid defines
// the spectral sub-bins belonging to one band; Absorber is a pluggable
// capability computing optical quantities for one atmospheric
// constituent; RadiationBand owns a grid, a set of absorbers, and a
// solver, and performs the per-bin and band aggregation for one column;
// Radiation is the container of bands that owns the shared flux and
// radiance output buffers. Concrete absorbers live in the
// science/absorb/... subpackages and concrete solver adapters in the
// rtsolver/... subpackages; both register themselves with the registries
// in this package.
//
// All computation is synchronous and CPU-bound. Parallelism across
// columns or across bands is the caller's responsibility; the absorber
// lookup tables are immutable after construction and safe for concurrent
// reads, and each band writes only to its own slice of the shared output
// buffers.
package cup

// Version gives the version number.
const Version = "0.1.0" // versioning scheme at: http://semver.org/
