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
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/ctessum/sparse"
)

// ErrTableRange reports an interpolation coordinate outside the table
// domain in checked lookups.
var ErrTableRange = errors.New("coordinate outside table range")

// maxTableAxes is the highest interpolation rank a Table supports.
const maxTableAxes = 3

// An Axis is one coordinate axis of a lookup Table. Coords must be
// strictly increasing.
type Axis struct {
	Name   string
	Coords []float64
}

// A Table is an immutable lookup table over one to three axes with
// multilinear interpolation between grid points. Coordinates outside
// an axis domain are clamped to the nearest edge by Value, which
// counts the clamps in an atomic diagnostic counter; ValueChecked
// fails instead. A Table is safe for concurrent lookups.
type Table struct {
	Name string
	Axes []Axis
	Data *sparse.DenseArray

	clamps atomic.Int64
}

// NewTable creates a table from its axes and data array. The data
// shape must match the axis lengths.
func NewTable(name string, axes []Axis, data *sparse.DenseArray) (*Table, error) {
	if len(axes) == 0 || len(axes) > maxTableAxes {
		return nil, fmt.Errorf("cup: table %q has %d axes; between 1 and %d are supported",
			name, len(axes), maxTableAxes)
	}
	if len(data.Shape) != len(axes) {
		return nil, fmt.Errorf("cup: table %q has %d axes but %d data dimensions",
			name, len(axes), len(data.Shape))
	}
	for d, ax := range axes {
		if len(ax.Coords) == 0 {
			return nil, fmt.Errorf("cup: table %q axis %q is empty", name, ax.Name)
		}
		if data.Shape[d] != len(ax.Coords) {
			return nil, fmt.Errorf("cup: table %q axis %q has %d coordinates but the data dimension is %d",
				name, ax.Name, len(ax.Coords), data.Shape[d])
		}
		for i := 1; i < len(ax.Coords); i++ {
			if ax.Coords[i] <= ax.Coords[i-1] {
				return nil, fmt.Errorf("cup: table %q axis %q must increase: coordinate %d (%g) >= coordinate %d (%g)",
					name, ax.Name, i-1, ax.Coords[i-1], i, ax.Coords[i])
			}
		}
	}
	return &Table{Name: name, Axes: axes, Data: data}, nil
}

// Rank returns the number of interpolation axes.
func (t *Table) Rank() int { return len(t.Axes) }

// ClampCount returns how many lookups have been clamped to an axis
// edge since construction or the last reset.
func (t *Table) ClampCount() int64 { return t.clamps.Load() }

// ResetClampCount zeroes the clamp diagnostic counter.
func (t *Table) ResetClampCount() { t.clamps.Store(0) }

// Value interpolates the table at the given coordinates, one per axis.
// Out-of-domain coordinates are clamped to the nearest edge and
// counted in ClampCount. Value panics if the number of coordinates
// does not match the table rank.
func (t *Table) Value(coords ...float64) float64 {
	v, err := t.value(coords, false)
	if err != nil {
		panic(err)
	}
	return v
}

// ValueChecked interpolates like Value but returns an error wrapping
// ErrTableRange instead of clamping when a coordinate falls outside
// the table domain.
func (t *Table) ValueChecked(coords ...float64) (float64, error) {
	return t.value(coords, true)
}

func (t *Table) value(coords []float64, strict bool) (float64, error) {
	if len(coords) != len(t.Axes) {
		return 0, fmt.Errorf("cup: table %q lookup has %d coordinates but the table has %d axes",
			t.Name, len(coords), len(t.Axes))
	}
	var (
		lo, hi  [maxTableAxes]int
		loW     [maxTableAxes]float64
		clamped bool
	)
	for d, ax := range t.Axes {
		c := coords[d]
		n := len(ax.Coords)
		switch {
		case n == 1:
			lo[d], hi[d], loW[d] = 0, 0, 1
		case c <= ax.Coords[0]:
			if c < ax.Coords[0] {
				if strict {
					return 0, fmt.Errorf("cup: table %q axis %q: %g is below %g: %w",
						t.Name, ax.Name, c, ax.Coords[0], ErrTableRange)
				}
				clamped = true
			}
			lo[d], hi[d], loW[d] = 0, 1, 1
		case c >= ax.Coords[n-1]:
			if c > ax.Coords[n-1] {
				if strict {
					return 0, fmt.Errorf("cup: table %q axis %q: %g is above %g: %w",
						t.Name, ax.Name, c, ax.Coords[n-1], ErrTableRange)
				}
				clamped = true
			}
			lo[d], hi[d], loW[d] = n-2, n-1, 0
		default:
			// SearchFloat64s returns the first index with a
			// coordinate >= c, which is at least 1 here.
			j := sort.SearchFloat64s(ax.Coords, c)
			if ax.Coords[j] == c {
				lo[d], hi[d], loW[d] = j, j, 1
				continue
			}
			lo[d], hi[d] = j-1, j
			loW[d] = (ax.Coords[j] - c) / (ax.Coords[j] - ax.Coords[j-1])
		}
	}
	if clamped {
		t.clamps.Add(1)
	}
	var sum float64
	var idx [maxTableAxes]int
	for corner := 0; corner < 1<<len(t.Axes); corner++ {
		w := 1.0
		for d := range t.Axes {
			if corner>>d&1 == 0 {
				idx[d] = lo[d]
				w *= loW[d]
			} else {
				idx[d] = hi[d]
				w *= 1 - loW[d]
			}
		}
		if w == 0 {
			continue
		}
		sum += w * t.Data.Get(idx[:len(t.Axes)]...)
	}
	return sum, nil
}
