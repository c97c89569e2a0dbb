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

package cuputil

import (
	"fmt"
	"image/color"
	"os"

	"github.com/chengcli/cup"
	"github.com/ctessum/cdf"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot reads the flux file at fluxFile and renders the upward and
// downward flux profiles against height, saving the image to plotFile.
// The image format is taken from the file extension. band selects the
// fluxes of one band, named as in the flux file variables; the empty
// string selects the broadband totals.
func Plot(fluxFile, plotFile, band string) error {
	ff, err := os.Open(fluxFile)
	if err != nil {
		return fmt.Errorf("cup: opening flux file: %w", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return fmt.Errorf("cup: flux file %s: %w", fluxFile, err)
	}

	upName, dnName := "flxup", "flxdn"
	if band != "" {
		upName += "_" + band
		dnName += "_" + band
	}
	read := func(name string) []float64 {
		if err != nil {
			return nil
		}
		var v []float64
		v, err = cup.ReadNCFVector(f, name)
		return v
	}
	z := read("z")
	up := read(upName)
	dn := read(dnName)
	if err != nil {
		return fmt.Errorf("cup: flux file %s: %w", fluxFile, err)
	}
	if len(up) != len(z) || len(dn) != len(z) {
		return fmt.Errorf("cup: flux file %s: %s and %s have %d and %d levels but z has %d",
			fluxFile, upName, dnName, len(up), len(dn), len(z))
	}

	pts := func(v []float64) plotter.XYs {
		xy := make(plotter.XYs, len(v))
		for i := range v {
			xy[i].X = v[i]
			xy[i].Y = z[i]
		}
		return xy
	}
	p := plot.New()
	if colName, ok := cup.NCFAttrString(f, "", "column"); ok {
		p.Title.Text = colName
		if band != "" {
			p.Title.Text = colName + " " + band
		}
	}
	p.X.Label.Text = "flux (W/m²)"
	p.Y.Label.Text = "height (m)"
	lup, err := plotter.NewLine(pts(up))
	if err != nil {
		return err
	}
	lup.Color = color.NRGBA{0, 0, 0, 255}
	ldn, err := plotter.NewLine(pts(dn))
	if err != nil {
		return err
	}
	ldn.Color = color.NRGBA{127, 127, 127, 255}
	ldn.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
	p.Add(lup, ldn)
	p.Legend.Add("upward", lup)
	p.Legend.Add("downward", ldn)
	p.Legend.Top = true

	if err := p.Save(4*vg.Inch, 6*vg.Inch, plotFile); err != nil {
		return fmt.Errorf("cup: saving plot %s: %w", plotFile, err)
	}
	return nil
}
