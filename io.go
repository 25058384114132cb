/*
Copyright © 2020 the lumos authors.
This file is part of lumos.

lumos is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

lumos is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with lumos.  If not, see <http://www.gnu.org/licenses/>.
*/

package lumos

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/sparse"
	goshp "github.com/jonas-p/go-shp"
)

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// WriteMeshShapefile writes the leaves of the mesh to a polygon
// shapefile, one record per leaf.
func WriteMeshShapefile(fileName string, m *Mesh) error {
	fileName = strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ".shp"
	e, err := shp.NewEncoderFromFields(fileName, goshp.POLYGON,
		goshp.FloatField("Potential", 24, 12),
		goshp.FloatField("Residual", 24, 12),
		goshp.StringField("State", 10),
		goshp.NumberField("Boundary", 1),
		goshp.NumberField("Depth", 3),
	)
	if err != nil {
		return fmt.Errorf("lumos: creating mesh shapefile: %v", err)
	}
	for _, i := range m.Leaves() {
		c := m.Cell(i)
		err = e.EncodeFields(c.Polygon(), c.Potential, c.Residual, c.State.String(),
			boolInt(c.Boundary), c.Depth)
		if err != nil {
			e.Close()
			return fmt.Errorf("lumos: writing mesh shapefile: %v", err)
		}
	}
	e.Close()
	return nil
}

// WriteSegmentShapefile writes every segment of the graph to a
// polyline shapefile joining the cell centers.
func WriteSegmentShapefile(fileName string, g *Graph) error {
	fileName = strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ".shp"
	e, err := shp.NewEncoderFromFields(fileName, goshp.POLYLINE,
		goshp.NumberField("From", 10),
		goshp.NumberField("To", 10),
		goshp.FloatField("Intensity", 14, 8),
		goshp.NumberField("Leader", 1),
	)
	if err != nil {
		return fmt.Errorf("lumos: creating segment shapefile: %v", err)
	}
	for _, s := range g.Edges() {
		line := geom.MultiLineString{geom.LineString{g.center(s.From), g.center(s.To)}}
		if err := e.EncodeFields(line, s.From, s.To, s.Intensity, boolInt(s.Leader)); err != nil {
			e.Close()
			return fmt.Errorf("lumos: writing segment shapefile: %v", err)
		}
	}
	e.Close()
	return nil
}

// center returns the center of the grid cell at index.
func (g *Graph) center(index int) geom.Point {
	x, y := g.cellXY(index)
	return geom.Point{X: (float64(x) + 0.5) * g.Dx, Y: (float64(y) + 0.5) * g.Dy}
}

// WriteIntensityNetCDF writes a raster from Rasterize to a NetCDF file
// as the variable intensity(y, x).
func WriteIntensityNetCDF(fileName string, r *sparse.DenseArray) error {
	h := cdf.NewHeader([]string{"y", "x"}, []int{r.Shape[0], r.Shape[1]})
	h.AddAttribute("", "comment", "Discharge intensity raster")
	h.AddVariable("intensity", []string{"y", "x"}, []float32{0})
	h.AddAttribute("intensity", "description", "Brightest segment intensity in each pixel; row 0 is south")
	h.AddAttribute("intensity", "units", "fraction")
	h.Define()

	ff, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("lumos: creating NetCDF file: %v", err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return fmt.Errorf("lumos: creating NetCDF file: %v", err)
	}
	data32 := make([]float32, len(r.Elements))
	for i, v := range r.Elements {
		data32[i] = float32(v)
	}
	end := f.Header.Lengths("intensity")
	start := make([]int, len(end))
	w := f.Writer("intensity", start, end)
	if _, err := w.Write(data32); err != nil {
		ff.Close()
		return fmt.Errorf("lumos: writing NetCDF file: %v", err)
	}
	return ff.Close()
}

// ReadIntensityNetCDF reads a raster written by WriteIntensityNetCDF.
func ReadIntensityNetCDF(fileName string) (*sparse.DenseArray, error) {
	ff, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("lumos: opening NetCDF file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("lumos: opening NetCDF file: %v", err)
	}
	dims := f.Header.Lengths("intensity")
	if len(dims) != 2 {
		return nil, fmt.Errorf("%w: NetCDF intensity has dimensions %v", ErrMalformed, dims)
	}
	rd := f.Reader("intensity", nil, nil)
	buf := rd.Zero(-1)
	if _, err := rd.Read(buf); err != nil {
		return nil, fmt.Errorf("lumos: reading NetCDF file: %v", err)
	}
	out := sparse.ZerosDense(dims...)
	for i, v := range buf.([]float32) {
		out.Elements[i] = float64(v)
	}
	return out, nil
}

// IntensityImage converts a raster to a grayscale image with north at
// the top.
func IntensityImage(r *sparse.DenseArray) *image.Gray {
	h, w := r.Shape[0], r.Shape[1]
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := min(max(r.Get(y, x), 0), 1)
			img.SetGray(x, h-1-y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return img
}

// WriteIntensityPNG writes a raster to a grayscale PNG file.
func WriteIntensityPNG(fileName string, r *sparse.DenseArray) error {
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("lumos: creating PNG file: %v", err)
	}
	if err := png.Encode(f, IntensityImage(r)); err != nil {
		f.Close()
		return fmt.Errorf("lumos: writing PNG file: %v", err)
	}
	return f.Close()
}
