// Package catalog indexes a collection of georeferenced charts for fast
// point lookups: given a WGS84 coordinate, which charts cover it and at
// which pixel.
package catalog

import (
	"github.com/dhconnelly/rtreego"

	"github.com/cdurand/chartproj/internal/coord"
	"github.com/cdurand/chartproj/internal/geotiff"
)

// rectEpsilon keeps R-tree rectangles non-degenerate for hairline extents.
const rectEpsilon = 1e-9

// Chart is one indexed chart: its projection model, raster extent and
// WGS84 corner-hull bounds.
type Chart struct {
	Path   string
	Params coord.Parameters
	Width  int
	Height int
	Box    geotiff.Bounds

	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (c *Chart) Bounds() rtreego.Rect {
	return c.rect
}

// Contains reports whether the point projects to a pixel inside the
// raster. The corner-hull box overstates coverage near the bowed edges of
// a conic raster; this is the exact check.
func (c *Chart) Contains(lon, lat float64) bool {
	col, row := c.Params.ToPixel(lon, lat)
	return col >= 0 && col < c.Width && row >= 0 && row < c.Height
}

// Index is an R-tree over chart bounds.
type Index struct {
	tree   *rtreego.Rtree
	charts []*Chart
}

// NewIndex returns an empty chart index.
func NewIndex() *Index {
	return &Index{tree: rtreego.NewTree(2, 25, 50)}
}

// Add inserts a chart described by its projection model and raster extent.
func (idx *Index) Add(path string, params coord.Parameters, width, height int) *Chart {
	box := geotiff.ComputeBounds(params, width, height)

	lonLen := box.MaxLon - box.MinLon
	latLen := box.MaxLat - box.MinLat
	if lonLen < rectEpsilon {
		lonLen = rectEpsilon
	}
	if latLen < rectEpsilon {
		latLen = rectEpsilon
	}
	rect, _ := rtreego.NewRect(rtreego.Point{box.MinLon, box.MinLat}, []float64{lonLen, latLen})

	c := &Chart{
		Path:   path,
		Params: params,
		Width:  width,
		Height: height,
		Box:    box,
		rect:   rect,
	}
	idx.charts = append(idx.charts, c)
	idx.tree.Insert(c)
	return c
}

// AddReader indexes an opened chart.
func (idx *Index) AddReader(r *geotiff.Reader) *Chart {
	return idx.Add(r.Path(), r.Params(), r.Width(), r.Height())
}

// FindAt returns the charts whose raster contains the given WGS84 point.
// Candidates come from the R-tree; each is confirmed against the exact
// raster extent through the forward projection.
func (idx *Index) FindAt(lon, lat float64) []*Chart {
	query, _ := rtreego.NewRect(rtreego.Point{lon, lat}, []float64{rectEpsilon, rectEpsilon})

	var hits []*Chart
	for _, s := range idx.tree.SearchIntersect(query) {
		c := s.(*Chart)
		if c.Contains(lon, lat) {
			hits = append(hits, c)
		}
	}
	return hits
}

// Len returns the number of indexed charts.
func (idx *Index) Len() int {
	return len(idx.charts)
}

// Charts returns all indexed charts in insertion order.
func (idx *Index) Charts() []*Chart {
	return idx.charts
}
