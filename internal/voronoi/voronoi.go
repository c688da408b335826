package voronoi

import (
	"image"
)

// Diagram is a raster voronoi diagram; every tile belongs to the cell of its
// nearest site.
type Diagram struct {
	sites  []image.Point
	bounds image.Rectangle
}

// NewDiagram builds a diagram directly from a list of sites
func NewDiagram(bounds image.Rectangle, sites []image.Point) *Diagram {
	out := make([]image.Point, len(sites))
	copy(out, sites)
	return newDiagram(bounds, out)
}

func newDiagram(bounds image.Rectangle, sites []image.Point) *Diagram {
	return &Diagram{sites: sites, bounds: bounds}
}

// Bounds returns the bounding rect for this diagram
func (v *Diagram) Bounds() image.Rectangle {
	return v.bounds
}

// Sites returns all sites (nb. not a copy)
func (v *Diagram) Sites() []image.Point {
	return v.sites
}

// NearestIndex returns the index of the nearest site (centre of a voronoi cell)
// for the given point, or -1 if there are no sites.
// Linear scan by squared euclidean distance; on a tie the lowest index wins.
func (v *Diagram) NearestIndex(x, y int) int {
	pick := -1
	best := 0
	for i, s := range v.sites {
		dx, dy := s.X-x, s.Y-y
		d := dx*dx + dy*dy
		if pick < 0 || d < best {
			pick = i
			best = d
		}
		if d == 0 {
			break
		}
	}
	return pick
}
