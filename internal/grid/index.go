package grid

import (
	"image"
)

// Index is a bounds checked 2D array of zone types.
//
// Out of bounds policy: Get returns Empty and set is a no-op returning false.
// Index is only ever written by Occupancy, it's a denormalised view of what
// the occupancy map already knows.
type Index struct {
	width  int
	height int
	zones  []ZoneType
}

// NewIndex returns an all Empty index of the given dimensions
func NewIndex(width, height int) *Index {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Index{
		width:  width,
		height: height,
		zones:  make([]ZoneType, width*height),
	}
}

// Width of the grid in tiles
func (g *Index) Width() int {
	return g.width
}

// Height of the grid in tiles
func (g *Index) Height() int {
	return g.height
}

// Bounds returns the grid as a rectangle (Min is 0,0)
func (g *Index) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.width, g.height)
}

// Area is the number of tiles in the grid
func (g *Index) Area() int {
	return g.width * g.height
}

// InBounds is the single source of truth for bounds checks.
func (g *Index) InBounds(p image.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

// Get returns the zone at p, or Empty if p is out of bounds
func (g *Index) Get(p image.Point) ZoneType {
	if !g.InBounds(p) {
		return Empty
	}
	return g.zones[g.offset(p)]
}

// Offset returns the linear (row-major) index of p, or -1 if out of bounds
func (g *Index) Offset(p image.Point) int {
	if !g.InBounds(p) {
		return -1
	}
	return g.offset(p)
}

// Point is the inverse of Offset
func (g *Index) Point(i int) image.Point {
	return image.Pt(i%g.width, i/g.width)
}

func (g *Index) set(p image.Point, z ZoneType) bool {
	if !g.InBounds(p) {
		return false
	}
	g.zones[g.offset(p)] = z
	return true
}

func (g *Index) offset(p image.Point) int {
	return p.Y*g.width + p.X
}

func (g *Index) reset() {
	for i := range g.zones {
		g.zones[i] = Empty
	}
}
