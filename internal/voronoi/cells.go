package voronoi

import (
	"image"

	"github.com/unixpickle/model3d/model2d"
)

// Cell is the polygonal region of one site, in tile units. Sites sit at the
// centre of their tile, so site (x, y) is the coord (x+0.5, y+0.5).
type Cell struct {
	Site  image.Point
	Edges []*model2d.Segment
}

// Cells clips the diagram bounds by the bisector between each site & every
// other site. Duplicate sites share a cell.
//
// Only used for drawing; road placement works purely from NearestIndex.
func (v *Diagram) Cells() []*Cell {
	min := model2d.Coord{X: float64(v.bounds.Min.X), Y: float64(v.bounds.Min.Y)}
	max := model2d.Coord{X: float64(v.bounds.Max.X), Y: float64(v.bounds.Max.Y)}

	cells := make([]*Cell, len(v.sites))
	for i, s := range v.sites {
		c := tileCentre(s)
		poly := model2d.NewConvexPolytopeRect(min, max)
		for _, other := range v.sites {
			if other == s {
				continue
			}
			c1 := tileCentre(other)
			normal := c1.Sub(c).Normalize()
			poly = append(poly, &model2d.LinearConstraint{
				Normal: normal,
				Max:    normal.Dot(c.Mid(c1)),
			})
		}
		cells[i] = &Cell{Site: s, Edges: poly.Mesh().SegmentSlice()}
	}
	return cells
}

func tileCentre(p image.Point) model2d.Coord {
	return model2d.Coord{X: float64(p.X) + 0.5, Y: float64(p.Y) + 0.5}
}
