package citygrid

import (
	"image"
	"math"

	"github.com/boljen/go-bitmap"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/citygrid/internal/astar"
	"github.com/voidshard/citygrid/internal/grid"
)

// isCellBoundary is true if some in-bounds 4-neighbour of p is nearest to a
// different site than p is.
func isCellBoundary(idx *grid.Index, nearest []int, p image.Point) bool {
	mine := nearest[idx.Offset(p)]
	for _, n := range grid.Neighbours4(p) {
		off := idx.Offset(n)
		if off < 0 {
			continue
		}
		if nearest[off] != mine {
			return true
		}
	}
	return false
}

// edgeAnchors returns points one tile in from the border; the four corners and
// the middle of each side. Maps too small to have an inner ring get none.
func edgeAnchors(w, h int) []image.Point {
	if w < 3 || h < 3 {
		return []image.Point{}
	}
	return []image.Point{
		{X: 1, Y: 1},
		{X: w - 2, Y: 1},
		{X: 1, Y: h - 2},
		{X: w - 2, Y: h - 2},
		{X: w / 2, Y: 1},
		{X: w / 2, Y: h - 2},
		{X: 1, Y: h / 2},
		{X: w - 2, Y: h / 2},
	}
}

// addAnchor records p as somewhere later branches may connect to
func (g *Generator) addAnchor(p image.Point) {
	if _, ok := g.anchorSet[p]; ok {
		return
	}
	g.anchorSet[p] = struct{}{}
	g.anchors = append(g.anchors, p)
}

// nearestAnchor is a linear scan by manhattan distance; the first anchor
// added wins ties. Anchors equal to p are ignored.
func (g *Generator) nearestAnchor(p image.Point) (image.Point, bool) {
	best := image.Point{}
	bestDist := math.MaxInt
	for _, a := range g.anchors {
		if a == p {
			continue
		}
		d := grid.Manhattan(a, p)
		if d < bestDist {
			best = a
			bestDist = d
		}
	}
	return best, bestDist != math.MaxInt
}

// connect runs a fixed cost path from p to its nearest anchor & turns it into
// road. Every tile on the path becomes an anchor too, so later points can
// join onto this branch.
//
// Points are connected one at a time to whatever is nearest at the moment,
// so the result depends on order; it approximates a spanning tree, it is not
// a minimum one.
func (g *Generator) connect(p image.Point) bool {
	c := g.city
	target, ok := g.nearestAnchor(p)
	if !ok {
		return false
	}

	path, _, ok := astar.Find(c.fixedGrid(), p, target)
	if !ok {
		return false
	}

	for _, t := range path {
		c.claimRoad(t, g.rng)
		g.addAnchor(t)
	}
	return true
}

// roadComponents returns every 4-connected component of the road tile set.
// Components are found in row-major order of their first tile.
func roadComponents(occ *grid.Occupancy) [][]image.Point {
	idx := occ.Index()
	visited := bitmap.New(idx.Area())
	comps := [][]image.Point{}

	for _, p := range occ.Roads() {
		if visited.Get(idx.Offset(p)) {
			continue
		}
		visited.Set(idx.Offset(p), true)

		comp := []image.Point{}
		queue := []image.Point{p}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)

			for _, n := range grid.Neighbours4(cur) {
				if !occ.IsRoad(n) {
					continue
				}
				off := idx.Offset(n)
				if visited.Get(off) {
					continue
				}
				visited.Set(off, true)
				queue = append(queue, n)
			}
		}

		comps = append(comps, comp)
	}

	return comps
}

// startPass computes components & queues every component other than the
// largest (the main network) for merging. Returns false if there is nothing
// to merge.
func (g *Generator) startPass() bool {
	comps := roadComponents(g.city.occ)
	if len(comps) <= 1 {
		return false
	}

	largest := 0
	for i, comp := range comps {
		if len(comp) > len(comps[largest]) {
			largest = i
		}
	}

	g.main = map[image.Point]struct{}{}
	g.mainPts = []image.Point{}
	g.joinMain(comps[largest])
	g.rebuildTree()

	g.queue = [][]image.Point{}
	for i, comp := range comps {
		if i != largest {
			g.queue = append(g.queue, comp)
		}
	}
	g.failed = [][]image.Point{}
	g.merged = 0

	g.log.Debug("repairing road connectivity", "components", len(comps), "main", len(comps[largest]))
	return true
}

// mergeNext tries to join one queued component onto the main network
func (g *Generator) mergeNext() {
	c := g.city

	comp := g.queue[0]
	essentials.UnorderedDelete(&g.queue, 0)

	from, to := g.closestPair(comp)
	path, _, ok := astar.Find(c.fixedGrid(), from, to)
	if !ok {
		g.log.Warn("failed to merge road component", "size", len(comp), "from", from, "to", to)
		g.failed = append(g.failed, comp)
		return
	}

	for _, t := range path {
		c.claimRoad(t, g.rng)
	}
	g.joinMain(comp)
	g.joinMain(path)
	g.rebuildTree()
	g.merged++
}

// closestPair samples up to MergeSamples evenly spaced points of comp & returns
// the sample & main network point that are closest (euclidean).
func (g *Generator) closestPair(comp []image.Point) (image.Point, image.Point) {
	var from, to image.Point
	best := math.Inf(1)

	for _, s := range samplePoints(comp, g.city.cfg.MergeSamples) {
		sc := toCoord(s)
		nn := g.tree.KNN(1, sc)
		if len(nn) == 0 {
			continue
		}
		d := nn[0].Dist(sc)
		if d < best {
			best = d
			from = s
			to = toPoint(nn[0])
		}
	}

	return from, to
}

// joinMain adds points to the main network
func (g *Generator) joinMain(pts []image.Point) {
	for _, p := range pts {
		if _, ok := g.main[p]; ok {
			continue
		}
		g.main[p] = struct{}{}
		g.mainPts = append(g.mainPts, p)
	}
}

func (g *Generator) rebuildTree() {
	coords := make([]model2d.Coord, len(g.mainPts))
	for i, p := range g.mainPts {
		coords[i] = toCoord(p)
	}
	g.tree = model2d.NewCoordTree(coords)
}

// samplePoints returns at most n points from in, spread evenly
func samplePoints(in []image.Point, n int) []image.Point {
	if n <= 0 || len(in) <= n {
		return in
	}
	out := make([]image.Point, n)
	for i := 0; i < n; i++ {
		out[i] = in[i*len(in)/n]
	}
	return out
}
