package voronoi

import (
	"image"
	"math/rand"
	"time"
)

// Builder struct makes managing the setup of a voronoi diagram easier.
// We're interested here in building a voronoi diagram with some structure
// to how 'sites' (centres of voronoi cells) are laid out.
type Builder struct {
	bounds image.Rectangle
	sites  []image.Point
	rng    *rand.Rand
	sfilt  []SiteFilter
	cfilt  []CandidateFilter
}

// NewBuilder returns a new Voronoi diagram builder
func NewBuilder(bounds image.Rectangle) *Builder {
	return &Builder{
		bounds: bounds,
		sites:  []image.Point{},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SiteCount returns how many sites we've currently got configured
func (b *Builder) SiteCount() int {
	return len(b.sites)
}

// Sites returns a copy of the accepted sites, in the order they were accepted
func (b *Builder) Sites() []image.Point {
	out := make([]image.Point, len(b.sites))
	copy(out, b.sites)
	return out
}

// Diagram returns the nearest-site diagram for our current sites.
func (b *Builder) Diagram() *Diagram {
	return newDiagram(b.bounds, b.Sites())
}

// SetSeed sets our internal RNG seed
func (b *Builder) SetSeed(seed int64) {
	b.rng = rand.New(rand.NewSource(seed))
}

// SetRand shares an existing RNG (so a whole generation run replays from one seed)
func (b *Builder) SetRand(rng *rand.Rand) {
	if rng != nil {
		b.rng = rng
	}
}

// SetCandidateFilters sets filters that accept / reject a proposed site without
// reference to other currently set site(s).
func (b *Builder) SetCandidateFilters(f ...CandidateFilter) {
	b.cfilt = f
}

// SetSiteFilters sets filters that compare proposed sites to all current sites.
func (b *Builder) SetSiteFilters(f ...SiteFilter) {
	b.sfilt = f
}

// JitteredGrid lays a grid with the given spacing over the bounds & proposes
// the centre of each grid cell, moved by up to +/- jitter in both axes.
// Jitter is clamped to [0, spacing/2]. Cells are walked x outer, y inner.
// Returns how many sites were accepted.
func (b *Builder) JitteredGrid(spacing, jitter int) int {
	if spacing < 1 {
		spacing = 1
	}
	if jitter < 0 {
		jitter = 0
	}
	if jitter > spacing/2 {
		jitter = spacing / 2
	}

	added := 0
	for cx := b.bounds.Min.X + spacing/2; cx < b.bounds.Max.X; cx += spacing {
		for cy := b.bounds.Min.Y + spacing/2; cy < b.bounds.Max.Y; cy += spacing {
			x, y := cx, cy
			if jitter > 0 {
				x += b.rng.Intn(2*jitter+1) - jitter
				y += b.rng.Intn(2*jitter+1) - jitter
			}
			if _, ok := b.AddSite(x, y); ok {
				added++
			}
		}
	}
	return added
}

// CornerSites proposes one site in each quadrant (a quarter of the way in from
// each corner). Used to guarantee a minimal skeleton on sparse maps.
func (b *Builder) CornerSites() int {
	w := b.bounds.Dx()
	h := b.bounds.Dy()
	candidates := []image.Point{
		{X: b.bounds.Min.X + w/4, Y: b.bounds.Min.Y + h/4},
		{X: b.bounds.Min.X + w/4, Y: b.bounds.Min.Y + 3*h/4},
		{X: b.bounds.Min.X + 3*w/4, Y: b.bounds.Min.Y + h/4},
		{X: b.bounds.Min.X + 3*w/4, Y: b.bounds.Min.Y + 3*h/4},
	}

	added := 0
	for _, c := range candidates {
		if _, ok := b.AddSite(c.X, c.Y); ok {
			added++
		}
	}
	return added
}

// AddSite places a site at the given location, assuming it obeys currently set filters.
func (b *Builder) AddSite(x, y int) (int, bool) {
	if !b.accepted(x, y) {
		return 0, false
	}
	return b.addSite(x, y), true
}

// accepted returns if the proposed site location (x, y) is acceptable to our filters.
// Points outside of bounds are never accepted. We run CandidateFilter(s) first so
// we can hopefully reject candidates early.
func (b *Builder) accepted(candidateX, candidateY int) bool {
	if !image.Pt(candidateX, candidateY).In(b.bounds) {
		return false
	}

	for _, fn := range b.cfilt {
		if !fn(candidateX, candidateY) {
			return false
		}
	}

	// check if we can reject with any SiteFilter, for every site
	for _, s := range b.sites {
		for _, fn := range b.sfilt {
			if !fn(candidateX, candidateY, s.X, s.Y) {
				return false
			}
		}
	}

	return true
}

// addSite adds a site, no filters are run.
func (b *Builder) addSite(x, y int) int {
	id := len(b.sites)
	b.sites = append(b.sites, image.Pt(x, y))
	return id
}
