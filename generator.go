package citygrid

import (
	"image"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model2d"

	"github.com/voidshard/citygrid/internal/noise"
	"github.com/voidshard/citygrid/internal/voronoi"
)

// ErrSuperseded is returned by Step when a newer generation run has started
// on the same City.
var ErrSuperseded = errors.New("generation superseded by a newer run")

// Phase is a stage of a generation run. Phases always run in this order.
type Phase int

const (
	PhaseReset        Phase = iota // destroy everything from the last run
	PhaseSites                     // place voronoi sites
	PhaseNoise                     // pick noise branch points
	PhaseNearest                   // nearest site for every tile
	PhaseBoundaries                // roads along voronoi cell boundaries
	PhaseBranches                  // connect branch points to the network
	PhaseAnchors                   // connect edge anchors to the network
	PhaseConnectivity              // merge disconnected road components
	PhaseBuildings                 // greedy building placement
	PhaseDone
)

var phaseNames = [...]string{
	PhaseReset:        "reset",
	PhaseSites:        "sites",
	PhaseNoise:        "noise",
	PhaseNearest:      "nearest",
	PhaseBoundaries:   "boundaries",
	PhaseBranches:     "branches",
	PhaseAnchors:      "anchors",
	PhaseConnectivity: "connectivity",
	PhaseBuildings:    "buildings",
	PhaseDone:         "done",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Status is returned from Generator.Step
type Status int

const (
	InProgress Status = iota
	Done
)

// Generator is a single generation run. It holds all the scratch state of the
// run so nothing leaks between runs; each Step does a bounded amount of work
// so a host can interleave generation with its own frame loop.
type Generator struct {
	city *City
	id   string
	seed int64
	rng  *rand.Rand
	log  *slog.Logger

	phase  Phase
	cursor int

	sites    []image.Point
	diagram  *voronoi.Diagram
	nearest  []int
	branches []image.Point
	edges    []image.Point

	// anchors are points new branches may connect to, in insertion order
	anchors   []image.Point
	anchorSet map[image.Point]struct{}

	// connectivity repair
	repairing bool
	main      map[image.Point]struct{}
	mainPts   []image.Point
	tree      *model2d.CoordTree
	queue     [][]image.Point
	failed    [][]image.Point
	merged    int
}

// NewGenerator starts a new generation run. Any run already in progress on
// this City is abandoned (its next Step returns ErrSuperseded).
func (c *City) NewGenerator() *Generator {
	c.lock.Lock()
	defer c.lock.Unlock()

	id := uuid.New().String()
	seed := c.seed + c.runs
	c.runs++

	g := &Generator{
		city:      c,
		id:        id,
		seed:      seed,
		rng:       rand.New(rand.NewSource(seed)),
		log:       c.log.With("run", id, "seed", seed),
		phase:     PhaseReset,
		anchorSet: map[image.Point]struct{}{},
	}
	c.gen = g

	return g
}

// ID returns the unique id of this run
func (g *Generator) ID() string {
	return g.id
}

// Phase returns the phase the next Step will work on
func (g *Generator) Phase() Phase {
	g.city.lock.RLock()
	defer g.city.lock.RUnlock()
	return g.phase
}

// Step runs one bounded batch of work. The city is self-consistent between
// calls to Step.
func (g *Generator) Step() (Status, error) {
	c := g.city
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.gen != g {
		return Done, ErrSuperseded
	}

	switch g.phase {
	case PhaseReset:
		g.reset()
	case PhaseSites:
		g.placeSites()
	case PhaseNoise:
		g.pickBranchPoints()
	case PhaseNearest:
		g.computeNearest()
	case PhaseBoundaries:
		g.claimBoundaries()
	case PhaseBranches:
		g.connectBranches()
	case PhaseAnchors:
		g.connectEdges()
	case PhaseConnectivity:
		g.repairConnectivity()
	case PhaseBuildings:
		g.placeBuildings()
	}

	if g.phase == PhaseDone {
		return Done, nil
	}
	return InProgress, nil
}

// next moves on to the following phase
func (g *Generator) next() {
	g.phase++
	g.cursor = 0
	g.log.Debug("generation phase", "phase", g.phase.String())
}

// progress is a rough [0,1] estimate; phases are weighted equally
func (g *Generator) progress() float64 {
	if g.phase >= PhaseDone {
		return 1
	}

	total := 0
	switch g.phase {
	case PhaseNearest, PhaseBoundaries, PhaseBuildings:
		total = g.city.occ.Index().Area()
	case PhaseBranches:
		total = len(g.branches)
	case PhaseAnchors:
		total = len(g.edges)
	}

	within := 0.0
	if total > 0 {
		within = float64(g.cursor) / float64(total)
		if within > 1 {
			within = 1
		}
	}

	return (float64(g.phase) + within) / float64(PhaseDone)
}

func (g *Generator) reset() {
	c := g.city
	c.occ.Reset()
	c.pending = []activation{}
	c.stats = newStats(g.id, g.seed)
	c.sites = nil

	g.log.Info("generation started", "width", c.cfg.Width, "height", c.cfg.Height)
	g.next()
}

func (g *Generator) placeSites() {
	c := g.city
	idx := c.occ.Index()

	b := voronoi.NewBuilder(idx.Bounds())
	b.SetRand(g.rng)
	b.SetCandidateFilters(func(x, y int) bool {
		p := image.Pt(x, y)
		return idx.Get(p) == Empty && !c.occ.Occupied(p)
	})
	b.SetSiteFilters(b.Separated(1))

	b.JitteredGrid(c.cfg.SiteSpacing, c.cfg.SiteJitter)
	if b.SiteCount() < 4 && idx.Width() > MinMapSize && idx.Height() > MinMapSize {
		added := b.CornerSites()
		g.log.Debug("added corner sites", "added", added)
	}

	g.sites = b.Sites()
	g.diagram = b.Diagram()
	c.sites = g.sites
	c.stats.Sites = len(g.sites)

	g.log.Debug("placed voronoi sites", "sites", len(g.sites))
	g.next()
}

func (g *Generator) pickBranchPoints() {
	c := g.city

	var offset noise.Offset
	if c.cfg.NoiseOffset != nil {
		offset = *c.cfg.NoiseOffset
	} else {
		offset = noise.RandomOffset(g.rng)
	}

	sampler := noise.NewSampler(g.seed)
	g.branches = sampler.BranchPoints(
		c.cfg.Width, c.cfg.Height, c.cfg.NoiseScale, c.cfg.NoiseThreshold, offset,
		func(p image.Point) bool { return !c.occ.Occupied(p) },
	)
	c.stats.BranchPoints = len(g.branches)

	g.log.Debug("picked branch points", "points", len(g.branches), "offsetX", offset.X, "offsetY", offset.Y)
	g.next()
}

func (g *Generator) computeNearest() {
	idx := g.city.occ.Index()
	if g.nearest == nil {
		g.nearest = make([]int, idx.Area())
	}

	end := minint(g.cursor+g.city.cfg.BatchSize, idx.Area())
	for ; g.cursor < end; g.cursor++ {
		p := idx.Point(g.cursor)
		g.nearest[g.cursor] = g.diagram.NearestIndex(p.X, p.Y)
	}

	if g.cursor >= idx.Area() {
		g.next()
	}
}

func (g *Generator) claimBoundaries() {
	c := g.city
	idx := c.occ.Index()

	end := minint(g.cursor+c.cfg.BatchSize, idx.Area())
	for ; g.cursor < end; g.cursor++ {
		p := idx.Point(g.cursor)
		if isCellBoundary(idx, g.nearest, p) {
			c.claimRoad(p, g.rng)
		}
	}

	if g.cursor >= idx.Area() {
		g.log.Debug("claimed cell boundaries", "roads", c.occ.RoadCount())
		g.next()
	}
}

func (g *Generator) connectBranches() {
	c := g.city

	if g.cursor == 0 {
		// everything on the network so far, then sites (which may not be roads yet)
		for _, p := range c.occ.Roads() {
			g.addAnchor(p)
		}
		for _, s := range g.sites {
			g.addAnchor(s)
		}
	}

	for n := 0; n < c.cfg.PathBatch && g.cursor < len(g.branches); g.cursor++ {
		p := g.branches[g.cursor]
		if c.occ.IsRoad(p) {
			continue
		}
		n++

		if !g.connect(p) {
			c.stats.BranchFailures++
			g.log.Warn("failed to connect branch point", "tile", p)
		}
	}

	if g.cursor >= len(g.branches) {
		g.log.Debug("connected branch points", "roads", c.occ.RoadCount(), "failures", c.stats.BranchFailures)
		g.next()
	}
}

func (g *Generator) connectEdges() {
	c := g.city
	if !c.cfg.ConnectEdges {
		g.next()
		return
	}

	if g.edges == nil {
		g.edges = edgeAnchors(c.cfg.Width, c.cfg.Height)
	}

	for n := 0; n < c.cfg.PathBatch && g.cursor < len(g.edges); g.cursor++ {
		p := g.edges[g.cursor]
		if c.occ.IsRoad(p) {
			continue
		}
		n++

		if !g.connect(p) {
			c.stats.AnchorFailures++
			g.log.Warn("failed to connect edge anchor", "tile", p)
		}
	}

	if g.cursor >= len(g.edges) {
		g.next()
	}
}

func (g *Generator) repairConnectivity() {
	c := g.city

	if !g.repairing {
		g.repairing = true
		if !g.startPass() {
			g.finishRepair()
			return
		}
	}

	if len(g.queue) > 0 {
		g.mergeNext()
		return
	}

	// end of a pass
	if len(g.failed) == 0 {
		g.finishRepair()
		return
	}
	if g.merged == 0 {
		c.stats.MergeFailures = len(g.failed)
		g.log.Warn("road network left disconnected", "components", len(g.failed)+1)
		g.finishRepair()
		return
	}
	if !g.startPass() {
		g.finishRepair()
	}
}

func (g *Generator) finishRepair() {
	c := g.city
	c.stats.Components = len(roadComponents(c.occ))
	g.main, g.mainPts, g.tree, g.queue, g.failed = nil, nil, nil, nil, nil
	g.log.Debug("road connectivity repaired", "components", c.stats.Components, "roads", c.occ.RoadCount())
	g.next()
}

func (g *Generator) placeBuildings() {
	c := g.city
	idx := c.occ.Index()

	end := minint(g.cursor+c.cfg.BatchSize, idx.Area())
	for g.cursor < end {
		origin := idx.Point(g.cursor)
		rec, ok := c.fitBuilding(origin, g.rng)
		if ok {
			// skip the columns we just consumed (they're in the same row)
			g.cursor += rec.Size()
			continue
		}
		g.cursor++
	}

	if g.cursor >= idx.Area() {
		g.log.Info(
			"generation complete",
			"sites", c.stats.Sites,
			"roads", c.occ.RoadCount(),
			"buildings", len(c.occ.Records())-c.occ.RoadCount(),
			"components", c.stats.Components,
		)
		g.next()
	}
}
