package citygrid

import (
	"image"
	"math"

	"github.com/voidshard/citygrid/internal/astar"
)

const (
	// fixed terrain costs used while building the road network
	roadCost  = 1.0
	emptyCost = 5.0
)

// fixedCost is the generation time cost of entering p; roads are cheap, empty
// land is dear & anything else (buildings, off map) can't be crossed.
// Caller must hold the lock.
func (c *City) fixedCost(p image.Point) float64 {
	idx := c.occ.Index()
	if !idx.InBounds(p) {
		return math.Inf(1)
	}
	switch idx.Get(p) {
	case Road:
		return roadCost
	case Empty:
		return emptyCost
	}
	return math.Inf(1)
}

// fixedGrid searches with fixedCost. Every step costs at least roadCost, so
// plain manhattan distance is an admissible heuristic.
func (c *City) fixedGrid() astar.Grid {
	return astar.Grid{
		Bounds:  c.occ.Index().Bounds(),
		Cost:    c.fixedCost,
		MinStep: roadCost,
	}
}

// trafficGrid searches road tiles only, costed by current travel time.
func (c *City) trafficGrid() astar.Grid {
	return astar.Grid{
		Bounds:   c.occ.Index().Bounds(),
		Cost:     c.travelTimeAt,
		Walkable: c.occ.IsRoad,
		MinStep:  math.Max(minTravelTime, c.cfg.TrafficBaseCost),
	}
}

// CostOf returns the fixed terrain cost of entering a tile
func (c *City) CostOf(tile image.Point) float64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.fixedCost(tile)
}

// FindPath returns the quickest road path from start to end given current
// traffic, including both ends. Both ends must be road tiles.
// Returns false if there is no such path.
func (c *City) FindPath(start, end image.Point) ([]image.Point, bool) {
	path, _, ok := c.Route(start, end)
	return path, ok
}

// Route is FindPath that also returns the total travel time of the path
// (the sum of entering every tile after start).
func (c *City) Route(start, end image.Point) ([]image.Point, float64, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	path, cost, ok := astar.Find(c.trafficGrid(), start, end)
	if !ok {
		return nil, 0, false
	}
	return path, cost, true
}
